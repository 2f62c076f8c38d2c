package kbucket

import (
	"errors"
	"fmt"
)

// 预定义错误
//
// 路由表是纯内存结构，没有瞬时故障；以下错误全部表示调用方违反前置条件，
// 不应重试。
var (
	// ErrInvalidDimensions 行数或列数不是正数
	ErrInvalidDimensions = errors.New("kbucket: rows and columns must be positive")

	// ErrNilPeer Peer 为空
	ErrNilPeer = errors.New("kbucket: peer is nil")

	// ErrEmptyIdentifier 标识符为空
	ErrEmptyIdentifier = errors.New("kbucket: identifier is empty")

	// ErrBaseNodeNotSet 尚未设置基准节点
	ErrBaseNodeNotSet = errors.New("kbucket: base node not set")

	// ErrNegativeK k 为负数
	ErrNegativeK = errors.New("kbucket: k must not be negative")

	// ErrProberRunning 探测器已在运行
	ErrProberRunning = errors.New("kbucket: prober already running")

	// ErrInvalidInterval 探测间隔不是正数
	ErrInvalidInterval = errors.New("kbucket: probe interval must be positive")
)

// OpError 携带操作名称的路由表错误
type OpError struct {
	Op  string // 操作名称
	Err error  // 底层错误
}

// Error 实现 error 接口
func (e *OpError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

// Unwrap 实现错误解包
func (e *OpError) Unwrap() error {
	return e.Err
}

func opError(op string, err error) error {
	return &OpError{Op: op, Err: err}
}
