package types

import "errors"

// ============================================================================
//                              Identifier 相关错误
// ============================================================================

var (
	// ErrEmptyIdentifier 空标识符
	ErrEmptyIdentifier = errors.New("empty identifier")

	// ErrInvalidIdentifier 无效的标识符
	ErrInvalidIdentifier = errors.New("invalid identifier: must be Base58")

	// ErrInvalidIdentifierSize 无效的标识符长度
	ErrInvalidIdentifierSize = errors.New("invalid identifier size: must be positive")
)
