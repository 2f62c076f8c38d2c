// Package lib 包含基础设施工具库
//
// 本目录包含与路由算法无关的通用工具库：
//
//   - log: 日志封装
//
// # 与 pkg/ 其他目录的关系
//
//   - interfaces/: 组件公共接口
//   - types/: 公共类型定义
//   - lib/: 基础设施工具库（本目录）
//
// # 使用示例
//
//	import "github.com/dep2p/go-kbucket/pkg/lib/log"
//
//	var logger = log.Logger("routing/kbucket")
package lib
