// Package types 定义路由表的公共数据结构
//
// 这是整个系统的最底层包，不依赖任何其他内部包。
//
// # 文件组织
//
//   - ids.go    - Identifier, DistanceClass
//   - peer.go   - Peer 接口, IDPeer
//   - derive.go - 标识符派生（BLAKE3 / SHA-256）
//   - base58.go - Base58 编解码
//   - errors.go - 公共错误定义
//
// # 使用示例
//
//	id := types.HashIdentifier([]byte("content-name"))
//	fmt.Println(id.ShortString())
//
//	var p types.Peer = types.IDPeer(id)
package types
