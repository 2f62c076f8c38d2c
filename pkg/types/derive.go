package types

import (
	"github.com/minio/sha256-simd"
	"lukechampine.com/blake3"
)

// HashIdentifier 使用 BLAKE3-256 从任意数据派生 32 字节 Identifier
//
// 用于把内容名、公钥等映射到统一的键空间。
func HashIdentifier(data []byte) Identifier {
	sum := blake3.Sum256(data)
	return Identifier(sum[:])
}

// SHA256Identifier 使用 SHA-256 从任意数据派生 32 字节 Identifier
//
// 与 libp2p kbucket 的 ConvertKey 规则一致，便于与其键空间互通。
func SHA256Identifier(data []byte) Identifier {
	sum := sha256.Sum256(data)
	return Identifier(sum[:])
}
