package types

import (
	"bytes"
	"crypto/rand"
)

// ============================================================================
//                              Identifier - 键空间坐标
// ============================================================================

// Identifier 任意长度的键空间坐标
//
// 按大端无符号整数解释，两个标识符之间只通过 XOR 与比特位置比较。
// 长度不同的标识符在高位补零后比较，因此 {0x01} 与 {0x00, 0x01}
// 表示同一个坐标。
//
// 外部表示格式：
//   - String(): Base58 编码
//   - ShortString(): Base58 前缀（日志简短标识）
type Identifier []byte

// String 返回 Identifier 的 Base58 字符串表示
func (id Identifier) String() string {
	if len(id) == 0 {
		return ""
	}
	return Base58Encode(id)
}

// ShortString 返回 Identifier 的短字符串表示
//
// 格式：Base58 前 8 个字符，用于日志中的简短标识。
func (id Identifier) ShortString() string {
	s := id.String()
	if len(s) > 8 {
		return s[:8]
	}
	return s
}

// Bytes 返回 Identifier 的字节切片
func (id Identifier) Bytes() []byte {
	return id
}

// IsEmpty 检查 Identifier 是否为空
func (id Identifier) IsEmpty() bool {
	return len(id) == 0
}

// Equal 比较两个 Identifier 是否表示同一个坐标
//
// 高位补零后逐字节相等即视为相等，与 XOR 距离为 0 的判定一致。
func (id Identifier) Equal(other Identifier) bool {
	return bytes.Equal(trimLeadingZeros(id), trimLeadingZeros(other))
}

// Clone 返回 Identifier 的独立拷贝
func (id Identifier) Clone() Identifier {
	if id == nil {
		return nil
	}
	out := make(Identifier, len(id))
	copy(out, id)
	return out
}

// Key 返回可用作 map 键的规范形式（去掉前导零字节）
func (id Identifier) Key() string {
	return string(trimLeadingZeros(id))
}

func trimLeadingZeros(b []byte) []byte {
	for i, c := range b {
		if c != 0 {
			return b[i:]
		}
	}
	return b[len(b):]
}

// IdentifierFromBytes 从字节切片创建 Identifier（拷贝输入）
func IdentifierFromBytes(b []byte) (Identifier, error) {
	if len(b) == 0 {
		return nil, ErrEmptyIdentifier
	}
	return Identifier(b).Clone(), nil
}

// ParseIdentifier 从 Base58 字符串解析 Identifier
func ParseIdentifier(s string) (Identifier, error) {
	if s == "" {
		return nil, ErrEmptyIdentifier
	}
	b, err := Base58Decode(s)
	if err != nil {
		return nil, ErrInvalidIdentifier
	}
	if len(b) == 0 {
		return nil, ErrInvalidIdentifier
	}
	return Identifier(b), nil
}

// RandomIdentifier 生成指定字节长度的随机 Identifier
func RandomIdentifier(size int) (Identifier, error) {
	if size <= 0 {
		return nil, ErrInvalidIdentifierSize
	}
	id := make(Identifier, size)
	if _, err := rand.Read(id); err != nil {
		return nil, err
	}
	return id, nil
}

// ============================================================================
//                              DistanceClass - 距离等级
// ============================================================================

// DistanceClass 两个标识符之间的距离等级
//
// 取值范围 [0, 8×最长标识符字节数]：0 表示同一坐标，
// 其余值为 XOR 结果最高有效位的位置加 1，值越大越远。
type DistanceClass int

// IsSelf 检查距离等级是否表示同一坐标
func (c DistanceClass) IsSelf() bool {
	return c == 0
}
