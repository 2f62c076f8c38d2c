package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================================================
// Identifier 测试
// ============================================================================

func TestIdentifier_StringRoundTrip(t *testing.T) {
	id := Identifier{0x01, 0x02, 0x03, 0xff}

	s := id.String()
	require.NotEmpty(t, s)

	parsed, err := ParseIdentifier(s)
	require.NoError(t, err)
	assert.Equal(t, id, parsed)
}

func TestIdentifier_EmptyString(t *testing.T) {
	var id Identifier
	assert.Equal(t, "", id.String())
	assert.True(t, id.IsEmpty())

	_, err := ParseIdentifier("")
	assert.ErrorIs(t, err, ErrEmptyIdentifier)
}

func TestIdentifier_ParseInvalid(t *testing.T) {
	// '0' 不在 Base58 字母表中
	_, err := ParseIdentifier("0OIl")
	assert.ErrorIs(t, err, ErrInvalidIdentifier)
}

func TestIdentifier_ShortString(t *testing.T) {
	id := HashIdentifier([]byte("short-string"))
	assert.LessOrEqual(t, len(id.ShortString()), 8)
}

// TestIdentifier_EqualZeroExtended 高位补零后相等
func TestIdentifier_EqualZeroExtended(t *testing.T) {
	a := Identifier{0x01}
	b := Identifier{0x00, 0x00, 0x01}
	c := Identifier{0x01, 0x00}

	assert.True(t, a.Equal(b))
	assert.True(t, b.Equal(a))
	assert.False(t, a.Equal(c))
	assert.Equal(t, a.Key(), b.Key())
	assert.NotEqual(t, a.Key(), c.Key())

	t.Log("✅ 补零比较正确")
}

func TestIdentifier_Clone(t *testing.T) {
	id := Identifier{1, 2, 3}
	cp := id.Clone()
	cp[0] = 9

	assert.Equal(t, byte(1), id[0])
	assert.Nil(t, Identifier(nil).Clone())
}

func TestIdentifierFromBytes(t *testing.T) {
	raw := []byte{7, 8}
	id, err := IdentifierFromBytes(raw)
	require.NoError(t, err)
	raw[0] = 0
	assert.Equal(t, Identifier{7, 8}, id)

	_, err = IdentifierFromBytes(nil)
	assert.ErrorIs(t, err, ErrEmptyIdentifier)
}

func TestRandomIdentifier(t *testing.T) {
	a, err := RandomIdentifier(20)
	require.NoError(t, err)
	b, err := RandomIdentifier(20)
	require.NoError(t, err)

	assert.Len(t, a, 20)
	assert.NotEqual(t, a, b)

	_, err = RandomIdentifier(0)
	assert.ErrorIs(t, err, ErrInvalidIdentifierSize)
}

// ============================================================================
// 派生 测试
// ============================================================================

func TestHashIdentifier_Deterministic(t *testing.T) {
	a := HashIdentifier([]byte("content"))
	b := HashIdentifier([]byte("content"))
	c := HashIdentifier([]byte("other"))

	assert.Len(t, a, 32)
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}

func TestSHA256Identifier_KnownVector(t *testing.T) {
	id := SHA256Identifier([]byte("abc"))
	require.Len(t, id, 32)
	// SHA-256("abc") = ba7816bf...
	assert.Equal(t, Identifier{0xba, 0x78, 0x16, 0xbf}, id[:4])
}

// ============================================================================
// Peer 测试
// ============================================================================

func TestIDPeer(t *testing.T) {
	id := Identifier{0xaa, 0xbb}
	var p Peer = IDPeer(id)

	assert.Equal(t, id, p.Identifier())
	assert.Equal(t, id, PeerIdentifier(p))
	assert.Nil(t, PeerIdentifier(nil))
	assert.Equal(t, id.String(), IDPeer(id).String())
}

func TestDistanceClass_IsSelf(t *testing.T) {
	assert.True(t, DistanceClass(0).IsSelf())
	assert.False(t, DistanceClass(3).IsSelf())
}
