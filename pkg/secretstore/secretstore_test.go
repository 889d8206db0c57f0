package secretstore

import (
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestStore_RoundTrip 加密库读写，区分不存在与空值
func TestStore_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	key := make([]byte, 32)
	for i := range key {
		key[i] = byte(i)
	}

	s, err := Open(OpenOptions{Path: dir, EncryptionKey: key})
	require.NoError(t, err)
	require.NoError(t, s.SetString(EnvPrefix+"BITFLYER_API_KEY", "k"))
	require.NoError(t, s.SetString(EnvPrefix+"EMPTY", ""))
	require.NoError(t, s.Close())

	s, err = Open(OpenOptions{Path: dir, EncryptionKey: key, ReadOnly: true})
	require.NoError(t, err)
	defer s.Close()

	v, ok, err := s.GetString(EnvPrefix + "BITFLYER_API_KEY")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "k", v)

	_, ok, err = s.GetString(EnvPrefix + "EMPTY")
	require.NoError(t, err)
	assert.True(t, ok)

	_, ok, err = s.GetString(EnvPrefix + "MISSING")
	require.NoError(t, err)
	assert.False(t, ok)

	_, _, err = s.GetString(" ")
	assert.Error(t, err)
}

// TestParseKey hex 与 base64 两种格式
func TestParseKey(t *testing.T) {
	raw := make([]byte, 32)
	raw[0] = 0xab

	b, err := ParseKey("0x" + strings.Repeat("00", 31) + "ff")
	require.NoError(t, err)
	assert.Len(t, b, 32)
	assert.Equal(t, byte(0xff), b[31])

	b, err = ParseKey(base64.StdEncoding.EncodeToString(raw))
	require.NoError(t, err)
	assert.Equal(t, raw, b)

	b, err = ParseKey("")
	require.NoError(t, err)
	assert.Nil(t, b)

	_, err = ParseKey("abcd")
	assert.Error(t, err)
	_, err = ParseKey("not a key!")
	assert.Error(t, err)
}
