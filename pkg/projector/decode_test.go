package projector

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodeName(s string) uint64 {
	const charmap = ".12345abcdefghijklmnopqrstuvwxyz"
	idx := func(c byte) uint64 {
		for i := 0; i < len(charmap); i++ {
			if charmap[i] == c {
				return uint64(i)
			}
		}
		return 0
	}
	if len(s) > 13 {
		s = s[:13]
	}
	var v uint64
	for i := 0; i < 12; i++ {
		c := byte('.')
		if i < len(s) {
			c = s[i]
		}
		v |= idx(c) << (59 - uint64(5*i))
	}
	if len(s) == 13 {
		v |= idx(s[12]) & 0x0f
	}
	return v
}

func appendUint64(buf []byte, v uint64) []byte {
	var b [8]byte
	for i := 0; i < 8; i++ {
		b[i] = byte(v >> (8 * i))
	}
	return append(buf, b[:]...)
}

func appendUint32(buf []byte, v uint32) []byte {
	var b [4]byte
	for i := 0; i < 4; i++ {
		b[i] = byte(v >> (8 * i))
	}
	return append(buf, b[:]...)
}

func appendUint16(buf []byte, v uint16) []byte {
	return append(buf, byte(v), byte(v>>8))
}

func appendVaruint(buf []byte, v uint64) []byte {
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			b |= 0x80
		}
		buf = append(buf, b)
		if v == 0 {
			return buf
		}
	}
}

func appendName(buf []byte, n string) []byte {
	return appendUint64(buf, encodeName(n))
}

// authorityBytes encodes an Authority with the given keys and controlling
// accounts, matching decodeAuthority's expected wire shape.
func authorityBytes(keys []string, controlling []string) []byte {
	var buf []byte
	buf = appendUint32(buf, 1) // threshold
	buf = appendVaruint(buf, uint64(len(keys)))
	for range keys {
		buf = append(buf, 0) // key type byte
		buf = append(buf, make([]byte, 33)...)
		buf = appendUint16(buf, 1) // weight
	}
	buf = appendVaruint(buf, uint64(len(controlling)))
	for _, actor := range controlling {
		buf = appendName(buf, actor)
		buf = appendName(buf, "active")
		buf = appendUint16(buf, 1)
	}
	buf = appendVaruint(buf, 0) // waits
	return buf
}

func TestDecodeNewAccount(t *testing.T) {
	var data []byte
	data = appendName(data, "eosio")
	data = appendName(data, "alice")
	data = append(data, authorityBytes([]string{"K1"}, []string{"bob"})...)
	data = append(data, authorityBytes([]string{"K2"}, nil)...)

	na, err := DecodeNewAccount(data)
	require.NoError(t, err)
	assert.Equal(t, "eosio", na.Creator)
	assert.Equal(t, "alice", na.Name)
	require.Len(t, na.Owner.Keys, 1)
	require.Len(t, na.Owner.Accounts, 1)
	assert.Equal(t, "bob", na.Owner.Accounts[0].Permission.Actor)
	require.Len(t, na.Active.Keys, 1)
	assert.Empty(t, na.Active.Accounts)
}

func TestDecodeDeleteAuth(t *testing.T) {
	var data []byte
	data = appendName(data, "alice")
	data = appendName(data, "owner")

	da, err := DecodeDeleteAuth(data)
	require.NoError(t, err)
	assert.Equal(t, "alice", da.Account)
	assert.Equal(t, "owner", da.Permission)
}

func TestDecodeUpdateAuth(t *testing.T) {
	var data []byte
	data = appendName(data, "alice")
	data = appendName(data, "active")
	data = appendName(data, "owner")
	data = append(data, authorityBytes([]string{"K1"}, nil)...)

	ua, err := DecodeUpdateAuth(data)
	require.NoError(t, err)
	assert.Equal(t, "alice", ua.Account)
	assert.Equal(t, "active", ua.Permission)
	assert.Equal(t, "owner", ua.Parent)
	require.Len(t, ua.Auth.Keys, 1)
}

func TestDecodeSetAbi(t *testing.T) {
	abiPayload := []byte(`{"version":"eosio::abi/1.1"}`)
	var data []byte
	data = appendName(data, "eosio")
	data = appendVaruint(data, uint64(len(abiPayload)))
	data = append(data, abiPayload...)

	sa, err := DecodeSetAbi(data)
	require.NoError(t, err)
	assert.Equal(t, "eosio", sa.Account)
	assert.Equal(t, abiPayload, sa.Abi)
}

func TestDecodeNewAccount_TruncatedDataErrors(t *testing.T) {
	_, err := DecodeNewAccount([]byte{1, 2, 3})
	assert.Error(t, err)
}
