package rlp

import (
	"bytes"
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncodeUint64(t *testing.T) {
	for _, tc := range []struct {
		x    uint64
		want []byte
	}{
		{0, []byte{0x80}},
		{1, []byte{0x01}},
		{127, []byte{0x7f}},
		{128, []byte{0x81, 0x80}},
		{256, []byte{0x82, 0x01, 0x00}},
		{1024, []byte{0x82, 0x04, 0x00}},
		{1<<64 - 1, []byte{0x88, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff}},
	} {
		require.Equal(t, tc.want, EncodeUint64(tc.x), "x=%d", tc.x)
	}
}

func TestEncodeBytes(t *testing.T) {
	require.Equal(t, []byte{0x80}, EncodeBytes(nil))
	require.Equal(t, []byte{0x00}, EncodeBytes([]byte{0x00}))
	require.Equal(t, []byte{0x7f}, EncodeBytes([]byte{0x7f}))
	require.Equal(t, []byte{0x81, 0x80}, EncodeBytes([]byte{0x80}))
	require.Equal(t, []byte{0x83, 'd', 'o', 'g'}, EncodeBytes([]byte("dog")))

	long := bytes.Repeat([]byte{0xaa}, 56)
	enc := EncodeBytes(long)
	require.Equal(t, byte(0xb8), enc[0])
	require.Equal(t, byte(56), enc[1])
	require.Equal(t, long, enc[2:])
}

func TestEncodeList(t *testing.T) {
	// [] -> 0xc0
	require.Equal(t, []byte{0xc0}, EncodeList())
	// ["cat", "dog"]
	enc := EncodeList(EncodeBytes([]byte("cat")), EncodeBytes([]byte("dog")))
	require.Equal(t, []byte{0xc8, 0x83, 'c', 'a', 't', 0x83, 'd', 'o', 'g'}, enc)
	// [ [], [[]], [ [], [[]] ] ]  -- the set-theoretic representation of three
	empty := EncodeList()
	one := EncodeList(empty)
	two := EncodeList(empty, one)
	three := EncodeList(empty, one, two)
	require.Equal(t, []byte{0xc7, 0xc0, 0xc1, 0xc0, 0xc3, 0xc0, 0xc1, 0xc0}, three)
}

func TestEncodeBigInt(t *testing.T) {
	enc, err := EncodeBigInt(big.NewInt(0))
	require.NoError(t, err)
	require.Equal(t, []byte{0x80}, enc)

	enc, err = EncodeBigInt(new(big.Int).Lsh(big.NewInt(1), 64))
	require.NoError(t, err)
	require.Equal(t, []byte{0x89, 0x01, 0, 0, 0, 0, 0, 0, 0, 0}, enc)

	_, err = EncodeBigInt(big.NewInt(-1))
	require.ErrorIs(t, err, ErrCodec)
}

func TestSplitRoundTrip(t *testing.T) {
	for _, x := range []uint64{0, 1, 127, 128, 255, 256, 1<<16 - 1, 1 << 32, 1<<64 - 1} {
		got, rest, err := SplitUint64(EncodeUint64(x))
		require.NoError(t, err, "x=%d", x)
		require.Empty(t, rest)
		require.Equal(t, x, got)
	}
	for _, b := range [][]byte{nil, {0x00}, {0x80}, []byte("dog"), bytes.Repeat([]byte{0x55}, 100)} {
		got, rest, err := SplitString(EncodeBytes(b))
		require.NoError(t, err)
		require.Empty(t, rest)
		require.Equal(t, append([]byte{}, b...), append([]byte{}, got...))
	}
}

func TestSplitNested(t *testing.T) {
	enc := EncodeList(
		EncodeUint64(7),
		EncodeList(EncodeBytes([]byte("cat")), EncodeBytes([]byte("dog"))),
		EncodeBytes([]byte{0xff}),
	)
	payload, rest, err := SplitList(enc)
	require.NoError(t, err)
	require.Empty(t, rest)

	n, err := CountValues(payload)
	require.NoError(t, err)
	require.Equal(t, 3, n)

	x, payload, err := SplitUint64(payload)
	require.NoError(t, err)
	require.Equal(t, uint64(7), x)

	inner, payload, err := SplitList(payload)
	require.NoError(t, err)
	cat, inner, err := SplitString(inner)
	require.NoError(t, err)
	require.Equal(t, []byte("cat"), cat)
	dog, inner, err := SplitString(inner)
	require.NoError(t, err)
	require.Equal(t, []byte("dog"), dog)
	require.Empty(t, inner)

	last, payload, err := SplitString(payload)
	require.NoError(t, err)
	require.Equal(t, []byte{0xff}, last)
	require.Empty(t, payload)
}

func TestSplitMalformed(t *testing.T) {
	for name, input := range map[string][]byte{
		"empty":                    {},
		"truncated short string":   {0x83, 'd', 'o'},
		"truncated long string":    {0xb8, 0x38, 0x00},
		"truncated length":         {0xb8},
		"non-minimal single byte":  {0x81, 0x7f},
		"non-minimal long length":  {0xb8, 0x02, 0x00, 0x00},
		"length with leading zero": {0xb9, 0x00, 0x38},
		"truncated list":           {0xc8, 0x83, 'c', 'a', 't'},
	} {
		_, _, _, err := Split(input)
		require.ErrorIs(t, err, ErrCodec, name)
	}

	// integer with leading zero bytes
	_, _, err := SplitUint64([]byte{0x82, 0x00, 0x01})
	require.ErrorIs(t, err, ErrCodec)
	// integer wider than 64 bits
	_, _, err = SplitUint64(append([]byte{0x89, 0x01}, bytes.Repeat([]byte{0}, 8)...))
	require.ErrorIs(t, err, ErrCodec)
	// list where a string is expected
	_, _, err = SplitString([]byte{0xc0})
	require.ErrorIs(t, err, ErrCodec)
	// string where a list is expected
	_, _, err = SplitList([]byte{0x80})
	require.ErrorIs(t, err, ErrCodec)
}
