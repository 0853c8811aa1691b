// Copyright 2025-2026, Offchain Labs, Inc.
// For license information, see https://github.com/OffchainLabs/crosslock/blob/master/LICENSE.md

// Package rlp implements the canonical recursive-length-prefix encoding used
// by the remote ledger for receipts, trie nodes, and trie keys. Decoding is
// strict: any non-minimal or truncated input fails with ErrCodec.
package rlp

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math/big"
)

var ErrCodec = errors.New("rlp: malformed encoding")

const (
	singleByteMax   = 0x7f
	shortStringBase = 0x80
	longStringBase  = 0xb7
	shortListBase   = 0xc0
	longListBase    = 0xf7
	maxShortLen     = 55
)

// Kind distinguishes the two RLP value shapes.
type Kind byte

const (
	String Kind = iota
	List
)

// AppendUint64 appends the canonical encoding of x: minimal big-endian bytes
// with zero encoding as the empty string.
func AppendUint64(buf []byte, x uint64) []byte {
	if x == 0 {
		return append(buf, shortStringBase)
	}
	if x <= singleByteMax {
		return append(buf, byte(x))
	}
	return AppendBytes(buf, minimalBytes(x))
}

// AppendBytes appends the encoding of b as a byte string.
func AppendBytes(buf []byte, b []byte) []byte {
	if len(b) == 1 && b[0] <= singleByteMax {
		return append(buf, b[0])
	}
	buf = appendHead(buf, shortStringBase, longStringBase, uint64(len(b)))
	return append(buf, b...)
}

// AppendBigInt appends the encoding of a non-negative integer of up to 256
// bits. Negative values are rejected.
func AppendBigInt(buf []byte, x *big.Int) ([]byte, error) {
	if x == nil {
		return AppendUint64(buf, 0), nil
	}
	if x.Sign() < 0 {
		return nil, fmt.Errorf("%w: negative integer", ErrCodec)
	}
	if x.BitLen() <= 64 {
		return AppendUint64(buf, x.Uint64()), nil
	}
	return AppendBytes(buf, x.Bytes()), nil
}

// AppendList wraps an already-encoded payload with a list header.
func AppendList(buf []byte, payload []byte) []byte {
	buf = appendHead(buf, shortListBase, longListBase, uint64(len(payload)))
	return append(buf, payload...)
}

func EncodeUint64(x uint64) []byte {
	return AppendUint64(nil, x)
}

func EncodeBytes(b []byte) []byte {
	return AppendBytes(nil, b)
}

func EncodeBigInt(x *big.Int) ([]byte, error) {
	return AppendBigInt(nil, x)
}

// EncodeList concatenates the given already-encoded items and wraps them.
func EncodeList(items ...[]byte) []byte {
	var payload []byte
	for _, item := range items {
		payload = append(payload, item...)
	}
	return AppendList(nil, payload)
}

func appendHead(buf []byte, shortBase, longBase byte, size uint64) []byte {
	if size <= maxShortLen {
		return append(buf, shortBase+byte(size))
	}
	lenBytes := minimalBytes(size)
	buf = append(buf, longBase+byte(len(lenBytes)))
	return append(buf, lenBytes...)
}

func minimalBytes(x uint64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], x)
	i := 0
	for i < 7 && b[i] == 0 {
		i++
	}
	return b[i:]
}

// Split reads the first value from b and returns its kind, its content, and
// the remaining bytes after it.
func Split(b []byte) (Kind, []byte, []byte, error) {
	if len(b) == 0 {
		return String, nil, nil, fmt.Errorf("%w: empty input", ErrCodec)
	}
	first := b[0]
	switch {
	case first <= singleByteMax:
		return String, b[:1], b[1:], nil
	case first <= longStringBase:
		size := uint64(first - shortStringBase)
		content, rest, err := splitContent(b[1:], size)
		if err != nil {
			return String, nil, nil, err
		}
		if size == 1 && content[0] <= singleByteMax {
			return String, nil, nil, fmt.Errorf("%w: single byte below 0x80 must not have a header", ErrCodec)
		}
		return String, content, rest, nil
	case first < shortListBase:
		size, tail, err := splitLongSize(b[1:], first-longStringBase)
		if err != nil {
			return String, nil, nil, err
		}
		content, rest, err := splitContent(tail, size)
		if err != nil {
			return String, nil, nil, err
		}
		return String, content, rest, nil
	case first <= longListBase:
		size := uint64(first - shortListBase)
		content, rest, err := splitContent(b[1:], size)
		if err != nil {
			return List, nil, nil, err
		}
		return List, content, rest, nil
	default:
		size, tail, err := splitLongSize(b[1:], first-longListBase)
		if err != nil {
			return List, nil, nil, err
		}
		content, rest, err := splitContent(tail, size)
		if err != nil {
			return List, nil, nil, err
		}
		return List, content, rest, nil
	}
}

func splitLongSize(b []byte, lenOfLen byte) (uint64, []byte, error) {
	if uint64(len(b)) < uint64(lenOfLen) {
		return 0, nil, fmt.Errorf("%w: truncated length", ErrCodec)
	}
	if b[0] == 0 {
		return 0, nil, fmt.Errorf("%w: length has leading zero bytes", ErrCodec)
	}
	var size uint64
	for _, c := range b[:lenOfLen] {
		size = size<<8 | uint64(c)
	}
	if size <= maxShortLen {
		return 0, nil, fmt.Errorf("%w: non-minimal length encoding", ErrCodec)
	}
	return size, b[lenOfLen:], nil
}

func splitContent(b []byte, size uint64) ([]byte, []byte, error) {
	if uint64(len(b)) < size {
		return nil, nil, fmt.Errorf("%w: truncated value", ErrCodec)
	}
	return b[:size], b[size:], nil
}

// SplitString is Split restricted to byte strings.
func SplitString(b []byte) ([]byte, []byte, error) {
	kind, content, rest, err := Split(b)
	if err != nil {
		return nil, nil, err
	}
	if kind == List {
		return nil, nil, fmt.Errorf("%w: expected string, got list", ErrCodec)
	}
	return content, rest, nil
}

// SplitList is Split restricted to lists; it returns the list payload.
func SplitList(b []byte) ([]byte, []byte, error) {
	kind, content, rest, err := Split(b)
	if err != nil {
		return nil, nil, err
	}
	if kind != List {
		return nil, nil, fmt.Errorf("%w: expected list, got string", ErrCodec)
	}
	return content, rest, nil
}

// SplitUint64 decodes a canonically encoded integer of at most 64 bits.
func SplitUint64(b []byte) (uint64, []byte, error) {
	content, rest, err := SplitString(b)
	if err != nil {
		return 0, nil, err
	}
	switch {
	case len(content) == 0:
		return 0, rest, nil
	case len(content) > 8:
		return 0, nil, fmt.Errorf("%w: integer overflows uint64", ErrCodec)
	case content[0] == 0:
		return 0, nil, fmt.Errorf("%w: integer has leading zero bytes", ErrCodec)
	}
	var x uint64
	for _, c := range content {
		x = x<<8 | uint64(c)
	}
	return x, rest, nil
}

// SplitBigInt decodes a canonically encoded unbounded non-negative integer.
func SplitBigInt(b []byte) (*big.Int, []byte, error) {
	content, rest, err := SplitString(b)
	if err != nil {
		return nil, nil, err
	}
	if len(content) > 0 && content[0] == 0 {
		return nil, nil, fmt.Errorf("%w: integer has leading zero bytes", ErrCodec)
	}
	return new(big.Int).SetBytes(content), rest, nil
}

// CountValues counts the encoded values in a list payload.
func CountValues(b []byte) (int, error) {
	count := 0
	for len(b) > 0 {
		var err error
		_, _, b, err = Split(b)
		if err != nil {
			return 0, err
		}
		count++
	}
	return count, nil
}
