// Copyright 2025-2026, Offchain Labs, Inc.
// For license information, see https://github.com/OffchainLabs/crosslock/blob/master/LICENSE.md

// Package trie implements the modified Merkle-Patricia trie committing the
// remote ledger's block receipts, along with inclusion proofs over it. The
// trie is insert-only and built fresh for each verification, so nodes are
// plain values with no backing database.
package trie

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/offchainlabs/crosslock/rlp"
)

// EmptyRoot is the root of a trie with no entries, keccak256(rlp("")).
var EmptyRoot = common.HexToHash("56e81f171bcc55a6ff8345e692c0f86e5b48e01b996cadc001622fb5e363b421")

type node interface{}

type (
	// fullNode holds sixteen nibble children plus a value slot.
	fullNode struct {
		Children [17]node
	}
	// shortNode is a leaf or an extension depending on whether its hex key
	// carries the terminator nibble.
	shortNode struct {
		Key []byte
		Val node
	}
	valueNode []byte
	// hashNode is a reference produced during decoding: a 32-byte hash of a
	// node that lives elsewhere in a proof.
	hashNode []byte
)

// Trie is an in-memory Merkle-Patricia trie.
type Trie struct {
	root node
}

func New() *Trie {
	return &Trie{}
}

// Update inserts a key/value pair. Inserting the same key twice replaces the
// value; the trie never deletes.
func (t *Trie) Update(key, value []byte) {
	k := keybytesToHex(key)
	t.root = t.insert(t.root, k, valueNode(value))
}

func (t *Trie) insert(n node, key []byte, value node) node {
	if len(key) == 0 {
		return value
	}
	switch n := n.(type) {
	case *shortNode:
		matchlen := prefixLen(key, n.Key)
		// If the whole key matches, keep this short node as is and only
		// update the subtrie below it.
		if matchlen == len(n.Key) {
			return &shortNode{n.Key, t.insert(n.Val, key[matchlen:], value)}
		}
		// Otherwise branch out at the index where they differ.
		branch := &fullNode{}
		branch.Children[n.Key[matchlen]] = t.insert(nil, n.Key[matchlen+1:], n.Val)
		branch.Children[key[matchlen]] = t.insert(nil, key[matchlen+1:], value)
		if matchlen == 0 {
			return branch
		}
		// The common prefix survives as an extension above the branch.
		return &shortNode{key[:matchlen], branch}
	case *fullNode:
		idx := key[0]
		n.Children[idx] = t.insert(n.Children[idx], key[1:], value)
		return n
	case nil:
		return &shortNode{key, value}
	case valueNode:
		return value
	default:
		panic("trie: unknown node type")
	}
}

// Hash computes the root hash. The root reference is always the keccak of
// its encoding, even when that encoding is shorter than 32 bytes.
func (t *Trie) Hash() common.Hash {
	if t.root == nil {
		return EmptyRoot
	}
	return common.BytesToHash(crypto.Keccak256(encodeNode(t.root)))
}

// encodeNode produces rlp(node).
func encodeNode(n node) []byte {
	switch n := n.(type) {
	case *shortNode:
		payload := rlp.EncodeBytes(hexToCompact(n.Key))
		if hasTerm(n.Key) {
			payload = append(payload, rlp.EncodeBytes(n.Val.(valueNode))...)
		} else {
			payload = append(payload, nodeRef(encodeNode(n.Val))...)
		}
		return rlp.AppendList(nil, payload)
	case *fullNode:
		var payload []byte
		for i := 0; i < 16; i++ {
			child := n.Children[i]
			if child == nil {
				payload = append(payload, rlp.EncodeBytes(nil)...)
				continue
			}
			payload = append(payload, nodeRef(encodeNode(child))...)
		}
		if v, ok := n.Children[16].(valueNode); ok {
			payload = append(payload, rlp.EncodeBytes(v)...)
		} else {
			payload = append(payload, rlp.EncodeBytes(nil)...)
		}
		return rlp.AppendList(nil, payload)
	case valueNode:
		return rlp.EncodeBytes(n)
	default:
		panic("trie: unknown node type")
	}
}

// nodeRef turns a node encoding into the reference its parent embeds: the
// keccak hash as a byte string when the encoding reaches 32 bytes, the raw
// encoding inline otherwise.
func nodeRef(encoded []byte) []byte {
	if len(encoded) >= 32 {
		return rlp.EncodeBytes(crypto.Keccak256(encoded))
	}
	return encoded
}
