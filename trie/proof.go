// Copyright 2025-2026, Offchain Labs, Inc.
// For license information, see https://github.com/OffchainLabs/crosslock/blob/master/LICENSE.md

package trie

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/offchainlabs/crosslock/rlp"
)

var ErrProof = errors.New("trie: proof verification failed")

// ProofSet is a self-contained witness: an ordered key-value store mapping a
// node's reference (its hash, or its inline encoding when shorter than 32
// bytes) to rlp(node) for every node on the path from root to leaf.
type ProofSet struct {
	order [][]byte
	nodes map[string][]byte
}

func NewProofSet() *ProofSet {
	return &ProofSet{nodes: make(map[string][]byte)}
}

func (ps *ProofSet) Put(key, value []byte) {
	if _, ok := ps.nodes[string(key)]; !ok {
		ps.order = append(ps.order, append([]byte{}, key...))
	}
	ps.nodes[string(key)] = append([]byte{}, value...)
}

// Has and Get satisfy ethdb.KeyValueReader so a ProofSet can be handed
// directly to external proof verifiers.
func (ps *ProofSet) Has(key []byte) (bool, error) {
	_, ok := ps.nodes[string(key)]
	return ok, nil
}

func (ps *ProofSet) Get(key []byte) ([]byte, error) {
	v, ok := ps.nodes[string(key)]
	if !ok {
		return nil, fmt.Errorf("%w: missing node %x", ErrProof, key)
	}
	return v, nil
}

// List returns the witness nodes in path order, root first.
func (ps *ProofSet) List() [][]byte {
	out := make([][]byte, 0, len(ps.order))
	for _, k := range ps.order {
		out = append(out, ps.nodes[string(k)])
	}
	return out
}

// FromNodes rebuilds a ProofSet from serialized witness nodes, re-keying each
// node by its reference.
func FromNodes(nodes [][]byte) *ProofSet {
	ps := NewProofSet()
	for _, enc := range nodes {
		if len(enc) >= 32 {
			ps.Put(crypto.Keccak256(enc), enc)
		} else {
			ps.Put(enc, enc)
		}
	}
	return ps
}

// Prove produces the witness for key. The trie must contain the key.
func (t *Trie) Prove(key []byte) (*ProofSet, error) {
	proof := NewProofSet()
	k := keybytesToHex(key)
	tn := t.root
	for {
		switch n := tn.(type) {
		case *shortNode:
			recordNode(proof, n)
			if len(k) < len(n.Key) || !bytes.Equal(n.Key, k[:len(n.Key)]) {
				return nil, fmt.Errorf("%w: key not present", ErrProof)
			}
			k = k[len(n.Key):]
			tn = n.Val
		case *fullNode:
			recordNode(proof, n)
			if len(k) == 0 {
				tn = n.Children[16]
			} else {
				tn = n.Children[k[0]]
				k = k[1:]
			}
		case valueNode:
			if len(k) != 0 {
				return nil, fmt.Errorf("%w: key not present", ErrProof)
			}
			return proof, nil
		case nil:
			return nil, fmt.Errorf("%w: key not present", ErrProof)
		default:
			panic("trie: unknown node type")
		}
	}
}

func recordNode(proof *ProofSet, n node) {
	enc := encodeNode(n)
	if len(enc) >= 32 {
		proof.Put(crypto.Keccak256(enc), enc)
	} else {
		proof.Put(enc, enc)
	}
}

// VerifyProof walks the witness from the root hash down to the value bound to
// key. It fails with ErrProof on a missing node, a reference mismatch, or a
// path that diverges from the key.
func VerifyProof(root common.Hash, key []byte, proof *ProofSet) ([]byte, error) {
	k := keybytesToHex(key)
	wantHash := root.Bytes()
	for {
		buf, err := proof.Get(wantHash)
		if err != nil {
			return nil, err
		}
		if !bytes.Equal(crypto.Keccak256(buf), wantHash) {
			return nil, fmt.Errorf("%w: reference mismatch at %x", ErrProof, wantHash)
		}
		n, err := decodeNode(buf)
		if err != nil {
			return nil, err
		}
		keyrest, cld := descend(n, k)
		switch cld := cld.(type) {
		case nil:
			return nil, fmt.Errorf("%w: path diverges from key", ErrProof)
		case hashNode:
			k = keyrest
			wantHash = cld
		case valueNode:
			if len(keyrest) != 0 {
				return nil, fmt.Errorf("%w: path diverges from key", ErrProof)
			}
			return cld, nil
		}
	}
}

// descend walks as far into a decoded node (and any nodes inlined within it)
// as the key allows, returning the remaining key and the reference or value
// it stopped at.
func descend(tn node, key []byte) ([]byte, node) {
	for {
		switch n := tn.(type) {
		case *shortNode:
			if len(key) < len(n.Key) || !bytes.Equal(n.Key, key[:len(n.Key)]) {
				return nil, nil
			}
			tn = n.Val
			key = key[len(n.Key):]
		case *fullNode:
			if len(key) == 0 {
				tn = n.Children[16]
			} else {
				tn = n.Children[key[0]]
				key = key[1:]
			}
		case hashNode:
			return key, n
		case valueNode:
			return key, n
		case nil:
			return key, nil
		default:
			panic("trie: unknown node type")
		}
	}
}

// decodeNode parses rlp(node) back into node form. Children referenced by
// hash become hashNode; children embedded inline are decoded recursively.
func decodeNode(buf []byte) (node, error) {
	payload, rest, err := rlp.SplitList(buf)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProof, err)
	}
	if len(rest) != 0 {
		return nil, fmt.Errorf("%w: trailing bytes after node", ErrProof)
	}
	count, err := rlp.CountValues(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProof, err)
	}
	switch count {
	case 2:
		return decodeShort(payload)
	case 17:
		return decodeFull(payload)
	default:
		return nil, fmt.Errorf("%w: invalid number of list elements: %v", ErrProof, count)
	}
}

func decodeShort(payload []byte) (node, error) {
	compact, rest, err := rlp.SplitString(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProof, err)
	}
	key := compactToHex(compact)
	if hasTerm(key) {
		val, _, err := rlp.SplitString(rest)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrProof, err)
		}
		return &shortNode{key, valueNode(val)}, nil
	}
	child, _, err := decodeRef(rest)
	if err != nil {
		return nil, err
	}
	return &shortNode{key, child}, nil
}

func decodeFull(payload []byte) (node, error) {
	n := &fullNode{}
	var err error
	for i := 0; i < 16; i++ {
		n.Children[i], payload, err = decodeRef(payload)
		if err != nil {
			return nil, err
		}
	}
	val, _, err := rlp.SplitString(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProof, err)
	}
	if len(val) > 0 {
		n.Children[16] = valueNode(val)
	}
	return n, nil
}

func decodeRef(buf []byte) (node, []byte, error) {
	kind, content, rest, err := rlp.Split(buf)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrProof, err)
	}
	switch {
	case kind == rlp.List:
		// Embedded child node, decoded in place.
		raw := buf[:len(buf)-len(rest)]
		if len(raw) >= 32 {
			return nil, nil, fmt.Errorf("%w: oversized embedded node", ErrProof)
		}
		child, err := decodeNode(raw)
		return child, rest, err
	case len(content) == 0:
		return nil, rest, nil
	case len(content) == 32:
		return hashNode(content), rest, nil
	default:
		return nil, nil, fmt.Errorf("%w: invalid node reference of length %v", ErrProof, len(content))
	}
}
