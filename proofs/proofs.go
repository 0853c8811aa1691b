// Copyright 2025-2026, Offchain Labs, Inc.
// For license information, see https://github.com/OffchainLabs/crosslock/blob/master/LICENSE.md

// Package proofs implements the two proof collection strategies that
// authorize consuming a lock state: oracle signatures over a remote block's
// receipts root, and notary signatures over the local draft transaction in a
// form the remote contract verifies. Both share the threshold invariant.
package proofs

import (
	"crypto/ecdsa"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/offchainlabs/crosslock/swap"
)

var ErrThreshold = errors.New("proofs: insufficient valid signatures")

// Mode selects the proof collection strategy for a swap.
type Mode uint8

const (
	_ Mode = iota
	BlockSignatures
	NotarizationSignatures
)

func (m Mode) String() string {
	switch m {
	case BlockSignatures:
		return "block_signatures"
	case NotarizationSignatures:
		return "notarization_signatures"
	default:
		return "invalid"
	}
}

// BlockDigest is the canonical block identifier oracles sign:
// keccak256(receiptsRoot || blockNumber as big-endian uint64).
func BlockDigest(receiptsRoot common.Hash, blockNumber uint64) common.Hash {
	var be [8]byte
	binary.BigEndian.PutUint64(be[:], blockNumber)
	return crypto.Keccak256Hash(receiptsRoot.Bytes(), be[:])
}

// SignBlock produces an oracle attestation with the given key.
func SignBlock(key *ecdsa.PrivateKey, receiptsRoot common.Hash, blockNumber uint64) (swap.BlockSignature, error) {
	sig, err := crypto.Sign(BlockDigest(receiptsRoot, blockNumber).Bytes(), key)
	if err != nil {
		return swap.BlockSignature{}, err
	}
	return swap.BlockSignature{BlockNumber: blockNumber, Sig: sig}, nil
}

// CountValidBlockSignatures recovers each signature against the exact
// receipts root claimed and counts distinct approved validators. Duplicate
// signers count once; signatures from unknown signers are ignored.
func CountValidBlockSignatures(
	sigs []swap.BlockSignature,
	receiptsRoot common.Hash,
	blockNumber uint64,
	approved []common.Address,
) uint64 {
	approvedSet := make(map[common.Address]bool, len(approved))
	for _, a := range approved {
		approvedSet[a] = true
	}
	digest := BlockDigest(receiptsRoot, blockNumber)
	seen := make(map[common.Address]bool)
	for _, s := range sigs {
		if s.BlockNumber != blockNumber {
			continue
		}
		pub, err := crypto.SigToPub(digest.Bytes(), s.Sig)
		if err != nil {
			continue
		}
		addr := crypto.PubkeyToAddress(*pub)
		if approvedSet[addr] && !seen[addr] {
			seen[addr] = true
		}
	}
	return uint64(len(seen))
}

// VerifyBlockSignatures enforces the threshold invariant over a signature
// set. Ordering is irrelevant.
func VerifyBlockSignatures(
	sigs []swap.BlockSignature,
	receiptsRoot common.Hash,
	blockNumber uint64,
	approved []common.Address,
	threshold uint64,
) error {
	have := CountValidBlockSignatures(sigs, receiptsRoot, blockNumber, approved)
	if have < threshold {
		return fmt.Errorf("%w: have %v, need %v", ErrThreshold, have, threshold)
	}
	return nil
}

// NotaryDigest is what a notary signs when attesting a draft transaction.
func NotaryDigest(swapID common.Hash) common.Hash {
	return crypto.Keccak256Hash(swapID.Bytes())
}

// SignNotarization produces a notary attestation with the given key.
func SignNotarization(key *ecdsa.PrivateKey, swapID common.Hash) (swap.NotarySignature, error) {
	sig, err := crypto.Sign(NotaryDigest(swapID).Bytes(), key)
	if err != nil {
		return swap.NotarySignature{}, err
	}
	return swap.NotarySignature{
		SwapID: swapID,
		PubKey: crypto.FromECDSAPub(&key.PublicKey)[1:],
		Sig:    sig,
	}, nil
}

const (
	notaryPubKeyLength = 64
	notarySigLength    = 65
	// swapID || pubkey || signature
	encodedNotarySigLength = common.HashLength + notaryPubKeyLength + notarySigLength
)

// EncodeNotarySignature renders the fixed byte layout the remote contract's
// claim_with_signatures entry point parses: swapID(32) || pubkey(64) || sig(65).
func EncodeNotarySignature(ns swap.NotarySignature) ([]byte, error) {
	if len(ns.PubKey) != notaryPubKeyLength {
		return nil, fmt.Errorf("notary pubkey of length %v", len(ns.PubKey))
	}
	if len(ns.Sig) != notarySigLength {
		return nil, fmt.Errorf("notary signature of length %v", len(ns.Sig))
	}
	out := make([]byte, 0, encodedNotarySigLength)
	out = append(out, ns.SwapID.Bytes()...)
	out = append(out, ns.PubKey...)
	out = append(out, ns.Sig...)
	return out, nil
}

// DecodeNotarySignature is the inverse of EncodeNotarySignature.
func DecodeNotarySignature(data []byte) (swap.NotarySignature, error) {
	if len(data) != encodedNotarySigLength {
		return swap.NotarySignature{}, fmt.Errorf("encoded notary signature of length %v", len(data))
	}
	return swap.NotarySignature{
		SwapID: common.BytesToHash(data[:common.HashLength]),
		PubKey: append([]byte{}, data[common.HashLength:common.HashLength+notaryPubKeyLength]...),
		Sig:    append([]byte{}, data[common.HashLength+notaryPubKeyLength:]...),
	}, nil
}

// NotarySignerAddress derives the remote-ledger address of the attesting key.
func NotarySignerAddress(ns swap.NotarySignature) (common.Address, error) {
	if len(ns.PubKey) != notaryPubKeyLength {
		return common.Address{}, fmt.Errorf("notary pubkey of length %v", len(ns.PubKey))
	}
	return common.BytesToAddress(crypto.Keccak256(ns.PubKey)[12:]), nil
}

// VerifyNotarySignatures counts distinct approved notaries with valid
// signatures over the swap id and enforces the threshold.
func VerifyNotarySignatures(
	sigs []swap.NotarySignature,
	swapID common.Hash,
	approved []common.Address,
	threshold uint64,
) error {
	approvedSet := make(map[common.Address]bool, len(approved))
	for _, a := range approved {
		approvedSet[a] = true
	}
	digest := NotaryDigest(swapID)
	seen := make(map[common.Address]bool)
	for _, s := range sigs {
		if s.SwapID != swapID || len(s.PubKey) != notaryPubKeyLength || len(s.Sig) != notarySigLength {
			continue
		}
		uncompressed := append([]byte{0x04}, s.PubKey...)
		if !crypto.VerifySignature(uncompressed, digest.Bytes(), s.Sig[:64]) {
			continue
		}
		addr, err := NotarySignerAddress(s)
		if err != nil {
			continue
		}
		if approvedSet[addr] && !seen[addr] {
			seen[addr] = true
		}
	}
	if have := uint64(len(seen)); have < threshold {
		return fmt.Errorf("%w: have %v, need %v", ErrThreshold, have, threshold)
	}
	return nil
}
