// Copyright 2025-2026, Offchain Labs, Inc.
// For license information, see https://github.com/OffchainLabs/crosslock/blob/master/LICENSE.md

// Package store implements the draft-tx service: the per-process persistence
// for signed drafts and the signature sets collected for them. It is opened
// on node start, closed on shutdown, and passed to consumers as a capability.
package store

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethdb"
	"github.com/ethereum/go-ethereum/rlp"

	"github.com/offchainlabs/crosslock/swap"
)

var ErrNotFound = errors.New("store: not found")

// Key prefixes, one table per concern.
var (
	draftPrefix     = []byte("d")
	blockSigPrefix  = []byte("b")
	notarySigPrefix = []byte("n")
)

// Service is the draft-tx store over any ethdb backend: leveldb in production
// wiring, an in-memory database in tests.
type Service struct {
	// Guards read-modify-write appends to the signature tables.
	mutex sync.Mutex
	db    ethdb.Database
}

func New(db ethdb.Database) *Service {
	return &Service{db: db}
}

func (s *Service) Close() error {
	return s.db.Close()
}

func draftKey(swapID common.Hash) []byte {
	return append(append([]byte{}, draftPrefix...), swapID.Bytes()...)
}

func blockSigKey(swapID common.Hash, blockNumber uint64) []byte {
	key := append(append([]byte{}, blockSigPrefix...), swapID.Bytes()...)
	var be [8]byte
	binary.BigEndian.PutUint64(be[:], blockNumber)
	return append(key, be[:]...)
}

func notarySigKey(swapID common.Hash) []byte {
	return append(append([]byte{}, notarySigPrefix...), swapID.Bytes()...)
}

// PutSignedDraft stores a signed draft under its swap id.
func (s *Service) PutSignedDraft(_ context.Context, draft *swap.SignedDraft) error {
	enc, err := rlp.EncodeToBytes(draft)
	if err != nil {
		return fmt.Errorf("encoding signed draft: %w", err)
	}
	return s.db.Put(draftKey(draft.ID()), enc)
}

// SignedDraft loads a signed draft by swap id.
func (s *Service) SignedDraft(_ context.Context, swapID common.Hash) (*swap.SignedDraft, error) {
	key := draftKey(swapID)
	has, err := s.db.Has(key)
	if err != nil {
		return nil, err
	}
	if !has {
		return nil, fmt.Errorf("%w: draft %v", ErrNotFound, swapID)
	}
	data, err := s.db.Get(key)
	if err != nil {
		return nil, err
	}
	draft := new(swap.SignedDraft)
	if err := rlp.DecodeBytes(data, draft); err != nil {
		return nil, fmt.Errorf("decoding signed draft: %w", err)
	}
	return draft, nil
}

// AddBlockSignature appends an oracle signature for (swapID, blockNumber).
// Appends are additive; nothing is ever removed.
func (s *Service) AddBlockSignature(ctx context.Context, swapID common.Hash, sig swap.BlockSignature) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	existing, err := s.blockSignaturesLocked(swapID, sig.BlockNumber)
	if err != nil {
		return err
	}
	enc, err := rlp.EncodeToBytes(append(existing, sig))
	if err != nil {
		return fmt.Errorf("encoding block signatures: %w", err)
	}
	return s.db.Put(blockSigKey(swapID, sig.BlockNumber), enc)
}

// BlockSignatures returns the signatures collected so far; the set may be
// below threshold, callers gate progress on it.
func (s *Service) BlockSignatures(_ context.Context, swapID common.Hash, blockNumber uint64) ([]swap.BlockSignature, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.blockSignaturesLocked(swapID, blockNumber)
}

func (s *Service) blockSignaturesLocked(swapID common.Hash, blockNumber uint64) ([]swap.BlockSignature, error) {
	key := blockSigKey(swapID, blockNumber)
	has, err := s.db.Has(key)
	if err != nil {
		return nil, err
	}
	if !has {
		return nil, nil
	}
	data, err := s.db.Get(key)
	if err != nil {
		return nil, err
	}
	var sigs []swap.BlockSignature
	if err := rlp.DecodeBytes(data, &sigs); err != nil {
		return nil, fmt.Errorf("decoding block signatures: %w", err)
	}
	return sigs, nil
}

// AddNotarySignature appends a notary attestation for swapID.
func (s *Service) AddNotarySignature(ctx context.Context, swapID common.Hash, sig swap.NotarySignature) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	existing, err := s.notarySignaturesLocked(swapID)
	if err != nil {
		return err
	}
	enc, err := rlp.EncodeToBytes(append(existing, sig))
	if err != nil {
		return fmt.Errorf("encoding notary signatures: %w", err)
	}
	return s.db.Put(notarySigKey(swapID), enc)
}

func (s *Service) NotarySignatures(_ context.Context, swapID common.Hash) ([]swap.NotarySignature, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.notarySignaturesLocked(swapID)
}

func (s *Service) notarySignaturesLocked(swapID common.Hash) ([]swap.NotarySignature, error) {
	key := notarySigKey(swapID)
	has, err := s.db.Has(key)
	if err != nil {
		return nil, err
	}
	if !has {
		return nil, nil
	}
	data, err := s.db.Get(key)
	if err != nil {
		return nil, err
	}
	var sigs []swap.NotarySignature
	if err := rlp.DecodeBytes(data, &sigs); err != nil {
		return nil, fmt.Errorf("decoding notary signatures: %w", err)
	}
	return sigs, nil
}
