// Copyright 2025-2026, Offchain Labs, Inc.
// For license information, see https://github.com/OffchainLabs/crosslock/blob/master/LICENSE.md

package proofs

import (
	"context"
	"crypto/ecdsa"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/log"

	"github.com/offchainlabs/crosslock/swap"
)

// SignatureStore is the slice of the draft-tx service the assemblers need.
// Appends are additive; readers tolerate partial sets.
type SignatureStore interface {
	AddBlockSignature(ctx context.Context, swapID common.Hash, sig swap.BlockSignature) error
	BlockSignatures(ctx context.Context, swapID common.Hash, blockNumber uint64) ([]swap.BlockSignature, error)
	AddNotarySignature(ctx context.Context, swapID common.Hash, sig swap.NotarySignature) error
	NotarySignatures(ctx context.Context, swapID common.Hash) ([]swap.NotarySignature, error)
}

// Oracle is an external validator that attests remote blocks.
type Oracle interface {
	Address() common.Address
	SignBlock(ctx context.Context, receiptsRoot common.Hash, blockNumber uint64) (swap.BlockSignature, error)
}

// Notary attests local draft transactions for consumption by the remote
// contract.
type Notary interface {
	Address() common.Address
	NotarizeDraft(ctx context.Context, swapID common.Hash) (swap.NotarySignature, error)
}

// Request identifies what an assembler should collect proofs for.
type Request struct {
	SwapID       common.Hash
	ReceiptsRoot common.Hash
	BlockNumber  uint64
	Threshold    uint64
}

// Assembler is the shared face of the two collection strategies.
type Assembler interface {
	Mode() Mode
	Collect(ctx context.Context, req Request) error
}

// BlockSigAssembler gathers oracle attestations over a block's receipts root
// into the signature store. Oracles are queried concurrently; Collect returns
// once every oracle has answered, and a set still below the threshold is only
// logged, not reported as an error.
type BlockSigAssembler struct {
	store   SignatureStore
	oracles []Oracle
}

func NewBlockSigAssembler(store SignatureStore, oracles []Oracle) *BlockSigAssembler {
	return &BlockSigAssembler{store: store, oracles: oracles}
}

func (a *BlockSigAssembler) Mode() Mode {
	return BlockSignatures
}

func (a *BlockSigAssembler) Collect(ctx context.Context, req Request) error {
	var wg sync.WaitGroup
	for _, oracle := range a.oracles {
		oracle := oracle
		wg.Add(1)
		go func() {
			defer wg.Done()
			sig, err := oracle.SignBlock(ctx, req.ReceiptsRoot, req.BlockNumber)
			if err != nil {
				log.Warn("oracle declined to sign block", "oracle", oracle.Address(), "block", req.BlockNumber, "err", err)
				return
			}
			if err := a.store.AddBlockSignature(ctx, req.SwapID, sig); err != nil {
				log.Error("storing block signature", "swap", req.SwapID, "err", err)
			}
		}()
	}
	wg.Wait()
	sigs, err := a.store.BlockSignatures(ctx, req.SwapID, req.BlockNumber)
	if err != nil {
		return err
	}
	if have := uint64(len(sigs)); have < req.Threshold {
		log.Warn("block signature collection below threshold", "swap", req.SwapID, "have", have, "need", req.Threshold)
	}
	return ctx.Err()
}

// NotarySigAssembler gathers notary attestations over the draft transaction.
type NotarySigAssembler struct {
	store    SignatureStore
	notaries []Notary
}

func NewNotarySigAssembler(store SignatureStore, notaries []Notary) *NotarySigAssembler {
	return &NotarySigAssembler{store: store, notaries: notaries}
}

func (a *NotarySigAssembler) Mode() Mode {
	return NotarizationSignatures
}

func (a *NotarySigAssembler) Collect(ctx context.Context, req Request) error {
	var wg sync.WaitGroup
	for _, notary := range a.notaries {
		notary := notary
		wg.Add(1)
		go func() {
			defer wg.Done()
			sig, err := notary.NotarizeDraft(ctx, req.SwapID)
			if err != nil {
				log.Warn("notary declined to sign draft", "notary", notary.Address(), "swap", req.SwapID, "err", err)
				return
			}
			if err := a.store.AddNotarySignature(ctx, req.SwapID, sig); err != nil {
				log.Error("storing notary signature", "swap", req.SwapID, "err", err)
			}
		}()
	}
	wg.Wait()
	return ctx.Err()
}

// KeyedOracle is an in-process oracle signing with a private key. Deployments
// consuming external oracle services implement Oracle over their transport.
type KeyedOracle struct {
	key *ecdsa.PrivateKey
}

func NewKeyedOracle(key *ecdsa.PrivateKey) *KeyedOracle {
	return &KeyedOracle{key: key}
}

func (o *KeyedOracle) Address() common.Address {
	return crypto.PubkeyToAddress(o.key.PublicKey)
}

func (o *KeyedOracle) SignBlock(ctx context.Context, receiptsRoot common.Hash, blockNumber uint64) (swap.BlockSignature, error) {
	return SignBlock(o.key, receiptsRoot, blockNumber)
}

// KeyedNotary is an in-process notary signing with a private key.
type KeyedNotary struct {
	key *ecdsa.PrivateKey
}

func NewKeyedNotary(key *ecdsa.PrivateKey) *KeyedNotary {
	return &KeyedNotary{key: key}
}

func (n *KeyedNotary) Address() common.Address {
	return crypto.PubkeyToAddress(n.key.PublicKey)
}

func (n *KeyedNotary) NotarizeDraft(ctx context.Context, swapID common.Hash) (swap.NotarySignature, error) {
	return SignNotarization(n.key, swapID)
}
