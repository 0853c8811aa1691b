// Copyright 2025-2026, Offchain Labs, Inc.
// For license information, see https://github.com/OffchainLabs/crosslock/blob/master/LICENSE.md

package swap

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Party is a local-ledger identity. The address is derived from the party's
// signing key and is what proof signatures are validated against.
type Party struct {
	Name    string
	Address common.Address
}

// StateRef points at an unspent output on the local ledger.
type StateRef struct {
	TxID  common.Hash
	Index uint32
}

// AssetState is a fungible or non-fungible holding on the local ledger.
type AssetState struct {
	AssetID common.Hash
	Owner   Party
	Amount  *big.Int
}

// LockState is the local output encapsulating the swap. It can be consumed by
// exactly one of {unlock, revert}; the ledger's UTXO model enforces this.
type LockState struct {
	SwapID              common.Hash
	OwnerParty          Party
	RecipientParty      Party
	Notary              Party
	ApprovedValidators  []common.Address
	SignaturesThreshold uint64
	// Unix seconds after which only the expiry revert path is open.
	Deadline uint64
	// Encoded event expectations for the two terminal directions.
	ClaimExpectation  []byte
	RevertExpectation []byte
}

// Output is one produced state of a local transaction: exactly one of the
// two fields is set.
type Output struct {
	Lock  *LockState  `rlp:"nil"`
	Asset *AssetState `rlp:"nil"`
}

// DraftTx is the unsigned local transaction that consumes the asset input and
// produces the lock state plus the asset output to the recipient. Its id is
// the swap id: the draft is derived deterministically from the intent.
type DraftTx struct {
	Inputs  []StateRef
	Outputs []Output
}

// LockOutput returns the single lock state output, failing when the draft
// does not carry exactly one lock and exactly one asset output.
func (tx *DraftTx) LockOutput() (*LockState, error) {
	var lock *LockState
	var assets int
	for _, out := range tx.Outputs {
		switch {
		case out.Lock != nil && out.Asset != nil:
			return nil, errors.New("output carries both a lock and an asset")
		case out.Lock != nil:
			if lock != nil {
				return nil, errors.New("more than one lock output")
			}
			lock = out.Lock
		case out.Asset != nil:
			assets++
		default:
			return nil, errors.New("empty output")
		}
	}
	if lock == nil {
		return nil, errors.New("no lock output")
	}
	if assets != 1 {
		return nil, fmt.Errorf("expected exactly one asset output, got %v", assets)
	}
	return lock, nil
}

// AssetOutput returns the single asset output.
func (tx *DraftTx) AssetOutput() (*AssetState, error) {
	if _, err := tx.LockOutput(); err != nil {
		return nil, err
	}
	for _, out := range tx.Outputs {
		if out.Asset != nil {
			return out.Asset, nil
		}
	}
	return nil, errors.New("no asset output")
}

func (tx *DraftTx) ID() common.Hash {
	for _, out := range tx.Outputs {
		if out.Lock != nil {
			return out.Lock.SwapID
		}
	}
	return common.Hash{}
}

// SignedDraft carries the owner's signature over the draft id. It is still
// unnotarized: only FinalizeTx consumes the inputs.
type SignedDraft struct {
	Tx       DraftTx
	OwnerSig []byte
}

func (sd *SignedDraft) ID() common.Hash {
	return sd.Tx.ID()
}

// BlockSignature is an oracle attestation over a block's receipts root.
type BlockSignature struct {
	BlockNumber uint64
	Sig         []byte
}

// NotarySignature is a notary attestation over the draft transaction in the
// fixed byte layout the remote contract verifies.
type NotarySignature struct {
	SwapID common.Hash
	PubKey []byte
	Sig    []byte
}

// UnlockData is the proof bundle submitted with the local unlock transaction.
// MerkleProof holds the witness nodes in path order, root first.
type UnlockData struct {
	MerkleProof   [][]byte
	Signatures    []BlockSignature
	ReceiptsRoot  common.Hash
	UnlockReceipt []byte
	BlockNumber   uint64
	TxIndex       uint64
}

// LockParams gathers the local-side choices made when drafting a swap.
type LockParams struct {
	OwnerParty     Party
	RecipientParty Party
	Notary         Party
	Validators     []common.Address
	Threshold      uint64
	Deadline       uint64
}
