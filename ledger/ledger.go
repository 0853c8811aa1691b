// Copyright 2025-2026, Offchain Labs, Inc.
// For license information, see https://github.com/OffchainLabs/crosslock/blob/master/LICENSE.md

// Package ledger defines the local-ledger capability the coordinator drives:
// a UTXO-style transaction engine with a notary. The in-memory implementation
// in this package backs tests and the dev node; production deployments
// implement Ledger over their node's RPC surface.
package ledger

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/offchainlabs/crosslock/swap"
)

// UnlockTx is the terminal transaction consuming a lock state in one
// direction. Proof is nil only for the owner-recovery revert after expiry.
type UnlockTx struct {
	SwapID    common.Hash
	Direction swap.Direction
	Proof     *swap.UnlockData
}

// FinalTx is what gets notarized: either the signed draft (establishing the
// lock) or the unlock transaction (consuming it). Exactly one field is set.
type FinalTx struct {
	Draft  *swap.SignedDraft
	Unlock *UnlockTx
}

// Ledger is the local transaction engine capability.
type Ledger interface {
	// IssueAsset mints a holding for a party and returns its state ref.
	IssueAsset(ctx context.Context, owner swap.Party, amount *big.Int) (swap.StateRef, error)

	// BuildDraftSwapTx derives the draft transaction for an intent: it
	// consumes the asset input and produces the lock state plus the asset
	// output to the recipient party. The draft id is the swap id.
	BuildDraftSwapTx(ctx context.Context, intent *swap.Intent, asset swap.StateRef, params swap.LockParams) (*swap.DraftTx, error)

	// SignTx signs a previously built draft with the owner party's key.
	SignTx(ctx context.Context, txID common.Hash) (*swap.SignedDraft, error)

	// FinalizeTx validates, notarizes and commits a transaction. The UTXO
	// model guarantees each consumed state is spent at most once, so
	// resubmission is idempotent in effect: the second attempt fails without
	// double-spending.
	FinalizeTx(ctx context.Context, tx *FinalTx) error

	// VaultQuery lists the unspent assets a party currently owns.
	VaultQuery(ctx context.Context, party swap.Party) ([]*swap.AssetState, error)
}
