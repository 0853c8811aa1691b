// Copyright 2025-2026, Offchain Labs, Inc.
// For license information, see https://github.com/OffchainLabs/crosslock/blob/master/LICENSE.md

package coordinator

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"
	"github.com/pkg/errors"

	"github.com/offchainlabs/crosslock/ledger"
	"github.com/offchainlabs/crosslock/proofs"
	"github.com/offchainlabs/crosslock/receipts"
	"github.com/offchainlabs/crosslock/remote"
	"github.com/offchainlabs/crosslock/swap"
	"github.com/offchainlabs/crosslock/util/containers"
)

// Unlock consumes the lock towards the recipient, proving the remote claim
// event at (blockNumber, txIndex). The proof bundle is rebuilt from scratch:
// receipts are fetched, the trie is rebuilt, its root is asserted against the
// block header, and the witness is generated fresh.
func (c *Coordinator) Unlock(ctx context.Context, swapID common.Hash, blockNumber uint64, txIndex uint64) error {
	return c.consumeLock(ctx, swapID, blockNumber, txIndex, swap.Claim)
}

// Revert consumes the lock back to the owner. With a proven remote revert
// event it mirrors Unlock; after expiry it needs no proof at all.
func (c *Coordinator) Revert(ctx context.Context, swapID common.Hash, location *remote.EventLocation) error {
	h, err := c.handle(swapID)
	if err != nil {
		return err
	}
	if location != nil {
		return c.consumeLock(ctx, swapID, location.BlockNumber, location.TxIndex, swap.Revert)
	}

	// Owner recovery: only valid once the swap expired.
	h.mutex.Lock()
	defer h.mutex.Unlock()
	if state := h.fsm.Current().State; state != Expired {
		return fmt.Errorf("%w: proofless revert from state %v", containers.ErrFsmInvalidTransition, state)
	}
	err = c.ledger.FinalizeTx(ctx, &ledger.FinalTx{Unlock: &ledger.UnlockTx{
		SwapID:    swapID,
		Direction: swap.Revert,
	}})
	if err != nil {
		return errors.Wrap(err, "submitting expiry revert")
	}
	if err := h.fsm.Do(actRevert{}); err != nil {
		return err
	}
	log.Info("lock reverted after expiry", "swap", swapID)
	return nil
}

func (c *Coordinator) consumeLock(ctx context.Context, swapID common.Hash, blockNumber uint64, txIndex uint64, dir swap.Direction) error {
	h, err := c.handle(swapID)
	if err != nil {
		return err
	}
	h.mutex.Lock()
	defer h.mutex.Unlock()
	switch state := h.fsm.Current().State; state {
	case Signed, RemoteCommitted, ProofCollected:
	case Expired:
		if dir == swap.Claim {
			return fmt.Errorf("%w: swap %v", swap.ErrExpired, swapID)
		}
	default:
		return fmt.Errorf("%w: %v from state %v", containers.ErrFsmInvalidTransition, dir, state)
	}

	data, err := c.buildUnlockData(ctx, swapID, blockNumber, txIndex)
	if err != nil {
		return err
	}
	err = c.ledger.FinalizeTx(ctx, &ledger.FinalTx{Unlock: &ledger.UnlockTx{
		SwapID:    swapID,
		Direction: dir,
		Proof:     data,
	}})
	if err != nil {
		return errors.Wrapf(err, "submitting %v", dir)
	}

	action := swapAction(actUnlock{})
	if dir == swap.Revert {
		action = actRevert{}
	}
	if err := h.fsm.Do(action); err != nil {
		return err
	}
	log.Info("lock consumed", "swap", swapID, "direction", dir, "block", blockNumber, "txIndex", txIndex)
	return nil
}

// buildUnlockData assembles the proof bundle for one terminal transition.
// Must hold the swap's handle mutex.
func (c *Coordinator) buildUnlockData(ctx context.Context, swapID common.Hash, blockNumber uint64, txIndex uint64) (*swap.UnlockData, error) {
	// Load the signed draft and check its shape: exactly one lock output and
	// one asset output.
	signed, err := c.service.SignedDraft(ctx, swapID)
	if err != nil {
		return nil, err
	}
	lock, err := signed.Tx.LockOutput()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", swap.ErrMalformedSwap, err)
	}
	if _, err := signed.Tx.AssetOutput(); err != nil {
		return nil, fmt.Errorf("%w: %v", swap.ErrMalformedSwap, err)
	}

	// Signatures collected so far; the threshold gate runs before any remote
	// traffic is spent on the rest of the bundle.
	sigs, err := c.service.BlockSignatures(ctx, swapID, blockNumber)
	if err != nil {
		return nil, err
	}
	if have := uint64(len(sigs)); have < lock.SignaturesThreshold {
		return nil, fmt.Errorf("%w: have %v, need %v", proofs.ErrThreshold, have, lock.SignaturesThreshold)
	}

	// The header and the receipt list come from the remote provider.
	header, err := c.headerByNumber(ctx, blockNumber)
	if err != nil {
		return nil, err
	}
	callCtx, cancel := c.rpcContext(ctx)
	blockReceipts, err := c.client.BlockReceipts(callCtx, blockNumber)
	cancel()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", remote.ErrRemote, err)
	}

	// Rebuild the receipts trie and assert its root against the header
	// before trusting anything derived from the receipt list.
	tr, err := receipts.DeriveTrie(blockReceipts)
	if err != nil {
		return nil, err
	}
	root := tr.Hash()
	if root != header.ReceiptHash {
		return nil, fmt.Errorf("%w: computed %v, header commits %v", swap.ErrRootMismatch, root, header.ReceiptHash)
	}
	if txIndex >= uint64(len(blockReceipts)) {
		return nil, fmt.Errorf("%w: tx index %v beyond %v receipts", swap.ErrMalformedSwap, txIndex, len(blockReceipts))
	}
	proof, err := tr.Prove(receipts.TrieKey(txIndex))
	if err != nil {
		return nil, err
	}
	unlockReceipt, err := receipts.EncodeForTrie(blockReceipts[txIndex])
	if err != nil {
		return nil, err
	}

	// Signature validity against the exact root proven. The ledger verifies
	// again on submission; failing early keeps the lock untouched.
	if err := proofs.VerifyBlockSignatures(sigs, root, blockNumber, lock.ApprovedValidators, lock.SignaturesThreshold); err != nil {
		return nil, err
	}

	return &swap.UnlockData{
		MerkleProof:   proof.List(),
		Signatures:    sigs,
		ReceiptsRoot:  root,
		UnlockReceipt: unlockReceipt,
		BlockNumber:   blockNumber,
		TxIndex:       txIndex,
	}, nil
}
