// Copyright 2025-2026, Offchain Labs, Inc.
// For license information, see https://github.com/OffchainLabs/crosslock/blob/master/LICENSE.md

// Package coordinator drives cross-ledger swaps through their lifecycle:
// Draft -> Sign -> (commit/claim observed remotely) -> proof collection ->
// local unlock or revert. Each swap is tracked by a finite state machine and
// its transitions are serialized per swap id; I/O against the two ledgers
// suspends on the caller's context.
package coordinator

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/log"
	"github.com/pkg/errors"

	"github.com/offchainlabs/crosslock/ledger"
	"github.com/offchainlabs/crosslock/proofs"
	"github.com/offchainlabs/crosslock/remote"
	"github.com/offchainlabs/crosslock/store"
	"github.com/offchainlabs/crosslock/swap"
	"github.com/offchainlabs/crosslock/util/containers"
	"github.com/offchainlabs/crosslock/util/retry"
	"github.com/offchainlabs/crosslock/util/stopwaiter"
)

// swapHandle is the tracked lifecycle of one swap. The mutex serializes all
// transitions for the swap; different swaps proceed independently.
type swapHandle struct {
	mutex    sync.Mutex
	fsm      *containers.Fsm[swapAction, State]
	intent   *swap.Intent
	deadline time.Time
}

// Coordinator is a long-lived service coordinating any number of concurrent
// swaps over shared ledger capabilities.
type Coordinator struct {
	stopwaiter.StopWaiter
	config     ConfigFetcher
	ledger     ledger.Ledger
	client     remote.Client
	binding    *remote.ProtocolBinding
	service    *store.Service
	assemblers map[proofs.Mode]proofs.Assembler
	swaps      containers.SyncMap[common.Hash, *swapHandle]
}

func New(
	config ConfigFetcher,
	localLedger ledger.Ledger,
	client remote.Client,
	binding *remote.ProtocolBinding,
	service *store.Service,
	assemblers ...proofs.Assembler,
) *Coordinator {
	byMode := make(map[proofs.Mode]proofs.Assembler, len(assemblers))
	for _, a := range assemblers {
		byMode[a.Mode()] = a
	}
	return &Coordinator{
		config:     config,
		ledger:     localLedger,
		client:     client,
		binding:    binding,
		service:    service,
		assemblers: byMode,
	}
}

func (c *Coordinator) Start(ctx context.Context) {
	c.StopWaiter.Start(ctx, c)
	c.CallIteratively(func(ctx context.Context) time.Duration {
		c.sweepExpired()
		return c.config().ExpirySweepInterval
	})
}

func (c *Coordinator) handle(swapID common.Hash) (*swapHandle, error) {
	h, ok := c.swaps.Load(swapID)
	if !ok {
		return nil, fmt.Errorf("unknown swap %v", swapID)
	}
	return h, nil
}

// SwapState reports where a swap currently is in its lifecycle.
func (c *Coordinator) SwapState(swapID common.Hash) (State, error) {
	h, err := c.handle(swapID)
	if err != nil {
		return 0, err
	}
	return h.fsm.Current().State, nil
}

// Draft derives the local draft transaction for an intent. The caller must
// own the referenced asset and the lock parameters must satisfy the threshold
// bound; the returned id is the swap id on both ledgers.
func (c *Coordinator) Draft(ctx context.Context, intent *swap.Intent, asset swap.StateRef, params swap.LockParams) (common.Hash, error) {
	swapID, err := intent.SwapID()
	if err != nil {
		return common.Hash{}, err
	}
	if params.Deadline == 0 {
		params.Deadline = uint64(time.Now().Add(c.config().SwapDeadline).Unix())
	}
	fsm, err := newSwapFsm(Idle)
	if err != nil {
		return common.Hash{}, err
	}
	h := &swapHandle{
		fsm:      fsm,
		intent:   intent,
		deadline: time.Unix(int64(params.Deadline), 0),
	}
	if _, loaded := c.swaps.LoadOrStore(swapID, h); loaded {
		return common.Hash{}, fmt.Errorf("swap %v already tracked", swapID)
	}
	h.mutex.Lock()
	defer h.mutex.Unlock()
	if _, err := c.ledger.BuildDraftSwapTx(ctx, intent, asset, params); err != nil {
		c.swaps.Delete(swapID)
		return common.Hash{}, errors.Wrap(err, "building draft swap tx")
	}
	if err := h.fsm.Do(actDraft{}); err != nil {
		return common.Hash{}, err
	}
	log.Info("swap drafted", "swap", swapID, "owner", params.OwnerParty.Name, "recipient", params.RecipientParty.Name, "threshold", params.Threshold)
	return swapID, nil
}

// Sign has the owner sign the draft and establishes the lock on the local
// ledger. The signed draft is persisted in the draft-tx service.
func (c *Coordinator) Sign(ctx context.Context, swapID common.Hash) error {
	h, err := c.handle(swapID)
	if err != nil {
		return err
	}
	h.mutex.Lock()
	defer h.mutex.Unlock()
	if state := h.fsm.Current().State; state != Drafted {
		return fmt.Errorf("%w: sign from state %v", containers.ErrFsmInvalidTransition, state)
	}
	signed, err := c.ledger.SignTx(ctx, swapID)
	if err != nil {
		return errors.Wrap(err, "signing draft")
	}
	if err := c.service.PutSignedDraft(ctx, signed); err != nil {
		return errors.Wrap(err, "persisting signed draft")
	}
	if err := c.ledger.FinalizeTx(ctx, &ledger.FinalTx{Draft: signed}); err != nil {
		return errors.Wrap(err, "establishing lock")
	}
	if err := h.fsm.Do(actSign{}); err != nil {
		return err
	}
	log.Info("draft signed and lock established", "swap", swapID)
	return nil
}

// WaitRemoteCommit polls the remote protocol contract until the counterpart's
// commitment for this swap is visible, then advances the machine.
func (c *Coordinator) WaitRemoteCommit(ctx context.Context, swapID common.Hash) error {
	h, err := c.handle(swapID)
	if err != nil {
		return err
	}
	calldata, err := c.binding.PackCommitted(swapID)
	if err != nil {
		return err
	}
	interval := c.config().CommitPollInterval
	_, err = retry.UntilSucceedsWithInterval(ctx, interval, func() (struct{}, error) {
		callCtx, cancel := c.rpcContext(ctx)
		defer cancel()
		output, err := c.client.CallContract(callCtx, c.binding.Address(), calldata)
		if err != nil {
			return struct{}{}, fmt.Errorf("%w: %v", remote.ErrRemote, err)
		}
		committed, err := c.binding.UnpackCommitted(output)
		if err != nil {
			return struct{}{}, err
		}
		if !committed {
			return struct{}{}, fmt.Errorf("swap %v not committed yet", swapID)
		}
		return struct{}{}, nil
	})
	if err != nil {
		return err
	}
	h.mutex.Lock()
	defer h.mutex.Unlock()
	return h.fsm.Do(actRemoteCommit{})
}

// Resume rebuilds tracking for a swap whose signed draft is already in the
// draft-tx service: the counterpart's node joining in, or this node after a
// restart or a cancelled task. The swap resumes in the Signed state.
func (c *Coordinator) Resume(ctx context.Context, intent *swap.Intent) (common.Hash, error) {
	swapID, err := intent.SwapID()
	if err != nil {
		return common.Hash{}, err
	}
	signed, err := c.service.SignedDraft(ctx, swapID)
	if err != nil {
		return common.Hash{}, err
	}
	lock, err := signed.Tx.LockOutput()
	if err != nil {
		return common.Hash{}, fmt.Errorf("%w: %v", swap.ErrMalformedSwap, err)
	}
	fsm, err := newSwapFsm(Signed)
	if err != nil {
		return common.Hash{}, err
	}
	h := &swapHandle{
		fsm:      fsm,
		intent:   intent,
		deadline: time.Unix(int64(lock.Deadline), 0),
	}
	if _, loaded := c.swaps.LoadOrStore(swapID, h); loaded {
		return swapID, nil
	}
	log.Info("swap resumed from draft-tx service", "swap", swapID)
	return swapID, nil
}

// NoteRemoteCommit records an externally observed commitment without polling.
func (c *Coordinator) NoteRemoteCommit(swapID common.Hash) error {
	h, err := c.handle(swapID)
	if err != nil {
		return err
	}
	h.mutex.Lock()
	defer h.mutex.Unlock()
	return h.fsm.Do(actRemoteCommit{})
}

// CollectProofs runs the chosen assembly strategy for the swap against the
// given remote block and advances the machine once the threshold is met.
func (c *Coordinator) CollectProofs(ctx context.Context, swapID common.Hash, blockNumber uint64, mode proofs.Mode) error {
	h, err := c.handle(swapID)
	if err != nil {
		return err
	}
	assembler, ok := c.assemblers[mode]
	if !ok {
		return fmt.Errorf("no assembler for mode %v", mode)
	}
	h.mutex.Lock()
	defer h.mutex.Unlock()
	switch state := h.fsm.Current().State; state {
	case Signed, RemoteCommitted, ProofCollected:
	case Expired:
		return fmt.Errorf("%w: swap %v", swap.ErrExpired, swapID)
	default:
		return fmt.Errorf("%w: collect proofs from state %v", containers.ErrFsmInvalidTransition, state)
	}
	signed, err := c.service.SignedDraft(ctx, swapID)
	if err != nil {
		return err
	}
	lock, err := signed.Tx.LockOutput()
	if err != nil {
		return fmt.Errorf("%w: %v", swap.ErrMalformedSwap, err)
	}

	req := proofs.Request{SwapID: swapID, BlockNumber: blockNumber, Threshold: lock.SignaturesThreshold}
	if mode == proofs.BlockSignatures {
		header, err := c.headerByNumber(ctx, blockNumber)
		if err != nil {
			return err
		}
		req.ReceiptsRoot = header.ReceiptHash
	}
	if err := assembler.Collect(ctx, req); err != nil {
		return errors.Wrap(err, "collecting proofs")
	}

	// The store may hold a partial set; only threshold satisfaction advances
	// the machine.
	switch mode {
	case proofs.BlockSignatures:
		sigs, err := c.service.BlockSignatures(ctx, swapID, blockNumber)
		if err != nil {
			return err
		}
		if err := proofs.VerifyBlockSignatures(sigs, req.ReceiptsRoot, blockNumber, lock.ApprovedValidators, lock.SignaturesThreshold); err != nil {
			return err
		}
	case proofs.NotarizationSignatures:
		sigs, err := c.service.NotarySignatures(ctx, swapID)
		if err != nil {
			return err
		}
		if err := proofs.VerifyNotarySignatures(sigs, swapID, lock.ApprovedValidators, lock.SignaturesThreshold); err != nil {
			return err
		}
	}
	if err := h.fsm.Do(actProofsCollected{}); err != nil {
		return err
	}
	log.Info("proofs collected", "swap", swapID, "mode", mode, "block", blockNumber)
	return nil
}

// CommitRemote submits the commitment transaction to the remote contract on
// behalf of the committing party's session.
func (c *Coordinator) CommitRemote(ctx context.Context, swapID common.Hash) (common.Hash, error) {
	h, err := c.handle(swapID)
	if err != nil {
		return common.Hash{}, err
	}
	in := h.intent
	calldata, err := c.binding.PackCommit(
		swapID,
		in.TokenAddress,
		in.Amount,
		in.Recipient,
		new(big.Int).SetUint64(in.SignaturesThreshold),
		in.Signers,
	)
	if err != nil {
		return common.Hash{}, err
	}
	return c.sendRemote(ctx, calldata)
}

// ClaimRemote submits the plain claim entry point.
func (c *Coordinator) ClaimRemote(ctx context.Context, swapID common.Hash) (common.Hash, error) {
	calldata, err := c.binding.PackClaim(swapID)
	if err != nil {
		return common.Hash{}, err
	}
	return c.sendRemote(ctx, calldata)
}

// RevertRemote submits the plain revert entry point.
func (c *Coordinator) RevertRemote(ctx context.Context, swapID common.Hash) (common.Hash, error) {
	calldata, err := c.binding.PackRevert(swapID)
	if err != nil {
		return common.Hash{}, err
	}
	return c.sendRemote(ctx, calldata)
}

// ClaimWithSignatures submits the collected notary attestations to the remote
// contract's claim_with_signatures entry point, which verifies them itself.
func (c *Coordinator) ClaimWithSignatures(ctx context.Context, swapID common.Hash) (common.Hash, error) {
	sigs, err := c.service.NotarySignatures(ctx, swapID)
	if err != nil {
		return common.Hash{}, err
	}
	if len(sigs) == 0 {
		return common.Hash{}, fmt.Errorf("%w: no notary signatures collected", proofs.ErrThreshold)
	}
	encoded := make([][]byte, 0, len(sigs))
	for _, sig := range sigs {
		enc, err := proofs.EncodeNotarySignature(sig)
		if err != nil {
			return common.Hash{}, err
		}
		encoded = append(encoded, enc)
	}
	calldata, err := c.binding.PackClaimWithSignatures(swapID, encoded)
	if err != nil {
		return common.Hash{}, err
	}
	return c.sendRemote(ctx, calldata)
}

func (c *Coordinator) sendRemote(ctx context.Context, calldata []byte) (common.Hash, error) {
	return retry.UntilSucceedsWithInterval(ctx, c.config().RetryInterval, func() (common.Hash, error) {
		callCtx, cancel := c.rpcContext(ctx)
		defer cancel()
		txHash, err := c.client.SendTransaction(callCtx, c.binding.Address(), calldata, nil)
		if err != nil {
			return common.Hash{}, fmt.Errorf("%w: %v", remote.ErrRemote, err)
		}
		return txHash, nil
	})
}

func (c *Coordinator) rpcContext(ctx context.Context) (context.Context, context.CancelFunc) {
	timeout := c.config().RPCTimeout
	if timeout == 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}

func (c *Coordinator) headerByNumber(ctx context.Context, blockNumber uint64) (*types.Header, error) {
	callCtx, cancel := c.rpcContext(ctx)
	defer cancel()
	header, err := c.client.HeaderByNumber(callCtx, blockNumber)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", remote.ErrRemote, err)
	}
	return header, nil
}

// sweepExpired moves swaps past their deadline into the Expired state.
func (c *Coordinator) sweepExpired() {
	now := time.Now()
	c.swaps.Range(func(swapID common.Hash, h *swapHandle) bool {
		h.mutex.Lock()
		defer h.mutex.Unlock()
		state := h.fsm.Current().State
		if state.Terminal() || state == Expired || state == Idle {
			return true
		}
		if now.After(h.deadline) {
			if err := h.fsm.Do(actTimeout{}); err == nil {
				log.Warn("swap expired", "swap", swapID, "deadline", h.deadline)
			}
		}
		return true
	})
}
