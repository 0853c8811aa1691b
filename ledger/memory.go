// Copyright 2025-2026, Offchain Labs, Inc.
// For license information, see https://github.com/OffchainLabs/crosslock/blob/master/LICENSE.md

package ledger

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"encoding/binary"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/log"

	"github.com/offchainlabs/crosslock/proofs"
	"github.com/offchainlabs/crosslock/receipts"
	"github.com/offchainlabs/crosslock/swap"
	"github.com/offchainlabs/crosslock/trie"
)

// output is a ledger entry. Encumbered outputs belong to a pending swap and
// are invisible to vault queries until the lock is consumed.
type output struct {
	state      swap.Output
	encumbered bool
}

type partyRecord struct {
	party swap.Party
	key   *ecdsa.PrivateKey
}

// swapRefs locates the two outputs a finalized draft produced.
type swapRefs struct {
	lock  swap.StateRef
	asset swap.StateRef
}

// MemoryLedger is an in-process UTXO ledger with a single notary. It performs
// the full lock-consumption verification a production local ledger's contract
// would: threshold signatures, Merkle proof, and event expectation matching.
type MemoryLedger struct {
	mutex   sync.Mutex
	parties map[string]*partyRecord
	notary  partyRecord
	outputs map[swap.StateRef]*output
	drafts  map[common.Hash]*swap.DraftTx
	signed  map[common.Hash]*swap.SignedDraft
	bySwap  map[common.Hash]swapRefs
	seq     uint64
	now     func() time.Time
}

func NewMemoryLedger() (*MemoryLedger, error) {
	notaryKey, err := crypto.GenerateKey()
	if err != nil {
		return nil, err
	}
	return &MemoryLedger{
		parties: make(map[string]*partyRecord),
		notary: partyRecord{
			party: swap.Party{Name: "notary", Address: crypto.PubkeyToAddress(notaryKey.PublicKey)},
			key:   notaryKey,
		},
		outputs: make(map[swap.StateRef]*output),
		drafts:  make(map[common.Hash]*swap.DraftTx),
		signed:  make(map[common.Hash]*swap.SignedDraft),
		bySwap:  make(map[common.Hash]swapRefs),
		now:     time.Now,
	}, nil
}

// SetClock overrides the time source, for expiry tests.
func (l *MemoryLedger) SetClock(now func() time.Time) {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	l.now = now
}

// CreateParty registers a named party with a fresh signing key.
func (l *MemoryLedger) CreateParty(name string) (swap.Party, error) {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	if _, ok := l.parties[name]; ok {
		return swap.Party{}, fmt.Errorf("party %q already exists", name)
	}
	key, err := crypto.GenerateKey()
	if err != nil {
		return swap.Party{}, err
	}
	rec := &partyRecord{
		party: swap.Party{Name: name, Address: crypto.PubkeyToAddress(key.PublicKey)},
		key:   key,
	}
	l.parties[name] = rec
	return rec.party, nil
}

// Notary returns the ledger's notary identity.
func (l *MemoryLedger) Notary() swap.Party {
	return l.notary.party
}

// Address implements proofs.Notary.
func (l *MemoryLedger) Address() common.Address {
	return l.notary.party.Address
}

// NotarizeDraft implements proofs.Notary: the notary attests a signed draft
// in the form the remote contract verifies.
func (l *MemoryLedger) NotarizeDraft(ctx context.Context, swapID common.Hash) (swap.NotarySignature, error) {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	if _, ok := l.signed[swapID]; !ok {
		return swap.NotarySignature{}, fmt.Errorf("no signed draft for swap %v", swapID)
	}
	return proofs.SignNotarization(l.notary.key, swapID)
}

func (l *MemoryLedger) nextTxID(tag string) common.Hash {
	l.seq++
	var be [8]byte
	binary.BigEndian.PutUint64(be[:], l.seq)
	return crypto.Keccak256Hash([]byte(tag), be[:])
}

func (l *MemoryLedger) IssueAsset(ctx context.Context, owner swap.Party, amount *big.Int) (swap.StateRef, error) {
	if amount == nil || amount.Sign() <= 0 {
		return swap.StateRef{}, fmt.Errorf("asset amount must be positive")
	}
	l.mutex.Lock()
	defer l.mutex.Unlock()
	if _, ok := l.parties[owner.Name]; !ok {
		return swap.StateRef{}, fmt.Errorf("unknown party %q", owner.Name)
	}
	txID := l.nextTxID("issue")
	ref := swap.StateRef{TxID: txID, Index: 0}
	l.outputs[ref] = &output{state: swap.Output{Asset: &swap.AssetState{
		AssetID: crypto.Keccak256Hash(txID.Bytes()),
		Owner:   owner,
		Amount:  new(big.Int).Set(amount),
	}}}
	return ref, nil
}

func (l *MemoryLedger) BuildDraftSwapTx(ctx context.Context, intent *swap.Intent, asset swap.StateRef, params swap.LockParams) (*swap.DraftTx, error) {
	swapID, err := intent.SwapID()
	if err != nil {
		return nil, err
	}
	if params.Threshold == 0 || params.Threshold > uint64(len(params.Validators)) {
		return nil, fmt.Errorf("%w: threshold %v outside 1..%v", swap.ErrMalformedSwap, params.Threshold, len(params.Validators))
	}
	claimEv, err := swap.NewEventTemplate(intent, swap.Claim).Build(swapID)
	if err != nil {
		return nil, err
	}
	revertEv, err := swap.NewEventTemplate(intent, swap.Revert).Build(swapID)
	if err != nil {
		return nil, err
	}

	l.mutex.Lock()
	defer l.mutex.Unlock()
	out, ok := l.outputs[asset]
	if !ok || out.state.Asset == nil {
		return nil, fmt.Errorf("asset %v/%v not found or already spent", asset.TxID, asset.Index)
	}
	if out.encumbered {
		return nil, fmt.Errorf("asset %v/%v is encumbered by a pending swap", asset.TxID, asset.Index)
	}
	if out.state.Asset.Owner != params.OwnerParty {
		return nil, fmt.Errorf("asset is owned by %q, not %q", out.state.Asset.Owner.Name, params.OwnerParty.Name)
	}
	if out.state.Asset.Amount.Cmp(intent.Amount) < 0 {
		return nil, fmt.Errorf("asset amount %v below intent amount %v", out.state.Asset.Amount, intent.Amount)
	}
	if _, ok := l.drafts[swapID]; ok {
		return nil, fmt.Errorf("draft for swap %v already exists", swapID)
	}

	draft := &swap.DraftTx{
		Inputs: []swap.StateRef{asset},
		Outputs: []swap.Output{
			{Lock: &swap.LockState{
				SwapID:              swapID,
				OwnerParty:          params.OwnerParty,
				RecipientParty:      params.RecipientParty,
				Notary:              params.Notary,
				ApprovedValidators:  params.Validators,
				SignaturesThreshold: params.Threshold,
				Deadline:            params.Deadline,
				ClaimExpectation:    claimEv.Encode(),
				RevertExpectation:   revertEv.Encode(),
			}},
			{Asset: &swap.AssetState{
				AssetID: out.state.Asset.AssetID,
				Owner:   params.RecipientParty,
				Amount:  new(big.Int).Set(out.state.Asset.Amount),
			}},
		},
	}
	l.drafts[swapID] = draft
	return draft, nil
}

func (l *MemoryLedger) SignTx(ctx context.Context, txID common.Hash) (*swap.SignedDraft, error) {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	draft, ok := l.drafts[txID]
	if !ok {
		return nil, fmt.Errorf("no draft %v", txID)
	}
	lock, err := draft.LockOutput()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", swap.ErrMalformedSwap, err)
	}
	rec, ok := l.parties[lock.OwnerParty.Name]
	if !ok {
		return nil, fmt.Errorf("unknown owner party %q", lock.OwnerParty.Name)
	}
	sig, err := crypto.Sign(txID.Bytes(), rec.key)
	if err != nil {
		return nil, err
	}
	signed := &swap.SignedDraft{Tx: *draft, OwnerSig: sig}
	l.signed[txID] = signed
	return signed, nil
}

func (l *MemoryLedger) FinalizeTx(ctx context.Context, tx *FinalTx) error {
	switch {
	case tx.Draft != nil && tx.Unlock == nil:
		return l.finalizeDraft(tx.Draft)
	case tx.Unlock != nil && tx.Draft == nil:
		return l.finalizeUnlock(tx.Unlock)
	default:
		return fmt.Errorf("%w: transaction must be either a draft or an unlock", swap.ErrMalformedSwap)
	}
}

// finalizeDraft notarizes the signed draft: the asset input is consumed and
// the lock plus the encumbered asset output materialize on the ledger.
func (l *MemoryLedger) finalizeDraft(signed *swap.SignedDraft) error {
	lock, err := signed.Tx.LockOutput()
	if err != nil {
		return fmt.Errorf("%w: %v", swap.ErrMalformedSwap, err)
	}
	asset, err := signed.Tx.AssetOutput()
	if err != nil {
		return fmt.Errorf("%w: %v", swap.ErrMalformedSwap, err)
	}
	txID := signed.ID()
	pub, err := crypto.SigToPub(txID.Bytes(), signed.OwnerSig)
	if err != nil {
		return fmt.Errorf("recovering owner signature: %w", err)
	}
	if crypto.PubkeyToAddress(*pub) != lock.OwnerParty.Address {
		return fmt.Errorf("draft not signed by owner party %q", lock.OwnerParty.Name)
	}

	l.mutex.Lock()
	defer l.mutex.Unlock()
	for _, in := range signed.Tx.Inputs {
		existing, ok := l.outputs[in]
		if !ok {
			return fmt.Errorf("input %v/%v already spent", in.TxID, in.Index)
		}
		if existing.encumbered {
			return fmt.Errorf("input %v/%v is encumbered by a pending swap", in.TxID, in.Index)
		}
	}
	for _, in := range signed.Tx.Inputs {
		delete(l.outputs, in)
	}
	lockRef := swap.StateRef{TxID: txID, Index: 0}
	assetRef := swap.StateRef{TxID: txID, Index: 1}
	l.outputs[lockRef] = &output{state: swap.Output{Lock: lock}}
	l.outputs[assetRef] = &output{state: swap.Output{Asset: asset}, encumbered: true}
	l.bySwap[lock.SwapID] = swapRefs{lock: lockRef, asset: assetRef}
	log.Info("lock established on local ledger", "swap", lock.SwapID, "owner", lock.OwnerParty.Name, "recipient", lock.RecipientParty.Name)
	return nil
}

// finalizeUnlock consumes the lock in one terminal direction. This is the
// local contract's independent re-verification: it trusts nothing the
// coordinator assembled without checking it again.
func (l *MemoryLedger) finalizeUnlock(unlock *UnlockTx) error {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	refs, ok := l.bySwap[unlock.SwapID]
	if !ok {
		return fmt.Errorf("no lock for swap %v", unlock.SwapID)
	}
	lockOut, ok := l.outputs[refs.lock]
	if !ok || lockOut.state.Lock == nil {
		return fmt.Errorf("lock for swap %v already consumed", unlock.SwapID)
	}
	assetOut, ok := l.outputs[refs.asset]
	if !ok || assetOut.state.Asset == nil {
		return fmt.Errorf("encumbered asset for swap %v already consumed", unlock.SwapID)
	}
	lock := lockOut.state.Lock

	expired := lock.Deadline != 0 && uint64(l.now().Unix()) > lock.Deadline
	if unlock.Proof == nil {
		if unlock.Direction != swap.Revert {
			return fmt.Errorf("%w: proofless consumption is revert-only", swap.ErrMalformedSwap)
		}
		if !expired {
			return fmt.Errorf("proofless revert before deadline %v", lock.Deadline)
		}
	} else {
		if unlock.Direction == swap.Claim && expired {
			return fmt.Errorf("%w: claim after deadline %v", swap.ErrExpired, lock.Deadline)
		}
		if err := l.verifyProof(lock, unlock); err != nil {
			return err
		}
	}

	newOwner := lock.RecipientParty
	if unlock.Direction == swap.Revert {
		newOwner = lock.OwnerParty
	}
	delete(l.outputs, refs.lock)
	delete(l.outputs, refs.asset)
	txID := l.nextTxID("unlock")
	l.outputs[swap.StateRef{TxID: txID, Index: 0}] = &output{state: swap.Output{Asset: &swap.AssetState{
		AssetID: assetOut.state.Asset.AssetID,
		Owner:   newOwner,
		Amount:  new(big.Int).Set(assetOut.state.Asset.Amount),
	}}}
	log.Info("lock consumed", "swap", unlock.SwapID, "direction", unlock.Direction, "newOwner", newOwner.Name)
	return nil
}

func (l *MemoryLedger) verifyProof(lock *swap.LockState, unlock *UnlockTx) error {
	proof := unlock.Proof
	if err := proofs.VerifyBlockSignatures(
		proof.Signatures,
		proof.ReceiptsRoot,
		proof.BlockNumber,
		lock.ApprovedValidators,
		lock.SignaturesThreshold,
	); err != nil {
		return err
	}
	value, err := trie.VerifyProof(proof.ReceiptsRoot, receipts.TrieKey(proof.TxIndex), trie.FromNodes(proof.MerkleProof))
	if err != nil {
		return err
	}
	if !bytes.Equal(value, proof.UnlockReceipt) {
		return fmt.Errorf("%w: proven value differs from claimed receipt", trie.ErrProof)
	}
	receipt, err := receipts.Decode(proof.UnlockReceipt)
	if err != nil {
		return err
	}
	encodedExpectation := lock.ClaimExpectation
	if unlock.Direction == swap.Revert {
		encodedExpectation = lock.RevertExpectation
	}
	expectation, err := swap.DecodeExpectedEvent(encodedExpectation)
	if err != nil {
		return err
	}
	for _, lg := range receipt.Logs {
		if expectation.Matches(lg) {
			return nil
		}
	}
	return fmt.Errorf("%w: receipt carries no log matching the lock's %v expectation", trie.ErrProof, unlock.Direction)
}

func (l *MemoryLedger) VaultQuery(ctx context.Context, party swap.Party) ([]*swap.AssetState, error) {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	var held []*swap.AssetState
	for _, out := range l.outputs {
		if out.encumbered || out.state.Asset == nil {
			continue
		}
		if out.state.Asset.Owner == party {
			held = append(held, out.state.Asset)
		}
	}
	return held, nil
}
