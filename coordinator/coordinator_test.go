package coordinator

import (
	"context"
	"crypto/ecdsa"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/rawdb"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"

	"github.com/offchainlabs/crosslock/ledger"
	"github.com/offchainlabs/crosslock/proofs"
	"github.com/offchainlabs/crosslock/remote"
	"github.com/offchainlabs/crosslock/store"
	"github.com/offchainlabs/crosslock/swap"
	"github.com/offchainlabs/crosslock/util/containers"
	"github.com/offchainlabs/crosslock/util/testhelpers"
)

var testConfig = Config{
	SwapDeadline:        time.Hour,
	RPCTimeout:          5 * time.Second,
	RetryInterval:       10 * time.Millisecond,
	ExpirySweepInterval: 10 * time.Millisecond,
	CommitPollInterval:  10 * time.Millisecond,
}

func testConfigFetcher() *Config {
	cfg := testConfig
	return &cfg
}

type testEnv struct {
	t       *testing.T
	ctx     context.Context
	led     *ledger.MemoryLedger
	backend *remote.SimulatedBackend
	svc     *store.Service
	coord   *Coordinator

	alice swap.Party
	bob   swap.Party

	signerKeys  []*ecdsa.PrivateKey
	signerAddrs []common.Address

	intent *swap.Intent
	params swap.LockParams
	asset  swap.StateRef
}

// newTestEnv wires a memory ledger, a simulated remote chain, and a draft-tx
// service. Bob owns the local asset; Alice commits the token remotely. The
// signer set has numSigners keys, of which the first numOracles act as live
// oracles (or notaries, in notary mode).
func newTestEnv(t *testing.T, threshold uint64, numSigners, numOracles int, notaryMode bool) *testEnv {
	t.Helper()
	ctx := context.Background()

	led, err := ledger.NewMemoryLedger()
	require.NoError(t, err)
	alice, err := led.CreateParty("alice")
	require.NoError(t, err)
	bob, err := led.CreateParty("bob")
	require.NoError(t, err)

	var keys []*ecdsa.PrivateKey
	var addrs []common.Address
	for i := 0; i < numSigners; i++ {
		key, err := crypto.GenerateKey()
		require.NoError(t, err)
		keys = append(keys, key)
		addrs = append(addrs, crypto.PubkeyToAddress(key.PublicKey))
	}

	protocol := testhelpers.RandomAddress()
	backend := remote.NewSimulatedBackend(big.NewInt(1337), protocol)
	svc := store.New(rawdb.NewMemoryDatabase())
	t.Cleanup(func() { _ = svc.Close() })

	intent := &swap.Intent{
		ChainID:             big.NewInt(1337),
		ProtocolAddress:     protocol,
		Owner:               testhelpers.RandomAddress(),
		Recipient:           testhelpers.RandomAddress(),
		Amount:              big.NewInt(5),
		TokenID:             big.NewInt(0),
		TokenAddress:        testhelpers.RandomAddress(),
		SignaturesThreshold: threshold,
		Signers:             addrs,
	}
	params := swap.LockParams{
		OwnerParty:     bob,
		RecipientParty: alice,
		Notary:         led.Notary(),
		Validators:     addrs,
		Threshold:      threshold,
	}

	var oracles []proofs.Oracle
	var notaries []proofs.Notary
	for i := 0; i < numOracles; i++ {
		if notaryMode {
			notaries = append(notaries, proofs.NewKeyedNotary(keys[i]))
		} else {
			oracles = append(oracles, proofs.NewKeyedOracle(keys[i]))
		}
	}

	coord := New(
		testConfigFetcher,
		led,
		backend.Session(intent.Owner),
		backend.Binding(),
		svc,
		proofs.NewBlockSigAssembler(svc, oracles),
		proofs.NewNotarySigAssembler(svc, notaries),
	)

	asset, err := led.IssueAsset(ctx, bob, big.NewInt(5))
	require.NoError(t, err)

	return &testEnv{
		t:           t,
		ctx:         ctx,
		led:         led,
		backend:     backend,
		svc:         svc,
		coord:       coord,
		alice:       alice,
		bob:         bob,
		signerKeys:  keys,
		signerAddrs: addrs,
		intent:      intent,
		params:      params,
		asset:       asset,
	}
}

func (env *testEnv) requireState(swapID common.Hash, want State) {
	env.t.Helper()
	state, err := env.coord.SwapState(swapID)
	require.NoError(env.t, err)
	require.Equal(env.t, want, state)
}

func (env *testEnv) vaultAssets(party swap.Party) []*swap.AssetState {
	env.t.Helper()
	held, err := env.led.VaultQuery(env.ctx, party)
	require.NoError(env.t, err)
	return held
}

// draftAndSign walks the swap to the Signed state.
func (env *testEnv) draftAndSign() common.Hash {
	env.t.Helper()
	swapID, err := env.coord.Draft(env.ctx, env.intent, env.asset, env.params)
	require.NoError(env.t, err)
	env.requireState(swapID, Drafted)
	require.NoError(env.t, env.coord.Sign(env.ctx, swapID))
	env.requireState(swapID, Signed)
	return swapID
}

// Bob claims via block signatures: commit, claim, collect, unlock. The asset
// moves to Alice and leaves Bob's vault.
func TestClaimViaBlockSignatures(t *testing.T) {
	env := newTestEnv(t, 2, 2, 2, false)
	swapID := env.draftAndSign()

	// The locked asset is in nobody's vault.
	require.Empty(t, env.vaultAssets(env.bob))
	require.Empty(t, env.vaultAssets(env.alice))

	_, err := env.coord.CommitRemote(env.ctx, swapID)
	require.NoError(t, err)
	require.NoError(t, env.coord.WaitRemoteCommit(env.ctx, swapID))
	env.requireState(swapID, RemoteCommitted)

	_, err = env.coord.ClaimRemote(env.ctx, swapID)
	require.NoError(t, err)
	loc, ok := env.backend.EventLocation(swapID)
	require.True(t, ok)

	require.NoError(t, env.coord.CollectProofs(env.ctx, swapID, loc.BlockNumber, proofs.BlockSignatures))
	env.requireState(swapID, ProofCollected)

	require.NoError(t, env.coord.Unlock(env.ctx, swapID, loc.BlockNumber, loc.TxIndex))
	env.requireState(swapID, Unlocked)

	require.Empty(t, env.vaultAssets(env.bob))
	held := env.vaultAssets(env.alice)
	require.Equal(t, 1, len(held))
	require.Equal(t, int64(5), held[0].Amount.Int64())

	// The lock is consumed exactly once: a second unlock cannot happen.
	err = env.coord.Unlock(env.ctx, swapID, loc.BlockNumber, loc.TxIndex)
	require.ErrorIs(t, err, containers.ErrFsmInvalidTransition)
}

// Alice drives collection and unlock from her own node after resuming the
// swap from the shared draft-tx service; the outcome is identical.
func TestUnlockDrivenByCounterpart(t *testing.T) {
	env := newTestEnv(t, 2, 2, 2, false)
	swapID := env.draftAndSign()

	var aliceOracles []proofs.Oracle
	for _, key := range env.signerKeys {
		aliceOracles = append(aliceOracles, proofs.NewKeyedOracle(key))
	}
	aliceCoord := New(
		testConfigFetcher,
		env.led,
		env.backend.Session(env.intent.Owner),
		env.backend.Binding(),
		env.svc,
		proofs.NewBlockSigAssembler(env.svc, aliceOracles),
	)
	resumedID, err := aliceCoord.Resume(env.ctx, env.intent)
	require.NoError(t, err)
	require.Equal(t, swapID, resumedID)

	_, err = aliceCoord.CommitRemote(env.ctx, swapID)
	require.NoError(t, err)
	require.NoError(t, aliceCoord.WaitRemoteCommit(env.ctx, swapID))
	_, err = aliceCoord.ClaimRemote(env.ctx, swapID)
	require.NoError(t, err)

	loc, ok := env.backend.EventLocation(swapID)
	require.True(t, ok)
	require.NoError(t, aliceCoord.CollectProofs(env.ctx, swapID, loc.BlockNumber, proofs.BlockSignatures))
	require.NoError(t, aliceCoord.Unlock(env.ctx, swapID, loc.BlockNumber, loc.TxIndex))

	held := env.vaultAssets(env.alice)
	require.Equal(t, 1, len(held))
}

// The notary-signatures path: the remote contract itself verifies the
// attestations handed to claim_with_signatures.
func TestClaimWithNotarySignatures(t *testing.T) {
	env := newTestEnv(t, 2, 2, 2, true)
	swapID := env.draftAndSign()

	_, err := env.coord.CommitRemote(env.ctx, swapID)
	require.NoError(t, err)
	require.NoError(t, env.coord.WaitRemoteCommit(env.ctx, swapID))

	require.NoError(t, env.coord.CollectProofs(env.ctx, swapID, 0, proofs.NotarizationSignatures))
	env.requireState(swapID, ProofCollected)

	_, err = env.coord.ClaimWithSignatures(env.ctx, swapID)
	require.NoError(t, err)

	// The remote claim went through and emitted the event.
	loc, ok := env.backend.EventLocation(swapID)
	require.True(t, ok)
	require.Greater(t, loc.BlockNumber, uint64(0))
}

// A forged or short signature set never reaches the ledger: with 1 of 2
// signatures the unlock fails with a threshold error and the lock survives,
// leaving the expiry revert open.
func TestInsufficientSignatures(t *testing.T) {
	env := newTestEnv(t, 2, 2, 1, false)
	env.params.Deadline = uint64(time.Now().Add(-2 * time.Second).Unix())
	swapID := env.draftAndSign()

	_, err := env.coord.CommitRemote(env.ctx, swapID)
	require.NoError(t, err)
	_, err = env.coord.ClaimRemote(env.ctx, swapID)
	require.NoError(t, err)
	loc, ok := env.backend.EventLocation(swapID)
	require.True(t, ok)

	err = env.coord.CollectProofs(env.ctx, swapID, loc.BlockNumber, proofs.BlockSignatures)
	require.ErrorIs(t, err, proofs.ErrThreshold)
	env.requireState(swapID, Signed)

	err = env.coord.Unlock(env.ctx, swapID, loc.BlockNumber, loc.TxIndex)
	require.ErrorIs(t, err, proofs.ErrThreshold)
	env.requireState(swapID, Signed)

	// Past the deadline the owner recovers the asset without any proof.
	env.coord.sweepExpired()
	env.requireState(swapID, Expired)

	err = env.coord.CollectProofs(env.ctx, swapID, loc.BlockNumber, proofs.BlockSignatures)
	require.ErrorIs(t, err, swap.ErrExpired)

	require.NoError(t, env.coord.Revert(env.ctx, swapID, nil))
	env.requireState(swapID, Reverted)

	held := env.vaultAssets(env.bob)
	require.Equal(t, 1, len(held))
	require.Equal(t, int64(5), held[0].Amount.Int64())
}

// A provider returning receipts inconsistent with the header is caught before
// anything is submitted locally; the swap state does not move.
func TestReceiptsRootMismatch(t *testing.T) {
	env := newTestEnv(t, 2, 2, 2, false)
	swapID := env.draftAndSign()

	_, err := env.coord.CommitRemote(env.ctx, swapID)
	require.NoError(t, err)
	_, err = env.coord.ClaimRemote(env.ctx, swapID)
	require.NoError(t, err)
	loc, ok := env.backend.EventLocation(swapID)
	require.True(t, ok)

	require.NoError(t, env.coord.CollectProofs(env.ctx, swapID, loc.BlockNumber, proofs.BlockSignatures))

	env.backend.CorruptBlockReceipts(loc.BlockNumber)
	err = env.coord.Unlock(env.ctx, swapID, loc.BlockNumber, loc.TxIndex)
	require.ErrorIs(t, err, swap.ErrRootMismatch)
	env.requireState(swapID, ProofCollected)
}

func TestTransitionGuards(t *testing.T) {
	env := newTestEnv(t, 1, 1, 1, false)

	// Nothing is tracked before Draft.
	err := env.coord.Sign(env.ctx, testhelpers.RandomHash())
	require.Error(t, err)

	swapID, err := env.coord.Draft(env.ctx, env.intent, env.asset, env.params)
	require.NoError(t, err)

	// Proof collection needs the signed draft.
	err = env.coord.CollectProofs(env.ctx, swapID, 1, proofs.BlockSignatures)
	require.ErrorIs(t, err, containers.ErrFsmInvalidTransition)

	// Unlock cannot run from Drafted either.
	err = env.coord.Unlock(env.ctx, swapID, 1, 0)
	require.ErrorIs(t, err, containers.ErrFsmInvalidTransition)

	// Drafting the same intent twice is rejected: the id collides.
	_, err = env.coord.Draft(env.ctx, env.intent, env.asset, env.params)
	require.Error(t, err)
}

func TestThresholdBoundAtDraft(t *testing.T) {
	env := newTestEnv(t, 1, 1, 1, false)
	env.params.Threshold = 2 // above the single validator
	_, err := env.coord.Draft(env.ctx, env.intent, env.asset, env.params)
	require.ErrorIs(t, err, swap.ErrMalformedSwap)
}
