package store

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/rawdb"
	"github.com/stretchr/testify/require"

	"github.com/offchainlabs/crosslock/swap"
	"github.com/offchainlabs/crosslock/util/testhelpers"
)

func testDraft() *swap.SignedDraft {
	owner := swap.Party{Name: "bob", Address: testhelpers.RandomAddress()}
	recipient := swap.Party{Name: "alice", Address: testhelpers.RandomAddress()}
	notary := swap.Party{Name: "notary", Address: testhelpers.RandomAddress()}
	lock := &swap.LockState{
		SwapID:              testhelpers.RandomHash(),
		OwnerParty:          owner,
		RecipientParty:      recipient,
		Notary:              notary,
		ApprovedValidators:  []common.Address{testhelpers.RandomAddress(), testhelpers.RandomAddress()},
		SignaturesThreshold: 2,
		Deadline:            1_900_000_000,
		ClaimExpectation:    testhelpers.RandomSlice(80),
		RevertExpectation:   testhelpers.RandomSlice(80),
	}
	return &swap.SignedDraft{
		Tx: swap.DraftTx{
			Inputs: []swap.StateRef{{TxID: testhelpers.RandomHash(), Index: 0}},
			Outputs: []swap.Output{
				{Lock: lock},
				{Asset: &swap.AssetState{
					AssetID: testhelpers.RandomHash(),
					Owner:   recipient,
					Amount:  big.NewInt(5),
				}},
			},
		},
		OwnerSig: testhelpers.RandomSlice(65),
	}
}

func TestSignedDraftRoundTrip(t *testing.T) {
	svc := New(rawdb.NewMemoryDatabase())
	defer func() { require.NoError(t, svc.Close()) }()
	ctx := context.Background()

	draft := testDraft()
	require.NoError(t, svc.PutSignedDraft(ctx, draft))

	got, err := svc.SignedDraft(ctx, draft.ID())
	require.NoError(t, err)
	require.Equal(t, draft, got)

	_, err = svc.SignedDraft(ctx, testhelpers.RandomHash())
	require.ErrorIs(t, err, ErrNotFound)
}

func TestBlockSignaturesAreAdditive(t *testing.T) {
	svc := New(rawdb.NewMemoryDatabase())
	ctx := context.Background()
	swapID := testhelpers.RandomHash()

	got, err := svc.BlockSignatures(ctx, swapID, 5)
	require.NoError(t, err)
	require.Empty(t, got)

	sig1 := swap.BlockSignature{BlockNumber: 5, Sig: testhelpers.RandomSlice(65)}
	sig2 := swap.BlockSignature{BlockNumber: 5, Sig: testhelpers.RandomSlice(65)}
	other := swap.BlockSignature{BlockNumber: 6, Sig: testhelpers.RandomSlice(65)}
	require.NoError(t, svc.AddBlockSignature(ctx, swapID, sig1))
	require.NoError(t, svc.AddBlockSignature(ctx, swapID, sig2))
	require.NoError(t, svc.AddBlockSignature(ctx, swapID, other))

	got, err = svc.BlockSignatures(ctx, swapID, 5)
	require.NoError(t, err)
	require.Equal(t, []swap.BlockSignature{sig1, sig2}, got)

	got, err = svc.BlockSignatures(ctx, swapID, 6)
	require.NoError(t, err)
	require.Equal(t, []swap.BlockSignature{other}, got)
}

func TestNotarySignaturesAreAdditive(t *testing.T) {
	svc := New(rawdb.NewMemoryDatabase())
	ctx := context.Background()
	swapID := testhelpers.RandomHash()

	sig1 := swap.NotarySignature{SwapID: swapID, PubKey: testhelpers.RandomSlice(64), Sig: testhelpers.RandomSlice(65)}
	sig2 := swap.NotarySignature{SwapID: swapID, PubKey: testhelpers.RandomSlice(64), Sig: testhelpers.RandomSlice(65)}
	require.NoError(t, svc.AddNotarySignature(ctx, swapID, sig1))
	require.NoError(t, svc.AddNotarySignature(ctx, swapID, sig2))

	got, err := svc.NotarySignatures(ctx, swapID)
	require.NoError(t, err)
	require.Equal(t, []swap.NotarySignature{sig1, sig2}, got)

	none, err := svc.NotarySignatures(ctx, testhelpers.RandomHash())
	require.NoError(t, err)
	require.Empty(t, none)
}
