package remote

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/offchainlabs/crosslock/receipts"
	"github.com/offchainlabs/crosslock/swap"
	"github.com/offchainlabs/crosslock/util/testhelpers"
)

func TestEventIDMatchesCanonicalSignature(t *testing.T) {
	require.Equal(t, swap.EventTopic, EventID())
}

func commitIntent(t *testing.T, backend *SimulatedBackend, in *swap.Intent) {
	t.Helper()
	swapID, err := in.SwapID()
	require.NoError(t, err)
	calldata, err := backend.Binding().PackCommit(
		swapID,
		in.TokenAddress,
		in.Amount,
		in.Recipient,
		new(big.Int).SetUint64(in.SignaturesThreshold),
		in.Signers,
	)
	require.NoError(t, err)
	_, err = backend.Session(in.Owner).SendTransaction(context.Background(), in.ProtocolAddress, calldata, nil)
	require.NoError(t, err)
}

func simTestIntent(protocol common.Address) *swap.Intent {
	return &swap.Intent{
		ChainID:             big.NewInt(1337),
		ProtocolAddress:     protocol,
		Owner:               testhelpers.RandomAddress(),
		Recipient:           testhelpers.RandomAddress(),
		Amount:              big.NewInt(9),
		TokenID:             big.NewInt(0),
		TokenAddress:        testhelpers.RandomAddress(),
		SignaturesThreshold: 1,
		Signers:             []common.Address{testhelpers.RandomAddress()},
	}
}

// A claim mined by the simulated backend must produce exactly the log the
// lock state's event expectation demands.
func TestClaimEmitsExpectedEvent(t *testing.T) {
	protocol := testhelpers.RandomAddress()
	backend := NewSimulatedBackend(big.NewInt(1337), protocol)
	in := simTestIntent(protocol)
	swapID, err := in.SwapID()
	require.NoError(t, err)
	session := backend.Session(in.Owner)
	ctx := context.Background()

	commitIntent(t, backend, in)

	// The view function sees the commitment.
	calldata, err := backend.Binding().PackCommitted(swapID)
	require.NoError(t, err)
	output, err := session.CallContract(ctx, protocol, calldata)
	require.NoError(t, err)
	committed, err := backend.Binding().UnpackCommitted(output)
	require.NoError(t, err)
	require.True(t, committed)

	claimData, err := backend.Binding().PackClaim(swapID)
	require.NoError(t, err)
	_, err = session.SendTransaction(ctx, protocol, claimData, nil)
	require.NoError(t, err)

	loc, ok := backend.EventLocation(swapID)
	require.True(t, ok)

	rs, err := session.BlockReceipts(ctx, loc.BlockNumber)
	require.NoError(t, err)
	require.Greater(t, len(rs), int(loc.TxIndex))

	expectation, err := swap.NewEventTemplate(in, swap.Claim).Build(swapID)
	require.NoError(t, err)
	var matched bool
	for _, lg := range rs[loc.TxIndex].Logs {
		if expectation.Matches(lg) {
			matched = true
		}
	}
	require.True(t, matched)

	// The decoded event carries the intent's fields.
	ev, err := backend.Binding().ParseClaimOrRevert(rs[loc.TxIndex].Logs[0])
	require.NoError(t, err)
	require.Equal(t, swapID, ev.SwapID)
	require.Equal(t, in.Owner, ev.From)
	require.Equal(t, in.Recipient, ev.To)
	require.Equal(t, in.Amount, ev.Amount)
	require.Equal(t, in.TokenAddress, ev.Token)

	// Double consumption is rejected by the contract.
	_, err = session.SendTransaction(ctx, protocol, claimData, nil)
	require.ErrorIs(t, err, ErrRemote)
}

// The header's receipts root must be reproducible from the returned receipt
// list with this module's own trie, unless the backend is corrupted.
func TestBlockReceiptsConsistentWithHeader(t *testing.T) {
	protocol := testhelpers.RandomAddress()
	backend := NewSimulatedBackend(big.NewInt(7), protocol)
	in := simTestIntent(protocol)
	swapID, err := in.SwapID()
	require.NoError(t, err)
	session := backend.Session(in.Owner)
	ctx := context.Background()

	commitIntent(t, backend, in)
	revertData, err := backend.Binding().PackRevert(swapID)
	require.NoError(t, err)
	_, err = session.SendTransaction(ctx, protocol, revertData, nil)
	require.NoError(t, err)

	loc, ok := backend.EventLocation(swapID)
	require.True(t, ok)
	header, err := session.HeaderByNumber(ctx, loc.BlockNumber)
	require.NoError(t, err)
	rs, err := session.BlockReceipts(ctx, loc.BlockNumber)
	require.NoError(t, err)

	root, err := receipts.Root(rs)
	require.NoError(t, err)
	require.Equal(t, header.ReceiptHash, root)

	// The revert event matches the revert expectation, not the claim one.
	revertExpectation, err := swap.NewEventTemplate(in, swap.Revert).Build(swapID)
	require.NoError(t, err)
	require.True(t, revertExpectation.Matches(rs[loc.TxIndex].Logs[0]))

	backend.CorruptBlockReceipts(loc.BlockNumber)
	corrupted, err := session.BlockReceipts(ctx, loc.BlockNumber)
	require.NoError(t, err)
	corruptedRoot, err := receipts.Root(corrupted)
	require.NoError(t, err)
	require.NotEqual(t, header.ReceiptHash, corruptedRoot)
}

func TestCachingClientMemoizesHeaders(t *testing.T) {
	protocol := testhelpers.RandomAddress()
	backend := NewSimulatedBackend(big.NewInt(3), protocol)
	in := simTestIntent(protocol)
	session := backend.Session(in.Owner)
	caching, err := NewCachingClient(session)
	require.NoError(t, err)
	ctx := context.Background()

	commitIntent(t, backend, in)
	swapID, err := in.SwapID()
	require.NoError(t, err)
	claimData, err := backend.Binding().PackClaim(swapID)
	require.NoError(t, err)
	_, err = caching.SendTransaction(ctx, protocol, claimData, nil)
	require.NoError(t, err)
	loc, _ := backend.EventLocation(swapID)

	first, err := caching.HeaderByNumber(ctx, loc.BlockNumber)
	require.NoError(t, err)
	second, err := caching.HeaderByNumber(ctx, loc.BlockNumber)
	require.NoError(t, err)
	// Same cached pointer, not a fresh copy.
	require.Same(t, first, second)
}
