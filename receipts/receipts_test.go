package receipts

import (
	"testing"

	"github.com/ethereum/go-ethereum/core/types"
	gethtrie "github.com/ethereum/go-ethereum/trie"
	"github.com/stretchr/testify/require"

	"github.com/offchainlabs/crosslock/rlp"
	"github.com/offchainlabs/crosslock/util/testhelpers"
)

func randomLog(topics int) *types.Log {
	l := &types.Log{
		Address: testhelpers.RandomAddress(),
		Data:    testhelpers.RandomSlice(testhelpers.RandomUint64(0, 96)),
	}
	for i := 0; i < topics; i++ {
		l.Topics = append(l.Topics, testhelpers.RandomHash())
	}
	return l
}

func randomReceipt(typ uint8, logs int) *types.Receipt {
	r := &types.Receipt{
		Type:              typ,
		Status:            types.ReceiptStatusSuccessful,
		CumulativeGasUsed: testhelpers.RandomUint64(21000, 3_000_000),
	}
	for i := 0; i < logs; i++ {
		r.Logs = append(r.Logs, randomLog(int(testhelpers.RandomUint64(0, 4))))
	}
	r.Bloom = types.CreateBloom(types.Receipts{r})
	return r
}

func TestEncodeMatchesReferenceImplementation(t *testing.T) {
	for _, typ := range []uint8{types.LegacyTxType, types.AccessListTxType, types.DynamicFeeTxType} {
		for _, logs := range []int{0, 1, 3} {
			r := randomReceipt(typ, logs)
			ours, err := EncodeForTrie(r)
			require.NoError(t, err)
			reference, err := r.MarshalBinary()
			require.NoError(t, err)
			require.Equal(t, reference, ours, "type=%d logs=%d", typ, logs)
		}
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	r := randomReceipt(types.DynamicFeeTxType, 2)
	enc, err := EncodeForTrie(r)
	require.NoError(t, err)

	decoded, err := Decode(enc)
	require.NoError(t, err)
	require.Equal(t, r.Type, decoded.Type)
	require.Equal(t, r.Status, decoded.Status)
	require.Equal(t, r.CumulativeGasUsed, decoded.CumulativeGasUsed)
	require.Equal(t, r.Bloom, decoded.Bloom)
	require.Equal(t, len(r.Logs), len(decoded.Logs))
	for i, l := range r.Logs {
		require.Equal(t, l.Address, decoded.Logs[i].Address)
		require.Equal(t, l.Topics, decoded.Logs[i].Topics)
		require.Equal(t, l.Data, decoded.Logs[i].Data)
	}

	reencoded, err := EncodeForTrie(decoded)
	require.NoError(t, err)
	require.Equal(t, enc, reencoded)
}

func TestFailedStatusRoundTrip(t *testing.T) {
	r := randomReceipt(types.LegacyTxType, 0)
	r.Status = types.ReceiptStatusFailed
	enc, err := EncodeForTrie(r)
	require.NoError(t, err)
	reference, err := r.MarshalBinary()
	require.NoError(t, err)
	require.Equal(t, reference, enc)
}

func TestPreByzantiumRejected(t *testing.T) {
	r := randomReceipt(types.LegacyTxType, 0)
	r.PostState = testhelpers.RandomSlice(32)
	_, err := EncodeForTrie(r)
	require.ErrorIs(t, err, rlp.ErrCodec)
}

func TestRootMatchesReferenceImplementation(t *testing.T) {
	for _, n := range []int{1, 2, 7, 60, 200} {
		rs := make(types.Receipts, 0, n)
		for i := 0; i < n; i++ {
			typ := uint8(types.LegacyTxType)
			if i%3 == 1 {
				typ = types.DynamicFeeTxType
			}
			rs = append(rs, randomReceipt(typ, int(testhelpers.RandomUint64(0, 3))))
		}
		root, err := Root(rs)
		require.NoError(t, err)
		require.Equal(t, types.DeriveSha(rs, gethtrie.NewStackTrie(nil)), root, "n=%d", n)
	}
}

func TestProve(t *testing.T) {
	rs := make(types.Receipts, 0, 50)
	for i := 0; i < 50; i++ {
		rs = append(rs, randomReceipt(types.DynamicFeeTxType, 2))
	}
	root, proof, value, err := Prove(rs, 31)
	require.NoError(t, err)

	expected, err := EncodeForTrie(rs[31])
	require.NoError(t, err)
	require.Equal(t, expected, value)

	got, err := gethtrie.VerifyProof(root, TrieKey(31), proof)
	require.NoError(t, err)
	require.Equal(t, expected, got)
}

func TestTrieKeyStripsLeadingZeros(t *testing.T) {
	require.Equal(t, []byte{0x80}, TrieKey(0))
	require.Equal(t, []byte{0x7f}, TrieKey(127))
	require.Equal(t, []byte{0x81, 0x80}, TrieKey(128))
	require.Equal(t, []byte{0x82, 0x01, 0x00}, TrieKey(256))
}
