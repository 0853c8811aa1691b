// Copyright 2025-2026, Offchain Labs, Inc.
// For license information, see https://github.com/OffchainLabs/crosslock/blob/master/LICENSE.md

// Package receipts produces the remote ledger's canonical receipt encoding
// and derives the per-block receipts trie from it. The byte layout must match
// the remote ledger exactly: the receipts root committed in a block header is
// recomputed from these bytes during unlock verification.
package receipts

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/offchainlabs/crosslock/rlp"
	"github.com/offchainlabs/crosslock/trie"
)

const bloomLength = 256

// EncodeForTrie returns the consensus encoding of a receipt:
// rlp([status, cumulativeGasUsed, bloom, logs]), with the transaction type
// byte prepended for typed (EIP-2718) receipts. Post-Byzantium form only.
func EncodeForTrie(r *types.Receipt) ([]byte, error) {
	if len(r.PostState) > 0 {
		return nil, fmt.Errorf("%w: pre-byzantium receipt with post state root", rlp.ErrCodec)
	}
	var payload []byte
	payload = rlp.AppendUint64(payload, r.Status)
	payload = rlp.AppendUint64(payload, r.CumulativeGasUsed)
	payload = rlp.AppendBytes(payload, r.Bloom.Bytes())
	var logsPayload []byte
	for _, l := range r.Logs {
		logsPayload = append(logsPayload, encodeLog(l)...)
	}
	payload = rlp.AppendList(payload, logsPayload)
	enc := rlp.AppendList(nil, payload)
	if r.Type == types.LegacyTxType {
		return enc, nil
	}
	if r.Type > 0x7f {
		return nil, fmt.Errorf("%w: invalid receipt type %#x", rlp.ErrCodec, r.Type)
	}
	return append([]byte{r.Type}, enc...), nil
}

func encodeLog(l *types.Log) []byte {
	payload := rlp.EncodeBytes(l.Address.Bytes())
	var topics []byte
	for _, topic := range l.Topics {
		topics = append(topics, rlp.EncodeBytes(topic.Bytes())...)
	}
	payload = rlp.AppendList(payload, topics)
	payload = append(payload, rlp.EncodeBytes(l.Data)...)
	return rlp.AppendList(nil, payload)
}

// Decode parses a consensus-encoded receipt back into its structured form.
// Only the consensus fields are populated.
func Decode(data []byte) (*types.Receipt, error) {
	r := new(types.Receipt)
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty receipt", rlp.ErrCodec)
	}
	if data[0] <= 0x7f {
		r.Type = data[0]
		data = data[1:]
	}
	payload, rest, err := rlp.SplitList(data)
	if err != nil {
		return nil, err
	}
	if len(rest) != 0 {
		return nil, fmt.Errorf("%w: trailing bytes after receipt", rlp.ErrCodec)
	}
	if r.Status, payload, err = rlp.SplitUint64(payload); err != nil {
		return nil, err
	}
	if r.CumulativeGasUsed, payload, err = rlp.SplitUint64(payload); err != nil {
		return nil, err
	}
	bloom, payload, err := rlp.SplitString(payload)
	if err != nil {
		return nil, err
	}
	if len(bloom) != bloomLength {
		return nil, fmt.Errorf("%w: logs bloom of length %v", rlp.ErrCodec, len(bloom))
	}
	r.Bloom = types.BytesToBloom(bloom)
	logsPayload, rest, err := rlp.SplitList(payload)
	if err != nil {
		return nil, err
	}
	if len(rest) != 0 {
		return nil, fmt.Errorf("%w: trailing bytes after logs", rlp.ErrCodec)
	}
	for len(logsPayload) > 0 {
		var log *types.Log
		if log, logsPayload, err = decodeLog(logsPayload); err != nil {
			return nil, err
		}
		r.Logs = append(r.Logs, log)
	}
	return r, nil
}

func decodeLog(data []byte) (*types.Log, []byte, error) {
	payload, rest, err := rlp.SplitList(data)
	if err != nil {
		return nil, nil, err
	}
	addr, payload, err := rlp.SplitString(payload)
	if err != nil {
		return nil, nil, err
	}
	if len(addr) != common.AddressLength {
		return nil, nil, fmt.Errorf("%w: log address of length %v", rlp.ErrCodec, len(addr))
	}
	log := &types.Log{Address: common.BytesToAddress(addr)}
	topics, payload, err := rlp.SplitList(payload)
	if err != nil {
		return nil, nil, err
	}
	for len(topics) > 0 {
		var topic []byte
		if topic, topics, err = rlp.SplitString(topics); err != nil {
			return nil, nil, err
		}
		if len(topic) != common.HashLength {
			return nil, nil, fmt.Errorf("%w: log topic of length %v", rlp.ErrCodec, len(topic))
		}
		log.Topics = append(log.Topics, common.BytesToHash(topic))
	}
	if log.Data, _, err = rlp.SplitString(payload); err != nil {
		return nil, nil, err
	}
	return log, rest, nil
}

// TrieKey is the receipts trie key for a transaction index: the rlp encoding
// of its integer value, minimal big-endian with no leading zeros.
func TrieKey(txIndex uint64) []byte {
	return rlp.EncodeUint64(txIndex)
}

// DeriveTrie builds the receipts trie for a block's ordered receipt list.
func DeriveTrie(rs types.Receipts) (*trie.Trie, error) {
	tr := trie.New()
	for i, r := range rs {
		enc, err := EncodeForTrie(r)
		if err != nil {
			return nil, err
		}
		tr.Update(TrieKey(uint64(i)), enc)
	}
	return tr, nil
}

// Root computes the receipts root for a block's ordered receipt list.
func Root(rs types.Receipts) (common.Hash, error) {
	tr, err := DeriveTrie(rs)
	if err != nil {
		return common.Hash{}, err
	}
	return tr.Hash(), nil
}

// Prove builds the trie over rs and emits the inclusion witness for txIndex,
// returning the root, the witness, and the encoded receipt it commits to.
func Prove(rs types.Receipts, txIndex uint64) (common.Hash, *trie.ProofSet, []byte, error) {
	if txIndex >= uint64(len(rs)) {
		return common.Hash{}, nil, nil, fmt.Errorf("%w: tx index %v beyond %v receipts", trie.ErrProof, txIndex, len(rs))
	}
	tr, err := DeriveTrie(rs)
	if err != nil {
		return common.Hash{}, nil, nil, err
	}
	proof, err := tr.Prove(TrieKey(txIndex))
	if err != nil {
		return common.Hash{}, nil, nil, err
	}
	value, err := EncodeForTrie(rs[txIndex])
	if err != nil {
		return common.Hash{}, nil, nil, err
	}
	return tr.Hash(), proof, value, nil
}
