// Copyright 2025-2026, Offchain Labs, Inc.
// For license information, see https://github.com/OffchainLabs/crosslock/blob/master/LICENSE.md

package remote

import (
	"context"
	"fmt"
	"math/big"
	"math/rand"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	gethtrie "github.com/ethereum/go-ethereum/trie"

	"github.com/offchainlabs/crosslock/proofs"
	"github.com/offchainlabs/crosslock/swap"
)

// commitRecord is the contract storage for one swap.
type commitRecord struct {
	owner     common.Address
	token     common.Address
	amount    *big.Int
	recipient common.Address
	threshold uint64
	signers   []common.Address
	consumed  bool
}

type simBlock struct {
	header   *types.Header
	receipts types.Receipts
}

// EventLocation points at the receipt carrying a swap's terminal event.
type EventLocation struct {
	BlockNumber uint64
	TxIndex     uint64
}

// SimulatedBackend is an in-process remote ledger running the protocol
// contract. A commit only records contract state; each claim or revert mines a
// block whose receipts root is derived by
// the reference implementation, with filler receipts around the interesting
// one so receipt tries have realistic shape.
type SimulatedBackend struct {
	mutex     sync.Mutex
	chainID   *big.Int
	binding   *ProtocolBinding
	commits   map[common.Hash]*commitRecord
	blocks    []*simBlock
	locations map[common.Hash]EventLocation
	corrupted map[uint64]bool
	rng       *rand.Rand
	txSeq     uint64
}

func NewSimulatedBackend(chainID *big.Int, protocol common.Address) *SimulatedBackend {
	b := &SimulatedBackend{
		chainID:   chainID,
		binding:   NewProtocolBinding(protocol),
		commits:   make(map[common.Hash]*commitRecord),
		locations: make(map[common.Hash]EventLocation),
		corrupted: make(map[uint64]bool),
		rng:       rand.New(rand.NewSource(chainID.Int64())),
	}
	genesis := &types.Header{
		Number:      big.NewInt(0),
		ReceiptHash: types.EmptyRootHash,
		Root:        types.EmptyRootHash,
		TxHash:      types.EmptyRootHash,
	}
	b.blocks = append(b.blocks, &simBlock{header: genesis})
	return b
}

func (b *SimulatedBackend) ChainID() *big.Int {
	return b.chainID
}

func (b *SimulatedBackend) Binding() *ProtocolBinding {
	return b.binding
}

// Session returns a Client whose transactions are sent from the given
// remote-ledger account.
func (b *SimulatedBackend) Session(from common.Address) Client {
	return &simSession{backend: b, from: from}
}

// EventLocation reports where a swap's terminal event landed.
func (b *SimulatedBackend) EventLocation(swapID common.Hash) (EventLocation, bool) {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	loc, ok := b.locations[swapID]
	return loc, ok
}

// CorruptBlockReceipts makes BlockReceipts return a receipt list inconsistent
// with the block's header, emulating a faulty provider.
func (b *SimulatedBackend) CorruptBlockReceipts(number uint64) {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	b.corrupted[number] = true
}

func (b *SimulatedBackend) randomAddressLocked() common.Address {
	var a common.Address
	b.rng.Read(a[:])
	return a
}

func (b *SimulatedBackend) randomHashLocked() common.Hash {
	var h common.Hash
	b.rng.Read(h[:])
	return h
}

func (b *SimulatedBackend) fillerReceiptLocked(cumulativeGas uint64) *types.Receipt {
	r := &types.Receipt{
		Type:              types.LegacyTxType,
		Status:            types.ReceiptStatusSuccessful,
		CumulativeGasUsed: cumulativeGas,
	}
	for i := 0; i < 1+b.rng.Intn(3); i++ {
		var data [40]byte
		b.rng.Read(data[:])
		r.Logs = append(r.Logs, &types.Log{
			Address: b.randomAddressLocked(),
			Topics:  []common.Hash{b.randomHashLocked()},
			Data:    data[:],
		})
	}
	r.Bloom = types.CreateBloom(types.Receipts{r})
	return r
}

// mineBlockLocked appends a block containing the event receipt among fillers
// and records where the event landed.
func (b *SimulatedBackend) mineBlockLocked(swapID common.Hash, eventReceipt *types.Receipt) {
	before := b.rng.Intn(4)
	after := b.rng.Intn(4)
	var rs types.Receipts
	cumulativeGas := uint64(0)
	for i := 0; i < before; i++ {
		cumulativeGas += 21_000 + uint64(b.rng.Intn(50_000))
		rs = append(rs, b.fillerReceiptLocked(cumulativeGas))
	}
	cumulativeGas += 60_000
	eventReceipt.CumulativeGasUsed = cumulativeGas
	eventReceipt.Bloom = types.CreateBloom(types.Receipts{eventReceipt})
	txIndex := uint64(len(rs))
	rs = append(rs, eventReceipt)
	for i := 0; i < after; i++ {
		cumulativeGas += 21_000 + uint64(b.rng.Intn(50_000))
		rs = append(rs, b.fillerReceiptLocked(cumulativeGas))
	}

	parent := b.blocks[len(b.blocks)-1].header
	number := uint64(len(b.blocks))
	header := &types.Header{
		ParentHash:  parent.Hash(),
		Number:      new(big.Int).SetUint64(number),
		Root:        b.randomHashLocked(),
		TxHash:      b.randomHashLocked(),
		ReceiptHash: types.DeriveSha(rs, gethtrie.NewStackTrie(nil)),
		GasUsed:     cumulativeGas,
	}
	b.blocks = append(b.blocks, &simBlock{header: header, receipts: rs})
	b.locations[swapID] = EventLocation{BlockNumber: number, TxIndex: txIndex}
}

func (b *SimulatedBackend) emitLocked(swapID common.Hash, rec *commitRecord, claim bool) error {
	if rec.consumed {
		return fmt.Errorf("swap %v already claimed or reverted", swapID)
	}
	from, to := rec.owner, rec.recipient
	if !claim {
		from, to = rec.recipient, rec.owner
	}
	event := protocolABI.Events["ClaimOrRevert"]
	data, err := event.Inputs.NonIndexed().Pack(from, to, rec.amount, big.NewInt(0), rec.token)
	if err != nil {
		return err
	}
	receipt := &types.Receipt{
		Type:   types.DynamicFeeTxType,
		Status: types.ReceiptStatusSuccessful,
		Logs: []*types.Log{{
			Address: b.binding.Address(),
			Topics:  []common.Hash{event.ID, swapID},
			Data:    data,
		}},
	}
	rec.consumed = true
	b.mineBlockLocked(swapID, receipt)
	return nil
}

type simSession struct {
	backend *SimulatedBackend
	from    common.Address
}

func (s *simSession) TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	return nil, fmt.Errorf("%w: receipt lookup by hash unsupported by the simulated backend", ErrRemote)
}

func (s *simSession) HeaderByNumber(ctx context.Context, number uint64) (*types.Header, error) {
	b := s.backend
	b.mutex.Lock()
	defer b.mutex.Unlock()
	if number >= uint64(len(b.blocks)) {
		return nil, fmt.Errorf("%w: no block %v", ErrRemote, number)
	}
	header := *b.blocks[number].header
	return &header, nil
}

func (s *simSession) BlockReceipts(ctx context.Context, number uint64) (types.Receipts, error) {
	b := s.backend
	b.mutex.Lock()
	defer b.mutex.Unlock()
	if number >= uint64(len(b.blocks)) {
		return nil, fmt.Errorf("%w: no block %v", ErrRemote, number)
	}
	rs := b.blocks[number].receipts
	out := make(types.Receipts, len(rs))
	copy(out, rs)
	if b.corrupted[number] && len(out) > 0 {
		bad := *out[0]
		bad.CumulativeGasUsed++
		out[0] = &bad
	}
	return out, nil
}

func (s *simSession) CallContract(ctx context.Context, to common.Address, data []byte) ([]byte, error) {
	b := s.backend
	if to != b.binding.Address() {
		return nil, fmt.Errorf("%w: no contract at %v", ErrRemote, to)
	}
	method, err := protocolABI.MethodById(data[:4])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRemote, err)
	}
	if method.Name != "committed" {
		return nil, fmt.Errorf("%w: %v is not a view function", ErrRemote, method.Name)
	}
	args, err := method.Inputs.Unpack(data[4:])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRemote, err)
	}
	swapID := common.Hash(args[0].([32]byte))
	b.mutex.Lock()
	rec, ok := b.commits[swapID]
	committed := ok && !rec.consumed
	b.mutex.Unlock()
	return method.Outputs.Pack(committed)
}

func (s *simSession) SendTransaction(ctx context.Context, to common.Address, data []byte, value *big.Int) (common.Hash, error) {
	b := s.backend
	if to != b.binding.Address() {
		return common.Hash{}, fmt.Errorf("%w: no contract at %v", ErrRemote, to)
	}
	if len(data) < 4 {
		return common.Hash{}, fmt.Errorf("%w: calldata too short", ErrRemote)
	}
	method, err := protocolABI.MethodById(data[:4])
	if err != nil {
		return common.Hash{}, fmt.Errorf("%w: %v", ErrRemote, err)
	}
	args, err := method.Inputs.Unpack(data[4:])
	if err != nil {
		return common.Hash{}, fmt.Errorf("%w: %v", ErrRemote, err)
	}

	b.mutex.Lock()
	defer b.mutex.Unlock()
	switch method.Name {
	case "commit":
		swapID := common.Hash(args[0].([32]byte))
		if _, ok := b.commits[swapID]; ok {
			return common.Hash{}, fmt.Errorf("%w: swap %v already committed", ErrRemote, swapID)
		}
		b.commits[swapID] = &commitRecord{
			owner:     s.from,
			token:     args[1].(common.Address),
			amount:    args[2].(*big.Int),
			recipient: args[3].(common.Address),
			threshold: args[4].(*big.Int).Uint64(),
			signers:   args[5].([]common.Address),
		}
	case "claim":
		swapID := common.Hash(args[0].([32]byte))
		rec, ok := b.commits[swapID]
		if !ok {
			return common.Hash{}, fmt.Errorf("%w: swap %v not committed", ErrRemote, swapID)
		}
		if err := b.emitLocked(swapID, rec, true); err != nil {
			return common.Hash{}, fmt.Errorf("%w: %v", ErrRemote, err)
		}
	case "revert":
		swapID := common.Hash(args[0].([32]byte))
		rec, ok := b.commits[swapID]
		if !ok {
			return common.Hash{}, fmt.Errorf("%w: swap %v not committed", ErrRemote, swapID)
		}
		if err := b.emitLocked(swapID, rec, false); err != nil {
			return common.Hash{}, fmt.Errorf("%w: %v", ErrRemote, err)
		}
	case "claimWithSignatures":
		swapID := common.Hash(args[0].([32]byte))
		rec, ok := b.commits[swapID]
		if !ok {
			return common.Hash{}, fmt.Errorf("%w: swap %v not committed", ErrRemote, swapID)
		}
		encoded := args[1].([][]byte)
		decoded := make([]swap.NotarySignature, 0, len(encoded))
		for _, enc := range encoded {
			ns, err := proofs.DecodeNotarySignature(enc)
			if err != nil {
				return common.Hash{}, fmt.Errorf("%w: %v", ErrRemote, err)
			}
			decoded = append(decoded, ns)
		}
		if err := proofs.VerifyNotarySignatures(decoded, swapID, rec.signers, rec.threshold); err != nil {
			return common.Hash{}, fmt.Errorf("%w: %v", ErrRemote, err)
		}
		if err := b.emitLocked(swapID, rec, true); err != nil {
			return common.Hash{}, fmt.Errorf("%w: %v", ErrRemote, err)
		}
	default:
		return common.Hash{}, fmt.Errorf("%w: unknown entry point %v", ErrRemote, method.Name)
	}

	b.txSeq++
	return crypto.Keccak256Hash(data, new(big.Int).SetUint64(b.txSeq).Bytes()), nil
}
