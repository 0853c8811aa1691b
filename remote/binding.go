// Copyright 2025-2026, Offchain Labs, Inc.
// For license information, see https://github.com/OffchainLabs/crosslock/blob/master/LICENSE.md

package remote

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// ABI of the swap protocol contract deployed on the remote ledger. The
// contract itself is external; only its entry points and event layout matter
// here.
const protocolABIJSON = `[
	{"type":"function","name":"commit","stateMutability":"nonpayable","inputs":[{"name":"swapId","type":"bytes32"},{"name":"token","type":"address"},{"name":"amount","type":"uint256"},{"name":"recipient","type":"address"},{"name":"threshold","type":"uint256"},{"name":"signers","type":"address[]"}],"outputs":[]},
	{"type":"function","name":"claim","stateMutability":"nonpayable","inputs":[{"name":"swapId","type":"bytes32"}],"outputs":[]},
	{"type":"function","name":"revert","stateMutability":"nonpayable","inputs":[{"name":"swapId","type":"bytes32"}],"outputs":[]},
	{"type":"function","name":"claimWithSignatures","stateMutability":"nonpayable","inputs":[{"name":"swapId","type":"bytes32"},{"name":"signatures","type":"bytes[]"}],"outputs":[]},
	{"type":"function","name":"committed","stateMutability":"view","inputs":[{"name":"swapId","type":"bytes32"}],"outputs":[{"name":"","type":"bool"}]},
	{"type":"event","name":"ClaimOrRevert","anonymous":false,"inputs":[{"name":"swapId","type":"bytes32","indexed":true},{"name":"from","type":"address","indexed":false},{"name":"to","type":"address","indexed":false},{"name":"amount","type":"uint256","indexed":false},{"name":"tokenId","type":"uint256","indexed":false},{"name":"token","type":"address","indexed":false}]}
]`

func mustParseABI(src string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(src))
	if err != nil {
		panic(err)
	}
	return parsed
}

var protocolABI = mustParseABI(protocolABIJSON)

// ClaimOrRevertEvent is the decoded protocol event.
type ClaimOrRevertEvent struct {
	SwapID  common.Hash
	From    common.Address
	To      common.Address
	Amount  *big.Int
	TokenID *big.Int
	Token   common.Address
}

// ProtocolBinding packs calldata for the protocol contract's entry points.
type ProtocolBinding struct {
	address common.Address
}

func NewProtocolBinding(address common.Address) *ProtocolBinding {
	return &ProtocolBinding{address: address}
}

func (b *ProtocolBinding) Address() common.Address {
	return b.address
}

// EventID is the ClaimOrRevert topic hash.
func EventID() common.Hash {
	return protocolABI.Events["ClaimOrRevert"].ID
}

func (b *ProtocolBinding) PackCommit(
	swapID common.Hash,
	token common.Address,
	amount *big.Int,
	recipient common.Address,
	threshold *big.Int,
	signers []common.Address,
) ([]byte, error) {
	return protocolABI.Pack("commit", swapID, token, amount, recipient, threshold, signers)
}

func (b *ProtocolBinding) PackClaim(swapID common.Hash) ([]byte, error) {
	return protocolABI.Pack("claim", swapID)
}

func (b *ProtocolBinding) PackRevert(swapID common.Hash) ([]byte, error) {
	return protocolABI.Pack("revert", swapID)
}

func (b *ProtocolBinding) PackClaimWithSignatures(swapID common.Hash, signatures [][]byte) ([]byte, error) {
	return protocolABI.Pack("claimWithSignatures", swapID, signatures)
}

func (b *ProtocolBinding) PackCommitted(swapID common.Hash) ([]byte, error) {
	return protocolABI.Pack("committed", swapID)
}

func (b *ProtocolBinding) UnpackCommitted(output []byte) (bool, error) {
	values, err := protocolABI.Unpack("committed", output)
	if err != nil {
		return false, err
	}
	committed, ok := values[0].(bool)
	if !ok {
		return false, fmt.Errorf("unexpected committed output %T", values[0])
	}
	return committed, nil
}

// ParseClaimOrRevert decodes a protocol log. The swap id is the single
// indexed parameter.
func (b *ProtocolBinding) ParseClaimOrRevert(log *types.Log) (*ClaimOrRevertEvent, error) {
	if log.Address != b.address {
		return nil, fmt.Errorf("log from %v, not the protocol contract %v", log.Address, b.address)
	}
	if len(log.Topics) != 2 || log.Topics[0] != EventID() {
		return nil, fmt.Errorf("log is not a ClaimOrRevert event")
	}
	values, err := protocolABI.Unpack("ClaimOrRevert", log.Data)
	if err != nil {
		return nil, err
	}
	ev := &ClaimOrRevertEvent{SwapID: log.Topics[1]}
	var ok bool
	if ev.From, ok = values[0].(common.Address); !ok {
		return nil, fmt.Errorf("unexpected from field %T", values[0])
	}
	if ev.To, ok = values[1].(common.Address); !ok {
		return nil, fmt.Errorf("unexpected to field %T", values[1])
	}
	if ev.Amount, ok = values[2].(*big.Int); !ok {
		return nil, fmt.Errorf("unexpected amount field %T", values[2])
	}
	if ev.TokenID, ok = values[3].(*big.Int); !ok {
		return nil, fmt.Errorf("unexpected tokenId field %T", values[3])
	}
	if ev.Token, ok = values[4].(common.Address); !ok {
		return nil, fmt.Errorf("unexpected token field %T", values[4])
	}
	return ev, nil
}
