// Copyright 2025-2026, Offchain Labs, Inc.
// For license information, see https://github.com/OffchainLabs/crosslock/blob/master/LICENSE.md

// Package swap holds the cross-ledger swap data model: the immutable intent
// two parties agree on, the swap id binding both ledgers to it, the expected
// remote event, and the local lock state and draft transaction shapes.
package swap

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

var ErrInvalidIntent = errors.New("swap: invalid intent")

// Intent is the immutable agreement between the two swapping parties. The
// swap id is a pure function of it, so identical intents collide by design.
type Intent struct {
	ChainID             *big.Int
	ProtocolAddress     common.Address
	Owner               common.Address
	Recipient           common.Address
	Amount              *big.Int
	TokenID             *big.Int
	TokenAddress        common.Address
	SignaturesThreshold uint64
	Signers             []common.Address
}

func mustNewType(t string) abi.Type {
	ty, err := abi.NewType(t, "", nil)
	if err != nil {
		panic(err)
	}
	return ty
}

// The commitment tuple layout shared with the remote protocol contract:
// (uint256 chainId, address owner, address recipient, uint256 amount,
// uint256 tokenId, address tokenAddress, uint256 threshold, address[] signers).
var commitmentArguments = abi.Arguments{
	{Name: "chainId", Type: mustNewType("uint256")},
	{Name: "owner", Type: mustNewType("address")},
	{Name: "recipient", Type: mustNewType("address")},
	{Name: "amount", Type: mustNewType("uint256")},
	{Name: "tokenId", Type: mustNewType("uint256")},
	{Name: "tokenAddress", Type: mustNewType("address")},
	{Name: "threshold", Type: mustNewType("uint256")},
	{Name: "signers", Type: mustNewType("address[]")},
}

func (in *Intent) Validate() error {
	if in.ChainID == nil || in.ChainID.Sign() <= 0 {
		return fmt.Errorf("%w: missing chain id", ErrInvalidIntent)
	}
	if in.Amount == nil || in.Amount.Sign() < 0 || in.Amount.BitLen() > 256 {
		return fmt.Errorf("%w: amount out of range", ErrInvalidIntent)
	}
	if in.TokenID == nil || in.TokenID.Sign() < 0 || in.TokenID.BitLen() > 256 {
		return fmt.Errorf("%w: token id out of range", ErrInvalidIntent)
	}
	if len(in.Signers) == 0 {
		return fmt.Errorf("%w: empty signer set", ErrInvalidIntent)
	}
	if in.SignaturesThreshold == 0 || in.SignaturesThreshold > uint64(len(in.Signers)) {
		return fmt.Errorf("%w: threshold %v outside 1..%v", ErrInvalidIntent, in.SignaturesThreshold, len(in.Signers))
	}
	return nil
}

// SwapID computes the 32-byte handle shared by both ledgers: the keccak-256
// of the ABI-encoded commitment tuple. The remote contract recomputes the
// same hash, so the encoding must match it bit for bit.
func (in *Intent) SwapID() (common.Hash, error) {
	if err := in.Validate(); err != nil {
		return common.Hash{}, err
	}
	packed, err := commitmentArguments.Pack(
		in.ChainID,
		in.Owner,
		in.Recipient,
		in.Amount,
		in.TokenID,
		in.TokenAddress,
		new(big.Int).SetUint64(in.SignaturesThreshold),
		in.Signers,
	)
	if err != nil {
		return common.Hash{}, fmt.Errorf("%w: %v", ErrInvalidIntent, err)
	}
	return crypto.Keccak256Hash(packed), nil
}
