// Copyright 2025-2026, Offchain Labs, Inc.
// For license information, see https://github.com/OffchainLabs/crosslock/blob/master/LICENSE.md

// Package remote defines the remote-ledger RPC capability the coordinator
// consumes, the protocol contract binding, and a simulated backend used by
// tests and the dev node.
package remote

import (
	"context"
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	lru "github.com/hashicorp/golang-lru/v2"
)

var ErrRemote = errors.New("remote: rpc failure")

// Client is the remote-ledger RPC capability. Implementations wrap an actual
// node connection; the simulated backend provides an in-process one.
type Client interface {
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
	HeaderByNumber(ctx context.Context, number uint64) (*types.Header, error)
	BlockReceipts(ctx context.Context, number uint64) (types.Receipts, error)
	SendTransaction(ctx context.Context, to common.Address, data []byte, value *big.Int) (common.Hash, error)
	CallContract(ctx context.Context, to common.Address, data []byte) ([]byte, error)
}

const headerCacheSize = 256

// CachingClient memoizes immutable header reads. Only finalized blocks are
// ever requested during unlock, so entries never need invalidation.
type CachingClient struct {
	inner   Client
	headers *lru.Cache[uint64, *types.Header]
}

func NewCachingClient(inner Client) (*CachingClient, error) {
	headers, err := lru.New[uint64, *types.Header](headerCacheSize)
	if err != nil {
		return nil, err
	}
	return &CachingClient{inner: inner, headers: headers}, nil
}

func (c *CachingClient) TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	return c.inner.TransactionReceipt(ctx, txHash)
}

func (c *CachingClient) HeaderByNumber(ctx context.Context, number uint64) (*types.Header, error) {
	if header, ok := c.headers.Get(number); ok {
		return header, nil
	}
	header, err := c.inner.HeaderByNumber(ctx, number)
	if err != nil {
		return nil, err
	}
	c.headers.Add(number, header)
	return header, nil
}

func (c *CachingClient) BlockReceipts(ctx context.Context, number uint64) (types.Receipts, error) {
	return c.inner.BlockReceipts(ctx, number)
}

func (c *CachingClient) SendTransaction(ctx context.Context, to common.Address, data []byte, value *big.Int) (common.Hash, error) {
	return c.inner.SendTransaction(ctx, to, data, value)
}

func (c *CachingClient) CallContract(ctx context.Context, to common.Address, data []byte) ([]byte, error) {
	return c.inner.CallContract(ctx, to, data)
}
