// Copyright 2025-2026, Offchain Labs, Inc.
// For license information, see https://github.com/OffchainLabs/crosslock/blob/master/LICENSE.md

package remote

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/rpc"
)

// RpcClient implements Client over a JSON-RPC connection to a remote-ledger
// node. Transactions are sent from the node's configured account via
// eth_sendTransaction.
type RpcClient struct {
	client *rpc.Client
	from   common.Address
}

func Dial(ctx context.Context, url string, from common.Address) (*RpcClient, error) {
	client, err := rpc.DialContext(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRemote, err)
	}
	return &RpcClient{client: client, from: from}, nil
}

func (c *RpcClient) Close() {
	c.client.Close()
}

func (c *RpcClient) TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	var receipt *types.Receipt
	err := c.client.CallContext(ctx, &receipt, "eth_getTransactionReceipt", txHash)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRemote, err)
	}
	if receipt == nil {
		return nil, fmt.Errorf("%w: no receipt for tx %v", ErrRemote, txHash)
	}
	return receipt, nil
}

func (c *RpcClient) HeaderByNumber(ctx context.Context, number uint64) (*types.Header, error) {
	var header *types.Header
	err := c.client.CallContext(ctx, &header, "eth_getBlockByNumber", hexutil.Uint64(number), false)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRemote, err)
	}
	if header == nil {
		return nil, fmt.Errorf("%w: no block %v", ErrRemote, number)
	}
	return header, nil
}

func (c *RpcClient) BlockReceipts(ctx context.Context, number uint64) (types.Receipts, error) {
	var rs types.Receipts
	err := c.client.CallContext(ctx, &rs, "eth_getBlockReceipts", hexutil.Uint64(number))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRemote, err)
	}
	return rs, nil
}

func (c *RpcClient) SendTransaction(ctx context.Context, to common.Address, data []byte, value *big.Int) (common.Hash, error) {
	arg := map[string]interface{}{
		"from": c.from,
		"to":   to,
		"data": hexutil.Bytes(data),
	}
	if value != nil {
		arg["value"] = (*hexutil.Big)(value)
	}
	var txHash common.Hash
	if err := c.client.CallContext(ctx, &txHash, "eth_sendTransaction", arg); err != nil {
		return common.Hash{}, fmt.Errorf("%w: %v", ErrRemote, err)
	}
	return txHash, nil
}

func (c *RpcClient) CallContract(ctx context.Context, to common.Address, data []byte) ([]byte, error) {
	arg := map[string]interface{}{
		"to":   to,
		"data": hexutil.Bytes(data),
	}
	var out hexutil.Bytes
	if err := c.client.CallContext(ctx, &out, "eth_call", arg, "latest"); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRemote, err)
	}
	return out, nil
}
