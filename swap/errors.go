// Copyright 2025-2026, Offchain Labs, Inc.
// For license information, see https://github.com/OffchainLabs/crosslock/blob/master/LICENSE.md

package swap

import "errors"

var (
	// ErrMalformedSwap flags a local transaction that does not carry exactly
	// one lock output and one asset output. Fatal for the swap.
	ErrMalformedSwap = errors.New("swap: malformed swap transaction")

	// ErrRootMismatch flags receipts that do not reproduce the block header's
	// receipts root. Retryable against another provider.
	ErrRootMismatch = errors.New("swap: receipts root mismatch")

	// ErrExpired flags a swap past its deadline; only the revert path stays
	// open.
	ErrExpired = errors.New("swap: deadline passed")
)
