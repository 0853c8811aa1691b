// Copyright 2025-2026, Offchain Labs, Inc.
// For license information, see https://github.com/OffchainLabs/crosslock/blob/master/LICENSE.md

package coordinator

import (
	"github.com/offchainlabs/crosslock/util/containers"
)

func newSwapFsm(startState State, fsmOpts ...containers.Opt[swapAction, State]) (*containers.Fsm[swapAction, State], error) {
	transitions := []*containers.FsmEvent[swapAction, State]{
		{
			Typ:  actDraft{},
			From: []State{Idle},
			To:   Drafted,
		},
		{
			Typ:  actSign{},
			From: []State{Drafted},
			To:   Signed,
		},
		{
			// Observed externally on the remote ledger.
			Typ:  actRemoteCommit{},
			From: []State{Signed},
			To:   RemoteCommitted,
		},
		{
			// Collection may be re-run against fresh blocks after a failed
			// unlock attempt.
			Typ:  actProofsCollected{},
			From: []State{Signed, RemoteCommitted, ProofCollected},
			To:   ProofCollected,
		},
		{
			// Unlock re-validates the threshold itself, so an attempt before
			// proofs were recorded fails on signatures, not on ordering.
			Typ:  actUnlock{},
			From: []State{Signed, RemoteCommitted, ProofCollected},
			To:   Unlocked,
		},
		{
			// Proven revert, or owner recovery after expiry.
			Typ:  actRevert{},
			From: []State{Signed, RemoteCommitted, ProofCollected, Expired},
			To:   Reverted,
		},
		{
			Typ:  actTimeout{},
			From: []State{Drafted, Signed, RemoteCommitted, ProofCollected},
			To:   Expired,
		},
	}
	return containers.NewFsm(startState, transitions, fsmOpts...)
}
