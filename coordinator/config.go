// Copyright 2025-2026, Offchain Labs, Inc.
// For license information, see https://github.com/OffchainLabs/crosslock/blob/master/LICENSE.md

package coordinator

import (
	"time"

	flag "github.com/spf13/pflag"
)

type Config struct {
	// SwapDeadline bounds a swap's whole lifecycle; past it only revert is
	// permitted.
	SwapDeadline time.Duration `koanf:"swap-deadline"`
	// RPCTimeout bounds each individual remote call.
	RPCTimeout time.Duration `koanf:"rpc-timeout"`
	// RetryInterval is the pause between retries of failed remote calls.
	RetryInterval time.Duration `koanf:"retry-interval"`
	// ExpirySweepInterval is how often swaps are checked against their
	// deadlines.
	ExpirySweepInterval time.Duration `koanf:"expiry-sweep-interval"`
	// CommitPollInterval is how often the remote protocol contract is polled
	// for the counterpart's commitment.
	CommitPollInterval time.Duration `koanf:"commit-poll-interval"`
}

type ConfigFetcher func() *Config

var DefaultConfig = Config{
	SwapDeadline:        24 * time.Hour,
	RPCTimeout:          30 * time.Second,
	RetryInterval:       2 * time.Second,
	ExpirySweepInterval: 10 * time.Second,
	CommitPollInterval:  5 * time.Second,
}

func ConfigAddOptions(prefix string, f *flag.FlagSet) {
	f.Duration(prefix+".swap-deadline", DefaultConfig.SwapDeadline, "deadline after which a swap can only revert")
	f.Duration(prefix+".rpc-timeout", DefaultConfig.RPCTimeout, "per-call timeout for remote ledger RPCs (0 = disabled)")
	f.Duration(prefix+".retry-interval", DefaultConfig.RetryInterval, "pause between retries of failed remote calls")
	f.Duration(prefix+".expiry-sweep-interval", DefaultConfig.ExpirySweepInterval, "how often swap deadlines are checked")
	f.Duration(prefix+".commit-poll-interval", DefaultConfig.CommitPollInterval, "how often the remote contract is polled for commitments")
}
