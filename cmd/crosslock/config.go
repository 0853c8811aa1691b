// Copyright 2025-2026, Offchain Labs, Inc.
// For license information, see https://github.com/OffchainLabs/crosslock/blob/master/LICENSE.md

package main

import (
	"github.com/knadh/koanf"
	"github.com/knadh/koanf/providers/posflag"
	flag "github.com/spf13/pflag"

	"github.com/offchainlabs/crosslock/coordinator"
)

type RemoteConfig struct {
	URL  string `koanf:"url"`
	From string `koanf:"from"`
	// Protocol is the swap contract's address on the remote ledger.
	Protocol string `koanf:"protocol"`
}

var DefaultRemoteConfig = RemoteConfig{
	URL:      "",
	From:     "",
	Protocol: "",
}

func RemoteConfigAddOptions(prefix string, f *flag.FlagSet) {
	f.String(prefix+".url", DefaultRemoteConfig.URL, "remote ledger JSON-RPC endpoint")
	f.String(prefix+".from", DefaultRemoteConfig.From, "remote account transactions are sent from")
	f.String(prefix+".protocol", DefaultRemoteConfig.Protocol, "swap protocol contract address")
}

type AppConfig struct {
	LogLevel    string             `koanf:"log-level"`
	StoreDir    string             `koanf:"store-dir"`
	Dev         bool               `koanf:"dev"`
	Remote      RemoteConfig       `koanf:"remote"`
	Coordinator coordinator.Config `koanf:"coordinator"`
}

var DefaultAppConfig = AppConfig{
	LogLevel:    "info",
	StoreDir:    "",
	Dev:         false,
	Remote:      DefaultRemoteConfig,
	Coordinator: coordinator.DefaultConfig,
}

func AppConfigAddOptions(f *flag.FlagSet) {
	f.String("log-level", DefaultAppConfig.LogLevel, "log level (trace, debug, info, warn, error)")
	f.String("store-dir", DefaultAppConfig.StoreDir, "directory for the draft-tx store (empty = in-memory)")
	f.Bool("dev", DefaultAppConfig.Dev, "run a self-contained demo swap against a simulated remote ledger")
	RemoteConfigAddOptions("remote", f)
	coordinator.ConfigAddOptions("coordinator", f)
}

func ParseConfig(args []string) (*AppConfig, error) {
	f := flag.NewFlagSet("crosslock", flag.ContinueOnError)
	AppConfigAddOptions(f)
	if err := f.Parse(args); err != nil {
		return nil, err
	}
	k := koanf.New(".")
	if err := k.Load(posflag.Provider(f, ".", k), nil); err != nil {
		return nil, err
	}
	cfg := DefaultAppConfig
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
