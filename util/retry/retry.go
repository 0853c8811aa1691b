// Copyright 2025-2026, Offchain Labs, Inc.
// For license information, see https://github.com/OffchainLabs/crosslock/blob/master/LICENSE.md

package retry

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

const defaultSleepTime = time.Second * 2

var log = logrus.WithField("prefix", "retry")

// UntilSucceeds retries the given function until it succeeds or the context
// is cancelled, sleeping a fixed interval between attempts.
func UntilSucceeds[T any](ctx context.Context, fn func() (T, error)) (T, error) {
	return UntilSucceedsWithInterval(ctx, defaultSleepTime, fn)
}

func UntilSucceedsWithInterval[T any](ctx context.Context, interval time.Duration, fn func() (T, error)) (T, error) {
	for {
		if ctx.Err() != nil {
			return zeroVal[T](), ctx.Err()
		}
		got, err := fn()
		if err != nil {
			log.Error(err)
			select {
			case <-ctx.Done():
				return zeroVal[T](), ctx.Err()
			case <-time.After(interval):
			}
			continue
		}
		return got, nil
	}
}

func zeroVal[T any]() T {
	var result T
	return result
}
