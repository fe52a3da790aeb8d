/*************************************************************************
 * Copyright 2024 Gravwell, Inc. All rights reserved.
 * Contact: <legal@gravwell.io>
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

package base

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const (
	DefaultRetryInterval    = time.Second
	DefaultRetryMaxInterval = time.Minute
)

var (
	ErrBadRetryInterval   = errors.New("retry interval must be > 0")
	ErrBadRetryMultiplier = errors.New("retry multiplier must be 0 or >= 1")
	ErrBadRetryMax        = errors.New("max retry interval is smaller than the retry interval")
)

// RetryPolicy controls how long a writer waits between attempts after a
// recoverable failure. A Multiplier of 0 or 1 gives a fixed delay; MaxRetries
// of 0 retries forever.
type RetryPolicy struct {
	Interval    time.Duration
	Multiplier  float64
	MaxInterval time.Duration
	MaxRetries  uint64
}

// DefaultRetryPolicy waits one second between attempts with no retry limit
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		Interval:    DefaultRetryInterval,
		Multiplier:  1,
		MaxInterval: DefaultRetryMaxInterval,
	}
}

func (rp RetryPolicy) Validate() error {
	if rp.Interval <= 0 {
		return ErrBadRetryInterval
	} else if rp.Multiplier != 0 && rp.Multiplier < 1 {
		return ErrBadRetryMultiplier
	} else if rp.MaxInterval != 0 && rp.MaxInterval < rp.Interval {
		return ErrBadRetryMax
	}
	return nil
}

func (rp RetryPolicy) backOff(ctx context.Context) backoff.BackOffContext {
	var b backoff.BackOff
	if rp.Multiplier <= 1 {
		b = backoff.NewConstantBackOff(rp.Interval)
	} else {
		eb := backoff.NewExponentialBackOff()
		eb.InitialInterval = rp.Interval
		eb.Multiplier = rp.Multiplier
		eb.RandomizationFactor = 0
		if eb.MaxInterval = rp.MaxInterval; eb.MaxInterval == 0 {
			eb.MaxInterval = DefaultRetryMaxInterval
		}
		eb.MaxElapsedTime = 0
		eb.Reset()
		b = eb
	}
	if rp.MaxRetries > 0 {
		b = backoff.WithMaxRetries(b, rp.MaxRetries)
	}
	return backoff.WithContext(b, ctx)
}
