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
	"fmt"
	"io"
	"os"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

const StatusLine = `Generating mock data, to exit press CTRL + C`

var (
	ErrNilWriter    = errors.New("nil entry writer")
	ErrNilGenerator = errors.New("nil generator function")
)

// DataGen builds one entry for the given timestamp
type DataGen func(time.Time) []byte

// EntryWriter persists a single rendered entry
type EntryWriter interface {
	WriteEntry(ctx context.Context, b []byte) error
}

// Stats holds running totals that may be read while a stream is active
type Stats struct {
	count atomic.Uint64
	bytes atomic.Uint64
}

func (s *Stats) Count() uint64 {
	return s.count.Load()
}

func (s *Stats) Bytes() uint64 {
	return s.bytes.Load()
}

func (s *Stats) add(n int) {
	s.count.Add(1)
	s.bytes.Add(uint64(n))
}

type StreamConfig struct {
	Count   uint64        // stop after this many entries, 0 runs until ctx is cancelled
	Limiter *rate.Limiter // optional entry rate throttle
	Console io.Writer     // os.Stdout when nil
	Quiet   bool          // suppress the per cycle status line
	Now     func() time.Time
	Stats   *Stats // optional, updated after every successful write
}

// Stream generates and writes entries until the count is reached, the
// context is cancelled, or a write fails with an unrecoverable error.
// Cancellation is a normal stop and is not reported as an error.
func Stream(ctx context.Context, wtr EntryWriter, sc StreamConfig, gen DataGen) (totalCount, totalBytes uint64, err error) {
	if wtr == nil {
		err = ErrNilWriter
		return
	} else if gen == nil {
		err = ErrNilGenerator
		return
	}
	if sc.Console == nil {
		sc.Console = os.Stdout
	}
	if sc.Now == nil {
		sc.Now = time.Now
	}
	if sc.Stats == nil {
		sc.Stats = &Stats{}
	}

	for sc.Count == 0 || totalCount < sc.Count {
		if ctx.Err() != nil {
			return
		}
		if sc.Limiter != nil {
			if err = sc.Limiter.Wait(ctx); err != nil {
				if ctx.Err() != nil {
					err = nil
				}
				return
			}
		}
		if !sc.Quiet {
			fmt.Fprintln(sc.Console, StatusLine)
		}
		b := gen(sc.Now())
		if err = wtr.WriteEntry(ctx, b); err != nil {
			if ctx.Err() != nil {
				err = nil
			}
			return
		}
		totalCount++
		totalBytes += uint64(len(b))
		sc.Stats.add(len(b))
	}
	return
}

// NewLimiter returns a limiter for eps entries per second, nil when eps <= 0
func NewLimiter(eps float64) *rate.Limiter {
	if eps <= 0 {
		return nil
	}
	burst := int(eps)
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(eps), burst)
}
