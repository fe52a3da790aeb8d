/*************************************************************************
 * Copyright 2024 Gravwell, Inc. All rights reserved.
 * Contact: <legal@gravwell.io>
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

package base

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/gravwell/dnsloggen/generators/dnslog"
	"github.com/stretchr/testify/require"
)

type memWriter struct {
	lines  [][]byte
	failAt int
	err    error
	cancel func()
}

func (mw *memWriter) WriteEntry(ctx context.Context, b []byte) error {
	if mw.failAt > 0 && len(mw.lines)+1 == mw.failAt {
		if mw.cancel != nil {
			mw.cancel()
			return ctx.Err()
		}
		return mw.err
	}
	mw.lines = append(mw.lines, append([]byte(nil), b...))
	return nil
}

func TestStreamCount(t *testing.T) {
	mw := &memWriter{}
	console := &bytes.Buffer{}
	gen := dnslog.NewGenerator(rand.New(rand.NewSource(1)), nil)
	var stats Stats
	cnt, sz, err := Stream(context.Background(), mw, StreamConfig{Count: 25, Console: console, Stats: &stats}, gen.Generate)
	require.NoError(t, err)
	require.Equal(t, uint64(25), cnt)
	require.Len(t, mw.lines, 25)
	var total int
	for _, l := range mw.lines {
		total += len(l)
	}
	require.Equal(t, uint64(total), sz)
	require.Equal(t, cnt, stats.Count())
	require.Equal(t, sz, stats.Bytes())
	require.Equal(t, 25, strings.Count(console.String(), StatusLine+"\n"))
}

func TestStreamQuiet(t *testing.T) {
	console := &bytes.Buffer{}
	_, _, err := Stream(context.Background(), &memWriter{}, StreamConfig{Count: 3, Console: console, Quiet: true}, func(time.Time) []byte {
		return []byte("x\n")
	})
	require.NoError(t, err)
	require.Zero(t, console.Len())
}

func TestStreamUsesClock(t *testing.T) {
	fixed := time.Date(2023, 8, 24, 15, 38, 12, 0, time.Local)
	mw := &memWriter{}
	gen := dnslog.NewGenerator(nil, nil)
	_, _, err := Stream(context.Background(), mw, StreamConfig{Count: 2, Quiet: true, Now: func() time.Time { return fixed }}, gen.Generate)
	require.NoError(t, err)
	for _, l := range mw.lines {
		require.True(t, bytes.HasPrefix(l, []byte("08/24/2023 03:38:12 PM ")), "bad timestamp in %q", l)
	}
}

func TestStreamPermanentError(t *testing.T) {
	mw := &memWriter{failAt: 4, err: syscall.ENOSPC}
	cnt, _, err := Stream(context.Background(), mw, StreamConfig{Quiet: true}, func(time.Time) []byte {
		return []byte("x\n")
	})
	require.ErrorIs(t, err, syscall.ENOSPC)
	require.Equal(t, uint64(3), cnt)
}

func TestStreamCancelIsCleanStop(t *testing.T) {
	ctx, cf := context.WithCancel(context.Background())
	defer cf()
	mw := &memWriter{failAt: 10, cancel: cf}
	cnt, _, err := Stream(ctx, mw, StreamConfig{Quiet: true}, func(time.Time) []byte {
		return []byte("x\n")
	})
	require.NoError(t, err)
	require.Equal(t, uint64(9), cnt)
}

func TestStreamBadArgs(t *testing.T) {
	_, _, err := Stream(context.Background(), nil, StreamConfig{}, func(time.Time) []byte { return nil })
	require.True(t, errors.Is(err, ErrNilWriter))
	_, _, err = Stream(context.Background(), &memWriter{}, StreamConfig{}, nil)
	require.True(t, errors.Is(err, ErrNilGenerator))
}

func TestStreamRateLimited(t *testing.T) {
	require.Nil(t, NewLimiter(0))
	lim := NewLimiter(200)
	require.NotNil(t, lim)
	start := time.Now()
	_, _, err := Stream(context.Background(), &memWriter{}, StreamConfig{Count: 250, Quiet: true, Limiter: lim}, func(time.Time) []byte {
		return []byte("x\n")
	})
	require.NoError(t, err)
	// 200 burst tokens then 50 more at 200/s
	require.GreaterOrEqual(t, time.Since(start), 200*time.Millisecond)
}

// End to end: generated entries appended to a file that already has content,
// every new line independently parses and the old content survives.
func TestStreamToFile(t *testing.T) {
	pth := filepath.Join(t.TempDir(), `foo.log`)
	prior := "# previous run\n"
	require.NoError(t, os.WriteFile(pth, []byte(prior), 0644))

	fo := &flakyOpener{fails: 3, err: syscall.EACCES}
	fw, console := newTestWriter(t, pth, DefaultRetryPolicy(), fo.open, &fakeTimer{})
	gen := dnslog.NewGenerator(rand.New(rand.NewSource(99)), nil)
	const n = 500
	cnt, _, err := Stream(context.Background(), fw, StreamConfig{Count: n, Console: console}, gen.Generate)
	require.NoError(t, err)
	require.Equal(t, uint64(n), cnt)
	require.Equal(t, 3, strings.Count(console.String(), "Permission denied"))

	fin, err := os.Open(pth)
	require.NoError(t, err)
	defer fin.Close()
	sc := bufio.NewScanner(fin)
	require.True(t, sc.Scan())
	require.Equal(t, strings.TrimSuffix(prior, "\n"), sc.Text())
	var lines int
	for sc.Scan() {
		e, err := dnslog.Parse(sc.Bytes())
		require.NoError(t, err, "line %d: %q", lines, sc.Text())
		require.Equal(t, byte(192), e.Client[0])
		require.Equal(t, byte(168), e.Client[1])
		lines++
	}
	require.NoError(t, sc.Err())
	require.Equal(t, n, lines)
}
