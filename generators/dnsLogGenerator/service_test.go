/*************************************************************************
 * Copyright 2024 Gravwell, Inc. All rights reserved.
 * Contact: <legal@gravwell.io>
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

package main

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gravwell/dnsloggen/generators/base"
	"github.com/gravwell/dnsloggen/log"
)

type countWriter struct {
	sync.Mutex
	n   int
	err error
}

func (cw *countWriter) WriteEntry(ctx context.Context, b []byte) error {
	cw.Lock()
	defer cw.Unlock()
	if cw.err != nil {
		return cw.err
	}
	cw.n++
	return nil
}

func testGen(time.Time) []byte {
	return []byte("x\n")
}

func newTestGenerator(wtr base.EntryWriter, count uint64) *generator {
	return newGenerator(wtr, base.StreamConfig{Count: count, Quiet: true}, testGen, log.NewLoggerWithKV(log.NewDiscardLogger()))
}

func TestGeneratorFinishes(t *testing.T) {
	cw := &countWriter{}
	g := newTestGenerator(cw, 100)
	if err := g.Init(nil); err != nil {
		t.Fatal(err)
	}
	if err := g.Start(); err != nil {
		t.Fatal(err)
	}
	select {
	case <-g.Context().Done():
	case <-time.After(5 * time.Second):
		t.Fatal("context not released after the stream finished")
	}
	if err := g.Stop(); err != nil {
		t.Fatal(err)
	}
	if cnt, sz, _ := g.results(); cnt != 100 || sz != 200 {
		t.Fatalf("bad results %d %d", cnt, sz)
	}
	if err := g.Start(); err != errAlreadyStarted {
		t.Fatalf("restart allowed: %v", err)
	}
}

func TestGeneratorStopIsClean(t *testing.T) {
	cw := &countWriter{}
	g := newTestGenerator(cw, 0)
	if err := g.Start(); err != nil {
		t.Fatal(err)
	}
	time.Sleep(10 * time.Millisecond)
	if err := g.Stop(); err != nil {
		t.Fatalf("interrupt reported as failure: %v", err)
	}
	cnt, _, _ := g.results()
	cw.Lock()
	defer cw.Unlock()
	if cnt != uint64(cw.n) {
		t.Fatalf("count %d does not match writes %d", cnt, cw.n)
	}
}

func TestGeneratorReportsFailure(t *testing.T) {
	bad := errors.New("disk on fire")
	g := newTestGenerator(&countWriter{err: bad}, 0)
	if err := g.Start(); err != nil {
		t.Fatal(err)
	}
	<-g.Context().Done()
	if err := g.Stop(); !errors.Is(err, bad) {
		t.Fatalf("expected write failure, got %v", err)
	}
}

type bufCloser struct {
	bytes.Buffer
}

func (bufCloser) Close() error {
	return nil
}

func TestStopProgressReportsFailure(t *testing.T) {
	bc := &bufCloser{}
	lg := log.New(bc)
	lg.EnableRawMode()
	kvl := log.NewLoggerWithKV(lg, log.KV("run-id", "abc"))

	stopProgress(nil, kvl)
	if bc.Len() != 0 {
		t.Fatalf("nil updater logged: %q", bc.String())
	}

	var stats base.Stats
	su, err := base.NewStatusUpdater(&stats, &bytes.Buffer{})
	if err != nil {
		t.Fatal(err)
	}
	// never started, so Stop fails
	stopProgress(su, kvl)
	s := bc.String()
	if !strings.Contains(s, `ERROR failed to stop status updater`) {
		t.Fatalf("missing error line: %q", s)
	} else if !strings.Contains(s, `run-id="abc"`) {
		t.Fatalf("run id dropped: %q", s)
	}
}
