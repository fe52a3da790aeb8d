/*************************************************************************
 * Copyright 2024 Gravwell, Inc. All rights reserved.
 * Contact: <legal@gravwell.io>
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

package main

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/gravwell/dnsloggen/generators/base"
	"github.com/gravwell/dnsloggen/log"
	"github.com/judwhite/go-svc"
)

var errAlreadyStarted = errors.New("generator already started")

// generator drives a single stream as a service; the service exits when the
// stream finishes on its own or when a signal asks it to stop
type generator struct {
	wtr base.EntryWriter
	sc  base.StreamConfig
	gen base.DataGen
	lg  *log.KVLogger

	ctx   context.Context
	cf    context.CancelFunc
	wg    sync.WaitGroup
	mtx   sync.Mutex
	start time.Time

	count uint64
	bytes uint64
	err   error
}

func newGenerator(wtr base.EntryWriter, sc base.StreamConfig, gen base.DataGen, lg *log.KVLogger) *generator {
	ctx, cf := context.WithCancel(context.Background())
	return &generator{
		wtr: wtr,
		sc:  sc,
		gen: gen,
		lg:  lg,
		ctx: ctx,
		cf:  cf,
	}
}

func (g *generator) Init(env svc.Environment) error {
	if env != nil && env.IsWindowsService() {
		g.lg.Info("running as a windows service")
	}
	return nil
}

func (g *generator) Start() error {
	g.mtx.Lock()
	defer g.mtx.Unlock()
	if !g.start.IsZero() {
		return errAlreadyStarted
	}
	g.start = time.Now()
	g.wg.Add(1)
	go g.routine()
	return nil
}

func (g *generator) routine() {
	defer g.wg.Done()
	// the stream owns its own cancellation, finishing it releases Run
	defer g.cf()
	cnt, sz, err := base.Stream(g.ctx, g.wtr, g.sc, g.gen)
	g.mtx.Lock()
	g.count, g.bytes, g.err = cnt, sz, err
	g.mtx.Unlock()
}

// Context is done once the stream has stopped
func (g *generator) Context() context.Context {
	return g.ctx
}

// Stop interrupts the stream and waits for the in flight entry to settle
func (g *generator) Stop() error {
	g.cf()
	g.wg.Wait()
	g.mtx.Lock()
	defer g.mtx.Unlock()
	return g.err
}

// results returns the totals of a stopped stream
func (g *generator) results() (count, bytes uint64, dur time.Duration) {
	g.mtx.Lock()
	defer g.mtx.Unlock()
	return g.count, g.bytes, time.Since(g.start)
}
