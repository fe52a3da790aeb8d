/*************************************************************************
 * Copyright 2018 Gravwell, Inc. All rights reserved.
 * Contact: <legal@gravwell.io>
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

package base

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"time"
)

const defaultStatusInterval = time.Second

// StatusUpdater periodically prints running totals and rates for a stream
type StatusUpdater struct {
	stats    *Stats
	out      io.Writer
	interval time.Duration
	rc       chan bool
	wg       sync.WaitGroup
	started  bool
	stopped  bool
}

func NewStatusUpdater(stats *Stats, out io.Writer) (su *StatusUpdater, err error) {
	if stats == nil || out == nil {
		err = errors.New("bad parameters")
	} else {
		su = &StatusUpdater{
			stats:    stats,
			out:      out,
			interval: defaultStatusInterval,
			rc:       make(chan bool, 1),
		}
	}
	return
}

func (su *StatusUpdater) Start() error {
	if su.started {
		return errors.New("already started")
	}
	su.started = true
	su.wg.Add(1)
	go su.routine()
	return nil
}

func (su *StatusUpdater) Stop() (err error) {
	if !su.started {
		return errors.New("not started")
	} else if su.stopped {
		return errors.New("already stopped")
	}
	su.stopped = true
	close(su.rc)
	su.wg.Wait()
	return
}

func (su *StatusUpdater) routine() {
	var lastCount, lastBytes uint64
	defer su.wg.Done()
	tmr := time.NewTicker(su.interval)
	defer tmr.Stop()
	ts := time.Now()
	for {
		select {
		case <-tmr.C:
			currCount := su.stats.Count()
			currBytes := su.stats.Bytes()
			su.printStats(currBytes, currBytes-lastBytes, currCount, currCount-lastCount, time.Since(ts))
			ts = time.Now()
			lastCount = currCount
			lastBytes = currBytes
		case <-su.rc:
			fmt.Fprintf(su.out, "\n")
			return
		}
	}
}

func (su *StatusUpdater) printStats(totalBytes, segmentBytes, totalCount, segmentCount uint64, dur time.Duration) {
	fmt.Fprintf(su.out, "\rTotal: %s %s  Rate: %s %s                        ",
		HumanSize(totalBytes), HumanCount(totalCount),
		HumanRate(segmentBytes, dur),
		HumanEntryRate(segmentCount, dur))
}
