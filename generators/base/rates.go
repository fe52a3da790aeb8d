/*************************************************************************
 * Copyright 2017 Gravwell, Inc. All rights reserved.
 * Contact: <legal@gravwell.io>
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

package base

import (
	"fmt"
	"time"

	"github.com/inhies/go-bytesize"
)

const (
	K                = 1000.0
	M                = K * 1000.0
	G                = M * 1000.0
	T                = G * 1000.0
	NsPerSec float64 = 1000000000.0
)

// HumanSize renders a byte count, e.g. 1.50KB
func HumanSize(b uint64) string {
	return bytesize.New(float64(b)).String()
}

// HumanRate renders bytes over a duration as a per second size, e.g. 2.00MB/s
func HumanRate(b uint64, dur time.Duration) string {
	if dur <= 0 {
		return `0.00B/s`
	}
	return bytesize.New(float64(b)/dur.Seconds()).String() + `/s`
}

// HumanEntryRate will take an entry count and duration and produce a human
// readable string in terms of entries per second.  e.g. 2400 K entries /s
func HumanEntryRate(b uint64, dur time.Duration) string {
	if dur <= 0 {
		return `0.00 E/s`
	}
	ps := (NsPerSec * float64(b)) / float64(dur.Nanoseconds())
	if ps < K {
		return fmt.Sprintf("%.02f E/s", ps)
	} else if ps <= M {
		return fmt.Sprintf("%.02f KE/s", ps/K)
	} else if ps <= G {
		return fmt.Sprintf("%.02f ME/s", ps/M)
	}
	return fmt.Sprintf("%.02f BE/s", ps/G)
}

// HumanCount will take a number and return an appropriately-scaled
// string, e.g. HumanCount(12500) will return "12.50 K"
func HumanCount(b uint64) string {
	ps := float64(b)
	if ps < K {
		return fmt.Sprintf("%.0f", ps)
	} else if ps <= M {
		return fmt.Sprintf("%.02f K", ps/K)
	} else if ps <= G {
		return fmt.Sprintf("%.02f M", ps/M)
	} else if ps <= T {
		return fmt.Sprintf("%.02f B", ps/G)
	}
	return fmt.Sprintf("%.02f T", ps/T)
}
