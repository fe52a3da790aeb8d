/*************************************************************************
 * Copyright 2018 Gravwell, Inc. All rights reserved.
 * Contact: <legal@gravwell.io>
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cast"
)

var (
	ErrEmptyDuration = errors.New("empty duration")
)

// ParseBool attempts to parse the string v into a boolean.
// The following will return true:
//
//   - "true"
//   - "t"
//   - "yes"
//   - "y"
//   - "1"
//
// The following will return false:
//
//   - "false"
//   - "f"
//   - "no"
//   - "n"
//   - "0"
//
// All other values return an error.
func ParseBool(v string) (r bool, err error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case `true`, `t`, `yes`, `y`, `1`:
		r = true
	case `false`, `f`, `no`, `n`, `0`:
	default:
		err = fmt.Errorf("Unknown boolean value %q", v)
	}
	return
}

// ParseUint64 will attempt to turn the given string into an unsigned 64-bit integer.
func ParseUint64(v string) (i uint64, err error) {
	v = strings.TrimSpace(v)
	if strings.HasPrefix(v, "0x") {
		i, err = strconv.ParseUint(strings.TrimPrefix(v, "0x"), 16, 64)
	} else {
		i, err = cast.ToUint64E(v)
	}
	return
}

// ParseInt64 will attempt to turn the given string into a signed 64-bit integer.
func ParseInt64(v string) (i int64, err error) {
	v = strings.TrimSpace(v)
	if strings.HasPrefix(v, "0x") {
		i, err = strconv.ParseInt(strings.TrimPrefix(v, "0x"), 16, 64)
	} else {
		i, err = cast.ToInt64E(v)
	}
	return
}

// ParseDuration accepts Go duration strings ("1s", "250ms") or a bare number of seconds
func ParseDuration(v string) (d time.Duration, err error) {
	if v = strings.TrimSpace(v); v == `` {
		err = ErrEmptyDuration
		return
	}
	if d, err = time.ParseDuration(v); err == nil {
		return
	}
	var secs float64
	if secs, err = cast.ToFloat64E(v); err != nil {
		err = fmt.Errorf("invalid duration %q", v)
		return
	}
	d = time.Duration(secs * float64(time.Second))
	return
}
