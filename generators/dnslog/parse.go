/*************************************************************************
 * Copyright 2024 Gravwell, Inc. All rights reserved.
 * Contact: <legal@gravwell.io>
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

package dnslog

import (
	"bytes"
	"errors"
	"fmt"
	"net"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/miekg/dns"
)

var (
	ErrMalformed   = errors.New("malformed DNS debug log line")
	ErrPacketID    = errors.New("packet id out of range")
	ErrUnknownType = errors.New("unknown query type")
	ErrLabelLength = errors.New("label length prefix does not match label")
	ErrMismatchIP  = errors.New("remote addresses do not match")
)

var lineRe = regexp.MustCompile(`^(\d{2}/\d{2}/\d{4} \d{2}:\d{2}:\d{2} [AP]M) ([0-9A-F]{8}) PACKET (\S+) UDP Rcv (\S+) ` +
	regexp.QuoteMeta(responseTemplate) + ` ([A-Z0-9]+) ((?:\(\d+\)[^()\s]+)*\(0\))$`)

var labelRe = regexp.MustCompile(`\((\d+)\)([^()]+)`)

// Parse decodes a single line, trailing line breaks are ignored.
// The timestamp is interpreted in the local time zone.
func Parse(line []byte) (e Entry, err error) {
	line = bytes.TrimRight(line, "\r\n")
	m := lineRe.FindSubmatch(line)
	if m == nil {
		err = ErrMalformed
		return
	}
	if e.TS, err = time.ParseInLocation(TimestampFormat, string(m[1]), time.Local); err != nil {
		err = fmt.Errorf("%w: %v", ErrMalformed, err)
		return
	}
	var id uint64
	if id, err = strconv.ParseUint(string(m[2]), 16, 32); err != nil {
		err = fmt.Errorf("%w: %v", ErrMalformed, err)
		return
	} else if id > MaxPacketID {
		err = ErrPacketID
		return
	}
	e.PacketID = uint32(id)

	if e.Client = net.ParseIP(string(m[3])).To4(); e.Client == nil {
		err = fmt.Errorf("%w: bad address %q", ErrMalformed, m[3])
		return
	} else if !e.Client.Equal(net.ParseIP(string(m[4]))) {
		err = ErrMismatchIP
		return
	}

	var ok bool
	if e.QType, ok = dns.StringToType[string(m[5])]; !ok {
		err = fmt.Errorf("%w %q", ErrUnknownType, m[5])
		return
	}
	e.Name, err = decodeQName(string(m[6]))
	return
}

// decodeQName turns "(8)woshub(2)com(0)" into "woshub.com"
func decodeQName(v string) (string, error) {
	var labels []string
	for _, sm := range labelRe.FindAllStringSubmatch(v, -1) {
		n, err := strconv.Atoi(sm[1])
		if err != nil {
			return ``, ErrMalformed
		} else if n != len(sm[2]) {
			return ``, fmt.Errorf("%w: (%d)%s", ErrLabelLength, n, sm[2])
		}
		labels = append(labels, sm[2])
	}
	return strings.Join(labels, `.`), nil
}
