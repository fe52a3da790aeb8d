/*************************************************************************
 * Copyright 2024 Gravwell, Inc. All rights reserved.
 * Contact: <legal@gravwell.io>
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

// Package dnslog builds and parses Windows DNS server debug log lines of the form
//
//	08/24/2023 03:38:12 PM 000C21F0 PACKET 192.168.87.125 UDP Rcv 192.168.87.125 0002 Q [0001 D NOERROR] CNAME (15)ixutlvqgwnhzarq(0)
package dnslog

import (
	"fmt"
	"math/rand"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/gravwell/dnsloggen/generators/ipgen"
	"github.com/miekg/dns"
)

const (
	// TimestampFormat is month/day/year 12 hour clock with an AM/PM marker
	TimestampFormat = `01/02/2006 03:04:05 PM`

	MaxPacketID  = 999999
	MinLabelLen  = 5
	MaxLabelLen  = 15
	labelLetters = `abcdefghijklmnopqrstuvwxyz`

	// everything between the second address and the query type is fixed
	responseTemplate = `0002 Q [0001 D NOERROR]`
)

// QueryTypes is the set of record types drawn for synthetic queries
var QueryTypes = []uint16{
	dns.TypeA,
	dns.TypeAAAA,
	dns.TypeMX,
	dns.TypePTR,
	dns.TypeCNAME,
}

// Entry is one synthetic DNS query event
type Entry struct {
	TS       time.Time
	PacketID uint32
	Client   net.IP
	QType    uint16
	Name     string // dotted form, "woshub.com"
}

// TypeString returns the mnemonic for the entry's query type
func (e Entry) TypeString() string {
	return dns.TypeToString[e.QType]
}

// AppendFormat appends the rendered line, including the trailing newline, to b
func (e Entry) AppendFormat(b []byte) []byte {
	ip := e.Client.String()
	b = e.TS.AppendFormat(b, TimestampFormat)
	b = append(b, ' ')
	b = append(b, fmt.Sprintf("%08X", e.PacketID)...)
	b = append(b, " PACKET "...)
	b = append(b, ip...)
	b = append(b, " UDP Rcv "...)
	b = append(b, ip...)
	b = append(b, ' ')
	b = append(b, responseTemplate...)
	b = append(b, ' ')
	b = append(b, e.TypeString()...)
	b = append(b, ' ')
	b = appendQName(b, e.Name)
	return append(b, '\n')
}

func (e Entry) String() string {
	return string(e.AppendFormat(nil))
}

// appendQName writes each label with its length prefix and closes with (0)
func appendQName(b []byte, name string) []byte {
	for _, lbl := range strings.Split(strings.TrimSuffix(name, `.`), `.`) {
		if lbl == `` {
			continue
		}
		b = append(b, '(')
		b = strconv.AppendInt(b, int64(len(lbl)), 10)
		b = append(b, ')')
		b = append(b, lbl...)
	}
	return append(b, "(0)"...)
}

// Generator produces randomized entries. It is not safe for concurrent use.
type Generator struct {
	rng *rand.Rand
	ips ipgen.Source
}

// NewGenerator builds a Generator. A nil rng is seeded from the clock and a nil
// address source falls back to 192.168.X.Y addresses drawn from the same rng.
func NewGenerator(rng *rand.Rand, ips ipgen.Source) *Generator {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if ips == nil {
		ips = ipgen.PrivateV4Generator(rng)
	}
	return &Generator{rng: rng, ips: ips}
}

// Entry returns a new random entry stamped with ts
func (g *Generator) Entry(ts time.Time) Entry {
	return Entry{
		TS:       ts,
		PacketID: uint32(g.rng.Intn(MaxPacketID + 1)),
		Client:   g.ips.IP(),
		QType:    QueryTypes[g.rng.Intn(len(QueryTypes))],
		Name:     g.label(),
	}
}

// Generate renders a random entry stamped with ts
func (g *Generator) Generate(ts time.Time) []byte {
	return g.Entry(ts).AppendFormat(nil)
}

func (g *Generator) label() string {
	n := MinLabelLen + g.rng.Intn(MaxLabelLen-MinLabelLen+1)
	b := make([]byte, n)
	for i := range b {
		b[i] = labelLetters[g.rng.Intn(len(labelLetters))]
	}
	return string(b)
}
