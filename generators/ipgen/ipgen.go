/*************************************************************************
 * Copyright 2019 Gravwell, Inc. All rights reserved.
 * Contact: <legal@gravwell.io>
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

// Package ipgen implements some high speed pre-populated IP address generator functions
package ipgen

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math/rand"
	"net"
	"time"
)

var (
	ErrNoSubnets   = errors.New("Must specify at least one subnet")
	ErrBadPrefix   = errors.New("prefix must be an IPv4 address")
	ErrOctetBounds = errors.New("octet range is invalid")
)

// Source is anything that can hand out client addresses.
// Sources are not safe for concurrent use.
type Source interface {
	IP() net.IP
}

func newRand(rng *rand.Rand) *rand.Rand {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return rng
}

// A V4Gen is a generator for IPv4 addresses
type V4Gen struct {
	subnets []*net.IPNet
	ips     []uint32
	masks   []uint32
	rng     *rand.Rand
}

// NewV4Generator will return an IPv4 address generator which uses
// the specified subnets to generate traffic. A subnet may be included
// in the argument slice multiple times in order to generate proportionally
// more addresses from that network. Specifying a subnet 0.0.0.0/0 will
// generate addresses from the entire IPv4 space. A nil rng is seeded from the clock.
func NewV4Generator(subnets []*net.IPNet, rng *rand.Rand) (*V4Gen, error) {
	if len(subnets) == 0 {
		return nil, ErrNoSubnets
	}
	var ips, masks []uint32
	for _, sn := range subnets {
		ip4 := sn.IP.To4()
		if ip4 == nil || len(sn.Mask) != net.IPv4len {
			return nil, fmt.Errorf("Subnet does not appear to be a v4 subnet: %v", sn)
		}
		ips = append(ips, binary.BigEndian.Uint32(ip4))
		var m []byte
		for _, b := range sn.Mask {
			m = append(m, ^b)
		}
		masks = append(masks, binary.BigEndian.Uint32(m))
	}
	return &V4Gen{subnets: subnets, ips: ips, masks: masks, rng: newRand(rng)}, nil
}

// ParseV4Generator builds a V4Gen from CIDR strings such as "10.0.0.0/8"
func ParseV4Generator(cidrs []string, rng *rand.Rand) (*V4Gen, error) {
	var subnets []*net.IPNet
	for _, c := range cidrs {
		_, n, err := net.ParseCIDR(c)
		if err != nil {
			return nil, err
		}
		subnets = append(subnets, n)
	}
	return NewV4Generator(subnets, rng)
}

// IP generates an IPv4 address based on the parameters of the generator
func (g *V4Gen) IP() net.IP {
	ip := make(net.IP, 4)
	idx := g.rng.Intn(len(g.subnets))
	binary.BigEndian.PutUint32(ip, (g.rng.Uint32()&g.masks[idx])|g.ips[idx])
	return ip
}

// A RangeV4Gen keeps the first two octets fixed and draws each of the
// lower two octets uniformly from [lo, hi].
type RangeV4Gen struct {
	a, b   byte
	lo, hi byte
	rng    *rand.Rand
}

// NewRangeV4Generator returns a generator for prefix[0].prefix[1].X.Y with X, Y in [lo, hi]
func NewRangeV4Generator(prefix net.IP, lo, hi byte, rng *rand.Rand) (*RangeV4Gen, error) {
	p4 := prefix.To4()
	if p4 == nil {
		return nil, ErrBadPrefix
	} else if lo > hi {
		return nil, ErrOctetBounds
	}
	return &RangeV4Gen{a: p4[0], b: p4[1], lo: lo, hi: hi, rng: newRand(rng)}, nil
}

// PrivateV4Generator hands out 192.168.X.Y with X, Y in [1,255]
func PrivateV4Generator(rng *rand.Rand) *RangeV4Gen {
	return &RangeV4Gen{a: 192, b: 168, lo: 1, hi: 255, rng: newRand(rng)}
}

func (g *RangeV4Gen) octet() byte {
	return g.lo + byte(g.rng.Intn(int(g.hi-g.lo)+1))
}

// IP generates an address inside the configured range
func (g *RangeV4Gen) IP() net.IP {
	return net.IPv4(g.a, g.b, g.octet(), g.octet()).To4()
}
