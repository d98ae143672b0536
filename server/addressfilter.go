package server

import (
	"net"
	"strconv"
	"strings"

	"github.com/modbuscore/gomodbus/common"
)

// parseWildcardOctets splits "a.b.c.d" (each segment a decimal byte or "*")
// into four optional bytes, nil meaning "matches any value".
func parseWildcardOctets(pattern string) ([4]*byte, error) {
	var octets [4]*byte
	parts := strings.Split(pattern, ".")
	if len(parts) != 4 {
		return octets, common.ErrBadWildcard
	}
	for i, part := range parts {
		if part == "*" {
			continue
		}
		v, err := strconv.ParseUint(part, 10, 8)
		if err != nil {
			return octets, common.ErrBadWildcard
		}
		b := byte(v)
		octets[i] = &b
	}
	return octets, nil
}

// AddressFilter controls which peer IP addresses may open a session against
// a Server, consulted once per accepted connection before the first frame is
// read (ported from rodbus's AddressFilter; spec.md's HandlerMap already
// decides which unit ids are reachable once a session exists, this decides
// whether the session exists at all). The zero value behaves like AnyAddress.
type AddressFilter struct {
	allow func(net.IP) bool
}

// AnyAddress accepts every peer, the default when a Server is constructed
// without an explicit filter.
func AnyAddress() AddressFilter {
	return AddressFilter{allow: func(net.IP) bool { return true }}
}

// ExactAddress accepts only the given peer address.
func ExactAddress(ip net.IP) AddressFilter {
	return AddressFilter{allow: func(candidate net.IP) bool { return candidate.Equal(ip) }}
}

// AnyOfAddresses accepts any peer address present in the given set.
func AnyOfAddresses(ips ...net.IP) AddressFilter {
	set := make([]net.IP, len(ips))
	copy(set, ips)
	return AddressFilter{allow: func(candidate net.IP) bool {
		for _, ip := range set {
			if candidate.Equal(ip) {
				return true
			}
		}
		return false
	}}
}

// WildcardIPv4 accepts an IPv4 address against an octet pattern where any
// octet may be "*", e.g. "192.168.0.*" or "10.*.*.1".
func WildcardIPv4(pattern string) (AddressFilter, error) {
	octets, err := parseWildcardOctets(pattern)
	if err != nil {
		return AddressFilter{}, err
	}
	return AddressFilter{allow: func(candidate net.IP) bool {
		v4 := candidate.To4()
		if v4 == nil {
			return false
		}
		for i, want := range octets {
			if want != nil && *want != v4[i] {
				return false
			}
		}
		return true
	}}, nil
}

// Matches reports whether addr passes the filter. A nil allow func (the zero
// AddressFilter) matches everything, same as AnyAddress.
func (f AddressFilter) Matches(addr net.IP) bool {
	if f.allow == nil {
		return true
	}
	return f.allow(addr)
}
