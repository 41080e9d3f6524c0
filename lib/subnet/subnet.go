// Package subnet parses the "<ip>/<cidr>" descriptors used to seed a new
// network's address range.
package subnet

import (
	"fmt"
	"net/netip"
	"strconv"
	"strings"

	apperrors "github.com/roamvpn/roam/lib/errors"
)

// Default prefix-length bounds. A network needs room for at least a few
// hosts, so /31 and /32 (and their IPv6 counterparts) are refused.
const (
	DefaultMaxIPv4Prefix = 30
	DefaultMaxIPv6Prefix = 126
)

// Default is the subnet used when none is supplied.
var Default = Descriptor{
	Addr: netip.AddrFrom4([4]byte{192, 168, 251, 0}),
	CIDR: 24,
}

// Descriptor is an IP address and a prefix length.
type Descriptor struct {
	Addr netip.Addr
	CIDR uint8
}

// Is4 reports whether the descriptor is an IPv4 subnet.
func (d Descriptor) Is4() bool {
	return d.Addr.Is4()
}

// Prefix returns the descriptor as a netip.Prefix. The address keeps its
// host bits; use Masked on the result for the network address.
func (d Descriptor) Prefix() netip.Prefix {
	return netip.PrefixFrom(d.Addr, int(d.CIDR))
}

// String formats the descriptor as "<ip>/<cidr>".
func (d Descriptor) String() string {
	return d.Addr.String() + "/" + strconv.Itoa(int(d.CIDR))
}

// Bounds are the largest prefix lengths accepted per address family.
type Bounds struct {
	MaxIPv4 uint8
	MaxIPv6 uint8
}

// DefaultBounds returns the bounds applied by Parse.
func DefaultBounds() Bounds {
	return Bounds{
		MaxIPv4: DefaultMaxIPv4Prefix,
		MaxIPv6: DefaultMaxIPv6Prefix,
	}
}

// Validate checks that the bounds fit their address families.
func (b Bounds) Validate() error {
	if b.MaxIPv4 > 32 {
		return apperrors.New(apperrors.KindConfiguration, "must be at most 32").WithField("ipv4_max_prefix")
	}
	if b.MaxIPv6 > 128 {
		return apperrors.New(apperrors.KindConfiguration, "must be at most 128").WithField("ipv6_max_prefix")
	}
	return nil
}

// Max returns the bound for addr's family.
func (b Bounds) Max(addr netip.Addr) uint8 {
	if addr.Is4() {
		return b.MaxIPv4
	}
	return b.MaxIPv6
}

// Check verifies d against the bounds.
func (b Bounds) Check(d Descriptor) error {
	if max := b.Max(d.Addr); d.CIDR > max {
		return apperrors.New(apperrors.KindPrefixOutOfRange,
			fmt.Sprintf("prefix length %d exceeds maximum of %d for this address family", d.CIDR, max)).
			WithField("cidr")
	}
	return nil
}

// Parse parses text with DefaultBounds.
func Parse(text string) (*Descriptor, error) {
	return DefaultBounds().Parse(text)
}

// Parse parses "<ip>/<cidr>". Empty text yields nil, nil so the caller can
// substitute a default.
func (b Bounds) Parse(text string) (*Descriptor, error) {
	if text == "" {
		return nil, nil
	}

	addrText, cidrText, found := strings.Cut(text, "/")
	if addrText == "" {
		return nil, apperrors.New(apperrors.KindMissingField, "IP address not provided").WithField("network_addr")
	}

	addr, err := netip.ParseAddr(addrText)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindInvalidAddress, "could not parse IP address", err).WithField("network_addr")
	}
	if addr.Zone() != "" {
		return nil, apperrors.New(apperrors.KindInvalidAddress, "IP address must not carry a zone").WithField("network_addr")
	}

	if !found || cidrText == "" {
		return nil, apperrors.New(apperrors.KindMissingField, "CIDR not provided").WithField("cidr")
	}

	cidr, err := strconv.ParseUint(cidrText, 10, 8)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindInvalidPrefix, "could not parse CIDR", err).WithField("cidr")
	}

	d := Descriptor{Addr: addr, CIDR: uint8(cidr)}
	if err := b.Check(d); err != nil {
		return nil, err
	}
	return &d, nil
}
