// Package netconfig assembles and serializes the configuration of a roam
// network: its name, its key, and its address range.
//
// A NetworkConfig is immutable once built. It is created by an Assembler
// for a new network, or by FromRecord when a saved network is loaded.
package netconfig

import (
	"encoding/json"
	"fmt"
	"net/netip"

	apperrors "github.com/roamvpn/roam/lib/errors"
	"github.com/roamvpn/roam/lib/netkey"
	"github.com/roamvpn/roam/lib/subnet"
	"github.com/roamvpn/roam/lib/validation"
)

// NetworkConfig is the identity and address policy of a network.
type NetworkConfig struct {
	name        string
	key         netkey.NetworkKey
	networkAddr netip.Addr
	cidr        uint8
}

// New builds a NetworkConfig from known parts. The key is copied so the
// config owns its key material exclusively.
func New(name string, key netkey.NetworkKey, sub subnet.Descriptor) (*NetworkConfig, error) {
	if err := validation.NetworkName("name", name); err != nil {
		return nil, err
	}
	if !sub.Addr.IsValid() {
		return nil, apperrors.ErrInvalidAddress.WithField("network_addr")
	}
	return &NetworkConfig{
		name:        name,
		key:         key.Clone(),
		networkAddr: sub.Addr,
		cidr:        sub.CIDR,
	}, nil
}

// Name returns the network name.
func (c *NetworkConfig) Name() string {
	return c.name
}

// Key returns a copy of the network key.
func (c *NetworkConfig) Key() netkey.NetworkKey {
	return c.key.Clone()
}

// NetworkAddr returns the address of the network's subnet.
func (c *NetworkConfig) NetworkAddr() netip.Addr {
	return c.networkAddr
}

// CIDR returns the prefix length of the network's subnet.
func (c *NetworkConfig) CIDR() uint8 {
	return c.cidr
}

// Subnet returns the address and prefix length as a descriptor.
func (c *NetworkConfig) Subnet() subnet.Descriptor {
	return subnet.Descriptor{Addr: c.networkAddr, CIDR: c.cidr}
}

// IsController reports whether this config carries the secret key.
func (c *NetworkConfig) IsController() bool {
	return c.key.HasSecret()
}

// Record is the flat, serializable form of a NetworkConfig. Field names and
// order are the saved-config format.
type Record struct {
	Name        string `json:"name"`
	Key         string `json:"key"`
	NetworkAddr string `json:"network_addr"`
	CIDR        uint8  `json:"cidr"`
}

// Record flattens the config, rendering the key as its token.
func (c *NetworkConfig) Record() Record {
	return Record{
		Name:        c.name,
		Key:         netkey.Encode(c.key),
		NetworkAddr: c.networkAddr.String(),
		CIDR:        c.cidr,
	}
}

// MarshalJSON implements json.Marshaler via Record.
func (c *NetworkConfig) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.Record())
}

// ToJSON returns the compact JSON form of the config.
func (c *NetworkConfig) ToJSON() ([]byte, error) {
	data, err := json.Marshal(c.Record())
	if err != nil {
		return nil, fmt.Errorf("could not serialize network config: %w", err)
	}
	return data, nil
}

// ToJSONIndent returns the indented JSON form used for config files.
func (c *NetworkConfig) ToJSONIndent() ([]byte, error) {
	data, err := json.MarshalIndent(c.Record(), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("could not serialize network config: %w", err)
	}
	return data, nil
}

// LoadOptions control how saved records are turned back into configs.
type LoadOptions struct {
	// Policy is applied when decoding the key token.
	Policy netkey.DecodePolicy
	// Bounds are checked against the stored prefix length. The zero value
	// means subnet.DefaultBounds.
	Bounds subnet.Bounds
}

// DefaultLoadOptions returns lenient decoding with the default bounds.
func DefaultLoadOptions() LoadOptions {
	return LoadOptions{
		Policy: netkey.Lenient,
		Bounds: subnet.DefaultBounds(),
	}
}

func (o LoadOptions) bounds() subnet.Bounds {
	if o.Bounds == (subnet.Bounds{}) {
		return subnet.DefaultBounds()
	}
	return o.Bounds
}

// FromRecord rebuilds a NetworkConfig from its record, decoding the key
// token and validating the subnet.
func FromRecord(r Record, opts LoadOptions) (*NetworkConfig, error) {
	if err := validation.NetworkName("name", r.Name); err != nil {
		return nil, err
	}

	key, err := netkey.DecodeWith(r.Key, opts.Policy)
	if err != nil {
		return nil, err
	}

	addr, err := netip.ParseAddr(r.NetworkAddr)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindInvalidAddress, "could not parse IP address", err).WithField("network_addr")
	}

	sub := subnet.Descriptor{Addr: addr, CIDR: r.CIDR}
	if err := opts.bounds().Check(sub); err != nil {
		return nil, err
	}

	return New(r.Name, key, sub)
}

// ParseJSON decodes a JSON record and rebuilds the config.
func ParseJSON(data []byte, opts LoadOptions) (*NetworkConfig, error) {
	var r Record
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("parsing network config: %w", err)
	}
	return FromRecord(r, opts)
}
