package netconfig

import (
	"github.com/roamvpn/roam/lib/netkey"
	"github.com/roamvpn/roam/lib/subnet"
	"github.com/roamvpn/roam/lib/validation"
)

// KeyGenerator mints network keys. *netkey.Generator implements it.
type KeyGenerator interface {
	Generate() (netkey.NetworkKey, error)
}

// Assembler builds new network configs from user input.
type Assembler struct {
	generator     KeyGenerator
	bounds        subnet.Bounds
	defaultSubnet subnet.Descriptor
}

// Option is a functional option for configuring an Assembler.
type Option func(*Assembler)

// WithGenerator sets the key generator.
func WithGenerator(g KeyGenerator) Option {
	return func(a *Assembler) {
		a.generator = g
	}
}

// WithBounds sets the prefix-length bounds applied to subnet input.
func WithBounds(b subnet.Bounds) Option {
	return func(a *Assembler) {
		a.bounds = b
	}
}

// WithDefaultSubnet sets the subnet used when the input is empty.
func WithDefaultSubnet(d subnet.Descriptor) Option {
	return func(a *Assembler) {
		a.defaultSubnet = d
	}
}

// NewAssembler returns an Assembler that generates Ed25519 keys from
// crypto/rand and falls back to subnet.Default, unless overridden.
func NewAssembler(opts ...Option) *Assembler {
	a := &Assembler{
		generator:     netkey.NewGenerator(netkey.Ed25519),
		bounds:        subnet.DefaultBounds(),
		defaultSubnet: subnet.Default,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Assemble validates the name, parses subnetText (empty selects the
// default subnet) and mints a fresh key. Errors from the subnet parser are
// returned unchanged; a key generation failure is fatal to the caller.
func (a *Assembler) Assemble(name, subnetText string) (*NetworkConfig, error) {
	if err := validation.NetworkName("name", name); err != nil {
		return nil, err
	}

	sub, err := a.bounds.Parse(subnetText)
	if err != nil {
		return nil, err
	}
	if sub == nil {
		d := a.defaultSubnet
		sub = &d
	}

	key, err := a.generator.Generate()
	if err != nil {
		return nil, err
	}

	cfg, err := New(name, key, *sub)
	if err != nil {
		return nil, err
	}

	log.WithField("name", name).
		WithField("subnet", sub.String()).
		WithField("fingerprint", key.Fingerprint()).
		Debug("assembled network config")
	return cfg, nil
}

// Assemble builds a network config with the default Assembler.
func Assemble(name, subnetText string) (*NetworkConfig, error) {
	return NewAssembler().Assemble(name, subnetText)
}
