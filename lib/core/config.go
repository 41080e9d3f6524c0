// Package core holds the node-level configuration of roam: where network
// configs are kept and the policies applied when creating or loading them.
package core

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/pelletier/go-toml/v2"

	apperrors "github.com/roamvpn/roam/lib/errors"
	"github.com/roamvpn/roam/lib/netconfig"
	"github.com/roamvpn/roam/lib/netkey"
	"github.com/roamvpn/roam/lib/subnet"
)

// Default configuration values
const (
	DefaultConfigFile   = "config.toml"
	DefaultNetworksDir  = "networks"
	DefaultKeyPrimitive = "ed25519"
	DefaultSubnet       = "192.168.251.0/24"
	DefaultStrictDecode = false
	DefaultDataDirName  = ".roam"
	EnvPrefix           = "ROAM_"
	envDataDir          = EnvPrefix + "DATA_DIR"
	envDefaultSubnet    = EnvPrefix + "DEFAULT_SUBNET"
	envKeyPrimitive     = EnvPrefix + "KEY_PRIMITIVE"
	envStrictDecode     = EnvPrefix + "STRICT_DECODE"
	envIPv4MaxPrefix    = EnvPrefix + "IPV4_MAX_PREFIX"
	envIPv6MaxPrefix    = EnvPrefix + "IPV6_MAX_PREFIX"
)

// Config holds all configuration for a roam node.
type Config struct {
	Node    NodeConfig    `toml:"node"`
	Network NetworkConfig `toml:"network"`
	Token   TokenConfig   `toml:"token"`
}

// NodeConfig contains local storage settings.
type NodeConfig struct {
	// DataDir is the directory where persistent data is stored
	DataDir string `toml:"data_dir"`
	// NetworksDir holds one JSON file per network (relative to DataDir)
	NetworksDir string `toml:"networks_dir"`
}

// NetworkConfig contains the policy for new networks.
type NetworkConfig struct {
	// DefaultSubnet is used when no subnet is given for a new network
	DefaultSubnet string `toml:"default_subnet"`
	// IPv4MaxPrefix is the largest prefix length accepted for IPv4 subnets
	IPv4MaxPrefix uint8 `toml:"ipv4_max_prefix"`
	// IPv6MaxPrefix is the largest prefix length accepted for IPv6 subnets
	IPv6MaxPrefix uint8 `toml:"ipv6_max_prefix"`
	// KeyPrimitive is the key algorithm for new networks ("ed25519" or "x25519")
	KeyPrimitive string `toml:"key_primitive"`
}

// TokenConfig contains key token settings.
type TokenConfig struct {
	// StrictDecode rejects tokens with any malformed segment instead of
	// skipping it
	StrictDecode bool `toml:"strict_decode"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	homeDir, _ := os.UserHomeDir()
	dataDir := filepath.Join(homeDir, DefaultDataDirName)

	return &Config{
		Node: NodeConfig{
			DataDir:     dataDir,
			NetworksDir: DefaultNetworksDir,
		},
		Network: NetworkConfig{
			DefaultSubnet: DefaultSubnet,
			IPv4MaxPrefix: subnet.DefaultMaxIPv4Prefix,
			IPv6MaxPrefix: subnet.DefaultMaxIPv6Prefix,
			KeyPrimitive:  DefaultKeyPrimitive,
		},
		Token: TokenConfig{
			StrictDecode: DefaultStrictDecode,
		},
	}
}

// LoadConfig reads configuration from a TOML file and applies environment
// overrides. If the file doesn't exist, it starts from the defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	if err == nil {
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := cfg.ApplyEnvOverrides(); err != nil {
		return nil, fmt.Errorf("applying environment overrides: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// SaveConfig writes the configuration to a TOML file.
// It creates the parent directory if it doesn't exist.
func SaveConfig(cfg *Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}

// ApplyEnvOverrides replaces settings with ROAM_* environment variables
// where they are set.
func (c *Config) ApplyEnvOverrides() error {
	if v, ok := os.LookupEnv(envDataDir); ok {
		c.Node.DataDir = v
	}
	if v, ok := os.LookupEnv(envDefaultSubnet); ok {
		c.Network.DefaultSubnet = v
	}
	if v, ok := os.LookupEnv(envKeyPrimitive); ok {
		c.Network.KeyPrimitive = v
	}
	if v, ok := os.LookupEnv(envStrictDecode); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s: %w", envStrictDecode, err)
		}
		c.Token.StrictDecode = b
	}
	if v, ok := os.LookupEnv(envIPv4MaxPrefix); ok {
		n, err := strconv.ParseUint(v, 10, 8)
		if err != nil {
			return fmt.Errorf("%s: %w", envIPv4MaxPrefix, err)
		}
		c.Network.IPv4MaxPrefix = uint8(n)
	}
	if v, ok := os.LookupEnv(envIPv6MaxPrefix); ok {
		n, err := strconv.ParseUint(v, 10, 8)
		if err != nil {
			return fmt.Errorf("%s: %w", envIPv6MaxPrefix, err)
		}
		c.Network.IPv6MaxPrefix = uint8(n)
	}
	return nil
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Node.DataDir == "" {
		return errors.New("node.data_dir is required")
	}
	if c.Node.NetworksDir == "" {
		return errors.New("node.networks_dir is required")
	}
	if err := c.Bounds().Validate(); err != nil {
		return fmt.Errorf("network: %w", err)
	}
	if _, err := c.Primitive(); err != nil {
		return fmt.Errorf("network: %w", err)
	}
	if _, err := c.DefaultSubnetDescriptor(); err != nil {
		return fmt.Errorf("network.default_subnet: %w", err)
	}
	return nil
}

// Bounds returns the configured prefix-length bounds.
func (c *Config) Bounds() subnet.Bounds {
	return subnet.Bounds{
		MaxIPv4: c.Network.IPv4MaxPrefix,
		MaxIPv6: c.Network.IPv6MaxPrefix,
	}
}

// Primitive returns the configured key primitive.
func (c *Config) Primitive() (netkey.Primitive, error) {
	return netkey.ParsePrimitive(c.Network.KeyPrimitive)
}

// DefaultSubnetDescriptor parses the configured default subnet against the
// configured bounds. An empty setting means subnet.Default.
func (c *Config) DefaultSubnetDescriptor() (subnet.Descriptor, error) {
	d, err := c.Bounds().Parse(c.Network.DefaultSubnet)
	if err != nil {
		return subnet.Descriptor{}, err
	}
	if d == nil {
		return subnet.Default, nil
	}
	return *d, nil
}

// DecodePolicy returns the token decoding policy.
func (c *Config) DecodePolicy() netkey.DecodePolicy {
	if c.Token.StrictDecode {
		return netkey.Strict
	}
	return netkey.Lenient
}

// LoadOptions returns the options used to load saved network configs.
func (c *Config) LoadOptions() netconfig.LoadOptions {
	return netconfig.LoadOptions{
		Policy: c.DecodePolicy(),
		Bounds: c.Bounds(),
	}
}

// Assembler returns a network config assembler following this configuration.
func (c *Config) Assembler() (*netconfig.Assembler, error) {
	p, err := c.Primitive()
	if err != nil {
		return nil, err
	}
	def, err := c.DefaultSubnetDescriptor()
	if err != nil {
		return nil, err
	}
	return netconfig.NewAssembler(
		netconfig.WithGenerator(netkey.NewGenerator(p)),
		netconfig.WithBounds(c.Bounds()),
		netconfig.WithDefaultSubnet(def),
	), nil
}

// Store returns the network config store in the data directory.
func (c *Config) Store() *netconfig.Store {
	return netconfig.NewStore(c.NetworksDir(), c.LoadOptions())
}

// NetworksDir returns the absolute directory of saved network configs.
func (c *Config) NetworksDir() string {
	if filepath.IsAbs(c.Node.NetworksDir) {
		return c.Node.NetworksDir
	}
	return c.DataPath(c.Node.NetworksDir)
}

// DataPath returns an absolute path within the data directory.
func (c *Config) DataPath(elem ...string) string {
	parts := append([]string{c.Node.DataDir}, elem...)
	return filepath.Join(parts...)
}

// EnsureDataDir creates the data directory if it doesn't exist.
func (c *Config) EnsureDataDir() error {
	if err := os.MkdirAll(c.Node.DataDir, 0o700); err != nil {
		return apperrors.Wrap(apperrors.KindConfiguration, "creating data directory", err)
	}
	return nil
}
