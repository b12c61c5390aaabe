// Package config loads operator settings from a TOML file and secrets from
// the environment (optionally seeded from a .env file).
package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/element-fi/yieldforgood/go/mechanisms/evm/mint"
)

const (
	DefaultAddressBookDir = "addresses"
	DefaultArtifactsDir   = "artifacts"
	DefaultExplorerURL    = "https://api.etherscan.io/v2/api"
	DefaultVerifyDelay    = time.Minute
	DefaultExplorerRPS    = 4.0
)

// TokenConfig holds per-token operator settings.
type TokenConfig struct {
	// PermitName is the EIP-712 domain name the token hashes. Required for
	// tokens whose name() does not match it.
	PermitName string `toml:"permit_name"`
}

// Config is the operator configuration file.
type Config struct {
	// RPCURL overrides the Alchemy URL derived from the environment
	RPCURL string `toml:"rpc_url"`
	// AddressBookDir holds <network>.json address books (default: addresses)
	AddressBookDir string `toml:"address_book_dir"`
	// ArtifactsDir is the hardhat artifacts root (default: artifacts)
	ArtifactsDir string `toml:"artifacts_dir"`
	// MintSchema selects the proxy mint signature, v1 or v2 (default: v1)
	MintSchema string `toml:"mint_schema"`
	// VerifyDelay is how long to wait after a deployment before verifying (default: 1m)
	VerifyDelay time.Duration `toml:"verify_delay"`
	// ExplorerURL is the Etherscan-compatible API endpoint
	ExplorerURL string `toml:"explorer_url"`
	// ExplorerRPS caps explorer requests per second (default: 4)
	ExplorerRPS float64 `toml:"explorer_rps"`
	// AllowMainnet enables mainnet flows once a mainnet address book exists
	AllowMainnet bool `toml:"allow_mainnet"`

	Tokens map[string]TokenConfig `toml:"tokens"`
}

// Default returns a config with every default applied.
func Default() *Config {
	return &Config{
		AddressBookDir: DefaultAddressBookDir,
		ArtifactsDir:   DefaultArtifactsDir,
		MintSchema:     "v1",
		VerifyDelay:    DefaultVerifyDelay,
		ExplorerURL:    DefaultExplorerURL,
		ExplorerRPS:    DefaultExplorerRPS,
		Tokens:         map[string]TokenConfig{},
	}
}

// Load reads path over the defaults. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	return Parse(string(data))
}

// Parse decodes TOML over the defaults and validates the result.
func Parse(data string) (*Config, error) {
	cfg := Default()
	md, err := toml.Decode(data, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("unknown config keys: %s", strings.Join(keys, ", "))
	}
	if cfg.Tokens == nil {
		cfg.Tokens = map[string]TokenConfig{}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks if the config has all required fields
func (c *Config) Validate() error {
	if c.AddressBookDir == "" {
		return ErrMissingAddressBookDir
	}
	if c.ArtifactsDir == "" {
		return ErrMissingArtifactsDir
	}
	if _, err := mint.ParseSchema(c.MintSchema); err != nil {
		return ErrInvalidMintSchema
	}
	if c.VerifyDelay < 0 {
		return ErrNegativeVerifyDelay
	}
	if c.ExplorerURL != "" {
		u, err := url.Parse(c.ExplorerURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return ErrInvalidExplorerURL
		}
	}
	return nil
}

// Schema returns the configured mint schema.
func (c *Config) Schema() mint.Schema {
	schema, err := mint.ParseSchema(c.MintSchema)
	if err != nil {
		return mint.SchemaV1
	}
	return schema
}

// GetExplorerURL returns the explorer endpoint, defaulting to Etherscan
func (c *Config) GetExplorerURL() string {
	if c.ExplorerURL == "" {
		return DefaultExplorerURL
	}
	return c.ExplorerURL
}

// GetExplorerRPS returns the explorer rate limit, defaulting to 4 per second
func (c *Config) GetExplorerRPS() float64 {
	if c.ExplorerRPS <= 0 {
		return DefaultExplorerRPS
	}
	return c.ExplorerRPS
}

// PermitName returns the configured permit domain name for symbol, if any.
func (c *Config) PermitName(symbol string) (string, bool) {
	tc, ok := c.Tokens[strings.ToLower(symbol)]
	if !ok || tc.PermitName == "" {
		return "", false
	}
	return tc.PermitName, true
}
