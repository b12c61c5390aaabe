package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// LoadDotEnv seeds the environment from files (default .env). Variables that
// are already set win, and missing files are ignored.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to load %s: %w", f, err)
		}
	}
	return nil
}

// Env holds the secrets for one network.
type Env struct {
	Network         string
	PrivateKey      string
	AlchemyAPIKey   string
	EtherscanAPIKey string
}

// NetworkEnv reads <NETWORK>_DEPLOYER_PRIVATE_KEY, ALCHEMY_<NETWORK>_API_KEY and
// ETHERSCAN_API_KEY.
func NetworkEnv(network string) Env {
	upper := strings.ToUpper(network)
	return Env{
		Network:         network,
		PrivateKey:      os.Getenv(upper + "_DEPLOYER_PRIVATE_KEY"),
		AlchemyAPIKey:   os.Getenv("ALCHEMY_" + upper + "_API_KEY"),
		EtherscanAPIKey: os.Getenv("ETHERSCAN_API_KEY"),
	}
}

// RequirePrivateKey returns the deployer key or ErrMissingPrivateKey.
func (e Env) RequirePrivateKey() (string, error) {
	if e.PrivateKey == "" {
		return "", fmt.Errorf("%w: set %s_DEPLOYER_PRIVATE_KEY", ErrMissingPrivateKey, strings.ToUpper(e.Network))
	}
	return e.PrivateKey, nil
}

// RPCURL returns override when set, else the Alchemy endpoint for the network.
func (e Env) RPCURL(override string) (string, error) {
	if override != "" {
		return override, nil
	}
	if e.AlchemyAPIKey == "" {
		return "", fmt.Errorf("%w: set ALCHEMY_%s_API_KEY or rpc_url", ErrMissingRPC, strings.ToUpper(e.Network))
	}
	return fmt.Sprintf("https://eth-%s.g.alchemy.com/v2/%s", e.Network, e.AlchemyAPIKey), nil
}
