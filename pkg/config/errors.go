package config

import "errors"

// Config validation errors
var (
	ErrMissingAddressBookDir = errors.New("config: address_book_dir is required")
	ErrMissingArtifactsDir   = errors.New("config: artifacts_dir is required")
	ErrInvalidMintSchema     = errors.New("config: mint_schema must be v1 or v2")
	ErrInvalidExplorerURL    = errors.New("config: explorer_url must be an http(s) URL")
	ErrNegativeVerifyDelay   = errors.New("config: verify_delay must not be negative")
)

// Environment errors
var (
	ErrMissingPrivateKey = errors.New("config: deployer private key is not set")
	ErrMissingRPC        = errors.New("config: no rpc url and no alchemy api key")
)
