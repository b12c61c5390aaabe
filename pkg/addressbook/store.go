package addressbook

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/ethereum/go-ethereum/log"
)

// ErrNotFound is returned when a network has no address book file.
var ErrNotFound = errors.New("address book not found")

// FileStore keeps one <network>.json file per network in a directory.
type FileStore struct {
	dir    string
	logger log.Logger
	mu     sync.Mutex
}

// NewFileStore returns a store rooted at dir. A nil logger uses log.Root().
func NewFileStore(dir string, logger log.Logger) *FileStore {
	if logger == nil {
		logger = log.Root()
	}
	return &FileStore{dir: dir, logger: logger}
}

// Path returns the file backing network.
func (s *FileStore) Path(network string) string {
	return filepath.Join(s.dir, network+".json")
}

// Load reads, schema-checks and validates the address book for network.
func (s *FileStore) Load(network string) (*Addresses, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.Path(network)
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	addresses, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	s.logger.Debug("loaded address book", "network", network, "path", path,
		"tokens", len(addresses.Tokens), "tranches", len(addresses.Tranches))
	return addresses, nil
}

// Save validates addresses and writes them tab-indented, replacing the
// previous file atomically.
func (s *FileStore) Save(network string, addresses *Addresses) error {
	if err := addresses.Validate(); err != nil {
		return fmt.Errorf("refusing to save invalid address book: %w", err)
	}
	data, err := Encode(addresses)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", s.dir, err)
	}

	path := s.Path(network)
	tmp, err := os.CreateTemp(s.dir, "."+network+"-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %s: %w", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}

	s.logger.Info("writing changed addresses", "network", network, "path", path)
	return nil
}

// Decode parses and validates an address book document.
func Decode(data []byte) (*Addresses, error) {
	if err := ValidateDocument(data); err != nil {
		return nil, err
	}
	var addresses Addresses
	if err := json.Unmarshal(data, &addresses); err != nil {
		return nil, fmt.Errorf("failed to decode address book: %w", err)
	}
	addresses.init()
	if err := addresses.Validate(); err != nil {
		return nil, err
	}
	return &addresses, nil
}

// Encode renders addresses as tab-indented JSON.
func Encode(addresses *Addresses) ([]byte, error) {
	data, err := json.MarshalIndent(addresses, "", "\t")
	if err != nil {
		return nil, fmt.Errorf("failed to encode address book: %w", err)
	}
	return append(data, '\n'), nil
}
