// Package artifacts reads hardhat compilation output: contract artifacts and
// the build-info files needed for explorer verification.
package artifacts

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// ErrNotFound is returned when no artifact exists for a contract name.
var ErrNotFound = errors.New("artifact not found")

// Artifact is a hardhat contract artifact.
type Artifact struct {
	ContractName string          `json:"contractName"`
	SourceName   string          `json:"sourceName"`
	ABI          json.RawMessage `json:"abi"`
	Bytecode     string          `json:"bytecode"`

	path string
}

// Code decodes the creation bytecode.
func (a *Artifact) Code() ([]byte, error) {
	if a.Bytecode == "" || a.Bytecode == "0x" {
		return nil, fmt.Errorf("%s has no bytecode (abstract contract or interface?)", a.ContractName)
	}
	code, err := hexutil.Decode(a.Bytecode)
	if err != nil {
		return nil, fmt.Errorf("invalid bytecode in %s: %w", a.path, err)
	}
	return code, nil
}

// CodeHash returns keccak256 of the creation bytecode.
func (a *Artifact) CodeHash() ([32]byte, error) {
	code, err := a.Code()
	if err != nil {
		return [32]byte{}, err
	}
	var hash [32]byte
	copy(hash[:], crypto.Keccak256(code))
	return hash, nil
}

// FullyQualifiedName returns "<sourceName>:<contractName>".
func (a *Artifact) FullyQualifiedName() string {
	return a.SourceName + ":" + a.ContractName
}

// BuildInfo is the compiler input and version a contract was built with.
type BuildInfo struct {
	SolcVersion     string          `json:"solcVersion"`
	SolcLongVersion string          `json:"solcLongVersion"`
	Input           json.RawMessage `json:"input"`
}

type debugFile struct {
	BuildInfo string `json:"buildInfo"`
}

// Store looks artifacts up under a hardhat artifacts directory.
type Store struct {
	root string
}

// NewStore returns a Store rooted at dir (usually "artifacts").
func NewStore(dir string) *Store {
	return &Store{root: dir}
}

// Load returns the artifact for contract name, found at
// <root>/**/<name>.sol/<name>.json.
func (s *Store) Load(name string) (*Artifact, error) {
	path, err := s.find(name)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	var artifact Artifact
	if err := json.Unmarshal(data, &artifact); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	artifact.path = path
	return &artifact, nil
}

// BuildInfo returns the build info referenced by the artifact's .dbg.json file.
func (s *Store) BuildInfo(artifact *Artifact) (*BuildInfo, error) {
	if artifact.path == "" {
		return nil, fmt.Errorf("artifact %s was not loaded from disk", artifact.ContractName)
	}
	dbgPath := strings.TrimSuffix(artifact.path, ".json") + ".dbg.json"
	data, err := os.ReadFile(dbgPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", dbgPath, err)
	}
	var dbg debugFile
	if err := json.Unmarshal(data, &dbg); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", dbgPath, err)
	}

	infoPath := filepath.Join(filepath.Dir(dbgPath), filepath.FromSlash(dbg.BuildInfo))
	data, err = os.ReadFile(infoPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read build info %s: %w", infoPath, err)
	}
	var info BuildInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, fmt.Errorf("failed to decode build info %s: %w", infoPath, err)
	}
	if len(info.Input) == 0 || info.SolcLongVersion == "" {
		return nil, fmt.Errorf("build info %s is missing compiler input or version", infoPath)
	}
	return &info, nil
}

func (s *Store) find(name string) (string, error) {
	want := filepath.Join(name+".sol", name+".json")
	var found string
	err := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() && d.Name() == "build-info" {
			return filepath.SkipDir
		}
		if !d.IsDir() && strings.HasSuffix(path, string(filepath.Separator)+want) {
			found = path
			return fs.SkipAll
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to search %s: %w", s.root, err)
	}
	if found == "" {
		return "", fmt.Errorf("%w: %s under %s", ErrNotFound, name, s.root)
	}
	return found, nil
}
