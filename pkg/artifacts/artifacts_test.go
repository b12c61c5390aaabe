package artifacts

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"
)

// writeFixture lays out a minimal hardhat artifacts tree for name.
func writeFixture(t *testing.T, name, bytecode string) string {
	t.Helper()
	root := t.TempDir()
	contractDir := filepath.Join(root, "contracts", name+".sol")
	require.NoError(t, os.MkdirAll(contractDir, 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "build-info"), 0o755))

	artifact := `{
		"contractName": "` + name + `",
		"sourceName": "contracts/` + name + `.sol",
		"abi": [{"inputs":[],"stateMutability":"nonpayable","type":"constructor"}],
		"bytecode": "` + bytecode + `"
	}`
	require.NoError(t, os.WriteFile(filepath.Join(contractDir, name+".json"), []byte(artifact), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(contractDir, name+".dbg.json"),
		[]byte(`{"_format": "hh-sol-dbg-1", "buildInfo": "../../build-info/abc123.json"}`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "build-info", "abc123.json"),
		[]byte(`{"solcVersion": "0.8.15", "solcLongVersion": "0.8.15+commit.e14f2714", "input": {"language": "Solidity", "sources": {}}}`), 0o644))
	return root
}

func TestLoad(t *testing.T) {
	root := writeFixture(t, "UserProxy", "0x6080604052")
	store := NewStore(root)

	artifact, err := store.Load("UserProxy")
	require.NoError(t, err)
	require.Equal(t, "UserProxy", artifact.ContractName)
	require.Equal(t, "contracts/UserProxy.sol:UserProxy", artifact.FullyQualifiedName())

	code, err := artifact.Code()
	require.NoError(t, err)
	require.Equal(t, []byte{0x60, 0x80, 0x60, 0x40, 0x52}, code)

	hash, err := artifact.CodeHash()
	require.NoError(t, err)
	require.Equal(t, crypto.Keccak256(code), hash[:])
}

func TestLoadMissing(t *testing.T) {
	root := writeFixture(t, "UserProxy", "0x00")
	_, err := NewStore(root).Load("Tranche")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestCodeRejectsEmptyBytecode(t *testing.T) {
	root := writeFixture(t, "IERC20", "0x")
	artifact, err := NewStore(root).Load("IERC20")
	require.NoError(t, err)
	_, err = artifact.Code()
	require.Error(t, err)
}

func TestBuildInfo(t *testing.T) {
	root := writeFixture(t, "UserProxy", "0x00")
	store := NewStore(root)

	artifact, err := store.Load("UserProxy")
	require.NoError(t, err)

	info, err := store.BuildInfo(artifact)
	require.NoError(t, err)
	require.Equal(t, "0.8.15+commit.e14f2714", info.SolcLongVersion)
	require.JSONEq(t, `{"language": "Solidity", "sources": {}}`, string(info.Input))

	_, err = store.BuildInfo(&Artifact{ContractName: "Detached"})
	require.Error(t, err)
}
