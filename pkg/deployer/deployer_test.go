package deployer

import (
	"context"
	"encoding/json"
	"io"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/params"
	"github.com/stretchr/testify/require"

	"github.com/element-fi/yieldforgood/go/mechanisms/evm"
	"github.com/element-fi/yieldforgood/go/pkg/artifacts"
	"github.com/element-fi/yieldforgood/go/pkg/prompt"
)

const userProxyABI = `[{"type":"constructor","inputs":[
	{"name":"_weth","type":"address"},
	{"name":"_trancheFactory","type":"address"},
	{"name":"_trancheBytecodeHash","type":"bytes32"}],"stateMutability":"nonpayable"}]`

type fakeLoader map[string]*artifacts.Artifact

func (f fakeLoader) Load(name string) (*artifacts.Artifact, error) {
	a, ok := f[name]
	if !ok {
		return nil, artifacts.ErrNotFound
	}
	return a, nil
}

func testLoader() fakeLoader {
	return fakeLoader{
		UserProxyContract: {
			ContractName: UserProxyContract,
			SourceName:   "contracts/UserProxy.sol",
			ABI:          json.RawMessage(userProxyABI),
			Bytecode:     "0x6080",
		},
		TrancheContract: {
			ContractName: TrancheContract,
			SourceName:   "contracts/Tranche.sol",
			ABI:          json.RawMessage(`[]`),
			Bytecode:     "0x60806040",
		},
	}
}

type fakeChain struct {
	deployOpts evm.TxOptions
	deployArgs []interface{}
	status     uint64
	logs       []evm.Log

	writeTo   string
	writeFn   string
	writeOpts evm.TxOptions
	writeArgs []interface{}
}

func (f *fakeChain) GetChainID(context.Context) (*big.Int, error) {
	return big.NewInt(11155111), nil
}

func (f *fakeChain) ReadContract(context.Context, string, []byte, string, ...interface{}) (interface{}, error) {
	return nil, nil
}

func (f *fakeChain) WriteContract(_ context.Context, address string, _ []byte, fn string, opts evm.TxOptions, args ...interface{}) (string, error) {
	f.writeTo, f.writeFn, f.writeOpts, f.writeArgs = address, fn, opts, args
	return "0xtranche", nil
}

func (f *fakeChain) DeployContract(_ context.Context, _ []byte, _ []byte, opts evm.TxOptions, args ...interface{}) (string, common.Address, error) {
	f.deployOpts = opts
	f.deployArgs = args
	return "0xdeploy", common.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3"), nil
}

func (f *fakeChain) WaitForTransactionReceipt(context.Context, string) (*evm.TransactionReceipt, error) {
	return &evm.TransactionReceipt{Status: f.status, BlockNumber: 7, TxHash: "0xdeploy", Logs: f.logs}, nil
}

type recordingAnnouncer struct {
	events []string
}

func (r *recordingAnnouncer) DeployContract(name string) {
	r.events = append(r.events, "deploying "+name)
}

func (r *recordingAnnouncer) SuccessfulDeploy(name, address string) {
	r.events = append(r.events, "deployed "+name+" at "+address)
}

func TestDeployUserProxy(t *testing.T) {
	chain := &fakeChain{status: evm.TxStatusSuccess}
	loader := testLoader()
	answers := prompt.NewScripted("1.5")
	announcer := &recordingAnnouncer{}
	d := New(chain, loader, answers, WithLogger(log.New(log.JSONHandler(io.Discard))), WithAnnouncer(announcer))

	weth := common.HexToAddress("0x7b79995e5f793A07Bc00c21412e50Ecae098E7f9")
	factory := common.HexToAddress("0x0000000000000000000000000000000000000f00")
	data, err := UserProxyParams(loader, weth, factory)
	require.NoError(t, err)
	require.Equal(t, crypto.Keccak256Hash(common.FromHex("0x60806040")), common.Hash(data.TrancheBytecodeHash))

	deployment, err := d.DeployUserProxy(context.Background(), weth, factory)
	require.NoError(t, err)
	require.Equal(t, common.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3"), deployment.Address)
	require.Equal(t, uint64(7), deployment.BlockNumber)
	require.Len(t, deployment.ConstructorArgs, 96)
	require.Equal(t, common.LeftPadBytes(weth.Bytes(), 32), deployment.ConstructorArgs[:32])

	wantFee := new(big.Int).Mul(big.NewInt(15), big.NewInt(params.GWei/10))
	require.Equal(t, 0, wantFee.Cmp(chain.deployOpts.GasFeeCap))
	require.Equal(t, []interface{}{weth, factory, data.TrancheBytecodeHash}, chain.deployArgs)
	require.Equal(t, []string{"user proxy gasPrice: "}, answers.Asked())
	require.Equal(t, []string{
		"deploying User Proxy",
		"deployed User Proxy at 0x5FbDB2315678afecb367f032d93F642f64180aa3",
	}, announcer.events)
}

func TestDeployRejectsBadGasPrice(t *testing.T) {
	for _, answer := range []string{"abc", "0", "-1"} {
		t.Run(answer, func(t *testing.T) {
			chain := &fakeChain{status: evm.TxStatusSuccess}
			d := New(chain, testLoader(), prompt.NewScripted(answer))
			_, err := d.DeployUserProxy(context.Background(), common.Address{}, common.Address{})
			require.Error(t, err)
			require.Nil(t, chain.deployArgs)
		})
	}
}

func TestDeployReverted(t *testing.T) {
	d := New(&fakeChain{status: evm.TxStatusFailed}, testLoader(), prompt.NewScripted("2"))
	_, err := d.DeployUserProxy(context.Background(), common.Address{}, common.Address{})
	require.ErrorIs(t, err, ErrDeploymentReverted)
}

func TestDeployMissingArtifact(t *testing.T) {
	d := New(&fakeChain{}, fakeLoader{}, prompt.NewScripted())
	_, err := d.Deploy(context.Background(), "Missing", "missing")
	require.ErrorIs(t, err, artifacts.ErrNotFound)
}

func trancheCreatedLog(factory, tranche, wp common.Address, expiration int64) evm.Log {
	return evm.Log{
		Address: factory,
		Topics: []common.Hash{
			evm.TrancheCreatedTopic,
			common.BytesToHash(tranche.Bytes()),
			common.BytesToHash(wp.Bytes()),
			common.BigToHash(big.NewInt(expiration)),
		},
	}
}

func TestDeployTranche(t *testing.T) {
	factory := common.HexToAddress("0x0000000000000000000000000000000000000f00")
	wp := common.HexToAddress("0xaAaAaAaaAaAaAaaAaAAAAAAAAaaaAaAaAaaAaaAa")
	tranche := common.HexToAddress("0x4444444444444444444444444444444444444444")
	other := common.HexToAddress("0x0000000000000000000000000000000000000bad")

	chain := &fakeChain{
		status: evm.TxStatusSuccess,
		logs: []evm.Log{
			trancheCreatedLog(other, other, wp, 1),
			{Address: factory, Topics: []common.Hash{crypto.Keccak256Hash([]byte("Transfer(address,address,uint256)"))}},
			trancheCreatedLog(factory, tranche, wp, 1_800_000_000),
		},
	}
	answers := prompt.NewScripted("3")
	announcer := &recordingAnnouncer{}
	d := New(chain, testLoader(), answers, WithAnnouncer(announcer))

	deployment, err := d.DeployTranche(context.Background(), factory, wp, big.NewInt(1_800_000_000))
	require.NoError(t, err)
	require.Equal(t, tranche, deployment.Address)
	require.Equal(t, TrancheContract, deployment.Contract)
	require.Equal(t, "0xtranche", deployment.TxHash)
	require.Empty(t, deployment.ConstructorArgs)

	require.Equal(t, factory.Hex(), chain.writeTo)
	require.Equal(t, evm.FunctionDeployTranche, chain.writeFn)
	require.Equal(t, []interface{}{big.NewInt(1_800_000_000), wp}, chain.writeArgs)
	require.Equal(t, 0, big.NewInt(3*params.GWei).Cmp(chain.writeOpts.GasFeeCap))
	require.Equal(t, []string{"tranche gasPrice: "}, answers.Asked())
	require.Equal(t, []string{
		"deploying Tranche",
		"deployed Tranche at " + tranche.Hex(),
	}, announcer.events)
}

func TestDeployTrancheWithoutEvent(t *testing.T) {
	chain := &fakeChain{status: evm.TxStatusSuccess}
	d := New(chain, testLoader(), prompt.NewScripted("1"))
	_, err := d.DeployTranche(context.Background(), common.HexToAddress("0x0f00"), common.HexToAddress("0x0aaa"), big.NewInt(1))
	require.ErrorIs(t, err, ErrNoTrancheCreated)
}

func TestDeployTrancheReverted(t *testing.T) {
	d := New(&fakeChain{status: evm.TxStatusFailed}, testLoader(), prompt.NewScripted("1"))
	_, err := d.DeployTranche(context.Background(), common.HexToAddress("0x0f00"), common.HexToAddress("0x0aaa"), big.NewInt(1))
	require.ErrorIs(t, err, ErrDeploymentReverted)
}
