package tokenmetadata

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/element-fi/yieldforgood/go/mechanisms/evm"
)

var (
	usdc  = common.HexToAddress("0x1c7D4B196Cb0C7B01d743Fbc6116a902379C7238")
	owner = common.HexToAddress("0x9999999999999999999999999999999999999999")
)

type fakeChain struct {
	results map[string]interface{}
	calls   map[string]int
}

func newFakeChain(results map[string]interface{}) *fakeChain {
	return &fakeChain{results: results, calls: map[string]int{}}
}

func (f *fakeChain) GetChainID(context.Context) (*big.Int, error) {
	return big.NewInt(11155111), nil
}

func (f *fakeChain) ReadContract(_ context.Context, _ string, _ []byte, fn string, _ ...interface{}) (interface{}, error) {
	f.calls[fn]++
	out, ok := f.results[fn]
	if !ok {
		return nil, errors.New("execution reverted")
	}
	return out, nil
}

func (f *fakeChain) WriteContract(context.Context, string, []byte, string, evm.TxOptions, ...interface{}) (string, error) {
	return "", errors.New("read only")
}

func (f *fakeChain) DeployContract(context.Context, []byte, []byte, evm.TxOptions, ...interface{}) (string, common.Address, error) {
	return "", common.Address{}, errors.New("read only")
}

func (f *fakeChain) WaitForTransactionReceipt(context.Context, string) (*evm.TransactionReceipt, error) {
	return nil, errors.New("read only")
}

func TestNonceIsNeverCached(t *testing.T) {
	chain := newFakeChain(map[string]interface{}{evm.FunctionNonces: big.NewInt(7)})
	c := NewClient(chain)

	for i := 0; i < 2; i++ {
		nonce, err := c.Nonce(context.Background(), usdc, owner)
		require.NoError(t, err)
		require.Equal(t, int64(7), nonce.Int64())
	}
	require.Equal(t, 2, chain.calls[evm.FunctionNonces])
}

func TestNonceRejectsUnexpectedResult(t *testing.T) {
	var missing *big.Int
	chain := newFakeChain(map[string]interface{}{evm.FunctionNonces: missing})
	_, err := NewClient(chain).Nonce(context.Background(), usdc, owner)
	require.ErrorIs(t, err, ErrUnexpectedResult)

	chain = newFakeChain(map[string]interface{}{evm.FunctionNonces: "3"})
	_, err = NewClient(chain).Nonce(context.Background(), usdc, owner)
	require.ErrorIs(t, err, ErrUnexpectedResult)
}

func TestNonceReadError(t *testing.T) {
	_, err := NewClient(newFakeChain(nil)).Nonce(context.Background(), usdc, owner)
	require.ErrorContains(t, err, "execution reverted")
}

func TestDecimalsCached(t *testing.T) {
	chain := newFakeChain(map[string]interface{}{evm.FunctionDecimals: uint8(6)})
	c := NewClient(chain)

	for i := 0; i < 3; i++ {
		decimals, err := c.Decimals(context.Background(), usdc)
		require.NoError(t, err)
		require.Equal(t, uint8(6), decimals)
	}
	require.Equal(t, 1, chain.calls[evm.FunctionDecimals])
}

func TestDecimalsUnexpectedType(t *testing.T) {
	chain := newFakeChain(map[string]interface{}{evm.FunctionDecimals: big.NewInt(6)})
	_, err := NewClient(chain).Decimals(context.Background(), usdc)
	require.ErrorIs(t, err, ErrUnexpectedResult)
}

func TestGetMetadata(t *testing.T) {
	chain := newFakeChain(map[string]interface{}{
		evm.FunctionDecimals: uint8(6),
		evm.FunctionName:     " USDC 2024-06-30 ",
	})
	c := NewClient(chain)

	md, err := c.GetMetadata(context.Background(), usdc)
	require.NoError(t, err)
	require.Equal(t, &TokenMetadata{Address: usdc, Name: "USDC 2024-06-30", Decimals: 6}, md)

	md.Name = "mutated"
	again, err := c.GetMetadata(context.Background(), usdc)
	require.NoError(t, err)
	require.Equal(t, "USDC 2024-06-30", again.Name)
	require.Equal(t, 1, chain.calls[evm.FunctionName])
	require.Equal(t, 1, chain.calls[evm.FunctionDecimals])
}

func TestGetMetadataNameError(t *testing.T) {
	chain := newFakeChain(map[string]interface{}{evm.FunctionDecimals: uint8(18)})
	c := NewClient(chain)

	_, err := c.GetMetadata(context.Background(), usdc)
	require.Error(t, err)

	decimals, err := c.Decimals(context.Background(), usdc)
	require.NoError(t, err)
	require.Equal(t, uint8(18), decimals)
	require.Equal(t, 1, chain.calls[evm.FunctionDecimals])
}
