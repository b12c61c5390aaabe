package y4g

import (
	"context"
	"errors"
	"io"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"

	"github.com/element-fi/yieldforgood/go/pkg/addressbook"
	"github.com/element-fi/yieldforgood/go/pkg/deployer"
)

type fixedChain int64

func (c fixedChain) GetChainID(context.Context) (*big.Int, error) {
	return big.NewInt(int64(c)), nil
}

type headChain struct {
	fixedChain
	head time.Time
}

func (c headChain) LatestBlockTime(context.Context) (time.Time, error) {
	return c.head, nil
}

type mockDeployer struct {
	weth, factory common.Address
	calls         int

	position   common.Address
	expiration *big.Int
}

func (m *mockDeployer) DeployUserProxy(_ context.Context, weth, trancheFactory common.Address) (*deployer.Deployment, error) {
	m.calls++
	m.weth, m.factory = weth, trancheFactory
	return &deployer.Deployment{
		Contract:        deployer.UserProxyContract,
		Address:         common.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3"),
		TxHash:          "0xdeploy",
		ConstructorArgs: []byte{0x01},
	}, nil
}

func (m *mockDeployer) DeployTranche(_ context.Context, factory, wrappedPosition common.Address, expiration *big.Int) (*deployer.Deployment, error) {
	m.calls++
	m.factory, m.position, m.expiration = factory, wrappedPosition, expiration
	return &deployer.Deployment{
		Contract: deployer.TrancheContract,
		Address:  common.HexToAddress("0x9999999999999999999999999999999999999999"),
		TxHash:   "0xtranche",
	}, nil
}

type mockVerifier struct {
	contract string
	address  common.Address
	args     []byte
	err      error
}

func (m *mockVerifier) Verify(_ context.Context, contractName string, address common.Address, ctorArgs []byte) error {
	m.contract, m.address, m.args = contractName, address, ctorArgs
	return m.err
}

func TestProxyDeploymentRecordsAndVerifies(t *testing.T) {
	book := &memBook{books: map[string]*addressbook.Addresses{"sepolia": testAddresses()}}
	dep := &mockDeployer{}
	ver := &mockVerifier{}
	var waited time.Duration

	flow := NewProxyDeployment(fixedChain(11155111), book, dep,
		WithDeploymentLogger(log.New(log.JSONHandler(io.Discard))),
		WithVerifier(ver, time.Minute, func(_ context.Context, d time.Duration) error {
			waited = d
			return nil
		}),
	)

	deployment, err := flow.Run(context.Background())
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if dep.weth != common.HexToAddress("0x7b79995e5f793A07Bc00c21412e50Ecae098E7f9") ||
		dep.factory != common.HexToAddress("0x3333333333333333333333333333333333333333") {
		t.Fatalf("Unexpected constructor inputs: %s %s", dep.weth, dep.factory)
	}
	saved := book.saved["sepolia"]
	if saved == nil || saved.UserProxy != deployment.Address.Hex() {
		t.Fatal("Expected user proxy to be recorded")
	}
	if waited != time.Minute {
		t.Fatalf("Expected a one minute wait, got %v", waited)
	}
	if ver.contract != "UserProxy" || ver.address != deployment.Address || len(ver.args) != 1 {
		t.Fatalf("Unexpected verification: %+v", ver)
	}
	if deployment.Network != "sepolia" {
		t.Fatalf("Expected sepolia, got %q", deployment.Network)
	}
}

func TestProxyDeploymentVerifyFailureKeepsAddress(t *testing.T) {
	book := &memBook{books: map[string]*addressbook.Addresses{"sepolia": testAddresses()}}
	ver := &mockVerifier{err: errors.New("explorer down")}
	flow := NewProxyDeployment(fixedChain(11155111), book, &mockDeployer{},
		WithVerifier(ver, 0, func(context.Context, time.Duration) error { return nil }))

	deployment, err := flow.Run(context.Background())
	if err == nil || deployment == nil {
		t.Fatalf("Expected deployment and error, got %v %v", deployment, err)
	}
	assertCode(t, err, ErrCodeVerificationFailed)
	if book.saved["sepolia"] == nil {
		t.Fatal("Expected address book to be saved before verification")
	}
}

func TestProxyDeploymentGate(t *testing.T) {
	for _, id := range []int64{1, 5, 10} {
		dep := &mockDeployer{}
		flow := NewProxyDeployment(fixedChain(id), &memBook{}, dep)
		_, err := flow.Run(context.Background())
		assertCode(t, err, ErrCodeUnsupportedNetwork)
		if dep.calls != 0 {
			t.Fatalf("Expected no deployment on chain %d", id)
		}
	}
}

func TestProxyDeploymentMissingWETH(t *testing.T) {
	addresses := testAddresses()
	delete(addresses.Tokens, "weth")
	dep := &mockDeployer{}
	flow := NewProxyDeployment(fixedChain(11155111), &memBook{books: map[string]*addressbook.Addresses{"sepolia": addresses}}, dep)

	_, err := flow.Run(context.Background())
	assertCode(t, err, ErrCodeMissingPrerequisite)
	if dep.calls != 0 {
		t.Fatal("Expected no deployment without weth")
	}
}

func TestProxyDeploymentSaveFailure(t *testing.T) {
	cause := errors.New("read-only file system")
	book := &memBook{books: map[string]*addressbook.Addresses{"sepolia": testAddresses()}, saveErr: cause}
	ver := &mockVerifier{}
	flow := NewProxyDeployment(fixedChain(11155111), book, &mockDeployer{},
		WithVerifier(ver, 0, func(context.Context, time.Duration) error { return nil }))

	deployment, err := flow.Run(context.Background())
	assertCode(t, err, ErrCodeRecordFailed)
	if !errors.Is(err, cause) {
		t.Fatalf("Expected wrapped cause, got %v", err)
	}
	if deployment != nil {
		t.Fatal("Expected no result when the address book was not written")
	}
	if ver.contract != "" {
		t.Fatal("Expected no verification of an unrecorded deployment")
	}
}

func TestProxyDeploymentWaitCancelled(t *testing.T) {
	book := &memBook{books: map[string]*addressbook.Addresses{"sepolia": testAddresses()}}
	ver := &mockVerifier{}
	flow := NewProxyDeployment(fixedChain(11155111), book, &mockDeployer{},
		WithVerifier(ver, time.Minute, func(context.Context, time.Duration) error { return context.Canceled }))

	deployment, err := flow.Run(context.Background())
	assertCode(t, err, ErrCodeAborted)
	if deployment == nil || book.saved["sepolia"] == nil {
		t.Fatal("Expected recorded deployment")
	}
	if ver.contract != "" {
		t.Fatal("Expected no verification after cancel")
	}
}

func TestTrancheDeploymentRecordsAndVerifies(t *testing.T) {
	book := &memBook{books: map[string]*addressbook.Addresses{"sepolia": testAddresses()}}
	dep := &mockDeployer{}
	ver := &mockVerifier{}
	chain := headChain{fixedChain: 11155111, head: time.Unix(1_750_000_000, 0)}

	flow := NewTrancheDeployment(chain, book, dep,
		WithDeploymentLogger(log.New(log.JSONHandler(io.Discard))),
		WithVerifier(ver, 0, func(context.Context, time.Duration) error { return nil }),
	)
	result, err := flow.Run(context.Background(), TrancheRequest{Symbol: "USDC", Duration: 6 * time.Hour})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if result.Network != "sepolia" || result.Address != common.HexToAddress("0x9999999999999999999999999999999999999999") {
		t.Fatalf("Unexpected result: %+v", result)
	}

	wantExpiration := int64(1_750_000_000 + 6*3600)
	if dep.factory != common.HexToAddress("0x3333333333333333333333333333333333333333") ||
		dep.position != testPosition || dep.expiration.Int64() != wantExpiration {
		t.Fatalf("Unexpected factory call: %s %s %v", dep.factory, dep.position, dep.expiration)
	}

	saved := book.saved["sepolia"]
	if saved == nil {
		t.Fatal("Expected address book to be saved")
	}
	recorded, err := saved.FindTranche("usdc", wantExpiration)
	if err != nil {
		t.Fatalf("Expected recorded tranche: %v", err)
	}
	want := addressbook.Tranche{
		Address:         "0x9999999999999999999999999999999999999999",
		Expiration:      wantExpiration,
		TrancheFactory:  "0x3333333333333333333333333333333333333333",
		DonationAddress: testDonation.Hex(),
	}
	if recorded != want {
		t.Fatalf("Unexpected tranche record: %+v", recorded)
	}
	if ver.contract != "Tranche" || ver.address != result.Address || len(ver.args) != 0 {
		t.Fatalf("Unexpected verification: %+v", ver)
	}
}

func TestTrancheDeploymentCustomDonation(t *testing.T) {
	book := &memBook{books: map[string]*addressbook.Addresses{"sepolia": testAddresses()}}
	donation := common.HexToAddress("0x1212121212121212121212121212121212121212")
	flow := NewTrancheDeployment(headChain{fixedChain: 11155111, head: testNow}, book, &mockDeployer{})

	result, err := flow.Run(context.Background(), TrancheRequest{Symbol: "usdc", Duration: 15 * time.Minute, DonationAddress: donation})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	recorded, err := book.saved["sepolia"].FindTranche("usdc", testNow.Unix()+900)
	if err != nil {
		t.Fatalf("Expected recorded tranche: %v", err)
	}
	if recorded.DonationAddress != donation.Hex() || recorded.Address != result.Address.Hex() {
		t.Fatalf("Unexpected tranche record: %+v", recorded)
	}
}

func TestTrancheDeploymentPrerequisites(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*addressbook.Addresses)
		req    TrancheRequest
	}{
		{"no tranche factory", func(a *addressbook.Addresses) { a.TrancheFactory = "" }, TrancheRequest{Symbol: "usdc", Duration: time.Hour}},
		{"no wrapped position", func(a *addressbook.Addresses) {}, TrancheRequest{Symbol: "dai", Duration: time.Hour}},
		{"no duration", func(a *addressbook.Addresses) {}, TrancheRequest{Symbol: "usdc"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			addresses := testAddresses()
			tt.mutate(addresses)
			book := &memBook{books: map[string]*addressbook.Addresses{"sepolia": addresses}}
			dep := &mockDeployer{}
			flow := NewTrancheDeployment(headChain{fixedChain: 11155111, head: testNow}, book, dep)

			_, err := flow.Run(context.Background(), tt.req)
			assertCode(t, err, ErrCodeMissingPrerequisite)
			if dep.calls != 0 || book.saved != nil {
				t.Fatal("Expected nothing deployed or saved")
			}
		})
	}
}

func TestTrancheDeploymentGate(t *testing.T) {
	dep := &mockDeployer{}
	flow := NewTrancheDeployment(headChain{fixedChain: 5, head: testNow}, &memBook{}, dep)
	_, err := flow.Run(context.Background(), TrancheRequest{Symbol: "usdc", Duration: time.Hour})
	assertCode(t, err, ErrCodeUnsupportedNetwork)
	if dep.calls != 0 {
		t.Fatal("Expected no deployment on goerli")
	}
}
