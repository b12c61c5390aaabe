package verify

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/element-fi/yieldforgood/go/pkg/artifacts"
)

const testAPIKey = "test-api-key"

type fakeArtifacts struct{}

func (fakeArtifacts) Load(name string) (*artifacts.Artifact, error) {
	if name != "UserProxy" {
		return nil, artifacts.ErrNotFound
	}
	return &artifacts.Artifact{ContractName: "UserProxy", SourceName: "contracts/UserProxy.sol"}, nil
}

func (fakeArtifacts) BuildInfo(*artifacts.Artifact) (*artifacts.BuildInfo, error) {
	return &artifacts.BuildInfo{
		SolcLongVersion: "0.8.15+commit.e14f2714",
		Input:           json.RawMessage(`{"language":"Solidity"}`),
	}, nil
}

type fakeExplorer struct {
	mu       sync.Mutex
	verified bool
	statuses []string
	form     map[string]string
	query    map[string]string
}

func (f *fakeExplorer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	write := func(resp EtherscanGenericResp) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}

	if r.Method == http.MethodPost {
		_ = r.ParseForm()
		f.form = map[string]string{}
		for k := range r.PostForm {
			f.form[k] = r.PostForm.Get(k)
		}
		f.query = map[string]string{"chainid": r.URL.Query().Get("chainid")}
		write(EtherscanGenericResp{Status: "1", Message: "OK", Result: "guid-123"})
		return
	}

	switch r.URL.Query().Get("action") {
	case "getabi":
		if f.verified {
			write(EtherscanGenericResp{Status: "1", Message: "OK", Result: "[]"})
			return
		}
		write(EtherscanGenericResp{Status: "0", Message: "NOTOK", Result: "Contract source code not verified"})
	case "checkverifystatus":
		result := f.statuses[0]
		if len(f.statuses) > 1 {
			f.statuses = f.statuses[1:]
		}
		write(EtherscanGenericResp{Status: "1", Message: "OK", Result: result})
	default:
		http.NotFound(w, r)
	}
}

func newTestVerifier(t *testing.T, explorer http.Handler) *Verifier {
	t.Helper()
	server := httptest.NewServer(explorer)
	t.Cleanup(server.Close)

	verifier, err := NewVerifier(testAPIKey, 11155111, fakeArtifacts{}, log.New(log.JSONHandler(io.Discard)), nil)
	require.NoError(t, err)
	verifier.etherscan = NewEtherscanClient(testAPIKey, server.URL, rate.NewLimiter(rate.Inf, 1))
	verifier.pollInterval = time.Millisecond
	return verifier
}

func TestVerifierSkipsVerifiedContracts(t *testing.T) {
	verifier := newTestVerifier(t, &fakeExplorer{verified: true})

	err := verifier.Verify(context.Background(), "UserProxy", common.HexToAddress("0x01"), nil)
	require.NoError(t, err)

	verified, skipped, failed := verifier.Stats()
	require.Equal(t, 0, verified)
	require.Equal(t, 1, skipped)
	require.Equal(t, 0, failed)
}

func TestVerifierSubmitsAndPolls(t *testing.T) {
	explorer := &fakeExplorer{statuses: []string{"Pending in queue", "Pass - Verified"}}
	verifier := newTestVerifier(t, explorer)
	address := common.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3")

	err := verifier.Verify(context.Background(), "UserProxy", address, []byte{0xab, 0xcd})
	require.NoError(t, err)

	verified, skipped, failed := verifier.Stats()
	require.Equal(t, 1, verified)
	require.Equal(t, 0, skipped)
	require.Equal(t, 0, failed)

	require.Equal(t, "verifysourcecode", explorer.form["action"])
	require.Equal(t, "contracts/UserProxy.sol:UserProxy", explorer.form["contractname"])
	require.Equal(t, "v0.8.15+commit.e14f2714", explorer.form["compilerversion"])
	require.Equal(t, "abcd", explorer.form["constructorArguements"])
	require.Equal(t, "solidity-standard-json-input", explorer.form["codeformat"])
	require.Equal(t, address.Hex(), explorer.form["contractaddress"])
	require.Equal(t, "11155111", explorer.query["chainid"])
}

func TestVerifierReportsFailure(t *testing.T) {
	verifier := newTestVerifier(t, &fakeExplorer{statuses: []string{"Fail - Unable to verify"}})

	err := verifier.Verify(context.Background(), "UserProxy", common.HexToAddress("0x01"), nil)
	require.ErrorIs(t, err, ErrVerificationFailed)

	_, _, failed := verifier.Stats()
	require.Equal(t, 1, failed)
}

func TestVerifierMissingArtifact(t *testing.T) {
	verifier := newTestVerifier(t, &fakeExplorer{})

	err := verifier.Verify(context.Background(), "Tranche", common.HexToAddress("0x01"), nil)
	require.ErrorIs(t, err, artifacts.ErrNotFound)
}

func TestNewVerifierRequiresAPIKey(t *testing.T) {
	_, err := NewVerifier("", 1, fakeArtifacts{}, nil, nil)
	require.Error(t, err)
}

func TestCountdown(t *testing.T) {
	var out strings.Builder
	require.NoError(t, Countdown(context.Background(), 0, &out))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, Countdown(ctx, time.Minute, io.Discard), context.Canceled)
}
