package verify

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"
)

const (
	statusOK = "1"

	defaultTimeout = 30 * time.Second

	resultNotVerified     = "Contract source code not verified"
	resultPending         = "Pending in queue"
	resultPass            = "Pass - Verified"
	resultAlreadyVerified = "Already Verified"
)

// ErrExplorer is returned for explorer responses with status "0".
var ErrExplorer = errors.New("explorer request failed")

// EtherscanGenericResp is the envelope every Etherscan API response uses.
type EtherscanGenericResp struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Result  string `json:"result"`
}

// VerificationStatus is the state of a submitted verification.
type VerificationStatus int

const (
	StatusPending VerificationStatus = iota
	StatusPass
	StatusFail
)

func (s VerificationStatus) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusPass:
		return "pass"
	default:
		return "fail"
	}
}

// SourceSubmission is a standard-JSON verification request.
type SourceSubmission struct {
	Address            common.Address
	StandardJSONInput  string
	ContractName       string // fully qualified, e.g. contracts/UserProxy.sol:UserProxy
	CompilerVersion    string // e.g. v0.8.15+commit.e14f2714
	ConstructorArgsHex string // ABI-encoded, no 0x prefix
}

// EtherscanClient talks to an Etherscan-compatible contract API.
type EtherscanClient struct {
	client  *resty.Client
	apiKey  string
	limiter *rate.Limiter
}

// NewEtherscanClient creates a client for url. The limiter gates every request.
func NewEtherscanClient(apiKey, url string, limiter *rate.Limiter) *EtherscanClient {
	if limiter == nil {
		limiter = rate.NewLimiter(rate.Limit(4), 1)
	}
	return &EtherscanClient{
		client:  resty.New().SetBaseURL(strings.TrimRight(url, "/")).SetTimeout(defaultTimeout),
		apiKey:  apiKey,
		limiter: limiter,
	}
}

func (c *EtherscanClient) params(chainID *big.Int, action string) map[string]string {
	return map[string]string{
		"chainid": chainID.String(),
		"module":  "contract",
		"action":  action,
		"apikey":  c.apiKey,
	}
}

func (c *EtherscanClient) do(ctx context.Context, req func(*resty.Request) (*resty.Response, error)) (*EtherscanGenericResp, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	var out EtherscanGenericResp
	resp, err := req(c.client.R().SetContext(ctx).SetResult(&out).ForceContentType("application/json"))
	if err != nil {
		return nil, fmt.Errorf("explorer request: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("explorer returned HTTP %d", resp.StatusCode())
	}
	return &out, nil
}

// IsVerified reports whether the explorer already has source for address.
func (c *EtherscanClient) IsVerified(ctx context.Context, chainID *big.Int, address common.Address) (bool, error) {
	params := c.params(chainID, "getabi")
	params["address"] = address.Hex()

	resp, err := c.do(ctx, func(r *resty.Request) (*resty.Response, error) {
		return r.SetQueryParams(params).Get("")
	})
	if err != nil {
		return false, err
	}
	if resp.Status == statusOK {
		return true, nil
	}
	if strings.Contains(resp.Result, resultNotVerified) {
		return false, nil
	}
	return false, fmt.Errorf("%w: getabi: %s: %s", ErrExplorer, resp.Message, resp.Result)
}

// SubmitSource submits source for verification and returns the explorer's GUID.
func (c *EtherscanClient) SubmitSource(ctx context.Context, chainID *big.Int, sub SourceSubmission) (string, error) {
	query := map[string]string{"chainid": chainID.String(), "apikey": c.apiKey}
	form := map[string]string{
		"module":                "contract",
		"action":                "verifysourcecode",
		"contractaddress":       sub.Address.Hex(),
		"sourceCode":            sub.StandardJSONInput,
		"codeformat":            "solidity-standard-json-input",
		"contractname":          sub.ContractName,
		"compilerversion":       sub.CompilerVersion,
		"constructorArguements": sub.ConstructorArgsHex,
	}

	resp, err := c.do(ctx, func(r *resty.Request) (*resty.Response, error) {
		return r.SetQueryParams(query).SetFormData(form).Post("")
	})
	if err != nil {
		return "", err
	}
	if resp.Status != statusOK {
		if strings.Contains(resp.Result, resultAlreadyVerified) {
			return "", nil
		}
		return "", fmt.Errorf("%w: verifysourcecode: %s: %s", ErrExplorer, resp.Message, resp.Result)
	}
	return resp.Result, nil
}

// CheckStatus polls the verification identified by guid once.
func (c *EtherscanClient) CheckStatus(ctx context.Context, chainID *big.Int, guid string) (VerificationStatus, string, error) {
	params := c.params(chainID, "checkverifystatus")
	params["guid"] = guid

	resp, err := c.do(ctx, func(r *resty.Request) (*resty.Response, error) {
		return r.SetQueryParams(params).Get("")
	})
	if err != nil {
		return StatusFail, "", err
	}
	switch {
	case strings.Contains(resp.Result, resultPending):
		return StatusPending, resp.Result, nil
	case strings.Contains(resp.Result, resultPass), strings.Contains(resp.Result, resultAlreadyVerified):
		return StatusPass, resp.Result, nil
	default:
		return StatusFail, resp.Result, nil
	}
}
