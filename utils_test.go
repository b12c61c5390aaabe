package y4g

import (
	"errors"
	"fmt"
	"math/big"
	"testing"

	"github.com/element-fi/yieldforgood/go/mechanisms/evm"
	"github.com/element-fi/yieldforgood/go/mechanisms/evm/mint"
	"github.com/element-fi/yieldforgood/go/mechanisms/evm/permit"
)

func TestValidateAddresses(t *testing.T) {
	if err := ValidateAddresses("0x7b79995e5f793A07Bc00c21412e50Ecae098E7f9", "0x0000000000000000000000000000000000000000"); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	err := ValidateAddresses("0x7b79995e5f793A07Bc00c21412e50Ecae098E7f9", "0x1234")
	if err == nil || err.Error() != "invalid parameter 0x1234 is not a valid address" {
		t.Fatalf("Unexpected error: %v", err)
	}
	if ValidateAddresses("") == nil {
		t.Fatal("Expected empty address to be rejected")
	}
}

func TestGateNetwork(t *testing.T) {
	tests := []struct {
		chainID int64
		mainnet bool
		want    string
		message string
	}{
		{11155111, false, "sepolia", ""},
		{1, true, "mainnet", ""},
		{1, false, "", "no code for mainnet yet"},
		{5, false, "", "goerli is deprecated"},
		{137, false, "", "unsupported network"},
	}

	for _, tt := range tests {
		got, err := GateNetwork(big.NewInt(tt.chainID), tt.mainnet)
		if tt.message == "" {
			if err != nil || got != tt.want {
				t.Fatalf("chain %d: got %q, %v", tt.chainID, got, err)
			}
			continue
		}
		var opErr *OpError
		if !errors.As(err, &opErr) || opErr.Code != ErrCodeUnsupportedNetwork || opErr.Message != tt.message {
			t.Fatalf("chain %d: unexpected error %v", tt.chainID, err)
		}
	}
}

func TestOpErrorIs(t *testing.T) {
	cause := errors.New("boom")
	err := wrapOpError(ErrCodeTransactionFailed, "failed", cause, nil)

	if !errors.Is(err, &OpError{Code: ErrCodeTransactionFailed}) {
		t.Fatal("Expected code match")
	}
	if errors.Is(err, &OpError{Code: ErrCodeAborted}) {
		t.Fatal("Expected code mismatch")
	}
	if !errors.Is(err, cause) {
		t.Fatal("Expected wrapped cause")
	}
	if err.Error() != "transaction_failed: failed" {
		t.Fatalf("Unexpected message %q", err.Error())
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{permit.ErrMissingChainID, ErrCodeMissingPrerequisite},
		{permit.ErrMissingNonce, ErrCodeMissingPrerequisite},
		{fmt.Errorf("sign: %w", permit.ErrMissingDomain), ErrCodeMissingPrerequisite},
		{fmt.Errorf("decode: %w", evm.ErrMalformedSignature), ErrCodeMalformedSignature},
		{mint.ErrInvalidArguments, ErrCodeInvalidMintArguments},
		{errors.New("rpc down"), ""},
	}
	for _, tt := range tests {
		if got := classify(tt.err); got != tt.want {
			t.Errorf("classify(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}
