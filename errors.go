package y4g

import (
	"errors"
	"fmt"

	"github.com/element-fi/yieldforgood/go/mechanisms/evm"
	"github.com/element-fi/yieldforgood/go/mechanisms/evm/mint"
	"github.com/element-fi/yieldforgood/go/mechanisms/evm/permit"
	"github.com/element-fi/yieldforgood/go/pkg/addressbook"
)

// OpError is an operator-facing failure with a stable category code.
type OpError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
	Err     error                  `json:"-"`
}

func (e *OpError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *OpError) Unwrap() error {
	return e.Err
}

// Is matches another *OpError with the same code.
func (e *OpError) Is(target error) bool {
	t, ok := target.(*OpError)
	return ok && t.Code == e.Code
}

// Error codes
const (
	ErrCodeMissingPrerequisite = "missing_prerequisite"
	ErrCodeMalformedSignature  = "malformed_signature"
	// ErrCodeProtocolVersionMismatch is never produced locally. A wrong permit
	// version only shows up as an on-chain revert of the mint.
	ErrCodeProtocolVersionMismatch = "protocol_version_mismatch"
	ErrCodeInvalidMintArguments    = "invalid_mint_arguments"
	ErrCodeUnsupportedNetwork      = "unsupported_network"
	ErrCodeAborted                 = "aborted"
	ErrCodeTransactionFailed       = "transaction_failed"
	ErrCodeRecordFailed            = "record_failed"
	ErrCodeVerificationFailed      = "verification_failed"
)

// NewOpError creates a new operator error
func NewOpError(code, message string, details map[string]interface{}) *OpError {
	return &OpError{
		Code:    code,
		Message: message,
		Details: details,
	}
}

func wrapOpError(code, message string, err error, details map[string]interface{}) *OpError {
	return &OpError{Code: code, Message: message, Details: details, Err: err}
}

// classify maps a leaf package error onto its OpError code.
func classify(err error) string {
	switch {
	case errors.Is(err, evm.ErrMalformedSignature):
		return ErrCodeMalformedSignature
	case errors.Is(err, mint.ErrInvalidArguments):
		return ErrCodeInvalidMintArguments
	case errors.Is(err, permit.ErrMissingChainID),
		errors.Is(err, permit.ErrMissingNonce),
		errors.Is(err, permit.ErrMissingDomain),
		errors.Is(err, addressbook.ErrUnknownToken),
		errors.Is(err, addressbook.ErrNoTranches),
		errors.Is(err, addressbook.ErrNoActiveTranches),
		errors.Is(err, addressbook.ErrNoWrappedPosition),
		errors.Is(err, addressbook.ErrNoUserProxy),
		errors.Is(err, addressbook.ErrUnknownTranche):
		return ErrCodeMissingPrerequisite
	default:
		return ""
	}
}
