package y4g

import (
	"context"
	"time"
)

// ============================================================================
// Mint Hook Context Types
// ============================================================================

// SignContext is passed to hooks before the operator is asked to sign a permit
type SignContext struct {
	Ctx       context.Context
	Prepared  *PreparedMint
	Timestamp time.Time
}

// SubmitResultContext contains a submitted mint and its confirmation
type SubmitResultContext struct {
	Ctx      context.Context
	Prepared *PreparedMint
	Result   MintResult
	Duration time.Duration
}

// MintFailureContext contains a failed mint attempt
type MintFailureContext struct {
	Ctx      context.Context
	Request  MintRequest
	Prepared *PreparedMint // nil when the attempt failed before assembly
	Error    error
	Duration time.Duration
}

// ============================================================================
// Mint Hook Result Types
// ============================================================================

// BeforeHookResult represents the result of a "before" hook
// If Abort is true, the operation will be aborted with the given Reason
type BeforeHookResult struct {
	Abort  bool
	Reason string
}

// ============================================================================
// Mint Hook Function Types
// ============================================================================

// BeforeSignHook is called after the network, address book and token reads
// succeed and before the permit signature is requested.
// If it returns a result with Abort=true, nothing is signed or submitted
type BeforeSignHook func(SignContext) (*BeforeHookResult, error)

// AfterSubmitHook is called after the mint transaction is confirmed
// Any error returned will be logged but will not affect the result
type AfterSubmitHook func(SubmitResultContext) error

// OnMintFailureHook observes failed mint attempts. Mints are never retried.
type OnMintFailureHook func(MintFailureContext)

// ============================================================================
// Mint Hook Registration Options
// ============================================================================

// WithBeforeSignHook registers a hook to execute before permit signing
func WithBeforeSignHook(hook BeforeSignHook) MintClientOption {
	return func(c *MintClient) {
		c.beforeSignHooks = append(c.beforeSignHooks, hook)
	}
}

// WithAfterSubmitHook registers a hook to execute after a confirmed mint
func WithAfterSubmitHook(hook AfterSubmitHook) MintClientOption {
	return func(c *MintClient) {
		c.afterSubmitHooks = append(c.afterSubmitHooks, hook)
	}
}

// WithOnMintFailureHook registers a hook to execute when a mint attempt fails
func WithOnMintFailureHook(hook OnMintFailureHook) MintClientOption {
	return func(c *MintClient) {
		c.onMintFailureHooks = append(c.onMintFailureHooks, hook)
	}
}
