// Package mint assembles validated argument lists for the user proxy's mint entry point.
package mint

import (
	"bytes"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/element-fi/yieldforgood/go/mechanisms/evm"
)

// ErrInvalidArguments is returned when a mint is missing a required field.
var ErrInvalidArguments = errors.New("invalid mint arguments")

// Schema selects the proxy's mint signature.
type Schema int

const (
	// SchemaV1 is mint(amount, underlying, expiration, position, permits).
	SchemaV1 Schema = iota + 1
	// SchemaV2 adds a donation recipient after the position.
	SchemaV2
)

func (s Schema) String() string {
	switch s {
	case SchemaV1:
		return "v1"
	case SchemaV2:
		return "v2"
	default:
		return fmt.Sprintf("Schema(%d)", int(s))
	}
}

// ParseSchema parses "v1" or "v2". An empty string is SchemaV1.
func ParseSchema(s string) (Schema, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "v1", "1":
		return SchemaV1, nil
	case "v2", "2":
		return SchemaV2, nil
	default:
		return 0, fmt.Errorf("unknown mint schema %q", s)
	}
}

// ABI returns the proxy ABI fragment for the schema.
func (s Schema) ABI() []byte {
	if s == SchemaV2 {
		return evm.UserProxyMintV2ABI
	}
	return evm.UserProxyMintV1ABI
}

// HasDonation reports whether the schema carries a donation address.
func (s Schema) HasDonation() bool {
	return s == SchemaV2
}

// CallOverrides is the trailing override record of a mint call.
type CallOverrides struct {
	Value *big.Int
}

// Params are the caller-supplied mint inputs.
type Params struct {
	Amount          *big.Int
	BaseAsset       common.Address
	UnlockTimestamp *big.Int
	Position        common.Address
	// DonationAddress is required by SchemaV2 and ignored by SchemaV1.
	DonationAddress common.Address
	Permits         []evm.PermitCallData
}

// CallArguments is an assembled mint call.
type CallArguments struct {
	Schema          Schema
	Amount          *big.Int
	BaseAsset       common.Address
	UnlockTimestamp *big.Int
	Position        common.Address
	DonationAddress common.Address
	Permits         []evm.PermitCallData
	// Overrides is set only when BaseAsset is the native-currency sentinel.
	Overrides *CallOverrides
}

// Args returns the positional contract arguments, without overrides.
func (a *CallArguments) Args() []interface{} {
	args := []interface{}{a.Amount, a.BaseAsset, a.UnlockTimestamp, a.Position}
	if a.Schema.HasDonation() {
		args = append(args, a.DonationAddress)
	}
	return append(args, a.Permits)
}

// Tuple returns the full ordered call tuple. A *CallOverrides is the final
// element when the call attaches value.
func (a *CallArguments) Tuple() []interface{} {
	tuple := a.Args()
	if a.Overrides != nil {
		tuple = append(tuple, a.Overrides)
	}
	return tuple
}

// Value returns the native currency to attach, or nil.
func (a *CallArguments) Value() *big.Int {
	if a.Overrides == nil {
		return nil
	}
	return a.Overrides.Value
}

// Pack ABI-encodes the call for the schema's mint signature.
func (a *CallArguments) Pack() ([]byte, error) {
	parsed, err := abi.JSON(bytes.NewReader(a.Schema.ABI()))
	if err != nil {
		return nil, fmt.Errorf("failed to parse mint ABI: %w", err)
	}
	data, err := parsed.Pack(evm.FunctionMint, a.Args()...)
	if err != nil {
		return nil, fmt.Errorf("failed to pack mint call: %w", err)
	}
	return data, nil
}

// Assembler builds mint calls for one schema.
type Assembler struct {
	schema Schema
}

// NewAssembler creates an Assembler. Unknown schemas fall back to SchemaV1.
func NewAssembler(schema Schema) *Assembler {
	if schema != SchemaV2 {
		schema = SchemaV1
	}
	return &Assembler{schema: schema}
}

// Schema returns the assembler's schema.
func (a *Assembler) Schema() Schema {
	return a.schema
}

// Assemble validates p and returns the ordered call. It returns nil and an
// error wrapping ErrInvalidArguments when a required field is missing, and it
// never submits anything.
func (a *Assembler) Assemble(p Params) (*CallArguments, error) {
	switch {
	case p.Amount == nil || p.Amount.Sign() <= 0:
		return nil, fmt.Errorf("%w: amount must be greater than zero", ErrInvalidArguments)
	case p.Amount.Cmp(evm.MaxUint256()) > 0:
		return nil, fmt.Errorf("%w: amount exceeds uint256", ErrInvalidArguments)
	case evm.IsZeroAddress(p.BaseAsset):
		return nil, fmt.Errorf("%w: base asset is required", ErrInvalidArguments)
	case p.UnlockTimestamp == nil || p.UnlockTimestamp.Sign() <= 0:
		return nil, fmt.Errorf("%w: unlock timestamp is required", ErrInvalidArguments)
	case evm.IsZeroAddress(p.Position):
		return nil, fmt.Errorf("%w: position is required", ErrInvalidArguments)
	case a.schema.HasDonation() && evm.IsZeroAddress(p.DonationAddress):
		return nil, fmt.Errorf("%w: donation address is required by schema %s", ErrInvalidArguments, a.schema)
	}

	permits := make([]evm.PermitCallData, len(p.Permits))
	copy(permits, p.Permits)

	args := &CallArguments{
		Schema:          a.schema,
		Amount:          new(big.Int).Set(p.Amount),
		BaseAsset:       p.BaseAsset,
		UnlockTimestamp: new(big.Int).Set(p.UnlockTimestamp),
		Position:        p.Position,
		Permits:         permits,
	}
	if a.schema.HasDonation() {
		args.DonationAddress = p.DonationAddress
	}
	if evm.IsNativeCurrency(p.BaseAsset) {
		args.Overrides = &CallOverrides{Value: new(big.Int).Set(p.Amount)}
	}
	return args, nil
}
