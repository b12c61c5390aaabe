package evm

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/common/math"
)

// ErrMalformedSignature is returned when a signature is not exactly 65 bytes of hex.
var ErrMalformedSignature = errors.New("malformed signature")

// MaxUint256 returns a fresh 2^256 - 1.
func MaxUint256() *big.Int {
	return new(big.Int).Set(math.MaxBig256)
}

// BytesToHex encodes b as 0x-prefixed lowercase hex.
func BytesToHex(b []byte) string {
	return hexutil.Encode(b)
}

// HexToBytes decodes a hex string with or without a 0x prefix.
func HexToBytes(s string) ([]byte, error) {
	if !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
		s = "0x" + s
	}
	b, err := hexutil.Decode(s)
	if err != nil {
		return nil, fmt.Errorf("invalid hex %q: %w", s, err)
	}
	return b, nil
}

// IsValidAddress reports whether s is a 20-byte hex address.
func IsValidAddress(s string) bool {
	return common.IsHexAddress(s)
}

// NormalizeAddress returns the EIP-55 checksummed form of address.
func NormalizeAddress(address string) string {
	return common.HexToAddress(address).Hex()
}

// IsNativeCurrency reports whether address is the ETH placeholder.
func IsNativeCurrency(address common.Address) bool {
	return address == NativeCurrencyAddress
}

// IsZeroAddress reports whether address is unset.
func IsZeroAddress(address common.Address) bool {
	return address == (common.Address{})
}

// DecodeSignature splits a 0x-prefixed 65-byte hex signature into r, s and v.
// r is hex chars [2:66], s is [66:130] and v is [130:132].
func DecodeSignature(sig string) (Signature, error) {
	if !strings.HasPrefix(sig, "0x") {
		return Signature{}, fmt.Errorf("%w: missing 0x prefix", ErrMalformedSignature)
	}
	if len(sig) != 2+2*SignatureLength {
		return Signature{}, fmt.Errorf("%w: got %d hex chars, want %d", ErrMalformedSignature, len(sig)-2, 2*SignatureLength)
	}
	raw, err := hexutil.Decode(sig)
	if err != nil {
		return Signature{}, fmt.Errorf("%w: %v", ErrMalformedSignature, err)
	}
	return SplitSignature(raw)
}

// SplitSignature splits a raw 65-byte signature into r, s and v.
func SplitSignature(raw []byte) (Signature, error) {
	if len(raw) != SignatureLength {
		return Signature{}, fmt.Errorf("%w: got %d bytes, want %d", ErrMalformedSignature, len(raw), SignatureLength)
	}
	var sig Signature
	copy(sig.R[:], raw[0:32])
	copy(sig.S[:], raw[32:64])
	sig.V = raw[64]
	return sig, nil
}

// ParseUnits converts a decimal string such as "1.5" into base units.
// More fractional digits than decimals is an error rather than a silent truncation.
func ParseUnits(amount string, decimals uint8) (*big.Int, error) {
	amount = strings.TrimSpace(amount)
	if amount == "" {
		return nil, fmt.Errorf("empty amount")
	}
	if strings.HasPrefix(amount, "-") {
		return nil, fmt.Errorf("negative amount %q", amount)
	}

	whole, frac, hasFrac := strings.Cut(amount, ".")
	if hasFrac && frac == "" {
		return nil, fmt.Errorf("invalid amount %q", amount)
	}
	if whole == "" {
		whole = "0"
	}
	if len(frac) > int(decimals) {
		return nil, fmt.Errorf("amount %q has more than %d decimal places", amount, decimals)
	}
	frac += strings.Repeat("0", int(decimals)-len(frac))

	value, ok := new(big.Int).SetString(whole+frac, 10)
	if !ok {
		return nil, fmt.Errorf("invalid amount %q", amount)
	}
	return value, nil
}

// FormatUnits renders base units as a decimal string, trimming trailing zeros.
func FormatUnits(value *big.Int, decimals uint8) string {
	if value == nil {
		return "0"
	}
	neg := value.Sign() < 0
	digits := new(big.Int).Abs(value).String()
	if decimals > 0 {
		if len(digits) <= int(decimals) {
			digits = strings.Repeat("0", int(decimals)-len(digits)+1) + digits
		}
		point := len(digits) - int(decimals)
		whole, frac := digits[:point], strings.TrimRight(digits[point:], "0")
		digits = whole
		if frac != "" {
			digits += "." + frac
		}
	}
	if neg {
		return "-" + digits
	}
	return digits
}
