package evm

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
)

// ToAPITypedData converts domain, types and message into the go-ethereum
// representation used for hashing. EIP712Domain is added when absent.
func ToAPITypedData(
	domain TypedDataDomain,
	types map[string][]TypedDataField,
	primaryType string,
	message map[string]interface{},
) apitypes.TypedData {
	typedData := apitypes.TypedData{
		Types:       make(apitypes.Types),
		PrimaryType: primaryType,
		Domain: apitypes.TypedDataDomain{
			Name:              domain.Name,
			Version:           domain.Version,
			ChainId:           (*math.HexOrDecimal256)(domain.ChainID),
			VerifyingContract: domain.VerifyingContract,
		},
		Message: message,
	}

	for typeName, fields := range types {
		typedFields := make([]apitypes.Type, len(fields))
		for i, field := range fields {
			typedFields[i] = apitypes.Type{
				Name: field.Name,
				Type: field.Type,
			}
		}
		typedData.Types[typeName] = typedFields
	}

	if _, exists := typedData.Types["EIP712Domain"]; !exists {
		domainFields := make([]apitypes.Type, len(EIP712DomainTypes))
		for i, field := range EIP712DomainTypes {
			domainFields[i] = apitypes.Type{Name: field.Name, Type: field.Type}
		}
		typedData.Types["EIP712Domain"] = domainFields
	}

	return typedData
}

// HashTypedData returns the EIP-712 signing digest for the given typed data
//
// The hash is computed as: keccak256("\x19\x01" + domainSeparator + structHash)
//
// Args:
//
//	domain: The EIP-712 domain separator parameters
//	types: The type definitions for the structured data
//	primaryType: The name of the primary type being hashed
//	message: The message data to hash
//
// Returns:
//
//	32-byte hash suitable for signing or verification
//	error if hashing fails
func HashTypedData(
	domain TypedDataDomain,
	types map[string][]TypedDataField,
	primaryType string,
	message map[string]interface{},
) ([]byte, error) {
	typedData := ToAPITypedData(domain, types, primaryType, message)

	dataHash, err := typedData.HashStruct(typedData.PrimaryType, typedData.Message)
	if err != nil {
		return nil, fmt.Errorf("failed to hash struct: %w", err)
	}

	domainSeparator, err := typedData.HashStruct("EIP712Domain", typedData.Domain.Map())
	if err != nil {
		return nil, fmt.Errorf("failed to hash domain: %w", err)
	}

	// 0x19 0x01 <domainSeparator> <dataHash>
	rawData := []byte{0x19, 0x01}
	rawData = append(rawData, domainSeparator...)
	rawData = append(rawData, dataHash...)

	return crypto.Keccak256(rawData), nil
}

// PermitDomain builds the EIP-712 domain a permit-enabled token verifies against.
func PermitDomain(tokenName, version string, chainID *big.Int, token common.Address) TypedDataDomain {
	return TypedDataDomain{
		Name:              tokenName,
		Version:           version,
		ChainID:           chainID,
		VerifyingContract: token.Hex(),
	}
}

// PermitMessage builds an infinite-value, non-expiring permit message.
func PermitMessage(owner, spender common.Address, nonce *big.Int) map[string]interface{} {
	return map[string]interface{}{
		"owner":    owner.Hex(),
		"spender":  spender.Hex(),
		"value":    MaxUint256(),
		"nonce":    new(big.Int).Set(nonce),
		"deadline": MaxUint256(),
	}
}

// HashPermit hashes an infinite permit for owner → spender.
//
// Args:
//
//	domain: The token's permit domain (see PermitDomain)
//	owner: Token holder granting the allowance
//	spender: Address allowed to move the holder's tokens
//	nonce: The holder's current permit nonce on the token
//
// Returns:
//
//	32-byte digest the holder signs
//	error if hashing fails
func HashPermit(domain TypedDataDomain, owner, spender common.Address, nonce *big.Int) ([]byte, error) {
	if nonce == nil {
		return nil, fmt.Errorf("permit nonce is required")
	}
	return HashTypedData(domain, GetPermitEIP712Types(), PermitPrimaryType, PermitMessage(owner, spender, nonce))
}
