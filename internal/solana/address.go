package solana

import (
	"strings"

	"github.com/mr-tron/base58"
)

// Alphabet is the base58 alphabet used by Solana addresses.
// Excludes the visually ambiguous 0, O, I and l.
const Alphabet = "123456789ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz"

// Address length bounds in base58 characters.
const (
	MinAddressLen = 32
	MaxAddressLen = 44
)

// PublicKeySize is the decoded size of an address in bytes.
const PublicKeySize = 32

// Well-known mints.
const (
	WrappedSOLMint = "So11111111111111111111111111111111111111112"
	USDCMint       = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"
	USDTMint       = "Es9vMFrzaCERmJfrF4H2FYD4KCoNkY11McCe8BenwNYB"
)

// IsAlphabetChar reports whether r belongs to the address alphabet.
func IsAlphabetChar(r rune) bool {
	return r < 128 && strings.IndexByte(Alphabet, byte(r)) >= 0
}

// HasAddressShape checks length and alphabet without decoding.
func HasAddressShape(s string) bool {
	if len(s) < MinAddressLen || len(s) > MaxAddressLen {
		return false
	}
	for _, r := range s {
		if !IsAlphabetChar(r) {
			return false
		}
	}
	return true
}

// IsValidAddress checks that s has address shape and decodes to a 32-byte public key.
func IsValidAddress(s string) bool {
	if !HasAddressShape(s) {
		return false
	}
	decoded, err := base58.Decode(s)
	if err != nil {
		return false
	}
	return len(decoded) == PublicKeySize
}

// IsQuoteMint reports whether the address is a native or stable quote asset.
func IsQuoteMint(address string) bool {
	switch address {
	case WrappedSOLMint, USDCMint, USDTMint:
		return true
	}
	return false
}
