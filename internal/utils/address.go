// internal/utils/address.go
package utils

import (
	"errors"
	"regexp"
	"strings"

	"golang.org/x/crypto/sha3"
)

// ZeroAddress is the null principal.
const ZeroAddress = "0x0000000000000000000000000000000000000000"

var (
	ErrMalformedAddress = errors.New("address must be 0x followed by 40 hex characters")
	ErrAddressChecksum  = errors.New("address checksum mismatch")

	addressPattern = regexp.MustCompile(`^0[xX][0-9a-fA-F]{40}$`)
)

// NormalizeAddress validates a wallet address and returns its EIP-55
// checksummed form. All-lowercase and all-uppercase inputs are accepted
// as-is; mixed-case inputs must carry a valid checksum.
func NormalizeAddress(address string) (string, error) {
	address = strings.TrimSpace(address)
	if !addressPattern.MatchString(address) {
		return "", ErrMalformedAddress
	}

	hexPart := address[2:]
	checksummed := checksumAddress(strings.ToLower(hexPart))
	if hexPart != strings.ToLower(hexPart) && hexPart != strings.ToUpper(hexPart) && "0x"+hexPart != checksummed {
		return "", ErrAddressChecksum
	}
	return checksummed, nil
}

// IsZeroAddress reports whether address is the null principal.
func IsZeroAddress(address string) bool {
	return strings.EqualFold(strings.TrimSpace(address), ZeroAddress)
}

// IsValidAddress reports whether address parses under NormalizeAddress.
func IsValidAddress(address string) bool {
	_, err := NormalizeAddress(address)
	return err == nil
}

func checksumAddress(lowerHex string) string {
	hasher := sha3.NewLegacyKeccak256()
	hasher.Write([]byte(lowerHex))
	hash := hasher.Sum(nil)

	out := []byte(lowerHex)
	for i, c := range out {
		if c < 'a' {
			continue
		}
		nibble := hash[i/2]
		if i%2 == 0 {
			nibble >>= 4
		} else {
			nibble &= 0x0f
		}
		if nibble >= 8 {
			out[i] = c - ('a' - 'A')
		}
	}
	return "0x" + string(out)
}
