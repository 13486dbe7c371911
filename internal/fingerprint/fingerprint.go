// Package fingerprint identifies the exact bytes a report was produced from.
package fingerprint

import (
	"encoding/hex"
	"fmt"

	"github.com/ethereum/go-ethereum/crypto"
	"golang.org/x/crypto/blake2b"
)

// File returns the Keccak-256 hash of data as 0x-prefixed hex.
func File(data []byte) string {
	return crypto.Keccak256Hash(data).Hex()
}

// Region returns the BLAKE2b-256 digest of data[start:end] as plain hex.
func Region(data []byte, start, end int) (string, error) {
	if start < 0 || end < start || end > len(data) {
		return "", fmt.Errorf("fingerprint: region [%d,%d) outside %d bytes", start, end, len(data))
	}
	sum := blake2b.Sum256(data[start:end])
	return hex.EncodeToString(sum[:]), nil
}
