package utils

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"

	"github.com/cespare/xxhash/v2"
)

// CalculateHash computes the SHA-256 hash of the input byte slice.
// It returns the hash as a hex-encoded string.
func CalculateHash(data []byte) (hash string, err error) {
	hasher := sha256.New()
	_, err = hasher.Write(data)
	if err != nil {
		return "", err
	}

	return hex.EncodeToString(hasher.Sum(nil)), nil
}

// The `ConstantTimeCompare` function is used here to securely compare two hash values.
// It prevents timing-based attacks by ensuring that the comparison takes the same
// amount of time, regardless of whether the values match or not.
// If the hashes are not equal, an error is returned.
func CompareHashes(hash1, hash2 string) error {
	if subtle.ConstantTimeCompare([]byte(hash1), []byte(hash2)) != 1 {
		return fmt.Errorf("the hashes are not equal. needed %s, actual %s", hash1, hash2)
	}

	return nil
}

// ModuleKey returns the key compiled modules are cached under.
// It is not a security boundary; use CalculateHash for integrity checks.
func ModuleKey(data []byte) uint64 {
	return xxhash.Sum64(data)
}
