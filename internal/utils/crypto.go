// internal/utils/crypto.go
package utils

import (
	"crypto/rand"
	"math/big"
)

const referenceCharset = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// GenerateRandomString draws length characters from an unambiguous upper-case alphabet.
func GenerateRandomString(length int) (string, error) {
	b := make([]byte, length)

	for i := range b {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(referenceCharset))))
		if err != nil {
			return "", err
		}
		b[i] = referenceCharset[n.Int64()]
	}

	return string(b), nil
}
