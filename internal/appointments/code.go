package appointments

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// CodeLength is the number of digits in a public appointment code.
const CodeLength = 6

// maxCodeAttempts bounds code generation retries, both for pre-check hits and insert collisions.
const maxCodeAttempts = 5

// CodeGenerator draws a candidate public code.
type CodeGenerator func() (string, error)

var codeSpace = big.NewInt(1_000_000)

// RandomCode returns a zero-padded 6-digit numeric code from crypto/rand.
func RandomCode() (string, error) {
	n, err := rand.Int(rand.Reader, codeSpace)
	if err != nil {
		return "", fmt.Errorf("appointments: generate code: %w", err)
	}
	return fmt.Sprintf("%0*d", CodeLength, n.Int64()), nil
}
