package domain

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

const codeAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// GenerateCode returns prefix followed by length random upper-case base-36
// characters. Entropy comes from version 4 UUIDs; the fixed version and
// variant bytes are skipped and bytes >= 252 are rejected to avoid modulo bias.
func GenerateCode(prefix string, length int) (string, error) {
	if length <= 0 {
		return "", fmt.Errorf("generate code: length must be > 0 (got %d)", length)
	}

	var b strings.Builder
	b.Grow(len(prefix) + length)
	b.WriteString(prefix)

	n := 0
	for n < length {
		id, err := uuid.NewRandom()
		if err != nil {
			return "", fmt.Errorf("generate code: %w", err)
		}
		for i, c := range id {
			if i == 6 || i == 8 {
				continue
			}
			if c >= 252 {
				continue
			}
			b.WriteByte(codeAlphabet[int(c)%len(codeAlphabet)])
			n++
			if n == length {
				break
			}
		}
	}

	return b.String(), nil
}
