package service

import (
	"math/rand/v2"
	"regexp"
)

const (
	// CodeLength is the length of generated codes.
	CodeLength = 7
	// MaxGenerateAttempts bounds the uniqueness loop in CreateLink.
	MaxGenerateAttempts = 20

	alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
)

var codeRegex = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// GenerateCode draws length characters uniformly, with replacement, from [A-Za-z0-9].
// It is not suitable for secrets; uniqueness is the caller's job.
func GenerateCode(length int) string {
	b := make([]byte, length)
	for i := range b {
		b[i] = alphabet[rand.IntN(len(alphabet))]
	}
	return string(b)
}

// ValidateCode checks the shape of a caller-supplied code.
func ValidateCode(code string) bool {
	return codeRegex.MatchString(code)
}
