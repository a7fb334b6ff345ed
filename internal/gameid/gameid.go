package gameid

import (
	"crypto/rand"
	"fmt"
	"strings"
)

// Crockford's base32 alphabet: no i, l, o or u, so identifiers stay
// unambiguous when players share them
const alphabet = "0123456789abcdefghjkmnpqrstvwxyz"

// Length of every generated identifier. Uniqueness inside one process is
// the registry's job, which regenerates on the rare conflict.
const Length = 8

// RandSource interface for dependency injection of randomness
type RandSource interface {
	Intn(n int) int
}

// Generator produces short identifiers for rooms and seats
type Generator struct {
	randSource RandSource
}

// NewGenerator creates a new generator. A nil RandSource reads crypto/rand.
func NewGenerator(randSource RandSource) *Generator {
	return &Generator{randSource: randSource}
}

// Generate creates a new identifier using crypto/rand
func Generate() string {
	return NewGenerator(nil).Generate()
}

// GenerateWithRandSource creates a new identifier using the provided RandSource
func GenerateWithRandSource(randSource RandSource) string {
	return NewGenerator(randSource).Generate()
}

// Generate creates a new identifier using the generator's RandSource
func (g *Generator) Generate() string {
	b := make([]byte, Length)
	if g.randSource != nil {
		for i := range b {
			b[i] = alphabet[g.randSource.Intn(len(alphabet))]
		}
		return string(b)
	}
	if _, err := rand.Read(b); err != nil {
		panic("gameid: reading random bytes: " + err.Error())
	}
	// 256 is a multiple of 32, so masking keeps the draw uniform
	for i := range b {
		b[i] = alphabet[b[i]&31]
	}
	return string(b)
}

// Validate checks that an identifier has the expected length and alphabet
func Validate(id string) error {
	if len(id) != Length {
		return fmt.Errorf("id must be exactly %d characters, got %d", Length, len(id))
	}
	for i, char := range id {
		if !strings.ContainsRune(alphabet, char) {
			return fmt.Errorf("invalid character %c at position %d", char, i)
		}
	}
	return nil
}
