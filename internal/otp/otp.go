// Package otp generates numeric one-time verification codes.
package otp

import (
	"crypto/rand"
	"fmt"
	"io"
	"math/big"
	"time"

	"familyvault/internal/model"
)

// Length is the number of digits of a generated code.
const Length = 6

// Generator produces one-time codes that expire TTL after issuance. The zero
// value reads from crypto/rand.
type Generator struct {
	TTL    time.Duration
	random io.Reader
}

// NewGenerator returns a Generator backed by crypto/rand.
func NewGenerator(ttl time.Duration) *Generator {
	return &Generator{TTL: ttl, random: rand.Reader}
}

// Issue returns a fresh code that expires TTL after now.
func (g *Generator) Issue(now time.Time) (model.OTP, error) {
	code, err := g.code()
	if err != nil {
		return model.OTP{}, err
	}
	return model.OTP{Code: code, ExpiresAt: now.Add(g.TTL)}, nil
}

func (g *Generator) code() (string, error) {
	src := g.random
	if src == nil {
		src = rand.Reader
	}
	n, err := rand.Int(src, big.NewInt(1_000_000))
	if err != nil {
		return "", fmt.Errorf("generate otp: %w", err)
	}
	return fmt.Sprintf("%0*d", Length, n.Int64()), nil
}
