package otp

import (
	"bytes"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerator_Issue(t *testing.T) {
	g := NewGenerator(10 * time.Minute)
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	digits := regexp.MustCompile(`^\d{6}$`)

	for i := 0; i < 50; i++ {
		code, err := g.Issue(now)
		require.NoError(t, err)
		assert.Regexp(t, digits, code.Code)
		assert.Equal(t, now.Add(10*time.Minute), code.ExpiresAt)
	}
}

func TestGenerator_ExpiryBoundary(t *testing.T) {
	g := NewGenerator(10 * time.Minute)
	issued := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	code, err := g.Issue(issued)
	require.NoError(t, err)

	assert.True(t, code.Valid(code.Code, issued.Add(10*time.Minute-time.Second)))
	assert.False(t, code.Valid(code.Code, issued.Add(10*time.Minute)))
	assert.False(t, code.Valid(code.Code, issued.Add(11*time.Minute)))
}

func TestGenerator_ZeroPadded(t *testing.T) {
	g := &Generator{TTL: time.Minute, random: bytes.NewReader(make([]byte, 64))}

	code, err := g.Issue(time.Now())
	require.NoError(t, err)
	assert.Equal(t, "000000", code.Code)
}

func TestGenerator_RandomError(t *testing.T) {
	g := &Generator{TTL: time.Minute, random: bytes.NewReader(nil)}

	_, err := g.Issue(time.Now())
	assert.ErrorContains(t, err, "generate otp")
}

func TestGenerator_ZeroValueUsesCryptoRand(t *testing.T) {
	g := &Generator{TTL: time.Minute}

	var code string
	require.NotPanics(t, func() {
		issued, err := g.Issue(time.Now())
		require.NoError(t, err)
		code = issued.Code
	})
	assert.Regexp(t, `^\d{6}$`, code)
}
