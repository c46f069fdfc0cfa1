package security_test

import (
	"strings"
	"testing"
	"unicode"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ferremas/backoffice/pkg/config"
	"github.com/ferremas/backoffice/pkg/security"
)

func testHasher() security.Hasher {
	return security.NewHasher(config.PasswordConfig{
		ArgonMemoryKB:    8,
		ArgonTime:        1,
		ArgonParallelism: 1,
		ArgonSaltLen:     16,
		ArgonKeyLen:      32,
	})
}

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := testHasher().Hash("ferreteria-2026")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(hash, "$argon2id$v=19$m=8,t=1,p=1$"))

	ok, err := security.VerifyPassword("ferreteria-2026", hash)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = security.VerifyPassword("ferreteria-2025", hash)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestHashesAreSalted(t *testing.T) {
	h := testHasher()
	first, err := h.Hash("same-password")
	require.NoError(t, err)
	second, err := h.Hash("same-password")
	require.NoError(t, err)
	assert.NotEqual(t, first, second)
}

func TestNewHasherClampsConfig(t *testing.T) {
	p := security.NewHasher(config.PasswordConfig{}).Params()
	assert.Equal(t, uint32(8), p.Memory)
	assert.Equal(t, uint32(1), p.Time)
	assert.Equal(t, uint8(1), p.Parallelism)
	assert.Equal(t, uint32(8), p.SaltLen)
	assert.Equal(t, uint32(16), p.KeyLen)
}

func TestVerifyPasswordRejectsMalformedHashes(t *testing.T) {
	for _, encoded := range []string{
		"not-a-hash",
		"$argon2i$v=19$m=8,t=1,p=1$c2FsdHNhbHQ$a2V5",
		"$argon2id$v=16$m=8,t=1,p=1$c2FsdHNhbHQ$a2V5",
		"$argon2id$v=19$m=0,t=1,p=1$c2FsdHNhbHQ$a2V5",
		"$argon2id$v=19$m=8,t=1,p=1$!!$a2V5",
	} {
		_, err := security.VerifyPassword("irrelevant", encoded)
		assert.ErrorIs(t, err, security.ErrInvalidHash, encoded)
	}
}

func TestCheckPolicy(t *testing.T) {
	assert.ErrorIs(t, security.CheckPolicy("corta"), security.ErrPasswordTooShort)
	assert.ErrorIs(t, security.CheckPolicy(strings.Repeat("x", security.MaxPasswordBytes+1)), security.ErrPasswordTooLong)
	assert.NoError(t, security.CheckPolicy("martillo"))
	// runes count, not bytes
	assert.ErrorIs(t, security.CheckPolicy("ñañañaa"), security.ErrPasswordTooShort)

	_, err := testHasher().Hash("corta")
	assert.ErrorIs(t, err, security.ErrPasswordTooShort)
}

func TestGenerateTempPassword(t *testing.T) {
	first, err := security.GenerateTempPassword(12)
	require.NoError(t, err)
	assert.Len(t, first, 12)
	assert.NoError(t, security.CheckPolicy(first))

	var upper, lower, digit bool
	for _, r := range first {
		upper = upper || unicode.IsUpper(r)
		lower = lower || unicode.IsLower(r)
		digit = digit || unicode.IsDigit(r)
	}
	assert.True(t, upper && lower && digit, first)
	assert.NotContains(t, first, "0")
	assert.NotContains(t, first, "l")

	second, err := security.GenerateTempPassword(12)
	require.NoError(t, err)
	assert.NotEqual(t, first, second)

	_, err = security.GenerateTempPassword(4)
	assert.Error(t, err)
}
