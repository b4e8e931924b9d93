package sampleapp

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPromoCodeValidatorBuiltIns(t *testing.T) {
	v, err := NewPromoCodeValidator(nil)
	require.NoError(t, err)

	assert.True(t, v.Valid("WELCOME10"))
	assert.True(t, v.Valid("welcome10"), "codes are case-insensitive")
	assert.True(t, v.Valid("  WAFFLES  "), "surrounding whitespace is ignored")
	assert.False(t, v.Valid("TOTALLYMADEUP"))
	assert.False(t, v.Valid(""))
}

func TestPromoCodeValidatorLoadsFiles(t *testing.T) {
	path := filepath.Join(t.TempDir(), "codes.txt")
	content := "# partner codes\nPARTNER50\n\n  spring25\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	v, err := NewPromoCodeValidator([]string{path})
	require.NoError(t, err)

	assert.True(t, v.Valid("PARTNER50"))
	assert.True(t, v.Valid("SPRING25"))
	assert.False(t, v.Valid("# partner codes"), "comment lines are not codes")
	assert.True(t, v.Valid("WELCOME10"), "built-ins remain valid")
}

func TestPromoCodeValidatorMissingFile(t *testing.T) {
	_, err := NewPromoCodeValidator([]string{filepath.Join(t.TempDir(), "nope.txt")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nope.txt")
}
