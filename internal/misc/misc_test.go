package misc_test

import (
	"testing"

	"github.com/CamberLoid/FHEVault/internal/misc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRandomHex(t *testing.T) {
	a, err := misc.RandomHex(32)
	require.NoError(t, err)
	b, err := misc.RandomHex(32)
	require.NoError(t, err)

	assert.Len(t, a, 64)
	assert.NotEqual(t, a, b)
}

func TestRoundToInt(t *testing.T) {
	assert.Equal(t, 840, misc.RoundToInt(839.9999991))
	assert.Equal(t, 840, misc.RoundToInt(840.0000004))
	assert.Equal(t, 301, misc.RoundToInt(300.996))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "0xpub_", misc.Truncate("0xpub_", 16))
	assert.Equal(t, "0xpub_0123456789", misc.Truncate("0xpub_0123456789abcdef", 16))
}
