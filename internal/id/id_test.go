package id

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		got, err := Generate(ReviewPrefix)
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(got, "rev-"))
		assert.Len(t, got, len("rev-")+21)
		assert.False(t, seen[got], "duplicate id %s", got)
		seen[got] = true
	}
}
