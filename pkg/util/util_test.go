package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRandomString_DeterministicForSeed(t *testing.T) {
	a := CreateRandomstringGenerator(42)
	b := CreateRandomstringGenerator(42)

	first := a.GetRandomString(12)
	assert.Len(t, first, 12)
	assert.Equal(t, first, b.GetRandomString(12))
	assert.NotEqual(t, first, a.GetRandomString(12))

	for _, r := range first {
		assert.True(t, strings.ContainsRune(string(letters), r))
	}
}

func TestContains(t *testing.T) {
	assert.True(t, Contains("h3", []string{"h2", "h3"}))
	assert.False(t, Contains("h3", nil))
	assert.True(t, Contains(3, []int{1, 2, 3}))
}
