package countries

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookup(t *testing.T) {
	c, ok := Lookup("us")
	require.True(t, ok)
	assert.Equal(t, "US", c.Code)
	assert.Equal(t, "United States", c.Name)

	_, ok = Lookup("XX")
	assert.False(t, ok)
	assert.False(t, Valid(""))
}

func TestAll_SortedByName(t *testing.T) {
	list := All()
	require.Greater(t, len(list), 200)
	for i := 1; i < len(list); i++ {
		assert.LessOrEqual(t, list[i-1].Name, list[i].Name)
	}
}
