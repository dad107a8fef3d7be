package directory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatic_ListAvailableExcludes(t *testing.T) {
	dir := NewStatic(map[string]int{"verified": 5})

	first, err := dir.ListAvailable(context.Background(), "verified", 3, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"verified-0001", "verified-0002", "verified-0003"}, first)

	exclude := map[string]bool{}
	for _, id := range first {
		exclude[id] = true
	}

	second, err := dir.ListAvailable(context.Background(), "verified", 3, exclude)
	require.NoError(t, err)
	assert.Equal(t, []string{"verified-0004", "verified-0005"}, second)
}

func TestStatic_UnknownTier(t *testing.T) {
	dir := NewStatic(map[string]int{"verified": 2})

	_, err := dir.ListAvailable(context.Background(), "cold", 1, nil)
	assert.Error(t, err)

	_, err = dir.Availability(context.Background(), "cold")
	assert.Error(t, err)
}

func TestStatic_GrowRevealsDeeperPool(t *testing.T) {
	dir := NewStatic(map[string]int{"cold": 2})

	n, err := dir.Availability(context.Background(), "cold")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	dir.Grow("cold", 3)

	n, err = dir.Availability(context.Background(), "cold")
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	ids, err := dir.ListAvailable(context.Background(), "cold", 10, nil)
	require.NoError(t, err)
	assert.Len(t, ids, 5)
}
