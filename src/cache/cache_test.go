package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lowerc/src/source"
)

func sampleModule(name string) *source.Module {
	return &source.Module{
		Name: name,
		Definitions: []*source.Definition{
			{
				Name:       "id",
				Arguments:  []source.Argument{{Name: "x", Type: source.Number{}}},
				Body:       &source.Variable{Name: "x"},
				ResultType: source.Number{},
			},
		},
	}
}

func TestKeyStableAndDistinct(t *testing.T) {
	m1 := sampleModule("a")
	m2 := sampleModule("a")
	m3 := sampleModule("b")

	assert.Equal(t, Key(m1, "x86_64-linux-gnu"), Key(m2, "x86_64-linux-gnu"))
	assert.NotEqual(t, Key(m1, "x86_64-linux-gnu"), Key(m3, "x86_64-linux-gnu"))
	assert.NotEqual(t, Key(m1, "x86_64-linux-gnu"), Key(m1, "aarch64-linux-gnu"))
}

func TestNilCacheAlwaysMisses(t *testing.T) {
	var c *Cache
	_, hit, err := c.Lookup("anything")
	require.NoError(t, err)
	assert.False(t, hit)
	require.NoError(t, c.Store("anything", "text"))
	require.NoError(t, c.Close())
}

func TestOpenLookupStoreRoundTrip(t *testing.T) {
	dir := t.TempDir()
	c, err := Open(dir)
	require.NoError(t, err)
	defer c.Close()

	m := sampleModule("roundtrip")
	key := Key(m, "x86_64-linux-gnu")

	_, hit, err := c.Lookup(key)
	require.NoError(t, err)
	assert.False(t, hit)

	require.NoError(t, c.Store(key, "define @roundtrip.id ..."))

	text, hit, err := c.Lookup(key)
	require.NoError(t, err)
	require.True(t, hit)
	assert.Equal(t, "define @roundtrip.id ...", text)

	// Overwriting an existing key updates the stored text.
	require.NoError(t, c.Store(key, "define @roundtrip.id v2"))
	text, hit, err = c.Lookup(key)
	require.NoError(t, err)
	require.True(t, hit)
	assert.Equal(t, "define @roundtrip.id v2", text)
}

func TestOpenEmptyDirYieldsNilCache(t *testing.T) {
	c, err := Open("")
	require.NoError(t, err)
	assert.Nil(t, c)
}
