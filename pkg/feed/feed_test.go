package feed

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRegistryResolveIsCaseInsensitive(t *testing.T) {
	registry := NewRegistry(map[string]string{"CS1": "cs1-suffix"})

	for _, name := range []string{"CS1", "cs1", "Cs1"} {
		section, ok := registry.Resolve(name)
		assert.True(t, ok)
		assert.Equal(t, "CS1", section.Name)
		assert.Equal(t, "cs1-suffix", section.Suffix)
	}

	_, ok := registry.Resolve("unknown")
	assert.False(t, ok)
}

func TestRegistryNamesAreSorted(t *testing.T) {
	registry := NewRegistry(map[string]string{"M2": "b", "CS1": "a", "L3": "c"})
	assert.Equal(t, []string{"CS1", "L3", "M2"}, registry.Names())
}

func TestRegistryAll(t *testing.T) {
	registry := NewRegistry(map[string]string{"M2": "m2", "CS1": "cs1"})
	all := registry.All()
	assert.Equal(t, []Section{{Name: "CS1", Suffix: "cs1"}, {Name: "M2", Suffix: "m2"}}, all)
}
