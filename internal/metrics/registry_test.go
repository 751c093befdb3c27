package metrics

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInitRegistryIsIdempotent(t *testing.T) {
	registry = nil
	registryOnce = sync.Once{}

	InitRegistry()
	first := GetRegistry()
	assert.NotNil(t, first)

	InitRegistry()
	assert.Same(t, first, GetRegistry())

	registry = nil
}

func TestIsEnabledReflectsRegistryState(t *testing.T) {
	registry = nil
	assert.False(t, IsEnabled())

	registry = nil
	registryOnce = sync.Once{}
	InitRegistry()
	assert.True(t, IsEnabled())
	registry = nil
}
