package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContextRegistry(t *testing.T) {
	registry := NewContextRegistry()

	first := registry.Get("alice")
	assert.Same(t, first, registry.Get("alice"), "same context per username")
	assert.NotSame(t, first, registry.Get("bob"))

	first.ChatID = "chat_1"
	registry.Drop("alice")
	assert.Empty(t, registry.Get("alice").ChatID, "drop discards state")
}
