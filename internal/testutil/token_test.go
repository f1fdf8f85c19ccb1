package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/flume/internal/translate"
)

func TestStaticTokenGenerator_ReturnsSameToken(t *testing.T) {
	gen := NewStaticTokenGenerator("test-build-abc")

	assert.Equal(t, "test-build-abc", gen.Generate())
	assert.Equal(t, "test-build-abc", gen.Generate())
	assert.Equal(t, "test-build-abc", gen.Generate())
}

func TestStaticTokenGenerator_EmptyTokenUsesDefault(t *testing.T) {
	gen := NewStaticTokenGenerator("")
	assert.Equal(t, "test-build-default", gen.Generate())
}

func TestStaticTokenGenerator_ImplementsTokenGenerator(t *testing.T) {
	var gen translate.TokenGenerator = NewStaticTokenGenerator("fixed")
	assert.Equal(t, "fixed", gen.Generate())
}
