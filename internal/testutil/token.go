package testutil

// StaticTokenGenerator generates the same build token every time.
//
// This enables deterministic builds and golden snapshot comparison: the
// same scenario with the same StaticTokenGenerator produces byte-identical
// pipeline dumps.
//
// Unlike translate.FixedGenerator which returns tokens in sequence, this
// generator always returns the same token. This is useful for scenarios
// where every build should share one token.
//
// Thread-safety: StaticTokenGenerator is stateless and safe for concurrent use.
type StaticTokenGenerator struct {
	token string
}

// NewStaticTokenGenerator creates a new static build token generator.
//
// The token is typically set in the scenario YAML:
//
//	build_token: "test-build-00000000-0000-0000-0000-000000000001"
//
// If token is empty, Generate() returns "test-build-default".
func NewStaticTokenGenerator(token string) *StaticTokenGenerator {
	if token == "" {
		token = "test-build-default"
	}
	return &StaticTokenGenerator{token: token}
}

// Generate returns the fixed build token.
//
// Implements translate.TokenGenerator.
func (g *StaticTokenGenerator) Generate() string {
	return g.token
}
