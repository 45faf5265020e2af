package viz

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRenderMarkdown(t *testing.T) {
	assert.Empty(t, RenderMarkdown("   ", false, 80))

	out := RenderMarkdown("**Signed** on the call", true, 60)
	assert.Contains(t, out, "Signed")
	assert.NotContains(t, out, "**")
}
