package repository

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateSummaryReference(t *testing.T) {
	ref := GenerateSummaryReference("pa")
	parts := strings.Split(ref, "/")
	require.Len(t, parts, 3)
	assert.Equal(t, "CS", parts[0])
	assert.Equal(t, "PA", parts[1])
	assert.Len(t, parts[2], 7)

	fallback := GenerateSummaryReference("  ")
	assert.True(t, strings.HasPrefix(fallback, "CS/XX/"))
}

func TestGenerateRevisionCode(t *testing.T) {
	assert.Equal(t, "RV-01", GenerateRevisionCode(""))
	assert.Equal(t, "RV-02", GenerateRevisionCode("RV-01"))
	assert.Equal(t, "RV-10", GenerateRevisionCode("RV-09"))
	assert.Equal(t, "RV-100", GenerateRevisionCode("RV-99"))
}
