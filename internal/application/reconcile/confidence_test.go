package reconcile

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		score float64
		want  ConfidenceClass
	}{
		{1.0, High},
		{0.8, High},
		{0.7999, Medium},
		{0.6, Medium},
		{0.5999, Low},
		{0.5, Low},
		{0, Low},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Classify(tt.score), "score %v", tt.score)
	}
}

func TestConfidenceClass_String(t *testing.T) {
	assert.Equal(t, "high", High.String())
	assert.Equal(t, "medium", Medium.String())
	assert.Equal(t, "low", Low.String())

	assert.True(t, High.Applies())
	assert.False(t, Medium.Applies())
	assert.False(t, Low.Applies())
}
