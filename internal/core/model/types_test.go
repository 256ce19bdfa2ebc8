package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComputeBounds(t *testing.T) {
	records := []Record{
		{SubjectID: "S1", Visit: "V1", PC1: 0.5, PC2: -0.2},
		{SubjectID: "S1", Visit: "V2", PC1: -1.0, PC2: 0.3},
		{SubjectID: "S2", Visit: "V1", PC1: 2.0, PC2: 1.5},
	}

	b, ok := ComputeBounds(records)

	assert.True(t, ok)
	assert.InDelta(t, -1.1, b.MinX, 1e-9)
	assert.InDelta(t, 2.1, b.MaxX, 1e-9)
	assert.InDelta(t, -0.3, b.MinY, 1e-9)
	assert.InDelta(t, 1.6, b.MaxY, 1e-9)
	assert.InDelta(t, 3.2, b.Width(), 1e-9)
	assert.InDelta(t, 1.9, b.Height(), 1e-9)
}

func TestComputeBoundsEmpty(t *testing.T) {
	_, ok := ComputeBounds(nil)
	assert.False(t, ok)
}

func TestComputeBoundsSinglePoint(t *testing.T) {
	b, ok := ComputeBounds([]Record{{PC1: 1, PC2: 1}})

	assert.True(t, ok)
	assert.InDelta(t, 0.2, b.Width(), 1e-9)
	assert.InDelta(t, 0.2, b.Height(), 1e-9)
}
