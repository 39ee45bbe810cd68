package ranking

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type vecItem struct {
	id  string
	vec []float32
}

func (v vecItem) RankingID() string { return v.id }
func (v vecItem) Vector() []float32 { return v.vec }

func TestCosine(t *testing.T) {
	tests := []struct {
		name   string
		a, b   []float32
		expect float64
	}{
		{name: "identical", a: []float32{1, 2, 3}, b: []float32{1, 2, 3}, expect: 1},
		{name: "opposite", a: []float32{1, 0}, b: []float32{-1, 0}, expect: -1},
		{name: "orthogonal", a: []float32{1, 0}, b: []float32{0, 1}, expect: 0},
		{name: "zero vector", a: []float32{0, 0}, b: []float32{1, 1}, expect: 0},
		{name: "scale invariant", a: []float32{1, 1}, b: []float32{10, 10}, expect: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Cosine(tt.a, tt.b)
			require.NoError(t, err)
			assert.InDelta(t, tt.expect, got, 1e-9)
		})
	}

	_, err := Cosine([]float32{1}, []float32{1, 2})
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestScoreBounds(t *testing.T) {
	assert.Equal(t, 1.0, Score(1))
	assert.Equal(t, 0.0, Score(-1))
	assert.Equal(t, 0.5, Score(0))
	assert.Equal(t, 1.0, Score(1.0000001))
	assert.Equal(t, 0.0, Clamp01(math.NaN()))
}

func TestRankPreservesOrderAndScores(t *testing.T) {
	query := []float32{1, 0}
	items := []vecItem{
		{id: "b", vec: []float32{0, 1}},
		{id: "a", vec: []float32{1, 0}},
		{id: "c", vec: []float32{-1, 0}},
	}

	scored, err := Rank(query, items)
	require.NoError(t, err)
	require.Len(t, scored, 3)

	assert.Equal(t, "b", scored[0].Item.id)
	assert.InDelta(t, 0.5, scored[0].VectorScore, 1e-9)
	assert.InDelta(t, 1.0, scored[1].VectorScore, 1e-9)
	assert.InDelta(t, 0.0, scored[2].VectorScore, 1e-9)
}

func TestRankFailsOnDimensionMismatch(t *testing.T) {
	items := []vecItem{
		{id: "ok", vec: []float32{1, 0}},
		{id: "broken", vec: []float32{1, 0, 0}},
	}

	_, err := Rank([]float32{1, 0}, items)
	require.Error(t, err)

	var mismatch *DimensionMismatchError
	require.True(t, errors.As(err, &mismatch))
	assert.Equal(t, 2, mismatch.Expected)
	assert.Equal(t, 3, mismatch.Got)
	assert.Equal(t, "broken", mismatch.Source)
}

func TestRankEmpty(t *testing.T) {
	scored, err := Rank[vecItem]([]float32{1}, nil)
	require.NoError(t, err)
	assert.Empty(t, scored)
}
