package cuts

import (
	"math/rand"
	"testing"

	"github.com/fiapx/fiapx-cutdetect-service/internal/domain/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAggregate(t *testing.T) {
	tests := []struct {
		name       string
		frames     int
		boundaries []int
		minLen     int
		want       []Interval
	}{
		{"no boundaries", 100, nil, 10, []Interval{{0, 100}}},
		{"single spike", 100, []int{40}, 10, []Interval{{0, 40}, {40, 100}}},
		{"short middle absorbed forward", 100, []int{40, 45}, 10, []Interval{{0, 40}, {40, 100}}},
		{"short head absorbed forward", 100, []int{3, 50}, 10, []Interval{{0, 50}, {50, 100}}},
		{"short tail merged backward", 100, []int{50, 95}, 10, []Interval{{0, 50}, {50, 100}}},
		{"burst of adjacent boundaries", 100, []int{40, 41, 42, 43, 44}, 10, []Interval{{0, 40}, {40, 100}}},
		{"chain of short intervals", 30, []int{4, 8, 12, 16, 20, 24}, 10, []Interval{{0, 12}, {12, 30}}},
		{"min len equals frame count", 10, []int{5}, 10, []Interval{{0, 10}}},
		{"min len one keeps everything", 5, []int{1, 2, 3, 4}, 1, []Interval{{0, 1}, {1, 2}, {2, 3}, {3, 4}, {4, 5}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Aggregate(tt.frames, tt.boundaries, tt.minLen)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAggregateRejectsInvalidConfiguration(t *testing.T) {
	for _, minLen := range []int{0, -1, 101} {
		_, err := Aggregate(100, []int{40}, minLen)
		assert.ErrorIs(t, err, entity.ErrInvalidConfiguration, "minLen=%d", minLen)
	}
}

func TestAggregateRejectsInvalidBoundaries(t *testing.T) {
	for _, b := range [][]int{{40, 40}, {45, 40}, {0}, {100}, {150}} {
		_, err := Aggregate(100, b, 10)
		assert.ErrorIs(t, err, ErrInvalidBoundaries, "boundaries=%v", b)
	}
}

func TestAggregatorConfirmedExcludesPending(t *testing.T) {
	agg, err := NewAggregator(10)
	require.NoError(t, err)

	require.NoError(t, agg.Add(40))
	require.NoError(t, agg.Add(45))
	assert.Equal(t, []Interval{{0, 40}}, agg.Confirmed())

	require.NoError(t, agg.Add(60))
	assert.Equal(t, []Interval{{0, 40}, {40, 60}}, agg.Confirmed())
}

func TestAggregatorShortVideo(t *testing.T) {
	agg, err := NewAggregator(10)
	require.NoError(t, err)
	require.NoError(t, agg.Add(3))

	got, err := agg.Finish(7)
	require.NoError(t, err)
	assert.Equal(t, []Interval{{0, 7}}, got)

	empty, err := NewAggregator(10)
	require.NoError(t, err)
	got, err = empty.Finish(0)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestAggregatePartitionProperty(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for iter := 0; iter < 200; iter++ {
		frames := 1 + rng.Intn(500)
		minLen := 1 + rng.Intn(frames)
		var boundaries []int
		for b := 1; b < frames; b++ {
			if rng.Intn(8) == 0 {
				boundaries = append(boundaries, b)
			}
		}

		got, err := Aggregate(frames, boundaries, minLen)
		require.NoError(t, err)
		require.NotEmpty(t, got)

		assert.Equal(t, 0, got[0].Start)
		assert.Equal(t, frames, got[len(got)-1].End)
		short := 0
		for i, iv := range got {
			assert.Greater(t, iv.Len(), 0)
			if iv.Len() < minLen {
				short++
			}
			if i > 0 {
				assert.Equal(t, got[i-1].End, iv.Start)
			}
		}
		assert.LessOrEqual(t, short, 1)
	}
}
