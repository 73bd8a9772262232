package timegrid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/byteball/perp-stats/internal/domain"
)

func samples(pairs ...float64) []domain.PriceSample {
	out := make([]domain.PriceSample, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, domain.PriceSample{Timestamp: int64(pairs[i]), Price: pairs[i+1]})
	}
	return out
}

func TestAlignToGrid(t *testing.T) {
	got, err := AlignToGrid(samples(100, 1.0, 200, 2.0, 500, 3.0), []int64{150, 300, 600})
	require.NoError(t, err)

	assert.Equal(t, []domain.PriceSample{
		{Timestamp: 150, Price: 1.0},
		{Timestamp: 300, Price: 2.0},
		{Timestamp: 600, Price: 3.0},
	}, got)
}

func TestAlignToGrid_OmitsHoursBeforeFirstSample(t *testing.T) {
	got, err := AlignToGrid(samples(100, 1.0), []int64{50})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestAlignToGrid_DuplicateTimestamps(t *testing.T) {
	// Duplicates must not crash alignment; the later sample wins.
	got, err := AlignToGrid(samples(100, 1.0, 100, 1.5, 200, 2.0), []int64{150, 250})
	require.NoError(t, err)

	assert.Equal(t, []domain.PriceSample{
		{Timestamp: 150, Price: 1.5},
		{Timestamp: 250, Price: 2.0},
	}, got)
}

func TestAlignToGrid_PointerNeverResets(t *testing.T) {
	// One sample serves many grid hours after it.
	got, err := AlignToGrid(samples(100, 1.0, 7000, 9.0), []int64{3600, 7200, 10800})
	require.NoError(t, err)

	assert.Equal(t, []domain.PriceSample{
		{Timestamp: 3600, Price: 1.0},
		{Timestamp: 7200, Price: 9.0},
		{Timestamp: 10800, Price: 9.0},
	}, got)
}

func TestAlignToGrid_EmptyInputs(t *testing.T) {
	_, err := AlignToGrid(nil, []int64{3600})
	assert.ErrorIs(t, err, ErrEmptyInput)

	_, err = AlignToGrid(samples(100, 1.0), nil)
	assert.ErrorIs(t, err, ErrEmptyInput)
}
