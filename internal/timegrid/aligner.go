package timegrid

import (
	"errors"

	"github.com/byteball/perp-stats/internal/domain"
)

// ErrEmptyInput is returned when the sample or grid sequence is empty.
// An empty input is a violated precondition, not a recoverable case.
var ErrEmptyInput = errors.New("no price samples or grid hours provided")

// AlignToGrid merges an irregular ascending sample sequence onto the
// ascending hourly grid. For each grid hour it emits the sample with the
// greatest timestamp at or before that hour; hours preceding every sample
// are omitted entirely (no fill). Both sequences are scanned once left to
// right with a shared pointer that never moves backwards.
func AlignToGrid(samples []domain.PriceSample, hours []int64) ([]domain.PriceSample, error) {
	if len(samples) == 0 || len(hours) == 0 {
		return nil, ErrEmptyInput
	}

	result := make([]domain.PriceSample, 0, len(hours))
	current := 0

	for _, hour := range hours {
		closest := -1
		for i := current; i < len(samples); i++ {
			if samples[i].Timestamp <= hour {
				closest = i
			} else {
				break
			}
		}
		if closest == -1 {
			continue
		}
		result = append(result, domain.PriceSample{
			Timestamp: hour,
			Price:     samples[closest].Price,
		})
		current = closest
	}

	return result, nil
}
