package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vnkhanh/vocasync/models"
)

var schedNow = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

func TestNextSchedule_GoodSequence(t *testing.T) {
	step1, err := NextSchedule(nil, RatingGood, schedNow)
	require.NoError(t, err)
	assert.Equal(t, 1, step1.Repetitions)
	assert.Equal(t, 1, step1.Interval)
	assert.InDelta(t, 2.36, step1.EaseFactor, 1e-9)
	assert.Equal(t, schedNow.UnixMilli()+86_400_000, step1.NextReviewAt)

	step2, err := NextSchedule(&step1.Schedule, RatingGood, schedNow)
	require.NoError(t, err)
	assert.Equal(t, 2, step2.Repetitions)
	assert.Equal(t, 6, step2.Interval)
	assert.InDelta(t, 2.22, step2.EaseFactor, 1e-9)

	step3, err := NextSchedule(&step2.Schedule, RatingGood, schedNow)
	require.NoError(t, err)
	assert.Equal(t, 3, step3.Repetitions)
	assert.Equal(t, 12, step3.Interval, "interval uses the updated ease: round(6*2.08)")
	assert.InDelta(t, 2.08, step3.EaseFactor, 1e-9)
	assert.Equal(t, schedNow.UnixMilli()+12*86_400_000, step3.NextReviewAt)
}

func TestNextSchedule_EaseDeltaPerRating(t *testing.T) {
	start := Schedule{Interval: 10, EaseFactor: 2.0, Repetitions: 4}
	tests := []struct {
		rating Rating
		ease   float64
	}{
		{RatingAgain, 1.46},
		{RatingHard, 1.68},
		{RatingGood, 1.86},
		{RatingEasy, 2.0},
		{RatingVeryEasy, 2.1},
	}
	for _, tt := range tests {
		res, err := NextSchedule(&start, tt.rating, schedNow)
		require.NoError(t, err)
		assert.InDelta(t, tt.ease, res.EaseFactor, 1e-9, "rating %d", tt.rating)
	}
}

func TestNextSchedule_LapseResets(t *testing.T) {
	prior := Schedule{Interval: 40, EaseFactor: 2.4, Repetitions: 7}
	for _, r := range []Rating{RatingAgain, RatingHard} {
		res, err := NextSchedule(&prior, r, schedNow)
		require.NoError(t, err)
		assert.Equal(t, 0, res.Repetitions)
		assert.Equal(t, 1, res.Interval)
	}
}

func TestNextSchedule_Bounds(t *testing.T) {
	eases := []float64{1.3, 1.31, 1.5, 1.9, 2.2, 2.49, 2.5}
	intervals := []int{1, 2, 6, 15, 100}
	for _, ease := range eases {
		for _, interval := range intervals {
			for reps := 0; reps < 5; reps++ {
				for r := RatingAgain; r <= RatingVeryEasy; r++ {
					prior := Schedule{Interval: interval, EaseFactor: ease, Repetitions: reps}
					res, err := NextSchedule(&prior, r, schedNow)
					require.NoError(t, err)
					assert.GreaterOrEqual(t, res.EaseFactor, MinEaseFactor)
					assert.LessOrEqual(t, res.EaseFactor, MaxEaseFactor)
					assert.GreaterOrEqual(t, res.Interval, 1)
					assert.GreaterOrEqual(t, res.Repetitions, 0)
				}
			}
		}
	}
}

func TestNextSchedule_RejectsOutOfRangeRating(t *testing.T) {
	for _, r := range []Rating{0, 6, -1} {
		_, err := NextSchedule(nil, r, schedNow)
		assert.ErrorIs(t, err, ErrInvalidRating)
		assert.ErrorIs(t, err, ErrValidation)
	}
}

func TestNextSchedule_Deterministic(t *testing.T) {
	prior := Schedule{Interval: 6, EaseFactor: 2.22, Repetitions: 2}
	a, err := NextSchedule(&prior, RatingEasy, schedNow)
	require.NoError(t, err)
	b, err := NextSchedule(&prior, RatingEasy, schedNow)
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Equal(t, Schedule{Interval: 6, EaseFactor: 2.22, Repetitions: 2}, prior)
}

func TestApplyRating_BuildsHistoryWithoutMutatingPrevious(t *testing.T) {
	first, err := ApplyRating(nil, "w1", RatingGood, schedNow)
	require.NoError(t, err)
	assert.Equal(t, "w1", first.WordID)
	assert.Equal(t, 3, first.LastRating)
	assert.Equal(t, schedNow.UnixMilli(), first.LastReviewedAt)
	assert.Equal(t, schedNow.UnixMilli(), first.UpdatedAt)
	require.Len(t, first.History, 1)

	later := schedNow.Add(24 * time.Hour)
	second, err := ApplyRating(&first, "w1", RatingAgain, later)
	require.NoError(t, err)
	require.Len(t, second.History, 2)
	assert.Len(t, first.History, 1)
	assert.Equal(t, models.ReviewEvent{Rating: 1, ReviewedAt: later.UnixMilli()}, second.History[1])
	assert.Equal(t, 0, second.Repetitions)
	assert.Equal(t, later.UnixMilli()+86_400_000, second.NextReviewAt)
}
