package services

import (
	"math"
	"time"

	"github.com/vnkhanh/vocasync/models"
)

// Rating is the recall quality given by the user.
type Rating int

const (
	RatingAgain Rating = iota + 1
	RatingHard
	RatingGood
	RatingEasy
	RatingVeryEasy
)

const (
	MinEaseFactor     = 1.3
	MaxEaseFactor     = 2.5
	InitialEaseFactor = 2.5
	dayMillis         = int64(24 * time.Hour / time.Millisecond)
)

// ErrInvalidRating is returned for ratings outside 1..5.
var ErrInvalidRating = &ValidationError{Field: "rating", Reason: "must be between 1 and 5"}

func (r Rating) Valid() bool {
	return r >= RatingAgain && r <= RatingVeryEasy
}

// Schedule is the part of a review state the SM-2 step reads.
type Schedule struct {
	Interval    int
	EaseFactor  float64
	Repetitions int
}

// InitialSchedule is used for a word that was never rated.
func InitialSchedule() Schedule {
	return Schedule{Interval: 1, EaseFactor: InitialEaseFactor, Repetitions: 0}
}

type ScheduleResult struct {
	Schedule
	NextReviewAt int64
}

// NextSchedule applies one SM-2 step. current may be nil for a new word. The
// ease factor is updated first and the new interval uses the updated ease.
func NextSchedule(current *Schedule, rating Rating, now time.Time) (ScheduleResult, error) {
	if !rating.Valid() {
		return ScheduleResult{}, ErrInvalidRating
	}
	state := InitialSchedule()
	if current != nil {
		state = *current
	}

	q := float64(5 - rating)
	ease := state.EaseFactor + (0.1 - q*(0.08+q*0.02))
	ease = math.Min(MaxEaseFactor, math.Max(MinEaseFactor, ease))

	var next Schedule
	next.EaseFactor = ease
	if rating < RatingGood {
		next.Repetitions = 0
		next.Interval = 1
	} else {
		next.Repetitions = state.Repetitions + 1
		switch next.Repetitions {
		case 1:
			next.Interval = 1
		case 2:
			next.Interval = 6
		default:
			next.Interval = max(1, int(math.Round(float64(state.Interval)*ease)))
		}
	}

	return ScheduleResult{
		Schedule:     next,
		NextReviewAt: now.UnixMilli() + int64(next.Interval)*dayMillis,
	}, nil
}

// ApplyRating returns the review state that follows prev after rating. prev may
// be nil for the first rating of wordID; it is never modified.
func ApplyRating(prev *models.ReviewState, wordID string, rating Rating, now time.Time) (models.ReviewState, error) {
	var current *Schedule
	if prev != nil {
		current = &Schedule{Interval: prev.Interval, EaseFactor: prev.EaseFactor, Repetitions: prev.Repetitions}
	}
	res, err := NextSchedule(current, rating, now)
	if err != nil {
		return models.ReviewState{}, err
	}

	ts := now.UnixMilli()
	var history []models.ReviewEvent
	if prev != nil {
		history = make([]models.ReviewEvent, len(prev.History), len(prev.History)+1)
		copy(history, prev.History)
	}
	history = append(history, models.ReviewEvent{Rating: int(rating), ReviewedAt: ts})

	return models.ReviewState{
		WordID:         wordID,
		Interval:       res.Interval,
		EaseFactor:     res.EaseFactor,
		Repetitions:    res.Repetitions,
		NextReviewAt:   res.NextReviewAt,
		LastRating:     int(rating),
		LastReviewedAt: ts,
		History:        history,
		UpdatedAt:      ts,
	}, nil
}
