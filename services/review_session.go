package services

import (
	"maps"
	"slices"
	"time"

	"github.com/vnkhanh/vocasync/models"
)

// ReviewSession is one pass over a list of words. It is a value: every
// operation returns a new session and leaves the receiver untouched, so a
// caller can keep several sessions (or undo) without shared state.
type ReviewSession struct {
	words    []models.WordEntry
	index    int
	revealed bool
	finished bool
	states   map[string]models.ReviewState
	ratings  []Rating
}

// SessionSummary describes a session so far.
type SessionSummary struct {
	Total         int
	Reviewed      int
	AverageRating float64
	Finished      bool
}

// NewReviewSession starts at the first word. states seeds the schedule of
// words that were reviewed before; words without a state start fresh.
func NewReviewSession(words []models.WordEntry, states []models.ReviewState) ReviewSession {
	s := ReviewSession{
		words:  slices.Clone(words),
		states: make(map[string]models.ReviewState, len(states)),
	}
	for _, st := range states {
		s.states[st.WordID] = st
	}
	return s
}

func (s ReviewSession) Len() int { return len(s.words) }
func (s ReviewSession) Index() int { return s.index }
func (s ReviewSession) Revealed() bool { return s.revealed }
func (s ReviewSession) Finished() bool { return s.finished }

// Current returns the word under review; false once the session is finished or empty.
func (s ReviewSession) Current() (models.WordEntry, bool) {
	if s.finished || s.index < 0 || s.index >= len(s.words) {
		return models.WordEntry{}, false
	}
	return s.words[s.index], true
}

// Navigate moves by delta words. Moving past the last word finishes the
// session; any other out-of-range move is ignored. The answer is hidden again.
func (s ReviewSession) Navigate(delta int) ReviewSession {
	if s.finished || len(s.words) == 0 {
		return s
	}
	next := s.index + delta
	if s.index == len(s.words)-1 && delta > 0 {
		s.finished = true
		s.revealed = false
		return s
	}
	if next < 0 || next >= len(s.words) {
		return s
	}
	s.index = next
	s.revealed = false
	return s
}

func (s ReviewSession) ToggleAnswer() ReviewSession {
	if _, ok := s.Current(); ok {
		s.revealed = !s.revealed
	}
	return s
}

// Rate schedules the current word and returns the new session together with
// the review state that should be pushed.
func (s ReviewSession) Rate(rating Rating, now time.Time) (ReviewSession, models.ReviewState, error) {
	w, ok := s.Current()
	if !ok {
		return s, models.ReviewState{}, &ValidationError{Field: "session", Reason: "no word under review"}
	}
	var prev *models.ReviewState
	if st, ok := s.states[w.ID]; ok {
		prev = &st
	}
	next, err := ApplyRating(prev, w.ID, rating, now)
	if err != nil {
		return s, models.ReviewState{}, err
	}

	s.states = maps.Clone(s.states)
	s.states[w.ID] = next
	s.ratings = append(slices.Clip(s.ratings), rating)
	return s, next, nil
}

// State returns the schedule known for wordID.
func (s ReviewSession) State(wordID string) (models.ReviewState, bool) {
	st, ok := s.states[wordID]
	return st, ok
}

func (s ReviewSession) Summary() SessionSummary {
	sum := SessionSummary{Total: len(s.words), Reviewed: len(s.ratings), Finished: s.finished}
	if len(s.ratings) == 0 {
		return sum
	}
	total := 0
	for _, r := range s.ratings {
		total += int(r)
	}
	sum.AverageRating = float64(total) / float64(len(s.ratings))
	return sum
}

// DueReviews returns the states due at now, most urgent first: never-reviewed
// words, then lower ease factor, then earlier due time. limit <= 0 means no limit.
func DueReviews(states []models.ReviewState, now time.Time, limit int) []models.ReviewState {
	nowMs := now.UnixMilli()
	due := make([]models.ReviewState, 0, len(states))
	for _, st := range states {
		if st.NextReviewAt <= nowMs {
			due = append(due, st)
		}
	}
	slices.SortStableFunc(due, func(a, b models.ReviewState) int {
		aNew, bNew := a.Repetitions == 0, b.Repetitions == 0
		switch {
		case aNew && !bNew:
			return -1
		case bNew && !aNew:
			return 1
		case a.EaseFactor < b.EaseFactor:
			return -1
		case a.EaseFactor > b.EaseFactor:
			return 1
		case a.NextReviewAt < b.NextReviewAt:
			return -1
		case a.NextReviewAt > b.NextReviewAt:
			return 1
		}
		return 0
	})
	if limit > 0 && len(due) > limit {
		due = due[:limit]
	}
	return due
}

// Mastered reports whether a word needs no more attention for a while: five
// or more successful repetitions, last answered easily, interval of a month.
func Mastered(st models.ReviewState) bool {
	return st.Repetitions >= 5 && st.LastRating >= int(RatingEasy) && st.Interval >= 30
}
