package models

// ReviewEvent is one rating given to a word.
type ReviewEvent struct {
	Rating     int   `json:"rating" binding:"min=1,max=5"`
	ReviewedAt int64 `json:"reviewedAt"`
}

// ReviewState is the SM-2 schedule of one word for one user.
type ReviewState struct {
	WordID         string        `json:"wordId" binding:"recordkey"`
	Interval       int           `json:"interval" binding:"gte=1"`
	EaseFactor     float64       `json:"easeFactor" binding:"gte=1.3,lte=2.5"`
	Repetitions    int           `json:"repetitions" binding:"gte=0"`
	NextReviewAt   int64         `json:"nextReviewAt"`
	LastRating     int           `json:"lastRating" binding:"omitempty,min=1,max=5"`
	LastReviewedAt int64         `json:"lastReviewedAt"`
	History        []ReviewEvent `json:"history" binding:"dive"`
	UpdatedAt      int64         `json:"updatedAt,omitempty"`

	SyncedAt   int64  `json:"syncedAt,omitempty"`
	SyncedFrom string `json:"syncedFrom,omitempty"`
}

// LatestReview returns the last history entry, if any.
func (r ReviewState) LatestReview() (ReviewEvent, bool) {
	if len(r.History) == 0 {
		return ReviewEvent{}, false
	}
	return r.History[len(r.History)-1], true
}

// ConflictStamp is the value compared by last-writer-wins: the reviewedAt of
// the most recent history entry, or nil when there is no history.
func (r ReviewState) ConflictStamp() *int64 {
	last, ok := r.LatestReview()
	if !ok {
		return nil
	}
	ts := last.ReviewedAt
	return &ts
}

// ModifiedAt is the timestamp compared against a pull cursor.
func (r ReviewState) ModifiedAt() int64 {
	ts := max(r.UpdatedAt, r.LastReviewedAt)
	if last, ok := r.LatestReview(); ok {
		ts = max(ts, last.ReviewedAt)
	}
	return ts
}
