package models

// WordEntry is a vocabulary card as edited on a client. UpdatedAt (epoch ms)
// increases on every semantic change and is the only conflict signal.
type WordEntry struct {
	ID          string   `json:"id" binding:"recordkey"`
	Word        string   `json:"word" binding:"notblank"`
	Phonetic    *string  `json:"phonetic,omitempty"`
	Definitions []string `json:"definitions"`
	AudioURL    *string  `json:"audioUrl,omitempty"`
	UpdatedAt   int64    `json:"updatedAt" binding:"gt=0"`

	// Set by the server when the entry is accepted by a push.
	SyncedAt   int64  `json:"syncedAt,omitempty"`
	SyncedFrom string `json:"syncedFrom,omitempty"`
}

// ModifiedAt is the timestamp compared against a pull cursor.
func (w WordEntry) ModifiedAt() int64 {
	return w.UpdatedAt
}
