package models

// PushRequest is the body of POST /sync/push. The binding tags are checked
// by gin when the body is bound and again by the sync service.
type PushRequest struct {
	Words     []WordEntry   `json:"words" binding:"dive"`
	Reviews   []ReviewState `json:"reviews" binding:"dive"`
	DeviceID  string        `json:"deviceId" binding:"required,notblank"`
	Timestamp int64         `json:"timestamp" binding:"gt=0"`
}

type SyncedCounts struct {
	Words   int `json:"words"`
	Reviews int `json:"reviews"`
}

type PushResponse struct {
	Success   bool         `json:"success"`
	Synced    SyncedCounts `json:"synced"`
	Timestamp int64        `json:"timestamp"`
}

type PullData struct {
	Words   []WordEntry   `json:"words"`
	Reviews []ReviewState `json:"reviews"`
}

type PullResponse struct {
	Success      bool     `json:"success"`
	Data         PullData `json:"data"`
	Timestamp    int64    `json:"timestamp"`
	TotalWords   int      `json:"totalWords"`
	TotalReviews int      `json:"totalReviews"`
}

// SyncEvent is pushed over websocket to a user's other devices after a push
// was accepted, telling them to pull.
type SyncEvent struct {
	Type      string       `json:"type"`
	DeviceID  string       `json:"deviceId"`
	Synced    SyncedCounts `json:"synced"`
	Timestamp int64        `json:"timestamp"`
}

const SyncEventAvailable = "sync_available"

// ErrorResponse is the body of every non-2xx JSON response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
