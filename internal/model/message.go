package model

// Message is one entry of a thread, as seen by the current viewer.
type Message struct {
	ID          int64  `json:"id,omitempty"`
	MessageText string `json:"message_text"`
	CreatedAt   string `json:"created_at"`

	// IsSent is true when the viewer authored the message.
	IsSent bool `json:"is_sent"`
	// IsRead is only meaningful when IsSent is true.
	IsRead bool `json:"is_read"`
}

// ThreadResponse is the response of GET /api/messages/thread/{userId}.
type ThreadResponse struct {
	Messages []Message `json:"messages"`
	Count    int       `json:"count,omitempty"`
}

// SendMessageRequest is the body of POST /api/messages/send.
type SendMessageRequest struct {
	ReceiverID  int64  `json:"receiver_id"`
	MessageText string `json:"message_text"`
}

// SendMessageResponse is the success body of POST /api/messages/send.
type SendMessageResponse struct {
	MessageID int64  `json:"message_id,omitempty"`
	Message   string `json:"message,omitempty"`
}

// ErrorResponse is the body the backend returns with non-2xx statuses.
type ErrorResponse struct {
	Error             string `json:"error"`
	RateLimitExceeded bool   `json:"rate_limit_exceeded,omitempty"`
	Remaining         int    `json:"remaining,omitempty"`
	ResetTime         int64  `json:"reset_time,omitempty"`
}
