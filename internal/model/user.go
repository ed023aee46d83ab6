package model

// UserResult is one hit of the user directory search.
type UserResult struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Location string `json:"location,omitempty"`
}

// SearchResponse is the response of GET /api/friends/search.
type SearchResponse struct {
	Users []UserResult `json:"users"`
	Count int          `json:"count,omitempty"`
}

// NotificationCounts is the response of GET /api/notifications/counts.
type NotificationCounts struct {
	UnreadMessages int `json:"unread_messages"`
	FriendRequests int `json:"friend_requests"`
}

// Total is the sum shown in the page title.
func (c NotificationCounts) Total() int {
	return c.UnreadMessages + c.FriendRequests
}
