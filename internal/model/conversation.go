// Package model defines the wire shapes exchanged with the messaging backend.
package model

// ConversationSummary is one row of the viewer's inbox. It is keyed by
// OtherUserID; list order is decided by the backend.
type ConversationSummary struct {
	OtherUserID       int64  `json:"other_user_id"`
	OtherUserName     string `json:"other_user_name"`
	OtherUserLocation string `json:"other_user_location,omitempty"`
	LastMessage       string `json:"last_message"`
	LastMessageTime   string `json:"last_message_time"`
	UnreadCount       int    `json:"unread_count"`
}

// InboxResponse is the response of GET /api/messages/inbox.
type InboxResponse struct {
	Conversations []ConversationSummary `json:"conversations"`
	UnreadCount   int                   `json:"unread_count"`
	Count         int                   `json:"count,omitempty"`
}

// FindConversation returns the summary for userID, if present.
func FindConversation(convs []ConversationSummary, userID int64) (ConversationSummary, bool) {
	for _, c := range convs {
		if c.OtherUserID == userID {
			return c, true
		}
	}
	return ConversationSummary{}, false
}
