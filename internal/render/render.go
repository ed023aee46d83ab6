// Package render turns backend data plus session flags into view
// descriptions. Every function here is pure.
package render

import (
	"html"
	"strings"
	"time"

	"github.com/raitha-mitra/inbox-sync/internal/model"
)

const (
	// ClosedPlaceholder is shown in the thread pane when no thread is open.
	ClosedPlaceholder = "Select a conversation to start messaging"
	// EmptyThreadPlaceholder is shown for an open thread with no messages.
	EmptyThreadPlaceholder = "No messages yet. Start the conversation!"
	// NoLocation is the header fallback for counterparts without a location.
	NoLocation = "Location not set"
	// NoUsersFound is the empty state of a directory search.
	NoUsersFound = "No users found"
)

// ConversationRow is one rendered inbox entry.
type ConversationRow struct {
	UserID    int64  `json:"user_id"`
	Name      string `json:"name"`
	Location  string `json:"location,omitempty"`
	Preview   string `json:"preview"`
	TimeAgo   string `json:"time_ago"`
	Unread    int    `json:"unread"`
	HasUnread bool   `json:"has_unread"`
	Selected  bool   `json:"selected"`
}

// InboxView is the rendered conversation list plus the unread badge.
type InboxView struct {
	Rows  []ConversationRow `json:"rows"`
	Empty bool              `json:"empty"`
	Badge Badge             `json:"badge"`
}

// Inbox renders convs in the order given. openID marks the highlighted row;
// pass 0 when no thread is open.
func Inbox(convs []model.ConversationSummary, openID int64, unread int, now time.Time) InboxView {
	rows := make([]ConversationRow, 0, len(convs))
	for _, c := range convs {
		rows = append(rows, ConversationRow{
			UserID:    c.OtherUserID,
			Name:      c.OtherUserName,
			Location:  c.OtherUserLocation,
			Preview:   c.LastMessage,
			TimeAgo:   TimeAgo(c.LastMessageTime, now),
			Unread:    c.UnreadCount,
			HasUnread: c.UnreadCount > 0,
			Selected:  openID != 0 && c.OtherUserID == openID,
		})
	}

	return InboxView{
		Rows:  rows,
		Empty: len(rows) == 0,
		Badge: CountBadge(unread),
	}
}

// ThreadState is the thread pane state machine.
type ThreadState string

const (
	ThreadClosed ThreadState = "closed"
	ThreadOpen   ThreadState = "open"
)

// Alignment places a bubble in the thread.
type Alignment string

const (
	AlignLeft  Alignment = "left"
	AlignRight Alignment = "right"
)

// Bubble is one rendered message.
type Bubble struct {
	Align       Alignment `json:"align"`
	HTML        string    `json:"html"`
	Time        string    `json:"time"`
	ReadReceipt bool      `json:"read_receipt"`
}

// ThreadInput is the session state the thread pane is drawn from.
type ThreadInput struct {
	Open         bool
	UserID       int64
	Name         string
	Location     string
	Messages     []model.Message
	Draft        string
	BlockPending bool
}

// BlockPrompt is the confirmation modal for blocking the counterpart.
type BlockPrompt struct {
	UserName string `json:"user_name"`
}

// ThreadView is the rendered thread pane.
type ThreadView struct {
	State       ThreadState  `json:"state"`
	UserID      int64        `json:"user_id,omitempty"`
	Name        string       `json:"name,omitempty"`
	Location    string       `json:"location,omitempty"`
	Bubbles     []Bubble     `json:"bubbles"`
	Placeholder string       `json:"placeholder,omitempty"`
	Draft       string       `json:"draft"`
	CanSend     bool         `json:"can_send"`
	Block       *BlockPrompt `json:"block,omitempty"`
}

// Thread renders the thread pane. Messages keep server order.
func Thread(in ThreadInput, loc *time.Location) ThreadView {
	if !in.Open {
		return ThreadView{
			State:       ThreadClosed,
			Bubbles:     []Bubble{},
			Placeholder: ClosedPlaceholder,
		}
	}

	location := in.Location
	if location == "" {
		location = NoLocation
	}

	view := ThreadView{
		State:    ThreadOpen,
		UserID:   in.UserID,
		Name:     in.Name,
		Location: location,
		Bubbles:  Bubbles(in.Messages, loc),
		Draft:    in.Draft,
		CanSend:  strings.TrimSpace(in.Draft) != "",
	}
	if len(view.Bubbles) == 0 {
		view.Placeholder = EmptyThreadPlaceholder
	}
	if in.BlockPending {
		view.Block = &BlockPrompt{UserName: in.Name}
	}
	return view
}

// Bubbles renders messages with escaped text.
func Bubbles(msgs []model.Message, loc *time.Location) []Bubble {
	bubbles := make([]Bubble, 0, len(msgs))
	for _, m := range msgs {
		align := AlignLeft
		if m.IsSent {
			align = AlignRight
		}
		bubbles = append(bubbles, Bubble{
			Align:       align,
			HTML:        html.EscapeString(m.MessageText),
			Time:        ClockTime(m.CreatedAt, loc),
			ReadReceipt: m.IsSent && m.IsRead,
		})
	}
	return bubbles
}

// UserRow is one rendered directory search hit.
type UserRow struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Location string `json:"location,omitempty"`
}

// SearchView is the search result dropdown.
type SearchView struct {
	Visible   bool      `json:"visible"`
	Rows      []UserRow `json:"rows"`
	EmptyText string    `json:"empty_text,omitempty"`
}

// SearchResults renders users. A nil slice means no search is showing.
func SearchResults(users []model.UserResult) SearchView {
	if users == nil {
		return SearchView{Rows: []UserRow{}}
	}

	rows := make([]UserRow, 0, len(users))
	for _, u := range users {
		rows = append(rows, UserRow{ID: u.ID, Name: u.Name, Location: u.Location})
	}

	view := SearchView{Visible: true, Rows: rows}
	if len(rows) == 0 {
		view.EmptyText = NoUsersFound
	}
	return view
}

// ComposeInput is the session state of the new-conversation modal.
type ComposeInput struct {
	Open      bool
	Query     string
	Results   []model.UserResult
	Recipient *model.UserResult
}

// ComposeView is the rendered new-conversation modal.
type ComposeView struct {
	Open      bool       `json:"open"`
	Query     string     `json:"query,omitempty"`
	Search    SearchView `json:"search"`
	Recipient *UserRow   `json:"recipient,omitempty"`
}

// Compose renders the composer modal.
func Compose(in ComposeInput) ComposeView {
	view := ComposeView{
		Open:   in.Open,
		Query:  in.Query,
		Search: SearchResults(in.Results),
	}
	if in.Recipient != nil {
		view.Recipient = &UserRow{ID: in.Recipient.ID, Name: in.Recipient.Name, Location: in.Recipient.Location}
	}
	return view
}
