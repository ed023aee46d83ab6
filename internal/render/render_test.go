package render

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raitha-mitra/inbox-sync/internal/model"
)

var now = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

func TestInboxRendersAsha(t *testing.T) {
	convs := []model.ConversationSummary{{
		OtherUserID:     5,
		OtherUserName:   "Asha",
		LastMessage:     "hi",
		LastMessageTime: "2024-01-01T10:00:00Z",
		UnreadCount:     2,
	}}

	view := Inbox(convs, 0, 2, now)

	require.Len(t, view.Rows, 1)
	row := view.Rows[0]
	assert.Equal(t, "Asha", row.Name)
	assert.True(t, row.HasUnread)
	assert.Equal(t, 2, row.Unread)
	assert.Equal(t, "2h ago", row.TimeAgo)
	assert.False(t, row.Selected)
	assert.False(t, view.Empty)
	assert.Equal(t, Badge{Visible: true, Text: "2", Count: 2}, view.Badge)
}

func TestInboxPreservesOrderAndHighlight(t *testing.T) {
	convs := []model.ConversationSummary{
		{OtherUserID: 9, OtherUserName: "Ravi"},
		{OtherUserID: 3, OtherUserName: "Meena"},
		{OtherUserID: 7, OtherUserName: "Kiran"},
	}

	view := Inbox(convs, 3, 0, now)

	require.Len(t, view.Rows, len(convs))
	assert.Equal(t, []int64{9, 3, 7}, []int64{view.Rows[0].UserID, view.Rows[1].UserID, view.Rows[2].UserID})
	selected := 0
	for _, r := range view.Rows {
		if r.Selected {
			selected++
			assert.Equal(t, int64(3), r.UserID)
		}
	}
	assert.Equal(t, 1, selected)
	assert.False(t, view.Badge.Visible)
}

func TestInboxEmpty(t *testing.T) {
	view := Inbox(nil, 0, 0, now)
	assert.True(t, view.Empty)
	assert.NotNil(t, view.Rows)
	assert.False(t, view.Badge.Visible)
}

func TestBadgeHiddenIffZero(t *testing.T) {
	for _, n := range []int{0, 1, 2, 150} {
		assert.Equal(t, n != 0, CountBadge(n).Visible, "count %d", n)
	}
	assert.Equal(t, "150", CountBadge(150).Text)
	assert.Equal(t, "99+", CappedBadge(150).Text)
	assert.Equal(t, "99", CappedBadge(99).Text)
}

func TestThreadRendersReceivedBubble(t *testing.T) {
	view := Thread(ThreadInput{
		Open:   true,
		UserID: 5,
		Name:   "Asha",
		Messages: []model.Message{
			{MessageText: "hi", CreatedAt: "2024-01-01T10:00:00Z", IsSent: false, IsRead: true},
		},
	}, time.UTC)

	assert.Equal(t, ThreadOpen, view.State)
	assert.Equal(t, NoLocation, view.Location)
	require.Len(t, view.Bubbles, 1)
	assert.Equal(t, AlignLeft, view.Bubbles[0].Align)
	assert.Equal(t, "hi", view.Bubbles[0].HTML)
	assert.Equal(t, "10:00 AM", view.Bubbles[0].Time)
	assert.False(t, view.Bubbles[0].ReadReceipt)
	assert.Empty(t, view.Placeholder)
}

func TestThreadEscapesAndMarksReceipts(t *testing.T) {
	view := Thread(ThreadInput{
		Open: true,
		Messages: []model.Message{
			{MessageText: "<b>seeds</b> & rain", IsSent: true, IsRead: true},
			{MessageText: "ok", IsSent: true, IsRead: false},
		},
		Draft: "  ",
	}, time.UTC)

	require.Len(t, view.Bubbles, 2)
	assert.Equal(t, AlignRight, view.Bubbles[0].Align)
	assert.Equal(t, "&lt;b&gt;seeds&lt;/b&gt; &amp; rain", view.Bubbles[0].HTML)
	assert.True(t, view.Bubbles[0].ReadReceipt)
	assert.False(t, view.Bubbles[1].ReadReceipt)
	assert.False(t, view.CanSend)
}

func TestThreadClosedAndEmpty(t *testing.T) {
	closed := Thread(ThreadInput{}, time.UTC)
	assert.Equal(t, ThreadClosed, closed.State)
	assert.Equal(t, ClosedPlaceholder, closed.Placeholder)

	empty := Thread(ThreadInput{Open: true, Name: "Asha", BlockPending: true}, time.UTC)
	assert.Equal(t, EmptyThreadPlaceholder, empty.Placeholder)
	require.NotNil(t, empty.Block)
	assert.Equal(t, "Asha", empty.Block.UserName)
}

func TestTimeAgo(t *testing.T) {
	tests := []struct {
		ts   string
		want string
	}{
		{"2024-01-01T11:59:30Z", "Just now"},
		{"2024-01-01T11:45:00Z", "15m ago"},
		{"2024-01-01 07:00:00", "5h ago"},
		{"2023-12-29T12:00:00Z", "3d ago"},
		{"2023-11-15T12:00:00Z", "Nov 15"},
		{"", ""},
		{"yesterday", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, TimeAgo(tt.ts, now), tt.ts)
	}
}

func TestTitle(t *testing.T) {
	assert.Equal(t, "Raitha Mitra", Title("Raitha Mitra", 0))
	assert.Equal(t, "(3) Raitha Mitra", Title("Raitha Mitra", 3))
}

func TestSearchResults(t *testing.T) {
	hidden := SearchResults(nil)
	assert.False(t, hidden.Visible)

	none := SearchResults([]model.UserResult{})
	assert.True(t, none.Visible)
	assert.Equal(t, NoUsersFound, none.EmptyText)

	some := SearchResults([]model.UserResult{{ID: 5, Name: "Asha", Location: "Mysuru"}})
	require.Len(t, some.Rows, 1)
	assert.Empty(t, some.EmptyText)
}

func TestCompose(t *testing.T) {
	view := Compose(ComposeInput{
		Open:      true,
		Recipient: &model.UserResult{ID: 5, Name: "Asha"},
	})
	assert.True(t, view.Open)
	require.NotNil(t, view.Recipient)
	assert.Equal(t, int64(5), view.Recipient.ID)
	assert.False(t, view.Search.Visible)
}
