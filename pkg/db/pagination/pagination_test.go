package pagination

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type item struct {
	ID string
}

func TestCursorRoundTrip(t *testing.T) {
	token, err := EncodeCursor(Cursor{ID: "1234567890", CreatedAt: "2026-03-15T12:00:00Z"})
	assert.NoError(t, err)
	assert.NotEmpty(t, token)

	cursor, err := DecodeCursor(token)
	assert.NoError(t, err)
	assert.Equal(t, "1234567890", cursor.ID)
	assert.Equal(t, "2026-03-15T12:00:00Z", cursor.CreatedAt)

	_, err = DecodeCursor("%%% not base64 %%%")
	assert.Error(t, err)
}

func TestBuildCursorPageInfo(t *testing.T) {
	extract := func(i *item) string { return i.ID }

	info := BuildCursorPageInfo([]*item{}, 2, extract)
	assert.False(t, info.HasMore)
	assert.Empty(t, info.NextPageToken)

	// Fetching limit+1 rows signals another page; the cursor points at
	// the last row of the trimmed page.
	info = BuildCursorPageInfo([]*item{{ID: "a"}, {ID: "b"}, {ID: "c"}}, 2, extract)
	assert.True(t, info.HasMore)
	assert.Equal(t, "b", info.NextPageToken)

	info = BuildCursorPageInfo([]*item{{ID: "a"}, {ID: "b"}}, 2, extract)
	assert.False(t, info.HasMore)
	assert.Equal(t, "b", info.NextPageToken)
}
