package pagination

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLimitClamps(t *testing.T) {
	assert.Equal(t, DefaultPageSize, Pagination{}.Limit())
	assert.Equal(t, MaxPageSize, Pagination{PageSize: 1000}.Limit())
	assert.Equal(t, 10, Pagination{PageSize: 10}.Limit())
}

func TestCursorRoundTrip(t *testing.T) {
	token, err := EncodeCursor(Cursor{ID: "42", CreatedAt: "2025-03-01T12:00:00Z"})
	require.NoError(t, err)

	cursor, err := DecodeCursor(token)
	require.NoError(t, err)
	assert.Equal(t, "42", cursor.ID)

	_, err = DecodeCursor("%%%")
	assert.ErrorIs(t, err, ErrInvalidPageToken)
}

func TestPage(t *testing.T) {
	extract := func(v int) Cursor { return Cursor{ID: string(rune('a' + v))} }

	items, info, err := Page([]int{1, 2, 3}, 3, extract)
	require.NoError(t, err)
	assert.Len(t, items, 3)
	assert.False(t, info.HasMore)

	items, info, err = Page([]int{1, 2, 3, 4}, 3, extract)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, items)
	assert.True(t, info.HasMore)
	assert.NotEmpty(t, info.NextPageToken)
}
