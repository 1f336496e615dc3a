package services

import (
	"context"
	"testing"
	"time"

	socialhub_errors "socialhub/pkg/errors"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPageWalksHistoryWithoutGapsOrDuplicates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.chat(t, f.alice, f.bob)

	for i, text := range []string{"m1", "m2"} {
		_, _, err := f.messages.SendText(ctx, c.ID, f.alice.ID, text)
		require.NoError(t, err, i)
	}
	// Two messages share a created_at.
	f.clock.Freeze(true)
	for _, text := range []string{"m3", "m4"} {
		_, _, err := f.messages.SendText(ctx, c.ID, f.bob.ID, text)
		require.NoError(t, err)
	}
	f.clock.Freeze(false)
	f.clock.Now()
	_, _, err := f.messages.SendText(ctx, c.ID, f.alice.ID, "m5")
	require.NoError(t, err)

	whole, err := f.history.Page(ctx, f.alice.ID, c.ID, nil, 10)
	require.NoError(t, err)
	require.Len(t, whole.Messages, 5)
	assert.Nil(t, whole.NextCursor)

	var walked []uuid.UUID
	var cursor *Cursor
	pages := 0
	for {
		page, err := f.history.Page(ctx, f.alice.ID, c.ID, cursor, 2)
		require.NoError(t, err)
		pages++
		for _, m := range page.Messages {
			walked = append(walked, m.ID)
		}
		if page.NextCursor == nil {
			break
		}
		// Cursors survive the wire form.
		cursor, err = ParseCursor(page.NextCursor.String())
		require.NoError(t, err)
		require.Less(t, pages, 10)
	}

	assert.Equal(t, 3, pages)
	expected := make([]uuid.UUID, 0, len(whole.Messages))
	for _, m := range whole.Messages {
		expected = append(expected, m.ID)
	}
	assert.Equal(t, expected, walked)
}

func TestPageReportsNextCursorOnlyWhenMoreRemain(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.chat(t, f.alice, f.bob)

	for i := 0; i < 2; i++ {
		_, _, err := f.messages.SendText(ctx, c.ID, f.alice.ID, "x")
		require.NoError(t, err)
	}

	page, err := f.history.Page(ctx, f.alice.ID, c.ID, nil, 2)
	require.NoError(t, err)
	assert.Len(t, page.Messages, 2)
	assert.Nil(t, page.NextCursor)

	page, err = f.history.Page(ctx, f.alice.ID, c.ID, nil, 1)
	require.NoError(t, err)
	assert.Len(t, page.Messages, 1)
	require.NotNil(t, page.NextCursor)
	assert.Equal(t, page.Messages[0].ID, page.NextCursor.ID)
}

func TestPageEmptyChatAndNonMember(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.chat(t, f.alice, f.bob)

	page, err := f.history.Page(ctx, f.alice.ID, c.ID, nil, 20)
	require.NoError(t, err)
	assert.Empty(t, page.Messages)
	assert.NotNil(t, page.Messages)
	assert.Nil(t, page.NextCursor)

	_, err = f.history.Page(ctx, f.carol.ID, c.ID, nil, 20)
	assert.ErrorIs(t, err, socialhub_errors.ErrNotFound)
}

func TestClampLimit(t *testing.T) {
	cases := map[int]int{-3: 20, 0: 20, 1: 1, 20: 20, 50: 50, 51: 50, 1000: 50}
	for in, want := range cases {
		assert.Equal(t, want, ClampLimit(in), "limit %d", in)
	}
}

func TestCursorRoundTrip(t *testing.T) {
	c := Cursor{
		CreatedAt: time.Date(2024, 1, 2, 3, 4, 5, 123456000, time.UTC),
		ID:        uuid.MustParse("5d1a3c7e-7a5b-4b1c-9a3e-1f2e3d4c5b6a"),
	}
	assert.Equal(t, "2024-01-02T03:04:05.123456Z|5d1a3c7e-7a5b-4b1c-9a3e-1f2e3d4c5b6a", c.String())

	parsed, err := ParseCursor(c.String())
	require.NoError(t, err)
	assert.True(t, parsed.CreatedAt.Equal(c.CreatedAt))
	assert.Equal(t, c.ID, parsed.ID)
}

func TestParseCursor(t *testing.T) {
	none, err := ParseCursor("")
	require.NoError(t, err)
	assert.Nil(t, none)

	tsOnly, err := ParseCursor("2024-01-02T03:04:05Z")
	require.NoError(t, err)
	assert.Equal(t, maxID, tsOnly.ID)

	for _, bad := range []string{"yesterday", "2024-01-02T03:04:05Z|nope", "|" + uuid.NewString()} {
		_, err := ParseCursor(bad)
		assert.ErrorIs(t, err, socialhub_errors.ErrInvalidInput, bad)
	}
}
