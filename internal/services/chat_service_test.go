package services

import (
	"context"
	"sync"
	"testing"

	"socialhub/internal/testutil"
	socialhub_errors "socialhub/pkg/errors"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindOrCreateIsOrderIndependent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.chats.FindOrCreate(ctx, f.alice.ID, f.bob.ID)
	require.NoError(t, err)
	second, err := f.chats.FindOrCreate(ctx, f.bob.ID, f.alice.ID)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.ElementsMatch(t, []uuid.UUID{f.alice.ID, f.bob.ID}, first.MemberIDs())
	assert.Nil(t, first.LastMessageID)
	assert.Nil(t, first.LastActivityAt)
	assert.NotEmpty(t, first.ImageURL)
}

func TestFindOrCreateRejectsSelfChat(t *testing.T) {
	f := newFixture(t)

	_, err := f.chats.FindOrCreate(context.Background(), f.alice.ID, f.alice.ID)
	assert.ErrorIs(t, err, socialhub_errors.ErrInvalidInput)
}

func TestFindOrCreateUnknownRecipient(t *testing.T) {
	f := newFixture(t)

	_, err := f.chats.FindOrCreate(context.Background(), f.alice.ID, uuid.New())
	assert.ErrorIs(t, err, socialhub_errors.ErrNotFound)
}

func TestFindOrCreateConcurrentCallersShareOneChat(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	const workers = 8
	ids := make([]uuid.UUID, workers)
	errs := make([]error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			a, b := f.alice.ID, f.bob.ID
			if i%2 == 1 {
				a, b = b, a
			}
			c, err := f.chats.FindOrCreate(ctx, a, b)
			ids[i], errs[i] = c.ID, err
		}(i)
	}
	wg.Wait()

	for i := range ids {
		require.NoError(t, errs[i])
		assert.Equal(t, ids[0], ids[i])
	}
}

func TestGetByIDHidesChatsFromNonMembers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.chat(t, f.alice, f.bob)

	got, err := f.chats.GetByID(ctx, f.bob.ID, c.ID)
	require.NoError(t, err)
	assert.Equal(t, c.ID, got.ID)

	_, err = f.chats.GetByID(ctx, f.carol.ID, c.ID)
	assert.ErrorIs(t, err, socialhub_errors.ErrNotFound)

	_, err = f.chats.GetByID(ctx, f.alice.ID, uuid.New())
	assert.ErrorIs(t, err, socialhub_errors.ErrNotFound)
}

func TestListForUserOrdersByActivityAndSearches(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ab := f.chat(t, f.alice, f.bob)
	ac := f.chat(t, f.alice, f.carol)
	bc := f.chat(t, f.bob, f.carol)

	// ab stays empty; ac gets the newest message.
	_, _, err := f.messages.SendText(ctx, bc.ID, f.carol.ID, "not alice's")
	require.NoError(t, err)
	_, _, err = f.messages.SendText(ctx, ac.ID, f.alice.ID, "hello carol")
	require.NoError(t, err)

	chats, err := f.chats.ListForUser(ctx, f.alice.ID, "")
	require.NoError(t, err)
	require.Len(t, chats, 2)
	assert.Equal(t, ac.ID, chats[0].ID)
	assert.Equal(t, ab.ID, chats[1].ID)
	require.NotNil(t, chats[0].LastMessage)
	assert.Equal(t, "Alice", chats[0].LastMessage.Author.Name)

	chats, err = f.chats.ListForUser(ctx, f.alice.ID, "bO")
	require.NoError(t, err)
	require.Len(t, chats, 1)
	assert.Equal(t, ab.ID, chats[0].ID)

	chats, err = f.chats.ListForUser(ctx, f.alice.ID, "alice")
	require.NoError(t, err)
	assert.Empty(t, chats)
}

func TestListForUserMatchesSearchLiterally(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.chat(t, f.alice, f.bob)
	f.chat(t, f.alice, f.carol)
	odd := testutil.CreateUser(t, f.db, `50%_off\deal`)
	oddChat := f.chat(t, f.alice, odd)

	for _, search := range []string{"B_b", "C%l"} {
		chats, err := f.chats.ListForUser(ctx, f.alice.ID, search)
		require.NoError(t, err)
		assert.Empty(t, chats, search)
	}

	for _, search := range []string{"%", "_", `\`, "0%_O"} {
		chats, err := f.chats.ListForUser(ctx, f.alice.ID, search)
		require.NoError(t, err)
		require.Len(t, chats, 1, search)
		assert.Equal(t, oddChat.ID, chats[0].ID, search)
	}
}

func TestDisplayNameUsesOtherMembers(t *testing.T) {
	f := newFixture(t)
	c := f.chat(t, f.alice, f.bob)

	assert.Equal(t, "Bob", f.chats.DisplayName(c, f.alice.ID))
	assert.Equal(t, "Alice", f.chats.DisplayName(c, f.bob.ID))
}

func TestPartnerIDs(t *testing.T) {
	f := newFixture(t)
	f.chat(t, f.alice, f.bob)
	f.chat(t, f.alice, f.carol)

	ids, err := f.chats.PartnerIDs(context.Background(), f.alice.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []uuid.UUID{f.bob.ID, f.carol.ID}, ids)
}
