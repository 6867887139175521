package mocks

import (
	"testing"

	"github.com/go-telegram/bot/models"
	"github.com/stretchr/testify/require"
)

func TestUpdateBuilder_WithMessage(t *testing.T) {
	t.Parallel()

	update := NewUpdateBuilder().
		WithMessage(-100500, 67890, "Hello").
		Build()

	require.NotNil(t, update.Message)
	require.Equal(t, int64(-100500), update.Message.Chat.ID)
	require.Equal(t, models.ChatType("supergroup"), update.Message.Chat.Type)
	require.Equal(t, int64(67890), update.Message.From.ID)
	require.Equal(t, "testuser", update.Message.From.Username)
}

func TestUpdateBuilder_WithPrivateChat(t *testing.T) {
	t.Parallel()

	update := NewUpdateBuilder().WithMessage(1, 1, "/start").WithPrivateChat().Build()
	require.Equal(t, models.ChatType("private"), update.Message.Chat.Type)
}

func TestUpdateBuilder_WithTextMention(t *testing.T) {
	t.Parallel()

	t.Run("offsets count UTF-16 units", func(t *testing.T) {
		t.Parallel()

		update := NewUpdateBuilder().
			WithMessage(1, 2, "/add 10 ☕ Bob").
			WithTextMention("Bob", models.User{ID: 7, FirstName: "Bob"}).
			Build()

		require.Len(t, update.Message.Entities, 1)
		e := update.Message.Entities[0]
		require.Equal(t, models.MessageEntityTypeTextMention, e.Type)
		require.Equal(t, 10, e.Offset)
		require.Equal(t, 3, e.Length)
		require.Equal(t, int64(7), e.User.ID)
	})

	t.Run("caption entities for photos", func(t *testing.T) {
		t.Parallel()

		update := NewUpdateBuilder().
			WithMessage(1, 2, "").
			WithPhoto("file", "dinner Bob").
			WithTextMention("Bob", models.User{ID: 7}).
			Build()

		require.Empty(t, update.Message.Entities)
		require.Len(t, update.Message.CaptionEntities, 1)
	})

	t.Run("missing label is ignored", func(t *testing.T) {
		t.Parallel()

		update := NewUpdateBuilder().
			WithMessage(1, 2, "hello").
			WithTextMention("Bob", models.User{ID: 7}).
			Build()
		require.Empty(t, update.Message.Entities)
	})
}

func TestUpdateBuilder_WithPhoto(t *testing.T) {
	t.Parallel()

	update := PhotoUpdate(1, 2, "receipt", "dinner")
	require.Len(t, update.Message.Photo, 2)
	require.Equal(t, "receipt", update.Message.Photo[1].FileID)
	require.Equal(t, "dinner", update.Message.Caption)
}

func TestUpdateBuilder_MembershipEvents(t *testing.T) {
	t.Parallel()

	joined := NewUpdateBuilder().
		WithMessage(1, 2, "").
		WithNewChatMembers(models.User{ID: 3}, models.User{ID: 4}).
		Build()
	require.Len(t, joined.Message.NewChatMembers, 2)

	left := NewUpdateBuilder().WithLeftChatMember(models.User{ID: 3}).Build()
	require.Equal(t, int64(3), left.Message.LeftChatMember.ID)
}

func TestCommandUpdate(t *testing.T) {
	t.Parallel()

	update := CommandUpdate(-1, 2, "alice", "/balance")
	require.Equal(t, "alice", update.Message.From.Username)
	require.Equal(t, "Alice", update.Message.From.FirstName)
	require.Equal(t, "/balance", update.Message.Text)

	anon := CommandUpdate(-1, 3, "", "/balance")
	require.Equal(t, "", anon.Message.From.FirstName)
}
