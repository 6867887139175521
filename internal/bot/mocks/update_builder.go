package mocks

import (
	"strings"
	"unicode/utf16"

	"github.com/go-telegram/bot/models"
)

// UpdateBuilder helps construct test Update objects for group chats.
type UpdateBuilder struct {
	update *models.Update
}

// NewUpdateBuilder creates a new UpdateBuilder.
func NewUpdateBuilder() *UpdateBuilder {
	return &UpdateBuilder{update: &models.Update{}}
}

// WithMessage sets a supergroup message on the update.
func (b *UpdateBuilder) WithMessage(chatID, userID int64, text string) *UpdateBuilder {
	b.update.Message = &models.Message{
		ID: 1,
		Chat: models.Chat{
			ID:    chatID,
			Type:  "supergroup",
			Title: "Test Group",
		},
		From: &models.User{
			ID:        userID,
			FirstName: "Test",
			LastName:  "User",
			Username:  "testuser",
		},
		Text: text,
	}
	return b
}

// WithFrom sets custom sender details on the message.
func (b *UpdateBuilder) WithFrom(userID int64, username, firstName, lastName string) *UpdateBuilder {
	if b.update.Message != nil {
		b.update.Message.From = &models.User{
			ID:        userID,
			Username:  username,
			FirstName: firstName,
			LastName:  lastName,
		}
	}
	return b
}

// WithPrivateChat marks the message as sent in a private chat.
func (b *UpdateBuilder) WithPrivateChat() *UpdateBuilder {
	if b.update.Message != nil {
		b.update.Message.Chat.Type = "private"
		b.update.Message.Chat.Title = ""
	}
	return b
}

// WithTextMention attaches a text_mention entity for user over the first
// occurrence of label in the message text. Offsets are UTF-16 as Telegram
// sends them.
func (b *UpdateBuilder) WithTextMention(label string, user models.User) *UpdateBuilder {
	msg := b.update.Message
	if msg == nil {
		return b
	}
	text := msg.Text
	if msg.Text == "" {
		text = msg.Caption
	}
	idx := strings.Index(text, label)
	if idx < 0 {
		return b
	}
	entity := models.MessageEntity{
		Type:   models.MessageEntityTypeTextMention,
		Offset: len(utf16.Encode([]rune(text[:idx]))),
		Length: len(utf16.Encode([]rune(label))),
		User:   &user,
	}
	if msg.Text != "" {
		msg.Entities = append(msg.Entities, entity)
	} else {
		msg.CaptionEntities = append(msg.CaptionEntities, entity)
	}
	return b
}

// WithPhoto adds a photo with an optional caption to the message.
func (b *UpdateBuilder) WithPhoto(fileID, caption string) *UpdateBuilder {
	if b.update.Message == nil {
		b.WithMessage(0, 0, "")
	}
	b.update.Message.Caption = caption
	b.update.Message.Photo = []models.PhotoSize{
		{
			FileID:       fileID + "_small",
			FileUniqueID: fileID + "_small_unique",
			Width:        320,
			Height:       240,
		},
		{
			FileID:       fileID,
			FileUniqueID: fileID + "_unique",
			Width:        1280,
			Height:       960,
		},
	}
	return b
}

// WithNewChatMembers marks the message as a join event.
func (b *UpdateBuilder) WithNewChatMembers(users ...models.User) *UpdateBuilder {
	if b.update.Message == nil {
		b.WithMessage(0, 0, "")
	}
	b.update.Message.NewChatMembers = append(b.update.Message.NewChatMembers, users...)
	return b
}

// WithLeftChatMember marks the message as a leave event.
func (b *UpdateBuilder) WithLeftChatMember(user models.User) *UpdateBuilder {
	if b.update.Message == nil {
		b.WithMessage(0, 0, "")
	}
	b.update.Message.LeftChatMember = &user
	return b
}

// Build returns the constructed Update.
func (b *UpdateBuilder) Build() *models.Update {
	return b.update
}

// CommandUpdate creates a group command from the given sender.
func CommandUpdate(chatID, userID int64, username, text string) *models.Update {
	firstName := username
	if firstName != "" {
		firstName = strings.ToUpper(firstName[:1]) + firstName[1:]
	}
	return NewUpdateBuilder().
		WithMessage(chatID, userID, text).
		WithFrom(userID, username, firstName, "").
		Build()
}

// PhotoUpdate creates a group photo message with a caption.
func PhotoUpdate(chatID, userID int64, fileID, caption string) *models.Update {
	return NewUpdateBuilder().
		WithMessage(chatID, userID, "").
		WithPhoto(fileID, caption).
		Build()
}
