package mocks

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/stretchr/testify/require"
)

func TestMockBot_SendMessage(t *testing.T) {
	t.Parallel()

	t.Run("captures sent message", func(t *testing.T) {
		t.Parallel()

		mockBot := NewMockBot()
		msg, err := mockBot.SendMessage(context.Background(), &bot.SendMessageParams{
			ChatID:    int64(-100123),
			Text:      "Hello, group!",
			ParseMode: models.ParseModeHTML,
		})

		require.NoError(t, err)
		require.Equal(t, 1000, msg.ID)
		require.Equal(t, int64(-100123), msg.Chat.ID)

		require.Equal(t, 1, mockBot.SentMessageCount())
		last := mockBot.LastSentMessage()
		require.Equal(t, "Hello, group!", last.Text)
		require.Equal(t, models.ParseModeHTML, last.ParseMode)
	})

	t.Run("returns error when configured", func(t *testing.T) {
		t.Parallel()

		mockBot := NewMockBot()
		mockBot.SendMessageError = errors.New("send failed")

		_, err := mockBot.SendMessage(context.Background(), &bot.SendMessageParams{ChatID: int64(1), Text: "x"})
		require.EqualError(t, err, "send failed")
		require.Equal(t, 0, mockBot.SentMessageCount())
		require.Nil(t, mockBot.LastSentMessage())
	})

	t.Run("increments message ID", func(t *testing.T) {
		t.Parallel()

		mockBot := NewMockBot()
		msg1, err := mockBot.SendMessage(context.Background(), &bot.SendMessageParams{ChatID: 1, Text: "a"})
		require.NoError(t, err)
		msg2, err := mockBot.SendMessage(context.Background(), &bot.SendMessageParams{ChatID: 1, Text: "b"})
		require.NoError(t, err)

		require.Equal(t, 1000, msg1.ID)
		require.Equal(t, 1001, msg2.ID)
		require.Equal(t, int64(1), msg2.Chat.ID)
	})
}

func TestMockBot_Files(t *testing.T) {
	t.Parallel()

	mockBot := NewMockBot()
	ctx := context.Background()

	_, err := mockBot.SendPhoto(ctx, &bot.SendPhotoParams{
		ChatID:  int64(5),
		Photo:   &models.InputFileUpload{Filename: "chart.png", Data: bytes.NewReader([]byte("png"))},
		Caption: "chart",
	})
	require.NoError(t, err)
	require.Equal(t, "chart.png", mockBot.LastSentPhoto().Filename)

	_, err = mockBot.SendDocument(ctx, &bot.SendDocumentParams{
		ChatID:   int64(5),
		Document: &models.InputFileUpload{Filename: "report.csv", Data: bytes.NewReader([]byte("csv"))},
	})
	require.NoError(t, err)
	require.Equal(t, "report.csv", mockBot.LastSentDocument().Filename)

	mockBot.SendFileError = errors.New("upload failed")
	_, err = mockBot.SendDocument(ctx, &bot.SendDocumentParams{ChatID: int64(5), Document: &models.InputFileString{Data: "id"}})
	require.Error(t, err)
	require.Len(t, mockBot.SentDocuments, 1)
}

func TestMockBot_GetFile(t *testing.T) {
	t.Parallel()

	mockBot := NewMockBot()
	f, err := mockBot.GetFile(context.Background(), &bot.GetFileParams{FileID: "abc"})
	require.NoError(t, err)
	require.Equal(t, "photos/abc.jpg", f.FilePath)
	require.Equal(t, "https://api.telegram.org/file/bot123/photos/abc.jpg", mockBot.FileDownloadLink(f))

	mockBot.FileDownloadLinkToReturn = "http://localhost/x"
	require.Equal(t, "http://localhost/x", mockBot.FileDownloadLink(f))

	mockBot.GetFileError = errors.New("not found")
	_, err = mockBot.GetFile(context.Background(), &bot.GetFileParams{FileID: "abc"})
	require.Error(t, err)
}

func TestMockBot_Reset(t *testing.T) {
	t.Parallel()

	mockBot := NewMockBot()
	_, _ = mockBot.SendMessage(context.Background(), &bot.SendMessageParams{ChatID: 1, Text: "a"})
	mockBot.SendMessageError = errors.New("x")
	mockBot.Reset()

	require.Equal(t, 0, mockBot.SentMessageCount())
	require.NoError(t, mockBot.SendMessageError)
}
