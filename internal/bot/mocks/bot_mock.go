// Package mocks provides fakes of the Telegram API for testing bot handlers.
package mocks

import (
	"context"
	"sync"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// TelegramAPI is the subset of the Telegram client the handlers use.
// It lives here so that bot and mocks do not import each other.
type TelegramAPI interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
	SendPhoto(ctx context.Context, params *bot.SendPhotoParams) (*models.Message, error)
	SendDocument(ctx context.Context, params *bot.SendDocumentParams) (*models.Message, error)
	GetFile(ctx context.Context, params *bot.GetFileParams) (*models.File, error)
	GetUserProfilePhotos(ctx context.Context, params *bot.GetUserProfilePhotosParams) (*models.UserProfilePhotos, error)
	FileDownloadLink(f *models.File) string
}

// SentMessage captures a message sent via MockBot.
type SentMessage struct {
	ChatID    any
	Text      string
	ParseMode models.ParseMode
}

// SentFile captures a photo or document sent via MockBot.
type SentFile struct {
	ChatID    any
	Filename  string
	Caption   string
	ParseMode models.ParseMode
}

var _ TelegramAPI = (*MockBot)(nil)

// MockBot records outgoing Telegram calls.
type MockBot struct {
	mu sync.RWMutex

	SentMessages  []SentMessage
	SentPhotos    []SentFile
	SentDocuments []SentFile

	// SendMessageError makes SendMessage fail.
	SendMessageError error
	// SendFileError makes SendPhoto and SendDocument fail.
	SendFileError error
	// GetFileError makes GetFile fail.
	GetFileError error
	// ProfilePhotoError makes GetUserProfilePhotos fail.
	ProfilePhotoError error

	// ProfilePhotos maps a user ID to the file ID of their profile photo.
	ProfilePhotos map[int64]string
	// ProfilePhotoRequests lists the user IDs passed to GetUserProfilePhotos.
	ProfilePhotoRequests []int64

	// FileDownloadLinkToReturn is returned by FileDownloadLink.
	FileDownloadLinkToReturn string

	// NextMessageID is auto-incremented for each sent message.
	NextMessageID int
}

// NewMockBot creates a new MockBot instance.
func NewMockBot() *MockBot {
	return &MockBot{NextMessageID: 1000}
}

// SendMessage records a text message.
func (m *MockBot) SendMessage(_ context.Context, params *bot.SendMessageParams) (*models.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.SendMessageError != nil {
		return nil, m.SendMessageError
	}

	m.SentMessages = append(m.SentMessages, SentMessage{
		ChatID:    params.ChatID,
		Text:      params.Text,
		ParseMode: params.ParseMode,
	})

	return m.nextMessage(params.ChatID, params.Text), nil
}

// SendPhoto records a photo upload.
func (m *MockBot) SendPhoto(_ context.Context, params *bot.SendPhotoParams) (*models.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.SendFileError != nil {
		return nil, m.SendFileError
	}

	m.SentPhotos = append(m.SentPhotos, SentFile{
		ChatID:    params.ChatID,
		Filename:  uploadName(params.Photo),
		Caption:   params.Caption,
		ParseMode: params.ParseMode,
	})

	return m.nextMessage(params.ChatID, params.Caption), nil
}

// SendDocument records a document upload.
func (m *MockBot) SendDocument(_ context.Context, params *bot.SendDocumentParams) (*models.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.SendFileError != nil {
		return nil, m.SendFileError
	}

	m.SentDocuments = append(m.SentDocuments, SentFile{
		ChatID:    params.ChatID,
		Filename:  uploadName(params.Document),
		Caption:   params.Caption,
		ParseMode: params.ParseMode,
	})

	return m.nextMessage(params.ChatID, params.Caption), nil
}

// GetFile returns file metadata with a fixed path.
func (m *MockBot) GetFile(_ context.Context, params *bot.GetFileParams) (*models.File, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.GetFileError != nil {
		return nil, m.GetFileError
	}

	return &models.File{
		FileID:   params.FileID,
		FilePath: "photos/" + params.FileID + ".jpg",
	}, nil
}

// GetUserProfilePhotos returns the photo configured in ProfilePhotos as a
// single photo in two sizes.
func (m *MockBot) GetUserProfilePhotos(_ context.Context, params *bot.GetUserProfilePhotosParams) (*models.UserProfilePhotos, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.ProfilePhotoRequests = append(m.ProfilePhotoRequests, params.UserID)
	if m.ProfilePhotoError != nil {
		return nil, m.ProfilePhotoError
	}

	fileID, ok := m.ProfilePhotos[params.UserID]
	if !ok {
		return &models.UserProfilePhotos{}, nil
	}
	return &models.UserProfilePhotos{
		TotalCount: 1,
		Photos: [][]models.PhotoSize{{
			{FileID: fileID, Width: 160, Height: 160},
			{FileID: fileID + "-large", Width: 640, Height: 640},
		}},
	}, nil
}

// FileDownloadLink returns FileDownloadLinkToReturn or a placeholder URL.
func (m *MockBot) FileDownloadLink(f *models.File) string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.FileDownloadLinkToReturn != "" {
		return m.FileDownloadLinkToReturn
	}
	return "https://api.telegram.org/file/bot123/" + f.FilePath
}

// Reset clears all recorded interactions and configured errors.
func (m *MockBot) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.SentMessages = nil
	m.SentPhotos = nil
	m.SentDocuments = nil
	m.SendMessageError = nil
	m.SendFileError = nil
	m.GetFileError = nil
	m.ProfilePhotoError = nil
	m.ProfilePhotoRequests = nil
}

// LastSentMessage returns the most recently sent message, or nil if none.
func (m *MockBot) LastSentMessage() *SentMessage {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if len(m.SentMessages) == 0 {
		return nil
	}
	return &m.SentMessages[len(m.SentMessages)-1]
}

// SentMessageCount returns the number of messages sent.
func (m *MockBot) SentMessageCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.SentMessages)
}

// LastSentPhoto returns the most recently sent photo, or nil if none.
func (m *MockBot) LastSentPhoto() *SentFile {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if len(m.SentPhotos) == 0 {
		return nil
	}
	return &m.SentPhotos[len(m.SentPhotos)-1]
}

// LastSentDocument returns the most recently sent document, or nil if none.
func (m *MockBot) LastSentDocument() *SentFile {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if len(m.SentDocuments) == 0 {
		return nil
	}
	return &m.SentDocuments[len(m.SentDocuments)-1]
}

func (m *MockBot) nextMessage(chatID any, text string) *models.Message {
	msgID := m.NextMessageID
	m.NextMessageID++
	return &models.Message{
		ID:   msgID,
		Chat: models.Chat{ID: chatIDToInt64(chatID)},
		Text: text,
	}
}

func uploadName(f models.InputFile) string {
	if upload, ok := f.(*models.InputFileUpload); ok {
		return upload.Filename
	}
	return ""
}

func chatIDToInt64(chatID any) int64 {
	switch v := chatID.(type) {
	case int64:
		return v
	case int:
		return int64(v)
	default:
		return 0
	}
}
