package telegram

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"coffee_bot/internal/feature/promo"
)

// SendText sends an HTML message to chatID.
func (c *Client) SendText(ctx context.Context, chatID int64, text string) error {
	if c == nil || c.bot == nil {
		return errors.New("telegram client is not initialized")
	}

	_, err := c.bot.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    chatID,
		Text:      text,
		ParseMode: models.ParseModeHTML,
	})
	if err != nil {
		return fmt.Errorf("send message: %w", err)
	}

	return nil
}

// SendPhoto sends image with an HTML caption. Images carrying a file handle
// are re-sent by reference; local images are uploaded.
func (c *Client) SendPhoto(ctx context.Context, chatID int64, image promo.Image, caption string) error {
	if c == nil || c.bot == nil {
		return errors.New("telegram client is not initialized")
	}

	var photo models.InputFile
	switch {
	case image.FileID != "":
		photo = &models.InputFileString{Data: image.FileID}
	case len(image.Data) > 0:
		name := image.Filename
		if name == "" {
			name = "coffee.jpg"
		}
		photo = &models.InputFileUpload{Filename: name, Data: bytes.NewReader(image.Data)}
	default:
		return errors.New("image has no content")
	}

	_, err := c.bot.SendPhoto(ctx, &bot.SendPhotoParams{
		ChatID:    chatID,
		Photo:     photo,
		Caption:   caption,
		ParseMode: models.ParseModeHTML,
	})
	if err != nil {
		return fmt.Errorf("send photo: %w", err)
	}

	return nil
}

// Fetch downloads a file previously uploaded to the bot. The caller closes the
// returned body.
func (c *Client) Fetch(ctx context.Context, fileID string) (io.ReadCloser, error) {
	if c == nil || c.bot == nil {
		return nil, errors.New("telegram client is not initialized")
	}
	if ctx == nil {
		return nil, errors.New("context is required")
	}
	if strings.TrimSpace(fileID) == "" {
		return nil, errors.New("file id is required")
	}

	file, err := c.bot.GetFile(ctx, &bot.GetFileParams{FileID: fileID})
	if err != nil {
		return nil, fmt.Errorf("get file: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.bot.FileDownloadLink(file), nil)
	if err != nil {
		return nil, fmt.Errorf("build download request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download file: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("download file: unexpected status %d", resp.StatusCode)
	}

	return resp.Body, nil
}

// GetMe returns the bot's own account.
func (c *Client) GetMe(ctx context.Context) (*models.User, error) {
	if c == nil || c.bot == nil {
		return nil, errors.New("telegram client is not initialized")
	}

	me, err := c.bot.GetMe(ctx)
	if err != nil {
		return nil, fmt.Errorf("get me: %w", err)
	}

	return me, nil
}
