// Package telegram hosts the Telegram client, update routing and the outbound
// sender used by the command handlers.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/sirupsen/logrus"

	"coffee_bot/internal/config"
	"coffee_bot/internal/feature/command"
	"coffee_bot/internal/logging"
)

// Handler consumes converted inbound events.
type Handler interface {
	Handle(ctx context.Context, ev command.Event)
}

type botAPI interface {
	Start(ctx context.Context)
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
	SendPhoto(ctx context.Context, params *bot.SendPhotoParams) (*models.Message, error)
	GetFile(ctx context.Context, params *bot.GetFileParams) (*models.File, error)
	FileDownloadLink(f *models.File) string
	GetMe(ctx context.Context) (*models.User, error)
}

var (
	defaultAllowedUpdates = bot.AllowedUpdates{
		"message",
	}

	createBot = func(token string, options ...bot.Option) (botAPI, error) {
		return bot.New(token, options...)
	}
)

// Option customizes a Client.
type Option func(*Client)

// WithHandler routes inbound events to h.
func WithHandler(h Handler) Option {
	return func(c *Client) {
		c.handler = h
	}
}

// WithDownloadClient sets the HTTP client used to download uploaded files.
func WithDownloadClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// Client wraps the Telegram bot instance and logging dependencies.
type Client struct {
	bot        botAPI
	handler    Handler
	httpClient *http.Client
	logger     *logrus.Entry
}

// NewClient initializes the Telegram bot with long polling and default handlers.
func NewClient(cfg config.Config, logger *logrus.Entry, opts ...Option) (*Client, error) {
	if strings.TrimSpace(cfg.BotToken) == "" {
		return nil, errors.New("telegram token is required")
	}
	if logger == nil {
		logger = logging.Logger()
	}

	c := &Client{
		httpClient: http.DefaultClient,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(c)
	}

	tgBot, err := createBot(cfg.BotToken,
		bot.WithAllowedUpdates(defaultAllowedUpdates),
		bot.WithDefaultHandler(c.defaultHandler()),
		bot.WithErrorsHandler(errorHandler(logger)),
	)
	if err != nil {
		return nil, fmt.Errorf("init telegram bot client: %w", err)
	}
	c.bot = tgBot

	return c, nil
}

// SetHandler installs the event handler; it must be called before Start.
func (c *Client) SetHandler(h Handler) {
	c.handler = h
}

// Start begins receiving updates via long polling until the context is canceled.
func (c *Client) Start(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}

	c.logger.WithFields(logging.Fields{
		"event":           "telegram_listen",
		"allowed_updates": defaultAllowedUpdates,
	}).Info("starting telegram long polling")

	c.bot.Start(ctx)

	c.logger.WithField("event", "telegram_stopped").Info("telegram polling stopped")
}

func (c *Client) defaultHandler() bot.HandlerFunc {
	return func(ctx context.Context, _ *bot.Bot, update *models.Update) {
		if update == nil {
			return
		}

		ev, ok := toEvent(update)

		fields := logging.Fields{
			"event":       "telegram_update",
			"update_type": updateType(update),
		}
		if ok {
			fields["user_id"] = ev.From.UserID
			fields["chat_id"] = ev.ChatID
			if ev.Text != "" {
				fields["text"] = ev.Text
			}
			if len(ev.Photos) > 0 {
				fields["photos"] = len(ev.Photos)
			}
		}
		c.logger.WithFields(fields).Debug("telegram update received")

		if !ok || c.handler == nil {
			return
		}

		c.handler.Handle(ctx, ev)
	}
}

// toEvent converts a message update; other update kinds are not routed.
func toEvent(update *models.Update) (command.Event, bool) {
	msg := update.Message
	if msg == nil || msg.From == nil {
		return command.Event{}, false
	}

	ev := command.Event{
		ChatID: msg.Chat.ID,
		From:   profile(msg.From),
		Text:   strings.TrimSpace(msg.Text),
	}
	for _, p := range msg.Photo {
		ev.Photos = append(ev.Photos, command.PhotoVariant{
			FileID:   p.FileID,
			Width:    p.Width,
			Height:   p.Height,
			FileSize: int64(p.FileSize),
		})
	}

	return ev, true
}

func updateType(update *models.Update) string {
	switch {
	case update.Message != nil:
		return "message"
	case update.EditedMessage != nil:
		return "edited_message"
	case update.CallbackQuery != nil:
		return "callback_query"
	default:
		return "unknown"
	}
}

func errorHandler(logger *logrus.Entry) bot.ErrorsHandler {
	if logger == nil {
		logger = logging.Logger()
	}

	return func(err error) {
		if err == nil {
			return
		}

		logger.WithField("event", "telegram_error").WithError(err).Error("telegram polling error")
	}
}
