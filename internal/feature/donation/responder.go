// Package donation renders and delivers the donation message.
package donation

import (
	"context"
	"errors"
	"fmt"
	"html"

	"github.com/sirupsen/logrus"

	"coffee_bot/internal/feature/promo"
	"coffee_bot/internal/logging"
	"coffee_bot/internal/metrics"
)

type sender interface {
	SendText(ctx context.Context, chatID int64, text string) error
	SendPhoto(ctx context.Context, chatID int64, image promo.Image, caption string) error
}

type imageSource interface {
	Latest(ctx context.Context) (promo.Image, bool, error)
}

// Wallets holds the donation addresses shown to users.
type Wallets struct {
	TRC20 string
	BEP20 string
}

// Responder sends the donation message, attaching the promotional image when
// one is available.
type Responder struct {
	sender  sender
	images  imageSource
	wallets Wallets
	logger  *logrus.Entry
}

// NewResponder constructs a Responder. images may be nil, in which case the
// message is always sent as text.
func NewResponder(sender sender, images imageSource, wallets Wallets, logger *logrus.Entry) *Responder {
	if logger == nil {
		logger = logging.Logger()
	}

	return &Responder{
		sender:  sender,
		images:  images,
		wallets: wallets,
		logger:  logger,
	}
}

// Message renders the HTML donation text.
func Message(wallets Wallets) string {
	return "☕ <b>Support WallSwipe</b>\n\n" +
		"You can support us by making a crypto donation:\n\n" +
		"🔹 <b>USDT [TRC20]</b> (click to copy)\n" +
		"<code>" + html.EscapeString(wallets.TRC20) + "</code>\n\n" +
		"🔹 <b>USDT [BEP20]</b> (click to copy)\n" +
		"<code>" + html.EscapeString(wallets.BEP20) + "</code>\n\n" +
		"⚠️ Please send only USDT on the selected network.\n" +
		"Crypto transactions are irreversible.\n\n" +
		"Thank you for supporting WallSwipe ❤️"
}

// SendDonation delivers the donation message to chatID. Image lookup and
// photo failures fall back to plain text; a failed fallback is logged and
// reported to the caller.
func (r *Responder) SendDonation(ctx context.Context, chatID int64) error {
	if r == nil || r.sender == nil {
		return errors.New("donation responder is not initialized")
	}
	if ctx == nil {
		return errors.New("context is required")
	}

	text := Message(r.wallets)
	log := r.logger.WithFields(logging.Fields{"chat_id": chatID})

	if image, ok := r.latestImage(ctx, log); ok {
		err := r.sender.SendPhoto(ctx, chatID, image, text)
		if err == nil {
			metrics.IncDonationSend(metrics.DonationPhoto)
			log.WithField("event", "donation_sent").Info("sent donation message with image")
			return nil
		}

		log.WithFields(logging.Fields{
			"event": "donation_photo_error",
			"error": err,
		}).Warn("failed to send donation image, falling back to text")
	}

	if err := r.sender.SendText(ctx, chatID, text); err != nil {
		metrics.IncDonationSend(metrics.DonationFailed)
		log.WithFields(logging.Fields{
			"event": "donation_send_error",
			"error": err,
		}).Error("failed to send donation message")
		return fmt.Errorf("send donation text: %w", err)
	}

	metrics.IncDonationSend(metrics.DonationText)
	log.WithField("event", "donation_sent").Info("sent donation message")

	return nil
}

func (r *Responder) latestImage(ctx context.Context, log *logrus.Entry) (promo.Image, bool) {
	if r.images == nil {
		return promo.Image{}, false
	}

	image, ok, err := r.images.Latest(ctx)
	if err != nil {
		log.WithFields(logging.Fields{
			"event": "donation_image_error",
			"error": err,
		}).Warn("failed to load donation image")
		return promo.Image{}, false
	}

	return image, ok
}
