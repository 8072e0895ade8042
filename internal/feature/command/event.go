// Package command routes inbound bot messages to their handlers.
package command

import (
	"strings"

	"coffee_bot/internal/domain"
)

// PhotoVariant is one resolution of an uploaded photo.
type PhotoVariant struct {
	FileID   string
	Width    int
	Height   int
	FileSize int64
}

// Event is a transport-neutral inbound message.
type Event struct {
	ChatID int64
	From   domain.Profile
	Text   string
	Photos []PhotoVariant
}

// Command names recognised by the dispatcher.
const (
	Start  = "start"
	Donate = "donate"
	Stats  = "stats"
	Users  = "users"
)

// startDonateParam is the deep-link payload that opens the donation message.
const startDonateParam = "Donate"

// parse splits text into a command name and its trimmed argument string. Only
// the first token counts, and a @botname suffix on it is dropped.
func parse(text string) (name, args string, ok bool) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return "", "", false
	}

	token := strings.Fields(text)[0]
	rest := strings.TrimPrefix(text, token)

	token = strings.TrimPrefix(token, "/")
	if at := strings.Index(token, "@"); at >= 0 {
		token = token[:at]
	}
	if token == "" {
		return "", "", false
	}

	return token, strings.TrimSpace(rest), true
}

// largestVariant picks the variant with the most pixels; on ties the later
// one wins.
func largestVariant(photos []PhotoVariant) (PhotoVariant, bool) {
	if len(photos) == 0 {
		return PhotoVariant{}, false
	}

	best := photos[0]
	for _, p := range photos[1:] {
		if p.Width*p.Height >= best.Width*best.Height {
			best = p
		}
	}

	return best, true
}
