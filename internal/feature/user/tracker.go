// Package user tracks per-user interaction counters.
package user

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"coffee_bot/internal/domain"
	"coffee_bot/internal/logging"
	"coffee_bot/internal/metrics"
)

type userStore interface {
	GetByID(ctx context.Context, userID int64) (domain.User, error)
	Create(ctx context.Context, user domain.User) (domain.User, error)
	Update(ctx context.Context, user domain.User) error
}

// Tracker creates user records on first contact and advances their counters
// on every tracked interaction.
type Tracker struct {
	users  userStore
	logger *logrus.Entry
	now    func() time.Time
}

// NewTracker constructs a Tracker for the provided user store.
func NewTracker(users userStore, logger *logrus.Entry) *Tracker {
	if logger == nil {
		logger = logging.Logger()
	}

	return &Tracker{
		users:  users,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
	}
}

// Track records the interaction and swallows failures; a tracking error never
// blocks the reply to the user.
func (t *Tracker) Track(ctx context.Context, profile domain.Profile, action string) {
	if err := t.Record(ctx, profile, action); err != nil {
		metrics.IncTrackingFailure()

		logger := logging.Logger()
		if t != nil && t.logger != nil {
			logger = t.logger
		}
		logger.WithFields(logging.Fields{
			"event":   "user_track_error",
			"user_id": profile.UserID,
			"action":  action,
			"error":   err,
		}).Error("failed to track user interaction")
	}
}

// Record finds the user and either updates the existing record or creates a
// new one. Exactly one write is issued per call.
func (t *Tracker) Record(ctx context.Context, profile domain.Profile, action string) error {
	if t == nil || t.users == nil {
		return errors.New("user tracker is not initialized")
	}
	if ctx == nil {
		return errors.New("context is required")
	}
	if profile.UserID == 0 {
		return errors.New("user id is required")
	}

	now := t.now()
	isDonate := action == domain.ActionDonate

	existing, err := t.users.GetByID(ctx, profile.UserID)
	switch {
	case err == nil:
		existing.Username = profile.Username
		existing.FirstName = profile.FirstName
		existing.LastName = profile.LastName
		existing.LanguageCode = profile.LanguageCode
		existing.IsPremium = profile.IsPremium
		existing.LastActive = now
		existing.UpdatedAt = now
		existing.TotalInteractions++
		if isDonate {
			existing.DonateViews++
		}

		if err := t.users.Update(ctx, existing); err != nil {
			return fmt.Errorf("track user %d: %w", profile.UserID, err)
		}

		t.logger.WithFields(logging.Fields{
			"event":   "user_seen",
			"user_id": profile.UserID,
			"action":  action,
		}).Debug("updated user interaction counters")

		return nil
	case errors.Is(err, domain.ErrNotFound):
	default:
		return fmt.Errorf("track user %d: %w", profile.UserID, err)
	}

	record := domain.User{
		UserID:            profile.UserID,
		Username:          profile.Username,
		FirstName:         profile.FirstName,
		LastName:          profile.LastName,
		LanguageCode:      profile.LanguageCode,
		IsBot:             profile.IsBot,
		IsPremium:         profile.IsPremium,
		FirstSeen:         now,
		LastActive:        now,
		TotalInteractions: 1,
	}
	if isDonate {
		record.DonateViews = 1
	}

	if _, err := t.users.Create(ctx, record); err != nil {
		return fmt.Errorf("track user %d: %w", profile.UserID, err)
	}

	metrics.IncUsersRegistered()
	t.logger.WithFields(logging.Fields{
		"event":   "user_registered",
		"user_id": profile.UserID,
		"action":  action,
	}).Info("registered new user")

	return nil
}
