package command

import (
	"context"
	"errors"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"coffee_bot/internal/domain"
	"coffee_bot/internal/feature/promo"
	"coffee_bot/internal/logging"
	"coffee_bot/internal/metrics"
	"coffee_bot/internal/store"
)

type textSender interface {
	SendText(ctx context.Context, chatID int64, text string) error
}

type tracker interface {
	Track(ctx context.Context, profile domain.Profile, action string)
}

type donationSender interface {
	SendDonation(ctx context.Context, chatID int64) error
}

type statsSource interface {
	Collect(ctx context.Context, now time.Time) (store.Stats, error)
}

type userLister interface {
	Count(ctx context.Context) (int64, error)
	ListNewestFirst(ctx context.Context, skip, limit int64) ([]domain.User, error)
}

type imageSaver interface {
	Save(ctx context.Context, upload promo.Upload) error
}

// Dependencies wires the collaborators a Dispatcher routes to.
type Dependencies struct {
	Sender   textSender
	Tracker  tracker
	Donation donationSender
	Stats    statsSource
	Users    userLister
	Images   imageSaver
	// AdminUserID is compared as text against the sender id; empty disables
	// admin commands.
	AdminUserID string
}

// Dispatcher recognises commands in inbound events, enforces the admin gate
// and replies through the sender.
type Dispatcher struct {
	deps   Dependencies
	logger *logrus.Entry
	now    func() time.Time
}

// NewDispatcher constructs a Dispatcher.
func NewDispatcher(deps Dependencies, logger *logrus.Entry) (*Dispatcher, error) {
	if deps.Sender == nil {
		return nil, errors.New("sender is required")
	}
	if deps.Tracker == nil {
		return nil, errors.New("tracker is required")
	}
	if deps.Donation == nil {
		return nil, errors.New("donation sender is required")
	}
	if deps.Stats == nil || deps.Users == nil {
		return nil, errors.New("user stores are required")
	}
	if deps.Images == nil {
		return nil, errors.New("image store is required")
	}
	if logger == nil {
		logger = logging.Logger()
	}

	return &Dispatcher{
		deps:   deps,
		logger: logger,
		now:    time.Now,
	}, nil
}

// Handle routes a single event. Failures are logged; nothing is returned
// because the transport has no one to report them to.
func (d *Dispatcher) Handle(ctx context.Context, ev Event) {
	if d == nil || ctx == nil {
		return
	}

	if len(ev.Photos) > 0 {
		d.handleUpload(ctx, ev)
		return
	}

	name, args, ok := parse(ev.Text)
	log := d.logger.WithFields(logging.Context{UserID: ev.From.UserID, ChatID: ev.ChatID, Command: name}.Fields())
	if !ok {
		log.WithField("event", "message_ignored").Debug("ignoring non-command message")
		return
	}

	switch name {
	case Start:
		metrics.IncCommand(name)
		d.handleStart(ctx, ev, args)
	case Donate:
		metrics.IncCommand(name)
		d.deps.Tracker.Track(ctx, ev.From, domain.ActionDonate)
		_ = d.deps.Donation.SendDonation(ctx, ev.ChatID)
	case Stats:
		metrics.IncCommand(name)
		if d.admit(log, ev) {
			d.handleStats(ctx, ev, log)
		}
	case Users:
		metrics.IncCommand(name)
		if d.admit(log, ev) {
			d.handleUsers(ctx, ev, args, log)
		}
	default:
		log.WithField("event", "command_ignored").Debug("ignoring unknown command")
	}
}

func (d *Dispatcher) handleStart(ctx context.Context, ev Event, args string) {
	if args == startDonateParam {
		d.deps.Tracker.Track(ctx, ev.From, domain.ActionDonate)
		_ = d.deps.Donation.SendDonation(ctx, ev.ChatID)
		return
	}

	d.deps.Tracker.Track(ctx, ev.From, domain.ActionStart)
	d.reply(ctx, ev, WelcomeMessage)
}

func (d *Dispatcher) handleStats(ctx context.Context, ev Event, log *logrus.Entry) {
	stats, err := d.deps.Stats.Collect(ctx, d.now())
	if err != nil {
		log.WithFields(logging.Fields{
			"event": "stats_error",
			"error": err,
		}).Error("failed to collect statistics")
		d.reply(ctx, ev, StatsErrorMessage)
		return
	}

	d.reply(ctx, ev, renderStats(stats))
}

func (d *Dispatcher) handleUsers(ctx context.Context, ev Event, args string, log *logrus.Entry) {
	page := parsePage(args)

	text, err := d.usersPage(ctx, page)
	if err != nil {
		log.WithFields(logging.Fields{
			"event": "users_list_error",
			"page":  page,
			"error": err,
		}).Error("failed to list users")
		d.reply(ctx, ev, UsersErrorMessage)
		return
	}

	d.reply(ctx, ev, text)
}

func (d *Dispatcher) usersPage(ctx context.Context, page int64) (string, error) {
	total, err := d.deps.Users.Count(ctx)
	if err != nil {
		return "", err
	}

	users, err := d.deps.Users.ListNewestFirst(ctx, (page-1)*UsersPerPage, UsersPerPage)
	if err != nil {
		return "", err
	}
	if len(users) == 0 {
		return NoUsersMessage, nil
	}

	return renderUsersPage(page, total, users, d.now().Location()), nil
}

func (d *Dispatcher) handleUpload(ctx context.Context, ev Event) {
	log := d.logger.WithFields(logging.Context{UserID: ev.From.UserID, ChatID: ev.ChatID, Event: "photo_upload"}.Fields())
	if !d.admit(log, ev) {
		return
	}

	best, _ := largestVariant(ev.Photos)
	err := d.deps.Images.Save(ctx, promo.Upload{
		FileID:     best.FileID,
		UploadedBy: ev.From.UserID,
		UploadedAt: d.now().UTC().Truncate(time.Millisecond),
	})
	if err != nil {
		log.WithFields(logging.Fields{
			"event":   "image_save_error",
			"file_id": best.FileID,
			"error":   err,
		}).Error("failed to save coffee image")
		d.reply(ctx, ev, UploadFailureMessage)
		return
	}

	log.WithFields(logging.Fields{
		"event":   "image_updated",
		"file_id": best.FileID,
	}).Info("coffee image updated")
	d.reply(ctx, ev, UploadSuccessMessage)
}

// admit reports whether the sender is the configured admin. Denials are
// silent towards the user.
func (d *Dispatcher) admit(log *logrus.Entry, ev Event) bool {
	admin := strings.TrimSpace(d.deps.AdminUserID)
	if admin != "" && strconv.FormatInt(ev.From.UserID, 10) == admin {
		return true
	}

	log.WithField("event", "admin_denied").Debug("ignoring admin command from non-admin")
	return false
}

func (d *Dispatcher) reply(ctx context.Context, ev Event, text string) {
	if err := d.deps.Sender.SendText(ctx, ev.ChatID, text); err != nil {
		d.logger.WithFields(logging.Fields{
			"event":   "send_error",
			"chat_id": ev.ChatID,
			"error":   err,
		}).Error("failed to send reply")
	}
}

// maxPage keeps the skip offset from overflowing.
const maxPage = math.MaxInt64/UsersPerPage + 1

// parsePage reads the /users page argument, defaulting to 1 when it is
// missing, non-numeric or below 1.
func parsePage(args string) int64 {
	fields := strings.Fields(args)
	if len(fields) == 0 {
		return 1
	}

	page, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil || page < 1 {
		return 1
	}
	if page > maxPage {
		return maxPage
	}

	return page
}
