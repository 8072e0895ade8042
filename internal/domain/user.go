// Package domain defines the records the bot persists and their MongoDB
// repositories.
package domain

import (
	"strings"
	"time"
)

// Tracked actions recorded against a user.
const (
	ActionStart  = "start"
	ActionDonate = "donate"
)

// User is the per-identity interaction record. FirstSeen and IsBot are set
// once at creation; counters only ever grow.
type User struct {
	UserID            int64     `bson:"user_id" json:"user_id"`
	Username          string    `bson:"username,omitempty" json:"username,omitempty"`
	FirstName         string    `bson:"first_name,omitempty" json:"first_name,omitempty"`
	LastName          string    `bson:"last_name,omitempty" json:"last_name,omitempty"`
	LanguageCode      string    `bson:"language_code,omitempty" json:"language_code,omitempty"`
	IsBot             bool      `bson:"is_bot" json:"is_bot"`
	IsPremium         bool      `bson:"is_premium" json:"is_premium"`
	FirstSeen         time.Time `bson:"first_seen" json:"first_seen"`
	LastActive        time.Time `bson:"last_active" json:"last_active"`
	TotalInteractions int64     `bson:"total_interactions" json:"total_interactions"`
	DonateViews       int64     `bson:"donate_views" json:"donate_views"`
	CreatedAt         time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt         time.Time `bson:"updated_at" json:"updated_at"`
}

// Profile is the sender metadata carried by an inbound event.
type Profile struct {
	UserID       int64
	Username     string
	FirstName    string
	LastName     string
	LanguageCode string
	IsBot        bool
	IsPremium    bool
}

// DisplayName joins first and last name, returning an empty string when both
// are blank.
func (u User) DisplayName() string {
	return strings.TrimSpace(strings.TrimSpace(u.FirstName) + " " + strings.TrimSpace(u.LastName))
}
