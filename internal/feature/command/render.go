package command

import (
	"fmt"
	"html"
	"strings"
	"time"

	"coffee_bot/internal/domain"
	"coffee_bot/internal/store"
)

// UsersPerPage is the page size of the /users listing.
const UsersPerPage = 20

// Fixed replies.
const (
	WelcomeMessage = "☕ <b>Buy WallSwipe a Coffee</b>\n\n" +
		"If you enjoy WallSwipe and want to support the project,\n" +
		"you can buy us a coffee using crypto.\n\n" +
		"Your support helps us keep things running 🚀\n\n" +
		"Type /donate to see wallet addresses."

	UploadSuccessMessage = "✅ Coffee image updated successfully! The image will now be used in /donate command."
	UploadFailureMessage = "❌ Error saving image. Please try again."
	StatsErrorMessage    = "❌ Error fetching statistics."
	UsersErrorMessage    = "❌ Error fetching users list."
	NoUsersMessage       = "📊 No users found."
)

const (
	generatedLayout = "2006-01-02 15:04:05 MST"
	dateLayout      = "2006-01-02"
)

func renderStats(s store.Stats) string {
	return "📊 <b>Bot Statistics</b>\n\n" +
		fmt.Sprintf("👥 <b>Total Users:</b> %d\n", s.TotalUsers) +
		fmt.Sprintf("✨ <b>New Today:</b> %d\n", s.NewToday) +
		fmt.Sprintf("📅 <b>New This Week:</b> %d\n", s.NewThisWeek) +
		fmt.Sprintf("💎 <b>Premium Users:</b> %d\n", s.PremiumUsers) +
		fmt.Sprintf("☕ <b>Donate Page Views:</b> %d\n\n", s.DonateViews) +
		fmt.Sprintf("🕐 <b>Generated:</b> %s", s.GeneratedAt.Format(generatedLayout))
}

// totalPages is ceil(total / UsersPerPage).
func totalPages(total int64) int64 {
	return (total + UsersPerPage - 1) / UsersPerPage
}

func renderUsersPage(page, total int64, users []domain.User, loc *time.Location) string {
	pages := totalPages(total)
	skip := (page - 1) * UsersPerPage

	var b strings.Builder
	fmt.Fprintf(&b, "👥 <b>Users List (Page %d/%d)</b>\n", page, pages)
	fmt.Fprintf(&b, "<b>Total Users:</b> %d\n\n", total)

	for i, u := range users {
		name := u.DisplayName()
		if name == "" {
			name = "No name"
		}
		handle := "No username"
		if u.Username != "" {
			handle = "@" + u.Username
		}
		premium := ""
		if u.IsPremium {
			premium = "💎"
		}

		fmt.Fprintf(&b, "%d. %s %s\n", skip+int64(i)+1, html.EscapeString(name), premium)
		fmt.Fprintf(&b, "   👤 %s\n", html.EscapeString(handle))
		fmt.Fprintf(&b, "   🆔 <code>%d</code>\n", u.UserID)
		fmt.Fprintf(&b, "   📅 %s\n", u.FirstSeen.In(loc).Format(dateLayout))
		fmt.Fprintf(&b, "   💬 Interactions: %d | ☕ Views: %d\n\n", u.TotalInteractions, u.DonateViews)
	}

	if page < pages {
		fmt.Fprintf(&b, "\n📄 Use /users %d for next page", page+1)
	}

	return b.String()
}
