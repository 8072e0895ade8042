package telegram

import (
	"github.com/go-telegram/bot/models"

	"coffee_bot/internal/domain"
)

func profile(user *models.User) domain.Profile {
	if user == nil {
		return domain.Profile{}
	}

	return domain.Profile{
		UserID:       user.ID,
		Username:     user.Username,
		FirstName:    user.FirstName,
		LastName:     user.LastName,
		LanguageCode: user.LanguageCode,
		IsBot:        user.IsBot,
		IsPremium:    user.IsPremium,
	}
}
