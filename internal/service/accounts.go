package service

import (
	"log/slog"
	"strconv"
	"strings"

	"github.com/ristomat/socialcast/internal/models"
)

// ParseAccounts reads the configured account table, entries of the form
// "id:platform:display name" separated by semicolons. An empty or fully
// invalid value falls back to the built-in table.
func ParseAccounts(raw string) []models.AccountTarget {
	if raw == "" {
		return defaultAccounts()
	}

	var accounts []models.AccountTarget
	for _, entry := range strings.Split(raw, ";") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}

		parts := strings.SplitN(entry, ":", 3)
		if len(parts) != 3 {
			slog.Info("skipping malformed account entry", "entry", entry)
			continue
		}

		id, err := strconv.ParseInt(strings.TrimSpace(parts[0]), 10, 64)
		if err != nil {
			slog.Info("skipping account entry with bad id", "entry", entry)
			continue
		}

		accounts = append(accounts, models.AccountTarget{
			ID:       id,
			Platform: strings.ToLower(strings.TrimSpace(parts[1])),
			Name:     strings.TrimSpace(parts[2]),
		})
	}

	if len(accounts) == 0 {
		return defaultAccounts()
	}
	return accounts
}

func defaultAccounts() []models.AccountTarget {
	return []models.AccountTarget{
		{ID: 2, Name: "Facebook Page", Platform: models.PlatformFacebook},
		{ID: 4, Name: "Instagram Business", Platform: models.PlatformInstagram},
		{ID: 5, Name: "LinkedIn Company", Platform: models.PlatformLinkedin},
		{ID: 6, Name: "Twitter Profile", Platform: models.PlatformTwitter},
	}
}
