package service

import (
	"strings"
	"unicode/utf8"
)

const (
	twitterMaxChars    = 280
	twitterMaxHashtags = 4
	twitterMaxTagLen   = 20

	// Headroom for the separators between caption, hashtags and link.
	twitterReserveSlack = 10
)

// FullMessage builds the message variant used by every platform without a
// hard character budget.
func FullMessage(caption string, hashtags []string, cta string) string {
	return caption + "\n\n" + strings.Join(hashtags, " ") + "\n\n" + cta
}

// TwitterMessage builds the length-constrained variant. The first pass
// composes within an estimated budget; the second pass hard-truncates so the
// 280-character ceiling holds regardless of estimation error. When no fixed
// link is configured the CTA takes its place.
func TwitterMessage(caption string, hashtags []string, cta, link string) string {
	tail := link
	if tail == "" {
		tail = cta
	}

	selected := make([]string, 0, twitterMaxHashtags)
	for _, tag := range hashtags {
		if len(selected) == twitterMaxHashtags {
			break
		}
		if utf8.RuneCountInString(tag) > twitterMaxTagLen {
			continue
		}
		selected = append(selected, tag)
	}
	tags := strings.Join(selected, " ")

	reserved := utf8.RuneCountInString(tags) + utf8.RuneCountInString(tail) + twitterReserveSlack
	budget := twitterMaxChars - reserved

	message := truncate(caption, budget) + "\n\n" + tags + "\n\n" + tail

	if utf8.RuneCountInString(message) > twitterMaxChars {
		runes := []rune(message)
		message = string(runes[:twitterMaxChars-3]) + "..."
	}
	return message
}

func truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	if max <= 3 {
		return string(runes[:max])
	}
	return string(runes[:max-3]) + "..."
}
