package service

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestFullMessage(t *testing.T) {
	got := FullMessage("Fresh pasta today", []string{"#pasta", "#swiss", "#lapa"}, "Order now")
	want := "Fresh pasta today\n\n#pasta #swiss #lapa\n\nOrder now"
	if got != want {
		t.Errorf("FullMessage() = %q, want %q", got, want)
	}
}

func TestTwitterMessageWithinLimit(t *testing.T) {
	got := TwitterMessage("Fresh pasta today", []string{"#pasta", "#swiss"}, "Order now", "https://example.com/order")
	if utf8.RuneCountInString(got) > 280 {
		t.Errorf("message length %d exceeds 280", utf8.RuneCountInString(got))
	}
	if !strings.Contains(got, "Fresh pasta today") {
		t.Errorf("short caption should survive untruncated: %q", got)
	}
	if !strings.Contains(got, "https://example.com/order") {
		t.Errorf("link missing from message: %q", got)
	}
}

func TestTwitterMessageLongCaption(t *testing.T) {
	caption := strings.Repeat("pasta e basta ", 50) // 700 chars
	tags := []string{"#pasta", "#swiss", "#lapa", "#zurich", "#food"}

	got := TwitterMessage(caption, tags, "Order now", "https://example.com/order")
	if utf8.RuneCountInString(got) > 280 {
		t.Errorf("message length %d exceeds 280", utf8.RuneCountInString(got))
	}
	if !strings.Contains(got, "...") {
		t.Errorf("long caption should be truncated with an ellipsis: %q", got)
	}
}

func TestTwitterMessageSelectsAtMostFourHashtags(t *testing.T) {
	tags := make([]string, 20)
	for i := range tags {
		tags[i] = "#" + strings.Repeat("x", 18) // 19 chars each
	}
	caption := strings.Repeat("c", 500)

	got := TwitterMessage(caption, tags, "Order now", "https://example.com")
	if utf8.RuneCountInString(got) > 280 {
		t.Errorf("message length %d exceeds 280", utf8.RuneCountInString(got))
	}
	if n := strings.Count(got, "#"); n > 4 {
		t.Errorf("selected %d hashtags, want at most 4", n)
	}
}

func TestTwitterMessageSkipsOversizedHashtags(t *testing.T) {
	tags := []string{"#" + strings.Repeat("y", 30), "#ok"}

	got := TwitterMessage("caption", tags, "cta", "https://example.com")
	if strings.Contains(got, strings.Repeat("y", 30)) {
		t.Errorf("hashtags longer than 20 chars must be dropped: %q", got)
	}
	if !strings.Contains(got, "#ok") {
		t.Errorf("short hashtag should be kept: %q", got)
	}
}

func TestTwitterMessageAllHashtagsOversized(t *testing.T) {
	tags := make([]string, 10)
	for i := range tags {
		tags[i] = "#" + strings.Repeat("z", 25)
	}

	got := TwitterMessage(strings.Repeat("a", 400), tags, "cta", "https://example.com")
	if utf8.RuneCountInString(got) > 280 {
		t.Errorf("message length %d exceeds 280", utf8.RuneCountInString(got))
	}
	if strings.Contains(got, "z") {
		t.Errorf("no oversized hashtag may appear: %q", got)
	}
}

func TestTwitterMessageNoHashtags(t *testing.T) {
	got := TwitterMessage(strings.Repeat("b", 500), nil, "cta", "https://example.com")
	if utf8.RuneCountInString(got) > 280 {
		t.Errorf("message length %d exceeds 280", utf8.RuneCountInString(got))
	}
}

func TestTwitterMessageFallsBackToCTA(t *testing.T) {
	got := TwitterMessage("caption", []string{"#tag"}, "Order now", "")
	if !strings.Contains(got, "Order now") {
		t.Errorf("with no link configured the CTA should close the message: %q", got)
	}
}

func TestTwitterMessageAdversarialLink(t *testing.T) {
	// A link that blows the whole budget: the hard ceiling must still hold.
	link := "https://example.com/" + strings.Repeat("p", 300)
	got := TwitterMessage(strings.Repeat("c", 300), []string{"#a", "#b"}, "cta", link)
	if utf8.RuneCountInString(got) > 280 {
		t.Errorf("message length %d exceeds 280", utf8.RuneCountInString(got))
	}
	if !strings.HasSuffix(got, "...") {
		t.Errorf("hard-truncated message should end with an ellipsis: %q", got)
	}
}
