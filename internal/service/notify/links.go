package notify

import (
	"net/url"
	"strings"
	"unicode"

	"github.com/siea/ricequote/internal/domain/models"
)

// Links builds customer deep links into the sales chat.
type Links struct {
	number string
}

// NewLinks targets the chat number, given in any human format.
func NewLinks(chatNumber string) *Links {
	return &Links{number: digitsOnly(chatNumber)}
}

// ChatLink returns a wa.me link prefilled with the quote message, or "" when no chat
// number is configured.
func (l *Links) ChatLink(q models.Quote) string {
	if l == nil || l.number == "" {
		return ""
	}
	return "https://wa.me/" + l.number + "?text=" + escapeText(QuoteMessage(q))
}

// escapeText percent-encodes like encodeURIComponent for the characters that matter
// to wa.me: spaces become %20 rather than +.
func escapeText(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

func digitsOnly(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) {
			return r
		}
		return -1
	}, s)
}
