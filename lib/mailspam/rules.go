package mailspam

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"github.com/umputun/mail-spam/lib/spamcheck"
)

// spamKeywords is a list of turkish and english phrases typical for spam, matched case-insensitively
var spamKeywords = []string{
	"ödül", "hediye", "kazandınız", "tıklayın", "acele edin", "şimdi satın alın",
	"ücretsiz", "bedava", "hemen kazanın", "para kazanın", "kampanya",
	"free", "win", "cash", "prize", "offer", "click here", "buy now", "urgent",
	"limited time", "congratulations", "you have won", "act now", "guarantee", "deal",
}

// minTextLen is a text length (in runes, after trimming) below which the text is considered spam
const minTextLen = 5

// turkishLetters are letters present in turkish alphabet but not in english one
const turkishLetters = "çğıöşüÇĞİÖŞÜ"

// RuleCheck votes for spam if text contains any of spam keywords or is too short
func RuleCheck(text string) spamcheck.Response {
	if n := utf8.RuneCountInString(strings.TrimSpace(text)); n < minTextLen {
		return spamcheck.Response{Name: ruleLabel, Spam: true, Details: fmt.Sprintf("too short, %d chars", n)}
	}
	lower := strings.ToLower(norm.NFC.String(text))
	for _, kw := range spamKeywords {
		if strings.Contains(lower, kw) {
			return spamcheck.Response{Name: ruleLabel, Spam: true, Details: fmt.Sprintf("keyword %q", kw)}
		}
	}
	return spamcheck.Response{Name: ruleLabel, Spam: false, Details: "no keywords"}
}

// IsTurkish reports whether text contains turkish-specific letters.
// Text is normalized first, so decomposed forms (letter + combining mark) are detected too.
func IsTurkish(text string) bool {
	return strings.ContainsAny(norm.NFC.String(text), turkishLetters)
}
