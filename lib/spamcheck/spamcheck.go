// Package spamcheck defines request and response types shared by the mail spam detector and its clients.
package spamcheck

import (
	"fmt"
	"strings"
)

// Filter selects which part of the mail is checked.
type Filter string

// enum of supported filters, original form labels are accepted as aliases
const (
	FilterTitle   Filter = "title"
	FilterContent Filter = "content"
	FilterURL     Filter = "url"
	FilterAll     Filter = "all"
)

// filterAliases maps labels submitted by the web form to filters
var filterAliases = map[string]Filter{
	"title":       FilterTitle,
	"content":     FilterContent,
	"url":         FilterURL,
	"all":         FilterAll,
	"Mail Başlık": FilterTitle,
	"Mail İçerik": FilterContent,
	"Mail Url":    FilterURL,
	"Bütün Mail":  FilterAll,
}

// ParseFilter returns filter for a given name or label, false if unknown.
func ParseFilter(s string) (Filter, bool) {
	f, ok := filterAliases[s]
	return f, ok
}

// Request is a request to check a mail for spam.
type Request struct {
	Title    string `json:"title"`    // mail title (subject)
	Content  string `json:"content"`  // mail body
	URL      string `json:"url"`      // url found in or associated with the mail
	Filter   string `json:"filter"`   // which part to check, see Filter
	Language string `json:"language"` // session language, "tr" forces turkish pipeline
}

// Text returns the text selected by the request filter. Returns false for unknown filter.
func (r *Request) Text() (string, bool) {
	f, ok := ParseFilter(r.Filter)
	if !ok {
		return "", false
	}
	switch f {
	case FilterTitle:
		return r.Title, true
	case FilterContent:
		return r.Content, true
	case FilterURL:
		return r.URL, true
	default:
		return fmt.Sprintf("%s %s %s", r.Title, r.Content, r.URL), true
	}
}

func (r *Request) String() string {
	return fmt.Sprintf("title:%q, content:%d chars, url:%q, filter:%q, lang:%q",
		r.Title, len([]rune(r.Content)), r.URL, r.Filter, r.Language)
}

// Response is a vote of a single check or model.
type Response struct {
	Name    string `json:"name"`    // name of the check or model
	Spam    bool   `json:"spam"`    // true if spam
	Details string `json:"details"` // details of the check
	Error   error  `json:"-"`       // error message, if any. Do not serialize it
}

func (r *Response) String() string {
	spamOrHam := "ham"
	if r.Spam {
		spamOrHam = "spam"
	}
	return fmt.Sprintf("%s: %s, %s", r.Name, spamOrHam, r.Details)
}

// verdicts returned to the web layer
const (
	VerdictSpam = "yes"
	VerdictHam  = "no"
)

// Result is a final ensemble decision.
type Result struct {
	Spam     bool       `json:"spam"`     // true if majority of votes is spam
	Verdict  string     `json:"verdict"`  // "yes" or "no"
	Pipeline string     `json:"pipeline"` // name of the pipeline used, empty if nothing was checked
	Models   []string   `json:"models"`   // human-readable names of models used
	Checks   []Response `json:"checks"`   // individual votes
}

// ChecksToString converts a slice of checks to a string
func ChecksToString(checks []Response) string {
	elems := []string{}
	for _, r := range checks {
		elems = append(elems, "{"+r.String()+"}")
	}
	return fmt.Sprintf("[%s] ", strings.Join(elems, ", "))
}
