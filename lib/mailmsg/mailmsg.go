// Package mailmsg extracts checkable parts of raw e-mail messages: subject, text body and links.
package mailmsg

import (
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	"github.com/emersion/go-message"
	_ "github.com/emersion/go-message/charset" // decoding of non-utf8 charsets
	"github.com/emersion/go-message/mail"
	"golang.org/x/net/html"

	"github.com/umputun/mail-spam/lib/spamcheck"
)

// maxPartSize is a max size of a single text part read from message
const maxPartSize = 1024 * 1024

var reURL = regexp.MustCompile(`https?://[^\s<>"'()\[\]]+`)

// Message is a parsed mail
type Message struct {
	Subject string
	From    string
	Date    time.Time
	Text    string   // plain text body, html converted to text if there is no plain part
	URLs    []string // unique links in order of appearance
}

// Parse reads RFC 822 message. Unknown charsets are not fatal, such parts are read as is.
func Parse(r io.Reader) (*Message, error) {
	mr, err := mail.CreateReader(r)
	if err != nil && !message.IsUnknownCharset(err) {
		return nil, fmt.Errorf("can't read message, %w", err)
	}
	defer mr.Close()

	res := Message{}
	if res.Subject, err = mr.Header.Subject(); err != nil {
		res.Subject = mr.Header.Get("Subject")
	}
	if from, e := mr.Header.AddressList("From"); e == nil && len(from) > 0 {
		res.From = from[0].Address
	}
	if date, e := mr.Header.Date(); e == nil {
		res.Date = date
	}

	var plain, htmlText strings.Builder
	var links []string
	for {
		part, e := mr.NextPart()
		if errors.Is(e, io.EOF) {
			break
		}
		if e != nil && !message.IsUnknownCharset(e) {
			return nil, fmt.Errorf("can't read message part, %w", e)
		}
		if part == nil {
			continue
		}
		h, ok := part.Header.(*mail.InlineHeader)
		if !ok {
			continue // attachments are not checked
		}
		ct, _, _ := h.ContentType()
		body, e := io.ReadAll(io.LimitReader(part.Body, maxPartSize))
		if e != nil {
			return nil, fmt.Errorf("can't read %s part, %w", ct, e)
		}
		switch ct {
		case "text/plain", "":
			appendText(&plain, string(body))
		case "text/html":
			text, hrefs := htmlToText(string(body))
			appendText(&htmlText, text)
			links = append(links, hrefs...)
		}
	}

	res.Text = plain.String()
	if res.Text == "" {
		res.Text = htmlText.String()
	}
	res.URLs = uniq(append(reURL.FindAllString(res.Text, -1), links...))
	return &res, nil
}

// Request makes a check request for the message, the first link is used as url
func (m *Message) Request(filter spamcheck.Filter, language string) spamcheck.Request {
	res := spamcheck.Request{Title: m.Subject, Content: m.Text, Filter: string(filter), Language: language}
	if len(m.URLs) > 0 {
		res.URL = m.URLs[0]
	}
	return res
}

// htmlToText returns visible text of html document and href of all links
func htmlToText(doc string) (text string, hrefs []string) {
	var sb strings.Builder
	z := html.NewTokenizer(strings.NewReader(doc))
	skip := 0 // depth of script and style elements
	for {
		switch z.Next() {
		case html.ErrorToken:
			return strings.Join(strings.Fields(sb.String()), " "), hrefs
		case html.StartTagToken, html.SelfClosingTagToken:
			tn, hasAttr := z.TagName()
			switch string(tn) {
			case "script", "style":
				skip++
			case "a":
				for hasAttr {
					var key, val []byte
					key, val, hasAttr = z.TagAttr()
					if string(key) == "href" && (strings.HasPrefix(string(val), "http://") || strings.HasPrefix(string(val), "https://")) {
						hrefs = append(hrefs, string(val))
					}
				}
			case "br", "p", "div", "li", "tr":
				sb.WriteString(" ")
			}
		case html.EndTagToken:
			tn, _ := z.TagName()
			if (string(tn) == "script" || string(tn) == "style") && skip > 0 {
				skip--
			}
		case html.TextToken:
			if skip == 0 {
				sb.Write(z.Text())
				sb.WriteString(" ")
			}
		}
	}
}

func appendText(sb *strings.Builder, s string) {
	s = strings.TrimSpace(strings.ReplaceAll(s, "\r\n", "\n"))
	if s == "" {
		return
	}
	if sb.Len() > 0 {
		sb.WriteString("\n")
	}
	sb.WriteString(s)
}

func uniq(ss []string) []string {
	seen := map[string]bool{}
	res := []string{}
	for _, s := range ss {
		s = strings.TrimRight(s, ".,;:!?")
		if !seen[s] {
			seen[s] = true
			res = append(res, s)
		}
	}
	return res
}
