// Package scanner checks recent messages of mailbox folders for spam, once or periodically.
// Messages already checked are skipped by the next scans.
package scanner

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/umputun/mail-spam/app/storage"
	"github.com/umputun/mail-spam/lib/mailmsg"
	"github.com/umputun/mail-spam/lib/spamcheck"
)

//go:generate moq --out mocks/mailbox.go --pkg mocks --with-resets --skip-ensure . Mailbox
//go:generate moq --out mocks/detector.go --pkg mocks --with-resets --skip-ensure . Detector
//go:generate moq --out mocks/history.go --pkg mocks --with-resets --skip-ensure . History

// Mailbox provides access to mail folders, implemented by IMAP
type Mailbox interface {
	Recent(ctx context.Context, folder string, last int) ([]Message, error)
	MarkSpam(ctx context.Context, folder string, uids []uint32) error
}

// Detector checks a mail for spam
type Detector interface {
	Predict(ctx context.Context, req spamcheck.Request) spamcheck.Result
}

// History stores checks
type History interface {
	Write(ctx context.Context, entry storage.HistoryEntry) error
}

// Message is a raw message in a folder
type Message struct {
	UID         uint32
	UIDValidity uint32
	Body        []byte // rfc 822 message
}

// Verdict is a result of a check of a single message
type Verdict struct {
	Folder  string
	UID     uint32
	Subject string
	From    string
	Date    time.Time
	Result  spamcheck.Result
}

// Scanner checks mailbox folders with detector
type Scanner struct {
	Params
	lock sync.Mutex
	seen map[string]map[string]bool // folder -> checked messages of the last scan
}

// Params for Scanner
type Params struct {
	Mailbox  Mailbox
	Detector Detector
	History  History       // optional, checks are not stored if nil
	Folders  []string      // folders to scan, INBOX if empty
	Last     int           // max number of most recent messages to check per folder
	Interval time.Duration // interval between scans for Run
	Language string        // language passed to detector, "tr" forces turkish pipeline
	MarkSpam bool          // mark spam messages with a keyword
}

// New makes a scanner with given params
func New(p Params) *Scanner {
	if len(p.Folders) == 0 {
		p.Folders = []string{"INBOX"}
	}
	if p.Last <= 0 {
		p.Last = 50
	}
	if p.Interval <= 0 {
		p.Interval = 5 * time.Minute
	}
	return &Scanner{Params: p, seen: map[string]map[string]bool{}}
}

// Run scans folders right away and then every interval until context is canceled.
// Scan errors are logged and don't stop the loop.
func (s *Scanner) Run(ctx context.Context) error {
	log.Printf("[INFO] start mailbox scanner for %v, every %v, last %d messages", s.Folders, s.Interval, s.Last)
	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()
	for {
		verdicts, err := s.Scan(ctx)
		if err != nil {
			log.Printf("[WARN] scan failed, %v", err)
		}
		if len(verdicts) > 0 {
			log.Printf("[INFO] scanned %d new messages, %d spam", len(verdicts), countSpam(verdicts))
		}

		select {
		case <-ctx.Done():
			log.Printf("[INFO] mailbox scanner stopped")
			return nil
		case <-ticker.C:
		}
	}
}

// Scan checks messages not seen by previous scans in all folders. It returns verdicts of checked
// messages, errors of separate folders are combined.
func (s *Scanner) Scan(ctx context.Context) ([]Verdict, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	errs := new(multierror.Error)
	res := []Verdict{}
	for _, folder := range s.Folders {
		if ctx.Err() != nil {
			errs = multierror.Append(errs, ctx.Err())
			break
		}
		verdicts, err := s.scanFolder(ctx, folder)
		if err != nil {
			errs = multierror.Append(errs, fmt.Errorf("folder %s: %w", folder, err))
		}
		res = append(res, verdicts...)
	}
	return res, errs.ErrorOrNil()
}

func (s *Scanner) scanFolder(ctx context.Context, folder string) ([]Verdict, error) {
	msgs, err := s.Mailbox.Recent(ctx, folder, s.Last)
	if err != nil {
		return nil, fmt.Errorf("can't get messages, %w", err)
	}

	prev := s.seen[folder]
	current := make(map[string]bool, len(msgs))
	res := []Verdict{}
	spamUIDs := []uint32{}
	for _, m := range msgs {
		key := fmt.Sprintf("%d:%d", m.UIDValidity, m.UID)
		current[key] = true
		if prev[key] {
			continue
		}

		parsed, err := mailmsg.Parse(bytes.NewReader(m.Body))
		if err != nil {
			log.Printf("[WARN] can't parse message %d in %s, %v", m.UID, folder, err)
			continue
		}
		req := parsed.Request(spamcheck.FilterAll, s.Language)
		result := s.Detector.Predict(ctx, req)
		log.Printf("[DEBUG] %s/%d from %s %q: %s, %s", folder, m.UID, parsed.From, parsed.Subject, result.Verdict,
			spamcheck.ChecksToString(result.Checks))
		if result.Spam {
			log.Printf("[INFO] spam detected in %s, uid:%d, from:%s, subject:%q", folder, m.UID, parsed.From, parsed.Subject)
			spamUIDs = append(spamUIDs, m.UID)
		}

		if s.History != nil {
			entry := storage.HistoryEntry{Source: "imap", Title: req.Title, Content: req.Content, URL: req.URL,
				Filter: req.Filter, Language: req.Language, Spam: result.Spam, Pipeline: result.Pipeline,
				Models: result.Models, Checks: result.Checks}
			if err := s.History.Write(ctx, entry); err != nil {
				log.Printf("[WARN] can't save check of %s/%d to history, %v", folder, m.UID, err)
			}
		}
		res = append(res, Verdict{Folder: folder, UID: m.UID, Subject: parsed.Subject, From: parsed.From,
			Date: parsed.Date, Result: result})
	}
	s.seen[folder] = current // messages out of the window are not fetched again

	if s.MarkSpam && len(spamUIDs) > 0 {
		if err := s.Mailbox.MarkSpam(ctx, folder, spamUIDs); err != nil {
			return res, fmt.Errorf("can't mark spam, %w", err)
		}
	}
	return res, nil
}

func countSpam(verdicts []Verdict) (count int) {
	for _, v := range verdicts {
		if v.Result.Spam {
			count++
		}
	}
	return count
}
