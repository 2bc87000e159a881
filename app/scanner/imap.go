package scanner

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	"github.com/go-pkgz/repeater"
)

// DefaultSpamKeyword is a keyword set on spam messages, understood by most mail clients
const DefaultSpamKeyword = "$Junk"

// IMAP is a Mailbox on imap server. Each call makes a new connection.
type IMAP struct {
	Addr        string        // host:port of the server
	User        string        // login
	Password    string        // password, app password for gmail with 2fa
	Insecure    bool          // plain connection without tls
	Timeout     time.Duration // timeout of imap commands
	Retries     int           // number of connect attempts
	SpamKeyword string        // keyword for MarkSpam, DefaultSpamKeyword if empty
}

// Recent returns up to last most recent not deleted messages of folder. Folder is opened read-only,
// so fetched messages are not marked as seen.
func (m *IMAP) Recent(ctx context.Context, folder string, last int) ([]Message, error) {
	c, err := m.connect(ctx)
	if err != nil {
		return nil, err
	}
	defer c.Logout() //nolint:errcheck // nothing to do on failed logout
	stop := context.AfterFunc(ctx, func() { _ = c.Terminate() })
	defer stop()

	status, err := c.Select(folder, true)
	if err != nil {
		return nil, fmt.Errorf("can't select %s, %w", folder, err)
	}

	criteria := imap.NewSearchCriteria()
	criteria.WithoutFlags = []string{imap.DeletedFlag}
	uids, err := c.UidSearch(criteria)
	if err != nil {
		return nil, fmt.Errorf("can't search %s, %w", folder, err)
	}
	if len(uids) == 0 {
		return []Message{}, nil
	}
	if last > 0 && len(uids) > last {
		uids = uids[len(uids)-last:]
	}

	seqSet := new(imap.SeqSet)
	seqSet.AddNum(uids...)
	section := &imap.BodySectionName{}
	items := []imap.FetchItem{section.FetchItem(), imap.FetchUid}

	messages := make(chan *imap.Message, 10)
	done := make(chan error, 1)
	go func() {
		done <- c.UidFetch(seqSet, items, messages)
	}()

	res := make([]Message, 0, len(uids))
	var readErr error
	for msg := range messages {
		r := msg.GetBody(section)
		if r == nil {
			continue
		}
		body, e := io.ReadAll(r)
		if e != nil {
			readErr = errors.Join(readErr, fmt.Errorf("can't read message %d, %w", msg.Uid, e))
			continue
		}
		res = append(res, Message{UID: msg.Uid, UIDValidity: status.UidValidity, Body: body})
	}
	if err := <-done; err != nil {
		return nil, fmt.Errorf("can't fetch messages from %s, %w", folder, err)
	}
	if readErr != nil {
		return res, readErr
	}
	return res, nil
}

// MarkSpam adds spam keyword to messages with given uids
func (m *IMAP) MarkSpam(ctx context.Context, folder string, uids []uint32) error {
	if len(uids) == 0 {
		return nil
	}
	c, err := m.connect(ctx)
	if err != nil {
		return err
	}
	defer c.Logout() //nolint:errcheck // nothing to do on failed logout
	stop := context.AfterFunc(ctx, func() { _ = c.Terminate() })
	defer stop()

	if _, err = c.Select(folder, false); err != nil {
		return fmt.Errorf("can't select %s, %w", folder, err)
	}
	keyword := m.SpamKeyword
	if keyword == "" {
		keyword = DefaultSpamKeyword
	}
	seqSet := new(imap.SeqSet)
	seqSet.AddNum(uids...)
	item := imap.FormatFlagsOp(imap.AddFlags, true)
	if err = c.UidStore(seqSet, item, []any{keyword}, nil); err != nil {
		return fmt.Errorf("can't set %s on %d messages in %s, %w", keyword, len(uids), folder, err)
	}
	return nil
}

// connect dials and logs in, connect errors are retried, login errors are not
func (m *IMAP) connect(ctx context.Context) (*client.Client, error) {
	var c *client.Client
	errLogin := errors.New("login failed")
	retries := max(m.Retries, 1)
	err := repeater.NewDefault(retries, time.Second).Do(ctx, func() error {
		var e error
		if m.Insecure {
			c, e = client.Dial(m.Addr)
		} else {
			c, e = client.DialTLS(m.Addr, &tls.Config{MinVersion: tls.VersionTLS12})
		}
		if e != nil {
			return fmt.Errorf("can't connect to %s, %w", m.Addr, e)
		}
		if m.Timeout > 0 {
			c.Timeout = m.Timeout
		}
		if e = c.Login(m.User, m.Password); e != nil {
			_ = c.Logout()
			return fmt.Errorf("%w for %s, %w", errLogin, m.User, e)
		}
		return nil
	}, errLogin)
	if err != nil {
		return nil, err
	}
	return c, nil
}
