package scanner

import (
	"bytes"
	"context"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/backend/memory"
	"github.com/emersion/go-imap/client"
	"github.com/emersion/go-imap/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// startIMAP runs in-memory imap server, with a single message in INBOX and user "username" / "password"
func startIMAP(t *testing.T) string {
	t.Helper()
	srv := server.New(memory.New())
	srv.AllowInsecureAuth = true
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() { _ = srv.Serve(ln) }()
	t.Cleanup(func() { _ = srv.Close() })
	return ln.Addr().String()
}

func appendMessages(t *testing.T, addr string, raw ...string) {
	t.Helper()
	c, err := client.Dial(addr)
	require.NoError(t, err)
	defer c.Logout()
	require.NoError(t, c.Login("username", "password"))
	for _, r := range raw {
		require.NoError(t, c.Append("INBOX", nil, time.Now(), bytes.NewBufferString(r)))
	}
}

func TestIMAP_Recent(t *testing.T) {
	addr := startIMAP(t)
	mb := &IMAP{Addr: addr, User: "username", Password: "password", Insecure: true, Timeout: 5 * time.Second}

	msgs, err := mb.Recent(context.Background(), "INBOX", 10)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Contains(t, string(msgs[0].Body), "Subject: A little message, just for you")
	assert.NotZero(t, msgs[0].UID)
	assert.NotZero(t, msgs[0].UIDValidity)

	appendMessages(t, addr,
		"From: a@example.com\r\nSubject: second\r\n\r\nbody 2\r\n",
		"From: b@example.com\r\nSubject: third\r\n\r\nbody 3\r\n")

	msgs, err = mb.Recent(context.Background(), "INBOX", 2)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Contains(t, string(msgs[0].Body), "Subject: second")
	assert.Contains(t, string(msgs[1].Body), "Subject: third")
	assert.Less(t, msgs[0].UID, msgs[1].UID)

	_, err = mb.Recent(context.Background(), "NoSuchFolder", 2)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "can't select NoSuchFolder")
}

func TestIMAP_MarkSpam(t *testing.T) {
	addr := startIMAP(t)
	mb := &IMAP{Addr: addr, User: "username", Password: "password", Insecure: true}

	msgs, err := mb.Recent(context.Background(), "INBOX", 1)
	require.NoError(t, err)
	require.Len(t, msgs, 1)

	require.NoError(t, mb.MarkSpam(context.Background(), "INBOX", []uint32{msgs[0].UID}))
	require.NoError(t, mb.MarkSpam(context.Background(), "INBOX", nil), "nothing to mark")

	c, err := client.Dial(addr)
	require.NoError(t, err)
	defer c.Logout()
	require.NoError(t, c.Login("username", "password"))
	_, err = c.Select("INBOX", true)
	require.NoError(t, err)
	seqSet := new(imap.SeqSet)
	seqSet.AddNum(msgs[0].UID)
	ch := make(chan *imap.Message, 1)
	require.NoError(t, c.UidFetch(seqSet, []imap.FetchItem{imap.FetchFlags}, ch))
	msg := <-ch
	require.NotNil(t, msg)
	hasKeyword := false
	for _, f := range msg.Flags {
		hasKeyword = hasKeyword || strings.EqualFold(f, DefaultSpamKeyword) // keywords are case-insensitive
	}
	assert.True(t, hasKeyword, "flags %v", msg.Flags)
}

func TestIMAP_ConnectErrors(t *testing.T) {
	addr := startIMAP(t)

	mb := &IMAP{Addr: addr, User: "username", Password: "bad", Insecure: true, Retries: 3}
	_, err := mb.Recent(context.Background(), "INBOX", 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "login failed for username")

	mb = &IMAP{Addr: "127.0.0.1:1", User: "username", Password: "password", Insecure: true}
	err = mb.MarkSpam(context.Background(), "INBOX", []uint32{1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "can't connect to 127.0.0.1:1")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	mb = &IMAP{Addr: addr, User: "username", Password: "password", Insecure: true}
	_, err = mb.Recent(ctx, "INBOX", 1)
	require.Error(t, err)
}
