package email

import (
	"context"
	"encoding/base64"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSender struct {
	name  string
	err   error
	calls int
}

func (s *stubSender) Name() string { return s.name }

func (s *stubSender) Send(ctx context.Context, msg Message) error {
	s.calls++
	return s.err
}

func TestCascadeFirstConfiguredWins(t *testing.T) {
	first := &stubSender{name: "first"}
	second := &stubSender{name: "second"}
	c := NewCascade(log.New(io.Discard), first, second)

	require.NoError(t, c.Send(context.Background(), Message{To: "a@b.c"}))
	assert.Equal(t, 1, first.calls)
	assert.Equal(t, 0, second.calls, "later providers must not be tried after a success")
}

func TestCascadeFallsThroughFailures(t *testing.T) {
	first := &stubSender{name: "first", err: errors.New("api down")}
	second := &stubSender{name: "second"}
	c := NewCascade(log.New(io.Discard), first, second)

	require.NoError(t, c.Send(context.Background(), Message{To: "a@b.c"}))
	assert.Equal(t, 1, first.calls)
	assert.Equal(t, 1, second.calls)
}

func TestCascadeWithNoProvidersStillSucceeds(t *testing.T) {
	c := NewCascade(log.New(io.Discard))
	assert.NoError(t, c.Send(context.Background(), Message{To: "a@b.c", Subject: "hi"}))
}

func TestCascadeAllProvidersFailingStillSucceeds(t *testing.T) {
	broken := &stubSender{name: "broken", err: errors.New("nope")}
	c := NewCascade(log.New(io.Discard), broken)
	assert.NoError(t, c.Send(context.Background(), Message{To: "a@b.c"}))
}

func TestUnsubscribeToken(t *testing.T) {
	token := UnsubscribeToken("a@b.c", "genesis")

	decoded, err := base64.StdEncoding.DecodeString(token)
	require.NoError(t, err)
	assert.Equal(t, "a@b.c-genesis-unsubscribe", string(decoded))

	// Deterministic, so the link check is a plain equality.
	assert.Equal(t, token, UnsubscribeToken("a@b.c", "genesis"))
	assert.NotEqual(t, token, UnsubscribeToken("a@b.c", "exodus"))
}

func TestUnsubscribeURLEscapesQuery(t *testing.T) {
	u := UnsubscribeURL("https://example.com/", "a+b@c.d", "1-john")
	assert.Contains(t, u, "email=a%2Bb%40c.d")
	assert.Contains(t, u, "bookId=1-john")
	assert.True(t, strings.HasPrefix(u, "https://example.com/api/unsubscribe?"))
}

func TestBuildBookSubscriptionMessage(t *testing.T) {
	msg, err := BuildBookSubscriptionMessage(BookSubscriptionData{
		Email:        "a@b.c",
		BookID:       "genesis",
		BookTitle:    "Genesis",
		Voice:        "aria",
		DeliveryType: "unfinished",
		Frequency:    "weekly",
		BaseURL:      "https://example.com",
	})
	require.NoError(t, err)

	assert.Equal(t, "a@b.c", msg.To)
	assert.Contains(t, msg.Subject, "Genesis")
	assert.Contains(t, msg.HTML, "weekly")
	assert.Contains(t, msg.HTML, UnsubscribeToken("a@b.c", "genesis"))
	assert.Contains(t, msg.Text, "https://example.com/bible/genesis")
}

func TestBuildReminderMessageDefaults(t *testing.T) {
	msg, err := BuildReminderMessage(ReminderData{
		Email:     "a@b.c",
		BookID:    "genesis",
		BookTitle: "Genesis",
		BaseURL:   "https://example.com",
	})
	require.NoError(t, err)

	assert.Contains(t, msg.HTML, "Genesis Chapter 1")
	assert.Contains(t, msg.HTML, "Jeremiah 29:11")
	assert.Contains(t, msg.HTML, "Continue Reading Genesis")
	assert.Contains(t, msg.HTML, "https://example.com/bible/genesis")
	assert.Contains(t, msg.Text, "0%")
}

func TestBuildReminderMessageProgressBar(t *testing.T) {
	msg, err := BuildReminderMessage(ReminderData{
		Email:           "a@b.c",
		BookID:          "genesis",
		BookTitle:       "Genesis",
		ChapterLabel:    "Genesis Chapter 12",
		ProgressPercent: 24,
		BaseURL:         "https://example.com",
	})
	require.NoError(t, err)

	assert.Contains(t, msg.HTML, "width: 24%")
	assert.Contains(t, msg.HTML, "24% complete")
}
