package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedNow() time.Time { return time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC) }

func TestSlackSend(t *testing.T) {
	var got slackPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	s := NewSlack(srv.URL, "turtle", "trader")
	s.Now = fixedNow
	require.NoError(t, s.Send(context.Background(), LevelWarning, "nothing to close"))

	assert.Equal(t, "turtle", got.Username)
	assert.Equal(t, ":warning:", got.IconEmoji)
	require.Len(t, got.Blocks, 1)
	assert.Equal(t, "mrkdwn", got.Blocks[0].Text.Type)
	assert.Equal(t, ":large_yellow_circle: 2024-03-01 12:30:00 [trader]  WARNING: nothing to close", got.Blocks[0].Text.Text)
}

func TestSlackTruncates(t *testing.T) {
	s := &Slack{Name: "x", Now: fixedNow}
	b := s.body(LevelInfo, strings.Repeat("a", slackTextLimit+100))
	assert.True(t, strings.HasSuffix(b.Blocks[0].Text.Text, strings.Repeat("a", 10)+".."))
	assert.Less(t, len(b.Blocks[0].Text.Text), slackTextLimit+100)
}

func TestTruncateKeepsRunes(t *testing.T) {
	// "é" is two bytes; a limit of 4 cuts the second one in half.
	got := truncate("aéé", 4)
	assert.Equal(t, "aé..", got)
	assert.True(t, utf8.ValidString(got))

	got = truncate(strings.Repeat("€", slackTextLimit), slackTextLimit)
	assert.True(t, utf8.ValidString(got))
	assert.LessOrEqual(t, len(got), slackTextLimit+2)

	assert.Equal(t, "short", truncate("short", 10))
}

func TestSlackStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	err := NewSlack(srv.URL, "", "").Send(context.Background(), LevelError, "boom")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")
}

func TestSlackDisabled(t *testing.T) {
	assert.NoError(t, NewSlack("", "u", "n").Send(context.Background(), LevelInfo, "hi"))
}

type failing struct{ calls int }

func (f *failing) Send(context.Context, Level, string) error {
	f.calls++
	return errors.New("unreachable")
}

func TestWrapSwallowsErrors(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, nil))
	f := &failing{}

	n := Wrap(f, log)
	n.Info(context.Background(), "a")
	n.Warning(context.Background(), "b")
	n.Error(context.Background(), "c")

	assert.Equal(t, 3, f.calls)
	assert.Contains(t, buf.String(), "notification not delivered")
	assert.Contains(t, buf.String(), "level=error")
}

func TestLogAndMulti(t *testing.T) {
	var a, b bytes.Buffer
	m := Multi{
		Log{Logger: slog.New(slog.NewTextHandler(&a, nil))},
		Log{Logger: slog.New(slog.NewTextHandler(&b, nil))},
		Nop{},
	}
	m.Warning(context.Background(), "ledger mismatch")
	m.Error(context.Background(), "cycle failed")

	for _, buf := range []*bytes.Buffer{&a, &b} {
		assert.Contains(t, buf.String(), "level=WARN")
		assert.Contains(t, buf.String(), "ledger mismatch")
		assert.Contains(t, buf.String(), "cycle failed")
	}
}
