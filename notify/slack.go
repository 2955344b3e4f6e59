package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	// Slack truncates long sections; messages are cut before that.
	slackTextLimit = 2900
	slackTimeout   = 10 * time.Second
)

var slackIcons = map[Level]struct{ text, emoji string }{
	LevelInfo:    {":large_blue_circle:", ":information_source:"},
	LevelWarning: {":large_yellow_circle:", ":warning:"},
	LevelError:   {":red_circle:", ":red_circle:"},
}

// Slack posts alerts to an incoming-webhook URL.
type Slack struct {
	URL      string
	Username string
	Name     string // component shown in brackets
	Client   *http.Client
	Now      func() time.Time
}

func NewSlack(url, username, name string) *Slack {
	return &Slack{
		URL:      url,
		Username: username,
		Name:     name,
		Client:   &http.Client{Timeout: slackTimeout},
		Now:      time.Now,
	}
}

type slackText struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type slackBlock struct {
	Type string    `json:"type"`
	Text slackText `json:"text"`
}

type slackPayload struct {
	Username  string       `json:"username,omitempty"`
	IconEmoji string       `json:"icon_emoji,omitempty"`
	Blocks    []slackBlock `json:"blocks"`
}

func (s *Slack) body(level Level, text string) slackPayload {
	text = truncate(text, slackTextLimit)
	icon := slackIcons[level]
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	line := fmt.Sprintf("%s %s [%s]  %s: %s",
		icon.text, now().Format("2006-01-02 15:04:05"), s.Name, strings.ToUpper(string(level)), text)

	return slackPayload{
		Username:  s.Username,
		IconEmoji: icon.emoji,
		Blocks: []slackBlock{{
			Type: "section",
			Text: slackText{Type: "mrkdwn", Text: line},
		}},
	}
}

// Send posts one message. A Slack with no URL is disabled and sends nothing.
func (s *Slack) Send(ctx context.Context, level Level, text string) error {
	if s.URL == "" {
		return nil
	}
	data, err := json.Marshal(s.body(level, text))
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.URL, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	client := s.Client
	if client == nil {
		client = &http.Client{Timeout: slackTimeout}
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("slack: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("slack returned status: %d", resp.StatusCode)
	}
	return nil
}

// truncate cuts text to at most limit bytes on a rune boundary and marks
// the cut.
func truncate(text string, limit int) string {
	if len(text) <= limit {
		return text
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return text[:cut] + ".."
}
