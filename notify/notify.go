// Package notify delivers operational alerts. Delivery is fire-and-forget:
// a failed alert is logged and never fails the caller.
package notify

import (
	"context"
	"log/slog"
)

type Level string

const (
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

type Notifier interface {
	Info(ctx context.Context, text string)
	Warning(ctx context.Context, text string)
	Error(ctx context.Context, text string)
}

// Sender is the single method a sink needs; Wrap turns it into a Notifier.
type Sender interface {
	Send(ctx context.Context, level Level, text string) error
}

type sender struct {
	s   Sender
	log *slog.Logger
}

// Wrap adapts s to Notifier, logging delivery failures on log.
func Wrap(s Sender, log *slog.Logger) Notifier {
	return &sender{s: s, log: log}
}

func (n *sender) Info(ctx context.Context, text string)    { n.send(ctx, LevelInfo, text) }
func (n *sender) Warning(ctx context.Context, text string) { n.send(ctx, LevelWarning, text) }
func (n *sender) Error(ctx context.Context, text string)   { n.send(ctx, LevelError, text) }

func (n *sender) send(ctx context.Context, level Level, text string) {
	if err := n.s.Send(ctx, level, text); err != nil && n.log != nil {
		n.log.Warn("notification not delivered", "level", level, "err", err)
	}
}

// Nop drops every alert.
type Nop struct{}

func (Nop) Info(context.Context, string)    {}
func (Nop) Warning(context.Context, string) {}
func (Nop) Error(context.Context, string)   {}

// Log writes alerts to a logger, for runs without a webhook.
type Log struct {
	Logger *slog.Logger
}

func (l Log) Info(ctx context.Context, text string) {
	l.Logger.InfoContext(ctx, text, "notify", true)
}

func (l Log) Warning(ctx context.Context, text string) {
	l.Logger.WarnContext(ctx, text, "notify", true)
}

func (l Log) Error(ctx context.Context, text string) {
	l.Logger.ErrorContext(ctx, text, "notify", true)
}

// Multi fans every alert out to all notifiers.
type Multi []Notifier

func (m Multi) Info(ctx context.Context, text string) {
	for _, n := range m {
		n.Info(ctx, text)
	}
}

func (m Multi) Warning(ctx context.Context, text string) {
	for _, n := range m {
		n.Warning(ctx, text)
	}
}

func (m Multi) Error(ctx context.Context, text string) {
	for _, n := range m {
		n.Error(ctx, text)
	}
}
