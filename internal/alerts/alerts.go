// Package alerts delivers operational notifications (fraud flags, refresh
// sweep failures) to chat channels. Delivery is best effort: a failed
// notification is logged by the caller, never surfaced to the end user.
package alerts

import (
	"context"
	"fmt"
	"sync"

	"github.com/bwmarrin/discordgo"
	"github.com/slack-go/slack"
)

// Notifier delivers one message to an operations channel.
type Notifier interface {
	Name() string
	Notify(ctx context.Context, subject, body string) error
}

// SlackNotifier posts to a Slack channel.
type SlackNotifier struct {
	client  *slack.Client
	channel string
}

// NewSlackNotifier creates a SlackNotifier for the given bot token and
// channel ID.
func NewSlackNotifier(token, channel string) *SlackNotifier {
	return &SlackNotifier{client: slack.New(token), channel: channel}
}

func (n *SlackNotifier) Name() string { return "slack" }

func (n *SlackNotifier) Notify(ctx context.Context, subject, body string) error {
	_, _, err := n.client.PostMessageContext(ctx, n.channel,
		slack.MsgOptionText(fmt.Sprintf("*%s*\n%s", subject, body), false))
	if err != nil {
		return fmt.Errorf("alerts: slack post: %w", err)
	}
	return nil
}

// DiscordNotifier posts to a Discord channel.
type DiscordNotifier struct {
	session   *discordgo.Session
	channelID string
}

// NewDiscordNotifier creates a DiscordNotifier for the given bot token and
// channel ID.
func NewDiscordNotifier(token, channelID string) (*DiscordNotifier, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("alerts: discord session: %w", err)
	}
	return &DiscordNotifier{session: session, channelID: channelID}, nil
}

func (n *DiscordNotifier) Name() string { return "discord" }

func (n *DiscordNotifier) Notify(ctx context.Context, subject, body string) error {
	_, err := n.session.ChannelMessageSend(n.channelID,
		fmt.Sprintf("**%s**\n%s", subject, body),
		discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("alerts: discord send: %w", err)
	}
	return nil
}

// Fanout delivers to every configured notifier and joins their errors.
type Fanout struct {
	notifiers []Notifier
}

// NewFanout creates a Fanout. A Fanout with no notifiers is valid and
// discards everything.
func NewFanout(notifiers ...Notifier) *Fanout {
	return &Fanout{notifiers: notifiers}
}

func (f *Fanout) Name() string { return "fanout" }

func (f *Fanout) Notify(ctx context.Context, subject, body string) error {
	var firstErr error
	for _, n := range f.notifiers {
		if err := n.Notify(ctx, subject, body); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Mock records notifications for tests.
type Mock struct {
	mu       sync.Mutex
	Subjects []string
	Bodies   []string
	Err      error
}

func (m *Mock) Name() string { return "mock" }

func (m *Mock) Notify(ctx context.Context, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.Subjects = append(m.Subjects, subject)
	m.Bodies = append(m.Bodies, body)
	return nil
}

// Count returns how many notifications were recorded.
func (m *Mock) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Subjects)
}
