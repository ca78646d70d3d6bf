// Package notify posts issue events to project Discord and Slack webhooks.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/monocle-dev/tracker/internal/events"
	"github.com/monocle-dev/tracker/internal/types"
	"github.com/rs/zerolog"
)

type DiscordWebhookField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

type DiscordEmbed struct {
	Title       string                `json:"title"`
	Description string                `json:"description"`
	Color       int                   `json:"color"`
	Fields      []DiscordWebhookField `json:"fields"`
	Footer      *DiscordFooter        `json:"footer,omitempty"`
	Timestamp   string                `json:"timestamp"`
}

type DiscordFooter struct {
	Text string `json:"text"`
}

type DiscordWebhookRequest struct {
	Username string         `json:"username"`
	Embeds   []DiscordEmbed `json:"embeds"`
}

type SlackField struct {
	Title string `json:"title"`
	Value string `json:"value"`
	Short bool   `json:"short"`
}

type SlackAttachment struct {
	Color     string       `json:"color"`
	Title     string       `json:"title"`
	Text      string       `json:"text"`
	Fields    []SlackField `json:"fields"`
	Footer    string       `json:"footer"`
	Timestamp int64        `json:"ts"`
}

type SlackWebhookRequest struct {
	Username    string            `json:"username"`
	Text        string            `json:"text"`
	Attachments []SlackAttachment `json:"attachments"`
}

const (
	ColorRed    = 16711680 // #FF0000
	ColorGreen  = 65280    // #00FF00
	ColorOrange = 16753920 // #FFA500
	ColorBlue   = 3447003  // #3498DB

	Username = "Tracker"

	sendMaxElapsed = 30 * time.Second
)

// Notifier delivers events to webhooks. Publish never blocks the caller.
type Notifier struct {
	client     *http.Client
	log        zerolog.Logger
	maxElapsed time.Duration
}

func NewNotifier(log zerolog.Logger) *Notifier {
	return &Notifier{
		client:     &http.Client{Timeout: 10 * time.Second},
		log:        log,
		maxElapsed: sendMaxElapsed,
	}
}

// Publish sends the event in the background. Private comments are never sent.
func (n *Notifier) Publish(event events.IssueEvent) {
	if event.Private || (event.DiscordWebhook == "" && event.SlackWebhook == "") {
		return
	}
	go func() {
		if err := n.Send(context.Background(), event); err != nil {
			n.log.Warn().Err(err).Str("issue", event.FullID).Str("event", string(event.Type)).Msg("webhook delivery failed")
		}
	}()
}

// Send delivers one event to the configured webhooks.
func (n *Notifier) Send(ctx context.Context, event events.IssueEvent) error {
	title, color := describe(event.Type)
	return n.deliver(ctx, event, title, color, fmt.Sprintf("%s by %s", title, event.Actor))
}

// SendCritical reports an issue that has been open longer than its template allows.
func (n *Notifier) SendCritical(ctx context.Context, event events.IssueEvent, age time.Duration) error {
	days := int(age.Hours() / 24)
	return n.deliver(ctx, event, "Issue became critical", ColorOrange, fmt.Sprintf("Open for %d days", days))
}

func (n *Notifier) deliver(ctx context.Context, event events.IssueEvent, title string, color int, text string) error {
	if event.DiscordWebhook != "" {
		if err := n.post(ctx, event.DiscordWebhook, discordPayload(event, title, color, text)); err != nil {
			return fmt.Errorf("discord: %w", err)
		}
	}

	if event.SlackWebhook != "" {
		if err := n.post(ctx, event.SlackWebhook, slackPayload(event, title, color, text)); err != nil {
			return fmt.Errorf("slack: %w", err)
		}
	}

	return nil
}

func discordPayload(event events.IssueEvent, title string, color int, text string) DiscordWebhookRequest {
	return DiscordWebhookRequest{
		Username: Username,
		Embeds: []DiscordEmbed{
			{
				Title:       fmt.Sprintf("**%s** %s", event.FullID, title),
				Description: fmt.Sprintf("**%s**\n%s", event.Subject, text),
				Color:       color,
				Fields: []DiscordWebhookField{
					{Name: "State", Value: event.State, Inline: true},
					{Name: "By", Value: event.Actor, Inline: true},
				},
				Footer:    &DiscordFooter{Text: fmt.Sprintf("Project: %s", event.Project)},
				Timestamp: event.At.Format(time.RFC3339),
			},
		},
	}
}

func slackPayload(event events.IssueEvent, title string, color int, text string) SlackWebhookRequest {
	slackColor := "good"
	switch color {
	case ColorRed:
		slackColor = "danger"
	case ColorOrange:
		slackColor = "warning"
	}

	return SlackWebhookRequest{
		Username: Username,
		Text:     fmt.Sprintf("*%s* %s", event.FullID, title),
		Attachments: []SlackAttachment{
			{
				Color: slackColor,
				Title: event.Subject,
				Text:  text,
				Fields: []SlackField{
					{Title: "State", Value: event.State, Short: true},
					{Title: "By", Value: event.Actor, Short: true},
				},
				Footer:    fmt.Sprintf("Project: %s", event.Project),
				Timestamp: event.At.Unix(),
			},
		},
	}
}

func describe(t types.EventType) (string, int) {
	switch t {
	case types.EventIssueCreated:
		return "Issue created", ColorBlue
	case types.EventIssueEdited:
		return "Issue edited", ColorBlue
	case types.EventStateChanged:
		return "State changed", ColorBlue
	case types.EventIssueReopened:
		return "Issue reopened", ColorOrange
	case types.EventIssueClosed:
		return "Issue closed", ColorGreen
	case types.EventIssueAssigned:
		return "Issue assigned", ColorBlue
	case types.EventIssueSuspended:
		return "Issue suspended", ColorOrange
	case types.EventIssueResumed:
		return "Issue resumed", ColorGreen
	case types.EventPublicComment:
		return "Comment added", ColorBlue
	case types.EventFileAttached:
		return "File attached", ColorBlue
	case types.EventFileDeleted:
		return "File deleted", ColorRed
	case types.EventDependencyAdded:
		return "Dependency added", ColorBlue
	case types.EventDependencyRemoved:
		return "Dependency removed", ColorBlue
	}
	return string(t), ColorBlue
}

// post retries server errors and transport failures; client errors are final.
func (n *Notifier) post(ctx context.Context, url string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = n.maxElapsed

	return backoff.Retry(func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := n.client.Do(req)
		if err != nil {
			return fmt.Errorf("failed to send webhook: %w", err)
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
			return fmt.Errorf("webhook returned status %d", resp.StatusCode)
		case resp.StatusCode >= 400:
			return backoff.Permanent(fmt.Errorf("webhook returned status %d", resp.StatusCode))
		}
		return nil
	}, backoff.WithContext(bo, ctx))
}
