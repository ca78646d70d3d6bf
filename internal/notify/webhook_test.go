package notify

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/monocle-dev/tracker/internal/events"
	"github.com/monocle-dev/tracker/internal/types"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testEvent(discord, slack string) events.IssueEvent {
	return events.IssueEvent{
		Type:           types.EventIssueClosed,
		Project:        "Tracker",
		FullID:         "BUG-042",
		Subject:        "Crash on save",
		State:          "Closed",
		Actor:          "Jane Doe",
		At:             time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC),
		DiscordWebhook: discord,
		SlackWebhook:   slack,
	}
}

func TestSendDiscordAndSlack(t *testing.T) {
	var discord DiscordWebhookRequest
	var slack SlackWebhookRequest

	discordSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		assert.NoError(t, json.Unmarshal(body, &discord))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer discordSrv.Close()

	slackSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		body, _ := io.ReadAll(r.Body)
		assert.NoError(t, json.Unmarshal(body, &slack))
	}))
	defer slackSrv.Close()

	n := NewNotifier(zerolog.Nop())
	require.NoError(t, n.Send(context.Background(), testEvent(discordSrv.URL, slackSrv.URL)))

	require.Len(t, discord.Embeds, 1)
	assert.Contains(t, discord.Embeds[0].Title, "BUG-042")
	assert.Equal(t, ColorGreen, discord.Embeds[0].Color)
	assert.Equal(t, "Project: Tracker", discord.Embeds[0].Footer.Text)

	require.Len(t, slack.Attachments, 1)
	assert.Equal(t, "good", slack.Attachments[0].Color)
	assert.Equal(t, "Crash on save", slack.Attachments[0].Title)
}

func TestSendRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
		}
	}))
	defer srv.Close()

	n := NewNotifier(zerolog.Nop())
	require.NoError(t, n.Send(context.Background(), testEvent(srv.URL, "")))
	assert.EqualValues(t, 3, calls.Load())
}

func TestSendDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	n := NewNotifier(zerolog.Nop())
	err := n.Send(context.Background(), testEvent("", srv.URL))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "slack")
	assert.EqualValues(t, 1, calls.Load())
}

func TestSendCritical(t *testing.T) {
	var payload DiscordWebhookRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
	}))
	defer srv.Close()

	n := NewNotifier(zerolog.Nop())
	require.NoError(t, n.SendCritical(context.Background(), testEvent(srv.URL, ""), 72*time.Hour))

	require.Len(t, payload.Embeds, 1)
	assert.Equal(t, ColorOrange, payload.Embeds[0].Color)
	assert.Contains(t, payload.Embeds[0].Description, "Open for 3 days")
}

func TestPublishSkipsPrivateComments(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()

	n := NewNotifier(zerolog.Nop())
	event := testEvent(srv.URL, "")
	event.Type = types.EventPrivateComment
	event.Private = true
	n.Publish(event)

	event = testEvent(srv.URL, "")
	n.Publish(event)

	assert.Eventually(t, func() bool { return calls.Load() == 1 }, 5*time.Second, 10*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	assert.EqualValues(t, 1, calls.Load())
}
