// Package events carries committed issue events to their subscribers.
package events

import (
	"time"

	"github.com/monocle-dev/tracker/internal/models"
	"github.com/monocle-dev/tracker/internal/types"
)

// IssueEvent is published after the transaction recording it commits.
type IssueEvent struct {
	Type      types.EventType
	ProjectID uint
	Project   string
	IssueID   uint
	FullID    string
	Subject   string
	State     string
	Actor     string
	Private   bool
	At        time.Time

	// Notify lists the project's webhooks, empty when none are configured.
	DiscordWebhook string
	SlackWebhook   string
}

// FromIssue builds an event for issue, which needs State.Template.Project loaded.
func FromIssue(t types.EventType, issue *models.Issue, actor *models.User, at time.Time) IssueEvent {
	project := issue.State.Template.Project
	return IssueEvent{
		Type:           t,
		ProjectID:      project.ID,
		Project:        project.Name,
		IssueID:        issue.ID,
		FullID:         issue.FullID(),
		Subject:        issue.Subject,
		State:          issue.State.Name,
		Actor:          actor.Fullname,
		Private:        t == types.EventPrivateComment,
		At:             at,
		DiscordWebhook: project.DiscordWebhook,
		SlackWebhook:   project.SlackWebhook,
	}
}

// Publisher receives committed events. Implementations must not block.
type Publisher interface {
	Publish(event IssueEvent)
}

// Multi fans an event out to several publishers.
type Multi []Publisher

func (m Multi) Publish(event IssueEvent) {
	for _, p := range m {
		if p != nil {
			p.Publish(event)
		}
	}
}

// Discard drops every event.
type Discard struct{}

func (Discard) Publish(IssueEvent) {}

// Recorder keeps published events in memory.
type Recorder struct {
	Events []IssueEvent
}

func (r *Recorder) Publish(event IssueEvent) {
	r.Events = append(r.Events, event)
}

// Types returns the types of the recorded events in order.
func (r *Recorder) Types() []types.EventType {
	out := make([]types.EventType, 0, len(r.Events))
	for _, e := range r.Events {
		out = append(out, e.Type)
	}
	return out
}
