package scheduler

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/monocle-dev/tracker/internal/events"
	"github.com/monocle-dev/tracker/internal/models"
	"github.com/monocle-dev/tracker/internal/storage"
	"github.com/monocle-dev/tracker/internal/testutil"
	"github.com/monocle-dev/tracker/internal/types"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var now = time.Date(2024, time.March, 15, 12, 0, 0, 0, time.UTC)

type fakeNotifier struct {
	mu   sync.Mutex
	sent []events.IssueEvent
}

func (n *fakeNotifier) SendCritical(_ context.Context, event events.IssueEvent, _ time.Duration) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, event)
	return nil
}

type seed struct {
	db    *gorm.DB
	user  models.User
	state models.State
}

func newSeed(t *testing.T, webhook string) *seed {
	t.Helper()
	db := testutil.NewDB(t)
	s := &seed{db: db}

	s.user = models.User{Email: "author@example.com", Fullname: "Author", PasswordHash: "x"}
	require.NoError(t, db.Create(&s.user).Error)

	project := models.Project{Name: "Tracker", DiscordWebhook: webhook}
	require.NoError(t, db.Create(&project).Error)

	age := 5
	template := models.Template{ProjectID: project.ID, Name: "Bugs", Prefix: "BUG", CriticalAge: &age}
	require.NoError(t, db.Create(&template).Error)

	s.state = models.State{TemplateID: template.ID, Name: "New", Type: types.StateInitial, Responsible: types.ResponsibleKeep}
	require.NoError(t, db.Create(&s.state).Error)
	return s
}

func (s *seed) issue(t *testing.T, subject string, created time.Time, closed bool) models.Issue {
	t.Helper()
	issue := models.Issue{Subject: subject, StateID: s.state.ID, AuthorID: s.user.ID}
	issue.CreatedAt = created
	if closed {
		issue.ClosedAt = &now
	}
	require.NoError(t, s.db.Create(&issue).Error)
	return issue
}

func TestNotifyCritical(t *testing.T) {
	s := newSeed(t, "https://discord.example.com/hook")
	old := s.issue(t, "Old", now.AddDate(0, 0, -6), false)
	s.issue(t, "Fresh", now.AddDate(0, 0, -2), false)
	s.issue(t, "Closed", now.AddDate(0, 0, -30), true)

	notifier := &fakeNotifier{}
	sched := New(s.db, Options{Logger: zerolog.Nop(), Clock: func() time.Time { return now }, Notifier: notifier})

	sent, err := sched.NotifyCritical(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, sent)
	require.Len(t, notifier.sent, 1)
	assert.Equal(t, types.EventIssueCritical, notifier.sent[0].Type)
	assert.Equal(t, "Old", notifier.sent[0].Subject)
	assert.Equal(t, "https://discord.example.com/hook", notifier.sent[0].DiscordWebhook)

	var stored models.Issue
	require.NoError(t, s.db.First(&stored, old.ID).Error)
	require.NotNil(t, stored.CriticalNotifiedAt)

	sent, err = sched.NotifyCritical(context.Background())
	require.NoError(t, err)
	assert.Zero(t, sent, "issues are reported once")
	assert.Len(t, notifier.sent, 1)
}

func TestNotifyCritical_NoWebhook(t *testing.T) {
	s := newSeed(t, "")
	s.issue(t, "Old", now.AddDate(0, 0, -6), false)

	notifier := &fakeNotifier{}
	sched := New(s.db, Options{Logger: zerolog.Nop(), Clock: func() time.Time { return now }, Notifier: notifier})

	sent, err := sched.NotifyCritical(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, sent)
	assert.Empty(t, notifier.sent)
}

func TestPurgeFiles(t *testing.T) {
	s := newSeed(t, "")
	issue := s.issue(t, "Crash", now, false)

	files, err := storage.NewFiles(t.TempDir())
	require.NoError(t, err)

	attach := func(removed *time.Time) models.File {
		event := models.Event{IssueID: issue.ID, UserID: s.user.ID, Type: types.EventFileAttached}
		require.NoError(t, s.db.Create(&event).Error)

		uid := storage.NewUID()
		size, err := files.Save(uid, strings.NewReader("content"), 100)
		require.NoError(t, err)

		file := models.File{EventID: event.ID, IssueID: issue.ID, FileName: "a.txt", FileSize: size, MimeType: "text/plain", UID: uid, RemovedAt: removed}
		require.NoError(t, s.db.Create(&file).Error)
		return file
	}

	longAgo := now.AddDate(0, 0, -40)
	recently := now.AddDate(0, 0, -1)
	expired := attach(&longAgo)
	kept := attach(&recently)
	active := attach(nil)

	sched := New(s.db, Options{
		Logger:        zerolog.Nop(),
		Clock:         func() time.Time { return now },
		Files:         files,
		FileRetention: 30 * 24 * time.Hour,
	})

	purged, err := sched.PurgeFiles(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, purged)

	_, err = files.Open(expired.UID)
	assert.ErrorIs(t, err, os.ErrNotExist)
	for _, f := range []models.File{kept, active} {
		r, err := files.Open(f.UID)
		require.NoError(t, err, filepath.Base(f.UID))
		r.Close()
	}

	var stored models.File
	require.NoError(t, s.db.First(&stored, expired.ID).Error)
	assert.NotNil(t, stored.PurgedAt)

	purged, err = sched.PurgeFiles(context.Background())
	require.NoError(t, err)
	assert.Zero(t, purged)
}

func TestScheduler_StartStop(t *testing.T) {
	s := newSeed(t, "")
	files, err := storage.NewFiles(t.TempDir())
	require.NoError(t, err)

	sched := New(s.db, Options{
		Logger:           zerolog.Nop(),
		Notifier:         &fakeNotifier{},
		Files:            files,
		CriticalInterval: time.Hour,
		PurgeInterval:    time.Hour,
	})
	sched.Start()

	status := sched.Status()
	assert.Equal(t, true, status["running"])
	assert.Len(t, status["jobs"], 2)

	sched.Stop()
	status = sched.Status()
	assert.Equal(t, false, status["running"])
	assert.Empty(t, status["jobs"])
}

func TestScheduler_StartWhileAddingJobs(t *testing.T) {
	s := newSeed(t, "")
	files, err := storage.NewFiles(t.TempDir())
	require.NoError(t, err)

	sched := New(s.db, Options{
		Logger:           zerolog.Nop(),
		Notifier:         &fakeNotifier{},
		Files:            files,
		CriticalInterval: time.Hour,
		PurgeInterval:    time.Hour,
	})
	defer sched.Stop()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		sched.Start()
	}()
	go func() {
		defer wg.Done()
		sched.AddJob("extra", time.Hour, func(context.Context) error { return nil })
		_ = sched.Status()
	}()
	wg.Wait()

	assert.Len(t, sched.Status()["jobs"], 3)
}
