// Package scheduler runs the periodic maintenance jobs: critical issue alerts
// and the purge of removed attachments.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/monocle-dev/tracker/internal/events"
	"github.com/monocle-dev/tracker/internal/models"
	"github.com/monocle-dev/tracker/internal/storage"
	"github.com/monocle-dev/tracker/internal/types"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// CriticalNotifier reports issues that became critical.
type CriticalNotifier interface {
	SendCritical(ctx context.Context, event events.IssueEvent, age time.Duration) error
}

type Options struct {
	Logger   zerolog.Logger
	Clock    func() time.Time
	Notifier CriticalNotifier
	Files    *storage.Files

	CriticalInterval time.Duration
	PurgeInterval    time.Duration
	FileRetention    time.Duration
}

type Scheduler struct {
	db       *gorm.DB
	log      zerolog.Logger
	now      func() time.Time
	notifier CriticalNotifier
	files    *storage.Files
	opts     Options

	jobs   map[string]*Job
	mu     sync.RWMutex
	ctx    context.Context
	cancel context.CancelFunc
}

// Job is a function run on every tick of its interval.
type Job struct {
	name     string
	interval time.Duration
	run      func(ctx context.Context) error
	ticker   *time.Ticker
	cancel   context.CancelFunc
	lastRun  time.Time
	lastErr  error
}

func New(db *gorm.DB, opts Options) *Scheduler {
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		db:       db,
		log:      opts.Logger.With().Str("component", "scheduler").Logger(),
		now:      opts.Clock,
		notifier: opts.Notifier,
		files:    opts.Files,
		opts:     opts,
		jobs:     make(map[string]*Job),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start registers the maintenance jobs whose interval is positive.
func (s *Scheduler) Start() {
	s.log.Info().Msg("starting scheduler")

	if s.opts.CriticalInterval > 0 && s.notifier != nil {
		s.AddJob("critical", s.opts.CriticalInterval, func(ctx context.Context) error {
			_, err := s.NotifyCritical(ctx)
			return err
		})
	}
	if s.opts.PurgeInterval > 0 && s.files != nil {
		s.AddJob("purge", s.opts.PurgeInterval, func(ctx context.Context) error {
			_, err := s.PurgeFiles(ctx)
			return err
		})
	}

	s.mu.RLock()
	n := len(s.jobs)
	s.mu.RUnlock()
	s.log.Info().Int("jobs", n).Msg("scheduler started")
}

// Stop cancels every job.
func (s *Scheduler) Stop() {
	s.log.Info().Msg("stopping scheduler")
	s.cancel()

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, job := range s.jobs {
		job.ticker.Stop()
		job.cancel()
	}
	s.jobs = make(map[string]*Job)
}

// AddJob starts run every interval, replacing a job with the same name. The
// first run happens immediately.
func (s *Scheduler) AddJob(name string, interval time.Duration, run func(ctx context.Context) error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.jobs[name]; ok {
		existing.ticker.Stop()
		existing.cancel()
	}

	jobCtx, jobCancel := context.WithCancel(s.ctx)
	job := &Job{
		name:     name,
		interval: interval,
		run:      run,
		ticker:   time.NewTicker(interval),
		cancel:   jobCancel,
	}
	s.jobs[name] = job

	go func() {
		s.execute(jobCtx, job)
		s.runJob(jobCtx, job)
	}()

	s.log.Debug().Str("job", name).Dur("interval", interval).Msg("job added")
}

func (s *Scheduler) runJob(ctx context.Context, job *Job) {
	defer job.ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-job.ticker.C:
			s.execute(ctx, job)
		}
	}
}

func (s *Scheduler) execute(ctx context.Context, job *Job) {
	if ctx.Err() != nil {
		return
	}
	start := time.Now()
	err := job.run(ctx)

	s.mu.Lock()
	job.lastRun = start
	job.lastErr = err
	s.mu.Unlock()

	if err != nil {
		s.log.Error().Err(err).Str("job", job.name).Msg("job failed")
		return
	}
	s.log.Debug().Str("job", job.name).Dur("took", time.Since(start)).Msg("job finished")
}

// Status describes the scheduler for the health endpoint.
func (s *Scheduler) Status() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	jobs := make(map[string]any, len(s.jobs))
	for name, job := range s.jobs {
		entry := map[string]any{"interval": job.interval.String()}
		if !job.lastRun.IsZero() {
			entry["last_run"] = job.lastRun
		}
		if job.lastErr != nil {
			entry["last_error"] = job.lastErr.Error()
		}
		jobs[name] = entry
	}

	return map[string]any{
		"running": s.ctx.Err() == nil,
		"jobs":    jobs,
	}
}

// NotifyCritical alerts about open issues that outgrew their template's
// critical age. Each issue is reported once.
func (s *Scheduler) NotifyCritical(ctx context.Context) (int, error) {
	var candidates []models.Issue
	err := s.db.WithContext(ctx).
		Preload("State.Template.Project").
		Preload("Author").
		Joins("JOIN states ON states.id = issues.state_id").
		Joins("JOIN templates ON templates.id = states.template_id").
		Where("issues.closed_at IS NULL AND issues.critical_notified_at IS NULL AND templates.critical_age IS NOT NULL").
		Order("issues.id").
		Find(&candidates).Error
	if err != nil {
		return 0, err
	}

	now := s.now()
	sent := 0
	for i := range candidates {
		issue := &candidates[i]
		if !issue.IsCritical(now) {
			continue
		}

		// Marked first so a failing webhook does not alert on every tick.
		err := s.db.WithContext(ctx).Model(&models.Issue{}).
			Where("id = ? AND critical_notified_at IS NULL", issue.ID).
			Update("critical_notified_at", now).Error
		if err != nil {
			return sent, err
		}

		event := events.FromIssue(types.EventIssueCritical, issue, &issue.Author, now)
		if event.DiscordWebhook != "" || event.SlackWebhook != "" {
			if err := s.notifier.SendCritical(ctx, event, now.Sub(issue.CreatedAt)); err != nil {
				s.log.Warn().Err(err).Str("issue", event.FullID).Msg("critical alert failed")
				continue
			}
		}
		sent++
	}

	if sent > 0 {
		s.log.Info().Int("issues", sent).Msg("critical issues reported")
	}
	return sent, nil
}

// PurgeFiles deletes the content of files removed longer ago than the
// retention. The rows stay for the issue history.
func (s *Scheduler) PurgeFiles(ctx context.Context) (int, error) {
	cutoff := s.now().Add(-s.opts.FileRetention)

	var files []models.File
	err := s.db.WithContext(ctx).
		Where("removed_at IS NOT NULL AND removed_at < ? AND purged_at IS NULL", cutoff).
		Order("id").
		Find(&files).Error
	if err != nil {
		return 0, err
	}

	purged := 0
	for _, file := range files {
		if err := s.files.Remove(file.UID); err != nil {
			s.log.Warn().Err(err).Str("uid", file.UID).Msg("failed to purge file")
			continue
		}
		err := s.db.WithContext(ctx).Model(&models.File{}).
			Where("id = ?", file.ID).
			Update("purged_at", s.now()).Error
		if err != nil {
			return purged, err
		}
		purged++
	}

	if purged > 0 {
		s.log.Info().Int("files", purged).Msg("removed files purged")
	}
	return purged, nil
}
