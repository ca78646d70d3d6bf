// Package services holds the command handlers. Each mutation runs in one
// database transaction: it loads what it needs, asks the voters, checks the
// invariants, persists and records events. Subscribers hear about events only
// after the transaction commits.
package services

import (
	"context"
	"time"

	"github.com/monocle-dev/tracker/internal/apperrors"
	"github.com/monocle-dev/tracker/internal/events"
	"github.com/monocle-dev/tracker/internal/models"
	"github.com/monocle-dev/tracker/internal/storage"
	"github.com/monocle-dev/tracker/internal/voters"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"
)

var tracer = otel.Tracer("github.com/monocle-dev/tracker/internal/services")

type Options struct {
	Logger    zerolog.Logger
	Clock     voters.Clock
	Publisher events.Publisher
	Files     *storage.Files

	AuthLockAttempts  int
	AuthLockDuration  time.Duration
	MaxUploadSize     int64
	AllowRegistration bool
}

type Service struct {
	db        *gorm.DB
	log       zerolog.Logger
	now       voters.Clock
	publisher events.Publisher
	files     *storage.Files

	issueVoter    *voters.IssueVoter
	userVoter     *voters.UserVoter
	projectVoter  voters.ProjectVoter
	templateVoter voters.TemplateVoter
	stateVoter    voters.StateVoter
	fieldVoter    voters.FieldVoter
	itemVoter     voters.ListItemVoter
	groupVoter    voters.GroupVoter

	lockAttempts      int
	lockDuration      time.Duration
	maxUploadSize     int64
	allowRegistration bool
}

func New(db *gorm.DB, opts Options) *Service {
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Publisher == nil {
		opts.Publisher = events.Discard{}
	}

	return &Service{
		db:                db,
		log:               opts.Logger,
		now:               opts.Clock,
		publisher:         opts.Publisher,
		files:             opts.Files,
		issueVoter:        voters.NewIssueVoter(opts.Clock),
		userVoter:         voters.NewUserVoter(opts.Clock),
		lockAttempts:      opts.AuthLockAttempts,
		lockDuration:      opts.AuthLockDuration,
		maxUploadSize:     opts.MaxUploadSize,
		allowRegistration: opts.AllowRegistration,
	}
}

// IssueVoter exposes the issue policy to the HTTP layer.
func (s *Service) IssueVoter() *voters.IssueVoter {
	return s.issueVoter
}

// DB exposes the connection for health checks.
func (s *Service) DB() *gorm.DB {
	return s.db
}

// transact runs fn in a transaction inside a span named op. Only tx may be
// used within fn.
func (s *Service) transact(ctx context.Context, op string, fn func(tx *gorm.DB) error) error {
	ctx, span := tracer.Start(ctx, op)
	defer span.End()

	err := s.db.WithContext(ctx).Transaction(fn)
	s.record(span, op, err)
	return err
}

// read runs fn against the database inside a span named op.
func (s *Service) read(ctx context.Context, op string, fn func(db *gorm.DB) error) error {
	ctx, span := tracer.Start(ctx, op)
	defer span.End()

	err := fn(s.db.WithContext(ctx))
	s.record(span, op, err)
	return err
}

func (s *Service) record(span trace.Span, op string, err error) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	if apperrors.CodeOf(err) == apperrors.CodeUnknown {
		s.log.Error().Err(err).Str("op", op).Msg("command failed")
	}
}

func (s *Service) publish(evts ...events.IssueEvent) {
	for _, e := range evts {
		s.publisher.Publish(e)
	}
}

// requireActor rejects missing or disabled users.
func requireActor(actor *models.User) error {
	if actor == nil || actor.Disabled {
		return apperrors.New(apperrors.CodeUnauthorized, "authentication required")
	}
	return nil
}

func deny(message string) error {
	return apperrors.Forbidden(message)
}
