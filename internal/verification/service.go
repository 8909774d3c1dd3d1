package verification

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"registration-bot/internal/airtable"
	"registration-bot/internal/audit"
	"registration-bot/internal/models"
	"registration-bot/internal/registration"
	"registration-bot/internal/schema"
)

const DefaultEventName = "the Dance Thing"

type Resolver interface {
	ByCode(ctx context.Context, code string) (*models.Outcome, error)
}

type Recorder interface {
	MarkVerified(ctx context.Context, o *models.Outcome, info models.DiscordInfo, now time.Time) (*airtable.Record, error)
}

type RoleAssigner interface {
	AssignYearRole(ctx context.Context, userID, year string) ([]string, error)
}

type Auditor interface {
	Log(ctx context.Context, e audit.Entry) bool
}

type Request struct {
	Code string
	User models.DiscordUser
}

type Service struct {
	resolver  Resolver
	recorder  Recorder
	roles     RoleAssigner
	auditor   Auditor
	registry  *schema.Registry
	logger    *slog.Logger
	now       func() time.Time
	eventName string
	observe   func(Outcome)
}

type Option func(*Service)

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithEventName(name string) Option {
	return func(s *Service) { s.eventName = name }
}

// WithObserver is called once per Verify with the final outcome.
func WithObserver(fn func(Outcome)) Option {
	return func(s *Service) { s.observe = fn }
}

func New(resolver Resolver, recorder Recorder, roles RoleAssigner, auditor Auditor, reg *schema.Registry, opts ...Option) *Service {
	s := &Service{
		resolver:  resolver,
		recorder:  recorder,
		roles:     roles,
		auditor:   auditor,
		registry:  reg,
		logger:    slog.Default(),
		now:       time.Now,
		eventName: DefaultEventName,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Verify runs the checks in order and stops at the first that fails. Only a
// fully eligible registration causes side effects: the year role is assigned
// first, then the record is marked verified, then an audit entry is sent.
func (s *Service) Verify(ctx context.Context, req Request) Result {
	res := s.verify(ctx, req)
	res.EventName = s.eventName
	if s.observe != nil {
		s.observe(res.Outcome)
	}
	return res
}

func (s *Service) verify(ctx context.Context, req Request) Result {
	log := s.logger.With("user", req.User.ID)
	code := strings.TrimSpace(req.Code)
	if code == "" {
		return Result{Outcome: OutcomeInvalidCode}
	}

	o, err := s.resolver.ByCode(ctx, code)
	if err != nil {
		log.Error("registration lookup failed", "err", err)
		return Result{Outcome: OutcomeInternalError, Err: err}
	}
	if o == nil {
		log.Info("verification code not found")
		return Result{Outcome: OutcomeInvalidCode}
	}
	log = log.With("year", o.Year, "record", o.Record.ID)

	if !s.registry.SupportsVerification(o.Year) {
		return Result{Outcome: OutcomeUnsupportedYear, Year: o.Year}
	}
	if registration.FieldValue(s.registry, o, schema.FieldVerificationStatus) == schema.StatusVerified {
		log.Info("registration already verified")
		return Result{Outcome: OutcomeAlreadyVerified, Year: o.Year}
	}
	switch registration.FieldValue(s.registry, o, schema.FieldPaymentStatus) {
	case schema.PaymentPaidInFull, schema.PaymentActivePlan:
	default:
		return Result{Outcome: OutcomePaymentIncomplete, Year: o.Year}
	}

	roles, err := s.roles.AssignYearRole(ctx, req.User.ID, o.Year)
	if err != nil {
		log.Error("role assignment failed", "err", err)
		return Result{Outcome: OutcomeInternalError, Year: o.Year, Err: err}
	}
	if _, err := s.recorder.MarkVerified(ctx, o, models.DiscordInfo{User: req.User, Roles: roles}, s.now()); err != nil {
		log.Warn("role assigned but record not marked verified", "roles", roles, "err", err)
		return Result{Outcome: OutcomeInternalError, Year: o.Year, Roles: roles, Err: err}
	}

	name := registration.FieldValue(s.registry, o, schema.FieldNameFull)
	s.auditor.Log(ctx, audit.Entry{
		Kind:             audit.KindVerification,
		Year:             o.Year,
		User:             req.User,
		RegistrationName: name,
		Roles:            roles,
	})
	log.Info("registration verified", "roles", roles)
	return Result{Outcome: OutcomeVerified, Year: o.Year, FirstName: FirstName(name), Roles: roles}
}
