// Package contact accepts public contact form submissions. A submission is
// checked for the honeypot, validated, rate limited per source and only then
// persisted.
package contact

import (
	"context"
	"errors"
	"strings"
	"time"

	ozzo "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
	"github.com/steppeindustrial/corpsite/internal/logging"
	"github.com/steppeindustrial/corpsite/internal/permissions"
	"github.com/steppeindustrial/corpsite/internal/validation"
	"github.com/steppeindustrial/corpsite/pkg/interfaces"
)

// Field length bounds, counted in runes after trimming.
const (
	NameMin    = 2
	NameMax    = 100
	PhoneMin   = 5
	PhoneMax   = 20
	MessageMin = 10
	MessageMax = 1000
)

// DefaultPageSize is used by List when the caller passes none.
const DefaultPageSize = 20

// ListResult is a page of contact requests.
type ListResult struct {
	Items    []*Request `json:"items"`
	Total    int        `json:"total"`
	Page     int        `json:"page"`
	PageSize int        `json:"page_size"`
}

// Service handles contact submissions.
type Service interface {
	Submit(ctx context.Context, submission Submission, source Source) (*Request, error)
	List(ctx context.Context, page, pageSize int) (*ListResult, error)
}

// Option customises the service.
type Option func(*service)

// WithClock overrides the clock used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets the service logger.
func WithLogger(logger interfaces.Logger) Option {
	return func(s *service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

type service struct {
	repo    Repository
	limiter Limiter
	now     func() time.Time
	logger  interfaces.Logger
}

// NewService returns the contact service. A nil limiter falls back to a
// WindowLimiter with the default limit.
func NewService(repo Repository, limiter Limiter, opts ...Option) Service {
	if limiter == nil {
		limiter = NewWindowLimiter()
	}
	s := &service{
		repo:    repo,
		limiter: limiter,
		now:     time.Now,
		logger:  logging.NoOp(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

func (s *service) Submit(ctx context.Context, submission Submission, source Source) (*Request, error) {
	logger := s.logger.WithContext(ctx)

	submission = normalize(submission)
	trapped := submission.Honeypot != ""
	if err := validate(submission, trapped); err != nil {
		if trapped {
			logger.Info("contact.honeypot", "source", source.Key())
		} else {
			logger.Debug("contact.invalid", "source", source.Key(), "error", err)
		}
		return nil, err
	}

	if err := s.limiter.Allow(ctx, source.Key()); err != nil {
		var limited *RateLimitError
		if errors.As(err, &limited) {
			logger.Warn("contact.rate_limited", "source", source.Key(), "retry_after", limited.RetryAfter)
		} else {
			logger.Error("contact.limiter_failed", "source", source.Key(), "error", err)
		}
		return nil, err
	}

	now := s.now().UTC()
	request := &Request{
		ID:      uuid.New(),
		Name:    submission.Name,
		Phone:   submission.Phone,
		Message: submission.Message,
		Meta: map[string]any{
			MetaIP:          source.IP,
			MetaUserAgent:   source.UserAgent,
			MetaReferer:     source.Referer,
			MetaSubmittedAt: now.Format(time.RFC3339),
		},
		CreatedAt: now,
	}
	stored, err := s.repo.Create(ctx, request)
	if err != nil {
		logger.Error("contact.persist_failed", "source", source.Key(), "error", err)
		return nil, err
	}
	logger.Info("contact.accepted", "id", stored.ID, "source", source.Key())
	return stored, nil
}

func (s *service) List(ctx context.Context, page, pageSize int) (*ListResult, error) {
	if err := permissions.Require(ctx, permissions.ResourceContacts, permissions.ActionRead); err != nil {
		return nil, err
	}
	page = max(page, 1)
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	pageSize = min(pageSize, 100)

	items, total, err := s.repo.List(ctx, page, pageSize)
	if err != nil {
		return nil, err
	}
	return &ListResult{Items: items, Total: total, Page: page, PageSize: pageSize}, nil
}

func normalize(submission Submission) Submission {
	submission.Name = strings.TrimSpace(submission.Name)
	submission.Phone = strings.TrimSpace(submission.Phone)
	submission.Message = strings.TrimSpace(submission.Message)
	submission.Honeypot = strings.TrimSpace(submission.Honeypot)
	return submission
}

// validate checks the form fields. A filled honeypot adds an ordinary
// message error so bots see the same response shape as a typo.
func validate(submission Submission, trapped bool) error {
	err := ozzo.ValidateStruct(&submission,
		ozzo.Field(&submission.Name, ozzo.Required, ozzo.RuneLength(NameMin, NameMax)),
		ozzo.Field(&submission.Phone, ozzo.Required, ozzo.RuneLength(PhoneMin, PhoneMax)),
		ozzo.Field(&submission.Message, ozzo.Required, ozzo.RuneLength(MessageMin, MessageMax)),
	)
	errs := ozzo.Errors{}
	if err != nil && !errors.As(err, &errs) {
		return err
	}
	if _, ok := errs["message"]; trapped && !ok {
		errs["message"] = ozzo.ErrInInvalid
	}
	if converted := validation.FromOzzo(errs); converted != nil {
		return converted
	}
	return nil
}
