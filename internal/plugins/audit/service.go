package audit

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/siddesa/portal/internal/apperror"
)

// perPage is the number of entries shown per page in the activity feed.
const perPage = 50

// Service handles business logic for the activity log.
type Service interface {
	// Log records an entry. Callers usually treat this as fire-and-forget:
	// a logging failure must not fail the action being logged.
	Log(ctx context.Context, entry *Entry) error

	// Activity returns a page of the feed plus the total count.
	Activity(ctx context.Context, f Filter, page int) ([]Entry, int, error)

	// Stats returns the activity page header.
	Stats(ctx context.Context) (*Stats, error)
}

type service struct {
	repo Repository
}

// NewService creates a new activity log service.
func NewService(repo Repository) Service {
	return &service{repo: repo}
}

// Log validates and persists an entry.
func (s *service) Log(ctx context.Context, entry *Entry) error {
	if entry.Action == "" {
		return apperror.NewBadRequest("action is required for activity entry")
	}
	if entry.Username == "" && entry.UserID == 0 {
		return apperror.NewBadRequest("user is required for activity entry")
	}

	if err := s.repo.Log(ctx, entry); err != nil {
		slog.Error("failed to write activity entry",
			slog.String("action", entry.Action),
			slog.String("username", entry.Username),
			slog.Any("error", err),
		)
		return apperror.NewInternal(fmt.Errorf("writing activity entry: %w", err))
	}
	return nil
}

// Activity returns the paginated feed. Pages are 1-indexed; invalid page
// numbers are clamped to 1.
func (s *service) Activity(ctx context.Context, f Filter, page int) ([]Entry, int, error) {
	if page < 1 {
		page = 1
	}
	entries, total, err := s.repo.List(ctx, f, perPage, (page-1)*perPage)
	if err != nil {
		return nil, 0, apperror.NewInternal(fmt.Errorf("listing activity: %w", err))
	}
	return entries, total, nil
}

// Stats returns aggregate counts.
func (s *service) Stats(ctx context.Context) (*Stats, error) {
	stats, err := s.repo.Stats(ctx)
	if err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("getting activity stats: %w", err))
	}
	return stats, nil
}

// Discard is a Service that drops every entry. Used when no database is
// configured.
type Discard struct{}

// Log drops the entry.
func (Discard) Log(context.Context, *Entry) error { return nil }

// Activity returns an empty feed.
func (Discard) Activity(context.Context, Filter, int) ([]Entry, int, error) { return nil, 0, nil }

// Stats returns zero counts.
func (Discard) Stats(context.Context) (*Stats, error) { return &Stats{}, nil }
