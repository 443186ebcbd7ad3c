package settings

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/siddesa/portal/internal/apiclient"
	"github.com/siddesa/portal/internal/apperror"
	"github.com/siddesa/portal/internal/plugins/audit"
	"github.com/siddesa/portal/internal/plugins/auth"
)

// API is the part of the upstream client the settings service uses.
type API interface {
	Fetcher
	BulkUpdateSettings(ctx context.Context, token string, updates []apiclient.SettingUpdate) error
}

// ActivityLogger records settings saves.
type ActivityLogger interface {
	Log(ctx context.Context, entry *audit.Entry) error
}

// Service handles the admin side of site settings: reading the form
// values, validating against the schema, saving upstream and keeping the
// cache coherent.
type Service interface {
	// FormValues returns every schema key with its current upstream value,
	// or the schema default when the API has none. On an upstream failure
	// the defaults are returned together with the error.
	FormValues(ctx context.Context) (map[string]string, error)

	// Save validates values, sends them upstream with the admin's token,
	// invalidates the cache and refetches. Validation problems come back
	// as FieldErrors.
	Save(ctx context.Context, id *auth.Identity, token string, values map[string]string) (*Snapshot, error)

	// SetValue saves a single key. The upload pipeline uses it for the
	// logo and the organisational structure image.
	SetValue(ctx context.Context, token, key, value string) error
}

type service struct {
	api      API
	cache    *Cache
	activity ActivityLogger
}

// NewService creates a new settings service.
func NewService(api API, cache *Cache, activity ActivityLogger) Service {
	return &service{api: api, cache: cache, activity: activity}
}

// FormValues merges schema defaults with the upstream map.
func (s *service) FormValues(ctx context.Context) (map[string]string, error) {
	values := make(map[string]string, len(Schema))
	for _, f := range Schema {
		values[f.Key] = f.Default
	}

	flat, err := s.api.GetSettings(ctx)
	if err != nil {
		return values, apperror.NewBadGateway("Could not load settings from the API.", err)
	}
	for _, f := range Schema {
		if v, ok := flat[f.Key]; ok {
			values[f.Key] = v
		}
	}
	return values, nil
}

// Save validates and persists the submitted values.
func (s *service) Save(ctx context.Context, id *auth.Identity, token string, values map[string]string) (*Snapshot, error) {
	updates, ferrs := BuildUpdates(values)
	if len(ferrs) > 0 {
		return nil, ferrs
	}
	if len(updates) == 0 {
		return nil, apperror.NewValidation("no settings submitted")
	}

	if err := s.push(ctx, token, updates); err != nil {
		return nil, err
	}

	snap, err := s.cache.Refetch(ctx)
	if err != nil {
		// The save went through; the next read refetches.
		slog.Warn("refetching settings after save", slog.Any("error", err))
		snap = s.cache.GetSettings(ctx)
	}

	keys := make([]string, 0, len(updates))
	for _, u := range updates {
		keys = append(keys, u.Key)
	}
	sort.Strings(keys)

	entry := audit.EntryFor(id, audit.ActionSettingsUpdated)
	entry.Kind = "settings"
	entry.Details = map[string]any{"keys": keys}
	if err := s.activity.Log(ctx, entry); err != nil {
		slog.Warn("recording settings save", slog.Any("error", err))
	}

	slog.Info("site settings updated",
		slog.String("username", entry.Username),
		slog.Int("keys", len(keys)),
	)
	return snap, nil
}

// SetValue validates and saves one key.
func (s *service) SetValue(ctx context.Context, token, key, value string) error {
	if _, ok := Lookup(key); !ok {
		return apperror.NewBadRequest(fmt.Sprintf("unknown setting %q", key))
	}
	updates, ferrs := BuildUpdates(map[string]string{key: value})
	if len(ferrs) > 0 {
		return apperror.NewValidation(ferrs[key])
	}
	return s.push(ctx, token, updates)
}

// push sends updates upstream and drops the cached snapshot.
func (s *service) push(ctx context.Context, token string, updates []apiclient.SettingUpdate) error {
	if err := s.api.BulkUpdateSettings(ctx, token, updates); err != nil {
		if apiclient.IsUnauthorized(err) {
			return apperror.NewUnauthorized("Your session has expired. Please sign in again.")
		}
		var apiErr *apiclient.APIError
		if errors.As(err, &apiErr) && apiErr.Status < 500 {
			return apperror.NewValidation(apiErr.Message)
		}
		return apperror.NewBadGateway("Saving settings failed. Please try again.", err)
	}

	if err := s.cache.Invalidate(ctx); err != nil {
		slog.Warn("invalidating settings cache", slog.Any("error", err))
	}
	return nil
}
