// Package settings resolves per-organization display settings with an
// optional Redis read-through cache.
package settings

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/togay-aytemiz/lumiso-sub000/pkg/models"
	"github.com/togay-aytemiz/lumiso-sub000/pkg/persistence"
)

const cacheTTL = 5 * time.Minute

// Service reads organization settings, caching them in Redis when a client
// is configured. Missing rows resolve to defaults rather than an error.
type Service struct {
	repo   persistence.SettingsRepository
	cache  *redis.Client
	logger *slog.Logger
}

func NewService(repo persistence.SettingsRepository, cache *redis.Client, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		cache:  cache,
		logger: logger.With("module", "settings"),
	}
}

// Defaults returns the settings applied when an organization has none stored.
func Defaults(organizationID string) *models.OrganizationSettings {
	return &models.OrganizationSettings{
		OrganizationID: organizationID,
		DateFormat:     models.DateFormatMDYSlash,
		TimeFormat:     models.TimeFormat12h,
		Timezone:       "UTC",
	}
}

// ForOrganization returns the stored settings or defaults. Cache failures
// degrade to a direct repository read.
func (s *Service) ForOrganization(ctx context.Context, organizationID string) (*models.OrganizationSettings, error) {
	if s.cache != nil {
		if cached := s.fromCache(ctx, organizationID); cached != nil {
			return cached, nil
		}
	}

	settings, err := s.repo.OrganizationSettings(ctx, organizationID)
	if err != nil {
		if persistence.IsSettingsNotFound(err) {
			return Defaults(organizationID), nil
		}

		return nil, fmt.Errorf("failed to load organization settings: %w", err)
	}

	if s.cache != nil {
		s.toCache(ctx, settings)
	}

	return settings, nil
}

// Location resolves the organization timezone, falling back to UTC when the
// stored name is unknown.
func (s *Service) Location(ctx context.Context, organizationID string) (*time.Location, error) {
	settings, err := s.ForOrganization(ctx, organizationID)
	if err != nil {
		return nil, err
	}

	location, err := time.LoadLocation(settings.Timezone)
	if err != nil {
		s.logger.WarnContext(ctx, "unknown organization timezone, using UTC",
			"organization_id", organizationID, "timezone", settings.Timezone)

		return time.UTC, nil
	}

	return location, nil
}

func (s *Service) fromCache(ctx context.Context, organizationID string) *models.OrganizationSettings {
	payload, err := s.cache.Get(ctx, cacheKey(organizationID)).Bytes()
	if err != nil {
		return nil
	}

	var settings models.OrganizationSettings
	if err := json.Unmarshal(payload, &settings); err != nil {
		return nil
	}

	return &settings
}

func (s *Service) toCache(ctx context.Context, settings *models.OrganizationSettings) {
	payload, err := json.Marshal(settings)
	if err != nil {
		return
	}

	err = s.cache.Set(ctx, cacheKey(settings.OrganizationID), payload, cacheTTL).Err()
	if err != nil {
		s.logger.WarnContext(ctx, "failed to cache organization settings", "error", err)
	}
}

func cacheKey(organizationID string) string {
	return "org-settings:" + organizationID
}
