package assignment

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/santerelay/platform/pkg/common/logger"
	"github.com/santerelay/platform/pkg/common/models"
)

// Directory lists facilities of a category; implemented by the facility
// repository.
type Directory interface {
	ListFacilities(ctx context.Context, category models.FacilityCategory) ([]models.Facility, error)
}

// FirstAvailableResolver picks the first facility of the required category in
// ascending-id order. Deterministic against an unchanged directory; returns
// nil (not an error) when none exists. The policy is a placeholder until
// capacity and distance data are available, which is why callers hold the
// referral.DestinationResolver interface rather than this type.
type FirstAvailableResolver struct {
	directory Directory
	cache     *redis.Client
	cacheTTL  time.Duration
}

func NewFirstAvailableResolver(directory Directory) *FirstAvailableResolver {
	return &FirstAvailableResolver{directory: directory}
}

// WithCache attaches a read-through Redis cache for directory lookups.
func (r *FirstAvailableResolver) WithCache(client *redis.Client, ttl time.Duration) *FirstAvailableResolver {
	r.cache = client
	r.cacheTTL = ttl
	return r
}

func (r *FirstAvailableResolver) ResolveDestination(ctx context.Context, category models.FacilityCategory) (*models.Facility, error) {
	key := fmt.Sprintf("assignment:first:%s", category)

	if r.cache != nil {
		if cached, err := r.cache.Get(ctx, key).Bytes(); err == nil {
			var facility models.Facility
			if err := json.Unmarshal(cached, &facility); err == nil {
				return &facility, nil
			}
		}
	}

	facilities, err := r.directory.ListFacilities(ctx, category)
	if err != nil {
		return nil, err
	}
	if len(facilities) == 0 {
		return nil, nil
	}

	sort.Slice(facilities, func(i, j int) bool {
		return facilities[i].ID.String() < facilities[j].ID.String()
	})
	first := facilities[0]

	if r.cache != nil {
		if data, err := json.Marshal(first); err == nil {
			if err := r.cache.Set(ctx, key, data, r.cacheTTL).Err(); err != nil {
				logger.Log.WithError(err).Debug("Failed to cache destination facility")
			}
		}
	}

	return &first, nil
}
