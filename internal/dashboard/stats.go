package dashboard

import (
	"context"
	"encoding/json"

	"golang.org/x/sync/singleflight"

	"github.com/course-portal/portal/internal/observability"
	"github.com/course-portal/portal/internal/platform/backend"
	"github.com/course-portal/portal/internal/platform/cache"
	"github.com/course-portal/portal/internal/rbac"
)

// Stats holds the counters returned by the per-role stats endpoint.
type Stats map[string]json.Number

// UnmarshalJSON keeps the numeric fields and skips anything else the
// endpoint returns.
func (s *Stats) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make(Stats, len(raw))
	for field, value := range raw {
		var n json.Number
		if err := json.Unmarshal(value, &n); err == nil && n != "" {
			out[field] = n
		}
	}
	*s = out
	return nil
}

// Count formats a counter for display; missing counters show "-".
func (s Stats) Count(field string) string {
	if v, ok := s[field]; ok && v != "" {
		return v.String()
	}
	return "-"
}

// Card is one dashboard counter linking to its screen.
type Card struct {
	Title    string
	Count    string
	Link     string
	LinkText string
}

// Cards lays out the counters for role in route table order.
func Cards(role rbac.Role, stats Stats) []Card {
	screens := Screens(role)
	cards := make([]Card, 0, len(screens))
	for _, screen := range screens {
		cards = append(cards, Card{
			Title:    screen.Label,
			Count:    stats.Count(screen.Counter),
			Link:     role.Home() + "/" + screen.Segment,
			LinkText: screen.LinkText,
		})
	}
	return cards
}

// StatsService loads dashboard counters. Concurrent loads for the same user
// share one API call, and results are cached briefly in Redis.
type StatsService struct {
	api     backend.API
	cache   *cache.JSON
	metrics *observability.Metrics
	group   singleflight.Group
}

// NewStatsService builds a StatsService. cache may be nil.
func NewStatsService(api backend.API, c *cache.JSON, metrics *observability.Metrics) *StatsService {
	return &StatsService{api: api, cache: c, metrics: metrics}
}

// Load fetches the counters for user's role.
func (s *StatsService) Load(ctx context.Context, user *rbac.Identity) (Stats, error) {
	slug := user.Role.Slug()
	key, err := s.cache.BuildKey(ctx, slug, user.ID)
	if err != nil {
		return nil, err
	}
	// The shared call must not die with whichever request started it; the
	// context still carries that request's session for the bearer token.
	result := s.group.DoChan(key, func() (any, error) {
		var stats Stats
		hit, err := s.cache.FetchJSON(context.WithoutCancel(ctx), key, &stats, func(ctx context.Context) (any, error) {
			var fresh Stats
			if err := s.api.Get(ctx, "/dashboard/"+slug, &fresh); err != nil {
				return nil, err
			}
			return fresh, nil
		})
		if err != nil {
			return nil, err
		}
		s.metrics.ObserveStatsCache(hit)
		return stats, nil
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-result:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(Stats), nil
	}
}

// Invalidate drops every cached counter, used after mutations change totals.
func (s *StatsService) Invalidate(ctx context.Context) error {
	if s == nil {
		return nil
	}
	return s.cache.Bump(ctx)
}
