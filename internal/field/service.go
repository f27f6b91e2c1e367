package field

import (
	"context"
	"strings"
	"time"

	"github.com/vinender/fieldsy-backend-sub004/internal/cache"
)

type Service interface {
	GetField(ctx context.Context, id int) (*Field, error)
	ResolveAmenities(ctx context.Context, names []string) ([]string, error)
}

type service struct {
	repo   Repository
	labels *cache.TTL[map[string]string]
}

const amenityCacheTTL = 10 * time.Minute

func NewService(repo Repository, clock cache.Clock) Service {
	return &service{
		repo:   repo,
		labels: cache.NewTTL[map[string]string](amenityCacheTTL, clock),
	}
}

func (s *service) GetField(ctx context.Context, id int) (*Field, error) {
	return s.repo.FindByID(ctx, id)
}

// ResolveAmenities maps amenity slugs to their display labels through the
// TTL cache. Unknown slugs fall back to a title-cased form of the slug.
func (s *service) ResolveAmenities(ctx context.Context, names []string) ([]string, error) {
	byName, err := s.labels.Get(ctx, s.loadLabels)
	if err != nil {
		return nil, err
	}

	out := make([]string, 0, len(names))
	for _, name := range names {
		if label, ok := byName[name]; ok {
			out = append(out, label)
			continue
		}
		out = append(out, titleFromSlug(name))
	}
	return out, nil
}

func (s *service) loadLabels(ctx context.Context) (map[string]string, error) {
	rows, err := s.repo.ListAmenityLabels(ctx)
	if err != nil {
		return nil, err
	}
	byName := make(map[string]string, len(rows))
	for _, row := range rows {
		byName[row.Name] = row.Label
	}
	return byName, nil
}

func titleFromSlug(slug string) string {
	words := strings.Split(strings.ReplaceAll(slug, "-", " "), " ")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
