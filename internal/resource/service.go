package resource

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"
)

type Service interface {
	GetByID(ctx context.Context, id string) (*Resource, error)
	// GetMany returns the known resources among ids keyed by id. Unknown ids are absent.
	GetMany(ctx context.Context, ids []string) (map[string]*Resource, error)
	List(ctx context.Context, filter Filter) ([]*Resource, error)
}

type service struct {
	repo  Repository
	cache *cache.Cache
}

// NewService returns a catalog reader that caches resources by id for ttl.
// A non-positive ttl disables caching.
func NewService(repo Repository, ttl time.Duration) Service {
	s := &service{repo: repo}
	if ttl > 0 {
		s.cache = cache.New(ttl, 2*ttl)
	}
	return s
}

func (s *service) GetByID(ctx context.Context, id string) (*Resource, error) {
	if res, ok := s.cached(id); ok {
		return res, nil
	}
	res, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.store(res)
	return res, nil
}

func (s *service) GetMany(ctx context.Context, ids []string) (map[string]*Resource, error) {
	out := make(map[string]*Resource, len(ids))
	var missing []string
	for _, id := range ids {
		if _, done := out[id]; done {
			continue
		}
		if res, ok := s.cached(id); ok {
			out[id] = res
			continue
		}
		missing = append(missing, id)
	}
	if len(missing) == 0 {
		return out, nil
	}

	fetched, err := s.repo.GetMany(ctx, missing)
	if err != nil {
		return nil, err
	}
	for _, res := range fetched {
		s.store(res)
		out[res.ID] = res
	}
	return out, nil
}

func (s *service) List(ctx context.Context, filter Filter) ([]*Resource, error) {
	list, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	for _, res := range list {
		s.store(res)
	}
	return list, nil
}

func (s *service) cached(id string) (*Resource, bool) {
	if s.cache == nil {
		return nil, false
	}
	v, ok := s.cache.Get(id)
	if !ok {
		return nil, false
	}
	return v.(*Resource), true
}

func (s *service) store(res *Resource) {
	if s.cache != nil {
		s.cache.SetDefault(res.ID, res)
	}
}
