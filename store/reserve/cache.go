package reserve

import (
	"context"
	"fmt"
	"time"

	"lending/core"

	"github.com/bluele/gcache"
	"github.com/fox-one/pkg/store/db"
	"golang.org/x/sync/singleflight"
)

const allKey = "reserve:all"

// Cache read through cache for the query endpoints. Entries expire after exp,
// writes through the cached store drop them right away.
func Cache(store core.IReserveStore, exp time.Duration) core.IReserveStore {
	return &cacheReserveStore{
		IReserveStore: store,
		cache:         gcache.New(256).LRU().Expiration(exp).Build(),
		sf:            &singleflight.Group{},
	}
}

type cacheReserveStore struct {
	core.IReserveStore
	cache gcache.Cache
	sf    *singleflight.Group
}

func (s *cacheReserveStore) Create(ctx context.Context, tx *db.DB, reserve *core.Reserve) error {
	if err := s.IReserveStore.Create(ctx, tx, reserve); err != nil {
		return err
	}

	s.cache.Remove(allKey)
	return nil
}

func (s *cacheReserveStore) Update(ctx context.Context, tx *db.DB, reserve *core.Reserve) error {
	if err := s.IReserveStore.Update(ctx, tx, reserve); err != nil {
		return err
	}

	s.cache.Remove(s.idKey(reserve.ID))
	s.cache.Remove(allKey)
	return nil
}

func (s *cacheReserveStore) Find(ctx context.Context, id string) (*core.Reserve, error) {
	key := s.idKey(id)
	if v, err := s.cache.Get(key); err == nil {
		if reserve, ok := v.(*core.Reserve); ok {
			return reserve.Clone(), nil
		}
	}

	v, err, _ := s.sf.Do(key, func() (interface{}, error) {
		reserve, err := s.IReserveStore.Find(ctx, id)
		if err != nil {
			return nil, err
		}

		s.cache.Set(key, reserve)
		return reserve, nil
	})
	if err != nil {
		return nil, err
	}

	return v.(*core.Reserve).Clone(), nil
}

func (s *cacheReserveStore) All(ctx context.Context) ([]*core.Reserve, error) {
	if v, err := s.cache.Get(allKey); err == nil {
		if reserves, ok := v.([]*core.Reserve); ok {
			return cloneAll(reserves), nil
		}
	}

	v, err, _ := s.sf.Do(allKey, func() (interface{}, error) {
		reserves, err := s.IReserveStore.All(ctx)
		if err != nil {
			return nil, err
		}

		s.cache.Set(allKey, reserves)
		return reserves, nil
	})
	if err != nil {
		return nil, err
	}

	return cloneAll(v.([]*core.Reserve)), nil
}

func (s *cacheReserveStore) idKey(id string) string {
	return fmt.Sprintf("reserve:id:%s", id)
}

func cloneAll(reserves []*core.Reserve) []*core.Reserve {
	out := make([]*core.Reserve, len(reserves))
	for i, r := range reserves {
		out[i] = r.Clone()
	}

	return out
}
