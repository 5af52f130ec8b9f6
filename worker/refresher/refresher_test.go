package refresher

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"

	"lending/core"

	"github.com/fox-one/pkg/property"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type reserveStore struct {
	core.IReserveStore
	reserves []*core.Reserve
}

func (s *reserveStore) All(_ context.Context) ([]*core.Reserve, error) {
	return s.reserves, nil
}

type obligationStore struct {
	core.IObligationStore
	ids []string
}

func (s *obligationStore) List(_ context.Context, fromID string, limit int) ([]*core.Obligation, error) {
	var out []*core.Obligation
	for _, id := range s.ids {
		if id > fromID && len(out) < limit {
			out = append(out, &core.Obligation{ID: id})
		}
	}

	return out, nil
}

type reserveService struct {
	core.IReserveService
	mu        sync.Mutex
	refreshed []string
	fail      string
}

func (s *reserveService) Refresh(_ context.Context, id string) (*core.Reserve, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id == s.fail {
		return nil, core.ErrStaleData
	}

	s.refreshed = append(s.refreshed, id)
	return &core.Reserve{ID: id}, nil
}

type obligationService struct {
	core.IObligationService
	refreshed []string
	fail      string
}

func (s *obligationService) Refresh(_ context.Context, id string) (*core.Obligation, error) {
	if id == s.fail {
		return nil, core.ErrObligationNotFound
	}

	s.refreshed = append(s.refreshed, id)
	return &core.Obligation{ID: id}, nil
}

type priceStore struct {
	core.IPriceStore
	before []uint64
}

func (s *priceStore) DeleteBefore(_ context.Context, slot uint64) error {
	s.before = append(s.before, slot)
	return nil
}

func TestRefreshReserves(t *testing.T) {
	srv := &reserveService{}
	w := New(Config{Concurrency: 2}, &reserveStore{reserves: []*core.Reserve{{ID: "a"}, {ID: "b"}, {ID: "c"}}}, nil, nil, srv, nil, nil, nil)

	require.NoError(t, w.refreshReserves(context.Background()))
	sort.Strings(srv.refreshed)
	assert.Equal(t, []string{"a", "b", "c"}, srv.refreshed)

	srv.refreshed, srv.fail = nil, "b"
	err := w.refreshReserves(context.Background())
	assert.True(t, errors.Is(err, core.ErrStaleData))
	assert.Len(t, srv.refreshed, 2)
}

func TestRefreshPage(t *testing.T) {
	var ids []string
	for i := 0; i < pageSize+10; i++ {
		ids = append(ids, fmt.Sprintf("o%04d", i))
	}

	srv := &obligationService{}
	w := New(Config{}, nil, &obligationStore{ids: ids}, nil, nil, srv, nil, nil)
	ctx := context.Background()

	next, err := w.refreshPage(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, ids[pageSize-1], next)
	assert.Len(t, srv.refreshed, pageSize)

	next, err = w.refreshPage(ctx, next)
	require.NoError(t, err)
	assert.Equal(t, "", next)
	assert.Equal(t, ids, srv.refreshed)

	t.Run("failure is skipped", func(t *testing.T) {
		srv := &obligationService{fail: ids[3]}
		w := New(Config{}, nil, &obligationStore{ids: ids}, nil, nil, srv, nil, nil)

		next, err := w.refreshPage(ctx, "")
		assert.True(t, errors.Is(err, core.ErrObligationNotFound))
		assert.Equal(t, ids[pageSize-1], next)
		assert.Len(t, srv.refreshed, pageSize-1)
		assert.NotContains(t, srv.refreshed, ids[3])
	})
}

type propertyStore struct {
	property.Store
	values map[string]property.Value
	saved  []string
}

func (s *propertyStore) Get(_ context.Context, key string) (property.Value, error) {
	return s.values[key], nil
}

func (s *propertyStore) Save(_ context.Context, key string, value interface{}) error {
	v := property.Parse(value)
	s.values[key] = v
	s.saved = append(s.saved, v.String())
	return nil
}

func TestRefreshObligations(t *testing.T) {
	var ids []string
	for i := 0; i < 2*pageSize+5; i++ {
		ids = append(ids, fmt.Sprintf("o%04d", i))
	}

	tests := []struct {
		name string
		fail string
	}{
		{"all refreshed", ""},
		{"failure on the first page", ids[0]},
		{"failure on the last page", ids[2*pageSize+1]},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv := &obligationService{fail: tc.fail}
			props := &propertyStore{values: map[string]property.Value{}}
			w := New(Config{}, nil, &obligationStore{ids: ids}, nil, nil, srv, nil, props)

			err := w.refreshObligations(context.Background())
			if tc.fail == "" {
				require.NoError(t, err)
				assert.Equal(t, ids, srv.refreshed)
			} else {
				assert.True(t, errors.Is(err, core.ErrObligationNotFound))
				assert.Len(t, srv.refreshed, len(ids)-1)
				assert.NotContains(t, srv.refreshed, tc.fail)
			}

			assert.Equal(t, []string{ids[pageSize-1], ids[2*pageSize-1], ""}, props.saved)
		})
	}
}

func TestPrune(t *testing.T) {
	prices := &priceStore{}
	w := New(Config{PriceRetention: 100}, nil, nil, prices, nil, nil, nil, nil)

	require.NoError(t, w.prune(context.Background(), 50))
	require.NoError(t, w.prune(context.Background(), 250))
	assert.Equal(t, []uint64{150}, prices.before)

	w.cfg.PriceRetention = 0
	require.NoError(t, w.prune(context.Background(), 1_000))
	assert.Equal(t, []uint64{150}, prices.before)
}
