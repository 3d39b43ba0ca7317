package export

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OpenCCD/archive/internal/declaration/model"
)

func declNeedingDetail(id uuid.UUID) *model.Declaration {
	// A JSON envelope without data61_1 carries no detail XML.
	blob := `{"data60_1":{"ccd_mrn":"MRN"}}`
	return &model.Declaration{BaseModel: model.BaseModel{ID: id}, XMLData: &blob}
}

func TestFetcher_FetchesOnlyMissingDetail(t *testing.T) {
	withDetail := "<Declaration/>"
	decls := []*model.Declaration{
		{XMLData: &withDetail},
		declNeedingDetail(uuid.New()),
		declNeedingDetail(uuid.New()),
	}

	var mu sync.Mutex
	fetched := map[uuid.UUID]bool{}
	f := &Fetcher{Fetch: func(_ context.Context, id uuid.UUID) (string, error) {
		mu.Lock()
		fetched[id] = true
		mu.Unlock()
		return "<Declaration><ccd_mrn>X</ccd_mrn></Declaration>", nil
	}}

	require.NoError(t, f.Enrich(context.Background(), decls))
	assert.Len(t, fetched, 2)
	assert.Equal(t, "<Declaration/>", *decls[0].XMLData)
	for _, d := range decls[1:] {
		assert.Contains(t, *d.XMLData, "ccd_mrn")
	}
}

func TestFetcher_BoundsConcurrency(t *testing.T) {
	const workers = 3
	decls := make([]*model.Declaration, 20)
	for i := range decls {
		decls[i] = declNeedingDetail(uuid.New())
	}

	var active, peak atomic.Int64
	f := &Fetcher{
		Concurrency: workers,
		Fetch: func(context.Context, uuid.UUID) (string, error) {
			cur := active.Add(1)
			for {
				p := peak.Load()
				if cur <= p || peak.CompareAndSwap(p, cur) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			active.Add(-1)
			return "<Declaration/>", nil
		},
	}

	require.NoError(t, f.Enrich(context.Background(), decls))
	assert.LessOrEqual(t, peak.Load(), int64(workers))
	assert.Positive(t, peak.Load())
}

func TestFetcher_SkipsFailedFetches(t *testing.T) {
	failing := uuid.New()
	decls := []*model.Declaration{declNeedingDetail(failing), declNeedingDetail(uuid.New())}
	before := *decls[0].XMLData

	f := &Fetcher{Fetch: func(_ context.Context, id uuid.UUID) (string, error) {
		if id == failing {
			return "", errors.New("upstream timeout")
		}
		return "<Declaration/>", nil
	}}

	require.NoError(t, f.Enrich(context.Background(), decls))
	assert.Equal(t, before, *decls[0].XMLData)
	assert.Equal(t, "<Declaration/>", *decls[1].XMLData)
}

func TestFetcher_CancellationReturnsContextError(t *testing.T) {
	decls := make([]*model.Declaration, 10)
	for i := range decls {
		decls[i] = declNeedingDetail(uuid.New())
	}

	ctx, cancel := context.WithCancel(context.Background())
	f := &Fetcher{
		Concurrency: 1,
		Fetch: func(context.Context, uuid.UUID) (string, error) {
			cancel()
			return "<Declaration/>", nil
		},
	}

	assert.ErrorIs(t, f.Enrich(ctx, decls), context.Canceled)
}

func TestFetcher_ReportsProgressPhase(t *testing.T) {
	decls := []*model.Declaration{declNeedingDetail(uuid.New())}

	var phases []Phase
	var mu sync.Mutex
	f := &Fetcher{
		Fetch: func(context.Context, uuid.UUID) (string, error) { return "<Declaration/>", nil },
		OnProgress: func(phase Phase, current, total int) {
			mu.Lock()
			phases = append(phases, phase)
			mu.Unlock()
			assert.Equal(t, 1, total)
		},
	}

	require.NoError(t, f.Enrich(context.Background(), decls))
	require.NotEmpty(t, phases)
	for _, p := range phases {
		assert.Equal(t, PhaseFetchingDetails, p)
	}
}

func TestFetcher_NilFetchIsNoop(t *testing.T) {
	decls := []*model.Declaration{declNeedingDetail(uuid.New())}
	f := &Fetcher{}
	require.NoError(t, f.Enrich(context.Background(), decls))
}
