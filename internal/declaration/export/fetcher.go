package export

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/OpenCCD/archive/internal/declaration/model"
	"github.com/OpenCCD/archive/internal/declaration/payload"
)

// DefaultFetchConcurrency bounds simultaneous outstanding detail fetches.
const DefaultFetchConcurrency = 5

// FetchFunc retrieves the stored XML payload for a declaration by ID.
type FetchFunc func(ctx context.Context, id uuid.UUID) (string, error)

// Fetcher fills in missing XML detail for a declaration batch before the
// extended goods export runs. Workers pull the next unprocessed index from a
// shared cursor and write results into disjoint slots, so no locking is
// needed on the result side.
type Fetcher struct {
	Fetch       FetchFunc
	Concurrency int
	OnProgress  ProgressFunc
}

// Enrich fetches detail XML for every declaration whose payload carries no
// 61.1 fragment, mutating the slice elements in place. Individual fetch
// failures are logged and skipped; only context cancellation aborts the run.
func (f *Fetcher) Enrich(ctx context.Context, decls []*model.Declaration) error {
	if f.Fetch == nil {
		return nil
	}

	var pending []int
	for i, d := range decls {
		if !payload.Parse(d.XMLData).HasDetailXML() {
			pending = append(pending, i)
		}
	}

	total := len(pending)
	f.progress(PhaseFetchingDetails, 0, total)
	if total == 0 {
		return nil
	}

	workers := f.Concurrency
	if workers <= 0 {
		workers = DefaultFetchConcurrency
	}
	if workers > total {
		workers = total
	}

	var cursor atomic.Int64
	var done atomic.Int64
	var wg sync.WaitGroup

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				next := int(cursor.Add(1)) - 1
				if next >= total {
					return
				}
				if ctx.Err() != nil {
					return
				}
				i := pending[next]
				d := decls[i]
				xml, err := f.Fetch(ctx, d.ID)
				if err != nil {
					slog.Warn("detail fetch failed, declaration exported without goods",
						"declaration_id", d.ID, "error", err)
				} else if xml != "" {
					decls[i].XMLData = &xml
				}
				f.progress(PhaseFetchingDetails, int(done.Add(1)), total)
			}
		}()
	}

	wg.Wait()
	return ctx.Err()
}

func (f *Fetcher) progress(phase Phase, current, total int) {
	if f.OnProgress != nil {
		f.OnProgress(phase, current, total)
	}
}
