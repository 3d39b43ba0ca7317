package router

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/OpenCCD/archive/internal/auth"
	"github.com/OpenCCD/archive/internal/declaration/export"
	"github.com/OpenCCD/archive/internal/declaration/model"
	"github.com/OpenCCD/archive/internal/declaration/service"
)

// exporter is the row-generation surface the export handler drives.
type exporter interface {
	PaymentCodes(d *model.Declaration) []string
	ExtendedGoodsRows(ctx context.Context, decls []*model.Declaration, cols []string, paymentCodes []string, sink export.RowSink) error
	WriteBasicXLSX(ctx context.Context, w io.Writer, decls []*model.Declaration, tab export.Tab) error
	WriteExtendedXLSX(ctx context.Context, w io.Writer, decls []*model.Declaration, opts export.Options) error
}

// HandleExport handles GET /api/declarations/export requests: the extended
// goods XLSX export streamed straight into the response. The filtered set is
// scanned twice in batches; pass one collects the payment-code union the
// header needs, pass two generates rows. Client disconnects cancel the run
// silently.
//
// Query parameters beyond the shared filters: columnOrder (comma-separated
// ordered key list), columns (inclusion set), debug=1 (diagnostic rate
// columns), format (list60, list61, extended; default is the per-goods
// export).
func (dr *DeclarationRouter) HandleExport(w http.ResponseWriter, r *http.Request) {
	filter, ok := dr.filterFromRequest(w, r)
	if !ok {
		return
	}
	filter.Offset = 0
	filter.Limit = 0

	authCtx := auth.GetAuthContext(r.Context())
	ctx := r.Context()
	q := r.URL.Query()

	if format := q.Get("format"); format != "" && format != "goods" {
		dr.handleFlatExport(w, r, filter, format)
		return
	}

	cols := export.ResolveColumns(splitKeys(q.Get("columnOrder")), includeSet(q.Get("columns")))
	if q.Get("debug") == "1" {
		cols = export.WithDebugColumns(cols)
	}

	// Detail XML fetched during pass one is kept for pass two, so each
	// missing payload is fetched at most once.
	fetched := newFetchCache(dr.store, authCtx.CompanyIDs)

	var codes []string
	codeSet := map[string]struct{}{}
	var total int
	err := dr.store.ScanBatches(ctx, filter, service.DefaultBatchSize, func(batch []*model.Declaration) error {
		total += len(batch)
		fetcher := &export.Fetcher{Fetch: fetched.fetch, Concurrency: dr.fetchConcurrency}
		if err := fetcher.Enrich(ctx, batch); err != nil {
			return err
		}
		for _, d := range batch {
			for _, code := range dr.exporter.PaymentCodes(d) {
				if _, ok := codeSet[code]; !ok {
					codeSet[code] = struct{}{}
					codes = append(codes, code)
				}
			}
		}
		return nil
	})
	if err != nil {
		if ctx.Err() != nil {
			slog.Debug("export aborted by client during code scan")
			return
		}
		http.Error(w, fmt.Sprintf("failed to scan declarations: %v", err), http.StatusInternalServerError)
		return
	}
	if total == 0 {
		http.Error(w, "no declarations to export", http.StatusNotFound)
		return
	}
	codes = export.SortPaymentCodes(codes)

	book, err := export.NewBook(export.HeaderLabels(cols, codes))
	if err != nil {
		http.Error(w, fmt.Sprintf("failed to open workbook: %v", err), http.StatusInternalServerError)
		return
	}
	defer book.Close()

	err = dr.store.ScanBatches(ctx, filter, service.DefaultBatchSize, func(batch []*model.Declaration) error {
		fetcher := &export.Fetcher{Fetch: fetched.fetch, Concurrency: dr.fetchConcurrency}
		if err := fetcher.Enrich(ctx, batch); err != nil {
			return err
		}
		return dr.exporter.ExtendedGoodsRows(ctx, batch, cols, codes, book.AppendRow)
	})
	if err != nil {
		if ctx.Err() != nil {
			slog.Debug("export aborted by client during row generation")
			return
		}
		http.Error(w, fmt.Sprintf("failed to generate export: %v", err), http.StatusInternalServerError)
		return
	}

	filename := export.ExtendedGoodsFilename(time.Now())
	w.Header().Set("Content-Type", export.XLSXContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))

	if dr.archiver == nil {
		if err := book.WriteTo(w); err != nil {
			slog.Warn("failed to stream export", "error", err)
		}
		return
	}

	var buf bytes.Buffer
	if err := book.WriteTo(&buf); err != nil {
		http.Error(w, fmt.Sprintf("failed to write export: %v", err), http.StatusInternalServerError)
		return
	}
	if _, err := w.Write(buf.Bytes()); err != nil {
		slog.Warn("failed to stream export", "error", err)
	}
	if err := dr.archiver.Archive(ctx, filename, export.XLSXContentType, buf.Bytes()); err != nil {
		slog.Warn("failed to archive export artifact", "filename", filename, "error", err)
	}
}

// handleFlatExport serves the one-row-per-declaration formats: the list60 and
// list61 basic listings and the extended per-declaration export. These sets
// are small enough to collect in one scan.
func (dr *DeclarationRouter) handleFlatExport(w http.ResponseWriter, r *http.Request, filter service.ListFilter, format string) {
	ctx := r.Context()
	q := r.URL.Query()

	var decls []*model.Declaration
	var filename string
	var write func(io.Writer) error
	switch format {
	case "list60", "list61":
		tab := export.Tab(format)
		filename = export.BasicFilename(tab, time.Now())
		write = func(out io.Writer) error {
			return dr.exporter.WriteBasicXLSX(ctx, out, decls, tab)
		}
	case "extended":
		opts := export.Options{
			Columns: splitKeys(q.Get("columnOrder")),
			Include: includeSet(q.Get("columns")),
			Debug:   q.Get("debug") == "1",
		}
		filename = export.ExtendedFilename(time.Now())
		write = func(out io.Writer) error {
			return dr.exporter.WriteExtendedXLSX(ctx, out, decls, opts)
		}
	default:
		http.Error(w, fmt.Sprintf("unknown export format: %s", format), http.StatusBadRequest)
		return
	}

	err := dr.store.ScanBatches(ctx, filter, service.DefaultBatchSize, func(batch []*model.Declaration) error {
		decls = append(decls, batch...)
		return nil
	})
	if err != nil {
		if ctx.Err() != nil {
			slog.Debug("export aborted by client during scan")
			return
		}
		http.Error(w, fmt.Sprintf("failed to scan declarations: %v", err), http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := write(&buf); err != nil {
		switch {
		case ctx.Err() != nil:
			slog.Debug("export aborted by client during generation")
		case errors.Is(err, export.ErrNoData):
			http.Error(w, "no declarations to export", http.StatusNotFound)
		default:
			http.Error(w, fmt.Sprintf("failed to generate export: %v", err), http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", export.XLSXContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	if _, err := w.Write(buf.Bytes()); err != nil {
		slog.Warn("failed to stream export", "error", err)
	}
}

// fetchCache deduplicates detail fetches across the two export passes.
type fetchCache struct {
	store      DeclarationStore
	companyIDs []uuid.UUID

	mu  sync.Mutex
	xml map[uuid.UUID]string
}

func newFetchCache(store DeclarationStore, companyIDs []uuid.UUID) *fetchCache {
	return &fetchCache{store: store, companyIDs: companyIDs, xml: map[uuid.UUID]string{}}
}

func (fc *fetchCache) fetch(ctx context.Context, id uuid.UUID) (string, error) {
	fc.mu.Lock()
	cached, ok := fc.xml[id]
	fc.mu.Unlock()
	if ok {
		return cached, nil
	}

	decl, err := fc.store.GetByID(ctx, fc.companyIDs, id)
	if err != nil {
		return "", err
	}
	var xml string
	if decl.XMLData != nil {
		xml = *decl.XMLData
	}

	fc.mu.Lock()
	fc.xml[id] = xml
	fc.mu.Unlock()
	return xml, nil
}

func splitKeys(s string) []string {
	if s == "" {
		return nil
	}
	var keys []string
	for _, k := range strings.Split(s, ",") {
		if k = strings.TrimSpace(k); k != "" {
			keys = append(keys, k)
		}
	}
	return keys
}

func includeSet(s string) map[string]bool {
	keys := splitKeys(s)
	if keys == nil {
		return nil
	}
	set := make(map[string]bool, len(keys))
	for _, k := range keys {
		set[k] = true
	}
	return set
}
