package export

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/OpenCCD/archive/internal/declaration/model"
)

// ErrNoData is returned when an export is requested over an empty
// declaration set.
var ErrNoData = errors.New("no declarations to export")

// Options configures an export run.
type Options struct {
	Columns     []string        // ordered key list; nil uses the default set
	Include     map[string]bool // inclusion filter; nil keeps everything
	Debug       bool            // append diagnostic rate columns
	OnProgress  ProgressFunc
	Fetch       FetchFunc // detail fetch for the extended goods export
	Concurrency int       // fetch pool size; 0 uses the default
}

// WriteBasicXLSX writes the basic per-declaration listing (7 columns for the
// short format, 13 for the detailed one) to w.
func (g *Generator) WriteBasicXLSX(ctx context.Context, w io.Writer, decls []*model.Declaration, tab Tab) error {
	if len(decls) == 0 {
		return ErrNoData
	}

	cols := BasicColumns(tab)
	book, err := NewBook(HeaderLabels(cols, nil))
	if err != nil {
		return err
	}
	defer book.Close()

	if err := g.BasicRows(ctx, decls, tab, book.AppendRow); err != nil {
		return err
	}
	return book.WriteTo(w)
}

// WriteExtendedXLSX writes the extended per-declaration export: the caller's
// column set, one row per goods item with repeated declaration values blanked
// after the first row.
func (g *Generator) WriteExtendedXLSX(ctx context.Context, w io.Writer, decls []*model.Declaration, opts Options) error {
	if len(decls) == 0 {
		return ErrNoData
	}

	cols := ResolveColumns(opts.Columns, opts.Include)
	if opts.Debug {
		cols = WithDebugColumns(cols)
	}

	book, err := NewBook(HeaderLabels(cols, nil))
	if err != nil {
		return err
	}
	defer book.Close()

	if err := g.ExtendedRows(ctx, decls, cols, book.AppendRow); err != nil {
		return err
	}
	return book.WriteTo(w)
}

// WriteExtendedGoodsXLSX writes the cross-declaration goods export. The run
// has three phases reported in strict order: fetching_details (detail XML is
// fetched for declarations lacking goods, bounded concurrency),
// generating_rows, writing_file. Cancelling ctx aborts between iterations and
// surfaces as ctx.Err(), which callers treat as a silent no-op.
func (g *Generator) WriteExtendedGoodsXLSX(ctx context.Context, w io.Writer, decls []*model.Declaration, opts Options) error {
	if len(decls) == 0 {
		return ErrNoData
	}

	fetcher := &Fetcher{Fetch: opts.Fetch, Concurrency: opts.Concurrency, OnProgress: opts.OnProgress}
	if err := fetcher.Enrich(ctx, decls); err != nil {
		return err
	}

	// The header must list one column per payment code before any data row
	// can be written, so the whole batch is scanned for codes first.
	codeSet := map[string]struct{}{}
	var codes []string
	for _, d := range decls {
		if err := ctx.Err(); err != nil {
			return err
		}
		for _, code := range g.PaymentCodes(d) {
			if _, ok := codeSet[code]; !ok {
				codeSet[code] = struct{}{}
				codes = append(codes, code)
			}
		}
	}
	codes = SortPaymentCodes(codes)

	cols := ResolveColumns(opts.Columns, opts.Include)
	if opts.Debug {
		cols = WithDebugColumns(cols)
	}

	book, err := NewBook(HeaderLabels(cols, codes))
	if err != nil {
		return err
	}
	defer book.Close()

	progress := func(phase Phase, current, total int) {
		if opts.OnProgress != nil {
			opts.OnProgress(phase, current, total)
		}
	}

	total := len(decls)
	progress(PhaseGeneratingRows, 0, total)
	for i, d := range decls {
		if err := ctx.Err(); err != nil {
			return err
		}
		rows, ok := g.declarationGoodsRows(ctx, d, cols, codes)
		if !ok {
			continue
		}
		for _, row := range rows {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := book.AppendRow(row); err != nil {
				return fmt.Errorf("failed to append row: %w", err)
			}
		}
		progress(PhaseGeneratingRows, i+1, total)
	}

	progress(PhaseWritingFile, 0, 1)
	if err := book.WriteTo(w); err != nil {
		return err
	}
	progress(PhaseWritingFile, 1, 1)
	return nil
}
