package export

import (
	"context"
	"log/slog"
	"regexp"
	"sort"

	"github.com/OpenCCD/archive/internal/declaration/derive"
	"github.com/OpenCCD/archive/internal/declaration/extract"
	"github.com/OpenCCD/archive/internal/declaration/mapper"
	"github.com/OpenCCD/archive/internal/declaration/model"
)

// Phase identifies the current stage of a long-running export. Phases are
// always reported in order: fetching_details, generating_rows, writing_file.
type Phase string

const (
	PhaseFetchingDetails Phase = "fetching_details"
	PhaseGeneratingRows  Phase = "generating_rows"
	PhaseWritingFile     Phase = "writing_file"
)

// ProgressFunc receives (phase, current, total) updates during an export.
type ProgressFunc func(phase Phase, current, total int)

// RateResolver resolves the USD rate for a YYYYMMDD date string. Zero means
// "no rate available".
type RateResolver interface {
	USDRateForDate(ctx context.Context, date string) float64
}

var dateDigitsRe = regexp.MustCompile(`^\d{8}`)

// rowContext carries everything needed to resolve one output row.
type rowContext struct {
	decl    *model.Declaration
	raw     *model.RawFields
	mapped  *model.MappedDeclaration
	ex      mapper.Extracted
	goods   *model.Goods
	goodsIx int // index into mapped.Goods, -1 when no goods row
	usdRate float64
	first   bool // first row emitted for this declaration
}

// newRowContext resolves the per-declaration inputs shared by all of its
// rows. The rate lookup is memoized by the resolver, so repeated dates across
// a batch cost one call.
func newRowContext(ctx context.Context, d *model.Declaration, m mapper.Mapper, rr RateResolver) *rowContext {
	rc := &rowContext{decl: d, goodsIx: -1, first: true}
	rc.raw = extract.ForDeclaration(d)
	rc.mapped, rc.ex = mapper.Detail(m, d.XMLData, d.Summary)
	if rr != nil {
		rc.usdRate = rr.USDRateForDate(ctx, rc.rateDate())
	}
	return rc
}

// rateDate resolves the date the exchange rate applies to: the mapper's raw
// currency-rate date when present, otherwise the date part of the extracted
// registration stamp.
func (rc *rowContext) rateDate() string {
	if rc.mapped != nil && rc.mapped.Header.CurrencyRateDateRaw != "" {
		if d := dateDigitsRe.FindString(rc.mapped.Header.CurrencyRateDateRaw); d != "" {
			return d
		}
	}
	return dateDigitsRe.FindString(rc.registeredStamp())
}

func (rc *rowContext) registeredStamp() string {
	if rc.ex.CCDRegistered != "" {
		return rc.ex.CCDRegistered
	}
	if rc.raw != nil {
		return rc.raw.CCDRegistered
	}
	return ""
}

func (rc *rowContext) header() *model.Header {
	if rc.mapped == nil {
		return nil
	}
	return &rc.mapped.Header
}

// goodsValueUAH is the hryvnia value of the current goods item's price.
func (rc *rowContext) goodsValueUAH() float64 {
	h := rc.header()
	if rc.goods == nil || h == nil {
		return 0
	}
	return derive.InvoiceValueUAH(rc.goods.Price, h.ExchangeRate)
}

// value resolves one column for the current row. Declaration-level columns on
// non-first goods rows render as empty strings: the repeated values are
// deliberately blanked for spreadsheet readability.
func (rc *rowContext) value(key string) any {
	if !rc.first && declarationLevelColumns[key] {
		return ""
	}

	h := rc.header()
	switch key {
	case ColMDNumber:
		return derive.MDNumber(rc.raw, rc.decl.MRN)
	case ColRegisteredDate:
		return derive.FormatRegisteredDate(rc.registeredStamp())
	case ColStatus:
		return derive.StatusText(rc.raw, rc.decl.Status)
	case ColDeclarationType:
		if rc.raw != nil && rc.raw.CCDType != "" {
			return rc.raw.CCDType
		}
		if h != nil && h.DeclarationType != "" {
			return h.DeclarationType
		}
		return derive.NoData
	case ColCustomsOffice:
		if h != nil && h.CustomsOffice != "" {
			return derive.DecodeLegacyText(h.CustomsOffice)
		}
		return derive.NoData
	case ColConsignor:
		if h != nil && h.Consignor != "" {
			return derive.DecodeLegacyText(h.Consignor)
		}
		return derive.NoData
	case ColConsignee:
		if h != nil && h.Consignee != "" {
			return derive.DecodeLegacyText(h.Consignee)
		}
		return derive.NoData
	case ColContractHolder:
		if h != nil && h.ContractHolder != "" {
			return derive.DecodeLegacyText(h.ContractHolder)
		}
		return derive.NoData
	case ColDeclarantName:
		if h != nil && h.DeclarantName != "" {
			return derive.DecodeLegacyText(h.DeclarantName)
		}
		return derive.NoData
	case ColInvoiceValue:
		if h != nil {
			return h.InvoiceValue
		}
		return 0.0
	case ColInvoiceCurrency:
		if h != nil && h.InvoiceCurrency != "" {
			return h.InvoiceCurrency
		}
		return derive.NoData
	case ColExchangeRate:
		if h != nil {
			return h.ExchangeRate
		}
		return 0.0
	case ColInvoiceValueUAH:
		return rc.invoiceValueUAH()
	case ColCustomsValue:
		if h != nil {
			return h.CustomsValue
		}
		return 0.0
	case ColTotalItems:
		if h != nil {
			return h.TotalItems
		}
		return 0
	case ColTransport:
		return derive.Transports(rc.raw)
	case ColDeliveryTerms:
		if h != nil && h.DeliveryTerms != "" {
			return h.DeliveryTerms
		}
		return derive.NoData
	case ColDeliveryPlace:
		if h != nil && h.DeliveryPlace != "" {
			return derive.DecodeLegacyText(h.DeliveryPlace)
		}
		return derive.NoData
	case ColPayments:
		return rc.paymentsSummary()

	case ColHSCode:
		if rc.goods != nil {
			return rc.goods.HSCode
		}
		return derive.NoData
	case ColGoodsDescription:
		if rc.goods != nil {
			return derive.DecodeLegacyText(rc.goods.Description)
		}
		return derive.NoData
	case ColGoodsPrice:
		if rc.goods != nil {
			return rc.goods.Price
		}
		return 0.0
	case ColNetWeight:
		if rc.goods != nil {
			return rc.goods.NetWeight
		}
		return 0.0
	case ColGrossWeight:
		if rc.goods != nil {
			return rc.goods.GrossWeight
		}
		return 0.0
	case ColGoodsCustomsValue:
		if rc.goods != nil {
			return rc.goods.CustomsValue
		}
		return 0.0
	case ColValueUSD:
		return derive.ValueUSD(rc.goodsValueUAH(), rc.usdRate)
	case ColValueUSDPerKg:
		weight := 0.0
		if rc.goods != nil {
			weight = rc.goods.NetWeight
		}
		return derive.ValueUSDPerKg(derive.ValueUSD(rc.goodsValueUAH(), rc.usdRate), weight)
	case ColProducerName:
		if rc.goods != nil && rc.goods.ProducerName != "" {
			return derive.DecodeLegacyText(rc.goods.ProducerName)
		}
		return derive.NoData
	case ColAddUnitCode:
		if rc.goods != nil && rc.goods.AddUnitCode != "" {
			return rc.goods.AddUnitCode
		}
		return derive.NoData

	case ColInvoiceNumber:
		return rc.docInfo(derive.InvoiceDocCodes).Number
	case ColInvoiceDate:
		return rc.docInfo(derive.InvoiceDocCodes).Date
	case ColCMRNumber:
		return rc.docInfo(derive.CMRDocCodes).Number
	case ColCMRDate:
		return rc.docInfo(derive.CMRDocCodes).Date
	case ColContractNumber:
		return rc.docInfo(derive.ContractDocCodes).Number
	case ColContractDate:
		return rc.docInfo(derive.ContractDocCodes).Date

	case ColRateDateRaw:
		if d := rc.rateDate(); d != "" {
			return d
		}
		return derive.NoData
	case ColResolvedRate:
		return rc.usdRate
	}
	return derive.NoData
}

// invoiceValueUAH prefers the denormalized summary figure and recomputes from
// the invoice value and rate when the summary has none.
func (rc *rowContext) invoiceValueUAH() float64 {
	if s := rc.decl.Summary; s != nil && s.InvoiceValueUAH > 0 {
		return s.InvoiceValueUAH
	}
	if h := rc.header(); h != nil {
		return derive.InvoiceValueUAH(h.InvoiceValue, h.ExchangeRate)
	}
	return 0
}

func (rc *rowContext) paymentsSummary() string {
	if rc.mapped == nil {
		return derive.NoData
	}
	return derive.FormatPayments(rc.mapped.GeneralPayments)
}

func (rc *rowContext) docInfo(codes []string) derive.DocumentInfo {
	if rc.goodsIx >= 0 {
		ix := rc.goodsIx
		return derive.FindDocumentInfo(rc.mapped, &ix, codes)
	}
	return derive.FindDocumentInfo(rc.mapped, nil, codes)
}

// rowPayments returns the payment list scoped to the current row: the goods
// item's payments when on a goods row, otherwise the declaration's general
// payments.
func (rc *rowContext) rowPayments() []model.Payment {
	if rc.goods != nil {
		return rc.goods.Payments
	}
	if rc.mapped != nil {
		return rc.mapped.GeneralPayments
	}
	return nil
}

// RowSink receives generated rows one at a time.
type RowSink func(values []any) error

// Generator produces export rows from declarations. It is stateless across
// declarations; a fresh rate resolver should be supplied per export run so
// the per-date memoization stays bounded.
type Generator struct {
	Mapper mapper.Mapper
	Rates  RateResolver
}

// BasicRows emits one row per declaration with the fixed column set of the
// tab. Row-level failures skip the declaration, never the export.
func (g *Generator) BasicRows(ctx context.Context, decls []*model.Declaration, tab Tab, sink RowSink) error {
	cols := BasicColumns(tab)
	for _, d := range decls {
		if err := ctx.Err(); err != nil {
			return err
		}
		row, ok := g.declarationRow(ctx, d, cols)
		if !ok {
			continue
		}
		if err := sink(row); err != nil {
			return err
		}
	}
	return nil
}

// ExtendedRows emits rows for the caller-selected column set, one per goods
// item (declaration-level values blanked after the first row), or a single
// row when the declaration has no goods.
func (g *Generator) ExtendedRows(ctx context.Context, decls []*model.Declaration, cols []string, sink RowSink) error {
	for _, d := range decls {
		if err := ctx.Err(); err != nil {
			return err
		}
		rows, ok := g.declarationGoodsRows(ctx, d, cols, nil)
		if !ok {
			continue
		}
		for _, row := range rows {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := sink(row); err != nil {
				return err
			}
		}
	}
	return nil
}

// ExtendedGoodsRows emits the cross-declaration goods export: every row gets
// a uniform trailing set of payment columns (one per code in paymentCodes),
// defaulting to "0.00", and declaration-level values are repeated on every
// row since rows from many declarations interleave in the consumer's sorts.
func (g *Generator) ExtendedGoodsRows(ctx context.Context, decls []*model.Declaration, cols []string, paymentCodes []string, sink RowSink) error {
	for _, d := range decls {
		if err := ctx.Err(); err != nil {
			return err
		}
		rows, ok := g.declarationGoodsRows(ctx, d, cols, paymentCodes)
		if !ok {
			continue
		}
		for _, row := range rows {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := sink(row); err != nil {
				return err
			}
		}
	}
	return nil
}

// declarationRow builds a single basic row; ok=false means the declaration
// failed to resolve and was skipped.
func (g *Generator) declarationRow(ctx context.Context, d *model.Declaration, cols []string) (row []any, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			slog.Warn("skipping declaration after row failure", "declaration_id", d.ID, "panic", r)
			row, ok = nil, false
		}
	}()

	rc := newRowContext(ctx, d, g.Mapper, g.Rates)
	row = make([]any, 0, len(cols))
	for _, key := range cols {
		row = append(row, rc.value(key))
	}
	return row, true
}

// declarationGoodsRows expands one declaration into its goods rows. With a
// non-nil paymentCodes slice the extended-goods conventions apply: uniform
// trailing payment columns and no blanking of repeated declaration values.
func (g *Generator) declarationGoodsRows(ctx context.Context, d *model.Declaration, cols []string, paymentCodes []string) (rows [][]any, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			slog.Warn("skipping declaration after row failure", "declaration_id", d.ID, "panic", r)
			rows, ok = nil, false
		}
	}()

	rc := newRowContext(ctx, d, g.Mapper, g.Rates)
	goodsExport := paymentCodes != nil

	var goods []model.Goods
	if rc.mapped != nil {
		goods = rc.mapped.Goods
	}

	if len(goods) == 0 {
		rows = append(rows, rc.buildRow(cols, paymentCodes))
		return rows, true
	}

	for i := range goods {
		rc.goods = &goods[i]
		rc.goodsIx = i
		rc.first = goodsExport || i == 0
		rows = append(rows, rc.buildRow(cols, paymentCodes))
	}
	return rows, true
}

func (rc *rowContext) buildRow(cols []string, paymentCodes []string) []any {
	row := make([]any, 0, len(cols)+len(paymentCodes))
	for _, key := range cols {
		row = append(row, rc.value(key))
	}
	if paymentCodes != nil {
		_, groups := derive.SumPaymentsByCode(rc.rowPayments())
		for _, code := range paymentCodes {
			if g, ok := groups[code]; ok {
				row = append(row, derive.FormatAmount(g.Amount))
			} else {
				row = append(row, "0.00")
			}
		}
	}
	return row
}

// PaymentCodes collects the distinct payment codes of one declaration, goods
// and general payments combined.
func (g *Generator) PaymentCodes(d *model.Declaration) []string {
	mapped, _ := mapper.Detail(g.Mapper, d.XMLData, d.Summary)
	if mapped == nil {
		return nil
	}
	seen := map[string]struct{}{}
	var codes []string
	add := func(ps []model.Payment) {
		for _, p := range ps {
			if p.Code == "" {
				continue
			}
			if _, ok := seen[p.Code]; !ok {
				seen[p.Code] = struct{}{}
				codes = append(codes, p.Code)
			}
		}
	}
	add(mapped.GeneralPayments)
	for _, goods := range mapped.Goods {
		add(goods.Payments)
	}
	return codes
}

// SortPaymentCodes orders a payment-code union for stable header output.
func SortPaymentCodes(codes []string) []string {
	out := append([]string(nil), codes...)
	sort.Strings(out)
	return out
}

// HeaderLabels renders the header row for a column set plus optional payment
// codes. Debug diagnostics are ordinary columns: callers append
// ColRateDateRaw and ColResolvedRate to the column list when debug output is
// requested.
func HeaderLabels(cols []string, paymentCodes []string) []string {
	labels := make([]string, 0, len(cols)+len(paymentCodes))
	for _, key := range cols {
		labels = append(labels, Label(key))
	}
	for _, code := range paymentCodes {
		labels = append(labels, "Платіж "+code)
	}
	return labels
}

// WithDebugColumns appends the diagnostic rate columns to a column set.
func WithDebugColumns(cols []string) []string {
	return append(append([]string(nil), cols...), ColRateDateRaw, ColResolvedRate)
}
