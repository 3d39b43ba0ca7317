// Package stats computes cross-declaration statistics for the dashboard
// panel: totals, a status breakdown, and six top-10 groupings. Results are
// memoized in a TTL cache keyed by a cheap content hash of the input set.
package stats

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/OpenCCD/archive/internal/declaration/extract"
	"github.com/OpenCCD/archive/internal/declaration/mapper"
	"github.com/OpenCCD/archive/internal/declaration/model"
	"github.com/OpenCCD/archive/internal/declaration/payload"
)

// DefaultTTL bounds how long a memoized statistics result stays valid.
const DefaultTTL = 5 * time.Minute

// hashIDLimit caps how many declaration IDs feed the memo key. Sets that
// share their first hundred IDs, total count, and tab collide on purpose:
// the key is a performance shortcut, not a content digest.
const hashIDLimit = 100

// Aggregator computes statistics over filtered declaration sets. The cache
// is injected at construction so tests and callers control its lifetime.
type Aggregator struct {
	mapper mapper.Mapper
	cache  *gocache.Cache
}

// New builds an aggregator with its own TTL cache.
func New(m mapper.Mapper, ttl time.Duration) *Aggregator {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return NewWithCache(m, gocache.New(ttl, 2*ttl))
}

// NewWithCache builds an aggregator over a caller-supplied cache.
func NewWithCache(m mapper.Mapper, c *gocache.Cache) *Aggregator {
	return &Aggregator{mapper: m, cache: c}
}

// Compute aggregates statistics for a declaration set. Identical inputs
// within the cache TTL return the memoized result.
func (a *Aggregator) Compute(decls []*model.Declaration, tab string) *model.Statistics {
	key := cacheKey(decls, tab)
	if a.cache != nil {
		if v, ok := a.cache.Get(key); ok {
			return v.(*model.Statistics)
		}
	}

	stats := a.aggregate(decls)
	if a.cache != nil {
		a.cache.SetDefault(key, stats)
	}
	return stats
}

// Clear drops every memoized result.
func (a *Aggregator) Clear() {
	if a.cache != nil {
		a.cache.Flush()
	}
}

// cacheKey hashes the first hundred IDs plus the total count and the active
// tab with a 32-bit rolling hash.
func cacheKey(decls []*model.Declaration, tab string) string {
	n := len(decls)
	limit := n
	if limit > hashIDLimit {
		limit = hashIDLimit
	}

	var h uint32
	mix := func(s string) {
		for i := 0; i < len(s); i++ {
			h = h*31 + uint32(s[i])
		}
	}
	for _, d := range decls[:limit] {
		mix(d.ID.String())
	}
	mix("|")
	mix(strconv.Itoa(n))
	mix("|")
	mix(tab)
	return fmt.Sprintf("stats:%08x", h)
}

// group accumulates one breakdown dimension, keeping first-appearance order
// so equal counts sort stably.
type group struct {
	order   []string
	entries map[string]*model.GroupStat
}

func newGroup() *group {
	return &group{entries: map[string]*model.GroupStat{}}
}

func (g *group) add(name string, value float64) {
	if name == "" {
		return
	}
	e, ok := g.entries[name]
	if !ok {
		e = &model.GroupStat{Name: name}
		g.entries[name] = e
		g.order = append(g.order, name)
	}
	e.Count++
	e.TotalValue += value
}

// top returns the dimension sorted descending by count, truncated to ten.
func (g *group) top() []model.GroupStat {
	out := make([]model.GroupStat, 0, len(g.order))
	for _, name := range g.order {
		out = append(out, *g.entries[name])
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	if len(out) > 10 {
		out = out[:10]
	}
	return out
}

func (a *Aggregator) aggregate(decls []*model.Declaration) *model.Statistics {
	stats := &model.Statistics{Total: len(decls)}
	consignors := newGroup()
	consignees := newGroup()
	holders := newGroup()
	hsCodes := newGroup()
	declTypes := newGroup()
	offices := newGroup()

	for _, d := range decls {
		switch d.Status {
		case model.DeclarationStatusCleared:
			stats.ByStatus.Cleared++
		case model.DeclarationStatusProcessing:
			stats.ByStatus.Processing++
		case model.DeclarationStatusRejected:
			stats.ByStatus.Rejected++
		}

		facts := a.resolve(d)
		stats.TotalCustomsValue += facts.customsValue
		stats.TotalInvoiceValue += facts.invoiceValueUAH
		stats.TotalItems += facts.totalItems

		consignors.add(facts.consignor, facts.customsValue)
		consignees.add(facts.consignee, facts.customsValue)
		holders.add(facts.contractHolder, facts.customsValue)
		declTypes.add(NormalizeBucket(facts.declarationType), facts.customsValue)
		offices.add(NormalizeBucket(facts.customsOffice), facts.customsValue)

		if len(facts.hsCodes) > 0 {
			share := facts.customsValue / float64(len(facts.hsCodes))
			for _, code := range facts.hsCodes {
				hsCodes.add(code, share)
			}
		}
	}

	stats.TopConsignors = consignors.top()
	stats.TopConsignees = consignees.top()
	stats.TopContractHolders = holders.top()
	stats.TopHSCodes = hsCodes.top()
	stats.TopDeclarationTypes = declTypes.top()
	stats.TopCustomsOffices = offices.top()
	return stats
}

// declFacts are the per-declaration values feeding the aggregation, resolved
// from the best available source.
type declFacts struct {
	customsValue    float64
	invoiceValueUAH float64
	totalItems      int
	consignor       string
	consignee       string
	contractHolder  string
	declarationType string
	customsOffice   string
	hsCodes         []string
}

// resolve fills declFacts preferring the denormalized summary, then mapped
// detail, then best-effort tag scanning of the raw payload for short-format
// declarations that have neither.
func (a *Aggregator) resolve(d *model.Declaration) declFacts {
	var f declFacts

	if s := d.Summary; s != nil {
		f.customsValue = s.CustomsValue
		f.invoiceValueUAH = SummaryInvoiceUAH(s)
		f.totalItems = s.TotalItems
		f.consignor = s.SenderName
		f.consignee = s.RecipientName
		f.contractHolder = s.ContractHolder
		f.declarationType = s.DeclarationType
		f.customsOffice = s.CustomsOffice
	}

	var mapped *model.MappedDeclaration
	needsDetail := f.customsValue == 0 || f.invoiceValueUAH == 0 || f.totalItems == 0 ||
		f.consignor == "" || f.consignee == "" || f.declarationType == "" || f.customsOffice == ""
	if needsDetail {
		mapped, _ = mapper.Detail(a.mapper, d.XMLData, d.Summary)
	}
	if mapped != nil {
		h := mapped.Header
		if f.customsValue == 0 {
			f.customsValue = h.CustomsValue
			if f.customsValue == 0 {
				for _, g := range mapped.Goods {
					f.customsValue += g.CustomsValue
				}
			}
		}
		if f.invoiceValueUAH == 0 {
			f.invoiceValueUAH = h.InvoiceValue * h.ExchangeRate
		}
		if f.totalItems == 0 {
			f.totalItems = h.TotalItems
			if f.totalItems == 0 {
				f.totalItems = len(mapped.Goods)
			}
		}
		if f.consignor == "" {
			f.consignor = h.Consignor
		}
		if f.consignee == "" {
			f.consignee = h.Consignee
		}
		if f.contractHolder == "" {
			f.contractHolder = h.ContractHolder
		}
		if f.declarationType == "" {
			f.declarationType = h.DeclarationType
		}
		if f.customsOffice == "" {
			f.customsOffice = h.CustomsOffice
		}
	}

	if f.customsValue == 0 || f.declarationType == "" {
		a.resolveFromXML(d, &f)
	}

	f.hsCodes = distinctHSCodes(d, mapped)
	return f
}

// resolveFromXML is the degraded path for short-format declarations whose
// payload never went through the mapper.
func (a *Aggregator) resolveFromXML(d *model.Declaration, f *declFacts) {
	p := payload.Parse(d.XMLData)
	var xml string
	switch p.Kind {
	case payload.KindXML:
		xml = p.RawXML
	case payload.KindJSON:
		xml = string(p.Data601)
	}
	if xml == "" {
		return
	}

	if f.customsValue == 0 {
		f.customsValue = parseAmount(extract.TagValue(xml, "ccd_customs_cost"))
	}
	if f.invoiceValueUAH == 0 {
		f.invoiceValueUAH = parseAmount(extract.TagValue(xml, "ccd_facturing_cost")) *
			parseAmount(extract.TagValue(xml, "ccd_cur_rate"))
	}
	if raw := extract.ForDeclaration(d); raw != nil {
		if f.declarationType == "" {
			f.declarationType = raw.CCDType
		}
	}
}

func parseAmount(s string) float64 {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}

// distinctHSCodes prefers the denormalized join rows and falls back to the
// mapped goods list.
func distinctHSCodes(d *model.Declaration, mapped *model.MappedDeclaration) []string {
	seen := map[string]struct{}{}
	var codes []string
	add := func(code string) {
		code = strings.TrimSpace(code)
		if code == "" {
			return
		}
		if _, ok := seen[code]; !ok {
			seen[code] = struct{}{}
			codes = append(codes, code)
		}
	}
	for _, hc := range d.HSCodes {
		add(hc.HSCode)
	}
	if len(codes) == 0 && mapped != nil {
		for _, g := range mapped.Goods {
			add(g.HSCode)
		}
	}
	return codes
}

// SummaryInvoiceUAH resolves the hryvnia invoice value of a summary row.
// Some upstream rows store invoice-currency units in the UAH column, so for
// foreign-currency declarations the recomputed value wins over the stored
// one whenever the rate is available.
func SummaryInvoiceUAH(s *model.Summary) float64 {
	if s == nil {
		return 0
	}
	cur := strings.ToUpper(strings.TrimSpace(s.InvoiceCurrency))
	foreign := cur != "" && cur != "UAH" && cur != "980"
	if foreign && s.InvoiceValue > 0 && s.ExchangeRate > 0 {
		return s.InvoiceValue * s.ExchangeRate
	}
	if s.InvoiceValueUAH > 0 {
		return s.InvoiceValueUAH
	}
	if s.InvoiceValue > 0 && s.ExchangeRate > 0 {
		return s.InvoiceValue * s.ExchangeRate
	}
	if !foreign {
		return s.InvoiceValue
	}
	return 0
}

var whitespaceRunRe = regexp.MustCompile(`\s+`)
var slashSpacingRe = regexp.MustCompile(`\s*/\s*`)

// NormalizeBucket collapses whitespace runs and slash spacing so near
// duplicate declaration-type and customs-office strings share one bucket.
func NormalizeBucket(s string) string {
	s = whitespaceRunRe.ReplaceAllString(strings.TrimSpace(s), " ")
	return slashSpacingRe.ReplaceAllString(s, " / ")
}
