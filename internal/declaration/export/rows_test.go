package export

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OpenCCD/archive/internal/declaration/derive"
	"github.com/OpenCCD/archive/internal/declaration/mapper"
	"github.com/OpenCCD/archive/internal/declaration/model"
)

type fixedRates struct{ rate float64 }

func (f fixedRates) USDRateForDate(context.Context, string) float64 { return f.rate }

func strPtr(s string) *string { return &s }

// declWithGoods builds a declaration whose XML payload the stub mapper turns
// into the given goods list.
func declWithGoods(goods ...model.Goods) *model.Declaration {
	return &model.Declaration{
		MRN:     "25UA100000000001",
		Status:  model.DeclarationStatusCleared,
		XMLData: strPtr(fmt.Sprintf("<Declaration goods=\"%d\"/>", len(goods))),
	}
}

func stubMapper(goodsByCount map[int][]model.Goods) mapper.Mapper {
	return mapper.Func(func(xml string) (*model.MappedDeclaration, error) {
		var n int
		fmt.Sscanf(xml, `<Declaration goods="%d"/>`, &n)
		return &model.MappedDeclaration{
			Header: model.Header{
				Consignor:    "ТОВ Відправник",
				InvoiceValue: 100,
				ExchangeRate: 41.5,
			},
			Goods: goodsByCount[n],
		}, nil
	})
}

func collectRows(t *testing.T, run func(sink RowSink) error) [][]any {
	t.Helper()
	var rows [][]any
	require.NoError(t, run(func(values []any) error {
		rows = append(rows, values)
		return nil
	}))
	return rows
}

func TestExtendedRows_RowCountInvariant(t *testing.T) {
	goods := map[int][]model.Goods{
		0: nil,
		1: {{HSCode: "8471300000", Price: 10}},
		3: {{HSCode: "1"}, {HSCode: "2"}, {HSCode: "3"}},
	}
	g := &Generator{Mapper: stubMapper(goods), Rates: fixedRates{rate: 41.5}}
	cols := []string{ColMDNumber, ColHSCode}

	for n, want := range map[int]int{0: 1, 1: 1, 3: 3} {
		decls := []*model.Declaration{declWithGoods(goods[n]...)}
		rows := collectRows(t, func(sink RowSink) error {
			return g.ExtendedRows(context.Background(), decls, cols, sink)
		})
		assert.Len(t, rows, want, "declaration with %d goods items", n)
	}
}

func TestExtendedRows_BlanksRepeatedDeclarationColumns(t *testing.T) {
	goods := map[int][]model.Goods{2: {{HSCode: "111"}, {HSCode: "222"}}}
	g := &Generator{Mapper: stubMapper(goods), Rates: fixedRates{}}
	cols := []string{ColMDNumber, ColConsignor, ColHSCode}

	decls := []*model.Declaration{declWithGoods(goods[2]...)}
	rows := collectRows(t, func(sink RowSink) error {
		return g.ExtendedRows(context.Background(), decls, cols, sink)
	})
	require.Len(t, rows, 2)

	assert.Equal(t, "25UA100000000001", rows[0][0])
	assert.Equal(t, "ТОВ Відправник", rows[0][1])
	assert.Equal(t, "111", rows[0][2])

	// Declaration-level values are blanked on subsequent goods rows; the
	// goods-level value is not.
	assert.Equal(t, "", rows[1][0])
	assert.Equal(t, "", rows[1][1])
	assert.Equal(t, "222", rows[1][2])
}

func TestExtendedGoodsRows_UniformPaymentColumns(t *testing.T) {
	goods := map[int][]model.Goods{
		1: {{HSCode: "111", Payments: []model.Payment{{Code: "020", Amount: 1500}}}},
		2: {
			{HSCode: "221", Payments: []model.Payment{{Code: "028", Amount: 10}}},
			{HSCode: "222"},
		},
	}
	g := &Generator{Mapper: stubMapper(goods), Rates: fixedRates{}}
	cols := []string{ColHSCode}
	codes := []string{"020", "028"}

	decls := []*model.Declaration{declWithGoods(goods[1]...), declWithGoods(goods[2]...)}
	rows := collectRows(t, func(sink RowSink) error {
		return g.ExtendedGoodsRows(context.Background(), decls, cols, codes, sink)
	})
	require.Len(t, rows, 3)

	// Every row carries one trailing cell per payment code.
	for _, row := range rows {
		assert.Len(t, row, len(cols)+len(codes))
	}
	assert.Equal(t, []any{"111", "1 500.00", "0.00"}, rows[0])
	assert.Equal(t, []any{"221", "0.00", "10.00"}, rows[1])
	assert.Equal(t, []any{"222", "0.00", "0.00"}, rows[2])
}

func TestExtendedGoodsRows_DeclarationWithoutGoodsStillEmitsRow(t *testing.T) {
	g := &Generator{Mapper: stubMapper(map[int][]model.Goods{0: nil}), Rates: fixedRates{}}
	decls := []*model.Declaration{declWithGoods()}

	rows := collectRows(t, func(sink RowSink) error {
		return g.ExtendedGoodsRows(context.Background(), decls, []string{ColMDNumber, ColHSCode}, []string{"020"}, sink)
	})
	require.Len(t, rows, 1)
	assert.Equal(t, "25UA100000000001", rows[0][0])
	assert.Equal(t, derive.NoData, rows[0][1])
	assert.Equal(t, "0.00", rows[0][2])
}

func TestBasicRows_SkipsFailingDeclaration(t *testing.T) {
	m := mapper.Func(func(xml string) (*model.MappedDeclaration, error) {
		if xml == "<bad/>" {
			panic("hostile payload")
		}
		return &model.MappedDeclaration{}, nil
	})
	g := &Generator{Mapper: m, Rates: fixedRates{}}

	decls := []*model.Declaration{
		{MRN: "OK-1", XMLData: strPtr("<fine/>"), Status: model.DeclarationStatusCleared},
		{MRN: "BAD", XMLData: strPtr("<bad/>"), Status: model.DeclarationStatusCleared},
		{MRN: "OK-2", XMLData: strPtr("<fine/>"), Status: model.DeclarationStatusCleared},
	}

	rows := collectRows(t, func(sink RowSink) error {
		return g.BasicRows(context.Background(), decls, TabList60, sink)
	})
	// The mapper panic is contained inside the adapter, so all three rows
	// survive; a panic inside row building itself would drop the row.
	assert.Len(t, rows, 3)
}

func TestExtendedRows_CancellationAbortsEarly(t *testing.T) {
	g := &Generator{Mapper: stubMapper(map[int][]model.Goods{0: nil}), Rates: fixedRates{}}
	decls := []*model.Declaration{declWithGoods(), declWithGoods()}

	ctx, cancel := context.WithCancel(context.Background())
	var rows int
	err := g.ExtendedRows(ctx, decls, []string{ColMDNumber}, func([]any) error {
		rows++
		cancel()
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, rows)
}

func TestResolveColumns(t *testing.T) {
	order := []string{ColMDNumber, ColStatus, ColHSCode}
	include := map[string]bool{ColMDNumber: true, ColHSCode: true}
	assert.Equal(t, []string{ColMDNumber, ColHSCode}, ResolveColumns(order, include))

	// Nil order falls back to the default set, nil include keeps all.
	assert.Equal(t, DefaultExtendedColumns, ResolveColumns(nil, nil))
}

func TestHeaderLabels(t *testing.T) {
	labels := HeaderLabels([]string{ColMDNumber, "unknownKey"}, []string{"020"})
	assert.Equal(t, []string{"Номер МД", derive.NoData, "Платіж 020"}, labels)
}
