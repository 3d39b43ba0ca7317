package mapper

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OpenCCD/archive/internal/declaration/model"
)

func strPtr(s string) *string { return &s }

func TestDetail_MapsEmbedded611(t *testing.T) {
	xml := `<Declaration><ccd_registered>20250116T120000</ccd_registered><ccd_01_01>ІМ</ccd_01_01></Declaration>`

	m := Func(func(got string) (*model.MappedDeclaration, error) {
		assert.Contains(t, got, "ccd_registered")
		return &model.MappedDeclaration{
			Header: model.Header{MRN: "MRN-1", RegisteredDateRaw: "mapper-date"},
			Goods:  []model.Goods{{HSCode: "8471300000"}},
		}, nil
	})

	mapped, ex := Detail(m, strPtr(xml), nil)
	require.NotNil(t, mapped)
	assert.Equal(t, "MRN-1", mapped.Header.MRN)
	assert.Len(t, mapped.Goods, 1)
	// Direct tag hits beat the mapper's own header date.
	assert.Equal(t, "20250116T120000", ex.CCDRegistered)
	assert.Equal(t, "ІМ", ex.CCD0101)
}

func TestDetail_MapperErrorFallsBackToSummary(t *testing.T) {
	m := Func(func(string) (*model.MappedDeclaration, error) {
		return nil, errors.New("boom")
	})
	summary := &model.Summary{
		SenderName:      "ТОВ Відправник",
		RecipientName:   "ТОВ Отримувач",
		DeclarationType: "ІМ/40/ДЕ",
		InvoiceValue:    100,
	}

	mapped, ex := Detail(m, strPtr("<Declaration/>"), summary)
	require.NotNil(t, mapped)
	assert.Equal(t, "ТОВ Відправник", mapped.Header.Consignor)
	assert.Empty(t, mapped.Goods)
	assert.Equal(t, "ІМ", ex.CCD0101)
	assert.Equal(t, "40", ex.CCD0102)
}

func TestDetail_MapperPanicIsContained(t *testing.T) {
	m := Func(func(string) (*model.MappedDeclaration, error) {
		panic("hostile payload")
	})

	mapped, _ := Detail(m, strPtr("<Declaration/>"), nil)
	assert.Nil(t, mapped)
}

func TestDetail_NoSources(t *testing.T) {
	mapped, ex := Detail(nil, nil, nil)
	assert.Nil(t, mapped)
	assert.Equal(t, Extracted{}, ex)
}

func TestDetail_SummaryOnlyWhenNoXML(t *testing.T) {
	called := false
	m := Func(func(string) (*model.MappedDeclaration, error) {
		called = true
		return nil, nil
	})
	summary := &model.Summary{CustomsOffice: "UA100230"}

	mapped, _ := Detail(m, strPtr(`{"data60_1":{"MRN":"X"}}`), summary)
	require.NotNil(t, mapped)
	assert.False(t, called, "mapper must not run without 61.1 XML")
	assert.Equal(t, "UA100230", mapped.Header.CustomsOffice)
}
