package extract

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OpenCCD/archive/internal/declaration/model"
)

func strPtr(s string) *string { return &s }

func TestRawFields_From601JSON(t *testing.T) {
	data := `{"data60_1":{"MRN":"MRN123","ccd_registered":"20250116T120000","ccd_status":"R","ccd_type":"ІМ ЕЕ"}}`
	raw := RawFields(strPtr(data), nil, model.DeclarationStatusCleared)
	require.NotNil(t, raw)
	assert.Equal(t, "MRN123", raw.MRN)
	assert.Equal(t, "20250116T120000", raw.CCDRegistered)
	assert.Equal(t, "R", raw.CCDStatus)
	assert.Equal(t, "ІМ ЕЕ", raw.CCDType)
}

func TestRawFields_DerivesTypeFromParts(t *testing.T) {
	data := `{"data60_1":{"ccd_01_01":"ІМ","ccd_01_02":"40","ccd_01_03":"ДЕ"}}`
	raw := RawFields(strPtr(data), nil, model.DeclarationStatusProcessing)
	require.NotNil(t, raw)
	assert.Equal(t, "ІМ 40 ДЕ", raw.CCDType)
}

func TestRawFields_TRNAllStringOrArray(t *testing.T) {
	asString := `{"data60_1":{"MRN":"A","trn_all":"DAF 12345"}}`
	raw := RawFields(strPtr(asString), nil, model.DeclarationStatusCleared)
	require.NotNil(t, raw)
	assert.Equal(t, []string{"DAF 12345"}, raw.TRNAll)

	asArray := `{"data60_1":{"MRN":"A","trn_all":["DAF 12345","MAN 6789"]}}`
	raw = RawFields(strPtr(asArray), nil, model.DeclarationStatusCleared)
	require.NotNil(t, raw)
	assert.Equal(t, []string{"DAF 12345", "MAN 6789"}, raw.TRNAll)
}

func TestRawFields_SummaryFallbackOnMalformedJSON(t *testing.T) {
	registered := time.Date(2025, 1, 16, 12, 0, 0, 0, time.UTC)
	summary := &model.Summary{
		DeclarationType: "ІМ/40/ДЕ",
		RegisteredDate:  &registered,
	}

	raw := RawFields(strPtr(`{"data60_1": broken`), summary, model.DeclarationStatusCleared)
	require.NotNil(t, raw)
	assert.Equal(t, "20250116T120000", raw.CCDRegistered)
	assert.Equal(t, "R", raw.CCDStatus)
	assert.Equal(t, "ІМ/40/ДЕ", raw.CCDType)
	assert.Equal(t, "ІМ", raw.CCD0101)
	assert.Equal(t, "40", raw.CCD0102)
	assert.Equal(t, "ДЕ", raw.CCD0103)
}

func TestRawFields_SummaryFallbackOnJSONWithoutKeys(t *testing.T) {
	summary := &model.Summary{DeclarationType: "ЕК 10 АА"}
	raw := RawFields(strPtr(`{"other":"data"}`), summary, model.DeclarationStatusRejected)
	require.NotNil(t, raw)
	assert.Equal(t, "N", raw.CCDStatus)
	assert.Equal(t, []string{"ЕК", "10", "АА"}, []string{raw.CCD0101, raw.CCD0102, raw.CCD0103})
}

func TestRawFields_NilWhenNoSource(t *testing.T) {
	assert.Nil(t, RawFields(nil, nil, model.DeclarationStatusProcessing))
	assert.Nil(t, RawFields(strPtr(""), nil, model.DeclarationStatusProcessing))
	assert.Nil(t, RawFields(strPtr("garbage"), nil, model.DeclarationStatusProcessing))
}

func TestRawFields_Idempotent(t *testing.T) {
	data := `{"data60_1":{"MRN":"MRN123","ccd_status":"R"}}`
	first := RawFields(strPtr(data), nil, model.DeclarationStatusCleared)
	second := RawFields(strPtr(data), nil, model.DeclarationStatusCleared)
	assert.Equal(t, first, second)
}

func TestStatusLetter(t *testing.T) {
	assert.Equal(t, "R", StatusLetter(model.DeclarationStatusCleared))
	assert.Equal(t, "N", StatusLetter(model.DeclarationStatusRejected))
	assert.Equal(t, "", StatusLetter(model.DeclarationStatusProcessing))
}

func TestSplitDeclarationType(t *testing.T) {
	assert.Equal(t, []string{"ІМ", "40", "ДЕ"}, SplitDeclarationType("ІМ/40/ДЕ"))
	assert.Equal(t, []string{"ІМ", "40", "ДЕ"}, SplitDeclarationType("ІМ 40 ДЕ"))
	assert.Equal(t, []string{"ІМ", "40", "ДЕ"}, SplitDeclarationType(" ІМ / 40 / ДЕ / зайве "))
	assert.Empty(t, SplitDeclarationType(""))
}
