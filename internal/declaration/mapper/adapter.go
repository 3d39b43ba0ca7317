package mapper

import (
	"log/slog"

	"github.com/OpenCCD/archive/internal/declaration/extract"
	"github.com/OpenCCD/archive/internal/declaration/model"
	"github.com/OpenCCD/archive/internal/declaration/payload"
)

// Extracted carries the handful of header fields that are read straight off
// the raw 61.1 XML with tag scanning. These win over the mapper's own header
// values because the mapper normalizes dates lossily on some payloads.
type Extracted struct {
	CCDRegistered string
	CCD0101       string
	CCD0102       string
	CCD0103       string
}

// Detail resolves the rich declaration detail. The source chain is: mapped
// 61.1 XML, then a minimal shape built from the summary row, then nothing.
// Mapper failures are logged and degrade to the fallback; they never
// propagate.
func Detail(m Mapper, xmlData *string, summary *model.Summary) (*model.MappedDeclaration, Extracted) {
	p := payload.Parse(xmlData)

	if xml := p.DetailXML(); xml != "" && m != nil {
		mapped, err := safeMap(m, xml)
		if err != nil {
			slog.Warn("declaration mapper failed, using summary fallback", "error", err)
		}
		if mapped != nil {
			return mapped, extractFromXML(xml, mapped)
		}
	}

	if summary != nil {
		return fromSummary(summary), extractedFromSummary(summary)
	}

	return nil, Extracted{}
}

// extractFromXML prefers direct tag hits on the raw fragment over what the
// mapper put in its header.
func extractFromXML(xml string, mapped *model.MappedDeclaration) Extracted {
	ex := Extracted{
		CCDRegistered: extract.TagValue(xml, "ccd_registered"),
		CCD0101:       extract.TagValue(xml, "ccd_01_01"),
		CCD0102:       extract.TagValue(xml, "ccd_01_02"),
		CCD0103:       extract.TagValue(xml, "ccd_01_03"),
	}
	if ex.CCDRegistered == "" {
		ex.CCDRegistered = mapped.Header.RegisteredDateRaw
	}
	return ex
}

func extractedFromSummary(summary *model.Summary) Extracted {
	var ex Extracted
	parts := extract.SplitDeclarationType(summary.DeclarationType)
	if len(parts) > 0 {
		ex.CCD0101 = parts[0]
	}
	if len(parts) > 1 {
		ex.CCD0102 = parts[1]
	}
	if len(parts) > 2 {
		ex.CCD0103 = parts[2]
	}
	return ex
}

// fromSummary builds the minimal mapped shape from the denormalized summary
// row. Goods stays empty: summary rows carry no line-item detail.
func fromSummary(summary *model.Summary) *model.MappedDeclaration {
	return &model.MappedDeclaration{
		Header: model.Header{
			Consignor:       summary.SenderName,
			Consignee:       summary.RecipientName,
			ContractHolder:  summary.ContractHolder,
			CustomsOffice:   summary.CustomsOffice,
			DeclarationType: summary.DeclarationType,
			InvoiceValue:    summary.InvoiceValue,
			InvoiceCurrency: summary.InvoiceCurrency,
			CustomsValue:    summary.CustomsValue,
			ExchangeRate:    summary.ExchangeRate,
			TotalItems:      summary.TotalItems,
		},
	}
}
