// Package derive holds the pure display-value derivation functions shared by
// the export row generators and the statistics aggregator. Every function in
// this package maps "no data" onto the NoData sentinel rather than returning
// an error.
package derive

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/OpenCCD/archive/internal/declaration/model"
)

// NoData is the domain sentinel for "not applicable / unknown". It must be
// preserved exactly in every rendered and exported context.
const NoData = "---"

// Document codes used on goods-level document lists.
var (
	InvoiceDocCodes  = []string{"380"}
	CMRDocCodes      = []string{"730"}
	ContractDocCodes = []string{"4100", "4104"}
)

var registeredDateRe = regexp.MustCompile(`^(\d{4})(\d{2})(\d{2})T(\d{2})(\d{2})(\d{2})$`)

// MDNumber resolves the displayed declaration number. Precedence: extracted
// MRN, then the stored mrn column, then the legacy three-part MD number built
// from ccd_07_* (sequence zero-padded to six digits), then the sentinel.
func MDNumber(raw *model.RawFields, mrn string) string {
	if raw != nil && raw.MRN != "" {
		return raw.MRN
	}
	if mrn != "" {
		return mrn
	}
	if raw != nil && raw.CCD0701 != "" && raw.CCD0702 != "" && raw.CCD0703 != "" {
		return fmt.Sprintf("%s / %s / %s", raw.CCD0701, raw.CCD0702, zeroPad6(raw.CCD0703))
	}
	return NoData
}

func zeroPad6(s string) string {
	if len(s) >= 6 {
		return s
	}
	return strings.Repeat("0", 6-len(s)) + s
}

// FormatRegisteredDate turns the customs YYYYMMDDTHHMMSS stamp into the
// DD.MM.YYYY, HH:MM:SS shape used across the dashboard. Input that does not
// match the pattern is returned verbatim; empty input yields the sentinel.
func FormatRegisteredDate(s string) string {
	if s == "" {
		return NoData
	}
	m := registeredDateRe.FindStringSubmatch(s)
	if m == nil {
		return s
	}
	return fmt.Sprintf("%s.%s.%s, %s:%s:%s", m[3], m[2], m[1], m[4], m[5], m[6])
}

var statusLabels = map[model.DeclarationStatus]string{
	model.DeclarationStatusCleared:    "Оформлено",
	model.DeclarationStatusProcessing: "В роботі",
	model.DeclarationStatusRejected:   "Помилка",
}

// StatusText resolves the displayed status label. An extracted ccd_status of
// "R" means the declaration is cleared regardless of what the archive row
// says; otherwise the stored status maps through a fixed dictionary, falling
// back to the raw status string itself.
func StatusText(raw *model.RawFields, docStatus model.DeclarationStatus) string {
	if raw != nil && raw.CCDStatus == "R" {
		return "Оформлена"
	}
	if label, ok := statusLabels[docStatus]; ok {
		return label
	}
	if docStatus != "" {
		return string(docStatus)
	}
	return NoData
}

// DocumentInfo is a resolved accompanying-document reference.
type DocumentInfo struct {
	Number string
	Date   string
}

// FindDocumentInfo looks up an accompanying document. With a goods index the
// matching line item's docs are searched by numeric code; without one, or
// when the line item has no hit, the declaration-level documents are searched
// by type. Both fields default to the sentinel.
func FindDocumentInfo(mapped *model.MappedDeclaration, goodsIndex *int, codes []string) DocumentInfo {
	info := DocumentInfo{Number: NoData, Date: NoData}
	if mapped == nil {
		return info
	}

	codeSet := make(map[string]struct{}, len(codes))
	for _, c := range codes {
		codeSet[c] = struct{}{}
	}

	if goodsIndex != nil && *goodsIndex >= 0 && *goodsIndex < len(mapped.Goods) {
		for _, doc := range mapped.Goods[*goodsIndex].Docs {
			if _, ok := codeSet[strings.TrimSpace(doc.Code)]; ok {
				return docInfo(doc)
			}
		}
	}

	for _, doc := range mapped.Documents {
		if _, ok := codeSet[strings.TrimSpace(doc.Type)]; ok {
			return docInfo(doc)
		}
	}
	return info
}

func docInfo(doc model.Document) DocumentInfo {
	info := DocumentInfo{Number: NoData, Date: NoData}
	if doc.Number != "" {
		info.Number = doc.Number
	}
	if doc.Date != "" {
		info.Date = doc.Date
	}
	return info
}

// Transports renders the extracted transport list for display.
func Transports(raw *model.RawFields) string {
	if raw == nil || len(raw.TRNAll) == 0 {
		return NoData
	}
	return strings.Join(raw.TRNAll, ", ")
}
