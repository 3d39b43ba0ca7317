// Package extract builds the flat RawFields header extract for a declaration.
// Sources are tried as an explicit ordered chain: the 60.1 JSON fragment, the
// denormalized summary row, then a best-effort scan of bare XML. The chain
// short-circuits on the first strategy that yields anything; missing or
// malformed data never produces an error, only a nil result.
package extract

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/OpenCCD/archive/internal/declaration/model"
	"github.com/OpenCCD/archive/internal/declaration/payload"
)

// ForDeclaration resolves the header extract for a declaration record.
func ForDeclaration(d *model.Declaration) *model.RawFields {
	if d == nil {
		return nil
	}
	return RawFields(d.XMLData, d.Summary, d.Status)
}

// RawFields resolves the header extract, walking the source chain
// JSON -> summary -> best-effort XML. Returns nil when no source yields any
// field.
func RawFields(xmlData *string, summary *model.Summary, status model.DeclarationStatus) *model.RawFields {
	p := payload.Parse(xmlData)

	strategies := []func() *model.RawFields{
		func() *model.RawFields { return fromJSON(p) },
		func() *model.RawFields {
			// The summary row only applies when the payload gave us
			// nothing structured to work with.
			if p.Kind == payload.KindXML {
				return nil
			}
			return FromSummary(summary, status)
		},
		func() *model.RawFields {
			if p.Kind != payload.KindXML {
				return nil
			}
			return BestEffortXML(p.RawXML)
		},
	}

	for _, try := range strategies {
		if raw := try(); raw != nil {
			return raw
		}
	}
	return nil
}

// data601 mirrors the 60.1 short-format JSON fragment. trn_all arrives either
// as a single string or as an array depending on the API generation.
type data601 struct {
	GUID          string          `json:"guid"`
	MRN           string          `json:"MRN"`
	CCDRegistered string          `json:"ccd_registered"`
	CCDStatus     string          `json:"ccd_status"`
	CCDType       string          `json:"ccd_type"`
	TRNAll        json.RawMessage `json:"trn_all"`
	CCD0701       string          `json:"ccd_07_01"`
	CCD0702       string          `json:"ccd_07_02"`
	CCD0703       string          `json:"ccd_07_03"`
	CCD0101       string          `json:"ccd_01_01"`
	CCD0102       string          `json:"ccd_01_02"`
	CCD0103       string          `json:"ccd_01_03"`
}

func fromJSON(p payload.Payload) *model.RawFields {
	if p.Kind != payload.KindJSON {
		return nil
	}
	if len(p.Data601) == 0 && p.Data611 == "" {
		return nil
	}

	raw := &model.RawFields{}
	if len(p.Data601) > 0 {
		var frag data601
		if err := json.Unmarshal(p.Data601, &frag); err != nil {
			return nil
		}
		raw.GUID = frag.GUID
		raw.MRN = frag.MRN
		raw.CCDRegistered = frag.CCDRegistered
		raw.CCDStatus = frag.CCDStatus
		raw.CCDType = frag.CCDType
		raw.CCD0701 = frag.CCD0701
		raw.CCD0702 = frag.CCD0702
		raw.CCD0703 = frag.CCD0703
		raw.CCD0101 = frag.CCD0101
		raw.CCD0102 = frag.CCD0102
		raw.CCD0103 = frag.CCD0103
		raw.TRNAll = parseTRNAll(frag.TRNAll)
	}
	raw.DeriveType()
	return raw
}

func parseTRNAll(m json.RawMessage) []string {
	if len(m) == 0 {
		return nil
	}
	var one string
	if err := json.Unmarshal(m, &one); err == nil {
		if one == "" {
			return nil
		}
		return []string{one}
	}
	var many []string
	if err := json.Unmarshal(m, &many); err == nil {
		return many
	}
	return nil
}

// FromSummary reconstructs the header extract from the denormalized summary
// row. ccd_registered is rebuilt in the zero-padded YYYYMMDDTHHMMSS shape the
// 60.1 fragment uses, and the declaration type is split back into its parts.
func FromSummary(summary *model.Summary, status model.DeclarationStatus) *model.RawFields {
	if summary == nil {
		return nil
	}

	raw := &model.RawFields{
		CCDStatus: StatusLetter(status),
		CCDType:   strings.TrimSpace(summary.DeclarationType),
	}

	if summary.RegisteredDate != nil {
		t := *summary.RegisteredDate
		raw.CCDRegistered = fmt.Sprintf("%04d%02d%02dT%02d%02d%02d",
			t.Year(), int(t.Month()), t.Day(), t.Hour(), t.Minute(), t.Second())
	}

	parts := SplitDeclarationType(summary.DeclarationType)
	if len(parts) > 0 {
		raw.CCD0101 = parts[0]
	}
	if len(parts) > 1 {
		raw.CCD0102 = parts[1]
	}
	if len(parts) > 2 {
		raw.CCD0103 = parts[2]
	}

	if raw.IsEmpty() {
		return nil
	}
	return raw
}

// StatusLetter maps the stored declaration status onto the single-letter
// ccd_status convention of the customs API ("R" cleared, "N" rejected).
func StatusLetter(status model.DeclarationStatus) string {
	switch status {
	case model.DeclarationStatusCleared:
		return "R"
	case model.DeclarationStatusRejected:
		return "N"
	default:
		return ""
	}
}

// SplitDeclarationType splits a declaration type string ("ІМ/40/ДЕ" or
// "ІМ 40 ДЕ") into at most three parts.
func SplitDeclarationType(s string) []string {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == '/' || r == ' ' || r == '\t' || r == '\n'
	})
	out := make([]string, 0, 3)
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
		if len(out) == 3 {
			break
		}
	}
	return out
}
