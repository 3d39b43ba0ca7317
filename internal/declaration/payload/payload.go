// Package payload classifies a declaration's stored XMLData blob. The blob
// shape varies between upstream API generations: a JSON envelope carrying a
// 60.1 fragment and/or an embedded 61.1 XML string, bare XML text, or nothing
// at all. Every consumer goes through Parse so the sniffing logic lives in
// exactly one place.
package payload

import (
	"encoding/json"
	"strings"
)

// Kind identifies which interpretation of the stored blob applies.
type Kind int

const (
	// KindEmpty means the blob was nil or blank after trimming.
	KindEmpty Kind = iota
	// KindJSON means the blob is a JSON envelope (data60_1 / data61_1 keys).
	KindJSON
	// KindXML means the blob is bare XML text.
	KindXML
	// KindUnparsable means the blob looked like JSON but failed to parse,
	// or started with something that is neither JSON nor XML.
	KindUnparsable
)

// Payload is the tagged parse result produced by Parse. At most one of the
// Data601/Data611/RawXML interpretations applies.
type Payload struct {
	Kind    Kind
	Data601 json.RawMessage // 60.1 short-format fields, present for KindJSON
	Data611 string          // embedded 61.1 full XML, present for KindJSON
	RawXML  string          // the blob itself, present for KindXML
}

type envelope struct {
	Data601 json.RawMessage `json:"data60_1"`
	Data611 string          `json:"data61_1"`
}

// Parse sniffs the first non-whitespace character of the blob and returns the
// matching variant. It never returns an error: malformed input degrades to
// KindUnparsable so callers can fall through to the next data source.
func Parse(xmlData *string) Payload {
	if xmlData == nil {
		return Payload{Kind: KindEmpty}
	}
	trimmed := strings.TrimSpace(*xmlData)
	if trimmed == "" {
		return Payload{Kind: KindEmpty}
	}

	switch trimmed[0] {
	case '{', '[':
		var env envelope
		if err := json.Unmarshal([]byte(trimmed), &env); err != nil {
			return Payload{Kind: KindUnparsable}
		}
		return Payload{Kind: KindJSON, Data601: env.Data601, Data611: env.Data611}
	case '<':
		return Payload{Kind: KindXML, RawXML: trimmed}
	default:
		return Payload{Kind: KindUnparsable}
	}
}

// HasDetailXML reports whether the payload carries full 61.1 detail XML,
// either embedded in the JSON envelope or as the bare blob itself.
func (p Payload) HasDetailXML() bool {
	return p.DetailXML() != ""
}

// DetailXML returns the 61.1 XML fragment if one is present.
func (p Payload) DetailXML() string {
	switch p.Kind {
	case KindJSON:
		if strings.HasPrefix(strings.TrimSpace(p.Data611), "<") {
			return p.Data611
		}
	case KindXML:
		return p.RawXML
	}
	return ""
}
