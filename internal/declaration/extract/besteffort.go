package extract

import (
	"regexp"
	"strings"
	"sync"

	"github.com/OpenCCD/archive/internal/declaration/model"
)

// Best-effort tag scanning for bare or partially broken XML payloads. This is
// a deliberate degraded-mode parser, kept separate from the real 61.1 mapper
// so its results stay distinguishable from properly mapped detail.

var (
	tagPatternMu sync.Mutex
	tagPatterns  = map[string]*regexp.Regexp{}

	transportBlockRe = regexp.MustCompile(`(?is)<ccd_transport[^>]*>(.*?)</ccd_transport>`)
	transportNameRe  = regexp.MustCompile(`(?is)<(?:ccd_)?trn_name[^>]*>(.*?)</(?:ccd_)?trn_name>`)
)

// TagValue finds the first <name>...</name> occurrence, case-insensitive and
// non-greedy across lines, returning the trimmed inner text.
func TagValue(xml, name string) string {
	re := tagPattern(name)
	m := re.FindStringSubmatch(xml)
	if len(m) < 2 {
		return ""
	}
	return strings.TrimSpace(m[1])
}

func tagPattern(name string) *regexp.Regexp {
	tagPatternMu.Lock()
	defer tagPatternMu.Unlock()
	if re, ok := tagPatterns[name]; ok {
		return re
	}
	re := regexp.MustCompile(`(?is)<` + regexp.QuoteMeta(name) + `[^>]*>(.*?)</` + regexp.QuoteMeta(name) + `>`)
	tagPatterns[name] = re
	return re
}

// BestEffortXML pulls the known header tags out of bare XML text. Malformed
// markup degrades to missing fields, never to an error.
func BestEffortXML(xml string) *model.RawFields {
	if strings.TrimSpace(xml) == "" {
		return nil
	}

	raw := &model.RawFields{
		GUID:          TagValue(xml, "guid"),
		MRN:           TagValue(xml, "MRN"),
		CCDRegistered: TagValue(xml, "ccd_registered"),
		CCDStatus:     TagValue(xml, "ccd_status"),
		CCDType:       TagValue(xml, "ccd_type"),
		CCD0701:       TagValue(xml, "ccd_07_01"),
		CCD0702:       TagValue(xml, "ccd_07_02"),
		CCD0703:       TagValue(xml, "ccd_07_03"),
		CCD0101:       TagValue(xml, "ccd_01_01"),
		CCD0102:       TagValue(xml, "ccd_01_02"),
		CCD0103:       TagValue(xml, "ccd_01_03"),
	}
	raw.DeriveType()
	raw.TRNAll = transportNames(xml)

	if raw.IsEmpty() {
		return nil
	}
	return raw
}

// transportNames prefers a direct trn_all tag and otherwise collects every
// transport name nested inside repeated ccd_transport blocks.
func transportNames(xml string) []string {
	if direct := TagValue(xml, "trn_all"); direct != "" {
		return []string{direct}
	}

	var names []string
	for _, block := range transportBlockRe.FindAllStringSubmatch(xml, -1) {
		for _, m := range transportNameRe.FindAllStringSubmatch(block[1], -1) {
			if name := strings.TrimSpace(m[1]); name != "" {
				names = append(names, name)
			}
		}
	}
	return names
}
