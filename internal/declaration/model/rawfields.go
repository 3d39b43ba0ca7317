package model

import "strings"

// RawFields is the flat header-level extract built once per declaration from
// whatever source was available (60.1 JSON fragment, summary row or bare XML).
// It is never persisted and is treated as immutable after construction.
type RawFields struct {
	GUID          string   `json:"guid,omitempty"`
	MRN           string   `json:"MRN,omitempty"`
	CCDRegistered string   `json:"ccd_registered,omitempty"`
	CCDStatus     string   `json:"ccd_status,omitempty"`
	CCDType       string   `json:"ccd_type,omitempty"`
	TRNAll        []string `json:"trn_all,omitempty"`
	CCD0701       string   `json:"ccd_07_01,omitempty"`
	CCD0702       string   `json:"ccd_07_02,omitempty"`
	CCD0703       string   `json:"ccd_07_03,omitempty"`
	CCD0101       string   `json:"ccd_01_01,omitempty"`
	CCD0102       string   `json:"ccd_01_02,omitempty"`
	CCD0103       string   `json:"ccd_01_03,omitempty"`
}

// DeriveType fills CCDType from the ccd_01_* parts when no direct type value
// was present. Empty parts are dropped, the rest are space-joined.
func (r *RawFields) DeriveType() {
	if r.CCDType != "" {
		return
	}
	parts := make([]string, 0, 3)
	for _, p := range []string{r.CCD0101, r.CCD0102, r.CCD0103} {
		if t := strings.TrimSpace(p); t != "" {
			parts = append(parts, t)
		}
	}
	r.CCDType = strings.Join(parts, " ")
}

// IsEmpty reports whether no field was populated at all.
func (r *RawFields) IsEmpty() bool {
	return r.GUID == "" && r.MRN == "" && r.CCDRegistered == "" &&
		r.CCDStatus == "" && r.CCDType == "" && len(r.TRNAll) == 0 &&
		r.CCD0701 == "" && r.CCD0702 == "" && r.CCD0703 == "" &&
		r.CCD0101 == "" && r.CCD0102 == "" && r.CCD0103 == ""
}
