package record

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Analysis statuses as persisted under the analysisStatus key.
const (
	StatusLoading       = "loading"
	StatusSuccess       = "success"
	StatusError         = "error"
	StatusNoMainProduct = "no-main-product"
	StatusDisabled      = "disabled"
	StatusNotEcommerce  = "not-ecommerce-domain"
)

// Top-level keys of the shared result record.
const (
	KeyAnalysisStatus      = "analysisStatus"
	KeyErrorMessage        = "errorMessage"
	KeyHasMainProduct      = "hasMainProduct"
	KeyProductTitle        = "productTitle"
	KeyBrandName           = "brandName"
	KeySustainabilityData  = "sustainabilityData"
	KeyJustifyingLinks     = "justifyingLinks"
	KeyAlternativeProducts = "alternativeProducts"
	KeyExtensionEnabled    = "extensionEnabled"
)

// AllKeys lists every known top-level key, sorted.
func AllKeys() []string {
	keys := []string{
		KeyAnalysisStatus,
		KeyErrorMessage,
		KeyHasMainProduct,
		KeyProductTitle,
		KeyBrandName,
		KeySustainabilityData,
		KeyJustifyingLinks,
		KeyAlternativeProducts,
		KeyExtensionEnabled,
	}
	sort.Strings(keys)
	return keys
}

var knownKeys = func() map[string]struct{} {
	set := make(map[string]struct{})
	for _, k := range AllKeys() {
		set[k] = struct{}{}
	}
	return set
}()

// IsKnownKey reports whether key is part of the record schema.
func IsKnownKey(key string) bool {
	_, ok := knownKeys[key]
	return ok
}

// Sustainability holds the structured scoring result. Scores use the 0-10 scale.
type Sustainability struct {
	OverallScore       float64            `json:"overallScore"`
	OverallExplanation string             `json:"overallExplanation"`
	PillarScores       map[string]float64 `json:"pillarScores"`
	PillarExplanations map[string]string  `json:"pillarExplanations"`
}

// Link is a supporting source reference.
type Link struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// Alternative is a suggested substitute product.
type Alternative struct {
	Name   string  `json:"name"`
	Score  float64 `json:"score"`
	Reason string  `json:"reason"`
}

// Record is the typed view of the shared result record. Pointer fields
// distinguish "unset" from zero values.
type Record struct {
	AnalysisStatus      string          `json:"analysisStatus,omitempty"`
	ErrorMessage        *string         `json:"errorMessage,omitempty"`
	HasMainProduct      *bool           `json:"hasMainProduct,omitempty"`
	ProductTitle        *string         `json:"productTitle,omitempty"`
	BrandName           *string         `json:"brandName,omitempty"`
	Sustainability      *Sustainability `json:"sustainabilityData,omitempty"`
	JustifyingLinks     []Link          `json:"justifyingLinks,omitempty"`
	AlternativeProducts []Alternative   `json:"alternativeProducts,omitempty"`
	ExtensionEnabled    *bool           `json:"extensionEnabled,omitempty"`
}

// Enabled reports the effective extensionEnabled flag. It defaults to true
// when the key was never written.
func (r Record) Enabled() bool {
	if r.ExtensionEnabled == nil {
		return true
	}
	return *r.ExtensionEnabled
}

// Patch is a partial write of the shared record at top-level-key granularity.
// A nil value clears the key; keys absent from the patch are untouched.
type Patch map[string]any

// Keys returns the patch's key set, sorted.
func (p Patch) Keys() []string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Validate rejects patches touching keys outside the record schema.
func (p Patch) Validate() error {
	for k := range p {
		if !IsKnownKey(k) {
			return fmt.Errorf("unknown record key %q", k)
		}
	}
	return nil
}

// FromMap decodes a key/value snapshot (as returned by a store Get) into a
// typed Record. Unknown keys are ignored; malformed values are an error.
func FromMap(values map[string]any) (Record, error) {
	filtered := make(map[string]any, len(values))
	for k, v := range values {
		if IsKnownKey(k) && v != nil {
			filtered[k] = v
		}
	}
	raw, err := json.Marshal(filtered)
	if err != nil {
		return Record{}, fmt.Errorf("encode record snapshot: %w", err)
	}
	var rec Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return Record{}, fmt.Errorf("decode record snapshot: %w", err)
	}
	return rec, nil
}

// LoadingReset returns the full per-cycle reset patch: status moves to
// loading and every product/score field is cleared.
func LoadingReset() Patch {
	return Patch{
		KeyAnalysisStatus:      StatusLoading,
		KeySustainabilityData:  nil,
		KeyErrorMessage:        nil,
		KeyHasMainProduct:      nil,
		KeyProductTitle:        nil,
		KeyBrandName:           nil,
		KeyJustifyingLinks:     nil,
		KeyAlternativeProducts: nil,
	}
}

// AlignPillars forces pillarExplanations onto pillarScores' key set: missing
// explanations become empty strings, extras are dropped. Both maps present
// must always share a key set once stored.
func AlignPillars(s *Sustainability) {
	if s == nil || s.PillarScores == nil {
		return
	}
	aligned := make(map[string]string, len(s.PillarScores))
	for pillar := range s.PillarScores {
		aligned[pillar] = s.PillarExplanations[pillar]
	}
	s.PillarExplanations = aligned
}
