// Package panel derives the display state of the popup from the shared
// result record and exposes it over HTTP, together with the enable toggle
// and a change feed.
package panel

import (
	"ecosense-relay/internal/record"
)

// ViewState enumerates what the panel shows. Exactly one applies at a time.
type ViewState string

const (
	StateWelcome       ViewState = "welcome"
	StateLoading       ViewState = "loading"
	StateSuccess       ViewState = "success"
	StateError         ViewState = "error"
	StateNoMainProduct ViewState = "no-main-product"
	StateNotEcommerce  ViewState = "not-ecommerce"
	StateDisabled      ViewState = "disabled"
)

// Default banner copy per non-success state.
const (
	bannerWelcome       = "Browse to a product page on a supported store to see its sustainability analysis."
	bannerLoading       = "Analyzing product sustainability..."
	bannerDisabled      = "Eco-Sense is turned off. Turn it back on to analyze products."
	bannerNotEcommerce  = "This site is not a supported e-commerce domain."
	bannerNoMainProduct = "No specific product found on this page."
	bannerUnknownError  = "An unknown error occurred during analysis."
)

// View is the fully derived panel model. Product fields are populated only
// in the success state.
type View struct {
	State               ViewState              `json:"state"`
	Banner              string                 `json:"banner,omitempty"`
	ExtensionEnabled    bool                   `json:"extensionEnabled"`
	ProductTitle        string                 `json:"productTitle,omitempty"`
	BrandName           string                 `json:"brandName,omitempty"`
	Sustainability      *record.Sustainability `json:"sustainabilityData,omitempty"`
	OverallLabel        string                 `json:"overallLabel,omitempty"`
	JustifyingLinks     []record.Link          `json:"justifyingLinks,omitempty"`
	AlternativeProducts []record.Alternative   `json:"alternativeProducts,omitempty"`
}

// Derive maps a record snapshot to the single view the panel renders. The
// checks run in precedence order and the first match wins; the same record
// always derives the same view.
func Derive(rec record.Record) View {
	view := View{ExtensionEnabled: rec.Enabled()}

	switch {
	case !rec.Enabled() || rec.AnalysisStatus == record.StatusDisabled:
		view.State = StateDisabled
		view.Banner = bannerDisabled

	case rec.AnalysisStatus == record.StatusNotEcommerce:
		view.State = StateNotEcommerce
		view.Banner = messageOr(rec.ErrorMessage, bannerNotEcommerce)

	case rec.AnalysisStatus == record.StatusNoMainProduct:
		view.State = StateNoMainProduct
		view.Banner = messageOr(rec.ErrorMessage, bannerNoMainProduct)

	case rec.AnalysisStatus == record.StatusSuccess &&
		rec.HasMainProduct != nil && *rec.HasMainProduct &&
		rec.Sustainability != nil:
		view.State = StateSuccess
		view.ProductTitle = stringOr(rec.ProductTitle, "")
		view.BrandName = stringOr(rec.BrandName, "")
		view.Sustainability = rec.Sustainability
		view.OverallLabel = ScoreLabel(rec.Sustainability.OverallScore)
		view.JustifyingLinks = rec.JustifyingLinks
		view.AlternativeProducts = rec.AlternativeProducts

	case rec.AnalysisStatus == record.StatusError:
		view.State = StateError
		view.Banner = messageOr(rec.ErrorMessage, bannerUnknownError)

	case rec.AnalysisStatus == record.StatusLoading:
		view.State = StateLoading
		view.Banner = bannerLoading

	default:
		// Covers an empty record and a malformed success (missing product
		// flag or scoring data).
		view.State = StateWelcome
		view.Banner = bannerWelcome
	}

	return view
}

// ScoreLabel buckets a 0-10 overall score into the qualitative label shown
// next to it.
func ScoreLabel(score float64) string {
	switch {
	case score >= 9:
		return "Excellent"
	case score >= 7:
		return "Good"
	case score >= 5:
		return "Moderate"
	case score >= 3:
		return "Poor"
	default:
		return "Very Poor"
	}
}

func messageOr(msg *string, def string) string {
	if msg == nil || *msg == "" {
		return def
	}
	return *msg
}

func stringOr(s *string, def string) string {
	if s == nil {
		return def
	}
	return *s
}
