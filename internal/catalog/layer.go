package catalog

import "github.com/rok4/tileserver/internal/geom"

// GetFeatureInfoConfig controls the GetFeatureInfo code path for a Layer
// (spec §9 Open Question: WMS path fully implemented, WMTS path delegates
// to an upstream info endpoint when configured, else 501).
type GetFeatureInfoConfig struct {
	Enabled      bool
	UpstreamURL  string // WMTS-only delegate target; empty means 501
}

// Layer is a published map layer (spec §3.1).
type Layer struct {
	ID             string
	Title          string
	Abstract       string
	Keywords       []string
	Pyramid        *Pyramid
	Styles         map[string]*Style
	DefaultStyleID string
	MinRes         float64
	MaxRes         float64
	WMSCRSList     []string
	GeographicBBox geom.BoundingBox[float64]
	NativeBBox     geom.BoundingBox[float64]
	MetadataURLs   []string
	WMSAuthorised  bool
	WMTSAuthorised bool
	GFIConfig      GetFeatureInfoConfig
}

// DefaultStyle returns the layer's default style (spec §3.1:
// "default_style = styles[0]").
func (l *Layer) DefaultStyle() *Style {
	return l.Styles[l.DefaultStyleID]
}

// StyleByID looks a style up by id, falling back to the default style when id
// is empty (spec §4.6 STYLES validation rule).
func (l *Layer) StyleByID(id string) (*Style, bool) {
	if id == "" {
		return l.DefaultStyle(), l.DefaultStyle() != nil
	}
	s, ok := l.Styles[id]
	return s, ok
}

// SupportsCRS reports whether code is directly in the layer's WMS CRS list.
// Equivalence-table matches are checked by the caller via geom.Registry.
func (l *Layer) SupportsCRS(code string) bool {
	for _, c := range l.WMSCRSList {
		if c == code {
			return true
		}
	}
	return false
}

// HasOnDemandLevel reports whether any level of the layer's pyramid is
// on-demand; such a layer must have WMS disabled (spec §3.1 invariant).
func (l *Layer) HasOnDemandLevel() bool {
	if l.Pyramid == nil {
		return false
	}
	for _, lv := range l.Pyramid.Levels {
		if lv.IsOnDemand() {
			return true
		}
	}
	return false
}
