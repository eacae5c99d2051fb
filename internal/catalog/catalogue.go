package catalog

import "github.com/rok4/tileserver/internal/geom"

// Catalogue bundles every catalogue object built once at server
// initialisation and shared read-only across all worker tasks for the
// lifetime of the process (spec §3.3). Nothing in this struct, or
// anything it transitively points to, is ever mutated after the catalogue
// loader (confload.Load) returns.
type Catalogue struct {
	TileMatrixSets map[string]*TileMatrixSet
	Pyramids       map[string]*Pyramid
	Layers         map[string]*Layer
	Services       ServicesConfig
	CRS            *geom.Registry
}

// Layer looks a layer up by id.
func (c *Catalogue) Layer(id string) (*Layer, bool) {
	l, ok := c.Layers[id]
	return l, ok
}

// Validate checks these cross-object invariants from spec §3.2: every level
// references a TileMatrix belonging to its pyramid's TMS, min_res<=max_res,
// and on-demand pyramids disable WMS on their layer. It does not check that
// min_res and max_res lie within the TMS's available resolutions.
func (c *Catalogue) Validate() error {
	for _, p := range c.Pyramids {
		for tmID, lvl := range p.Levels {
			if lvl.TM.ID != tmID {
				return &ConsistencyError{Msg: "level keyed by " + tmID + " carries mismatched TileMatrix id " + lvl.TM.ID}
			}
			if p.TMS == nil {
				return &ConsistencyError{Msg: "pyramid " + p.ID + " has no TileMatrixSet"}
			}
			if _, ok := p.TMS.Matrix(tmID); !ok {
				return &ConsistencyError{Msg: "pyramid " + p.ID + " level " + tmID + " not found in TMS " + p.TMS.ID}
			}
		}
	}
	for _, l := range c.Layers {
		if l.MinRes > l.MaxRes {
			return &ConsistencyError{Msg: "layer " + l.ID + " has min_res > max_res"}
		}
		if l.HasOnDemandLevel() && l.WMSAuthorised {
			return &ConsistencyError{Msg: "layer " + l.ID + " has an on-demand level but WMS is enabled"}
		}
	}
	return nil
}

// ConsistencyError reports a catalogue built in violation of spec §3.2.
type ConsistencyError struct{ Msg string }

func (e *ConsistencyError) Error() string { return "catalogue inconsistency: " + e.Msg }
