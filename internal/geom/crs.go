package geom

import (
	"fmt"
	"strconv"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Projection converts between a CRS's native coordinates and WGS84
// longitude/latitude. It is the CRS-level analogue of the teacher's
// coord.Projection interface, generalized to an arbitrary registry instead
// of a fixed three-case switch.
type Projection interface {
	EPSG() int
	ToWGS84(x, y float64) (lon, lat float64)
	FromWGS84(lon, lat float64) (x, y float64)
}

// CRS is an opaque handle identified by an authority code (spec §3.1).
type CRS struct {
	RequestCode          string // original spelling, as supplied by the caller
	Code                 string // canonical lowercase "epsg:nnnn" form; the lowercased request code when unresolved
	DefinitionArea       BoundingBox[float64]
	IsLongLat            bool
	IsProjLibCompatible  bool
	projection           Projection
}

// Equal compares CRS handles by canonical code.
func (c CRS) Equal(o CRS) bool { return c.Code == o.Code }

// Transform returns the underlying coordinate transform, or nil if this
// CRS could not be resolved against the projection catalogue.
func (c CRS) Transform() Projection { return c.projection }

// aliasTable mirrors the hard-coded fallback table documented in
// original_source/rok4/CRS.cpp (SPEC_FULL §4): a handful of well-known
// non-EPSG codes that resolve to an EPSG equivalent.
var aliasTable = map[string]string{
	"crs:84": "epsg:4326",
	"crs:83": "epsg:4269",
}

// geographicEPSG is the small set of EPSG codes the registry treats as
// "is_longlat" (degree-unit, lon/lat ordered on the wire). Real deployments
// would derive this from the projection catalogue's unit metadata; we keep
// the teacher's habit of a short explicit table (coord.ForEPSG's switch)
// rather than depending on an external geodesy database.
var geographicEPSG = map[int]bool{
	4326: true,
	4269: true,
	4258: true,
}

// Registry resolves request CRS codes into CRS handles, backed by a
// projection catalogue and an LRU cache of previously resolved codes
// (SPEC_FULL §1: github.com/hashicorp/golang-lru/v2, as used by
// NERVsystems-osmmcp for its own bounded lookup caches).
type Registry struct {
	projections map[int]Projection
	equivalence [][]string // rows of the equivalence table, spec §4.1
	cache       *lru.Cache[string, CRS]
}

// NewRegistry builds a Registry over the given projection set. cacheSize
// bounds the number of distinct request codes kept resolved; 0 selects a
// sensible default.
func NewRegistry(projections []Projection, equivalence [][]string, cacheSize int) (*Registry, error) {
	if cacheSize <= 0 {
		cacheSize = 256
	}
	cache, err := lru.New[string, CRS](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("creating CRS cache: %w", err)
	}
	byEPSG := make(map[int]Projection, len(projections))
	for _, p := range projections {
		byEPSG[p.EPSG()] = p
	}
	return &Registry{projections: byEPSG, equivalence: equivalence, cache: cache}, nil
}

// Resolve looks up a user-supplied code against the catalogue, trying the
// code as-is, its lowercase form, and its uppercase form, then the alias
// table on a full miss (spec §4.1). The returned CRS's IsProjLibCompatible
// is false when no projection backend exists for the canonical code; such a
// handle can be carried in catalogue data but must never enter a
// reprojection path.
func (r *Registry) Resolve(requestCode string) (CRS, error) {
	if requestCode == "" {
		return CRS{}, fmt.Errorf("empty CRS code")
	}
	if cached, ok := r.cache.Get(requestCode); ok {
		return cached, nil
	}

	canonical, epsg, ok := r.canonicalize(requestCode)
	crs := CRS{
		RequestCode: requestCode,
		Code:        canonical,
	}
	if ok {
		proj := r.projections[epsg]
		crs.projection = proj
		crs.IsProjLibCompatible = proj != nil
		crs.IsLongLat = geographicEPSG[epsg]
		if proj != nil {
			crs.DefinitionArea = definitionArea(epsg)
		}
	} else {
		crs.Code = strings.ToLower(requestCode)
	}
	r.cache.Add(requestCode, crs)
	return crs, nil
}

// canonicalize tries as-is/lower/upper against a direct "epsg:NNNN" parse,
// then the alias table. It returns the canonical "epsg:nnnn" string and the
// numeric EPSG code; ok is false if nothing resolved.
func (r *Registry) canonicalize(code string) (canonical string, epsg int, ok bool) {
	candidates := []string{code, strings.ToLower(code), strings.ToUpper(code)}
	for _, c := range candidates {
		if n, ok := parseEPSG(c); ok {
			return fmt.Sprintf("epsg:%d", n), n, true
		}
	}
	if alias, found := aliasTable[strings.ToLower(code)]; found {
		if n, ok := parseEPSG(alias); ok {
			return alias, n, true
		}
	}
	return "", 0, false
}

// parseEPSG accepts "epsg:nnnn", "EPSG:nnnn" or a bare numeric code (the
// original implementation's "implicitly EPSG" rule, SPEC_FULL §4).
func parseEPSG(code string) (int, bool) {
	lower := strings.ToLower(code)
	if strings.HasPrefix(lower, "epsg:") {
		n, err := strconv.Atoi(strings.TrimPrefix(lower, "epsg:"))
		if err != nil {
			return 0, false
		}
		return n, true
	}
	if n, err := strconv.Atoi(code); err == nil {
		return n, true
	}
	return 0, false
}

// Equivalent reports whether two canonical codes appear on the same row of
// the equivalence table, case-insensitively (spec §4.1, testable property
// §8).
func (r *Registry) Equivalent(a, b CRS) bool {
	if a.Equal(b) {
		return true
	}
	al, bl := strings.ToLower(a.Code), strings.ToLower(b.Code)
	for _, row := range r.equivalence {
		hasA, hasB := false, false
		for _, code := range row {
			lc := strings.ToLower(code)
			if lc == al {
				hasA = true
			}
			if lc == bl {
				hasB = true
			}
		}
		if hasA && hasB {
			return true
		}
	}
	return false
}

// definitionArea returns the geographic definition area for a known EPSG
// code; unknown codes get the whole-world box, matching the conservative
// default a catalogue loader would apply absent narrower metadata.
func definitionArea(epsg int) BoundingBox[float64] {
	switch epsg {
	case 4326, 3857:
		return BoundingBox[float64]{Xmin: -180, Ymin: -85.06, Xmax: 180, Ymax: 85.06, SRS: "epsg:4326"}
	case 2056:
		// Swiss LV95 validity area, approximate national bounds in WGS84.
		return BoundingBox[float64]{Xmin: 5.9, Ymin: 45.8, Xmax: 10.5, Ymax: 47.9, SRS: "epsg:4326"}
	default:
		return BoundingBox[float64]{Xmin: -180, Ymin: -90, Xmax: 180, Ymax: 90, SRS: "epsg:4326"}
	}
}
