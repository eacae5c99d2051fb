package catalog

import (
	"fmt"
	"sort"
	"sync"
)

// Pyramid is the set of Levels populating a TileMatrixSet for a Layer
// (spec §3.1, GLOSSARY).
type Pyramid struct {
	ID          string
	Levels      map[string]*Level // keyed by TileMatrix id
	TMS         *TileMatrixSet
	Format      Format
	Channels    int
	Transparent bool
	Style       *Style
	OnDemand    bool
	NodataValue []float64

	// sortedLevels caches Levels sorted by ascending resolution (finest
	// first); built once, on first use, by ensureSorted.
	sortedLevels []*Level
	sortOnce     sync.Once
}

// ErrNoSuitableLevel is returned by BestLevel when no level qualifies
// (spec §7, on-demand pyramids only).
type ErrNoSuitableLevel struct {
	Resolution float64
}

func (e *ErrNoSuitableLevel) Error() string {
	return fmt.Sprintf("no suitable level for resolution %g", e.Resolution)
}

func (p *Pyramid) ensureSorted() {
	p.sortOnce.Do(func() {
		levels := make([]*Level, 0, len(p.Levels))
		for _, l := range p.Levels {
			levels = append(levels, l)
		}
		sort.Slice(levels, func(i, j int) bool {
			return levels[i].TM.Resolution < levels[j].TM.Resolution
		})
		p.sortedLevels = levels
	})
}

// LowestLevel returns the finest-resolution level (minimum Resolution).
func (p *Pyramid) LowestLevel() *Level {
	p.ensureSorted()
	if len(p.sortedLevels) == 0 {
		return nil
	}
	return p.sortedLevels[0]
}

// HighestLevel returns the coarsest-resolution level (maximum Resolution).
func (p *Pyramid) HighestLevel() *Level {
	p.ensureSorted()
	if len(p.sortedLevels) == 0 {
		return nil
	}
	return p.sortedLevels[len(p.sortedLevels)-1]
}

// BestLevel selects the level best matching a target resolution, per spec
// §4.2:
//
//   - compute d_i = r / level_i.resolution for every level
//   - if any d_i is in [0.8, 1.8], pick the one closest to 1.0 in that window
//   - otherwise pick the coarsest level with d < 0.8, falling back to the
//     finest level if none
//   - on-demand pyramids only ever consider the [0.8, 1.8] window; a miss
//     is ErrNoSuitableLevel
//
// Ties within the window are broken in favor of the finest (lowest
// resolution value) level examined first, per original_source/rok4/Pyramid.cpp
// (SPEC_FULL §4) — levels are iterated sorted by ascending resolution.
func (p *Pyramid) BestLevel(r float64) (*Level, error) {
	p.ensureSorted()
	if len(p.sortedLevels) == 0 {
		return nil, &ErrNoSuitableLevel{Resolution: r}
	}

	var (
		best      *Level
		bestDelta = -1.0
	)
	for _, l := range p.sortedLevels {
		d := r / l.TM.Resolution
		if d >= 0.8 && d <= 1.8 {
			delta := d - 1.0
			if delta < 0 {
				delta = -delta
			}
			if best == nil || delta < bestDelta {
				best = l
				bestDelta = delta
			}
		}
	}
	if best != nil {
		return best, nil
	}
	if p.OnDemand {
		return nil, &ErrNoSuitableLevel{Resolution: r}
	}

	// Coarsest level with d < 0.8 (over-sampling case); levels are sorted
	// ascending by resolution so the last one with d<0.8 is the coarsest.
	var coarsestUnder *Level
	for _, l := range p.sortedLevels {
		d := r / l.TM.Resolution
		if d < 0.8 {
			coarsestUnder = l
		}
	}
	if coarsestUnder != nil {
		return coarsestUnder, nil
	}
	return p.LowestLevel(), nil
}
