package geom

// Number is the set of coordinate scalar types a BoundingBox can carry.
type Number interface {
	~float64 | ~int64
}

// BoundingBox is an axis-aligned rectangle in a given CRS.
//
// Invariant (spec §3.2): either empty (Xmin==Xmax && Ymin==Ymax) or
// Xmin<Xmax && Ymin<Ymax. Construct via NewBoundingBox to enforce it.
type BoundingBox[T Number] struct {
	Xmin, Ymin, Xmax, Ymax T
	SRS                    string
}

// NewBoundingBox validates the ordering invariant, returning an error for
// anything other than the degenerate-empty or strictly-ordered shapes.
func NewBoundingBox[T Number](xmin, ymin, xmax, ymax T, srs string) (BoundingBox[T], error) {
	bb := BoundingBox[T]{Xmin: xmin, Ymin: ymin, Xmax: xmax, Ymax: ymax, SRS: srs}
	if !bb.valid() {
		return BoundingBox[T]{}, &InvalidBBoxError{Xmin: float64(xmin), Ymin: float64(ymin), Xmax: float64(xmax), Ymax: float64(ymax)}
	}
	return bb, nil
}

func (b BoundingBox[T]) valid() bool {
	if b.Xmin == b.Xmax && b.Ymin == b.Ymax {
		return true
	}
	return b.Xmin < b.Xmax && b.Ymin < b.Ymax
}

// Empty reports whether the box is the degenerate zero-area case.
func (b BoundingBox[T]) Empty() bool {
	return b.Xmin == b.Xmax && b.Ymin == b.Ymax
}

// Width and Height are the box extents along each axis.
func (b BoundingBox[T]) Width() T  { return b.Xmax - b.Xmin }
func (b BoundingBox[T]) Height() T { return b.Ymax - b.Ymin }

// SwapAxes returns a copy with X/Y swapped, used for the WMS 1.3.0
// lat/lon axis-order rule on EPSG geographic CRSes (spec §4.1).
func (b BoundingBox[T]) SwapAxes() BoundingBox[T] {
	return BoundingBox[T]{Xmin: b.Ymin, Ymin: b.Xmin, Xmax: b.Ymax, Ymax: b.Xmax, SRS: b.SRS}
}

// Intersect returns the overlap of two boxes in the same CRS, and false if
// they do not overlap (or only touch at a degenerate edge).
func (b BoundingBox[T]) Intersect(o BoundingBox[T]) (BoundingBox[T], bool) {
	xmin := maxT(b.Xmin, o.Xmin)
	ymin := maxT(b.Ymin, o.Ymin)
	xmax := minT(b.Xmax, o.Xmax)
	ymax := minT(b.Ymax, o.Ymax)
	if xmin >= xmax || ymin >= ymax {
		return BoundingBox[T]{}, false
	}
	return BoundingBox[T]{Xmin: xmin, Ymin: ymin, Xmax: xmax, Ymax: ymax, SRS: b.SRS}, true
}

// Union returns the smallest box covering both inputs.
func (b BoundingBox[T]) Union(o BoundingBox[T]) BoundingBox[T] {
	if b.Empty() {
		return o
	}
	if o.Empty() {
		return b
	}
	return BoundingBox[T]{
		Xmin: minT(b.Xmin, o.Xmin),
		Ymin: minT(b.Ymin, o.Ymin),
		Xmax: maxT(b.Xmax, o.Xmax),
		Ymax: maxT(b.Ymax, o.Ymax),
		SRS:  b.SRS,
	}
}

func minT[T Number](a, b T) T {
	if a < b {
		return a
	}
	return b
}

func maxT[T Number](a, b T) T {
	if a > b {
		return a
	}
	return b
}

// InvalidBBoxError reports a BBOX that fails the ordering invariant.
type InvalidBBoxError struct {
	Xmin, Ymin, Xmax, Ymax float64
}

func (e *InvalidBBoxError) Error() string {
	return "invalid bounding box: xmin/ymin must be strictly less than xmax/ymax (or all equal)"
}
