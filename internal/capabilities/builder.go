package capabilities

import (
	"encoding/xml"
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"github.com/rok4/tileserver/internal/catalog"
	"github.com/rok4/tileserver/internal/geom"
)

// DocKind names one of the three capabilities documents built at startup
// (spec §4.7).
type DocKind string

const (
	DocWMS111  DocKind = "wms111"
	DocWMS130  DocKind = "wms130"
	DocWMTS100 DocKind = "wmts100"
)

// Builder assembles and caches the three capabilities documents, and the
// per-(layer,crs) bounding boxes they embed (spec §4.7).
type Builder struct {
	cat *catalog.Catalogue

	bboxCache *lru.Cache[string, geom.BoundingBox[float64]]
	group     singleflight.Group

	once sync.Once
	docs map[DocKind]Fragments
	err  error
}

// NewBuilder constructs a Builder over a fully validated catalogue.
// bboxCacheSize bounds the per-(layer,crs) bbox cache; 0 selects a default.
func NewBuilder(cat *catalog.Catalogue, bboxCacheSize int) (*Builder, error) {
	if bboxCacheSize <= 0 {
		bboxCacheSize = 512
	}
	cache, err := lru.New[string, geom.BoundingBox[float64]](bboxCacheSize)
	if err != nil {
		return nil, fmt.Errorf("capabilities: building bbox cache: %w", err)
	}
	return &Builder{cat: cat, bboxCache: cache, docs: make(map[DocKind]Fragments)}, nil
}

// Build renders all three documents and splits them into fragments. It
// runs exactly once for the life of the Builder, guarded by a
// singleflight.Group so concurrent callers racing the first request
// before startup has finished block on the same build rather than each
// re-serialising the catalogue (SPEC_FULL §1: golang.org/x/sync).
func (b *Builder) Build() error {
	b.once.Do(func() {
		_, err, _ := b.group.Do("build", func() (interface{}, error) {
			for _, kind := range []DocKind{DocWMS111, DocWMS130, DocWMTS100} {
				doc, err := b.render(kind)
				if err != nil {
					return nil, err
				}
				b.docs[kind] = Split(doc)
			}
			return nil, nil
		})
		b.err = err
	})
	return b.err
}

// Fragments returns the pre-split document of the given kind. Build must
// have succeeded first.
func (b *Builder) Fragments(kind DocKind) (Fragments, bool) {
	f, ok := b.docs[kind]
	return f, ok
}

func (b *Builder) render(kind DocKind) (string, error) {
	switch kind {
	case DocWMS111:
		return b.renderWMS("1.1.1")
	case DocWMS130:
		return b.renderWMS("1.3.0")
	case DocWMTS100:
		return b.renderWMTS()
	default:
		return "", fmt.Errorf("capabilities: unknown document kind %q", kind)
	}
}

// --- WMS ---

type wmsCapabilities struct {
	XMLName xml.Name    `xml:"WMT_MS_Capabilities"`
	Version string      `xml:"version,attr"`
	Service wmsService  `xml:"Service"`
	Layers  []wmsLayer  `xml:"Capability>Layer"`
}

type wmsService struct {
	Title           string `xml:"Title"`
	Abstract        string `xml:"Abstract"`
	OnlineResource  wmsOnlineResource `xml:"OnlineResource"`
}

type wmsOnlineResource struct {
	Href string `xml:"xlink:href,attr"`
}

type wmsLayer struct {
	Name    string      `xml:"Name"`
	Title   string      `xml:"Title"`
	SRS     []string    `xml:"SRS"`
	BBoxes  []wmsBBox   `xml:"BoundingBox"`
}

type wmsBBox struct {
	SRS  string `xml:"SRS,attr"`
	Minx string `xml:"minx,attr"`
	Miny string `xml:"miny,attr"`
	Maxx string `xml:"maxx,attr"`
	Maxy string `xml:"maxy,attr"`
}

func (b *Builder) renderWMS(version string) (string, error) {
	doc := wmsCapabilities{
		Version: version,
		Service: wmsService{
			Title:    b.cat.Services.WMSTitle,
			Abstract: b.cat.Services.WMSAbstract,
			OnlineResource: wmsOnlineResource{
				Href: hostPathPlaceholder,
			},
		},
	}
	for _, layer := range b.cat.Layers {
		if !layer.WMSAuthorised {
			continue
		}
		wl := wmsLayer{Name: layer.ID, Title: layer.Title, SRS: layer.WMSCRSList}
		for _, crsCode := range layer.WMSCRSList {
			crs, err := b.cat.CRS.Resolve(crsCode)
			if err != nil {
				continue
			}
			bb, err := b.BBoxFor(layer, crs)
			if err != nil {
				continue
			}
			wl.BBoxes = append(wl.BBoxes, wmsBBox{
				SRS:  crs.Code,
				Minx: formatCoord(bb.Xmin, bb),
				Miny: formatCoord(bb.Ymin, bb),
				Maxx: formatCoord(bb.Xmax, bb),
				Maxy: formatCoord(bb.Ymax, bb),
			})
		}
		doc.Layers = append(doc.Layers, wl)
	}
	out, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", err
	}
	return xml.Header + string(out), nil
}

// --- WMTS ---

type wmtsCapabilities struct {
	XMLName xml.Name   `xml:"Capabilities"`
	Version string     `xml:"version,attr"`
	Layers  []wmtsLayer `xml:"Contents>Layer"`
}

type wmtsLayer struct {
	Identifier    string   `xml:"ows:Identifier"`
	Title         string   `xml:"ows:Title"`
	Formats       []string `xml:"Format"`
	TileMatrixSet string   `xml:"TileMatrixSetLink>TileMatrixSet"`
	ResourceURL   wmtsResourceURL `xml:"ResourceURL"`
}

type wmtsResourceURL struct {
	Template string `xml:"template,attr,omitempty"`
}

func (b *Builder) renderWMTS() (string, error) {
	doc := wmtsCapabilities{Version: "1.0.0"}
	for _, layer := range b.cat.Layers {
		if !layer.WMTSAuthorised {
			continue
		}
		wl := wmtsLayer{
			Identifier:  layer.ID,
			Title:       layer.Title,
			ResourceURL: wmtsResourceURL{Template: hostPathPlaceholder + "/wmts/" + layer.ID + "/{TileMatrix}/{TileRow}/{TileCol}"},
		}
		if layer.Pyramid != nil && layer.Pyramid.TMS != nil {
			wl.TileMatrixSet = layer.Pyramid.TMS.ID
			wl.Formats = []string{string(layer.Pyramid.Format)}
		}
		doc.Layers = append(doc.Layers, wl)
	}
	out, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", err
	}
	return xml.Header + string(out), nil
}

// BBoxFor computes the bounding box of layer in crs: reproject the
// layer's geographic bbox into crs (cropping to the CRS's definition area
// first when necessary), swap axes for EPSG geographic CRSes, and cache
// the result by (layer, crs) (spec §4.7).
func (b *Builder) BBoxFor(layer *catalog.Layer, crs geom.CRS) (geom.BoundingBox[float64], error) {
	key := layer.ID + "|" + crs.Code + "|" + crs.RequestCode
	if bb, ok := b.bboxCache.Get(key); ok {
		return bb, nil
	}

	geoBBox := layer.GeographicBBox
	if !crs.DefinitionArea.Empty() {
		geoBBox = geom.BoundingBox[float64]{
			Xmin: math.Max(geoBBox.Xmin, crs.DefinitionArea.Xmin),
			Ymin: math.Max(geoBBox.Ymin, crs.DefinitionArea.Ymin),
			Xmax: math.Min(geoBBox.Xmax, crs.DefinitionArea.Xmax),
			Ymax: math.Min(geoBBox.Ymax, crs.DefinitionArea.Ymax),
			SRS:  geoBBox.SRS,
		}
	}

	wgs84, err := b.cat.CRS.Resolve("epsg:4326")
	if err != nil {
		return geom.BoundingBox[float64]{}, err
	}
	bb, err := geom.ReprojectBBox(geoBBox, wgs84, crs, 2)
	if err != nil {
		return geom.BoundingBox[float64]{}, err
	}
	if crs.IsLongLat && !strings.HasPrefix(strings.ToUpper(crs.RequestCode), "CRS:") {
		bb = geom.BoundingBox[float64]{Xmin: bb.Ymin, Ymin: bb.Xmin, Xmax: bb.Ymax, Ymax: bb.Xmax, SRS: bb.SRS}
	}
	b.bboxCache.Add(key, bb)
	return bb, nil
}

// formatCoord renders a bbox coordinate with an adaptive number of decimal
// places: min(9, significant fractional digits of the largest-magnitude
// component), bounding textual length (spec §4.7).
func formatCoord(v float64, bb geom.BoundingBox[float64]) string {
	largest := math.Max(math.Max(math.Abs(bb.Xmin), math.Abs(bb.Xmax)), math.Max(math.Abs(bb.Ymin), math.Abs(bb.Ymax)))
	decimals := significantFractionalDigits(largest)
	if decimals > 9 {
		decimals = 9
	}
	return strconv.FormatFloat(v, 'f', decimals, 64)
}

// significantFractionalDigits counts how many digits after the decimal
// point are needed to represent v without trailing zeros, capped at 9.
func significantFractionalDigits(v float64) int {
	s := strconv.FormatFloat(v, 'f', 9, 64)
	s = strings.TrimRight(s, "0")
	dot := strings.IndexByte(s, '.')
	if dot == -1 {
		return 0
	}
	return len(s) - dot - 1
}
