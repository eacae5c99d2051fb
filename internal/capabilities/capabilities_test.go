package capabilities

import (
	"encoding/xml"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/rok4/tileserver/internal/catalog"
	"github.com/rok4/tileserver/internal/geom"
)

func TestSplitRenderRoundTrip(t *testing.T) {
	doc := `<root><a href="]HOSTNAME[" /><b href="]HOSTNAME/PATH[">x</b></root>`
	frags := Split(doc)
	got := frags.Render("maps.example.org", "/wms?")
	want := `<root><a href="maps.example.org" /><b href="maps.example.org/wms?">x</b></root>`
	if got != want {
		t.Errorf("Render =\n%s\nwant\n%s", got, want)
	}
}

func TestSplitNoPlaceholders(t *testing.T) {
	doc := "<root>no tokens here</root>"
	frags := Split(doc)
	if got := frags.Render("host", "/path"); got != doc {
		t.Errorf("Render = %q, want unchanged %q", got, doc)
	}
}

func TestFormatCoordAdaptiveDecimals(t *testing.T) {
	bb := geom.BoundingBox[float64]{Xmin: 100.25, Ymin: 0, Xmax: 200.5, Ymax: 300}
	// The largest-magnitude component, 300, has no fractional digits.
	if got := formatCoord(100.25, bb); got != "100" {
		t.Errorf("formatCoord = %q, want 100", got)
	}
}

func TestBuilderBuildProducesParsableFragmentsForEachKind(t *testing.T) {
	crsReg, err := geom.NewRegistry(geom.DefaultProjections(), nil, 16)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	cat := &catalog.Catalogue{
		Layers: map[string]*catalog.Layer{
			"orthos": {
				ID: "orthos", Title: "Orthos", WMSAuthorised: true, WMTSAuthorised: true,
				WMSCRSList:     []string{"epsg:3857"},
				GeographicBBox: geom.BoundingBox[float64]{Xmin: -5, Ymin: 41, Xmax: 11, Ymax: 51},
			},
		},
		Services: catalog.ServicesConfig{WMSTitle: "Test WMS"},
		CRS:      crsReg,
	}

	b, err := NewBuilder(cat, 0)
	if err != nil {
		t.Fatalf("NewBuilder: %v", err)
	}
	if err := b.Build(); err != nil {
		t.Fatalf("Build: %v", err)
	}

	for _, kind := range []DocKind{DocWMS111, DocWMS130, DocWMTS100} {
		frags, ok := b.Fragments(kind)
		if !ok {
			t.Fatalf("missing fragments for %s", kind)
		}
		rendered := frags.Render("maps.example.org", "/wms?")
		dec := xml.NewDecoder(strings.NewReader(rendered))
		for {
			if _, err := dec.Token(); err != nil {
				if errors.Is(err, io.EOF) {
					break
				}
				t.Fatalf("%s: not well-formed XML: %v", kind, err)
			}
		}
	}
}
