package request

import (
	"testing"

	"github.com/rok4/tileserver/internal/geom"
)

func TestParseKVPLowercasesKeysAndSwitchValues(t *testing.T) {
	p, err := ParseKVP("SERVICE=WMS&REQUEST=GetMap&LAYERS=orthos&BBOX=1,2,3,4")
	if err != nil {
		t.Fatalf("ParseKVP: %v", err)
	}
	if v, _ := p.Get("service"); v != "wms" {
		t.Errorf("service = %q, want wms", v)
	}
	if v, _ := p.Get("request"); v != "getmap" {
		t.Errorf("request = %q, want getmap (switch-like canonicalisation)", v)
	}
	if v, _ := p.Get("LAYERS"); v != "orthos" {
		t.Errorf("LAYERS lookup case-insensitive = %q, want orthos", v)
	}
}

func TestNegotiateWMSVersion(t *testing.T) {
	cases := map[string]string{
		"":      "1.3.0",
		"1.3.0": "1.3.0",
		"1.1.1": "1.1.1",
		"2.0.0": "1.3.0", // higher than supported -> highest supported
		"1.0.0": "1.1.1", // lower than supported -> lowest supported
	}
	for in, want := range cases {
		if got := NegotiateWMSVersion(in); got != want {
			t.Errorf("NegotiateWMSVersion(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestDispatchUnknownOperation(t *testing.T) {
	p := Params{"request": "deletealllayers"}
	if _, err := Dispatch(p); err == nil {
		t.Fatal("expected OperationNotSupported error")
	} else if se, ok := err.(*ServiceException); !ok || se.Code != CodeOperationNotSupported {
		t.Fatalf("err = %v, want OperationNotSupported ServiceException", err)
	}
}

func TestDispatchMissingRequest(t *testing.T) {
	if _, err := Dispatch(Params{}); err == nil {
		t.Fatal("expected MissingParameterValue error")
	}
}

func TestParseBBoxAxisSwapWMS130Geographic(t *testing.T) {
	crs := geom.CRS{Code: "epsg:4326", IsLongLat: true}
	bb, err := parseBBox("41,-5,51,11", crs, "1.3.0")
	if err != nil {
		t.Fatalf("parseBBox: %v", err)
	}
	if bb.Xmin != -5 || bb.Ymin != 41 || bb.Xmax != 11 || bb.Ymax != 51 {
		t.Errorf("bbox = %+v, want lon[-5,11] lat[41,51]", bb)
	}
}

func TestParseBBoxNoSwapFor111(t *testing.T) {
	crs := geom.CRS{Code: "epsg:4326", IsLongLat: true}
	bb, err := parseBBox("-5,41,11,51", crs, "1.1.1")
	if err != nil {
		t.Fatalf("parseBBox: %v", err)
	}
	if bb.Xmin != -5 || bb.Ymin != 41 {
		t.Errorf("bbox = %+v, want no axis swap under 1.1.1", bb)
	}
}

func TestParseXMLPostGetMapRoot(t *testing.T) {
	body := []byte(`<GetMap service="WMS" version="1.3.0"></GetMap>`)
	p, err := ParseXMLPost(body)
	if err != nil {
		t.Fatalf("ParseXMLPost: %v", err)
	}
	if v, _ := p.Get("request"); v != "getmap" {
		t.Errorf("request = %q, want getmap", v)
	}
	if v, _ := p.Get("version"); v != "1.3.0" {
		t.Errorf("version = %q, want 1.3.0", v)
	}
}
