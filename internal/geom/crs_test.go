package geom

import "testing"

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	equiv := [][]string{
		{"IGNF:LAMB93", "epsg:2154"},
	}
	reg, err := NewRegistry(DefaultProjections(), equiv, 0)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	return reg
}

func TestRegistryResolve(t *testing.T) {
	tests := []struct {
		name       string
		code       string
		wantOK     bool
		wantCanon  string
		wantLong   bool
	}{
		{"epsg lower", "epsg:3857", true, "epsg:3857", false},
		{"epsg upper", "EPSG:4326", true, "epsg:4326", true},
		{"bare numeric", "4326", true, "epsg:4326", true},
		{"crs84 alias", "CRS:84", true, "epsg:4326", true},
		{"crs84 alias lower", "crs:84", true, "epsg:4326", true},
		{"unknown", "IGNF:BOGUS", false, "", false},
	}
	reg := newTestRegistry(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			crs, err := reg.Resolve(tt.code)
			if err != nil {
				t.Fatalf("Resolve(%q): %v", tt.code, err)
			}
			if crs.IsProjLibCompatible != tt.wantOK {
				t.Fatalf("Resolve(%q).IsProjLibCompatible = %v, want %v", tt.code, crs.IsProjLibCompatible, tt.wantOK)
			}
			if tt.wantOK {
				if crs.Code != tt.wantCanon {
					t.Errorf("Resolve(%q).Code = %q, want %q", tt.code, crs.Code, tt.wantCanon)
				}
				if crs.IsLongLat != tt.wantLong {
					t.Errorf("Resolve(%q).IsLongLat = %v, want %v", tt.code, crs.IsLongLat, tt.wantLong)
				}
			}
		})
	}
}

func TestRegistryEquivalentCaseInsensitive(t *testing.T) {
	reg := newTestRegistry(t)
	a, err := reg.Resolve("IGNF:LAMB93")
	if err != nil {
		t.Fatal(err)
	}
	b, err := reg.Resolve("EPSG:2154")
	if err != nil {
		t.Fatal(err)
	}
	if !reg.Equivalent(a, b) {
		t.Errorf("expected IGNF:LAMB93 and EPSG:2154 to be equivalent")
	}
	c, err := reg.Resolve("epsg:3857")
	if err != nil {
		t.Fatal(err)
	}
	if reg.Equivalent(a, c) {
		t.Errorf("did not expect IGNF:LAMB93 and epsg:3857 to be equivalent")
	}
}

func TestBoundingBoxInvariant(t *testing.T) {
	if _, err := NewBoundingBox(10.0, 10.0, 10.0, 10.0, "epsg:4326"); err != nil {
		t.Errorf("empty bbox should be valid: %v", err)
	}
	if _, err := NewBoundingBox(0.0, 0.0, 1.0, 1.0, "epsg:4326"); err != nil {
		t.Errorf("ordered bbox should be valid: %v", err)
	}
	if _, err := NewBoundingBox(1.0, 0.0, 0.0, 1.0, "epsg:4326"); err == nil {
		t.Errorf("expected error for xmin > xmax")
	}
}

func TestReprojectBBoxIdentity(t *testing.T) {
	reg := newTestRegistry(t)
	crs, err := reg.Resolve("epsg:3857")
	if err != nil {
		t.Fatal(err)
	}
	bb := BoundingBox[float64]{Xmin: 0, Ymin: 0, Xmax: 1000, Ymax: 1000, SRS: crs.Code}
	out, err := ReprojectBBox(bb, crs, crs, 2)
	if err != nil {
		t.Fatal(err)
	}
	if out != bb {
		t.Errorf("identity reprojection changed bbox: got %+v, want %+v", out, bb)
	}
}

func TestReprojectBBoxRoundTrip(t *testing.T) {
	reg := newTestRegistry(t)
	merc, err := reg.Resolve("epsg:3857")
	if err != nil {
		t.Fatal(err)
	}
	wgs, err := reg.Resolve("epsg:4326")
	if err != nil {
		t.Fatal(err)
	}
	bb := BoundingBox[float64]{Xmin: 1000000, Ymin: 6000000, Xmax: 1001000, Ymax: 6001000, SRS: merc.Code}
	geo, err := ReprojectBBox(bb, merc, wgs, 4)
	if err != nil {
		t.Fatal(err)
	}
	back, err := ReprojectBBox(geo, wgs, merc, 4)
	if err != nil {
		t.Fatal(err)
	}
	const tol = 1.0 // meters
	if abs(back.Xmin-bb.Xmin) > tol || abs(back.Ymin-bb.Ymin) > tol {
		t.Errorf("round trip drifted: got %+v, want close to %+v", back, bb)
	}
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}
