package server

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rok4/tileserver/internal/catalog"
	"github.com/rok4/tileserver/internal/geom"
	"github.com/rok4/tileserver/internal/tilesource"
)

func testCatalogue(t *testing.T) *catalog.Catalogue {
	t.Helper()
	crsReg, err := geom.NewRegistry(geom.DefaultProjections(), nil, 16)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	return &catalog.Catalogue{
		Layers:   map[string]*catalog.Layer{},
		Pyramids: map[string]*catalog.Pyramid{},
		Services: catalog.ServicesConfig{WMSTitle: "Test"},
		CRS:      crsReg,
	}
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	store, err := tilesource.NewDiskStore(8)
	if err != nil {
		t.Fatalf("NewDiskStore: %v", err)
	}
	cfg := &Config{WorkerCount: 2, BBoxCacheSize: 16}
	srv, err := New(cfg, testCatalogue(t), store)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return srv
}

func TestHealthEndpoint(t *testing.T) {
	srv := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	srv.echo.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestWMSMissingRequestReturnsServiceException(t *testing.T) {
	srv := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/wms?SERVICE=WMS", nil)
	rec := httptest.NewRecorder()
	srv.echo.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (ServiceException is reported in-band)", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "MissingParameterValue") {
		t.Errorf("body = %s, want MissingParameterValue", rec.Body.String())
	}
}

func TestWMSCapabilitiesRequest(t *testing.T) {
	srv := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/wms?SERVICE=WMS&REQUEST=GetCapabilities", nil)
	rec := httptest.NewRecorder()
	srv.echo.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "WMT_MS_Capabilities") {
		t.Errorf("body missing WMT_MS_Capabilities root: %s", rec.Body.String())
	}
}
