package request

import (
	"net/http"
	"testing"

	"github.com/rok4/tileserver/internal/catalog"
)

func TestNodataResponseAsHTTPStatusReturns404(t *testing.T) {
	level := &catalog.Level{NodataTile: []byte("nodata-bytes")}
	body, status, err := nodataResponse(level, true)
	if err != nil {
		t.Fatalf("nodataResponse: %v", err)
	}
	if status != http.StatusNotFound {
		t.Errorf("status = %d, want 404", status)
	}
	if body != nil {
		t.Errorf("body = %v, want nil on 404", body)
	}
}

func TestNodataResponseDefaultReturnsNodataBytes(t *testing.T) {
	level := &catalog.Level{NodataTile: []byte("nodata-bytes")}
	body, status, err := nodataResponse(level, false)
	if err != nil {
		t.Fatalf("nodataResponse: %v", err)
	}
	if status != http.StatusOK {
		t.Errorf("status = %d, want 200", status)
	}
	if string(body) != "nodata-bytes" {
		t.Errorf("body = %q, want nodata-bytes", body)
	}
}
