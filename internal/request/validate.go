package request

import (
	"strconv"
	"strings"

	"github.com/rok4/tileserver/internal/catalog"
	"github.com/rok4/tileserver/internal/geom"
)

// Supported protocol versions, newest first (spec §4.6 "VERSION: WMS
// version negotiation per OGC rules").
var wmsVersions = []string{"1.3.0", "1.1.1"}

const wmtsVersion = "1.0.0"

// NegotiateWMSVersion implements the OGC rule: requesting higher than
// supported responds with the highest supported version; requesting lower
// responds with the lowest supported version; an exact match is used
// as-is; no VERSION picks the highest.
func NegotiateWMSVersion(requested string) string {
	if requested == "" {
		return wmsVersions[0]
	}
	for _, v := range wmsVersions {
		if v == requested {
			return v
		}
	}
	if requested > wmsVersions[0] {
		return wmsVersions[0]
	}
	return wmsVersions[len(wmsVersions)-1]
}

// GetMapRequest is the validated, catalogue-resolved form of a GetMap
// request (spec §4.6, §6.1).
type GetMapRequest struct {
	Version     string
	Layers      []*catalog.Layer
	Styles      []*catalog.Style
	CRS         geom.CRS
	BBox        geom.BoundingBox[float64]
	Width       int
	Height      int
	Format      string
	Transparent bool
}

// ValidateGetMap applies spec §4.6's validation order for GetMap,
// returning the first failing check as a *ServiceException.
func ValidateGetMap(p Params, cat *catalog.Catalogue) (*GetMapRequest, error) {
	version, _ := p.Get("version")
	req := &GetMapRequest{Version: NegotiateWMSVersion(version)}

	layersParam, ok := p.Get("layers")
	if !ok || layersParam == "" {
		return nil, missing("LAYERS")
	}
	layerIDs := strings.Split(layersParam, ",")
	if cat.Services.LayerLimit > 0 && len(layerIDs) > cat.Services.LayerLimit {
		return nil, invalid("LAYERS", "exceeds layer_limit")
	}
	for _, id := range layerIDs {
		l, ok := cat.Layer(id)
		if !ok {
			return nil, &ServiceException{Code: CodeLayerNotDefined, Locator: "LAYERS", Message: "unknown layer " + id}
		}
		req.Layers = append(req.Layers, l)
	}

	stylesParam, _ := p.Get("styles")
	var styleIDs []string
	if stylesParam != "" {
		styleIDs = strings.Split(stylesParam, ",")
		if len(styleIDs) != len(req.Layers) {
			return nil, invalid("STYLES", "cardinality must match LAYERS")
		}
	} else {
		styleIDs = make([]string, len(req.Layers))
	}
	for i, l := range req.Layers {
		st, ok := l.StyleByID(styleIDs[i])
		if !ok {
			return nil, &ServiceException{Code: CodeStyleNotDefined, Locator: "STYLES", Message: "unknown style " + styleIDs[i]}
		}
		req.Styles = append(req.Styles, st)
	}

	crsParam, ok := p.Get("crs")
	if !ok {
		crsParam, ok = p.Get("srs")
	}
	if !ok || crsParam == "" {
		return nil, missing("CRS")
	}
	crs, err := cat.CRS.Resolve(crsParam)
	if err != nil {
		return nil, &ServiceException{Code: CodeInvalidCRS, Locator: "CRS", Message: "unresolvable CRS " + crsParam}
	}
	if !crsAuthorised(crs, req.Layers[0], cat) {
		return nil, &ServiceException{Code: CodeInvalidCRS, Locator: "CRS", Message: "CRS not permitted for requested layers"}
	}
	req.CRS = crs

	bboxParam, ok := p.Get("bbox")
	if !ok {
		return nil, missing("BBOX")
	}
	bb, err := parseBBox(bboxParam, crs, req.Version)
	if err != nil {
		return nil, err
	}
	req.BBox = bb

	widthParam, _ := p.Get("width")
	heightParam, _ := p.Get("height")
	w, err := parsePositiveInt(widthParam, "WIDTH", cat.Services.MaxWidth)
	if err != nil {
		return nil, err
	}
	h, err := parsePositiveInt(heightParam, "HEIGHT", cat.Services.MaxHeight)
	if err != nil {
		return nil, err
	}
	req.Width, req.Height = w, h

	formatParam, ok := p.Get("format")
	if !ok || formatParam == "" {
		return nil, missing("FORMAT")
	}
	if !cat.Services.SupportsFormat(formatParam) {
		return nil, &ServiceException{Code: CodeInvalidFormat, Locator: "FORMAT", Message: "unsupported format " + formatParam}
	}
	req.Format = formatParam

	if tp, ok := p.Get("transparent"); ok {
		req.Transparent = strings.EqualFold(tp, "true") || tp == "1"
	}

	return req, nil
}

func crsAuthorised(crs geom.CRS, l *catalog.Layer, cat *catalog.Catalogue) bool {
	if l.SupportsCRS(crs.Code) {
		return true
	}
	for _, c := range cat.Services.GlobalCRSList {
		if c == crs.Code {
			return true
		}
	}
	for _, row := range cat.Services.CRSEquivalence {
		for _, c := range row {
			if !strings.EqualFold(c, crs.Code) {
				continue
			}
			for _, other := range row {
				if l.SupportsCRS(other) {
					return true
				}
			}
		}
	}
	return false
}

// parseBBox parses 4 finite doubles and applies the WMS 1.3.0 EPSG
// geographic axis-swap rule (spec §4.6).
func parseBBox(raw string, crs geom.CRS, version string) (geom.BoundingBox[float64], error) {
	parts := strings.Split(raw, ",")
	if len(parts) != 4 {
		return geom.BoundingBox[float64]{}, invalid("BBOX", "expected 4 comma-separated values")
	}
	var v [4]float64
	for i, s := range parts {
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return geom.BoundingBox[float64]{}, invalid("BBOX", "not a finite number: "+s)
		}
		v[i] = f
	}
	xmin, ymin, xmax, ymax := v[0], v[1], v[2], v[3]
	if version == "1.3.0" && crs.IsLongLat && !strings.HasPrefix(strings.ToUpper(crs.RequestCode), "CRS:") {
		// BBOX arrives (lat,lon) axis order for EPSG geographic CRSes in
		// 1.3.0; swap to the engine's internal (x=lon, y=lat) convention.
		xmin, ymin, xmax, ymax = ymin, xmin, ymax, xmax
	}
	bb, err := geom.NewBoundingBox(xmin, ymin, xmax, ymax, crs.Code)
	if err != nil {
		return geom.BoundingBox[float64]{}, invalid("BBOX", err.Error())
	}
	return bb, nil
}

func parsePositiveInt(raw, name string, max int) (int, error) {
	if raw == "" {
		return 0, missing(name)
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, invalid(name, "must be a positive integer")
	}
	if max > 0 && n > max {
		return 0, invalid(name, "exceeds configured maximum")
	}
	return n, nil
}

// GetTileRequest is the validated form of a WMTS GetTile request.
type GetTileRequest struct {
	Layer             *catalog.Layer
	Style             *catalog.Style
	Format            string
	TileMatrixSet     *catalog.TileMatrixSet
	TileMatrix        string
	Col, Row          int
	NodataAsHTTPStatus bool
}

// ValidateGetTile applies spec §4.6's TILECOL/TILEROW/TILEMATRIX/
// TILEMATRIXSET checks.
func ValidateGetTile(p Params, cat *catalog.Catalogue) (*GetTileRequest, error) {
	if v, ok := p.Get("version"); ok && v != "" && v != wmtsVersion {
		return nil, invalid("VERSION", "WMTS requires an exact version match")
	}

	layerID, ok := p.Get("layer")
	if !ok || layerID == "" {
		return nil, missing("LAYER")
	}
	layer, ok := cat.Layer(layerID)
	if !ok {
		return nil, &ServiceException{Code: CodeLayerNotDefined, Locator: "LAYER", Message: "unknown layer " + layerID}
	}
	if !layer.WMTSAuthorised {
		return nil, &ServiceException{Code: CodeOperationNotSupported, Locator: "LAYER", Message: "layer not published over WMTS"}
	}

	styleID, _ := p.Get("style")
	style, ok := layer.StyleByID(styleID)
	if !ok {
		return nil, &ServiceException{Code: CodeStyleNotDefined, Locator: "STYLE", Message: "unknown style " + styleID}
	}

	format, ok := p.Get("format")
	if !ok || format == "" {
		return nil, missing("FORMAT")
	}

	tmsID, ok := p.Get("tilematrixset")
	if !ok || tmsID == "" {
		return nil, missing("TILEMATRIXSET")
	}
	if layer.Pyramid == nil || layer.Pyramid.TMS == nil || layer.Pyramid.TMS.ID != tmsID {
		return nil, &ServiceException{Code: CodeInvalidParameterValue, Locator: "TILEMATRIXSET", Message: "not listed for this layer"}
	}

	tmID, ok := p.Get("tilematrix")
	if !ok || tmID == "" {
		return nil, missing("TILEMATRIX")
	}
	tm, ok := layer.Pyramid.TMS.Matrix(tmID)
	if !ok {
		return nil, invalid("TILEMATRIX", "unknown id "+tmID)
	}

	colStr, okCol := p.Get("tilecol")
	rowStr, okRow := p.Get("tilerow")
	if !okCol || !okRow {
		return nil, missing("TILECOL/TILEROW")
	}
	col, err1 := strconv.Atoi(colStr)
	row, err2 := strconv.Atoi(rowStr)
	if err1 != nil || err2 != nil {
		return nil, invalid("TILECOL/TILEROW", "must be integers")
	}
	_ = tm

	nodataStatus := false
	if v, ok := p.Get("nodataashttpstatus"); ok {
		nodataStatus = v == "1" || strings.EqualFold(v, "true")
	}

	return &GetTileRequest{
		Layer: layer, Style: style, Format: format,
		TileMatrixSet: layer.Pyramid.TMS, TileMatrix: tmID,
		Col: col, Row: row, NodataAsHTTPStatus: nodataStatus,
	}, nil
}
