package server

import (
	"context"
	"encoding/xml"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/rok4/tileserver/internal/capabilities"
	"github.com/rok4/tileserver/internal/catalog"
	"github.com/rok4/tileserver/internal/codec"
	"github.com/rok4/tileserver/internal/request"
	"github.com/rok4/tileserver/internal/tilesource"
)

// Server ties the catalogue, capabilities builder, disk store and worker
// pool into an echo.Echo front door (spec §4.6, §5). Grounded on
// backend/cmd/server/main.go's echo wiring (middleware.Logger/Recover,
// explicit route registration), generalized from one GraphQL+REST
// endpoint set to the OGC WMS/WMTS dispatch table.
type Server struct {
	echo   *echo.Echo
	cat    *catalog.Catalogue
	caps   *capabilities.Builder
	store  *tilesource.DiskStore
	remote *tilesource.RemoteSource
	cog    *tilesource.CogSource
	pool   *Pool
	cfg    *Config
}

// New builds a Server. cat must already be validated (catalog.Catalogue.Validate).
func New(cfg *Config, cat *catalog.Catalogue, store *tilesource.DiskStore) (*Server, error) {
	caps, err := capabilities.NewBuilder(cat, cfg.BBoxCacheSize)
	if err != nil {
		return nil, err
	}
	if err := caps.Build(); err != nil {
		return nil, err
	}

	cogSrc, err := tilesource.NewCogSource(cfg.MaxOpenCogFiles)
	if err != nil {
		return nil, err
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())

	s := &Server{
		echo:   e,
		cat:    cat,
		caps:   caps,
		store:  store,
		remote: tilesource.NewRemoteSource(cfg.RemoteRPS, cfg.RemoteBurst),
		cog:    cogSrc,
		pool:   NewPool(cfg.WorkerCount),
		cfg:    cfg,
	}

	e.GET("/wms", s.handleWMS)
	e.POST("/wms", s.handleWMS)
	e.GET("/wmts", s.handleWMTS)
	e.GET("/wmts/:layer/:style/:tilematrixset/:tilematrix/:tilerow/:tilecol", s.handleWMTSRestTile)
	e.GET("/health", s.handleHealth)

	return s, nil
}

// Start blocks serving HTTP on cfg.ListenAddr.
func (s *Server) Start() error {
	return s.echo.Start(s.cfg.ListenAddr)
}

// Shutdown drains the worker pool and stops accepting new connections.
func (s *Server) Shutdown() error {
	s.pool.Shutdown()
	s.store.Close()
	s.cog.Close()
	return nil
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
}

// handleWMS dispatches GetCapabilities/GetMap/GetFeatureInfo for both KVP
// (GET) and XML-POST (POST) transport (spec §4.6).
func (s *Server) handleWMS(c echo.Context) error {
	start := time.Now()
	params, err := s.parseWMSParams(c)
	if err != nil {
		recordRequest("wms", "parse_error", time.Since(start))
		return writeServiceException(c, err, "1.3.0")
	}

	op, err := request.Dispatch(params)
	if err != nil {
		recordRequest("wms", "dispatch_error", time.Since(start))
		return writeServiceException(c, err, "1.3.0")
	}

	version, _ := params.Get("version")
	negotiated := request.NegotiateWMSVersion(version)

	var handlerErr error
	switch op {
	case request.OpGetCapabilities:
		handlerErr = s.serveCapabilitiesDoc(c, wmsDocKindFor(negotiated))
	case request.OpGetMap:
		handlerErr = s.serveGetMap(c, params)
	case request.OpGetFeatureInfo:
		handlerErr = s.serveGetFeatureInfo(c, params, negotiated)
	default:
		handlerErr = writeServiceException(c, &request.ServiceException{
			Code: request.CodeOperationNotSupported, Message: "unsupported WMS operation",
		}, negotiated)
	}
	recordRequest("wms."+string(op), statusOf(handlerErr), time.Since(start))
	return handlerErr
}

func wmsDocKindFor(version string) capabilities.DocKind {
	if version == "1.1.1" {
		return capabilities.DocWMS111
	}
	return capabilities.DocWMS130
}

// handleWMTS dispatches GetCapabilities/GetTile/GetFeatureInfo for WMTS
// KVP transport.
func (s *Server) handleWMTS(c echo.Context) error {
	start := time.Now()
	params, err := request.ParseKVP(c.Request().URL.RawQuery)
	if err != nil {
		recordRequest("wmts", "parse_error", time.Since(start))
		return writeServiceException(c, err, "1.0.0")
	}

	op, err := request.Dispatch(params)
	if err != nil {
		recordRequest("wmts", "dispatch_error", time.Since(start))
		return writeServiceException(c, err, "1.0.0")
	}

	var handlerErr error
	switch op {
	case request.OpGetCapabilities:
		handlerErr = s.serveCapabilitiesDoc(c, capabilities.DocWMTS100)
	case request.OpGetTile:
		handlerErr = s.serveGetTile(c, params)
	case request.OpGetFeatureInfo:
		handlerErr = s.serveWMTSGetFeatureInfo(c, params)
	default:
		handlerErr = writeServiceException(c, &request.ServiceException{
			Code: request.CodeOperationNotSupported, Message: "unsupported WMTS operation",
		}, "1.0.0")
	}
	recordRequest("wmts."+string(op), statusOf(handlerErr), time.Since(start))
	return handlerErr
}

// handleWMTSRestTile serves the WMTS RESTful resource-URL form registered
// in the capabilities document's ResourceURL template.
func (s *Server) handleWMTSRestTile(c echo.Context) error {
	start := time.Now()
	params := request.Params{
		"layer":         c.Param("layer"),
		"style":         c.Param("style"),
		"tilematrixset": c.Param("tilematrixset"),
		"tilematrix":    c.Param("tilematrix"),
		"tilerow":       c.Param("tilerow"),
		"tilecol":       c.Param("tilecol"),
		"request":       "gettile",
	}
	if fmtParam := c.QueryParam("format"); fmtParam != "" {
		params["format"] = fmtParam
	}
	err := s.serveGetTile(c, params)
	recordRequest("wmts.GetTile", statusOf(err), time.Since(start))
	return err
}

func (s *Server) parseWMSParams(c echo.Context) (request.Params, error) {
	if c.Request().Method == http.MethodPost {
		body, err := io.ReadAll(c.Request().Body)
		if err != nil {
			return nil, &request.ServiceException{Code: request.CodeInvalidParameterValue, Message: "unreadable request body"}
		}
		return request.ParseXMLPost(body)
	}
	return request.ParseKVP(c.Request().URL.RawQuery)
}

func (s *Server) serveGetMap(c echo.Context, params request.Params) error {
	req, err := request.ValidateGetMap(params, s.cat)
	if err != nil {
		return writeServiceException(c, err, versionOrDefault(req))
	}

	var img []byte
	var mime string
	poolErr := s.pool.Submit(c.Request().Context(), func(ctx context.Context) error {
		WorkerPoolInFlight.Inc()
		defer WorkerPoolInFlight.Dec()

		node, err := request.AssembleGetMap(ctx, req, s.store, s.cat, s.remote, s.cog)
		if err != nil {
			return err
		}
		decoded, err := request.Materialize(node)
		if err != nil {
			return err
		}
		enc, err := codec.EncoderFor(catalog.Format(req.Format), 85)
		if err != nil {
			return err
		}
		if err := enc.Reset(decoded); err != nil {
			return err
		}
		img, err = drainEncoder(enc)
		mime = enc.Mime()
		return err
	})
	if poolErr != nil {
		return writeServiceException(c, poolErr, req.Version)
	}
	return c.Blob(http.StatusOK, mime, img)
}

func (s *Server) serveGetTile(c echo.Context, params request.Params) error {
	req, err := request.ValidateGetTile(params, s.cat)
	if err != nil {
		return writeServiceException(c, err, "1.0.0")
	}

	var img []byte
	var mime string
	status := http.StatusOK
	poolErr := s.pool.Submit(c.Request().Context(), func(ctx context.Context) error {
		WorkerPoolInFlight.Inc()
		defer WorkerPoolInFlight.Dec()

		raw, httpStatus, err := request.FetchWMTSTile(ctx, req, s.cat, s.store, s.remote, s.cog)
		if err != nil {
			return err
		}
		img, status = raw, httpStatus
		mime = string(req.Layer.Pyramid.Format)
		return nil
	})
	if poolErr != nil {
		return writeServiceException(c, poolErr, "1.0.0")
	}
	return c.Blob(status, mime, img)
}

// serveGetFeatureInfo implements the WMS GetFeatureInfo path in full (spec
// §9): validate the embedded GetMap parameter set plus QUERY_LAYERS/I,J,
// assemble each query layer the same way GetMap would, and sample the one
// requested pixel instead of encoding a whole image.
func (s *Server) serveGetFeatureInfo(c echo.Context, params request.Params, version string) error {
	req, err := request.ValidateGetFeatureInfo(params, s.cat)
	if err != nil {
		return writeServiceException(c, err, version)
	}

	var body, mime string
	poolErr := s.pool.Submit(c.Request().Context(), func(ctx context.Context) error {
		WorkerPoolInFlight.Inc()
		defer WorkerPoolInFlight.Dec()

		results, err := request.ExecuteGetFeatureInfo(ctx, req, s.store, s.cat, s.remote, s.cog)
		if err != nil {
			return err
		}
		body, mime = request.RenderFeatureInfo(results, req.InfoFormat)
		return nil
	})
	if poolErr != nil {
		return writeServiceException(c, poolErr, version)
	}
	return c.Blob(http.StatusOK, mime, []byte(body))
}

// serveWMTSGetFeatureInfo implements the WMTS GetFeatureInfo path (spec
// §9): validate the embedded GetTile parameter set plus INFOFORMAT/I,J,
// then delegate to the layer's configured upstream info endpoint or
// respond 501 when none is configured.
func (s *Server) serveWMTSGetFeatureInfo(c echo.Context, params request.Params) error {
	req, err := request.ValidateWMTSGetFeatureInfo(params, s.cat)
	if err != nil {
		return writeServiceException(c, err, "1.0.0")
	}

	var body []byte
	var mime string
	status := http.StatusOK
	poolErr := s.pool.Submit(c.Request().Context(), func(ctx context.Context) error {
		WorkerPoolInFlight.Inc()
		defer WorkerPoolInFlight.Dec()

		b, m, httpStatus, err := request.FetchWMTSFeatureInfo(ctx, req, s.remote)
		if err != nil {
			return err
		}
		body, mime, status = b, m, httpStatus
		return nil
	})
	if poolErr != nil {
		return writeServiceException(c, poolErr, "1.0.0")
	}
	return c.Blob(status, mime, body)
}

func (s *Server) serveCapabilitiesDoc(c echo.Context, kind capabilities.DocKind) error {
	frags, ok := s.caps.Fragments(kind)
	if !ok {
		return writeServiceException(c, &request.InternalError{Msg: "capabilities document not built for " + string(kind)}, "1.3.0")
	}
	host := c.Request().Host
	doc := frags.Render(host, c.Request().URL.Path)
	return c.Blob(http.StatusOK, "text/xml", []byte(doc))
}

// drainEncoder pulls an Encoder to completion via its MinReadBuffer
// contract (spec §4.4: a short read with Eof()==false means the buffer
// was too small, not that production stalled).
func drainEncoder(enc codec.Encoder) ([]byte, error) {
	out := make([]byte, 0, 64*1024)
	buf := make([]byte, 64*1024)
	if min := enc.MinReadBuffer(); min > len(buf) {
		buf = make([]byte, min)
	}
	for !enc.Eof() {
		n, err := enc.Read(buf)
		if err != nil {
			return nil, err
		}
		out = append(out, buf[:n]...)
	}
	return out, nil
}

func versionOrDefault(req *request.GetMapRequest) string {
	if req == nil {
		return "1.3.0"
	}
	return req.Version
}

func statusOf(err error) string {
	if err == nil {
		return "ok"
	}
	return "error"
}

// writeServiceException renders err as an OGC ServiceException/
// ExceptionReport document (spec §7). A ServiceException is sent with
// status 200 for WMS and 400 for WMTS (whose only version is 1.0.0).
// Non-ServiceException errors are reported as InternalError with a 500
// status.
func writeServiceException(c echo.Context, err error, version string) error {
	var se *request.ServiceException
	if errors.As(err, &se) {
		status := http.StatusOK
		if version == "1.0.0" {
			status = http.StatusBadRequest
		}
		return c.XML(status, exceptionReport{
			Version:   version,
			Exception: ogcException{Code: string(se.Code), Text: se.Message},
		})
	}
	return c.XML(http.StatusInternalServerError, exceptionReport{
		Version:   version,
		Exception: ogcException{Code: "InternalError", Text: err.Error()},
	})
}

type exceptionReport struct {
	XMLName   xml.Name     `xml:"ServiceExceptionReport"`
	Version   string       `xml:"version,attr"`
	Exception ogcException `xml:"ServiceException"`
}

type ogcException struct {
	Code string `xml:"code,attr"`
	Text string `xml:",chardata"`
}
