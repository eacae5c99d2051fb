// Package request parses WMS/WMTS HTTP requests, validates them against
// the catalogue, and dispatches to the image-assembly pipeline (spec §4.6,
// §7). Grounded on the per-field validation style of
// cmd/geotiff2pmtiles/main.go (explicit flag checks with named error
// messages) and the fmt.Errorf("...: %w", ...) wrapping idiom used
// throughout internal/cog/reader.go.
package request

import "fmt"

// ServiceExceptionCode is the fixed OGC error-code taxonomy (spec §7).
type ServiceExceptionCode string

const (
	CodeMissingParameterValue  ServiceExceptionCode = "MissingParameterValue"
	CodeInvalidParameterValue  ServiceExceptionCode = "InvalidParameterValue"
	CodeLayerNotDefined        ServiceExceptionCode = "LayerNotDefined"
	CodeStyleNotDefined        ServiceExceptionCode = "StyleNotDefined"
	CodeInvalidCRS             ServiceExceptionCode = "InvalidCRS"
	CodeInvalidFormat          ServiceExceptionCode = "InvalidFormat"
	CodeOperationNotSupported  ServiceExceptionCode = "OperationNotSupported"
	CodeMissingOrInvalidParam  ServiceExceptionCode = "MissingOrInvalidParameter"
)

// ServiceException is a request-local validation failure that the caller
// renders as an OGC ServiceException document (spec §7: "Local →
// ServiceException"). HTTP status is chosen by the caller per protocol
// (200 for WMS, 400 for WMTS).
type ServiceException struct {
	Code    ServiceExceptionCode
	Locator string
	Message string
}

func (e *ServiceException) Error() string {
	return fmt.Sprintf("%s(%s): %s", e.Code, e.Locator, e.Message)
}

func missing(param string) *ServiceException {
	return &ServiceException{Code: CodeMissingParameterValue, Locator: param, Message: "required parameter missing"}
}

func invalid(param, msg string) *ServiceException {
	return &ServiceException{Code: CodeInvalidParameterValue, Locator: param, Message: msg}
}

// ReprojectionFailed marks a Grid::reproject miss, which degrades to an
// empty image rather than an error response (spec §7).
type ReprojectionFailed struct {
	Cause error
}

func (e *ReprojectionFailed) Error() string { return "reprojection failed: " + e.Cause.Error() }
func (e *ReprojectionFailed) Unwrap() error { return e.Cause }

// InternalError marks an assertion failure or catalogue inconsistency
// (spec §7: "Fatal for the request → 500 if no bytes sent").
type InternalError struct {
	Msg string
}

func (e *InternalError) Error() string { return "internal error: " + e.Msg }
