package request

import "strings"

// Operation is one of the four dispatchable request kinds (spec §4.6).
type Operation string

const (
	OpGetCapabilities Operation = "GetCapabilities"
	OpGetMap          Operation = "GetMap"
	OpGetTile         Operation = "GetTile"
	OpGetFeatureInfo  Operation = "GetFeatureInfo"
)

// Dispatch resolves the REQUEST parameter to an Operation, matched
// case-insensitively (spec §4.6 "Dispatch"). Any other value is
// OperationNotSupported.
func Dispatch(p Params) (Operation, error) {
	v, ok := p.Get("request")
	if !ok || v == "" {
		return "", missing("REQUEST")
	}
	switch strings.ToLower(v) {
	case "getcapabilities":
		return OpGetCapabilities, nil
	case "getmap":
		return OpGetMap, nil
	case "gettile":
		return OpGetTile, nil
	case "getfeatureinfo":
		return OpGetFeatureInfo, nil
	default:
		return "", &ServiceException{Code: CodeOperationNotSupported, Locator: "REQUEST", Message: "unsupported operation " + v}
	}
}
