package request

import (
	"encoding/xml"
	"strings"
)

// ogcXMLRequest is a loosely-typed envelope covering the three POST bodies
// spec §4.6 names (GetCapabilities, GetMap, GetTile), optionally wrapped in
// SOAP. Attribute handling intentionally mirrors the KVP shape: every
// recognised attribute lands in the same Params map so validate.go doesn't
// need a second code path.
type ogcXMLRequest struct {
	XMLName xml.Name
	Attrs   []xml.Attr `xml:",any,attr"`
}

// soapEnvelope unwraps a SOAP-wrapped body to reach the OGC request
// element inside (spec §4.6 "optionally SOAP-wrapped").
type soapEnvelope struct {
	XMLName xml.Name
	Body    struct {
		Inner ogcXMLRequest `xml:",any"`
	} `xml:"Body"`
}

// ParseXMLPost extracts a KVP-equivalent Params map from an XML POST body
// (spec §4.6). Root tag name (case-insensitive, namespace-ignored)
// supplies REQUEST; xsi:schemaLocation/version attributes on the root
// supply the rest.
func ParseXMLPost(body []byte) (Params, error) {
	var req ogcXMLRequest
	if err := xml.Unmarshal(body, &req); err != nil {
		return nil, &ServiceException{Code: CodeMissingOrInvalidParam, Locator: "", Message: "malformed XML request body"}
	}

	root := req
	name := strings.ToLower(req.XMLName.Local)
	if name == "envelope" {
		var env soapEnvelope
		if err := xml.Unmarshal(body, &env); err != nil {
			return nil, &ServiceException{Code: CodeMissingOrInvalidParam, Locator: "", Message: "malformed SOAP envelope"}
		}
		root = env.Body.Inner
		name = strings.ToLower(root.XMLName.Local)
	}

	out := make(Params)
	switch name {
	case "getcapabilities":
		out["request"] = "getcapabilities"
	case "getmap":
		out["request"] = "getmap"
	case "gettile":
		out["request"] = "gettile"
	case "getfeatureinfo":
		out["request"] = "getfeatureinfo"
	default:
		return nil, &ServiceException{Code: CodeOperationNotSupported, Locator: "request", Message: "unrecognised XML request root " + req.XMLName.Local}
	}
	out["service"] = "wms"

	for _, a := range root.Attrs {
		k := strings.ToLower(a.Name.Local)
		if k == "service" || k == "version" || k == "exception" {
			out[k] = strings.ToLower(a.Value)
		} else {
			out[k] = a.Value
		}
	}
	return out, nil
}
