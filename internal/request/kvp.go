package request

import (
	"net/url"
	"strings"
)

// switchLikeParams are canonicalised to lowercase regardless of case (spec
// §4.6: "canonicalise the value for the fixed list of switch-like
// parameters to lowercase").
var switchLikeParams = map[string]bool{
	"service": true, "request": true, "version": true, "exception": true,
}

// Params is the parsed, lower-cased-key request parameter map shared by
// both the KVP and XML-POST parsing paths (spec §4.6).
type Params map[string]string

// Get returns the value for key (already lower-cased) and whether it was
// present.
func (p Params) Get(key string) (string, bool) {
	v, ok := p[strings.ToLower(key)]
	return v, ok
}

// ParseKVP parses an HTTP GET query string into Params: split on `&`, then
// on `=`, percent-decode each pair, lowercase the key (spec §4.6).
func ParseKVP(rawQuery string) (Params, error) {
	out := make(Params)
	for _, pair := range strings.Split(rawQuery, "&") {
		if pair == "" {
			continue
		}
		key, value, _ := strings.Cut(pair, "=")
		k, err := url.QueryUnescape(key)
		if err != nil {
			return nil, &ServiceException{Code: CodeInvalidParameterValue, Locator: key, Message: "malformed percent-encoding"}
		}
		v, err := url.QueryUnescape(value)
		if err != nil {
			return nil, &ServiceException{Code: CodeInvalidParameterValue, Locator: k, Message: "malformed percent-encoding"}
		}
		k = strings.ToLower(k)
		if switchLikeParams[k] {
			v = strings.ToLower(v)
		}
		out[k] = v
	}
	return out, nil
}
