// Package capabilities builds WMS 1.1.1, WMS 1.3.0 and WMTS 1.0.0
// capability documents once at startup and splices the public base
// URL/service URL into them per request (spec §4.7). Grounded on the
// "build once at startup" lifecycle (spec §3.3); the document templating
// itself uses stdlib encoding/xml since no example repo carries an XML
// templating library (SPEC_FULL §2 ambient-stack justification).
package capabilities

import "strings"

const (
	hostPlaceholder     = "]HOSTNAME["
	hostPathPlaceholder = "]HOSTNAME/PATH["
)

// Fragments is a capabilities document pre-split around every occurrence
// of the two host placeholders (spec §4.7). Splicing interleaves fragments
// with the real scheme+host+path derived from the incoming request,
// avoiding a re-serialisation of the XML tree per request.
type Fragments struct {
	parts []string
	kinds []fragmentKind
}

type fragmentKind int

const (
	kindLiteral fragmentKind = iota
	kindHost
	kindHostPath
)

// Split builds Fragments from a fully-rendered capabilities document,
// cutting at every ]HOSTNAME[ and ]HOSTNAME/PATH[ token.
func Split(doc string) Fragments {
	var f Fragments
	rest := doc
	for {
		hi := strings.Index(rest, hostPlaceholder)
		hpi := strings.Index(rest, hostPathPlaceholder)

		switch {
		case hi == -1 && hpi == -1:
			f.parts = append(f.parts, rest)
			f.kinds = append(f.kinds, kindLiteral)
			return f
		case hpi != -1 && (hi == -1 || hpi < hi):
			f.parts = append(f.parts, rest[:hpi])
			f.kinds = append(f.kinds, kindLiteral)
			f.parts = append(f.parts, "")
			f.kinds = append(f.kinds, kindHostPath)
			rest = rest[hpi+len(hostPathPlaceholder):]
		default:
			f.parts = append(f.parts, rest[:hi])
			f.kinds = append(f.kinds, kindLiteral)
			f.parts = append(f.parts, "")
			f.kinds = append(f.kinds, kindHost)
			rest = rest[hi+len(hostPlaceholder):]
		}
	}
}

// Render interleaves the fragments with the request's host and
// host+path, producing the final document without touching the XML tree
// (spec §4.7).
func (f Fragments) Render(host, path string) string {
	var b strings.Builder
	hostPath := host
	if path != "" {
		hostPath = host + path
	}
	for i, part := range f.parts {
		switch f.kinds[i] {
		case kindHost:
			b.WriteString(host)
		case kindHostPath:
			b.WriteString(hostPath)
		default:
			b.WriteString(part)
		}
	}
	return b.String()
}
