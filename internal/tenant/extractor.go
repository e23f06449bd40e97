package tenant

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/nikhilbhutani/lmscore/internal/auth"
)

const (
	PathParam  = "tenantId"
	QueryParam = "tenantId"
)

// Source names where an extracted tenant id came from.
type Source string

const (
	SourceNone      Source = "none"
	SourcePath      Source = "path"
	SourceQuery     Source = "query"
	SourcePrincipal Source = "principal"
	// SourcePayload marks an id claimed inside a realtime event payload.
	SourcePayload Source = "payload"
)

// Ref is the outcome of tenant extraction. Present is false when no source
// yielded a value, which is meaningful (e.g. platform-wide listings).
type Ref struct {
	ID      int64
	Present bool
	Source  Source
}

func Absent() Ref { return Ref{Source: SourceNone} }

func RefOf(id int64, src Source) Ref { return Ref{ID: id, Present: true, Source: src} }

// ExtractTenantID derives the effective tenant for a request. Sources are
// consulted strictly in order: URL path, query string, principal. The first
// present source decides; a present but malformed value fails with
// InvalidTenantIDError instead of falling through to a weaker source.
func ExtractTenantID(r *http.Request, p *auth.Principal) (Ref, error) {
	if raw, ok := pathValue(r); ok {
		return parseRef(raw, SourcePath)
	}
	if values, ok := r.URL.Query()[QueryParam]; ok {
		if len(values) != 1 {
			return Ref{}, &InvalidTenantIDError{Source: SourceQuery, Value: strings.Join(values, ",")}
		}
		return parseRef(values[0], SourceQuery)
	}
	if p != nil && p.TenantID != nil {
		if *p.TenantID <= 0 {
			return Ref{}, &InvalidTenantIDError{Source: SourcePrincipal, Value: strconv.FormatInt(*p.TenantID, 10)}
		}
		return RefOf(*p.TenantID, SourcePrincipal), nil
	}
	return Absent(), nil
}

func pathValue(r *http.Request) (string, bool) {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		return "", false
	}
	for i, k := range rctx.URLParams.Keys {
		if k == PathParam {
			return rctx.URLParams.Values[i], true
		}
	}
	return "", false
}

// ParseTenantID parses a positive decimal tenant id.
func ParseTenantID(raw string) (int64, bool) {
	if raw == "" || raw[0] == '+' {
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func parseRef(raw string, src Source) (Ref, error) {
	id, ok := ParseTenantID(raw)
	if !ok {
		return Ref{}, &InvalidTenantIDError{Source: src, Value: raw}
	}
	return RefOf(id, src), nil
}
