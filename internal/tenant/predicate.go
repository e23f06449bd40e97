package tenant

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode"
)

// TenantKey is the filter key that carries the tenant id.
const TenantKey = "tenantId"

const tenantColumn = "tenant_id"

// ErrUnscoped is returned when a tenant-owned query is requested without a
// resolved tenant.
var ErrUnscoped = errors.New("tenant id required for tenant-owned resources")

var columnPattern = regexp.MustCompile(`^[a-z_][a-z0-9_]{0,62}$`)

// Predicate is the filter every query against tenant-owned rows must be
// conjoined with. The zero value is not usable; build one with
// BuildScopedPredicate. It is passed by value and never cached.
type Predicate struct {
	tenantID int64
	filters  map[string]any
}

// BuildScopedPredicate returns {...filters, tenantId}. The tenant id is
// applied last so a caller-supplied "tenantId" (or "tenant_id") key is
// overridden, never merged.
func BuildScopedPredicate(tenantID int64, filters map[string]any) (Predicate, error) {
	if tenantID <= 0 {
		return Predicate{}, fmt.Errorf("scoped predicate: tenant id must be positive, got %d", tenantID)
	}
	own := make(map[string]any, len(filters))
	for k, v := range filters {
		if isTenantKey(k) {
			continue
		}
		col := columnName(k)
		if !columnPattern.MatchString(col) {
			return Predicate{}, fmt.Errorf("scoped predicate: invalid filter key %q", k)
		}
		own[k] = v
	}
	return Predicate{tenantID: tenantID, filters: own}, nil
}

func (p Predicate) TenantID() int64 { return p.tenantID }

func (p Predicate) Valid() bool { return p.tenantID > 0 }

// Filters returns a copy of the caller filters with TenantKey set.
func (p Predicate) Filters() map[string]any {
	out := make(map[string]any, len(p.filters)+1)
	for k, v := range p.filters {
		out[k] = v
	}
	out[TenantKey] = p.tenantID
	return out
}

// Where renders the predicate as a SQL conjunction with positional
// arguments starting at $start. Caller filters are rendered in key order and
// the tenant condition always comes last.
func (p Predicate) Where(start int) (string, []any) {
	keys := make([]string, 0, len(p.filters))
	for k := range p.filters {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	conds := make([]string, 0, len(keys)+1)
	args := make([]any, 0, len(keys)+1)
	n := start
	for _, k := range keys {
		col := columnName(k)
		v := p.filters[k]
		if v == nil {
			conds = append(conds, col+" IS NULL")
			continue
		}
		conds = append(conds, fmt.Sprintf("%s = $%d", col, n))
		args = append(args, v)
		n++
	}
	conds = append(conds, fmt.Sprintf("%s = $%d", tenantColumn, n))
	args = append(args, p.tenantID)
	return strings.Join(conds, " AND "), args
}

func isTenantKey(key string) bool {
	return strings.EqualFold(strings.ReplaceAll(key, "_", ""), "tenantid")
}

// columnName maps a camelCase filter key to its snake_case column.
func columnName(key string) string {
	var b strings.Builder
	for i, r := range key {
		if unicode.IsUpper(r) {
			if i > 0 {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
