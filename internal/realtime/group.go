package realtime

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/nikhilbhutani/lmscore/internal/tenant"
)

// Group names a broadcast group. Only two shapes exist:
//
//	tenant:<tenantId>
//	user:<principalId>:notifications
type Group string

func TenantGroup(tenantID int64) Group {
	return Group("tenant:" + strconv.FormatInt(tenantID, 10))
}

func UserGroup(principalID int64) Group {
	return Group("user:" + strconv.FormatInt(principalID, 10) + ":notifications")
}

// ParseGroup validates a group name received from outside the process.
func ParseGroup(s string) (Group, error) {
	parts := strings.Split(s, ":")
	switch {
	case len(parts) == 2 && parts[0] == "tenant":
		if id, ok := tenant.ParseTenantID(parts[1]); ok {
			return TenantGroup(id), nil
		}
	case len(parts) == 3 && parts[0] == "user" && parts[2] == "notifications":
		if id, ok := tenant.ParseTenantID(parts[1]); ok {
			return UserGroup(id), nil
		}
	}
	return "", fmt.Errorf("invalid group %q", s)
}
