package handlers

import (
	"net/http"

	"github.com/nikhilbhutani/lmscore/internal/auth"
)

func Me(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"principal": auth.PrincipalFromContext(r.Context())})
}
