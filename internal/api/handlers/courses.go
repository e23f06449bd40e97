package handlers

import (
	"context"
	"net/http"

	"github.com/nikhilbhutani/lmscore/internal/auth"
	"github.com/nikhilbhutani/lmscore/internal/models"
	"github.com/nikhilbhutani/lmscore/internal/tenant"
)

type CourseLister interface {
	List(ctx context.Context, pred tenant.Predicate) ([]models.Course, error)
}

type CourseHandler struct {
	store   CourseLister
	onError auth.ErrorHandler
}

func NewCourseHandler(store CourseLister, onError auth.ErrorHandler) *CourseHandler {
	return &CourseHandler{store: store, onError: onError}
}

// List returns the scope tenant's courses, optionally filtered by status.
func (h *CourseHandler) List(w http.ResponseWriter, r *http.Request) {
	filters := map[string]any{}
	if s := r.URL.Query().Get("status"); s != "" {
		filters["status"] = s
	}

	pred, err := scopedPredicate(r, filters)
	if err != nil {
		h.onError(w, r, err)
		return
	}

	courses, err := h.store.List(r.Context(), pred)
	if err != nil {
		h.onError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"courses": courses, "count": len(courses)})
}

func scopedPredicate(r *http.Request, filters map[string]any) (tenant.Predicate, error) {
	scope, ok := tenant.ScopeFromContext(r.Context())
	if !ok {
		return tenant.Predicate{}, tenant.ErrUnscoped
	}
	return scope.Predicate(filters)
}
