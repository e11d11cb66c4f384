package handlers

import (
	"context"
	"net/http"
	"regexp"

	"github.com/go-chi/chi/v5"
)

// ContextKey is a custom type for context keys to avoid collisions.
type ContextKey string

const (
	// TreeContextKey is the key used to store the validated tree id in the request context.
	TreeContextKey ContextKey = "tree_id"
)

var treeIDPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.-]{0,63}$`)

// TreeMiddleware rejects requests whose tree_id URL parameter is not a plain identifier
// and stores the id in the request context.
func TreeMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		treeID := chi.URLParam(r, "tree_id")
		if !treeIDPattern.MatchString(treeID) {
			WriteAPIError(w, http.StatusBadRequest, CodeInvalidRequest,
				"tree_id must be 1-64 letters, digits, '.', '_' or '-'")
			return
		}
		ctx := context.WithValue(r.Context(), TreeContextKey, treeID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// TreeIDFromContext returns the tree id stored by TreeMiddleware.
func TreeIDFromContext(ctx context.Context) (string, bool) {
	treeID, ok := ctx.Value(TreeContextKey).(string)
	return treeID, ok
}

// treeIDParam returns the tree id of the request, preferring the value validated by
// TreeMiddleware.
func treeIDParam(r *http.Request) string {
	if treeID, ok := TreeIDFromContext(r.Context()); ok {
		return treeID
	}
	return chi.URLParam(r, "tree_id")
}
