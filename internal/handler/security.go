package handler

import (
	"net/http"

	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"
)

// APIKeyHeader carries the staff API key.
const APIKeyHeader = "X-API-Key"

// RequireScope rejects requests whose API key is missing, unknown, or lacks
// scope.
func (h *Handler) RequireScope(scope string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key, err := h.auth.Authenticate(r.Context(), r.Header.Get(APIKeyHeader), scope)
			if err != nil {
				h.fail(w, r, err)
				return
			}
			ctx := zctx.With(r.Context(), zap.String("api_key", key.ID))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
