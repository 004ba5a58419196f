package chi

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/kailas-cloud/devindex/internal/domain/identity"
	"github.com/kailas-cloud/devindex/internal/logger"
	"github.com/kailas-cloud/devindex/internal/tenant"
)

// TenantMiddleware resolves the caller with resolver and stores the identity in
// the request context. Requests that fail resolution never reach next.
func TenantMiddleware(
	resolver tenant.Resolver,
	onError func(w http.ResponseWriter, r *http.Request, err error),
) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, err := resolver.Resolve(r)
			if err != nil {
				onError(w, r, err)
				return
			}
			ctx := identity.WithContext(r.Context(), id)
			ctx = logger.With(ctx, zap.String("tenant_id", id.Tenant))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
