package chi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/devindex/internal/domain"
	"github.com/kailas-cloud/devindex/internal/tenant"
	healthuc "github.com/kailas-cloud/devindex/internal/usecase/health"
	reindexuc "github.com/kailas-cloud/devindex/internal/usecase/reindex"
	searchuc "github.com/kailas-cloud/devindex/internal/usecase/search"
)

// Route prefixes.
const (
	InternalPrefix   = "/api/internal/v1/reporting"
	ManagementPrefix = "/api/management/v1/reporting"
)

const (
	surfaceInternal   = "internal"
	surfaceManagement = "management"
)

// Server serves the internal and management reporting APIs.
type Server struct {
	search        *searchuc.Service
	reindex       *reindexuc.Service
	health        *healthuc.Service
	management    tenant.Resolver
	logger        *zap.Logger
	defaultPage   int
	maxPage       int
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server. management resolves the caller on the
// management surface; the internal surface takes the tenant from the path.
func NewServer(
	search *searchuc.Service,
	reindex *reindexuc.Service,
	health *healthuc.Service,
	management tenant.Resolver,
	logger *zap.Logger,
) *Server {
	s := &Server{
		search:     search,
		reindex:    reindex,
		health:     health,
		management: management,
		logger:     logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrUnauthorized, http.StatusUnauthorized, codeUnauthorized),
		sentinelHandler(domain.ErrUnknownService, http.StatusBadRequest, codeUnknownService),
		sentinelHandler(domain.ErrUnknownOperator, http.StatusBadRequest, codeBadRequest),
		sentinelHandler(domain.ErrInvalidFilterValue, http.StatusBadRequest, codeBadRequest),
		sentinelHandler(domain.ErrInvalidRequest, http.StatusBadRequest, codeBadRequest),
		sentinelHandler(domain.ErrStoreUnavailable, http.StatusServiceUnavailable, codeUnavailable),
		sentinelHandler(domain.ErrQueueUnavailable, http.StatusServiceUnavailable, codeUnavailable),
	}
	return s
}

// WithPagination sets the page size used when a request has none, and the
// largest page size a request may ask for.
func (s *Server) WithPagination(defaultSize, maxSize int) *Server {
	s.defaultPage = defaultSize
	s.maxPage = maxSize
	return s
}

// Routes mounts the API on r.
func (s *Server) Routes(r chi.Router) {
	r.Handle("/metrics", promhttp.Handler())

	r.Route(InternalPrefix, func(r chi.Router) {
		r.Get("/alive", s.alive)
		r.Get("/health", s.healthCheck)

		r.With(TenantMiddleware(tenant.ParamResolver{Param: "tenant_id"}, s.handleDomainError)).
			Post("/inventory/tenants/{tenant_id}/search", s.searchHandler(surfaceInternal))
		r.Post("/tenants/{tenant_id}/devices/{device_id}/reindex", s.reindexDevice)
	})

	r.Route(ManagementPrefix, func(r chi.Router) {
		r.Use(TenantMiddleware(s.management, s.handleDomainError))
		r.Post("/devices/search", s.searchHandler(surfaceManagement))
		r.Post("/inventory/search", s.searchHandler(surfaceManagement))
	})
}

// Handler returns a router serving the API with no extra middleware.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	s.Routes(r)
	return r
}
