package chi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kailas-cloud/devindex/internal/domain"
	"github.com/kailas-cloud/devindex/internal/domain/identity"
	"github.com/kailas-cloud/devindex/internal/metrics"
	healthuc "github.com/kailas-cloud/devindex/internal/usecase/health"
)

// maxBodyBytes caps search request bodies.
const maxBodyBytes = 1 << 20

func (s *Server) alive(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) healthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	status := http.StatusOK
	if report.Status != healthuc.Healthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, HealthResponse{Status: string(report.Status), Checks: checks})
}

// searchHandler serves both search surfaces. The surface decides the tenant
// source (already resolved into the context) and the attribute projection.
func (s *Server) searchHandler(surface string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		status := "ok"
		defer func() {
			metrics.SearchRequestsTotal.WithLabelValues(surface, status).Inc()
			metrics.SearchDuration.WithLabelValues(surface).Observe(time.Since(start).Seconds())
		}()

		id, ok := identity.FromContext(r.Context())
		if !ok || id.Tenant == "" {
			status = "invalid"
			s.handleDomainError(w, r, fmt.Errorf("%w: no tenant", domain.ErrUnauthorized))
			return
		}

		var body SearchRequest
		if err := decodeBody(w, r, &body); err != nil {
			status = "invalid"
			s.handleDomainError(w, r, err)
			return
		}
		applyQueryPaging(r, &body)
		s.clampPerPage(&body)

		req, err := body.toDomain()
		if err != nil {
			status = "invalid"
			s.handleDomainError(w, r, err)
			return
		}

		page, err := s.search.Search(r.Context(), id.Tenant, req)
		if err != nil {
			status = "error"
			if isClientError(err) {
				status = "invalid"
			}
			s.handleDomainError(w, r, err)
			return
		}

		setPaginationHeaders(w, r, page)
		project := sequenceProjection
		if surface == surfaceInternal {
			project = scalarProjection
		}
		writeJSON(w, http.StatusOK, devicesToResponse(page.Devices(), project))
	}
}

func (s *Server) reindexDevice(w http.ResponseWriter, r *http.Request) {
	err := s.reindex.Request(r.Context(),
		chi.URLParam(r, "tenant_id"),
		chi.URLParam(r, "device_id"),
		r.URL.Query().Get("service"),
	)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

// decodeBody reads a JSON body keeping numbers exact. An empty body decodes
// as the zero value.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("%w: malformed request body: %w", domain.ErrInvalidRequest, err)
	}
	return nil
}

// applyQueryPaging fills page and per_page from the query string when the body
// leaves them unset, so Link header URLs work as they are.
func applyQueryPaging(r *http.Request, body *SearchRequest) {
	q := r.URL.Query()
	if body.Page == 0 {
		if p, err := strconv.Atoi(q.Get("page")); err == nil {
			body.Page = p
		}
	}
	if body.PerPage == 0 {
		if p, err := strconv.Atoi(q.Get("per_page")); err == nil {
			body.PerPage = p
		}
	}
}

func (s *Server) clampPerPage(body *SearchRequest) {
	if body.PerPage <= 0 && s.defaultPage > 0 {
		body.PerPage = s.defaultPage
	}
	if s.maxPage > 0 && body.PerPage > s.maxPage {
		body.PerPage = s.maxPage
	}
}

func isClientError(err error) bool {
	return errors.Is(err, domain.ErrInvalidRequest) ||
		errors.Is(err, domain.ErrUnknownOperator) ||
		errors.Is(err, domain.ErrInvalidFilterValue)
}
