package search

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/kailas-cloud/devindex/internal/domain/search/query"
	"github.com/kailas-cloud/devindex/internal/domain/search/request"
	"github.com/kailas-cloud/devindex/internal/domain/search/result"
	"github.com/kailas-cloud/devindex/internal/logger"
)

// Service runs tenant-scoped device searches.
type Service struct {
	repo Repository
}

// New creates a search service.
func New(repo Repository) *Service {
	return &Service{repo: repo}
}

// Search translates the request for the tenant and runs it. Translation errors
// are returned before the store is queried.
func (s *Service) Search(ctx context.Context, tenantID string, req request.Request) (result.Page, error) {
	var opts []query.Option
	if len(req.Sort()) > 0 {
		// Known fields only refine sort resolution, so a failure to list them is not fatal.
		known, err := s.repo.KnownFields(ctx, tenantID)
		if err != nil {
			logger.FromContext(ctx).Warn("list known fields", zap.String("tenant_id", tenantID), zap.Error(err))
		} else {
			opts = append(opts, query.WithKnownFields(known))
		}
	}

	q, err := query.Translate(tenantID, req, opts...)
	if err != nil {
		return result.Page{}, fmt.Errorf("translate: %w", err)
	}

	devices, total, err := s.repo.Search(ctx, q)
	if err != nil {
		return result.Page{}, err
	}

	if keys := req.Attributes(); len(keys) > 0 {
		for i := range devices {
			devices[i] = devices[i].Select(keys)
		}
	}
	return result.New(devices, total, req.Page(), req.PerPage()), nil
}
