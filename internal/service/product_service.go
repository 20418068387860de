package service

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/rjnat/cursorpos/internal/apierror"
	"github.com/rjnat/cursorpos/internal/dto"
	"github.com/rjnat/cursorpos/internal/repository"
	"github.com/rjnat/cursorpos/internal/sync"
)

// CatalogGateway is the remote product API surface.
type CatalogGateway interface {
	ListProducts(ctx context.Context, search string, page, size int) (*dto.ProductPage, error)
}

// ProductService serves product lookups from the backend when online and
// from the local cache otherwise, keeping the cache warm as remote pages
// come through.
type ProductService interface {
	Search(ctx context.Context, filter dto.ProductFilter) (*dto.ProductListResponse, error)
	// RefreshCatalog pulls the full remote catalog into the cache. Returns
	// the number of products cached.
	RefreshCatalog(ctx context.Context) (int, error)
	ClearCache(ctx context.Context) error
}

type productService struct {
	gateway  CatalogGateway
	cache    repository.ProductCacheRepository
	monitor  *sync.Monitor
	tenantID string
}

func NewProductService(gateway CatalogGateway, cache repository.ProductCacheRepository, monitor *sync.Monitor, tenantID string) ProductService {
	return &productService{gateway: gateway, cache: cache, monitor: monitor, tenantID: tenantID}
}

func (s *productService) Search(ctx context.Context, filter dto.ProductFilter) (*dto.ProductListResponse, error) {
	if filter.Size <= 0 {
		filter.Size = 50
	}

	if s.monitor.IsOnline() {
		page, err := s.gateway.ListProducts(ctx, filter.Search, filter.Page, filter.Size)
		if err == nil {
			if cacheErr := s.cache.CacheProducts(ctx, page.Content); cacheErr != nil {
				log.Error().Err(cacheErr).Msg("products: cache refresh from search")
			}
			return &dto.ProductListResponse{
				Products: page.Content,
				Source:   "remote",
				Total:    page.TotalElements,
			}, nil
		}
		if !apierror.IsNetwork(err) {
			return nil, err
		}
		log.Warn().Err(err).Msg("products: remote search failed, serving cache")
	}

	products, err := s.cache.SearchCachedProducts(ctx, s.tenantID, filter.Search)
	if err != nil {
		return nil, err
	}
	return &dto.ProductListResponse{
		Products: products,
		Source:   "cache",
		Total:    int64(len(products)),
	}, nil
}

func (s *productService) RefreshCatalog(ctx context.Context) (int, error) {
	const pageSize = 200

	total := 0
	for page := 0; ; page++ {
		remote, err := s.gateway.ListProducts(ctx, "", page, pageSize)
		if err != nil {
			return total, err
		}
		if len(remote.Content) == 0 {
			break
		}
		if err := s.cache.CacheProducts(ctx, remote.Content); err != nil {
			return total, err
		}
		total += len(remote.Content)
		if remote.Last || page >= remote.TotalPages-1 {
			break
		}
	}

	log.Info().Int("products", total).Msg("products: catalog refreshed")
	return total, nil
}

func (s *productService) ClearCache(ctx context.Context) error {
	return s.cache.ClearProductCache(ctx)
}
