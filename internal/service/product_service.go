package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"shop-service/internal/cache"
	"shop-service/internal/entity"
	"shop-service/internal/events"
	"shop-service/internal/metrics"
	"shop-service/internal/repository"
)

type ProductService struct {
	repo      repository.ProductRepository
	cache     cache.Cache
	publisher events.Publisher

	// cacheMu orders cache fills against invalidations; version counts
	// invalidations so a list read before a write is never cached after it.
	cacheMu sync.Mutex
	version uint64
}

// NewProductService creates a new instance of ProductService.
func NewProductService(repo repository.ProductRepository, c cache.Cache, publisher events.Publisher) *ProductService {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &ProductService{repo: repo, cache: c, publisher: publisher}
}

// List returns every product, served from the cache while it is fresh.
func (s *ProductService) List(ctx context.Context) ([]*entity.Product, error) {
	if products, ok := s.cachedProducts(ctx); ok {
		return products, nil
	}
	return s.load(ctx)
}

// WarmCache loads the product list into the cache so the first List after
// startup does not hit the store.
func (s *ProductService) WarmCache(ctx context.Context) error {
	_, err := s.load(ctx)
	return err
}

func (s *ProductService) load(ctx context.Context) ([]*entity.Product, error) {
	s.cacheMu.Lock()
	version := s.version
	s.cacheMu.Unlock()

	products, err := s.repo.List(ctx)
	if err != nil {
		log.Error().Err(err).Msg("error in fetching products")
		return nil, internal("Server Error", err)
	}

	data, err := json.Marshal(products)
	if err == nil {
		err = s.storeList(ctx, version, data)
	}
	if err != nil {
		log.Warn().Err(err).Msg("Error caching products")
	}

	return products, nil
}

// storeList caches data unless the cache was invalidated after version was read.
func (s *ProductService) storeList(ctx context.Context, version uint64, data []byte) error {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()

	if s.version != version {
		log.Debug().Msg("Products changed while listing, not caching")
		return nil
	}
	return s.cache.Set(ctx, cache.ProductsKey, data)
}

// Get returns a single product.
func (s *ProductService) Get(ctx context.Context, id string) (*entity.Product, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, notFound("Invalid Product Id")
	}

	product, err := s.repo.GetByID(ctx, oid)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, notFound("Product not found")
		}
		log.Error().Err(err).Msgf("Error getting product by ID %s", id)
		return nil, internal("Server Error", err)
	}
	return product, nil
}

// Create stores a product owned by userID.
func (s *ProductService) Create(ctx context.Context, userID string, in entity.ProductInput) (*entity.Product, error) {
	owner, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return nil, unauthorized("Not authorized, token failed")
	}

	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" || in.Price <= 0 {
		return nil, badRequest("Please provide all fields")
	}

	product, err := s.repo.Create(ctx, &entity.Product{
		Name:        in.Name,
		Price:       in.Price,
		Description: in.Description,
		Image:       in.Image,
		CreatedBy:   owner,
	})
	if err != nil {
		log.Error().Err(err).Msg("Error in Create product")
		return nil, internal("Server Error", err)
	}

	s.afterWrite(ctx, entity.EventProductCreated, product.ID, owner)
	return product, nil
}

// Update applies patch to a product owned by userID.
func (s *ProductService) Update(ctx context.Context, userID, id string, patch entity.ProductPatch) (*entity.Product, error) {
	product, owner, err := s.owned(ctx, userID, id, "Not authorized to update this product")
	if err != nil {
		return nil, err
	}

	if patch.Empty() {
		return nil, badRequest("Please provide fields to update")
	}
	if patch.Name != nil && strings.TrimSpace(*patch.Name) == "" {
		return nil, badRequest("Product name cannot be empty")
	}
	if patch.Price != nil && *patch.Price <= 0 {
		return nil, badRequest("Price must be greater than zero")
	}

	patch.Apply(product)
	updated, err := s.repo.Update(ctx, product)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, notFound("Product not found")
		}
		log.Error().Err(err).Msgf("Error updating product %s", id)
		return nil, internal("Server Error", err)
	}

	s.afterWrite(ctx, entity.EventProductUpdated, updated.ID, owner)
	return updated, nil
}

// Delete removes a product owned by userID.
func (s *ProductService) Delete(ctx context.Context, userID, id string) error {
	product, owner, err := s.owned(ctx, userID, id, "Not authorized to delete this product")
	if err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, product.ID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return notFound("Product not found")
		}
		log.Error().Err(err).Msgf("error in deleting product %s", id)
		return internal("Server Error", err)
	}

	s.afterWrite(ctx, entity.EventProductDeleted, product.ID, owner)
	return nil
}

// Stats returns the average price and number of products.
func (s *ProductService) Stats(ctx context.Context) (*entity.ProductStats, error) {
	stats, err := s.repo.Stats(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Error aggregating products")
		return nil, internal("Aggregation error", err)
	}
	return stats, nil
}

// InvalidateCache drops the cached product list.
func (s *ProductService) InvalidateCache(ctx context.Context) error {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()

	s.version++
	return s.cache.Delete(ctx, cache.ProductsKey)
}

func (s *ProductService) cachedProducts(ctx context.Context) ([]*entity.Product, bool) {
	data, ok, err := s.cache.Get(ctx, cache.ProductsKey)
	if err != nil {
		metrics.CacheLookups.WithLabelValues("error").Inc()
		log.Warn().Err(err).Msg("Error reading products from cache")
		return nil, false
	}
	if !ok {
		metrics.CacheLookups.WithLabelValues("miss").Inc()
		return nil, false
	}

	var products []*entity.Product
	if err := json.Unmarshal(data, &products); err != nil {
		metrics.CacheLookups.WithLabelValues("error").Inc()
		log.Warn().Err(err).Msg("Error unmarshalling cached products")
		return nil, false
	}

	metrics.CacheLookups.WithLabelValues("hit").Inc()
	return products, true
}

// owned loads product id and checks that userID created it.
func (s *ProductService) owned(ctx context.Context, userID, id, denied string) (*entity.Product, primitive.ObjectID, error) {
	product, err := s.Get(ctx, id)
	if err != nil {
		return nil, primitive.NilObjectID, err
	}

	owner, err := primitive.ObjectIDFromHex(userID)
	if err != nil || product.CreatedBy != owner {
		return nil, primitive.NilObjectID, forbidden(denied)
	}
	return product, owner, nil
}

// afterWrite invalidates the product cache and announces the write. Neither
// step fails the request.
func (s *ProductService) afterWrite(ctx context.Context, eventType string, productID, userID primitive.ObjectID) {
	if err := s.InvalidateCache(ctx); err != nil {
		log.Error().Err(err).Msg("Error invalidating products cache")
	}

	event := entity.ProductEvent{
		Type:       eventType,
		ProductID:  productID.Hex(),
		UserID:     userID.Hex(),
		OccurredAt: time.Now().UTC(),
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		log.Warn().Err(err).Msgf("Error publishing product %s event for %s", eventType, event.ProductID)
	}
}
