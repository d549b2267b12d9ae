package product

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"mensstore-be/internal/logger"
)

var (
	ErrNameRequired    = errors.New("product name cannot be empty")
	ErrNegativePrice   = errors.New("price cannot be negative")
	ErrInvalidDiscount = errors.New("discount percentage must be between 0 and 100")
	ErrNegativeStock   = errors.New("stock cannot be negative")
)

// Service defines the business logic for the catalog.
type Service interface {
	List(ctx context.Context, q ProductQuery) (<-chan Snapshot, error)
	GetByID(ctx context.Context, productID string) (<-chan DocSnapshot, error)
	Featured(ctx context.Context, limit int) (<-chan Snapshot, error)
	NewArrivals(ctx context.Context, limit int) (<-chan Snapshot, error)
	Related(ctx context.Context, productID string, limit int) (<-chan Snapshot, error)
	Search(ctx context.Context, query string, limit, offset int) (<-chan Snapshot, error)
	ByCategory(ctx context.Context, category, subCategory string, limit, offset int) (<-chan Snapshot, error)
	ByBrand(ctx context.Context, brand string, limit, offset int) (<-chan Snapshot, error)
	Categories(ctx context.Context) ([]string, error)
	Brands(ctx context.Context) ([]string, error)

	Add(ctx context.Context, p Product) (string, error)
	Update(ctx context.Context, p Product) error
	Delete(ctx context.Context, productID string) error
	SetStock(ctx context.Context, productID string, quantity int) error
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

const (
	defaultLimit = 20
	maxLimit     = 100
)

func normalizePage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = defaultLimit
	} else if limit > maxLimit {
		limit = maxLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

func (s *service) List(ctx context.Context, q ProductQuery) (<-chan Snapshot, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("service", "Product"),
		zap.String("method", "List"),
	)

	q.Limit, q.Offset = normalizePage(q.Limit, q.Offset)

	start := time.Now()
	ch, err := s.repo.GetProducts(ctx, q)
	if err != nil {
		log.Error("failed to open product listing",
			zap.Error(err),
			zap.Duration("duration", time.Since(start)),
		)
		return nil, err
	}

	log.Debug("product listing opened",
		zap.String("category", q.Category),
		zap.String("search", q.Search),
		zap.String("sort_by", q.SortBy),
		zap.Int("limit", q.Limit),
		zap.Int("offset", q.Offset),
	)
	return ch, nil
}

func (s *service) GetByID(ctx context.Context, productID string) (<-chan DocSnapshot, error) {
	if productID == "" {
		return nil, errors.New("product id is required")
	}
	return s.repo.GetProductByID(ctx, productID)
}

func (s *service) Featured(ctx context.Context, limit int) (<-chan Snapshot, error) {
	limit, _ = normalizePage(limit, 0)
	return s.repo.GetFeatured(ctx, limit)
}

func (s *service) NewArrivals(ctx context.Context, limit int) (<-chan Snapshot, error) {
	limit, _ = normalizePage(limit, 0)
	return s.repo.GetNewArrivals(ctx, limit)
}

func (s *service) Related(ctx context.Context, productID string, limit int) (<-chan Snapshot, error) {
	if productID == "" {
		return nil, errors.New("product id is required")
	}
	limit, _ = normalizePage(limit, 0)
	return s.repo.GetRelated(ctx, productID, limit)
}

func (s *service) Search(ctx context.Context, query string, limit, offset int) (<-chan Snapshot, error) {
	if strings.TrimSpace(query) == "" {
		return nil, errors.New("search query cannot be empty")
	}
	limit, offset = normalizePage(limit, offset)
	return s.repo.SearchProducts(ctx, query, limit, offset)
}

func (s *service) ByCategory(ctx context.Context, category, subCategory string, limit, offset int) (<-chan Snapshot, error) {
	if category == "" {
		return nil, errors.New("category is required")
	}
	limit, offset = normalizePage(limit, offset)
	return s.repo.GetByCategory(ctx, category, subCategory, limit, offset)
}

func (s *service) ByBrand(ctx context.Context, brand string, limit, offset int) (<-chan Snapshot, error) {
	if brand == "" {
		return nil, errors.New("brand is required")
	}
	limit, offset = normalizePage(limit, offset)
	return s.repo.GetByBrand(ctx, brand, limit, offset)
}

func (s *service) Categories(ctx context.Context) ([]string, error) {
	return s.repo.Categories(ctx)
}

func (s *service) Brands(ctx context.Context) ([]string, error) {
	return s.repo.Brands(ctx)
}

func validateProduct(p Product) error {
	if strings.TrimSpace(p.Name) == "" {
		return ErrNameRequired
	}
	if p.Price.IsNegative() {
		return ErrNegativePrice
	}
	if p.DiscountPercentage < 0 || p.DiscountPercentage > 100 {
		return ErrInvalidDiscount
	}
	if p.StockQuantity < 0 {
		return ErrNegativeStock
	}
	return nil
}

func (s *service) Add(ctx context.Context, p Product) (string, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("service", "Product"),
		zap.String("method", "Add"),
	)

	if err := validateProduct(p); err != nil {
		return "", err
	}

	id, err := s.repo.AddProduct(ctx, p)
	if err != nil {
		log.Error("failed to add product", zap.Error(err))
		return "", err
	}

	log.Info("product added", zap.String("product_id", id), zap.String("name", p.Name))
	return id, nil
}

func (s *service) Update(ctx context.Context, p Product) error {
	if p.ID == "" {
		return errors.New("product id is required")
	}
	if err := validateProduct(p); err != nil {
		return err
	}
	return s.repo.UpdateProduct(ctx, p)
}

func (s *service) Delete(ctx context.Context, productID string) error {
	if productID == "" {
		return errors.New("product id is required")
	}

	log := logger.FromCtx(ctx).With(
		zap.String("service", "Product"),
		zap.String("method", "Delete"),
		zap.String("product_id", productID),
	)

	if err := s.repo.DeleteProduct(ctx, productID); err != nil {
		log.Error("failed to delete product", zap.Error(err))
		return err
	}

	log.Info("product deleted")
	return nil
}

func (s *service) SetStock(ctx context.Context, productID string, quantity int) error {
	if productID == "" {
		return errors.New("product id is required")
	}
	if quantity < 0 {
		return ErrNegativeStock
	}
	return s.repo.UpdateStock(ctx, productID, quantity)
}
