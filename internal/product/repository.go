package product

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"mensstore-be/internal/store"
)

var ErrProductNotFound = errors.New("product not found")

// Repository is the catalog data-access contract. All listing reads are live
// subscriptions: the channel carries the full matching result set on every
// change until ctx is cancelled.
type Repository interface {
	GetProducts(ctx context.Context, q ProductQuery) (<-chan Snapshot, error)
	GetProductByID(ctx context.Context, productID string) (<-chan DocSnapshot, error)
	GetFeatured(ctx context.Context, limit int) (<-chan Snapshot, error)
	GetNewArrivals(ctx context.Context, limit int) (<-chan Snapshot, error)
	GetRelated(ctx context.Context, productID string, limit int) (<-chan Snapshot, error)
	SearchProducts(ctx context.Context, query string, limit, offset int) (<-chan Snapshot, error)
	GetByCategory(ctx context.Context, category, subCategory string, limit, offset int) (<-chan Snapshot, error)
	GetByBrand(ctx context.Context, brand string, limit, offset int) (<-chan Snapshot, error)

	Categories(ctx context.Context) ([]string, error)
	Brands(ctx context.Context) ([]string, error)

	AddProduct(ctx context.Context, p Product) (string, error)
	UpdateProduct(ctx context.Context, p Product) error
	DeleteProduct(ctx context.Context, productID string) error
	UpdateStock(ctx context.Context, productID string, quantity int) error
}

type storeRepository struct {
	products store.Collection
}

func NewRepository(s store.Store) Repository {
	return &storeRepository{products: s.Collection("products")}
}

func (r *storeRepository) GetProducts(ctx context.Context, q ProductQuery) (<-chan Snapshot, error) {
	query := r.products.Query()

	if q.Category != "" {
		query = query.Where("category", store.OpEqual, q.Category)
	}
	if q.Search != "" {
		query = query.Where("tags", store.OpArrayContains, strings.ToLower(q.Search))
	}
	if q.MinPrice != nil {
		query = query.Where("price", store.OpGreaterOrEqual, *q.MinPrice)
	}
	if q.MaxPrice != nil {
		query = query.Where("price", store.OpLessOrEqual, *q.MaxPrice)
	}

	switch q.SortBy {
	case SortPriceAsc:
		query = query.OrderBy("price", store.Ascending)
	case SortPriceDesc:
		query = query.OrderBy("price", store.Descending)
	default:
		query = query.OrderBy("dateAdded", store.Descending)
	}

	query = query.Limit(q.Limit).Offset(q.Offset)

	return r.subscribe(ctx, query, nil)
}

func (r *storeRepository) GetProductByID(ctx context.Context, productID string) (<-chan DocSnapshot, error) {
	src, err := r.products.Query().Where("id", store.OpEqual, productID).Subscribe(ctx)
	if err != nil {
		return nil, err
	}

	out := make(chan DocSnapshot, 1)
	go func() {
		defer close(out)
		for snap := range src {
			var ds DocSnapshot
			if snap.Err != nil {
				ds.Err = snap.Err
			} else if len(snap.Docs) > 0 {
				var p Product
				if err := snap.Docs[0].Decode(&p); err != nil {
					ds.Err = err
				} else {
					ds.Product = &p
				}
			}
			select {
			case out <- ds:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

func (r *storeRepository) GetFeatured(ctx context.Context, limit int) (<-chan Snapshot, error) {
	query := r.products.Query().
		Where("featured", store.OpEqual, true).
		OrderBy("dateAdded", store.Descending).
		Limit(limit)
	return r.subscribe(ctx, query, nil)
}

func (r *storeRepository) GetNewArrivals(ctx context.Context, limit int) (<-chan Snapshot, error) {
	query := r.products.Query().
		OrderBy("dateAdded", store.Descending).
		Limit(limit)
	return r.subscribe(ctx, query, nil)
}

func (r *storeRepository) GetRelated(ctx context.Context, productID string, limit int) (<-chan Snapshot, error) {
	doc, err := r.products.Get(ctx, productID)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, ErrProductNotFound
	}

	var p Product
	if err := doc.Decode(&p); err != nil {
		return nil, fmt.Errorf("decode product %s: %w", productID, err)
	}

	// Over-fetch by one so the product itself can be dropped from its own
	// related list without shorting the page.
	query := r.products.Query().
		Where("category", store.OpEqual, p.Category).
		Limit(limit + 1)

	return r.subscribe(ctx, query, func(products []Product) []Product {
		related := products[:0:0]
		for _, rp := range products {
			if rp.ID == productID {
				continue
			}
			related = append(related, rp)
		}
		if limit > 0 && len(related) > limit {
			related = related[:limit]
		}
		return related
	})
}

func (r *storeRepository) SearchProducts(ctx context.Context, query string, limit, offset int) (<-chan Snapshot, error) {
	q := r.products.Query().
		Where("tags", store.OpArrayContains, strings.ToLower(query)).
		OrderBy("dateAdded", store.Descending).
		Limit(limit).Offset(offset)
	return r.subscribe(ctx, q, nil)
}

func (r *storeRepository) GetByCategory(ctx context.Context, category, subCategory string, limit, offset int) (<-chan Snapshot, error) {
	q := r.products.Query().Where("category", store.OpEqual, category)
	if subCategory != "" {
		q = q.Where("subCategory", store.OpEqual, subCategory)
	}
	q = q.OrderBy("dateAdded", store.Descending).Limit(limit).Offset(offset)
	return r.subscribe(ctx, q, nil)
}

func (r *storeRepository) GetByBrand(ctx context.Context, brand string, limit, offset int) (<-chan Snapshot, error) {
	q := r.products.Query().
		Where("brand", store.OpEqual, brand).
		OrderBy("dateAdded", store.Descending).
		Limit(limit).Offset(offset)
	return r.subscribe(ctx, q, nil)
}

func (r *storeRepository) Categories(ctx context.Context) ([]string, error) {
	return r.distinct(ctx, func(p Product) string { return p.Category })
}

func (r *storeRepository) Brands(ctx context.Context) ([]string, error) {
	return r.distinct(ctx, func(p Product) string { return p.Brand })
}

func (r *storeRepository) distinct(ctx context.Context, field func(Product) string) ([]string, error) {
	docs, err := r.products.Query().GetAll(ctx)
	if err != nil {
		return nil, err
	}

	seen := map[string]struct{}{}
	var values []string
	for _, doc := range docs {
		var p Product
		if err := doc.Decode(&p); err != nil {
			return nil, err
		}
		v := field(p)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		values = append(values, v)
	}
	sort.Strings(values)
	return values, nil
}

func (r *storeRepository) AddProduct(ctx context.Context, p Product) (string, error) {
	p.ID = uuid.New().String()
	now := time.Now().UnixMilli()
	p.DateAdded = now
	p.LastModified = now
	p.InStock = p.StockQuantity > 0

	if err := r.products.Set(ctx, p.ID, p); err != nil {
		return "", err
	}
	return p.ID, nil
}

func (r *storeRepository) UpdateProduct(ctx context.Context, p Product) error {
	existing, err := r.products.Get(ctx, p.ID)
	if err != nil {
		return err
	}
	if existing == nil {
		return ErrProductNotFound
	}

	p.LastModified = time.Now().UnixMilli()
	p.InStock = p.StockQuantity > 0
	return r.products.Set(ctx, p.ID, p)
}

func (r *storeRepository) DeleteProduct(ctx context.Context, productID string) error {
	return r.products.Delete(ctx, productID)
}

func (r *storeRepository) UpdateStock(ctx context.Context, productID string, quantity int) error {
	err := r.products.Update(ctx, productID, map[string]any{
		"stockQuantity": quantity,
		"inStock":       quantity > 0,
		"lastModified":  time.Now().UnixMilli(),
	})
	if errors.Is(err, store.ErrDocNotFound) {
		return ErrProductNotFound
	}
	return err
}

// subscribe adapts a store subscription into product snapshots, applying an
// optional post-processing step to each result set.
func (r *storeRepository) subscribe(ctx context.Context, q store.Query, post func([]Product) []Product) (<-chan Snapshot, error) {
	src, err := q.Subscribe(ctx)
	if err != nil {
		return nil, err
	}

	out := make(chan Snapshot, 1)
	go func() {
		defer close(out)
		for snap := range src {
			var ps Snapshot
			if snap.Err != nil {
				ps.Err = snap.Err
			} else {
				products := make([]Product, 0, len(snap.Docs))
				for _, doc := range snap.Docs {
					var p Product
					if err := doc.Decode(&p); err != nil {
						ps.Err = err
						break
					}
					products = append(products, p)
				}
				if ps.Err == nil {
					if post != nil {
						products = post(products)
					}
					ps.Products = products
				}
			}
			select {
			case out <- ps:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}
