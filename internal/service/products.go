package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/rr4180885/myshop2/internal/domain"
	"github.com/rr4180885/myshop2/internal/search"
	"github.com/rr4180885/myshop2/internal/store"
)

// ListProducts returns the catalogue ordered by id, narrowed by query when it
// is not blank.
func (s *Service) ListProducts(ctx context.Context, query string) ([]domain.Product, error) {
	products, err := s.allProducts(ctx)
	if err != nil {
		return nil, err
	}
	return search.Products(products, query), nil
}

func (s *Service) allProducts(ctx context.Context) ([]domain.Product, error) {
	if cached, ok, err := s.cache.GetProducts(ctx); err != nil {
		log.Printf("[service] WARN: product cache read failed: %v", err)
	} else if ok {
		return cached, nil
	}

	gen := s.productsGen.Load()
	products, err := s.repo.ListProducts(ctx)
	if err != nil {
		return nil, err
	}
	if s.productsGen.Load() != gen {
		return products, nil
	}
	if err := s.cache.SetProducts(ctx, products, s.cacheTTL); err != nil {
		log.Printf("[service] WARN: product cache write failed: %v", err)
	}
	return products, nil
}

func (s *Service) GetProduct(ctx context.Context, id int64) (domain.Product, error) {
	p, err := s.repo.GetProduct(ctx, id)
	if err != nil {
		return domain.Product{}, err
	}
	return *p, nil
}

func (s *Service) CreateProduct(ctx context.Context, req domain.ProductCreateRequest) (domain.Product, error) {
	if err := s.validate(req); err != nil {
		return domain.Product{}, err
	}

	product := domain.Product{
		Name:          strings.TrimSpace(req.Name),
		Brand:         strings.TrimSpace(req.Brand),
		Code:          strings.TrimSpace(req.Code),
		HSNCode:       domain.DefaultHSNCode,
		PurchasePrice: req.PurchasePrice.Round2(),
		SellingPrice:  req.SellingPrice.Round2(),
		GSTRate:       domain.DefaultGSTRate,
	}
	if req.HSNCode != nil && strings.TrimSpace(*req.HSNCode) != "" {
		product.HSNCode = strings.TrimSpace(*req.HSNCode)
	}
	if req.Stock != nil {
		product.Stock = *req.Stock
	}
	if req.GSTRate != nil {
		product.GSTRate = *req.GSTRate
	}
	if req.MaxDiscount != nil {
		md := req.MaxDiscount.Round2()
		product.MaxDiscount = &md
	}
	if err := checkProductText(product); err != nil {
		return domain.Product{}, err
	}

	created, err := s.repo.CreateProduct(ctx, product)
	if err != nil {
		return domain.Product{}, productWriteError(err)
	}
	s.invalidateProducts(ctx)
	log.Printf("[service] product %s created id=%d by=%s", created.Code, created.ID, actorName(ctx))
	return *created, nil
}

func (s *Service) UpdateProduct(ctx context.Context, id int64, req domain.ProductUpdateRequest) (domain.Product, error) {
	if err := s.validate(req); err != nil {
		return domain.Product{}, err
	}

	existing, err := s.repo.GetProduct(ctx, id)
	if err != nil {
		return domain.Product{}, err
	}

	updated := *existing
	if req.Name != nil {
		updated.Name = strings.TrimSpace(*req.Name)
	}
	if req.Brand != nil {
		updated.Brand = strings.TrimSpace(*req.Brand)
	}
	if req.Code != nil {
		updated.Code = strings.TrimSpace(*req.Code)
	}
	if req.HSNCode != nil {
		updated.HSNCode = strings.TrimSpace(*req.HSNCode)
		if updated.HSNCode == "" {
			updated.HSNCode = domain.DefaultHSNCode
		}
	}
	if req.Stock != nil {
		updated.Stock = *req.Stock
	}
	if req.PurchasePrice != nil {
		updated.PurchasePrice = req.PurchasePrice.Round2()
	}
	if req.SellingPrice != nil {
		updated.SellingPrice = req.SellingPrice.Round2()
	}
	if req.GSTRate != nil {
		updated.GSTRate = *req.GSTRate
	}
	if req.MaxDiscount != nil {
		md := req.MaxDiscount.Round2()
		updated.MaxDiscount = &md
	}
	if err := checkProductText(updated); err != nil {
		return domain.Product{}, err
	}

	saved, err := s.repo.UpdateProduct(ctx, updated)
	if err != nil {
		return domain.Product{}, productWriteError(err)
	}
	s.invalidateProducts(ctx)
	return *saved, nil
}

func (s *Service) DeleteProduct(ctx context.Context, id int64) error {
	if err := s.repo.DeleteProduct(ctx, id); err != nil {
		return err
	}
	s.invalidateProducts(ctx)
	log.Printf("[service] product id=%d deleted by=%s", id, actorName(ctx))
	return nil
}

// checkProductText rejects fields that are blank once trimmed.
func checkProductText(p domain.Product) error {
	switch {
	case p.Name == "":
		return &ValidationError{Field: "name", Message: "name is required"}
	case p.Brand == "":
		return &ValidationError{Field: "brand", Message: "brand is required"}
	case p.Code == "":
		return &ValidationError{Field: "code", Message: "code is required"}
	}
	return nil
}

func productWriteError(err error) error {
	switch {
	case errors.Is(err, store.ErrDuplicate):
		return &ValidationError{Field: "code", Message: "product code already exists", err: err}
	case errors.Is(err, store.ErrInvalid):
		return &ValidationError{Message: err.Error(), err: err}
	}
	return fmt.Errorf("save product: %w", err)
}
