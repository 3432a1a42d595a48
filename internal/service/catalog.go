package service

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/Skotchmaster/eyewear_shop/internal/models"
	"github.com/Skotchmaster/eyewear_shop/internal/mykafka"
	"github.com/Skotchmaster/eyewear_shop/internal/repo"
	"github.com/Skotchmaster/eyewear_shop/internal/transport"
	"github.com/Skotchmaster/eyewear_shop/pkg/logging"
)

// ItemIndex is the full-text side of the catalog.
type ItemIndex interface {
	IndexItem(ctx context.Context, item models.Item) error
	DeleteItem(ctx context.Context, id uint) error
	SearchIDs(ctx context.Context, query string, from, size int) (int64, []uint, error)
}

type CatalogService struct {
	Repo   *repo.GormRepo
	Index  ItemIndex
	Events EventPublisher
}

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

func (s *CatalogService) ListItems(ctx context.Context, offset, limit int) (int64, []models.Item, error) {
	return s.Repo.ListItems(ctx, offset, limit)
}

func (s *CatalogService) GetItem(ctx context.Context, slug string) (*models.Item, error) {
	item, err := s.Repo.GetItemBySlug(ctx, slug)
	if isNotFound(err) {
		return nil, newError(ErrNotFound, "This product does not exist")
	}
	return item, err
}

// Search prefers the Elasticsearch index and falls back to a substring match
// in the database when no index is configured or it is unavailable.
func (s *CatalogService) Search(ctx context.Context, query string, offset, limit int) (int64, []models.Item, error) {
	q := strings.TrimSpace(query)
	if q == "" {
		return 0, []models.Item{}, nil
	}

	if s.Index != nil {
		total, ids, err := s.Index.SearchIDs(ctx, q, offset, limit)
		if err == nil {
			items, err := s.itemsInOrder(ctx, ids)
			if err != nil {
				return 0, nil, err
			}
			return total, items, nil
		}
		logging.FromContext(ctx).Warn("search_index_unavailable", "reason", "falling back to database", "error", err)
	}

	return s.Repo.SearchItems(ctx, q, offset, limit)
}

func (s *CatalogService) itemsInOrder(ctx context.Context, ids []uint) ([]models.Item, error) {
	found, err := s.Repo.GetItemsByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[uint]models.Item, len(found))
	for _, it := range found {
		byID[it.ID] = it
	}
	// ids the index still knows but the database no longer has are dropped.
	out := make([]models.Item, 0, len(ids))
	for _, id := range ids {
		if it, ok := byID[id]; ok {
			out = append(out, it)
		}
	}
	return out, nil
}

func validatePrices(price decimal.Decimal, discount *decimal.Decimal) error {
	if !price.IsPositive() {
		return fmt.Errorf("price must be > 0: %w", ErrValidation)
	}
	if discount != nil && (!discount.IsPositive() || discount.GreaterThanOrEqual(price)) {
		return fmt.Errorf("discount_price must be > 0 and below price: %w", ErrValidation)
	}
	return nil
}

func (s *CatalogService) CreateItem(ctx context.Context, req transport.CreateItemRequest) (*models.Item, error) {
	req.Title = strings.TrimSpace(req.Title)
	req.Slug = strings.TrimSpace(req.Slug)
	if req.Title == "" {
		return nil, fmt.Errorf("title required: %w", ErrValidation)
	}
	if !slugPattern.MatchString(req.Slug) {
		return nil, fmt.Errorf("slug must be lowercase words joined by dashes: %w", ErrValidation)
	}
	if err := validatePrices(req.Price, req.DiscountPrice); err != nil {
		return nil, err
	}

	if _, err := s.Repo.GetItemBySlug(ctx, req.Slug); err == nil {
		return nil, fmt.Errorf("slug %q already used: %w", req.Slug, ErrConflict)
	} else if !isNotFound(err) {
		return nil, err
	}

	item := &models.Item{
		Title:       req.Title,
		Slug:        req.Slug,
		Description: req.Description,
		Category:    req.Category,
		Label:       req.Label,
		Price:       req.Price,
		ImageURL:    req.ImageURL,
	}
	if req.DiscountPrice != nil {
		item.DiscountPrice = decimal.NewNullDecimal(*req.DiscountPrice)
	}
	if err := s.Repo.CreateItem(ctx, item); err != nil {
		return nil, err
	}

	s.reindex(ctx, *item)
	publish(ctx, s.Events, mykafka.TopicProduct, item.Slug, map[string]any{
		"type": "product_created", "item_id": item.ID, "slug": item.Slug, "title": item.Title,
	})
	return item, nil
}

func (s *CatalogService) PatchItem(ctx context.Context, slug string, req transport.PatchItemRequest) (*models.Item, error) {
	item, err := s.GetItem(ctx, slug)
	if err != nil {
		return nil, err
	}

	if req.Title != nil {
		if strings.TrimSpace(*req.Title) == "" {
			return nil, fmt.Errorf("title cannot be empty: %w", ErrValidation)
		}
		item.Title = strings.TrimSpace(*req.Title)
	}
	if req.Description != nil {
		item.Description = *req.Description
	}
	if req.Category != nil {
		item.Category = *req.Category
	}
	if req.Label != nil {
		item.Label = *req.Label
	}
	if req.ImageURL != nil {
		item.ImageURL = *req.ImageURL
	}
	if req.Price != nil {
		item.Price = *req.Price
	}
	switch {
	case req.ClearDiscount:
		item.DiscountPrice = decimal.NullDecimal{}
	case req.DiscountPrice != nil:
		item.DiscountPrice = decimal.NewNullDecimal(*req.DiscountPrice)
	}

	var discount *decimal.Decimal
	if item.DiscountPrice.Valid {
		discount = &item.DiscountPrice.Decimal
	}
	if err := validatePrices(item.Price, discount); err != nil {
		return nil, err
	}

	if err := s.Repo.SaveItem(ctx, item); err != nil {
		return nil, err
	}

	s.reindex(ctx, *item)
	publish(ctx, s.Events, mykafka.TopicProduct, item.Slug, map[string]any{
		"type": "product_updated", "item_id": item.ID, "slug": item.Slug, "title": item.Title,
	})
	return item, nil
}

func (s *CatalogService) DeleteItem(ctx context.Context, slug string) error {
	item, err := s.GetItem(ctx, slug)
	if err != nil {
		return err
	}
	referenced, err := s.Repo.ItemReferenced(ctx, item.ID)
	if err != nil {
		return err
	}
	if referenced {
		return newError(ErrConflict, "This product is in carts or orders")
	}
	if err := s.Repo.DeleteItem(ctx, item.ID); err != nil {
		return err
	}

	if s.Index != nil {
		if err := s.Index.DeleteItem(ctx, item.ID); err != nil {
			logging.FromContext(ctx).Error("search_delete_error", "item_id", item.ID, "error", err)
		}
	}
	publish(ctx, s.Events, mykafka.TopicProduct, item.Slug, map[string]any{
		"type": "product_deleted", "item_id": item.ID, "slug": item.Slug,
	})
	return nil
}

func (s *CatalogService) reindex(ctx context.Context, item models.Item) {
	if s.Index == nil {
		return
	}
	if err := s.Index.IndexItem(ctx, item); err != nil {
		logging.FromContext(ctx).Error("search_index_error", "item_id", item.ID, "error", err)
	}
}
