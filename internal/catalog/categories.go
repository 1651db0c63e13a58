package catalog

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"storefront/internal/apperror"
	"storefront/internal/models"
	"storefront/internal/store"
)

const (
	msgCategoryNotFound  = "Category not found"
	msgDuplicateCategory = "Category with this name or slug already exists"
)

var nonSlugChars = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify lowercases s and collapses every run of other characters to "-".
func Slugify(s string) string {
	return strings.Trim(nonSlugChars.ReplaceAllString(strings.ToLower(strings.TrimSpace(s)), "-"), "-")
}

type CategoryDetail struct {
	models.Category
	Parent        *models.Category  `json:"parentCategory,omitempty"`
	Subcategories []models.Category `json:"subcategories"`
}

func (s *Service) ListCategories(ctx context.Context) ([]models.Category, error) {
	categories, err := s.categories.ListActive(ctx)
	if err != nil {
		return nil, apperror.Internal("db error", err)
	}
	return categories, nil
}

func (s *Service) GetCategory(ctx context.Context, id primitive.ObjectID) (CategoryDetail, error) {
	category, err := s.categories.FindByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return CategoryDetail{}, apperror.NotFound(msgCategoryNotFound)
	}
	if err != nil {
		return CategoryDetail{}, apperror.Internal("db error", err)
	}

	detail := CategoryDetail{Category: category}
	if category.ParentID != nil {
		parent, err := s.categories.FindByID(ctx, *category.ParentID)
		if err == nil {
			detail.Parent = &parent
		} else if !errors.Is(err, store.ErrNotFound) {
			return CategoryDetail{}, apperror.Internal("db error", err)
		}
	}
	children, err := s.categories.ListChildren(ctx, id)
	if err != nil {
		return CategoryDetail{}, apperror.Internal("db error", err)
	}
	detail.Subcategories = children
	return detail, nil
}

func (s *Service) CreateCategory(ctx context.Context, c models.Category) (models.Category, error) {
	c.Name = strings.TrimSpace(c.Name)
	if c.Name == "" {
		return models.Category{}, apperror.Validation("name is required")
	}
	if c.Slug == "" {
		c.Slug = c.Name
	}
	c.Slug = Slugify(c.Slug)
	if c.Slug == "" {
		return models.Category{}, apperror.Validation("slug is invalid")
	}
	if c.ParentID != nil {
		if _, err := s.categories.FindByID(ctx, *c.ParentID); err != nil {
			return models.Category{}, apperror.Validation("Parent category not found")
		}
	}

	now := s.now()
	c.ID = primitive.NilObjectID
	c.CreatedAt = now
	c.UpdatedAt = now

	if err := s.categories.Create(ctx, &c); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return models.Category{}, apperror.Conflict(msgDuplicateCategory)
		}
		return models.Category{}, apperror.Internal("db error", err)
	}
	s.logger.Info("category created", zap.String("category_id", c.ID.Hex()), zap.String("slug", c.Slug))
	return c, nil
}

// UpdateCategory regenerates the slug from a new name unless one is given.
func (s *Service) UpdateCategory(ctx context.Context, id primitive.ObjectID, u models.CategoryUpdate) (models.Category, error) {
	if u.Name != nil {
		name := strings.TrimSpace(*u.Name)
		if name == "" {
			return models.Category{}, apperror.Validation("name is invalid")
		}
		u.Name = &name
		if u.Slug == nil {
			slug := Slugify(name)
			u.Slug = &slug
		}
	}
	if u.Slug != nil {
		slug := Slugify(*u.Slug)
		if slug == "" {
			return models.Category{}, apperror.Validation("slug is invalid")
		}
		u.Slug = &slug
	}
	if u.ParentID != nil {
		if *u.ParentID == id {
			return models.Category{}, apperror.Validation("A category cannot be its own parent")
		}
		if _, err := s.categories.FindByID(ctx, *u.ParentID); err != nil {
			return models.Category{}, apperror.Validation("Parent category not found")
		}
	}

	updated, err := s.categories.Update(ctx, id, u)
	if errors.Is(err, store.ErrNotFound) {
		return models.Category{}, apperror.NotFound(msgCategoryNotFound)
	}
	if errors.Is(err, store.ErrDuplicate) {
		return models.Category{}, apperror.Conflict(msgDuplicateCategory)
	}
	if err != nil {
		return models.Category{}, apperror.Internal("db error", err)
	}
	return updated, nil
}

func (s *Service) DeleteCategory(ctx context.Context, id primitive.ObjectID) error {
	err := s.categories.Deactivate(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return apperror.NotFound(msgCategoryNotFound)
	}
	if err != nil {
		return apperror.Internal("db error", err)
	}
	return nil
}
