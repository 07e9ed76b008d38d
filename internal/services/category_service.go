package services

import (
	"context"

	"marketplace/internal/models"
	"marketplace/internal/repository"
)

// DefaultCategories is the catalog installed by seed-categories
var DefaultCategories = []models.Category{
	{Slug: "electronics", Name: "Electronics"},
	{Slug: "furniture", Name: "Furniture"},
	{Slug: "clothing", Name: "Clothing & Accessories"},
	{Slug: "home-garden", Name: "Home & Garden"},
	{Slug: "sports", Name: "Sports & Outdoors"},
	{Slug: "vehicles", Name: "Vehicles"},
	{Slug: "books-media", Name: "Books & Media"},
	{Slug: "toys-games", Name: "Toys & Games"},
	{Slug: "home-services", Name: "Home Services"},
	{Slug: "lessons", Name: "Lessons & Tutoring"},
	{Slug: "other", Name: "Other"},
}

type CategoryService struct {
	repo *repository.Repository
}

func NewCategoryService(repo *repository.Repository) *CategoryService {
	return &CategoryService{repo: repo}
}

// List returns all categories ordered by name
func (s *CategoryService) List(ctx context.Context) ([]models.Category, error) {
	return s.repo.ListCategories(ctx)
}

// SeedDefaults installs DefaultCategories and reports how many were new
func (s *CategoryService) SeedDefaults(ctx context.Context) (int64, error) {
	return s.repo.SeedCategories(ctx, DefaultCategories)
}
