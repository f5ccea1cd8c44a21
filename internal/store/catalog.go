package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/mrcolv86/bierserv/internal/models"
)

// GetCategories retrieves all menu categories
func (s *Store) GetCategories(ctx context.Context) ([]models.Category, error) {
	var categories []models.Category
	err := s.db.SelectContext(ctx, &categories,
		"SELECT * FROM categories ORDER BY sort_order, id")
	return categories, err
}

// CreateCategory creates a menu category
func (s *Store) CreateCategory(ctx context.Context, category *models.Category) error {
	query := `
		INSERT INTO categories (name, description, sort_order)
		VALUES ($1, $2, $3)
		RETURNING id`

	return s.db.GetContext(ctx, &category.ID, query,
		category.Name, category.Description, category.SortOrder)
}

// UpdateCategory updates a menu category
func (s *Store) UpdateCategory(ctx context.Context, category *models.Category) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE categories SET name = $1, description = $2, sort_order = $3 WHERE id = $4",
		category.Name, category.Description, category.SortOrder, category.ID)
	return err
}

// DeleteCategory removes a menu category
func (s *Store) DeleteCategory(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM categories WHERE id = $1", id)
	return err
}

// GetProductByID retrieves a product by ID
func (s *Store) GetProductByID(ctx context.Context, id int64) (*models.Product, error) {
	var product models.Product
	err := s.db.GetContext(ctx, &product, "SELECT * FROM products WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("product %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// GetProducts retrieves all products
func (s *Store) GetProducts(ctx context.Context) ([]models.Product, error) {
	var products []models.Product
	err := s.db.SelectContext(ctx, &products, "SELECT * FROM products ORDER BY id")
	return products, err
}

// GetProductsByCategoryID retrieves products in a category
func (s *Store) GetProductsByCategoryID(ctx context.Context, categoryID int64) ([]models.Product, error) {
	var products []models.Product
	err := s.db.SelectContext(ctx, &products,
		"SELECT * FROM products WHERE category_id = $1 ORDER BY id", categoryID)
	return products, err
}

// CreateProduct creates a product
func (s *Store) CreateProduct(ctx context.Context, product *models.Product) error {
	query := `
		INSERT INTO products (category_id, name, description, price, image_url, available)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`

	return s.db.GetContext(ctx, product, query,
		product.CategoryID, product.Name, product.Description,
		product.Price, product.ImageURL, product.Available)
}

// UpdateProduct updates a product
func (s *Store) UpdateProduct(ctx context.Context, product *models.Product) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE products
		SET category_id = $1, name = $2, description = $3, price = $4, image_url = $5, available = $6
		WHERE id = $7`,
		product.CategoryID, product.Name, product.Description,
		product.Price, product.ImageURL, product.Available, product.ID)
	return err
}

// DeleteProduct removes a product
func (s *Store) DeleteProduct(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM products WHERE id = $1", id)
	return err
}

// GetVariationByID retrieves a product variation by ID
func (s *Store) GetVariationByID(ctx context.Context, id int64) (*models.ProductVariation, error) {
	var variation models.ProductVariation
	err := s.db.GetContext(ctx, &variation,
		"SELECT * FROM product_variations WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("variation %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &variation, nil
}

// GetVariationsByProductID retrieves all variations of a product
func (s *Store) GetVariationsByProductID(ctx context.Context, productID int64) ([]models.ProductVariation, error) {
	var variations []models.ProductVariation
	err := s.db.SelectContext(ctx, &variations,
		"SELECT * FROM product_variations WHERE product_id = $1 ORDER BY id", productID)
	return variations, err
}
