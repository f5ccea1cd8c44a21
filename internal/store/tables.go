package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/mrcolv86/bierserv/internal/models"
)

// CreateTable creates a new table
func (s *Store) CreateTable(ctx context.Context, table *models.Table) error {
	query := `
		INSERT INTO tables (number, status)
		VALUES ($1, $2)
		RETURNING id`

	return s.db.GetContext(ctx, &table.ID, query, table.Number, table.Status)
}

// GetTableByID retrieves a table by ID
func (s *Store) GetTableByID(ctx context.Context, id int64) (*models.Table, error) {
	var table models.Table
	err := s.db.GetContext(ctx, &table, "SELECT * FROM tables WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("table %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &table, nil
}

// GetTables retrieves all tables ordered by number
func (s *Store) GetTables(ctx context.Context) ([]models.Table, error) {
	var tables []models.Table
	err := s.db.SelectContext(ctx, &tables, "SELECT * FROM tables ORDER BY number")
	return tables, err
}

// SetTableOccupied marks a table occupied as of the given time
func (s *Store) SetTableOccupied(ctx context.Context, tableID int64, since time.Time) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE tables SET status = $1, occupied_since = $2 WHERE id = $3",
		models.TableStatusOccupied, since, tableID)
	return err
}

// SetTableFree marks a table free and clears occupied_since
func (s *Store) SetTableFree(ctx context.Context, tableID int64) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE tables SET status = $1, occupied_since = NULL WHERE id = $2",
		models.TableStatusFree, tableID)
	return err
}

// SetTableReserved marks a table reserved for the given time
func (s *Store) SetTableReserved(ctx context.Context, tableID int64, at time.Time) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE tables SET status = $1, reservation_time = $2 WHERE id = $3",
		models.TableStatusReserved, at, tableID)
	return err
}

// DeleteTable removes a table
func (s *Store) DeleteTable(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM tables WHERE id = $1", id)
	return err
}
