package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/hotelops/stockpilot/internal/core/domain"
	"github.com/hotelops/stockpilot/internal/infra/storage"
)

// SupplierRepo implements storage.SupplierRepository using PostgreSQL.
type SupplierRepo struct {
	db *DB
}

// NewSupplierRepo creates a new PostgreSQL supplier repository.
func NewSupplierRepo(db *DB) *SupplierRepo {
	return &SupplierRepo{db: db}
}

func (r *SupplierRepo) Get(ctx context.Context, id string) (*domain.Supplier, error) {
	var s domain.Supplier
	err := r.db.GetContext(ctx, &s,
		`SELECT id, name, email, phone, lead_days, created_at, updated_at
		 FROM suppliers WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get supplier: %w", err)
	}
	return &s, nil
}

func (r *SupplierRepo) List(ctx context.Context) ([]*domain.Supplier, error) {
	var suppliers []*domain.Supplier
	err := r.db.SelectContext(ctx, &suppliers,
		`SELECT id, name, email, phone, lead_days, created_at, updated_at
		 FROM suppliers ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list suppliers: %w", err)
	}
	return suppliers, nil
}

func (r *SupplierRepo) Save(ctx context.Context, s *domain.Supplier) error {
	now := time.Now().UTC()
	if s.CreatedAt.IsZero() {
		s.CreatedAt = now
	}
	s.UpdatedAt = now
	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO suppliers (id, name, email, phone, lead_days, created_at, updated_at)
		VALUES (:id, :name, :email, :phone, :lead_days, :created_at, :updated_at)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			email = EXCLUDED.email,
			phone = EXCLUDED.phone,
			lead_days = EXCLUDED.lead_days,
			updated_at = EXCLUDED.updated_at`, s)
	if err != nil {
		return fmt.Errorf("failed to save supplier: %w", err)
	}
	return nil
}

func (r *SupplierRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM suppliers WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete supplier: %w", err)
	}
	return nil
}
