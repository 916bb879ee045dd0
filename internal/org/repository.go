package org

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/openbooks-app/openbooks/internal/shared"
)

type Repository interface {
	Get(ctx context.Context, id int64) (Organization, error)
	List(ctx context.Context) ([]Organization, error)
	Create(ctx context.Context, name string) (Organization, error)
	UpdateSettings(ctx context.Context, id int64, settings Settings) error
}

type repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

func (r *repository) Get(ctx context.Context, id int64) (Organization, error) {
	var o Organization
	var raw []byte
	err := r.db.QueryRow(ctx, `SELECT id, name, settings, created_at, updated_at FROM organizations WHERE id=$1`, id).
		Scan(&o.ID, &o.Name, &raw, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Organization{}, shared.ErrNotFound
		}
		return Organization{}, err
	}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &o.Settings); err != nil {
			return Organization{}, fmt.Errorf("org: decode settings: %w", err)
		}
	}
	return o, nil
}

func (r *repository) List(ctx context.Context) ([]Organization, error) {
	rows, err := r.db.Query(ctx, `SELECT id, name, settings, created_at, updated_at FROM organizations ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Organization
	for rows.Next() {
		var o Organization
		var raw []byte
		if err := rows.Scan(&o.ID, &o.Name, &raw, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, err
		}
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, &o.Settings); err != nil {
				return nil, fmt.Errorf("org: decode settings: %w", err)
			}
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (r *repository) Create(ctx context.Context, name string) (Organization, error) {
	var o Organization
	o.Name = name
	err := r.db.QueryRow(ctx, `INSERT INTO organizations (name, settings) VALUES ($1, '{}') RETURNING id, created_at, updated_at`, name).
		Scan(&o.ID, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return Organization{}, err
	}
	return o, nil
}

func (r *repository) UpdateSettings(ctx context.Context, id int64, settings Settings) error {
	raw, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("org: encode settings: %w", err)
	}
	cmd, err := r.db.Exec(ctx, `UPDATE organizations SET settings=$2, updated_at=NOW() WHERE id=$1`, id, raw)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}
