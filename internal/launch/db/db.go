package db

import (
	"context"

	"ms-meetings/internal/models"

	"github.com/uptrace/bun"
)

type DB struct {
	Bun *bun.DB
}

// CreateSchema creates the launch log table and its user index.
func (d *DB) CreateSchema(ctx context.Context) error {
	_, err := d.Bun.NewCreateTable().
		Model((*models.LaunchRecord)(nil)).
		IfNotExists().
		Exec(ctx)
	if err != nil {
		return err
	}

	_, err = d.Bun.NewCreateIndex().
		Model((*models.LaunchRecord)(nil)).
		Index("idx_assistant_launches_user").
		Column("user_email", "launched_at").
		IfNotExists().
		Exec(ctx)
	return err
}

func (d *DB) RecordLaunch(ctx context.Context, rec models.LaunchRecord) error {
	_, err := d.Bun.NewInsert().Model(&rec).Exec(ctx)
	return err
}

// ListLaunchesByUser returns the user's launches, newest first. A limit of
// zero or less returns all of them.
func (d *DB) ListLaunchesByUser(ctx context.Context, user string, limit int) ([]models.LaunchRecord, error) {
	records := []models.LaunchRecord{}
	q := d.Bun.NewSelect().
		Model(&records).
		Where("user_email = ?", user).
		OrderExpr("launched_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, err
	}
	return records, nil
}
