/*
 * Copyright (c) 2025. Anton Starikov -- All Rights Reserved
 *
 * This file is part of MZHPO project.
 *
 * MZHPO is free software: you can redistribute it and/or modify
 * it under the terms of the GNU General Public License as the Free Software Foundation,
 * either version 3 of the License, or (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU General Public License
 * along with this program.  If not, see <http://www.gnu.org/licenses/>.
 */

package db

import (
	"context"

	"github.com/jmoiron/sqlx"
)

type Queries struct {
	db *sqlx.DB
}

func New(db *sqlx.DB) *Queries {
	return &Queries{db: db}
}

type UpsertControllerValueParams struct {
	Name  string `db:"name"`
	Value string `db:"value"`
}

func (q *Queries) UpsertControllerValue(ctx context.Context, arg UpsertControllerValueParams) error {
	_, err := q.db.NamedExecContext(
		ctx,
		`INSERT INTO controller_values (name, value) VALUES (:name, :value)
		 ON CONFLICT(name) DO UPDATE SET value = excluded.value`,
		arg,
	)
	return err
}

func (q *Queries) GetControllerValue(ctx context.Context, name string) (string, error) {
	var value string
	err := q.db.GetContext(ctx, &value, `SELECT value FROM controller_values WHERE name = ?`, name)
	return value, err
}

type CopSample struct {
	ID          int64   `db:"id"`
	FlowTemp    float64 `db:"flow_temp"`
	OutdoorTemp float64 `db:"outdoor_temp"`
	ActualCop   float64 `db:"actual_cop"`
	ObservedAt  int64   `db:"observed_at"`
}

type InsertCopSampleParams struct {
	FlowTemp    float64 `db:"flow_temp"`
	OutdoorTemp float64 `db:"outdoor_temp"`
	ActualCop   float64 `db:"actual_cop"`
	ObservedAt  int64   `db:"observed_at"`
}

func (q *Queries) InsertCopSample(ctx context.Context, arg InsertCopSampleParams) error {
	_, err := q.db.NamedExecContext(
		ctx,
		`INSERT INTO cop_samples (flow_temp, outdoor_temp, actual_cop, observed_at)
		 VALUES (:flow_temp, :outdoor_temp, :actual_cop, :observed_at)`,
		arg,
	)
	return err
}

func (q *Queries) ListCopSamples(ctx context.Context, limit int64) ([]CopSample, error) {
	var samples []CopSample
	err := q.db.SelectContext(
		ctx, &samples,
		`SELECT id, flow_temp, outdoor_temp, actual_cop, observed_at
		 FROM cop_samples ORDER BY observed_at DESC LIMIT ?`,
		limit,
	)
	return samples, err
}

func (q *Queries) PruneCopSamples(ctx context.Context, keep int64) error {
	_, err := q.db.ExecContext(
		ctx,
		`DELETE FROM cop_samples WHERE id NOT IN
		 (SELECT id FROM cop_samples ORDER BY observed_at DESC LIMIT ?)`,
		keep,
	)
	return err
}
