// Copyright (C) 2025 The CoreReports Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package warehouse executes generated SQL against the reporting database
// and returns tabular rows. The orchestration layer treats any failure as
// an opaque message used for retry context; it never branches on driver
// error codes, so ExecutionError carries only the statement and a string.
package warehouse

import (
	"context"
	"database/sql"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/yazeedmshayekh2/CoreReports/pkg/logging"
)

var tracer = otel.Tracer("corereports.warehouse")

// Row is one result row keyed by column name.
type Row map[string]any

// ExecutionError is the typed failure from running one statement.
type ExecutionError struct {
	Query   string
	Message string
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("query execution failed: %s", e.Message)
}

// Executor runs one SQL statement and returns its rows.
//
// # Description
//
//	The single collaborator contract the step executor depends on. Rows
//	come back as column-keyed maps so later pipeline stages can summarize
//	result shape without knowing the schema.
//
// # Limitations
//
//	One statement per call. DDL and DML pass through the same path as
//	SELECT; callers are expected to send read queries.
type Executor interface {
	Execute(ctx context.Context, query string) ([]Row, error)
}

// DB is an Executor backed by database/sql.
type DB struct {
	db     *sql.DB
	logger *logging.Logger
}

// Open connects with the given driver and DSN and verifies the connection.
func Open(ctx context.Context, driver, dsn string, logger *logging.Logger) (*DB, error) {
	if logger == nil {
		logger = logging.Default()
	}
	sqlDB, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", driver, err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping %s database: %w", driver, err)
	}
	logger.Info("warehouse connection established", "driver", driver)
	return &DB{db: sqlDB, logger: logger}, nil
}

// NewDB wraps an existing *sql.DB. The caller keeps ownership of db's
// lifecycle unless Close is used.
func NewDB(db *sql.DB, logger *logging.Logger) *DB {
	if logger == nil {
		logger = logging.Default()
	}
	return &DB{db: db, logger: logger}
}

// Execute runs one statement and scans every row into a column-keyed map.
func (d *DB) Execute(ctx context.Context, query string) ([]Row, error) {
	ctx, span := tracer.Start(ctx, "DB.Execute")
	defer span.End()

	rows, err := d.db.QueryContext(ctx, query)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		d.logger.Error("statement failed", "error", err)
		return nil, &ExecutionError{Query: query, Message: err.Error()}
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, &ExecutionError{Query: query, Message: err.Error()}
	}

	var result []Row
	for rows.Next() {
		values := make([]any, len(columns))
		pointers := make([]any, len(columns))
		for i := range values {
			pointers[i] = &values[i]
		}
		if err := rows.Scan(pointers...); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, &ExecutionError{Query: query, Message: err.Error()}
		}
		row := make(Row, len(columns))
		for i, col := range columns {
			// Text columns scan as []byte with some drivers.
			if b, ok := values[i].([]byte); ok {
				row[col] = string(b)
			} else {
				row[col] = values[i]
			}
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, &ExecutionError{Query: query, Message: err.Error()}
	}

	span.SetAttributes(attribute.Int("warehouse.row_count", len(result)))
	d.logger.Debug("statement executed", "row_count", len(result))
	return result, nil
}

// Close releases the underlying connection pool.
func (d *DB) Close() error {
	return d.db.Close()
}
