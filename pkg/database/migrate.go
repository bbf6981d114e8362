package database

import (
	"context"
	_ "embed"
	"fmt"
)

// Schema holds the DDL for every table the service owns. Statements are idempotent.
//
//go:embed schema.sql
var Schema string

// Migrate applies the embedded schema.
func Migrate(ctx context.Context, db TxQuerier) error {
	if _, err := db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
