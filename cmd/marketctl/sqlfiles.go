package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// applySQLFiles executes each file in order. A failing file is rolled back
// and stops the run; files before it stay applied.
func applySQLFiles(ctx context.Context, db *sql.DB, paths []string, out io.Writer) error {
	for _, path := range paths {
		body, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		if strings.TrimSpace(string(body)) == "" {
			fmt.Fprintf(out, "Skipping empty file %s\n", filepath.Base(path))
			continue
		}

		fmt.Fprintf(out, "Applying migration: %s\n", filepath.Base(path))
		if err := execInTx(ctx, db, string(body)); err != nil {
			return fmt.Errorf("apply %s: %w", path, err)
		}
	}
	return nil
}

func execInTx(ctx context.Context, db *sql.DB, stmt string) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, stmt); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}
