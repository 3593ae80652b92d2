// Package inspect answers schema readiness questions against
// information_schema: which DID columns exist on profiles, whether the
// verifiable_credentials table is present, and whether items carries the
// handover verification flag.
package inspect

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"time"

	"github.com/lib/pq"
	"golang.org/x/sync/errgroup"
)

// DIDColumns lists the profile columns a DID-enabled deployment must have.
var DIDColumns = []string{
	"did_identifier",
	"did_document",
	"public_key",
	"did_created_at",
	"did_updated_at",
}

// ColumnInfo describes one column as reported by information_schema.
type ColumnInfo struct {
	Name     string `json:"name"`
	DataType string `json:"data_type"`
}

// Report is the combined schema readiness snapshot.
type Report struct {
	GeneratedAt                  time.Time    `json:"generated_at"`
	DIDColumns                   []ColumnInfo `json:"did_columns"`
	MissingDIDColumns            []string     `json:"missing_did_columns"`
	VerifiableCredentialsPresent bool         `json:"verifiable_credentials_present"`
	HandoverVerificationPresent  bool         `json:"handover_verification_present"`
}

// DIDReady reports whether every DID column exists on profiles.
func (r *Report) DIDReady() bool {
	return len(r.MissingDIDColumns) == 0
}

// Inspector runs read-only schema checks against one database.
type Inspector struct {
	db *sql.DB
}

// New constructs an Inspector.
func New(db *sql.DB) *Inspector {
	return &Inspector{db: db}
}

// ProfileDIDColumns returns the DID columns present on the profiles table.
// Zero rows before the DID migration, one row per column after.
func (i *Inspector) ProfileDIDColumns(ctx context.Context) ([]ColumnInfo, error) {
	rows, err := i.db.QueryContext(ctx, `
		SELECT column_name, data_type
		FROM information_schema.columns
		WHERE table_name = 'profiles' AND column_name = ANY($1)
		ORDER BY column_name
	`, pq.Array(DIDColumns))
	if err != nil {
		return nil, fmt.Errorf("query profile DID columns: %w", err)
	}
	defer rows.Close()

	var cols []ColumnInfo
	for rows.Next() {
		var c ColumnInfo
		if err := rows.Scan(&c.Name, &c.DataType); err != nil {
			return nil, fmt.Errorf("scan column info: %w", err)
		}
		cols = append(cols, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate column info: %w", err)
	}
	return cols, nil
}

// TableExists checks information_schema.tables for the given table.
func (i *Inspector) TableExists(ctx context.Context, table string) (bool, error) {
	var exists bool
	err := i.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM information_schema.tables WHERE table_name = $1
		)
	`, table).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check table %s: %w", table, err)
	}
	return exists, nil
}

// ColumnExists checks information_schema.columns for the given column.
func (i *Inspector) ColumnExists(ctx context.Context, table, column string) (bool, error) {
	var exists bool
	err := i.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM information_schema.columns
			WHERE table_name = $1 AND column_name = $2
		)
	`, table, column).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check column %s.%s: %w", table, column, err)
	}
	return exists, nil
}

// Report runs all readiness checks, fanned out concurrently.
func (i *Inspector) Report(ctx context.Context) (*Report, error) {
	report := &Report{GeneratedAt: time.Now().UTC()}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		cols, err := i.ProfileDIDColumns(ctx)
		if err != nil {
			return err
		}
		report.DIDColumns = cols
		report.MissingDIDColumns = MissingColumns(DIDColumns, cols)
		return nil
	})

	g.Go(func() error {
		exists, err := i.TableExists(ctx, "verifiable_credentials")
		if err != nil {
			return err
		}
		report.VerifiableCredentialsPresent = exists
		return nil
	})

	g.Go(func() error {
		exists, err := i.ColumnExists(ctx, "items", "handover_verification_enabled")
		if err != nil {
			return err
		}
		report.HandoverVerificationPresent = exists
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return report, nil
}

// MissingColumns returns the expected column names absent from found, sorted.
func MissingColumns(expected []string, found []ColumnInfo) []string {
	present := make(map[string]bool, len(found))
	for _, c := range found {
		present[c.Name] = true
	}

	missing := make([]string, 0, len(expected))
	for _, name := range expected {
		if !present[name] {
			missing = append(missing, name)
		}
	}
	sort.Strings(missing)
	return missing
}
