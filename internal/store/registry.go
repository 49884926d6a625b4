package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"tisops-insights-go/internal/types"
)

const registryColumns = `id, kind, match_key, display_value, priority, is_active`

func scanEntry(rows *sql.Rows) (types.RegistryEntry, error) {
	var e types.RegistryEntry
	var kind string
	err := rows.Scan(&e.ID, &kind, &e.MatchKey, &e.DisplayValue, &e.Priority, &e.IsActive)
	e.Kind = types.RegistryKind(kind)
	return e, err
}

// LoadRegistries reads all four tables in insertion order. Transient
// failures are retried.
func (s *Store) LoadRegistries(ctx context.Context) (types.Registries, error) {
	var reg types.Registries
	err := s.retry(ctx, "load registries", func() error {
		reg = types.Registries{}
		rows, err := s.db.QueryContext(ctx, `SELECT `+registryColumns+` FROM registry_entries ORDER BY id`)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			e, err := scanEntry(rows)
			if err != nil {
				return err
			}
			switch e.Kind {
			case types.KindApplication:
				reg.Applications = append(reg.Applications, e)
			case types.KindStatus:
				reg.Statuses = append(reg.Statuses, e)
			case types.KindCategorization:
				reg.Categorizations = append(reg.Categorizations, e)
			case types.KindModule:
				reg.Modules = append(reg.Modules, e)
			default:
				s.log.WithField("kind", e.Kind).WithField("id", e.ID).Warn("skipping registry entry of unknown kind")
			}
		}
		return rows.Err()
	})
	if err != nil {
		return types.Registries{}, fmt.Errorf("load registries: %w", err)
	}
	return reg, nil
}

func (s *Store) ListRegistryEntries(ctx context.Context, kind types.RegistryKind) ([]types.RegistryEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+registryColumns+` FROM registry_entries WHERE kind = ? ORDER BY id`, string(kind))
	if err != nil {
		return nil, fmt.Errorf("list %s entries: %w", kind, err)
	}
	defer rows.Close()

	out := []types.RegistryEntry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan %s entry: %w", kind, err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// InsertRegistryEntry stores e and returns it with its assigned id.
func (s *Store) InsertRegistryEntry(ctx context.Context, e types.RegistryEntry) (types.RegistryEntry, error) {
	if strings.TrimSpace(e.MatchKey) == "" || strings.TrimSpace(e.DisplayValue) == "" {
		return types.RegistryEntry{}, fmt.Errorf("%w: match key and display value are required", ErrInvalidEntry)
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO registry_entries (kind, match_key, display_value, priority, is_active) VALUES (?, ?, ?, ?, ?)`,
		string(e.Kind), e.MatchKey, e.DisplayValue, e.Priority, e.IsActive,
	)
	if err != nil {
		return types.RegistryEntry{}, fmt.Errorf("insert %s entry: %w", e.Kind, err)
	}
	if e.ID, err = res.LastInsertId(); err != nil {
		return types.RegistryEntry{}, fmt.Errorf("insert %s entry: %w", e.Kind, err)
	}
	return e, nil
}

// SetRegistryEntryActive toggles an entry. ErrNotFound when no entry of that
// kind has the id.
func (s *Store) SetRegistryEntryActive(ctx context.Context, kind types.RegistryKind, id int64, active bool) error {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM registry_entries WHERE id = ? AND kind = ?`, id, string(kind)).Scan(&count)
	if err != nil {
		return fmt.Errorf("lookup %s entry %d: %w", kind, id, err)
	}
	if count == 0 {
		return fmt.Errorf("%s entry %d: %w", kind, id, ErrNotFound)
	}
	if _, err := s.db.ExecContext(ctx,
		`UPDATE registry_entries SET is_active = ? WHERE id = ? AND kind = ?`, active, id, string(kind)); err != nil {
		return fmt.Errorf("update %s entry %d: %w", kind, id, err)
	}
	return nil
}

func (s *Store) CountRegistryEntries(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM registry_entries`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count registry entries: %w", err)
	}
	return n, nil
}

type seedEntry struct {
	MatchKey     string `yaml:"match_key"`
	DisplayValue string `yaml:"display_value"`
	Priority     int    `yaml:"priority"`
	IsActive     *bool  `yaml:"is_active"`
}

type seedFile struct {
	Applications    []seedEntry `yaml:"applications"`
	Statuses        []seedEntry `yaml:"statuses"`
	Categorizations []seedEntry `yaml:"categorizations"`
	Modules         []seedEntry `yaml:"modules"`
}

func (f seedFile) of(kind types.RegistryKind) []seedEntry {
	switch kind {
	case types.KindApplication:
		return f.Applications
	case types.KindStatus:
		return f.Statuses
	case types.KindCategorization:
		return f.Categorizations
	case types.KindModule:
		return f.Modules
	}
	return nil
}

// SeedFromFile loads a YAML registry file into an empty registry table.
// It returns the number of inserted entries, zero when the table already
// has data. Entries default to active.
func (s *Store) SeedFromFile(ctx context.Context, path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read seed %s: %w", path, err)
	}
	var seed seedFile
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return 0, fmt.Errorf("parse seed %s: %w", path, err)
	}

	existing, err := s.CountRegistryEntries(ctx)
	if err != nil {
		return 0, err
	}
	if existing > 0 {
		s.log.WithField("existing", existing).Info("registry already populated, seed skipped")
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin seed: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO registry_entries (kind, match_key, display_value, priority, is_active) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("prepare seed: %w", err)
	}
	defer stmt.Close()

	inserted := 0
	for _, kind := range types.RegistryKinds {
		for _, e := range seed.of(kind) {
			active := e.IsActive == nil || *e.IsActive
			if _, err := stmt.ExecContext(ctx, string(kind), e.MatchKey, e.DisplayValue, e.Priority, active); err != nil {
				return inserted, fmt.Errorf("seed %s %q: %w", kind, e.MatchKey, err)
			}
			inserted++
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit seed: %w", err)
	}
	s.log.WithField("entries", inserted).WithField("path", path).Info("registry seeded")
	return inserted, nil
}

// IsNotFound reports whether err wraps ErrNotFound.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }
