package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"genecatalog/pkg/domain"
)

const preferenceBucket = "preferences"

type preferencePayload struct {
	Source domain.SourceID `json:"source"`
}

// PreferenceStore keeps the active source in a state(bucket, payload) table
// as a JSON document.
type PreferenceStore struct {
	db *sql.DB
}

// NewPreferenceStore opens (or creates) the preference database at path.
func NewPreferenceStore(path string) (*PreferenceStore, error) {
	if path == "" {
		path = DefaultPath
	}
	db, err := openDB(path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS state (
		bucket TEXT PRIMARY KEY,
		payload BLOB NOT NULL
	)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create state table: %w", err)
	}
	return &PreferenceStore{db: db}, nil
}

// LoadSource returns the saved source, or "" when none was saved.
func (p *PreferenceStore) LoadSource(ctx context.Context) (domain.SourceID, error) {
	var raw []byte
	err := p.db.QueryRowContext(ctx, `SELECT payload FROM state WHERE bucket = ?`, preferenceBucket).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("select preference: %w", err)
	}
	var payload preferencePayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return "", fmt.Errorf("decode preference: %w", err)
	}
	return payload.Source, nil
}

// SaveSource upserts the active source.
func (p *PreferenceStore) SaveSource(ctx context.Context, id domain.SourceID) error {
	data, err := json.Marshal(preferencePayload{Source: id})
	if err != nil {
		return err
	}
	if _, err := p.db.ExecContext(ctx, `INSERT INTO state(bucket,payload) VALUES(?,?) ON CONFLICT(bucket) DO UPDATE SET payload=excluded.payload`, preferenceBucket, data); err != nil {
		return fmt.Errorf("upsert preference: %w", err)
	}
	return nil
}

// Close closes the database.
func (p *PreferenceStore) Close() error { return p.db.Close() }
