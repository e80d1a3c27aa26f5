// Package catalog records reduced measurements in a SQLite database.
package catalog

import (
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"opticmetro/internal/models"
)

// schema.sql creates the measurements table and the header_fields table
// holding every decoded header entry of a measurement.
//
//go:embed schema.sql
var schemaSQL string

// ErrNotFound is returned when no measurement has the requested ID
var ErrNotFound = errors.New("catalog: measurement not found")

// Record is one reduced measurement.
type Record struct {
	ID           string
	Path         string
	HeaderFormat int
	PartName     string
	PartSerial   string
	Wavelength   float64
	LateralRes   float64
	Width        int
	Height       int
	ValidPoints  int
	RMS          float64
	PV           float64
	Removal      string
	CreatedAt    int64
}

// Store is a catalog backed by a SQLite file
type Store struct {
	db *sql.DB
}

// Open opens or creates the catalog at path
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// a single connection serialises writers and keeps ":memory:" databases
	// shared across calls
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("create catalog schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database
func (s *Store) Close() error {
	return s.db.Close()
}

// Insert stores rec and the fields of hdr. An empty ID is replaced with a
// new UUID and a zero CreatedAt with the current time.
func (s *Store) Insert(rec *Record, hdr *models.Header) error {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if rec.CreatedAt == 0 {
		rec.CreatedAt = time.Now().UnixNano()
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin insert: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO measurements (
			id, path, header_format, part_name, part_ser_num,
			wavelength, lateral_res, width, height, valid_points,
			rms, pv, removal, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Path, rec.HeaderFormat, rec.PartName, rec.PartSerial,
		nullFloat(rec.Wavelength), nullFloat(rec.LateralRes), rec.Width, rec.Height, rec.ValidPoints,
		nullFloat(rec.RMS), nullFloat(rec.PV), rec.Removal, rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert measurement: %w", err)
	}

	if hdr != nil {
		stmt, err := tx.Prepare(`
			INSERT INTO header_fields (measurement_id, position, name, kind, value)
			VALUES (?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("prepare header insert: %w", err)
		}
		defer stmt.Close()

		for i, f := range hdr.Fields() {
			kind, value, err := encodeValue(f.Value)
			if err != nil {
				return fmt.Errorf("header field %s: %w", f.Name, err)
			}
			if _, err := stmt.Exec(rec.ID, i, f.Name, kind, value); err != nil {
				return fmt.Errorf("insert header field %s: %w", f.Name, err)
			}
		}
	}

	return tx.Commit()
}

const selectRecord = `
	SELECT id, path, header_format, part_name, part_ser_num,
	       wavelength, lateral_res, width, height, valid_points,
	       rms, pv, removal, created_at
	FROM measurements`

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (*Record, error) {
	var r Record
	var wavelength, lateralRes, rms, pv sql.NullFloat64
	err := row.Scan(
		&r.ID, &r.Path, &r.HeaderFormat, &r.PartName, &r.PartSerial,
		&wavelength, &lateralRes, &r.Width, &r.Height, &r.ValidPoints,
		&rms, &pv, &r.Removal, &r.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	r.Wavelength = floatOrNaN(wavelength)
	r.LateralRes = floatOrNaN(lateralRes)
	r.RMS = floatOrNaN(rms)
	r.PV = floatOrNaN(pv)
	return &r, nil
}

// Get returns the measurement with the given ID
func (s *Store) Get(id string) (*Record, error) {
	r, err := scanRecord(s.db.QueryRow(selectRecord+` WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("scan measurement: %w", err)
	}
	return r, nil
}

// List returns every measurement, newest first
func (s *Store) List() ([]*Record, error) {
	rows, err := s.db.Query(selectRecord + ` ORDER BY created_at DESC, rowid DESC`)
	if err != nil {
		return nil, fmt.Errorf("query measurements: %w", err)
	}
	defer rows.Close()

	var records []*Record
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan measurement: %w", err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// HeaderFields returns the stored header of a measurement in its original
// field order.
func (s *Store) HeaderFields(id string) ([]models.HeaderField, error) {
	rows, err := s.db.Query(`
		SELECT name, kind, value FROM header_fields
		WHERE measurement_id = ?
		ORDER BY position`, id)
	if err != nil {
		return nil, fmt.Errorf("query header fields: %w", err)
	}
	defer rows.Close()

	var fields []models.HeaderField
	for rows.Next() {
		var name, kind, value string
		if err := rows.Scan(&name, &kind, &value); err != nil {
			return nil, fmt.Errorf("scan header field: %w", err)
		}
		v, err := decodeValue(kind, value)
		if err != nil {
			return nil, fmt.Errorf("header field %s: %w", name, err)
		}
		fields = append(fields, models.HeaderField{Name: name, Value: v})
	}
	return fields, rows.Err()
}

// SQLite stores NaN as NULL
func nullFloat(f float64) any {
	if math.IsNaN(f) {
		return nil
	}
	return f
}

func floatOrNaN(f sql.NullFloat64) float64 {
	if !f.Valid {
		return math.NaN()
	}
	return f.Float64
}
