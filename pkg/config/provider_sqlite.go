package config

import (
	"database/sql"
	"embed"
	"fmt"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/chrissnell/candoverview/pkg/migrate"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Migrations returns the migrator for the run_configs schema of db.
func Migrations(db *sql.DB, logger *zap.SugaredLogger) *migrate.Migrator {
	return migrate.NewMigrator(db, migrate.NewFSProvider(migrations, "migrations", "schema_migrations"), logger)
}

// DefaultProfile is the run_configs row read by LoadConfig.
const DefaultProfile = "default"

// SQLiteProvider implements ConfigProvider for SQLite database configuration
type SQLiteProvider struct {
	db      *sql.DB
	dbPath  string
	profile string
}

// NewSQLiteProvider creates a new SQLite configuration provider reading
// the default profile.
func NewSQLiteProvider(dbPath string) (*SQLiteProvider, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping SQLite database: %w", err)
	}

	if err := Migrations(db, nil).MigrateUp(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate run_configs schema: %w", err)
	}

	return &SQLiteProvider{
		db:      db,
		dbPath:  dbPath,
		profile: DefaultProfile,
	}, nil
}

// WithProfile switches the provider to another named run_configs row.
func (s *SQLiteProvider) WithProfile(name string) *SQLiteProvider {
	s.profile = name
	return s
}

// LoadConfig loads the profile's row. NULL columns are left unset.
func (s *SQLiteProvider) LoadConfig() (*ConfigData, error) {
	query := `
		SELECT nbeams, snr_cut, beam_mask, nbeams_cut, members_cut,
		       dm_cut, filter_cut, filter_max, min_bins
		FROM run_configs
		WHERE name = ?
	`

	var nbeams, beamMask, nbeamsCut, membersCut, filterCut, filterMax, minBins sql.NullInt64
	var snrCut, dmCut sql.NullFloat64

	err := s.db.QueryRow(query, s.profile).Scan(
		&nbeams, &snrCut, &beamMask, &nbeamsCut, &membersCut,
		&dmCut, &filterCut, &filterMax, &minBins,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("no run configuration named %q in %s", s.profile, s.dbPath)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query run configuration: %w", err)
	}

	config := &ConfigData{
		NBeams:     nullInt(nbeams),
		SNRCut:     nullFloat(snrCut),
		NBeamsCut:  nullInt(nbeamsCut),
		MembersCut: nullInt(membersCut),
		DMCut:      nullFloat(dmCut),
		FilterCut:  nullInt(filterCut),
		FilterMax:  nullInt(filterMax),
		MinBins:    nullInt(minBins),
	}
	if beamMask.Valid {
		mask := uint64(beamMask.Int64)
		config.BeamMask = &mask
	}

	return config, nil
}

// SaveConfig writes config as the provider's profile, replacing any
// existing row.
func (s *SQLiteProvider) SaveConfig(config *ConfigData) error {
	query := `
		INSERT INTO run_configs (
			name, nbeams, snr_cut, beam_mask, nbeams_cut, members_cut,
			dm_cut, filter_cut, filter_max, min_bins
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (name)
		DO UPDATE SET
			nbeams = EXCLUDED.nbeams,
			snr_cut = EXCLUDED.snr_cut,
			beam_mask = EXCLUDED.beam_mask,
			nbeams_cut = EXCLUDED.nbeams_cut,
			members_cut = EXCLUDED.members_cut,
			dm_cut = EXCLUDED.dm_cut,
			filter_cut = EXCLUDED.filter_cut,
			filter_max = EXCLUDED.filter_max,
			min_bins = EXCLUDED.min_bins
	`

	var beamMask sql.NullInt64
	if config.BeamMask != nil {
		beamMask = sql.NullInt64{Int64: int64(*config.BeamMask), Valid: true}
	}

	_, err := s.db.Exec(query, s.profile,
		toNullInt(config.NBeams), toNullFloat(config.SNRCut), beamMask,
		toNullInt(config.NBeamsCut), toNullInt(config.MembersCut),
		toNullFloat(config.DMCut), toNullInt(config.FilterCut),
		toNullInt(config.FilterMax), toNullInt(config.MinBins),
	)
	if err != nil {
		return fmt.Errorf("failed to save run configuration: %w", err)
	}
	return nil
}

// IsReadOnly returns false since SQLite supports write operations
func (s *SQLiteProvider) IsReadOnly() bool {
	return false
}

// Close closes the database connection
func (s *SQLiteProvider) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func nullInt(n sql.NullInt64) *int {
	if !n.Valid {
		return nil
	}
	v := int(n.Int64)
	return &v
}

func nullFloat(f sql.NullFloat64) *float64 {
	if !f.Valid {
		return nil
	}
	v := f.Float64
	return &v
}

func toNullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

func toNullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}
