package database

import (
	"fmt"
	"sort"
	"time"

	"github.com/kdimtricp/emostim/internal/models"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type Migration struct {
	Version string
	Name    string
	Apply   func(tx *gorm.DB) error
}

// SchemaMigration records an applied migration version.
type SchemaMigration struct {
	Version   string `gorm:"type:varchar(255);primaryKey"`
	Name      string `gorm:"type:varchar(255)"`
	AppliedAt time.Time
}

func (SchemaMigration) TableName() string {
	return "schema_migrations"
}

var migrations = []Migration{
	{
		Version: "001",
		Name:    "create_participants",
		Apply: func(tx *gorm.DB) error {
			return tx.AutoMigrate(&models.Participant{})
		},
	},
	{
		Version: "002",
		Name:    "create_video_responses",
		Apply: func(tx *gorm.DB) error {
			return tx.AutoMigrate(&models.VideoResponse{})
		},
	},
}

type Migrator struct {
	db         *gorm.DB
	log        *logrus.Entry
	migrations []Migration
}

func NewMigrator(db *gorm.DB, log *logrus.Entry) *Migrator {
	sorted := make([]Migration, len(migrations))
	copy(sorted, migrations)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Version < sorted[j].Version
	})
	return &Migrator{db: db, log: log, migrations: sorted}
}

// Initialize creates the migrations tracking table if it doesn't exist
func (m *Migrator) Initialize() error {
	if err := m.db.AutoMigrate(&SchemaMigration{}); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}
	return nil
}

// GetAppliedMigrations returns a list of already applied migration versions
func (m *Migrator) GetAppliedMigrations() (map[string]bool, error) {
	var rows []SchemaMigration
	if err := m.db.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to query migrations: %w", err)
	}

	applied := make(map[string]bool, len(rows))
	for _, row := range rows {
		applied[row.Version] = true
	}
	return applied, nil
}

func (m *Migrator) Migrations() []Migration {
	return m.migrations
}

// ApplyMigration runs a single migration and records it. MySQL commits DDL
// implicitly, so the record is written only after the schema change succeeds.
func (m *Migrator) ApplyMigration(migration Migration) error {
	if err := migration.Apply(m.db); err != nil {
		return fmt.Errorf("failed to execute migration %s_%s: %w", migration.Version, migration.Name, err)
	}

	record := SchemaMigration{Version: migration.Version, Name: migration.Name, AppliedAt: time.Now().UTC()}
	if err := m.db.Create(&record).Error; err != nil {
		return fmt.Errorf("failed to record migration %s_%s: %w", migration.Version, migration.Name, err)
	}

	m.log.WithField("version", migration.Version).Infof("Applied migration: %s", migration.Name)
	return nil
}

// Run executes all pending migrations
func (m *Migrator) Run() error {
	if err := m.Initialize(); err != nil {
		return err
	}

	applied, err := m.GetAppliedMigrations()
	if err != nil {
		return err
	}

	pendingCount := 0
	for _, migration := range m.migrations {
		if applied[migration.Version] {
			continue
		}

		if err := m.ApplyMigration(migration); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
		pendingCount++
	}

	if pendingCount == 0 {
		m.log.Info("No pending migrations")
	} else {
		m.log.Infof("Successfully applied %d migration(s)", pendingCount)
	}

	return nil
}
