package cachestore

import (
	"context"
	"os"

	"ghasexport/internal/record"

	"github.com/m-mizutani/goerr/v2"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const sqliteTable = "repositories"

// SQLiteStore keeps one SQLite database per organization: <dir>/<org>.db.
// The database is opened per call so no handle outlives a flush.
type SQLiteStore struct {
	dir string
}

type repositoryRow struct {
	Name           string  `gorm:"column:name;primaryKey;size:255"`
	Owner          string  `gorm:"column:owner;size:255;not null"`
	CodeScanning   *int    `gorm:"column:code_scanning"`
	Dependabot     *int    `gorm:"column:dependabot"`
	SecretScanning *int    `gorm:"column:secret_scanning"`
	Error          *string `gorm:"column:error;type:text"`
}

func NewSQLiteStore(dir string) *SQLiteStore {
	return &SQLiteStore{dir: dir}
}

func (s *SQLiteStore) Path(org string) string {
	return orgPath(s.dir, org, ".db")
}

func (s *SQLiteStore) Load(ctx context.Context, org string) (Cache, error) {
	db, closeDB, err := s.open(org)
	if err != nil {
		return nil, err
	}
	defer closeDB()

	var rows []repositoryRow
	if err := db.WithContext(ctx).Table(sqliteTable).Find(&rows).Error; err != nil {
		return nil, goerr.Wrap(err, "failed to read cache database", goerr.V("path", s.Path(org)))
	}

	c := make(Cache, len(rows))
	for _, r := range rows {
		c[r.Name] = record.FromValues(r.Owner, r.Name, r.CodeScanning, r.Dependabot, r.SecretScanning, r.Error)
	}
	return c, nil
}

func (s *SQLiteStore) Save(ctx context.Context, org string, c Cache) error {
	db, closeDB, err := s.open(org)
	if err != nil {
		return err
	}
	defer closeDB()

	rows := make([]repositoryRow, 0, len(c))
	for name, rec := range c {
		rows = append(rows, toRow(name, rec))
	}

	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Table(sqliteTable).Where("1 = 1").Delete(&repositoryRow{}).Error; err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		return tx.Table(sqliteTable).CreateInBatches(rows, 200).Error
	})
	if err != nil {
		return goerr.Wrap(err, "failed to write cache database", goerr.V("path", s.Path(org)))
	}
	return nil
}

func (s *SQLiteStore) open(org string) (*gorm.DB, func(), error) {
	path := s.Path(org)
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return nil, nil, goerr.Wrap(err, "failed to create cache directory", goerr.V("dir", s.dir))
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, nil, goerr.Wrap(err, "failed to open cache database", goerr.V("path", path))
	}
	closeDB := func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	if err := db.Table(sqliteTable).AutoMigrate(&repositoryRow{}); err != nil {
		closeDB()
		return nil, nil, goerr.Wrap(err, "failed to migrate cache database", goerr.V("path", path))
	}
	return db, closeDB, nil
}

func toRow(name string, rec record.Record) repositoryRow {
	row := repositoryRow{
		Name:           name,
		Owner:          rec.Owner,
		CodeScanning:   rec.CodeScanning.Value(),
		Dependabot:     rec.Dependabot.Value(),
		SecretScanning: rec.SecretScanning.Value(),
	}
	if rec.Error != "" {
		msg := rec.Error
		row.Error = &msg
	}
	return row
}
