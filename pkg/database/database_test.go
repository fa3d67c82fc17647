package database

import (
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type widget struct {
	ID   uint   `gorm:"primaryKey"`
	Name string `gorm:"uniqueIndex"`
}

func TestOpen_SQLite(t *testing.T) {
	log := logrus.New()
	db, err := Open(Config{Driver: "sqlite", DSN: filepath.Join(t.TempDir(), "test.db")}, log, &widget{})
	require.NoError(t, err)
	defer Close(db)

	require.NoError(t, db.Create(&widget{Name: "a"}).Error)

	err = db.Create(&widget{Name: "a"}).Error
	assert.ErrorIs(t, err, gorm.ErrDuplicatedKey, "driver errors are translated")
}

func TestOpen_UnsupportedDriver(t *testing.T) {
	_, err := Open(Config{Driver: "oracle", DSN: "x"}, logrus.New())
	assert.EqualError(t, err, `unsupported database driver "oracle"`)
}

func TestGormLevel(t *testing.T) {
	assert.Equal(t, logger.Info, gormLevel(logrus.DebugLevel))
	assert.Equal(t, logger.Warn, gormLevel(logrus.InfoLevel))
	assert.Equal(t, logger.Error, gormLevel(logrus.ErrorLevel))
}
