package database

import (
	"path/filepath"
	"sync"
	"testing"

	"github.com/krishkalaria12/cropcare/logger"
	"github.com/krishkalaria12/cropcare/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

func TestConnectSQLiteAndMigrate(t *testing.T) {
	db, err := Connect(Options{Driver: "sqlite", DSN: filepath.Join(t.TempDir(), "test.db")}, logger.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = Close(db) })

	require.NoError(t, Migrate(db))
	for _, table := range []string{"profiles", "plant_images", "predictions"} {
		assert.True(t, db.Migrator().HasTable(table), table)
	}

	user := models.User{Email: "grower@example.com", PasswordHash: "x"}
	require.NoError(t, db.Create(&user).Error)
	assert.NotEqual(t, "", user.ID.String())
}

func TestConnectUnknownDriver(t *testing.T) {
	_, err := Connect(Options{Driver: "oracle", DSN: "x"}, logger.Nop())
	assert.ErrorContains(t, err, "unsupported database driver")
}

func TestDuplicateEmailIsTranslated(t *testing.T) {
	db, err := Connect(Options{Driver: "sqlite", DSN: filepath.Join(t.TempDir(), "test.db")}, logger.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = Close(db) })
	require.NoError(t, Migrate(db))

	require.NoError(t, db.Create(&models.User{Email: "grower@example.com", PasswordHash: "x"}).Error)
	err = db.Create(&models.User{Email: "grower@example.com", PasswordHash: "y"}).Error
	assert.ErrorIs(t, err, gorm.ErrDuplicatedKey)
}

// Indexed string columns must map to a sized type on MySQL, which cannot index TEXT without a key length.
func TestMySQLIndexedColumnsAreSized(t *testing.T) {
	d := mysql.New(mysql.Config{DSN: "user:pass@tcp(127.0.0.1:3306)/cropcare", SkipInitializeWithVersion: true})

	cases := []struct {
		model any
		field string
	}{
		{&models.PlantImage{}, "StoragePath"},
		{&models.PlantImage{}, "OwnerID"},
		{&models.User{}, "Email"},
		{&models.Prediction{}, "DiseaseName"},
		{&models.Prediction{}, "PlantImageID"},
	}
	for _, tc := range cases {
		s, err := schema.Parse(tc.model, &sync.Map{}, schema.NamingStrategy{})
		require.NoError(t, err)
		f := s.LookUpField(tc.field)
		require.NotNil(t, f, tc.field)

		typ := d.DataTypeOf(f)
		assert.Contains(t, typ, "varchar", "%s maps to %s", tc.field, typ)
	}
}
