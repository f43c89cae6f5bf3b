package repository

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"idauth-entitlement/pkg/db/option"
)

type widget struct {
	ID   string `gorm:"column:id;primaryKey"`
	Name string `gorm:"column:name"`
}

func newWidgetStore(t *testing.T) Repository[widget] {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&widget{}))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	return ProvideStore[widget](db)
}

func TestFindOneReturnsNilWhenAbsent(t *testing.T) {
	store := newWidgetStore(t)

	record, err := store.FindOne(context.Background(), &widget{ID: "missing"})
	require.NoError(t, err)
	require.Nil(t, record)
}

func TestFindOneReturnsRecord(t *testing.T) {
	store := newWidgetStore(t)
	require.NoError(t, store.Create(context.Background(), &widget{ID: "w-1", Name: "first"}))

	record, err := store.FindOne(context.Background(), &widget{ID: "w-1"})
	require.NoError(t, err)
	require.NotNil(t, record)
	require.Equal(t, "first", record.Name)
}

func TestSaveUpsertsByPrimaryKey(t *testing.T) {
	store := newWidgetStore(t)

	require.NoError(t, store.Save(context.Background(), &widget{ID: "w-1", Name: "first"}))
	require.NoError(t, store.Save(context.Background(), &widget{ID: "w-1", Name: "second"}))

	record, err := store.FindOne(context.Background(), &widget{ID: "w-1"})
	require.NoError(t, err)
	require.Equal(t, "second", record.Name)

	count, err := store.Count(context.Background(), &widget{})
	require.NoError(t, err)
	require.EqualValues(t, 1, count)
}

func TestUpdateMissingRecord(t *testing.T) {
	store := newWidgetStore(t)

	err := store.Update(context.Background(), "missing", map[string]any{"name": "x"})
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestFindWithOptions(t *testing.T) {
	store := newWidgetStore(t)
	ctx := context.Background()
	require.NoError(t, store.BatchCreate(ctx, []*widget{
		{ID: "w-1", Name: "b"},
		{ID: "w-2", Name: "a"},
		{ID: "w-3", Name: "c"},
	}))

	records, err := store.Find(ctx, &widget{}, option.WithOrder("name asc"), option.WithLimit(2))
	require.NoError(t, err)
	require.Len(t, records, 2)
	require.Equal(t, "a", records[0].Name)
	require.Equal(t, "b", records[1].Name)
}

func TestNilStoreGuards(t *testing.T) {
	var s Repository[widget] = &store[widget]{}

	_, err := s.FindOne(context.Background(), &widget{ID: "w-1"})
	require.ErrorIs(t, err, gorm.ErrInvalidDB)
}
