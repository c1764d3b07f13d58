package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"otp-gateway/internal/apps/plan/models"
	"otp-gateway/internal/common/database/databasetest"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var planColumns = []string{
	"id", "name", "price_usd", "max_budget", "rpm_limit", "tpm_limit", "max_parallel_requests", "created_at", "updated_at",
}

func TestUpsert_OnConflictName(t *testing.T) {
	db, mock := databasetest.NewMock(t)
	repo := NewPlanRepository(db)

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "login"."subscription_plans"`) + `.*` +
		regexp.QuoteMeta(`ON CONFLICT ("name") DO UPDATE SET`)).
		WillReturnResult(sqlmock.NewResult(0, 4))

	err := repo.Upsert(context.Background(), models.DefaultCatalog())
	require.NoError(t, err)
}

func TestUpsert_Empty(t *testing.T) {
	db, _ := databasetest.NewMock(t)
	repo := NewPlanRepository(db)

	assert.NoError(t, repo.Upsert(context.Background(), nil))
}

func TestFindAll_OrderedByPrice(t *testing.T) {
	db, mock := databasetest.NewMock(t)
	repo := NewPlanRepository(db)
	now := time.Now()

	rows := sqlmock.NewRows(planColumns).
		AddRow(uuid.New().String(), "free", "0.00", nil, 2, 1000, 1, now, now).
		AddRow(uuid.New().String(), "basic", "2.00", "2.00", 10, 10000, 3, now, now)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "login"."subscription_plans" ORDER BY price_usd ASC`)).
		WillReturnRows(rows)

	plans, err := repo.FindAll(context.Background())
	require.NoError(t, err)
	require.Len(t, plans, 2)
	assert.Equal(t, "free", plans[0].Name)
	assert.False(t, plans[0].MaxBudget.Valid)
	assert.Equal(t, "basic", plans[1].Name)
	assert.True(t, plans[1].MaxBudget.Valid)
	assert.Equal(t, int64(200), plans[1].PriceCents())
}

func TestFindByName_NotFound(t *testing.T) {
	db, mock := databasetest.NewMock(t)
	repo := NewPlanRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "login"."subscription_plans" WHERE name = $1`)).
		WillReturnRows(sqlmock.NewRows(planColumns))

	_, err := repo.FindByName(context.Background(), "enterprise")
	assert.True(t, errors.Is(err, gorm.ErrRecordNotFound))
}

func TestFindByName_Found(t *testing.T) {
	db, mock := databasetest.NewMock(t)
	repo := NewPlanRepository(db)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "login"."subscription_plans" WHERE name = $1`)).
		WillReturnRows(sqlmock.NewRows(planColumns).
			AddRow(uuid.New().String(), "pro", "5.00", "5.00", 50, 50000, 5, now, now))

	plan, err := repo.FindByName(context.Background(), "pro")
	require.NoError(t, err)
	assert.Equal(t, 50, plan.RPMLimit)
	require.NotNil(t, plan.Budget())
	assert.Equal(t, 5.0, *plan.Budget())
}
