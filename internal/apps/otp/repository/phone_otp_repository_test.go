package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"otp-gateway/internal/apps/otp/models"
	"otp-gateway/internal/common/database/databasetest"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreate(t *testing.T) {
	db, mock := databasetest.NewMock(t)
	repo := NewPhoneOTPRepository(db)

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "login"."phone_otps"`)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	otp := &models.PhoneOTP{PhoneNumber: "+15551234", Code: "123456", ExpiresAt: time.Now().Add(5 * time.Minute)}
	require.NoError(t, repo.Create(context.Background(), otp))
	assert.NotEqual(t, uuid.Nil, otp.ID)
}

func TestSupersede(t *testing.T) {
	db, mock := databasetest.NewMock(t)
	repo := NewPhoneOTPRepository(db)
	now := time.Now()

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "login"."phone_otps" SET "used_at"=$1 WHERE phone_number = $2 AND used_at IS NULL`)).
		WithArgs(now, "+15551234").
		WillReturnResult(sqlmock.NewResult(0, 2))

	require.NoError(t, repo.Supersede(context.Background(), "+15551234", now))
}

func TestConsume(t *testing.T) {
	consumeSQL := regexp.QuoteMeta(`UPDATE "login"."phone_otps" SET "used_at"=$1 WHERE phone_number = $2 AND code = $3 AND expires_at > $4 AND used_at IS NULL`)

	t.Run("matching challenge", func(t *testing.T) {
		db, mock := databasetest.NewMock(t)
		repo := NewPhoneOTPRepository(db)
		now := time.Now()

		mock.ExpectExec(consumeSQL).
			WithArgs(now, "+15551234", "123456", now).
			WillReturnResult(sqlmock.NewResult(0, 1))

		ok, err := repo.Consume(context.Background(), "+15551234", "123456", now)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("wrong, expired or used", func(t *testing.T) {
		db, mock := databasetest.NewMock(t)
		repo := NewPhoneOTPRepository(db)

		mock.ExpectExec(consumeSQL).WillReturnResult(sqlmock.NewResult(0, 0))

		ok, err := repo.Consume(context.Background(), "+15551234", "000000", time.Now())
		require.NoError(t, err)
		assert.False(t, ok)
	})
}
