package store

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carworth/carworth/internal/domain"
)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return sqlx.NewDb(db, "postgres"), mock
}

func TestPostgresTracking_GetNotFound(t *testing.T) {
	db, mock := newMockDB(t)
	s := NewPostgresTracking(db, time.Second)

	mock.ExpectQuery("FROM refresh_tracking WHERE vehicle_id").
		WithArgs("veh-1").
		WillReturnRows(sqlmock.NewRows([]string{"vehicle_id"}))

	_, err := s.Get(context.Background(), "veh-1")
	assert.ErrorIs(t, err, domain.ErrNotTracked)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresTracking_GetFound(t *testing.T) {
	db, mock := newMockDB(t)
	s := NewPostgresTracking(db, time.Second)

	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{
		"vehicle_id", "user_id", "year", "make", "model", "trim", "fuel_type", "drivetrain",
		"tier", "priority_flag", "last_auto_refresh_at", "next_scheduled_refresh_at",
		"last_manual_refresh_at", "manual_used_in_window", "manual_window_reset_at",
		"last_value", "previous_value", "added_at",
	}).AddRow(
		"veh-1", "user-1", 2021, "toyota", "camry", "", "", "",
		"weekly", false, nil, now.Add(24*time.Hour),
		nil, 0, nil,
		21_000.0, 20_500.0, now,
	)
	mock.ExpectQuery("FROM refresh_tracking WHERE vehicle_id").
		WithArgs("veh-1").
		WillReturnRows(rows)

	rec, err := s.Get(context.Background(), "veh-1")
	require.NoError(t, err)
	assert.Equal(t, "veh-1", rec.VehicleID)
	assert.Equal(t, domain.TierWeekly, rec.Tier)
	assert.Equal(t, 21_000.0, rec.LastValue)
	assert.True(t, rec.LastAutoRefreshAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresTracking_PutUpserts(t *testing.T) {
	db, mock := newMockDB(t)
	s := NewPostgresTracking(db, time.Second)

	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	rec := &domain.RefreshTrackingRecord{
		VehicleID:              "veh-1",
		UserID:                 "user-1",
		Vehicle:                domain.VehicleDescriptor{Year: 2021, Make: "toyota", Model: "camry"},
		Tier:                   domain.TierDaily,
		NextScheduledRefreshAt: now.Add(24 * time.Hour),
		LastValue:              21_000,
		AddedAt:                now,
	}

	mock.ExpectExec("INSERT INTO refresh_tracking").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, s.Put(context.Background(), rec))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresTracking_Delete(t *testing.T) {
	db, mock := newMockDB(t)
	s := NewPostgresTracking(db, time.Second)

	mock.ExpectExec("DELETE FROM refresh_tracking").
		WithArgs("veh-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, s.Delete(context.Background(), "veh-1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresTracking_DeleteMissing(t *testing.T) {
	db, mock := newMockDB(t)
	s := NewPostgresTracking(db, time.Second)

	mock.ExpectExec("DELETE FROM refresh_tracking").
		WithArgs("veh-ghost").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := s.Delete(context.Background(), "veh-ghost")
	assert.ErrorIs(t, err, domain.ErrNotTracked)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresTracking_ListDue(t *testing.T) {
	db, mock := newMockDB(t)
	s := NewPostgresTracking(db, time.Second)

	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery("WHERE next_scheduled_refresh_at").
		WithArgs(now, 10).
		WillReturnRows(sqlmock.NewRows([]string{"vehicle_id"}))

	due, err := s.ListDue(context.Background(), now, 10)
	require.NoError(t, err)
	assert.Empty(t, due)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresAlerts_FindActiveNone(t *testing.T) {
	db, mock := newMockDB(t)
	s := NewPostgresAlerts(db, time.Second)

	now := time.Now()
	mock.ExpectQuery("FROM market_shift_alerts").
		WithArgs("honda", "civic", now).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	alert, err := s.FindActive(context.Background(), "honda", "civic", now)
	require.NoError(t, err)
	assert.Nil(t, alert)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresAlerts_PutUpserts(t *testing.T) {
	db, mock := newMockDB(t)
	s := NewPostgresAlerts(db, time.Second)

	now := time.Now()
	alert := &domain.MarketShiftAlert{
		ID: "a1", Make: "honda", Model: "civic",
		YearStart: 2019, YearEnd: 2023,
		ShiftPercent: 4.0, Direction: domain.ShiftUp, IsActive: true,
		AffectedVehiclesCount: 1, DetectedAt: now, ExpiresAt: now.Add(7 * 24 * time.Hour),
	}

	mock.ExpectExec("INSERT INTO market_shift_alerts").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, s.Put(context.Background(), alert))
	assert.NoError(t, mock.ExpectationsWereMet())
}
