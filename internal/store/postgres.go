package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/carworth/carworth/internal/domain"
)

// PostgresTracking implements TrackingStore over PostgreSQL.
type PostgresTracking struct {
	db      *sqlx.DB
	timeout time.Duration
}

// NewPostgresTracking wraps an open sqlx handle.
func NewPostgresTracking(db *sqlx.DB, timeout time.Duration) *PostgresTracking {
	return &PostgresTracking{db: db, timeout: timeout}
}

type trackingRow struct {
	VehicleID  string `db:"vehicle_id"`
	UserID     string `db:"user_id"`
	Year       int    `db:"year"`
	Make       string `db:"make"`
	Model      string `db:"model"`
	Trim       string `db:"trim"`
	FuelType   string `db:"fuel_type"`
	Drivetrain string `db:"drivetrain"`

	Tier         string `db:"tier"`
	PriorityFlag bool   `db:"priority_flag"`

	LastAutoRefreshAt      sql.NullTime `db:"last_auto_refresh_at"`
	NextScheduledRefreshAt time.Time    `db:"next_scheduled_refresh_at"`
	LastManualRefreshAt    sql.NullTime `db:"last_manual_refresh_at"`
	ManualUsedInWindow     int          `db:"manual_used_in_window"`
	ManualWindowResetAt    sql.NullTime `db:"manual_window_reset_at"`

	LastValue     float64   `db:"last_value"`
	PreviousValue float64   `db:"previous_value"`
	AddedAt       time.Time `db:"added_at"`
}

func (r trackingRow) toDomain() *domain.RefreshTrackingRecord {
	return &domain.RefreshTrackingRecord{
		VehicleID: r.VehicleID,
		UserID:    r.UserID,
		Vehicle: domain.VehicleDescriptor{
			Year:       r.Year,
			Make:       r.Make,
			Model:      r.Model,
			Trim:       r.Trim,
			FuelType:   r.FuelType,
			Drivetrain: r.Drivetrain,
		},
		Tier:                        domain.RefreshTier(r.Tier),
		PriorityFlag:                r.PriorityFlag,
		LastAutoRefreshAt:           r.LastAutoRefreshAt.Time,
		NextScheduledRefreshAt:      r.NextScheduledRefreshAt,
		LastManualRefreshAt:         r.LastManualRefreshAt.Time,
		ManualRefreshesUsedInWindow: r.ManualUsedInWindow,
		ManualRefreshWindowResetAt:  r.ManualWindowResetAt.Time,
		LastValue:                   r.LastValue,
		PreviousValue:               r.PreviousValue,
		AddedAt:                     r.AddedAt,
	}
}

const trackingColumns = `vehicle_id, user_id, year, make, model, trim, fuel_type, drivetrain,
	tier, priority_flag, last_auto_refresh_at, next_scheduled_refresh_at,
	last_manual_refresh_at, manual_used_in_window, manual_window_reset_at,
	last_value, previous_value, added_at`

func (s *PostgresTracking) Get(ctx context.Context, vehicleID string) (*domain.RefreshTrackingRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var row trackingRow
	query := `SELECT ` + trackingColumns + ` FROM refresh_tracking WHERE vehicle_id = $1`
	if err := s.db.GetContext(ctx, &row, query, vehicleID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotTracked
		}
		return nil, fmt.Errorf("get tracking record: %w", err)
	}
	return row.toDomain(), nil
}

func (s *PostgresTracking) Put(ctx context.Context, rec *domain.RefreshTrackingRecord) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	query := `
		INSERT INTO refresh_tracking (` + trackingColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		ON CONFLICT (vehicle_id) DO UPDATE SET
			tier = EXCLUDED.tier,
			priority_flag = EXCLUDED.priority_flag,
			last_auto_refresh_at = EXCLUDED.last_auto_refresh_at,
			next_scheduled_refresh_at = EXCLUDED.next_scheduled_refresh_at,
			last_manual_refresh_at = EXCLUDED.last_manual_refresh_at,
			manual_used_in_window = EXCLUDED.manual_used_in_window,
			manual_window_reset_at = EXCLUDED.manual_window_reset_at,
			last_value = EXCLUDED.last_value,
			previous_value = EXCLUDED.previous_value`

	_, err := s.db.ExecContext(ctx, query,
		rec.VehicleID, rec.UserID,
		rec.Vehicle.Year, rec.Vehicle.Make, rec.Vehicle.Model, rec.Vehicle.Trim,
		rec.Vehicle.FuelType, rec.Vehicle.Drivetrain,
		string(rec.Tier), rec.PriorityFlag,
		nullTime(rec.LastAutoRefreshAt), rec.NextScheduledRefreshAt,
		nullTime(rec.LastManualRefreshAt), rec.ManualRefreshesUsedInWindow,
		nullTime(rec.ManualRefreshWindowResetAt),
		rec.LastValue, rec.PreviousValue, rec.AddedAt)
	if err != nil {
		return fmt.Errorf("upsert tracking record: %w", err)
	}
	return nil
}

func (s *PostgresTracking) Delete(ctx context.Context, vehicleID string) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	res, err := s.db.ExecContext(ctx, `DELETE FROM refresh_tracking WHERE vehicle_id = $1`, vehicleID)
	if err != nil {
		return fmt.Errorf("delete tracking record: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.ErrNotTracked
	}
	return nil
}

func (s *PostgresTracking) ListByUser(ctx context.Context, userID string) ([]*domain.RefreshTrackingRecord, error) {
	query := `SELECT ` + trackingColumns + ` FROM refresh_tracking
		WHERE user_id = $1 ORDER BY added_at`
	return s.list(ctx, query, userID)
}

func (s *PostgresTracking) ListDue(ctx context.Context, now time.Time, limit int) ([]*domain.RefreshTrackingRecord, error) {
	query := `SELECT ` + trackingColumns + ` FROM refresh_tracking
		WHERE next_scheduled_refresh_at <= $1
		ORDER BY priority_flag DESC, next_scheduled_refresh_at ASC
		LIMIT $2`
	return s.list(ctx, query, now, limit)
}

func (s *PostgresTracking) ListByScope(ctx context.Context, mk, model string, yearStart, yearEnd int) ([]*domain.RefreshTrackingRecord, error) {
	query := `SELECT ` + trackingColumns + ` FROM refresh_tracking
		WHERE lower(make) = lower($1) AND lower(model) = lower($2)
		AND year BETWEEN $3 AND $4
		ORDER BY vehicle_id`
	return s.list(ctx, query, mk, model, yearStart, yearEnd)
}

func (s *PostgresTracking) list(ctx context.Context, query string, args ...interface{}) ([]*domain.RefreshTrackingRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var rows []trackingRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list tracking records: %w", err)
	}
	out := make([]*domain.RefreshTrackingRecord, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

// PostgresAlerts implements AlertStore over PostgreSQL.
type PostgresAlerts struct {
	db      *sqlx.DB
	timeout time.Duration
}

// NewPostgresAlerts wraps an open sqlx handle.
func NewPostgresAlerts(db *sqlx.DB, timeout time.Duration) *PostgresAlerts {
	return &PostgresAlerts{db: db, timeout: timeout}
}

const alertColumns = `id, make, model, year_start, year_end, shift_percent, direction,
	is_active, affected_vehicles, refreshes_triggered, detected_at, expires_at`

func (s *PostgresAlerts) FindActive(ctx context.Context, mk, model string, now time.Time) (*domain.MarketShiftAlert, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var alert domain.MarketShiftAlert
	query := `SELECT ` + alertColumns + ` FROM market_shift_alerts
		WHERE lower(make) = lower($1) AND lower(model) = lower($2)
		AND is_active AND expires_at > $3
		ORDER BY detected_at DESC LIMIT 1`
	if err := s.db.GetContext(ctx, &alert, query, mk, model, now); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find active alert: %w", err)
	}
	return &alert, nil
}

func (s *PostgresAlerts) Get(ctx context.Context, id string) (*domain.MarketShiftAlert, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var alert domain.MarketShiftAlert
	query := `SELECT ` + alertColumns + ` FROM market_shift_alerts WHERE id = $1`
	if err := s.db.GetContext(ctx, &alert, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get alert: %w", err)
	}
	return &alert, nil
}

func (s *PostgresAlerts) Put(ctx context.Context, alert *domain.MarketShiftAlert) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	query := `
		INSERT INTO market_shift_alerts (` + alertColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO UPDATE SET
			shift_percent = EXCLUDED.shift_percent,
			is_active = EXCLUDED.is_active,
			affected_vehicles = EXCLUDED.affected_vehicles,
			refreshes_triggered = EXCLUDED.refreshes_triggered,
			expires_at = EXCLUDED.expires_at`

	_, err := s.db.ExecContext(ctx, query,
		alert.ID, alert.Make, alert.Model, alert.YearStart, alert.YearEnd,
		alert.ShiftPercent, string(alert.Direction), alert.IsActive,
		alert.AffectedVehiclesCount, alert.RefreshesTriggered,
		alert.DetectedAt, alert.ExpiresAt)
	if err != nil {
		return fmt.Errorf("upsert alert: %w", err)
	}
	return nil
}

func (s *PostgresAlerts) ListActive(ctx context.Context, now time.Time) ([]domain.MarketShiftAlert, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var alerts []domain.MarketShiftAlert
	query := `SELECT ` + alertColumns + ` FROM market_shift_alerts
		WHERE is_active AND expires_at > $1 ORDER BY detected_at`
	if err := s.db.SelectContext(ctx, &alerts, query, now); err != nil {
		return nil, fmt.Errorf("list active alerts: %w", err)
	}
	return alerts, nil
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}
