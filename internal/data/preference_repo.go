package data

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/perch-hq/perch-ui-api/internal/data/pgxutil"
	"github.com/perch-hq/perch-ui-api/internal/domain/model"
	apperrors "github.com/perch-hq/perch-ui-api/internal/errors"
	"github.com/perch-hq/perch-ui-api/internal/ports"
)

// PreferenceRepo provides notification preference rows keyed by the provider
// user ID. A user without a row simply has never saved preferences; the
// service layer substitutes defaults.
type PreferenceRepo struct {
	DB    *sql.DB
	Clock TimeProvider
}

// NewPreferenceRepo creates a new PreferenceRepo.
func NewPreferenceRepo(db *sql.DB, clock TimeProvider) *PreferenceRepo {
	if clock == nil {
		clock = &RealTimeProvider{}
	}
	return &PreferenceRepo{DB: db, Clock: clock}
}

var _ ports.PreferenceRepository = (*PreferenceRepo)(nil)

const preferenceColumns = `user_id, email_enabled, push_enabled, product_updates, updated_at`

// Get fetches the preferences for a user. A missing row maps to NotFound.
func (r *PreferenceRepo) Get(ctx context.Context, userID string) (*model.NotificationPreferences, error) {
	if userID == "" {
		return nil, apperrors.Validation("user ID is required")
	}

	var out model.NotificationPreferences
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, `
			SELECT `+preferenceColumns+`
			FROM notification_preferences WHERE user_id = $1`, userID)
		if err != nil {
			return err
		}
		defer rows.Close()
		out, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[model.NotificationPreferences])
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("get preferences: %w", apperrors.MapDBError(err))
	}
	return &out, nil
}

// Upsert inserts or updates the preferences row for the request's user.
func (r *PreferenceRepo) Upsert(ctx context.Context, req *model.UpsertPreferencesRequest) (*model.NotificationPreferences, error) {
	if err := req.Validate(); err != nil {
		return nil, apperrors.Validation(err.Error())
	}

	now := r.Clock.Now().UTC()

	var out model.NotificationPreferences
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, `
			INSERT INTO notification_preferences (user_id, email_enabled, push_enabled, product_updates, updated_at)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (user_id) DO UPDATE SET
				email_enabled = EXCLUDED.email_enabled,
				push_enabled = EXCLUDED.push_enabled,
				product_updates = EXCLUDED.product_updates,
				updated_at = EXCLUDED.updated_at
			RETURNING `+preferenceColumns,
			req.UserID, req.EmailEnabled, req.PushEnabled, req.ProductUpdates, now)
		if err != nil {
			return err
		}
		defer rows.Close()
		out, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[model.NotificationPreferences])
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("upsert preferences: %w", apperrors.MapDBError(err))
	}
	return &out, nil
}
