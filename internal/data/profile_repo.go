// Package data contains the PostgreSQL repositories for dashboard rows that
// live outside the identity provider.
package data

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/perch-hq/perch-ui-api/internal/data/pgxutil"
	"github.com/perch-hq/perch-ui-api/internal/domain/model"
	apperrors "github.com/perch-hq/perch-ui-api/internal/errors"
	"github.com/perch-hq/perch-ui-api/internal/ports"
)

// ProfileRepo provides profile rows keyed by the provider user ID.
type ProfileRepo struct {
	DB    *sql.DB
	Clock TimeProvider
}

// NewProfileRepo creates a new ProfileRepo.
func NewProfileRepo(db *sql.DB, clock TimeProvider) *ProfileRepo {
	if clock == nil {
		clock = &RealTimeProvider{}
	}
	return &ProfileRepo{DB: db, Clock: clock}
}

var _ ports.ProfileRepository = (*ProfileRepo)(nil)

const profileColumns = `user_id, display_name, avatar_url, marketing_opt_in, created_at, updated_at`

// Get fetches the profile for a user. A missing row maps to NotFound.
func (r *ProfileRepo) Get(ctx context.Context, userID string) (*model.Profile, error) {
	if userID == "" {
		return nil, apperrors.Validation("user ID is required")
	}

	var out model.Profile
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, `
			SELECT `+profileColumns+`
			FROM profiles WHERE user_id = $1`, userID)
		if err != nil {
			return err
		}
		defer rows.Close()
		out, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[model.Profile])
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", apperrors.MapDBError(err))
	}
	return &out, nil
}

// Upsert inserts or updates the profile row for the request's user.
func (r *ProfileRepo) Upsert(ctx context.Context, req *model.UpsertProfileRequest) (*model.Profile, error) {
	if err := req.Validate(); err != nil {
		return nil, apperrors.Validation(err.Error())
	}

	now := r.Clock.Now().UTC()
	displayName := strings.TrimSpace(req.DisplayName)

	var out model.Profile
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, `
			INSERT INTO profiles (user_id, display_name, avatar_url, marketing_opt_in, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $5)
			ON CONFLICT (user_id) DO UPDATE SET
				display_name = EXCLUDED.display_name,
				avatar_url = EXCLUDED.avatar_url,
				marketing_opt_in = EXCLUDED.marketing_opt_in,
				updated_at = EXCLUDED.updated_at
			RETURNING `+profileColumns,
			req.UserID, displayName, req.AvatarURL, req.MarketingOptIn, now)
		if err != nil {
			return err
		}
		defer rows.Close()
		out, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[model.Profile])
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("upsert profile: %w", apperrors.MapDBError(err))
	}
	return &out, nil
}
