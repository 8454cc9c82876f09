package db

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"fleetcare/internal/types"
)

// UserRepository provides read access to the users table for the overdue scan
// and prunes expired push registrations.
type UserRepository struct {
	db DBTX
}

// NewUserRepository creates a new UserRepository backed by the given
// database connection (pool or transaction).
func NewUserRepository(db DBTX) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = `u.id, u.email, u.name, u.email_verified, u.email_reminders, u.push_reminders`

// eligibleUser keeps users with at least one usable reminder channel: a
// verified email with reminders on, or push reminders on with a registration.
const eligibleUser = `((u.email_verified AND u.email_reminders AND u.email <> '')
		   OR (u.push_reminders AND EXISTS (
		       SELECT 1 FROM push_registrations pr WHERE pr.user_id = u.id)))`

func scanUser(row pgx.Row) (*types.User, error) {
	var (
		u    types.User
		name *string
	)
	if err := row.Scan(&u.ID, &u.Email, &name, &u.EmailVerified, &u.EmailReminders, &u.PushReminders); err != nil {
		return nil, err
	}
	if name != nil {
		u.Name = *name
	}
	return &u, nil
}

// ListEligible returns up to limit users with a usable reminder channel,
// ordered by ID and starting after afterID (keyset pagination). Push
// registrations are hydrated for every returned user.
func (r *UserRepository) ListEligible(ctx context.Context, afterID string, limit int) ([]types.User, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+userColumns+`
		 FROM users u
		 WHERE u.id > $1 AND `+eligibleUser+`
		 ORDER BY u.id
		 LIMIT $2`,
		afterID,
		limit,
	)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to list eligible users", err)
	}
	defer rows.Close()

	var users []types.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to scan user", err)
		}
		users = append(users, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "error iterating users", err)
	}

	if err := r.attachRegistrations(ctx, users); err != nil {
		return nil, err
	}
	return users, nil
}

// GetEligible returns a single user with a usable reminder channel, with push
// registrations attached.
func (r *UserRepository) GetEligible(ctx context.Context, userID string) (*types.User, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+userColumns+`
		 FROM users u
		 WHERE u.id = $1 AND `+eligibleUser,
		userID,
	)
	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.NewAppError(types.ErrCodeNotFoundUser, "user not found", nil)
		}
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to retrieve user", err)
	}

	users := []types.User{*u}
	if err := r.attachRegistrations(ctx, users); err != nil {
		return nil, err
	}
	return &users[0], nil
}

func (r *UserRepository) attachRegistrations(ctx context.Context, users []types.User) error {
	if len(users) == 0 {
		return nil
	}
	ids := make([]string, len(users))
	index := make(map[string]int, len(users))
	for i, u := range users {
		ids[i] = u.ID
		index[u.ID] = i
	}

	rows, err := r.db.Query(ctx,
		`SELECT user_id, endpoint, p256dh, auth
		 FROM push_registrations
		 WHERE user_id = ANY($1)
		 ORDER BY created_at`,
		ids,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to list push registrations", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			userID string
			reg    types.PushRegistration
		)
		if err := rows.Scan(&userID, &reg.Endpoint, &reg.P256DH, &reg.Auth); err != nil {
			return types.NewAppError(types.ErrCodeInternalDB, "failed to scan push registration", err)
		}
		if i, ok := index[userID]; ok {
			users[i].PushRegistrations = append(users[i].PushRegistrations, reg)
		}
	}
	if err := rows.Err(); err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "error iterating push registrations", err)
	}
	return nil
}

// RemovePushRegistrations deletes the given endpoints for a user and returns
// the number of rows removed.
func (r *UserRepository) RemovePushRegistrations(ctx context.Context, userID string, endpoints []string) (int64, error) {
	if len(endpoints) == 0 {
		return 0, nil
	}
	tag, err := r.db.Exec(ctx,
		`DELETE FROM push_registrations
		 WHERE user_id = $1 AND endpoint = ANY($2)`,
		userID,
		endpoints,
	)
	if err != nil {
		return 0, types.NewAppError(types.ErrCodeInternalDB, "failed to remove push registrations", err)
	}
	return tag.RowsAffected(), nil
}
