package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/adanyl0v/go-taskdesk/internal/models"
	"github.com/adanyl0v/go-taskdesk/internal/services"
)

type SessionRepository struct {
	db *DB
}

func NewSessionRepository(db *DB) *SessionRepository {
	return &SessionRepository{db: db}
}

const sessionColumns = `id,
       user_id,
       fingerprint,
       refresh_token,
       expires_at,
       created_at,
       updated_at`

func (r *SessionRepository) CreateSession(ctx context.Context, session *models.Session) error {
	const insertSessionQuery = `
INSERT INTO sessions (id,
                      user_id,
                      fingerprint,
                      refresh_token,
                      expires_at,
                      created_at,
                      updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
`
	_, err := r.db.conn(ctx).Exec(
		ctx,
		insertSessionQuery,
		session.ID,
		session.UserID,
		session.Fingerprint,
		session.RefreshToken,
		session.ExpiresAt,
		session.CreatedAt,
		session.UpdatedAt,
	)
	return translate(err, nil, nil)
}

func (r *SessionRepository) GetSessionByID(ctx context.Context, sessionID string) (*models.Session, error) {
	const selectSessionByIDQuery = `
SELECT ` + sessionColumns + `
FROM sessions
WHERE id = $1
`
	session, err := scanSession(r.db.conn(ctx).QueryRow(ctx, selectSessionByIDQuery, sessionID))
	if err != nil {
		return nil, translate(err, services.ErrSessionNotFound, nil)
	}
	return session, nil
}

func (r *SessionRepository) GetSessionByRefreshToken(ctx context.Context, refreshToken, fingerprint string) (*models.Session, error) {
	const selectSessionByRefreshTokenQuery = `
SELECT ` + sessionColumns + `
FROM sessions
WHERE refresh_token = $1
  AND fingerprint = $2
`
	session, err := scanSession(r.db.conn(ctx).QueryRow(
		ctx,
		selectSessionByRefreshTokenQuery,
		refreshToken,
		fingerprint,
	))
	if err != nil {
		return nil, translate(err, services.ErrSessionNotFound, nil)
	}
	return session, nil
}

func (r *SessionRepository) UpdateSession(ctx context.Context, session *models.Session) error {
	const updateSessionQuery = `
UPDATE sessions
SET refresh_token = $1,
    expires_at    = $2,
    updated_at    = $3
WHERE id = $4
`
	tag, err := r.db.conn(ctx).Exec(
		ctx,
		updateSessionQuery,
		session.RefreshToken,
		session.ExpiresAt,
		session.UpdatedAt,
		session.ID,
	)
	if err != nil {
		return translate(err, nil, nil)
	}
	return affectedOrNotFound(tag, services.ErrSessionNotFound)
}

func (r *SessionRepository) DeleteSession(ctx context.Context, sessionID string) error {
	const deleteSessionQuery = `DELETE FROM sessions WHERE id = $1`
	tag, err := r.db.conn(ctx).Exec(ctx, deleteSessionQuery, sessionID)
	if err != nil {
		return err
	}
	return affectedOrNotFound(tag, services.ErrSessionNotFound)
}

func (r *SessionRepository) DeleteSessionsByUserID(ctx context.Context, userID string) (int64, error) {
	const deleteSessionsByUserIDQuery = `DELETE FROM sessions WHERE user_id = $1`
	tag, err := r.db.conn(ctx).Exec(ctx, deleteSessionsByUserIDQuery, userID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *SessionRepository) DeleteSessionsByFingerprint(ctx context.Context, userID, fingerprint string) (int64, error) {
	const deleteSessionsByFingerprintQuery = `
DELETE
FROM sessions
WHERE user_id = $1
  AND fingerprint = $2
`
	tag, err := r.db.conn(ctx).Exec(ctx, deleteSessionsByFingerprintQuery, userID, fingerprint)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func scanSession(row pgx.Row) (*models.Session, error) {
	session := &models.Session{}
	err := row.Scan(
		&session.ID,
		&session.UserID,
		&session.Fingerprint,
		&session.RefreshToken,
		&session.ExpiresAt,
		&session.CreatedAt,
		&session.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return session, nil
}
