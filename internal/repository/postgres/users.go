package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/adanyl0v/go-taskdesk/internal/models"
	"github.com/adanyl0v/go-taskdesk/internal/services"
)

type UserRepository struct {
	db *DB
}

func NewUserRepository(db *DB) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = `id,
       name,
       email,
       contact_number,
       password,
       is_admin,
       is_enabled,
       created_at,
       updated_at`

func (r *UserRepository) CreateUser(ctx context.Context, user *models.User) error {
	const insertUserQuery = `
INSERT INTO users (id,
                   name,
                   email,
                   contact_number,
                   password,
                   is_admin,
                   is_enabled,
                   created_at,
                   updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
`
	_, err := r.db.conn(ctx).Exec(
		ctx,
		insertUserQuery,
		user.ID,
		user.Name,
		user.Email,
		user.ContactNumber,
		user.Password,
		user.IsAdmin,
		user.IsEnabled,
		user.CreatedAt,
		user.UpdatedAt,
	)
	return translate(err, nil, services.ErrUserAlreadyExists)
}

func (r *UserRepository) GetUserByID(ctx context.Context, userID string) (*models.User, error) {
	const selectUserByIDQuery = `
SELECT ` + userColumns + `
FROM users
WHERE id = $1
`
	user, err := scanUser(r.db.conn(ctx).QueryRow(ctx, selectUserByIDQuery, userID))
	if err != nil {
		return nil, translate(err, services.ErrUserNotFound, nil)
	}
	return user, nil
}

func (r *UserRepository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	const selectUserByEmailQuery = `
SELECT ` + userColumns + `
FROM users
WHERE email = $1
`
	user, err := scanUser(r.db.conn(ctx).QueryRow(ctx, selectUserByEmailQuery, email))
	if err != nil {
		return nil, translate(err, services.ErrUserNotFound, nil)
	}
	return user, nil
}

func (r *UserRepository) UpdateUser(ctx context.Context, user *models.User) error {
	const updateUserQuery = `
UPDATE users
SET name           = $1,
    contact_number = $2,
    is_admin       = $3,
    is_enabled     = $4,
    updated_at     = $5
WHERE id = $6
`
	tag, err := r.db.conn(ctx).Exec(
		ctx,
		updateUserQuery,
		user.Name,
		user.ContactNumber,
		user.IsAdmin,
		user.IsEnabled,
		user.UpdatedAt,
		user.ID,
	)
	if err != nil {
		return translate(err, nil, nil)
	}
	return affectedOrNotFound(tag, services.ErrUserNotFound)
}

func (r *UserRepository) ListUsers(ctx context.Context, offset, limit int) ([]*models.User, int, error) {
	const selectUsersQuery = `
SELECT ` + userColumns + `,
       COUNT(*) OVER ()
FROM users
ORDER BY created_at, id
LIMIT $1 OFFSET $2
`
	rows, err := r.db.conn(ctx).Query(ctx, selectUsersQuery, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var total int
	users := make([]*models.User, 0, limit)
	for rows.Next() {
		user := &models.User{}
		err = rows.Scan(
			&user.ID,
			&user.Name,
			&user.Email,
			&user.ContactNumber,
			&user.Password,
			&user.IsAdmin,
			&user.IsEnabled,
			&user.CreatedAt,
			&user.UpdatedAt,
			&total,
		)
		if err != nil {
			return nil, 0, err
		}
		users = append(users, user)
	}

	err = rows.Err()
	if err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

func scanUser(row pgx.Row) (*models.User, error) {
	user := &models.User{}
	err := row.Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.ContactNumber,
		&user.Password,
		&user.IsAdmin,
		&user.IsEnabled,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return user, nil
}
