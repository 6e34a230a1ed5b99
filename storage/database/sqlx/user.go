package sqlxrepos

import (
	"context"
	"database/sql"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/mafunzo/core/user"
)

type userRepository struct {
	db *sqlx.DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *sql.DB) *userRepository {
	return &userRepository{db: sqlx.NewDb(db, "postgres")}
}

func (repo *userRepository) CheckUsernameUniqueness(ctx context.Context, username, email string, excludedUsers ...user.User) error {
	exclIDs := make([]int, 0, len(excludedUsers))
	for _, usr := range excludedUsers {
		exclIDs = append(exclIDs, usr.ID)
	}

	q := `SELECT username, email FROM users WHERE (username = ? OR email = ?)`
	args := []interface{}{username, email}
	if len(exclIDs) > 0 {
		var err error
		q, args, err = sqlx.In(q+` AND id NOT IN (?)`, username, email, exclIDs)
		if err != nil {
			return errors.Wrap(err, "building uniqueness query")
		}
	}

	var rows []struct {
		Username string `db:"username"`
		Email    string `db:"email"`
	}
	if err := repo.db.SelectContext(ctx, &rows, repo.db.Rebind(q), args...); err != nil {
		return errors.Wrap(err, "checking username uniqueness")
	}
	for _, row := range rows {
		if row.Username == username {
			return user.ErrUsernameExists
		}
		if row.Email == email {
			return user.ErrEmailExists
		}
	}
	return nil
}

func (repo *userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	q := `
INSERT INTO users (first_name, last_name, username, email, role, is_active, password_hash, created_at, updated_at, last_login)
VALUES (:first_name, :last_name, :username, :email, :role, :is_active, :password_hash, :created_at, :updated_at, :last_login)
RETURNING id`
	rows, err := repo.db.NamedQueryContext(ctx, q, usr)
	if err != nil {
		return user.User{}, errors.Wrap(err, "creating user")
	}
	defer func() { _ = rows.Close() }()
	if rows.Next() {
		if err = rows.Scan(&usr.ID); err != nil {
			return user.User{}, errors.Wrap(err, "creating user")
		}
	}
	return usr, errors.Wrap(rows.Err(), "creating user")
}

func (repo *userRepository) GetUser(ctx context.Context, filter user.GetFilter) (user.User, error) {
	var (
		conds []string
		args  []interface{}
	)
	if filter.ID > 0 {
		conds = append(conds, "id = ?")
		args = append(args, filter.ID)
	}
	if len(filter.UsernameOrEmail) > 0 {
		ors := make([]string, 0, 2*len(filter.UsernameOrEmail))
		for _, val := range filter.UsernameOrEmail {
			ors = append(ors, "username = ?", "email = ?")
			args = append(args, val, val)
		}
		conds = append(conds, "("+strings.Join(ors, " OR ")+")")
	}
	if len(conds) == 0 {
		return user.User{}, user.ErrNotFound
	}

	q := `SELECT * FROM users WHERE ` + strings.Join(conds, " AND ") + ` LIMIT 1`
	var usr user.User
	if err := repo.db.GetContext(ctx, &usr, repo.db.Rebind(q), args...); err != nil {
		if err == sql.ErrNoRows {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, errors.Wrap(err, "getting user")
	}
	return usr, nil
}

func (repo *userRepository) UpdateUser(ctx context.Context, usr user.User) (user.User, error) {
	q := `
UPDATE users
SET first_name = :first_name,
    last_name = :last_name,
    username = :username,
    email = :email,
    role = :role,
    is_active = :is_active,
    password_hash = :password_hash,
    updated_at = :updated_at,
    last_login = :last_login
WHERE id = :id`
	res, err := repo.db.NamedExecContext(ctx, q, usr)
	if err != nil {
		return user.User{}, errors.Wrap(err, "updating user")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return user.User{}, user.ErrNotFound
	}
	return usr, nil
}

func (repo *userRepository) UpdateOrCreateUser(ctx context.Context, usr user.User) (user.User, error) {
	if usr.ID > 0 {
		updated, err := repo.UpdateUser(ctx, usr)
		if err == nil {
			return updated, nil
		}
		if err != user.ErrNotFound {
			return user.User{}, err
		}
	}
	return repo.CreateUser(ctx, usr)
}
