package sqlxrepos

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/riyaaz/core"
	"github.com/trezcool/riyaaz/core/user"
	"github.com/trezcool/riyaaz/storage/database"
)

const userColumns = "id, name, username, email, is_active, roles, password_hash, created_at, updated_at, last_login"

type userRow struct {
	ID           string      `db:"id"`
	Name         string      `db:"name"`
	Username     null.String `db:"username"`
	Email        null.String `db:"email"`
	IsActive     bool        `db:"is_active"`
	Roles        string      `db:"roles"`
	PasswordHash []byte      `db:"password_hash"`
	CreatedAt    time.Time   `db:"created_at"`
	UpdatedAt    time.Time   `db:"updated_at"`
	LastLogin    null.Time   `db:"last_login"`
}

func newUserRow(usr user.User) userRow {
	row := userRow{
		ID:           usr.ID,
		Name:         usr.Name,
		Username:     null.NewString(usr.Username, usr.Username != ""),
		Email:        null.NewString(usr.Email, usr.Email != ""),
		IsActive:     usr.IsActive == nil || *usr.IsActive,
		Roles:        strings.Join(usr.Roles, ","),
		PasswordHash: usr.PasswordHash,
		CreatedAt:    usr.CreatedAt.UTC(),
		UpdatedAt:    usr.UpdatedAt.UTC(),
		LastLogin:    null.NewTime(usr.LastLogin.UTC(), !usr.LastLogin.IsZero()),
	}
	if row.PasswordHash == nil {
		row.PasswordHash = []byte{}
	}
	return row
}

func (row userRow) toModel() user.User {
	usr := user.User{
		ID:           row.ID,
		Name:         row.Name,
		Username:     row.Username.String,
		Email:        row.Email.String,
		PasswordHash: row.PasswordHash,
		CreatedAt:    row.CreatedAt.UTC(),
		UpdatedAt:    row.UpdatedAt.UTC(),
	}
	if row.Roles != "" {
		usr.Roles = strings.Split(row.Roles, ",")
	}
	if row.LastLogin.Valid {
		usr.LastLogin = row.LastLogin.Time.UTC()
	}
	usr.SetActive(row.IsActive)
	return usr
}

type userRepository struct {
	db *database.DB
}

var _ user.Repository = (*userRepository)(nil)

func NewUserRepository(db *database.DB) user.Repository {
	return &userRepository{db: db}
}

func (repo *userRepository) CheckUniqueness(ctx context.Context, username, email string, excludedUsers []user.User, exec ...core.DBExecutor) error {
	ext := executor(repo.db, exec)

	excludedIDs := make([]string, 0, len(excludedUsers))
	for _, usr := range excludedUsers {
		excludedIDs = append(excludedIDs, usr.ID)
	}
	check := func(column, value string, errExists error) error {
		if value == "" {
			return nil
		}
		q := "SELECT COUNT(*) FROM users WHERE " + column + " = ?"
		args := []interface{}{value}
		if len(excludedIDs) > 0 {
			inQ, inArgs, err := sqlx.In(" AND id NOT IN (?)", excludedIDs)
			if err != nil {
				return err
			}
			q += inQ
			args = append(args, inArgs...)
		}

		var count int
		if err := sqlx.GetContext(ctx, ext, &count, ext.Rebind(q), args...); err != nil {
			return errors.Wrap(err, "checking "+column+" uniqueness")
		}
		if count > 0 {
			return errExists
		}
		return nil
	}

	if err := check("username", username, user.ErrUsernameExists); err != nil {
		return err
	}
	return check("email", email, user.ErrEmailExists)
}

func (repo *userRepository) CreateUser(ctx context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	if usr.ID == "" {
		usr.ID = uuid.New().String()
	}
	row := newUserRow(usr)
	q := "INSERT INTO users (" + userColumns + ") " +
		"VALUES (:id, :name, :username, :email, :is_active, :roles, :password_hash, :created_at, :updated_at, :last_login)"
	if _, err := sqlx.NamedExecContext(ctx, executor(repo.db, exec), q, row); err != nil {
		return user.User{}, errors.Wrap(err, "inserting user")
	}
	return row.toModel(), nil
}

func (repo *userRepository) GetUser(ctx context.Context, filter user.GetFilter, exec ...core.DBExecutor) (user.User, error) {
	ext := executor(repo.db, exec)

	var (
		where string
		args  []interface{}
	)
	switch {
	case filter.ID != "":
		where, args = "id = ?", []interface{}{filter.ID}
	case filter.Username != "":
		where, args = "username = ?", []interface{}{filter.Username}
	case filter.Email != "":
		where, args = "email = ?", []interface{}{filter.Email}
	case filter.UsernameOrEmail != "":
		where, args = "(username = ? OR email = ?)", []interface{}{filter.UsernameOrEmail, filter.UsernameOrEmail}
	default:
		return user.User{}, user.ErrNotFound
	}

	var row userRow
	q := ext.Rebind("SELECT " + userColumns + " FROM users WHERE " + where + " LIMIT 1")
	if err := sqlx.GetContext(ctx, ext, &row, q, args...); err != nil {
		if err == sql.ErrNoRows {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, errors.Wrap(err, "selecting user")
	}
	return row.toModel(), nil
}

func (repo *userRepository) UpdateUser(ctx context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	row := newUserRow(usr)
	q := "UPDATE users SET name = :name, username = :username, email = :email, is_active = :is_active, roles = :roles, " +
		"password_hash = :password_hash, updated_at = :updated_at, last_login = :last_login WHERE id = :id"
	res, err := sqlx.NamedExecContext(ctx, executor(repo.db, exec), q, row)
	if err != nil {
		return user.User{}, errors.Wrap(err, "updating user")
	}
	if n, err := rowsAffected(res); err == nil && n == 0 {
		return user.User{}, user.ErrNotFound
	}
	return row.toModel(), nil
}

// UpdateOrCreateUser updates the user matching usr.ID, or its username or email if ID is empty,
// and creates it if none matches.
func (repo *userRepository) UpdateOrCreateUser(ctx context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	filter := user.GetFilter{ID: usr.ID}
	if usr.ID == "" {
		filter = user.GetFilter{Username: usr.Username}
		if usr.Username == "" {
			filter = user.GetFilter{Email: usr.Email}
		}
	}

	existing, err := repo.GetUser(ctx, filter, exec...)
	switch err {
	case nil:
		usr.ID = existing.ID
		usr.CreatedAt = existing.CreatedAt
		return repo.UpdateUser(ctx, usr, exec...)
	case user.ErrNotFound:
		return repo.CreateUser(ctx, usr, exec...)
	default:
		return user.User{}, err
	}
}
