package sqlxrepos

import (
	"context"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/educa/core"
	"github.com/trezcool/educa/core/user"
	"github.com/trezcool/educa/storage/database"
)

const userColumns = `id, name, username, email, is_active, roles, password_hash, created_at, updated_at, last_login`

// sortable user columns
var userOrderingFields = map[string]string{
	"name":       "name",
	"username":   "username",
	"email":      "email",
	"is_active":  "is_active",
	"created_at": "created_at",
	"updated_at": "updated_at",
	"last_login": "last_login",
}

type userRow struct {
	ID           string         `db:"id"`
	Name         string         `db:"name"`
	Username     null.String    `db:"username"`
	Email        null.String    `db:"email"`
	IsActive     bool           `db:"is_active"`
	Roles        pq.StringArray `db:"roles"`
	PasswordHash []byte         `db:"password_hash"`
	CreatedAt    time.Time      `db:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at"`
	LastLogin    null.Time      `db:"last_login"`
}

func toUserRow(usr user.User) userRow {
	row := userRow{
		ID:           usr.ID,
		Name:         usr.Name,
		Username:     null.NewString(usr.Username, usr.Username != ""),
		Email:        null.NewString(usr.Email, usr.Email != ""),
		IsActive:     usr.IsActive,
		Roles:        pq.StringArray(usr.Roles),
		PasswordHash: usr.PasswordHash,
		CreatedAt:    usr.CreatedAt.UTC(),
		UpdatedAt:    usr.UpdatedAt.UTC(),
	}
	if row.Roles == nil {
		row.Roles = pq.StringArray{}
	}
	if row.PasswordHash == nil {
		row.PasswordHash = []byte{}
	}
	if usr.LastLogin != nil {
		row.LastLogin = null.TimeFrom(usr.LastLogin.UTC())
	}
	return row
}

func (row userRow) toUser() user.User {
	usr := user.User{
		ID:           row.ID,
		Name:         row.Name,
		Username:     row.Username.String,
		Email:        row.Email.String,
		IsActive:     row.IsActive,
		Roles:        []string(row.Roles),
		PasswordHash: row.PasswordHash,
		CreatedAt:    row.CreatedAt.UTC(),
		UpdatedAt:    row.UpdatedAt.UTC(),
	}
	if usr.Roles == nil {
		usr.Roles = []string{}
	}
	if row.LastLogin.Valid {
		t := row.LastLogin.Time.UTC()
		usr.LastLogin = &t
	}
	return usr
}

type userRepository struct {
	db *sqlx.DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *sqlx.DB) user.Repository {
	return &userRepository{db: db}
}

func (repo *userRepository) CheckUniqueness(ctx context.Context, username, email string, excludedUsers ...user.User) error {
	q := `SELECT username, email FROM "user" WHERE (username = ? OR email = ?)`
	args := []interface{}{null.NewString(username, username != ""), null.NewString(email, email != "")}
	if len(excludedUsers) > 0 {
		ids := make([]string, 0, len(excludedUsers))
		for _, usr := range excludedUsers {
			ids = append(ids, usr.ID)
		}
		q += ` AND id NOT IN (?)`
		args = append(args, ids)
	}
	q, args, err := sqlx.In(q, args...)
	if err != nil {
		return errors.Wrap(err, "building uniqueness query")
	}

	exec := database.Executor(ctx, repo.db)
	var rows []userRow
	if err := sqlx.SelectContext(ctx, exec, &rows, exec.Rebind(q), args...); err != nil {
		return errors.Wrap(err, "checking user uniqueness")
	}
	for _, row := range rows {
		if username != "" && row.Username.String == username {
			return user.ErrUsernameExists
		}
	}
	if len(rows) > 0 {
		return user.ErrEmailExists
	}
	return nil
}

func (repo *userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	q := `INSERT INTO "user" (` + userColumns + `)
		VALUES (:id, :name, :username, :email, :is_active, :roles, :password_hash, :created_at, :updated_at, :last_login)`
	if _, err := sqlx.NamedExecContext(ctx, database.Executor(ctx, repo.db), q, toUserRow(usr)); err != nil {
		return user.User{}, trapUniqueUserErr(err, "inserting user")
	}
	return usr, nil
}

func (repo *userRepository) QueryUsers(ctx context.Context, filter user.QueryFilter, ordering []core.DBOrdering) ([]user.User, error) {
	var where []string
	var args []interface{}

	// users with Name, Username or Email matching the search keyword
	if filter.Search != "" {
		val := "%" + filter.Search + "%"
		where = append(where, "(name ILIKE ? OR username ILIKE ? OR email ILIKE ?)")
		args = append(args, val, val, val)
	}
	// users with any role that starts with any of the provided roles
	if len(filter.Roles) > 0 {
		roleConds := make([]string, 0, len(filter.Roles))
		for _, role := range filter.Roles {
			roleConds = append(roleConds, "EXISTS (SELECT 1 FROM UNNEST(roles) user_role WHERE user_role ILIKE ?)")
			args = append(args, role+"%")
		}
		where = append(where, "("+strings.Join(roleConds, " OR ")+")")
	}
	if filter.IsActive != nil {
		where = append(where, "is_active = ?")
		args = append(args, *filter.IsActive)
	}
	if !filter.CreatedFrom.IsZero() {
		where = append(where, "created_at >= ?")
		args = append(args, filter.CreatedFrom.UTC())
	}
	if !filter.CreatedTo.IsZero() {
		where = append(where, "created_at <= ?")
		args = append(args, filter.CreatedTo.UTC())
	}

	q := `SELECT ` + userColumns + ` FROM "user"`
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += orderBy(ordering, userOrderingFields, "created_at DESC")

	exec := database.Executor(ctx, repo.db)
	var rows []userRow
	if err := sqlx.SelectContext(ctx, exec, &rows, exec.Rebind(q), args...); err != nil {
		return nil, errors.Wrap(err, "querying users")
	}
	users := make([]user.User, 0, len(rows))
	for _, row := range rows {
		users = append(users, row.toUser())
	}
	return users, nil
}

func (repo *userRepository) GetUser(ctx context.Context, filter user.GetFilter) (user.User, error) {
	var q string
	var args []interface{}
	switch {
	case filter.ID != "":
		q, args = `SELECT `+userColumns+` FROM "user" WHERE id = ?`, []interface{}{filter.ID}
	case len(filter.UsernameOrEmail) > 0:
		var err error
		q, args, err = sqlx.In(
			`SELECT `+userColumns+` FROM "user" WHERE username IN (?) OR email IN (?) LIMIT 1`,
			filter.UsernameOrEmail, filter.UsernameOrEmail,
		)
		if err != nil {
			return user.User{}, errors.Wrap(err, "building user query")
		}
	default:
		return user.User{}, user.ErrNotFound
	}

	exec := database.Executor(ctx, repo.db)
	var row userRow
	if err := sqlx.GetContext(ctx, exec, &row, exec.Rebind(q), args...); err != nil {
		return user.User{}, trapNoRowsErr(err, user.ErrNotFound, "finding user")
	}
	return row.toUser(), nil
}

func (repo *userRepository) UpdateUser(ctx context.Context, usr user.User) (user.User, error) {
	q := `UPDATE "user" SET
		name = :name, username = :username, email = :email, is_active = :is_active, roles = :roles,
		password_hash = :password_hash, updated_at = :updated_at, last_login = :last_login
		WHERE id = :id`
	res, err := sqlx.NamedExecContext(ctx, database.Executor(ctx, repo.db), q, toUserRow(usr))
	if err != nil {
		return user.User{}, trapUniqueUserErr(err, "updating user")
	}
	if err := checkAffected(res, user.ErrNotFound); err != nil {
		return user.User{}, err
	}
	return usr, nil
}

func (repo *userRepository) DeleteUsersByID(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	q, args, err := sqlx.In(`DELETE FROM "user" WHERE id IN (?)`, ids)
	if err != nil {
		return errors.Wrap(err, "building delete query")
	}
	exec := database.Executor(ctx, repo.db)
	_, err = exec.ExecContext(ctx, exec.Rebind(q), args...)
	return errors.Wrap(err, "deleting users")
}

// trapUniqueUserErr maps unique constraint violations to user.ErrUsernameExists and user.ErrEmailExists.
func trapUniqueUserErr(err error, msg string) error {
	if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == uniqueViolation {
		switch pqErr.Constraint {
		case "user_username_key":
			return user.ErrUsernameExists
		case "user_email_key":
			return user.ErrEmailExists
		}
	}
	return errors.Wrap(err, msg)
}
