package sqlxrepos

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/user"
)

type dbUser struct {
	ID           string      `db:"id"`
	Matricule    string      `db:"matricule"`
	FirstName    null.String `db:"first_name"`
	LastName     null.String `db:"last_name"`
	Email        string      `db:"email"`
	Role         string      `db:"role"`
	IsActive     null.Bool   `db:"is_active"`
	PasswordHash null.Bytes  `db:"password_hash"`
	CreatedAt    null.Time   `db:"created_at"`
	UpdatedAt    null.Time   `db:"updated_at"`
	LastLogin    null.Time   `db:"last_login"`
}

func (u dbUser) unpack() user.User {
	return user.User{
		ID:           u.ID,
		Matricule:    u.Matricule,
		FirstName:    u.FirstName.String,
		LastName:     u.LastName.String,
		Email:        u.Email,
		Role:         u.Role,
		IsActive:     u.IsActive.Ptr(),
		PasswordHash: u.PasswordHash.Bytes,
		CreatedAt:    u.CreatedAt.Time,
		UpdatedAt:    u.UpdatedAt.Time,
		LastLogin:    u.LastLogin.Time,
	}
}

type userRepository struct {
	db *sqlx.DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *sql.DB) *userRepository {
	return &userRepository{db: sqlx.NewDb(db, "postgres")}
}

// trapNoRowsErr maps psql "no rows" err to user.ErrNotFound
func (repo userRepository) trapNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return user.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo userRepository) CheckMatriculeUniqueness(ctx context.Context, matricule, email string, excludedUsers ...user.User) error {
	q := `SELECT matricule, email FROM "user" WHERE (matricule = ? OR email = ?)`
	args := []interface{}{matricule, email}
	if len(excludedUsers) > 0 {
		ids := make([]string, 0, len(excludedUsers))
		for _, u := range excludedUsers {
			ids = append(ids, u.ID)
		}
		inQ, inArgs, err := sqlx.In(`id NOT IN (?)`, ids)
		if err != nil {
			return errors.Wrap(err, "checking user uniqueness")
		}
		q += " AND " + inQ
		args = append(args, inArgs...)
	}

	var rows []dbUser
	if err := repo.db.SelectContext(ctx, &rows, repo.db.Rebind(q), args...); err != nil {
		return errors.Wrap(err, "checking user uniqueness")
	}
	for _, row := range rows {
		if row.Matricule == matricule {
			return user.ErrMatriculeExists
		}
		return user.ErrEmailExists
	}
	return nil
}

func (repo userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	usr.ID = uuid.New().String()
	_, err := repo.db.ExecContext(ctx,
		`INSERT INTO "user" (id, matricule, first_name, last_name, email, role, is_active, password_hash, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		usr.ID, usr.Matricule, usr.FirstName, usr.LastName, usr.Email, usr.Role,
		null.BoolFromPtr(usr.IsActive), usr.PasswordHash, usr.CreatedAt.UTC(), usr.UpdatedAt.UTC(),
	)
	if err != nil {
		return user.User{}, errors.Wrap(err, "inserting user")
	}
	return usr, nil
}

func (repo userRepository) QueryUsers(ctx context.Context, filter *user.QueryFilter, ordering ...core.DBOrdering) ([]user.User, error) {
	q := `SELECT * FROM "user"`
	var conds []string
	var args []interface{}

	if filter != nil {
		if filter.Search != "" {
			conds = append(conds, `(matricule ILIKE ? OR first_name ILIKE ? OR last_name ILIKE ? OR email ILIKE ?)`)
			val := "%" + filter.Search + "%"
			args = append(args, val, val, val, val)
		}
		if filter.Role != "" {
			conds = append(conds, `role = ?`)
			args = append(args, filter.Role)
		}
		if filter.IsActive != nil {
			conds = append(conds, `is_active = ?`)
			args = append(args, *filter.IsActive)
		}
		if !filter.CreatedFrom.IsZero() {
			conds = append(conds, `created_at >= ?`)
			args = append(args, filter.CreatedFrom.UTC())
		}
		if !filter.CreatedTo.IsZero() {
			conds = append(conds, `created_at <= ?`)
			args = append(args, filter.CreatedTo.UTC())
		}
	}
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	if len(ordering) > 0 {
		orderList := make([]string, 0, len(ordering))
		for _, ord := range ordering {
			orderList = append(orderList, ord.String())
		}
		q += " ORDER BY " + strings.Join(orderList, ", ")
	}

	var rows []dbUser
	if err := repo.db.SelectContext(ctx, &rows, repo.db.Rebind(q), args...); err != nil {
		return nil, errors.Wrap(err, "querying users")
	}
	users := make([]user.User, 0, len(rows))
	for _, row := range rows {
		users = append(users, row.unpack())
	}
	return users, nil
}

func (repo userRepository) GetUser(ctx context.Context, filter user.GetFilter) (user.User, error) {
	var cond string
	var args []interface{}

	switch {
	case filter.ID != "":
		if _, err := uuid.Parse(filter.ID); err != nil {
			return user.User{}, user.ErrNotFound
		}
		cond, args = `id = $1`, []interface{}{filter.ID}
	case filter.Matricule != "":
		cond, args = `matricule = $1`, []interface{}{filter.Matricule}
	case filter.Email != "":
		cond, args = `email = $1`, []interface{}{filter.Email}
	case filter.MatriculeOrEmail != "":
		cond, args = `(matricule = $1 OR email = $1)`, []interface{}{filter.MatriculeOrEmail}
	default:
		return user.User{}, user.ErrNotFound
	}

	var row dbUser
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM "user" WHERE `+cond, args...); err != nil {
		return user.User{}, repo.trapNoRowsErr(err, "finding user")
	}
	return row.unpack(), nil
}

func (repo userRepository) UpdateUser(ctx context.Context, usr user.User, isActive *bool) (user.User, error) {
	sets := []string{`updated_at = ?`}
	args := []interface{}{usr.UpdatedAt.UTC()}

	set := func(col string, val interface{}) {
		sets = append(sets, fmt.Sprintf("%s = ?", col))
		args = append(args, val)
	}
	if usr.Matricule != "" {
		set("matricule", usr.Matricule)
	}
	if usr.FirstName != "" {
		set("first_name", usr.FirstName)
	}
	if usr.LastName != "" {
		set("last_name", usr.LastName)
	}
	if usr.Email != "" {
		set("email", usr.Email)
	}
	if usr.Role != "" {
		set("role", usr.Role)
	}
	if len(usr.PasswordHash) > 0 {
		set("password_hash", usr.PasswordHash)
	}
	if !usr.LastLogin.IsZero() {
		set("last_login", usr.LastLogin.UTC())
	}
	if isActive != nil {
		set("is_active", *isActive)
	}
	args = append(args, usr.ID)

	q := repo.db.Rebind(`UPDATE "user" SET ` + strings.Join(sets, ", ") + ` WHERE id = ?`)
	res, err := repo.db.ExecContext(ctx, q, args...)
	if err != nil {
		return user.User{}, errors.Wrap(err, "updating user")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return user.User{}, user.ErrNotFound
	}
	return repo.GetUser(ctx, user.GetFilter{ID: usr.ID})
}

func (repo userRepository) DeleteUsersByID(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	q, args, err := sqlx.In(`DELETE FROM "user" WHERE id IN (?)`, ids)
	if err != nil {
		return errors.Wrap(err, "deleting users")
	}
	if _, err = repo.db.ExecContext(ctx, repo.db.Rebind(q), args...); err != nil {
		return errors.Wrap(err, "deleting users")
	}
	return nil
}
