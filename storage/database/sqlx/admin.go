package sqlxrepos

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/aryaedu/tutor/core"
	"github.com/aryaedu/tutor/core/admin"
)

const adminColumns = "username, password_hash, email, is_active, created_at, last_login"

type adminRow struct {
	Username     string      `db:"username"`
	PasswordHash string      `db:"password_hash"`
	Email        null.String `db:"email"`
	IsActive     bool        `db:"is_active"`
	CreatedAt    time.Time   `db:"created_at"`
	LastLogin    null.Time   `db:"last_login"`
}

type adminRepository struct {
	exec core.DBExecutor
}

var _ admin.Repository = (*adminRepository)(nil) // interface compliance check

func NewAdminRepository(exec core.DBExecutor) *adminRepository {
	return &adminRepository{exec: exec}
}

func (repo adminRepository) toRow(adm admin.Admin) adminRow {
	return adminRow{
		Username:     adm.Username,
		PasswordHash: string(adm.PasswordHash),
		Email:        nullString(adm.Email),
		IsActive:     adm.IsActive,
		CreatedAt:    adm.CreatedAt.UTC(),
		LastLogin:    nullTime(adm.LastLogin),
	}
}

func (repo adminRepository) fromRow(row adminRow) admin.Admin {
	return admin.Admin{
		Username:     row.Username,
		PasswordHash: []byte(row.PasswordHash),
		Email:        row.Email.String,
		IsActive:     row.IsActive,
		CreatedAt:    row.CreatedAt.UTC(),
		LastLogin:    row.LastLogin.Time.UTC(),
	}
}

func (repo adminRepository) CountAdmins(ctx context.Context) (int, error) {
	var count int
	if err := repo.exec.GetContext(ctx, &count, "SELECT COUNT(*) FROM admin_users"); err != nil {
		return 0, errors.Wrap(err, "counting admins")
	}
	return count, nil
}

func (repo adminRepository) CreateAdmin(ctx context.Context, adm admin.Admin) (admin.Admin, error) {
	row := repo.toRow(adm)
	q := "INSERT INTO admin_users (" + adminColumns + ") VALUES (?, ?, ?, ?, ?, ?)"
	_, err := repo.exec.ExecContext(ctx, repo.exec.Rebind(q),
		row.Username, row.PasswordHash, row.Email, row.IsActive, row.CreatedAt, row.LastLogin)
	if err != nil {
		if isUniqueViolation(err) {
			return admin.Admin{}, core.NewDuplicateError("username", admin.ErrUsernameExists.Error())
		}
		return admin.Admin{}, errors.Wrap(err, "inserting admin")
	}
	return repo.fromRow(row), nil
}

func (repo adminRepository) GetAdmin(ctx context.Context, filter admin.GetFilter) (admin.Admin, error) {
	var w where
	switch {
	case filter.Username != "":
		w.add("username = ?", filter.Username)
	case filter.Email != "":
		w.add("email = ?", filter.Email)
	default:
		return admin.Admin{}, admin.ErrNotFound
	}
	if filter.ActiveOnly {
		w.add("is_active = ?", true)
	}

	var row adminRow
	q := "SELECT " + adminColumns + " FROM admin_users" + w.String() + " ORDER BY created_at LIMIT 1"
	if err := repo.exec.GetContext(ctx, &row, repo.exec.Rebind(q), w.args...); err != nil {
		return admin.Admin{}, trapNoRowsErr(err, admin.ErrNotFound, "finding admin")
	}
	return repo.fromRow(row), nil
}

func (repo adminRepository) UpdateAdmin(ctx context.Context, adm admin.Admin) (admin.Admin, error) {
	row := repo.toRow(adm)
	q := "UPDATE admin_users SET password_hash = ?, email = ?, is_active = ?, last_login = ? WHERE username = ?"
	res, err := repo.exec.ExecContext(ctx, repo.exec.Rebind(q),
		row.PasswordHash, row.Email, row.IsActive, row.LastLogin, row.Username)
	if err != nil {
		return admin.Admin{}, errors.Wrap(err, "updating admin")
	}
	if err = checkAffected(res, admin.ErrNotFound, "updating admin"); err != nil {
		return admin.Admin{}, err
	}
	return repo.fromRow(row), nil
}
