package main

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/user"
)

// addUser updates or creates a user.User
func (cli *commandLine) addUser(matricule, email, pwd string, isAdmin bool) error {
	ctx := context.Background()
	matricule = core.CleanString(matricule, true /* lower */)
	email = core.CleanString(email, true /* lower */)

	now := time.Now().UTC()
	active := true

	usr, err := cli.usrRepo.GetUser(ctx, user.GetFilter{Matricule: matricule})
	if err != nil {
		if errors.Cause(err) != user.ErrNotFound {
			return err
		}
		usr = user.User{
			Matricule: matricule,
			Email:     email,
			Role:      user.RoleStudent,
			IsActive:  &active,
			CreatedAt: now,
		}
		if isAdmin {
			usr.Role = user.RoleAdmin
		}
		if err := usr.SetPassword(pwd); err != nil {
			return err
		}
		usr.UpdatedAt = now
		_, err = cli.usrRepo.CreateUser(ctx, usr)
		return err
	}

	usr.Email = email
	if isAdmin {
		usr.Role = user.RoleAdmin
	}
	if err := usr.SetPassword(pwd); err != nil {
		return err
	}
	usr.UpdatedAt = now
	_, err = cli.usrRepo.UpdateUser(ctx, usr, &active)
	return err
}
