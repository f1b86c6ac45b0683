package main

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/trezcool/educa/core"
	"github.com/trezcool/educa/core/user"
)

// addUser updates or creates an active user.User with the given roles.
func (cli *commandLine) addUser(name, uname, email, pwd string, roles []string) error {
	ctx := context.Background()
	uname = core.CleanString(uname, true /* lower */)
	email = core.CleanString(email, true /* lower */)
	now := time.Now().UTC()

	usr, err := cli.usrRepo.GetUser(ctx, user.GetFilter{UsernameOrEmail: []string{uname, email}})
	exists := err == nil
	if !exists {
		if err != user.ErrNotFound {
			return err
		}
		usr = user.User{ID: uuid.New().String(), CreatedAt: now}
	}

	if name = core.CleanString(name); name != "" {
		usr.Name = name
	}
	usr.Username = uname
	usr.Email = email
	usr.Roles = append([]string{}, roles...)
	usr.IsActive = true
	usr.UpdatedAt = now
	if err := usr.SetPassword(pwd); err != nil {
		return err
	}

	if exists {
		if err := cli.usrRepo.CheckUniqueness(ctx, uname, email, usr); err != nil {
			return err
		}
		_, err = cli.usrRepo.UpdateUser(ctx, usr)
	} else {
		_, err = cli.usrRepo.CreateUser(ctx, usr)
	}
	return err
}
