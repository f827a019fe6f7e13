package main

import (
	"context"

	"github.com/trezcool/riyaaz/core"
	"github.com/trezcool/riyaaz/core/user"
)

// addUser updates or creates a user.User; roles are kept when none are given.
func (cli *commandLine) addUser(uname, email, name, pwd string, roles []string) error {
	ctx := context.Background()
	uname = core.CleanString(uname, true /* lower */)
	email = core.CleanString(email, true /* lower */)
	name = core.CleanString(name)

	usr, err := cli.usrRepo.GetUser(ctx, user.GetFilter{Username: uname})
	if err == user.ErrNotFound {
		usr, err = cli.usrRepo.GetUser(ctx, user.GetFilter{Email: email})
	}
	switch err {
	case nil:
	case user.ErrNotFound:
		now := user.NowFunc().UTC()
		usr = user.User{CreatedAt: now}
	default:
		return err
	}

	usr.Username = uname
	usr.Email = email
	if name != "" {
		usr.Name = name
	} else if usr.Name == "" {
		usr.Name = uname
	}
	if roles != nil {
		usr.Roles = roles
	}
	usr.UpdatedAt = user.NowFunc().UTC()
	usr.SetActive(true)
	if err := usr.SetPassword(pwd); err != nil {
		return err
	}
	_, err = cli.usrRepo.UpdateOrCreateUser(ctx, usr)
	return err
}
