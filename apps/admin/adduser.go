package main

import (
	"context"
	"fmt"

	"github.com/aryaedu/tutor/core/admin"
)

// addUser creates an admin account. The password policy applies.
func (cli *commandLine) addUser(uname, email, pwd string) error {
	na := admin.NewAdmin{
		Username:        uname,
		Email:           email,
		Password:        pwd,
		PasswordConfirm: pwd,
	}
	if err := na.Validate(cli.validate); err != nil {
		return err
	}
	adm, err := cli.adminSvc.Create(context.Background(), na)
	if err != nil {
		return err
	}
	logger.Info(fmt.Sprintf("admin %q created", adm.Username))
	return nil
}
