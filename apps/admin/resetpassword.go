package main

import (
	"context"
	"fmt"
)

// resetPassword bypasses the password policy.
func (cli *commandLine) resetPassword(uname, pwd string) error {
	if err := cli.adminSvc.SetPassword(context.Background(), uname, pwd); err != nil {
		return err
	}
	logger.Info(fmt.Sprintf("password of %q updated", uname))
	return nil
}
