package main

import (
	"context"
	"fmt"

	"github.com/tamkeen/tamkeen/core/auth"
)

// addUser creates a profile; it never overwrites an existing one.
func (cli *commandLine) addUser(ctx context.Context, email, name, pwd string, isAdmin bool) error {
	role := auth.RoleTeacher
	if isAdmin {
		role = auth.RoleAdmin
	}
	prof, err := cli.authSvc.Create(ctx, auth.Registration{
		Email:    email,
		Password: pwd,
		FullName: name,
	}, role)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "%s profile %s created (teacher code %s)\n", prof.Role, prof.Email, prof.Metadata.TeacherCode)
	return nil
}
