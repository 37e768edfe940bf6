package main

import (
	"context"
	"fmt"

	"github.com/aryaedu/tutor/core/student"
)

func (cli *commandLine) addStudent(p student.Profile, videoEnabled bool) error {
	ns := student.NewStudent{Profile: p, VideoEnabled: &videoEnabled}
	if err := ns.Validate(cli.validate); err != nil {
		return err
	}
	s, err := cli.studentSvc.Create(context.Background(), ns)
	if err != nil {
		return err
	}
	logger.Info(fmt.Sprintf("student %s (%s) created", s.ID, s.Mobile))
	return nil
}
