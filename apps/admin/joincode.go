package main

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/mdp/qrterminal"

	"github.com/trezcool/riyaaz/core/classroom"
)

// joinURL is the frontend page a student lands on after scanning the code.
func (cli *commandLine) joinURL(code string) string {
	return strings.TrimSuffix(cli.conf.FrontendBaseURL, "/") + "/join?code=" + url.QueryEscape(code)
}

func (cli *commandLine) joinCode(classroomID string) error {
	cls, err := cli.clsRepo.GetClassroom(context.Background(), classroom.GetFilter{ID: classroomID})
	if err != nil {
		return err
	}

	w := cli.writer()
	fmt.Fprintf(w, "%s\nJoin code: %s\n", cls.Name, cls.JoinCode)
	link := cli.joinURL(cls.JoinCode)
	fmt.Fprintln(w, link)
	qrterminal.GenerateHalfBlock(link, qrterminal.L, w)
	return nil
}
