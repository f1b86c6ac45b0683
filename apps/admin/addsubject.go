package main

import (
	"context"
	"fmt"

	"github.com/trezcool/educa/core/course"
)

func (cli *commandLine) addSubject(title, slug string) error {
	ctx := context.Background()
	ns := course.NewSubject{Title: title, Slug: slug}
	if err := ns.Validate(ctx, cli.validate, cli.courseSvc); err != nil {
		return err
	}
	sub, err := cli.courseSvc.CreateSubject(ctx, ns)
	if err != nil {
		return err
	}
	fmt.Printf("subject %q created: %s\n", sub.Slug, sub.ID)
	return nil
}
