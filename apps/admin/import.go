package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/pkg/errors"

	"github.com/tamkeen/tamkeen/core/reference"
)

func (cli *commandLine) importBundle(ctx context.Context, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(err, "reading bundle")
	}
	var bundle reference.Bundle
	if err = json.Unmarshal(data, &bundle); err != nil {
		return errors.Wrap(err, "decoding bundle")
	}
	report, err := cli.refSvc.Import(ctx, bundle)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "imported %d subjects, %d curriculum sessions, %d competencies\n",
		report.Subjects, report.Curriculum, report.Competencies)
	return nil
}
