package main

import (
	"os"

	"github.com/nrwiersma/jobwatch"
	"github.com/nrwiersma/jobwatch/tracker"
	"github.com/pkg/errors"
	"gopkg.in/urfave/cli.v2"
)

func runReport(c *cli.Context) error {
	path := c.Args().First()
	if path == "" {
		return errors.New("a snapshot is required")
	}

	f, err := os.Open(path)
	if err != nil {
		return errors.Wrap(err, "error opening snapshot")
	}
	defer f.Close()

	store, err := tracker.New()
	if err != nil {
		return err
	}
	if err = store.Restore(f); err != nil {
		return err
	}

	_, recs, err := store.Records(nil)
	if err != nil {
		return err
	}
	return jobwatch.PrintRecords(os.Stdout, recs)
}
