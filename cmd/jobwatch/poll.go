package main

import (
	"os"

	"github.com/hamba/cmd"
	"github.com/nrwiersma/jobwatch/job"
	"github.com/pkg/errors"
	"gopkg.in/urfave/cli.v2"
)

func runPoll(c *cli.Context) error {
	ctx, err := cmd.NewContext(c)
	if err != nil {
		return err
	}

	id := c.Args().First()
	if id == "" {
		return errors.New("a job id is required")
	}

	guard, err := newGuard(ctx)
	if err != nil {
		return err
	}

	client, err := newClient(ctx, "")
	if err != nil {
		return err
	}

	runCtx, cancel := signalContext()
	defer cancel()

	res, err := newPoller(ctx, client).Poll(runCtx, job.NewSession(job.Handle(id), guard))
	if err != nil {
		return err
	}

	return printJSON(os.Stdout, res.Data)
}
