package main

import (
	"encoding/json"
	"os"

	"github.com/hamba/cmd"
	"github.com/nrwiersma/jobwatch/job"
	"github.com/pkg/errors"
	"gopkg.in/urfave/cli.v2"
)

func runSubmit(c *cli.Context) error {
	ctx, err := cmd.NewContext(c)
	if err != nil {
		return err
	}

	action := ctx.String(flagAction)
	if action == "" {
		return errors.New("an action is required")
	}

	var data interface{}
	if err = json.Unmarshal([]byte(ctx.String(flagData)), &data); err != nil {
		return errors.Wrap(err, "invalid job data")
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

	h, err := newSubmitter(ctx, client).Submit(runCtx, job.Request{Action: action, Data: data}, ctx.Duration(flagSubmitTimeout))
	if err != nil {
		return err
	}
	ctx.Logger().Info("Job submitted", "job", h)

	res, err := newPoller(ctx, client).Poll(runCtx, job.NewSession(h, guard))
	if err != nil {
		return err
	}

	return printJSON(os.Stdout, res.Data)
}
