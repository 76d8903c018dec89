package main

import (
	"os"

	"github.com/hamba/cmd"
	"github.com/nrwiersma/jobwatch/manifest"
	"github.com/nrwiersma/jobwatch/tracker"
	"github.com/pkg/errors"
	"gopkg.in/urfave/cli.v2"
)

func runRun(c *cli.Context) error {
	ctx, err := cmd.NewContext(c)
	if err != nil {
		return err
	}

	path := c.Args().First()
	if path == "" {
		return errors.New("a manifest is required")
	}

	m, err := manifest.Load(path)
	if err != nil {
		return err
	}

	guard, err := newGuard(ctx)
	if err != nil {
		return err
	}
	guard = m.Guard(guard)

	client, err := newClient(ctx, m.Code)
	if err != nil {
		return err
	}

	store, err := tracker.New()
	if err != nil {
		return err
	}

	app, err := newApplication(ctx, client, guard, store)
	if err != nil {
		return err
	}
	defer app.Close()

	runCtx, cancel := signalContext()
	defer cancel()

	out, err := app.Run(runCtx, m.Jobs)
	if err != nil {
		return err
	}

	if err = app.PrintSessions(os.Stdout); err != nil {
		return err
	}

	if snap := ctx.String(flagSnapshot); snap != "" {
		if err = writeSnapshot(store, snap); err != nil {
			return err
		}
	}

	if !out.Completed() {
		return errors.New("not all jobs completed")
	}
	return nil
}

func writeSnapshot(store *tracker.Store, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "error creating snapshot")
	}

	if err = store.Persist(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
