package main

import (
	"context"
	"fmt"
	"os"

	"github.com/hamba/cmd"
	"github.com/nrwiersma/jobwatch/api"
	"github.com/nrwiersma/jobwatch/job"
	"github.com/pkg/errors"
	"gopkg.in/urfave/cli.v2"
)

func runStatus(c *cli.Context) error {
	ctx, err := cmd.NewContext(c)
	if err != nil {
		return err
	}

	id := c.Args().First()
	if id == "" {
		return errors.New("a job id is required")
	}

	client, err := newClient(ctx, "")
	if err != nil {
		return err
	}

	callCtx, cancel := context.WithTimeout(context.Background(), ctx.Duration(flagCallTimeout))
	defer cancel()

	raw, err := client.Call(callCtx, api.ActionGetJobStatus, api.JobStatusData{JobID: id})
	if err != nil {
		return err
	}

	st := job.Interpret(raw)
	fmt.Printf("%s: %s\n", id, st)

	switch st.Kind {
	case job.StatusCompleted:
		return printJSON(os.Stdout, st.Result)
	case job.StatusFailed:
		fmt.Println(st.Error)
	case job.StatusUnknown:
		fmt.Println(string(st.Raw))
	}
	return nil
}
