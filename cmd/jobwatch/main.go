package main

import (
	"log"
	"os"
	"time"

	"github.com/hamba/cmd"
	"github.com/nrwiersma/jobwatch"
	"github.com/nrwiersma/jobwatch/api"
	"github.com/nrwiersma/jobwatch/job"
	"gopkg.in/urfave/cli.v2"
)

import _ "github.com/joho/godotenv/autoload"

const (
	flagURL           = "url"
	flagCode          = "code"
	flagSecret        = "secret"
	flagInterval      = "interval"
	flagMaxAttempts   = "max-attempts"
	flagCallTimeout   = "call-timeout"
	flagSubmitTimeout = "submit-timeout"
	flagRateLimit     = "rate-limit"
	flagVerbose       = "verbose"

	flagAction         = "action"
	flagData           = "data"
	flagConcurrency    = "concurrency"
	flagSnapshot       = "snapshot"
	flagReportInterval = "report-interval"
)

var version = "¯\\_(ツ)_/¯"

var serviceFlags = cmd.Flags{
	&cli.StringFlag{
		Name:    flagURL,
		Usage:   "The job service endpoint.",
		Value:   api.DefaultURL,
		EnvVars: []string{"JOBWATCH_URL", "PRODUCTION_URL"},
	},
	&cli.StringFlag{
		Name:    flagCode,
		Usage:   "The invite code sent with every call.",
		EnvVars: []string{"JOBWATCH_CODE", "INVITE_CODE"},
	},
	&cli.StringFlag{
		Name:    flagSecret,
		Usage:   "The secret used to sign requests. Requests are not signed if empty.",
		EnvVars: []string{"JOBWATCH_SECRET"},
	},
	&cli.DurationFlag{
		Name:    flagInterval,
		Usage:   "The time between status queries.",
		Value:   job.DefaultInterval,
		EnvVars: []string{"JOBWATCH_INTERVAL"},
	},
	&cli.IntFlag{
		Name:    flagMaxAttempts,
		Usage:   "The maximum number of status queries per job.",
		Value:   job.DefaultMaxAttempts,
		EnvVars: []string{"JOBWATCH_MAX_ATTEMPTS"},
	},
	&cli.DurationFlag{
		Name:    flagCallTimeout,
		Usage:   "The timeout of a single status query.",
		Value:   job.DefaultCallTimeout,
		EnvVars: []string{"JOBWATCH_CALL_TIMEOUT"},
	},
	&cli.DurationFlag{
		Name:    flagSubmitTimeout,
		Usage:   "The timeout of a job submission.",
		Value:   job.DefaultSubmitTimeout,
		EnvVars: []string{"JOBWATCH_SUBMIT_TIMEOUT"},
	},
	&cli.Float64Flag{
		Name:    flagRateLimit,
		Usage:   "The maximum number of calls per second. Zero is unlimited.",
		EnvVars: []string{"JOBWATCH_RATE_LIMIT"},
	},
	&cli.BoolFlag{
		Name:    flagVerbose,
		Usage:   "Report the cause of failed status queries.",
		EnvVars: []string{"JOBWATCH_VERBOSE"},
	},
}.Merge(cmd.CommonFlags)

var commands = []*cli.Command{
	{
		Name:  "submit",
		Usage: "Submit a job and wait for its result",
		Flags: cmd.Flags{
			&cli.StringFlag{
				Name:  flagAction,
				Usage: "The action processing the job.",
			},
			&cli.StringFlag{
				Name:  flagData,
				Usage: "The job input as JSON.",
				Value: "{}",
			},
		}.Merge(serviceFlags),
		Action: runSubmit,
	},
	{
		Name:      "poll",
		Usage:     "Wait for the result of a submitted job",
		ArgsUsage: "<job-id>",
		Flags:     serviceFlags,
		Action:    runPoll,
	},
	{
		Name:      "status",
		Usage:     "Query the status of a job once",
		ArgsUsage: "<job-id>",
		Flags:     serviceFlags,
		Action:    runStatus,
	},
	{
		Name:      "run",
		Usage:     "Run the jobs of a manifest",
		ArgsUsage: "<manifest>",
		Flags: cmd.Flags{
			&cli.IntFlag{
				Name:    flagConcurrency,
				Usage:   "The maximum number of jobs in flight.",
				Value:   jobwatch.DefaultConcurrency,
				EnvVars: []string{"JOBWATCH_CONCURRENCY"},
			},
			&cli.StringFlag{
				Name:    flagSnapshot,
				Usage:   "The file to write a session snapshot to.",
				EnvVars: []string{"JOBWATCH_SNAPSHOT"},
			},
			&cli.DurationFlag{
				Name:    flagReportInterval,
				Usage:   "The minimum time between progress reports. Zero disables them.",
				Value:   10 * time.Second,
				EnvVars: []string{"JOBWATCH_REPORT_INTERVAL"},
			},
		}.Merge(serviceFlags),
		Action: runRun,
	},
	{
		Name:      "report",
		Usage:     "Print a session snapshot",
		ArgsUsage: "<snapshot>",
		Action:    runReport,
	},
	{
		Name:   "keygen",
		Usage:  "Generate a request signing secret",
		Action: runKeyGen,
	},
}

func newApp() *cli.App {
	return &cli.App{
		Name:     "jobwatch",
		Usage:    "Submit asynchronous jobs and wait for their results",
		Version:  version,
		Commands: commands,
	}
}

func main() {
	app := newApp()

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
