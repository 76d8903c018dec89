package jobwatch

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/nrwiersma/jobwatch/tracker"
)

// maxErrorLen is the maximum error length printed in a session table.
const maxErrorLen = 60

// PrintSessions prints a table of the tracked sessions.
func (a *Application) PrintSessions(w io.Writer) error {
	_, recs, err := a.store.Records(nil)
	if err != nil {
		return err
	}
	return PrintRecords(w, recs)
}

// PrintRecords prints a table of session records.
func PrintRecords(w io.Writer, recs []*tracker.Record) error {
	tw := tabwriter.NewWriter(w, 10, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n", "NAME", "JOB", "ACTION", "STATE", "ATTEMPTS", "ELAPSED", "ERROR")
	for _, rec := range recs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\t%s\n",
			rec.Name,
			orDash(string(rec.Handle)),
			rec.Action,
			rec.State,
			rec.Attempts,
			rec.Elapsed().Round(time.Millisecond),
			orDash(shorten(rec.Error, maxErrorLen)),
		)
	}
	return tw.Flush()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func shorten(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
