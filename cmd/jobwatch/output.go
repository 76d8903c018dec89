package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/nrwiersma/jobwatch/job"
)

func printProgress(w io.Writer) job.ProgressFunc {
	if w == nil {
		w = os.Stderr
	}

	return func(obs job.Observation) {
		attempt := obs.Attempt
		total := obs.Attempt + obs.Remaining

		switch {
		case obs.Transient && obs.Err != nil:
			fmt.Fprintf(w, "[%d/%d] %s: query failed: %v\n", attempt, total, obs.Handle, obs.Err)
		case obs.Transient:
			fmt.Fprintf(w, "[%d/%d] %s: query failed\n", attempt, total, obs.Handle)
		default:
			fmt.Fprintf(w, "[%d/%d] %s: %s\n", attempt, total, obs.Handle, obs.Status)
		}
	}
}

// printJSON writes indented JSON, or null when raw is empty.
func printJSON(w io.Writer, raw json.RawMessage) error {
	if len(raw) == 0 {
		_, err := fmt.Fprintln(w, "null")
		return err
	}

	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		_, err = fmt.Fprintln(w, string(raw))
		return err
	}
	buf.WriteByte('\n')
	_, err := buf.WriteTo(w)
	return err
}
