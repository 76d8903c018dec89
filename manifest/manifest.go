// Package manifest reads batch job manifests.
//
// A manifest lists the jobs to submit and may override the polling limits:
//
//	code: PHOTO2026
//	interval: 2s
//	maxAttempts: 30
//	jobs:
//	  - name: cover
//	    action: analyzePhoto
//	    data:
//	      url: https://example.com/cover.jpg
package manifest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/nrwiersma/jobwatch/job"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// ErrInvalid is returned when a manifest fails validation.
var ErrInvalid = errors.New("manifest: invalid manifest")

// Manifest is a batch of jobs.
type Manifest struct {
	// Code overrides the configured invite code.
	Code string `yaml:"code"`

	// Interval, MaxAttempts and CallTimeout override the
	// configured polling limits when set.
	Interval    time.Duration `yaml:"interval"`
	MaxAttempts int           `yaml:"maxAttempts"`
	CallTimeout time.Duration `yaml:"callTimeout"`

	Jobs []Job `yaml:"jobs"`
}

// Job is a single unit of work.
type Job struct {
	Name   string      `yaml:"name"`
	Action string      `yaml:"action"`
	Data   interface{} `yaml:"data"`
}

// Request returns the job submission request.
func (j Job) Request() job.Request {
	return job.Request{Action: j.Action, Data: j.Data}
}

// Load reads and parses the manifest at path.
func Load(path string) (*Manifest, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "manifest: error reading file")
	}
	return Parse(b)
}

// Parse parses and validates a manifest. Unknown fields are rejected.
func Parse(b []byte) (*Manifest, error) {
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)

	var m Manifest
	if err := dec.Decode(&m); err != nil && err != io.EOF {
		return nil, errors.Wrap(err, "manifest: error parsing yaml")
	}

	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Validate checks the manifest and names unnamed jobs job-<n>,
// where n is the 1-indexed position of the job.
func (m *Manifest) Validate() error {
	if len(m.Jobs) == 0 {
		return errors.Wrap(ErrInvalid, "no jobs")
	}
	if m.Interval < 0 || m.CallTimeout < 0 || m.MaxAttempts < 0 {
		return errors.Wrap(ErrInvalid, "polling limits cannot be negative")
	}

	seen := make(map[string]bool, len(m.Jobs))
	for i := range m.Jobs {
		j := &m.Jobs[i]
		if j.Name == "" {
			j.Name = fmt.Sprintf("job-%d", i+1)
		}
		if seen[j.Name] {
			return errors.Wrapf(ErrInvalid, "duplicate job name %q", j.Name)
		}
		seen[j.Name] = true

		if j.Action == "" {
			return errors.Wrapf(ErrInvalid, "job %q has no action", j.Name)
		}
		if _, err := json.Marshal(j.Data); err != nil {
			return errors.Wrapf(ErrInvalid, "job %q data cannot be encoded: %v", j.Name, err)
		}
	}
	return nil
}

// Guard returns base with the manifest overrides applied.
func (m *Manifest) Guard(base job.Guard) job.Guard {
	if m.Interval > 0 {
		base.Interval = m.Interval
	}
	if m.MaxAttempts > 0 {
		base.MaxAttempts = m.MaxAttempts
	}
	if m.CallTimeout > 0 {
		base.CallTimeout = m.CallTimeout
	}
	return base
}
