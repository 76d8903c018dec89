// Package jobtest provides a scriptable fake job service for tests.
package jobtest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/hamba/pkg/log"
	"github.com/hamba/testutils/retry"
	"github.com/nrwiersma/jobwatch/api"
	xlog "github.com/nrwiersma/jobwatch/pkg/log"
	"github.com/travisjeffery/go-dynaport"
)

// Path is the path the fake service is served on.
const Path = "/api/gemini"

// CodeJobNotFound is sent for status queries of unknown jobs.
const CodeJobNotFound = "JOB_NOT_FOUND"

// Step is a single scripted response of the fake service.
type Step struct {
	// Status is the job status token sent.
	Status string

	// Result is sent as the job result.
	Result interface{}

	// Error is sent as the job failure message.
	Error string

	// Code, when set to a non-success status, is sent as the HTTP
	// status with Body as the response body.
	Code int

	// Body, when set, is sent as the response body verbatim.
	Body string

	// Delay delays the response.
	Delay time.Duration
}

// Config holds the fake service configuration.
type Config struct {
	// Code is the invite code required on every call, if set.
	Code string

	// Secret enables signature verification when set.
	Secret []byte

	// Logger receives the server error log.
	Logger log.Logger
}

// Call is a call received by the fake service.
type Call struct {
	Action    string
	Data      json.RawMessage
	RequestID string
}

// Server is a scriptable fake job service.
//
// Jobs follow the steps scripted for their action, one step per
// status query, repeating the last step. Jobs of unscripted actions
// complete on the first query with their input as result.
type Server struct {
	// URL is the service endpoint.
	URL string

	cfg Config
	srv *http.Server
	ln  net.Listener

	mu      sync.Mutex
	scripts map[string][]Step
	submit  []Step
	jobs    map[string]*fakeJob
	order   []string
	calls   []Call
}

type fakeJob struct {
	id     string
	action string
	data   json.RawMessage
	steps  []Step
	polls  int
}

// NewServer starts a fake job service on a free local port.
func NewServer(t *testing.T, cfgFn func(cfg *Config)) *Server {
	t.Helper()

	cfg := Config{Logger: log.Null}
	if cfgFn != nil {
		cfgFn(&cfg)
	}

	port := dynaport.Get(1)[0]
	addr := net.JoinHostPort("127.0.0.1", strconv.Itoa(port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		t.Fatalf("err != nil: %s", err)
	}

	s := &Server{
		URL:     "http://" + addr + Path,
		cfg:     cfg,
		ln:      ln,
		scripts: map[string][]Step{},
		jobs:    map[string]*fakeJob{},
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Post(Path, s.handle)

	s.srv = &http.Server{
		Handler:  r,
		ErrorLog: xlog.NewBridge(cfg.Logger, xlog.Error, "jobtest: "),
	}
	go func() {
		_ = s.srv.Serve(ln)
	}()

	retry.Run(t, func(t *retry.SubT) {
		conn, err := net.Dial("tcp", addr)
		if err != nil {
			t.Fatal(err)
		}
		_ = conn.Close()
	})

	return s
}

// Close stops the fake service.
func (s *Server) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	return s.srv.Shutdown(ctx)
}

// Script sets the steps followed by jobs submitted for action.
// Without steps the action is unscripted again.
func (s *Server) Script(action string, steps ...Step) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(steps) == 0 {
		delete(s.scripts, action)
		return
	}
	s.scripts[action] = steps
}

// FailSubmit makes the next submissions respond with the given steps,
// one step per submission, instead of creating a job.
func (s *Server) FailSubmit(steps ...Step) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.submit = append(s.submit, steps...)
}

// Jobs returns the ids of the submitted jobs in submission order.
func (s *Server) Jobs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]string(nil), s.order...)
}

// Polls returns the number of status queries received for a job.
func (s *Server) Polls(id string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, ok := s.jobs[id]
	if !ok {
		return 0
	}
	return j.polls
}

// Calls returns the calls received.
func (s *Server) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]Call(nil), s.calls...)
}

type request struct {
	Code   string          `json:"code"`
	Action string          `json:"action"`
	Data   json.RawMessage `json:"data"`
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST")
		return
	}

	var req request
	if err = json.Unmarshal(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST")
		return
	}

	if len(s.cfg.Secret) > 0 {
		ts := r.Header.Get(api.HeaderTimestamp)
		if !api.Verify(s.cfg.Secret, ts, body, r.Header.Get(api.HeaderSignature)) {
			writeError(w, http.StatusUnauthorized, api.CodeInvalidSignature)
			return
		}

		var enc string
		if err = json.Unmarshal(req.Data, &enc); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_REQUEST")
			return
		}
		var raw json.RawMessage
		if err = api.DecodeData(enc, &raw); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_REQUEST")
			return
		}
		req.Data = raw
	}

	if s.cfg.Code != "" && req.Code != s.cfg.Code {
		writeError(w, http.StatusUnauthorized, api.CodeInvalidInviteCode)
		return
	}

	s.mu.Lock()
	s.calls = append(s.calls, Call{Action: req.Action, Data: req.Data, RequestID: r.Header.Get(api.HeaderRequestID)})
	s.mu.Unlock()

	switch req.Action {
	case api.ActionSubmitJob:
		s.handleSubmit(w, r, req.Data)
	case api.ActionGetJobStatus:
		s.handleStatus(w, r, req.Data)
	default:
		writeError(w, http.StatusBadRequest, "INVALID_ACTION")
	}
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request, data json.RawMessage) {
	var sub struct {
		Action string          `json:"action"`
		Data   json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(data, &sub); err != nil || sub.Action == "" {
		writeError(w, http.StatusBadRequest, "INVALID_ACTION")
		return
	}

	s.mu.Lock()
	if len(s.submit) > 0 {
		step := s.submit[0]
		s.submit = s.submit[1:]
		s.mu.Unlock()

		s.write(w, r, step, nil)
		return
	}

	id := fmt.Sprintf("job-%d", len(s.order)+1)
	steps, ok := s.scripts[sub.Action]
	if !ok {
		steps = []Step{{Status: "completed", Result: sub.Data}}
	}
	s.jobs[id] = &fakeJob{id: id, action: sub.Action, data: sub.Data, steps: steps}
	s.order = append(s.order, id)
	s.mu.Unlock()

	writeResult(w, api.SubmitJobResult{JobID: id, Status: "pending"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request, data json.RawMessage) {
	var q api.JobStatusData
	if err := json.Unmarshal(data, &q); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST")
		return
	}

	s.mu.Lock()
	j, ok := s.jobs[q.JobID]
	if !ok {
		s.mu.Unlock()
		writeError(w, http.StatusNotFound, CodeJobNotFound)
		return
	}
	idx := j.polls
	if idx >= len(j.steps) {
		idx = len(j.steps) - 1
	}
	j.polls++
	step := j.steps[idx]
	s.mu.Unlock()

	s.write(w, r, step, j)
}

func (s *Server) write(w http.ResponseWriter, r *http.Request, step Step, j *fakeJob) {
	if step.Delay > 0 {
		t := time.NewTimer(step.Delay)
		select {
		case <-r.Context().Done():
			t.Stop()
			return
		case <-t.C:
		}
	}

	switch {
	case step.Code != 0 && (step.Code < 200 || step.Code >= 300):
		w.WriteHeader(step.Code)
		_, _ = w.Write([]byte(step.Body))

	case step.Body != "":
		_, _ = w.Write([]byte(step.Body))

	case j == nil:
		writeError(w, http.StatusOK, step.Error)

	default:
		res := api.JobStatusResult{
			JobID:  j.id,
			Status: step.Status,
			Action: j.action,
			Error:  step.Error,
		}
		if step.Result != nil {
			b, err := json.Marshal(step.Result)
			if err != nil {
				writeError(w, http.StatusInternalServerError, "PROCESSING_ERROR")
				return
			}
			res.Result = b
		}
		writeResult(w, res)
	}
}

func writeResult(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]interface{}{"result": v})
}

func writeError(w http.ResponseWriter, code int, errCode string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(api.ServiceError{Code: errCode})
}
