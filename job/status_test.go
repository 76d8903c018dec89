package job_test

import (
	"encoding/json"
	"testing"

	"github.com/nrwiersma/jobwatch/job"
	"github.com/stretchr/testify/assert"
)

func TestInterpret(t *testing.T) {
	tests := []struct {
		name       string
		raw        string
		wantKind   job.StatusKind
		wantResult string
		wantError  string
	}{
		{name: "Pending", raw: `{"status":"pending"}`, wantKind: job.StatusPending},
		{name: "Processing", raw: `{"status":"processing"}`, wantKind: job.StatusProcessing},
		{name: "Running", raw: `{"status":"running"}`, wantKind: job.StatusProcessing},
		{name: "Completed", raw: `{"status":"completed","result":{"score":0.9}}`, wantKind: job.StatusCompleted, wantResult: `{"score":0.9}`},
		{name: "Done", raw: `{"status":"done","result":"ok"}`, wantKind: job.StatusCompleted, wantResult: `"ok"`},
		{name: "Completed Without Result", raw: `{"status":"completed"}`, wantKind: job.StatusCompleted},
		{name: "Completed Null Result", raw: `{"status":"completed","result":null}`, wantKind: job.StatusCompleted},
		{name: "Failed", raw: `{"status":"failed","error":"quota"}`, wantKind: job.StatusFailed, wantError: "quota"},
		{name: "Error Token", raw: `{"status":"error","error":"boom"}`, wantKind: job.StatusFailed, wantError: "boom"},
		{name: "Failed Without Message", raw: `{"status":"failed"}`, wantKind: job.StatusFailed},
		{name: "Failed Object Message", raw: `{"status":"failed","error":{"code":7}}`, wantKind: job.StatusFailed, wantError: `{"code":7}`},
		{name: "Unknown Token", raw: `{"status":"weird"}`, wantKind: job.StatusUnknown},
		{name: "Case Sensitive", raw: `{"status":"COMPLETED"}`, wantKind: job.StatusUnknown},
		{name: "Missing Status", raw: `{"result":1}`, wantKind: job.StatusUnknown},
		{name: "Non String Status", raw: `{"status":3}`, wantKind: job.StatusUnknown},
		{name: "Not JSON", raw: `not json`, wantKind: job.StatusUnknown},
		{name: "Array", raw: `[1,2]`, wantKind: job.StatusUnknown},
		{name: "Empty", raw: ``, wantKind: job.StatusUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := job.Interpret([]byte(tt.raw))

			assert.Equal(t, tt.wantKind, got.Kind)
			if tt.wantResult != "" {
				assert.JSONEq(t, tt.wantResult, string(got.Result))
			} else {
				assert.Empty(t, got.Result)
			}
			assert.Equal(t, tt.wantError, got.Error)
			if tt.wantKind == job.StatusUnknown {
				assert.Equal(t, tt.raw, string(got.Raw))
			} else {
				assert.Empty(t, got.Raw)
			}
		})
	}
}

func TestInterpret_Idempotent(t *testing.T) {
	raw := []byte(`{"status":"completed","result":{"score":0.9}}`)

	first := job.Interpret(raw)
	second := job.Interpret(raw)

	assert.Equal(t, first, second)
}

func TestInterpret_DoesNotAliasInput(t *testing.T) {
	raw := []byte(`garbage`)

	got := job.Interpret(raw)
	raw[0] = 'X'

	assert.Equal(t, "garbage", string(got.Raw))
}

func TestStatusKind_Terminal(t *testing.T) {
	assert.False(t, job.StatusUnknown.Terminal())
	assert.False(t, job.StatusPending.Terminal())
	assert.False(t, job.StatusProcessing.Terminal())
	assert.True(t, job.StatusCompleted.Terminal())
	assert.True(t, job.StatusFailed.Terminal())
}

func TestStatus_String(t *testing.T) {
	st := job.Interpret(json.RawMessage(`{"status":"running"}`))

	assert.Equal(t, "processing", st.String())
}
