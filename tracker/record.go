package tracker

import (
	"fmt"
	"time"

	"github.com/hashicorp/go-memdb"
	"github.com/nrwiersma/jobwatch/job"
)

// StatusSubmitFailed is the last status of a record whose job
// was never accepted by the service.
const StatusSubmitFailed = "submit-failed"

// Record is the tracked state of a single job session.
//
// Records returned by the store must not be modified;
// change a copy and Upsert it instead.
type Record struct {
	ID     string
	Name   string
	Action string
	Handle job.Handle

	State      job.State
	Attempts   int
	LastStatus string
	Error      string
	Result     []byte

	StartedAt time.Time
	UpdatedAt time.Time

	// Index is the store index of the last change to the record.
	Index uint64
}

// Elapsed returns the time between the start and the last update.
func (r *Record) Elapsed() time.Duration {
	if r.StartedAt.IsZero() {
		return 0
	}
	return r.UpdatedAt.Sub(r.StartedAt)
}

func recordsTableSchema() *memdb.TableSchema {
	return &memdb.TableSchema{
		Name: tableRecords,
		Indexes: map[string]*memdb.IndexSchema{
			"id": {
				Name:         "id",
				AllowMissing: false,
				Unique:       true,
				Indexer: &memdb.StringFieldIndex{
					Field: "ID",
				},
			},
			"state": {
				Name:         "state",
				AllowMissing: false,
				Unique:       false,
				Indexer:      stateIndex{},
			},
		},
	}
}

// stateIndex indexes records by their session state name.
type stateIndex struct{}

func (stateIndex) FromObject(obj interface{}) (bool, []byte, error) {
	rec, ok := obj.(*Record)
	if !ok {
		return false, nil, fmt.Errorf("tracker: unexpected object type %T", obj)
	}
	return true, stateKey(rec.State), nil
}

func (stateIndex) FromArgs(args ...interface{}) ([]byte, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("tracker: must provide only a single argument")
	}

	switch arg := args[0].(type) {
	case job.State:
		return stateKey(arg), nil
	case string:
		return []byte(arg + "\x00"), nil
	default:
		return nil, fmt.Errorf("tracker: argument must be a state: %#v", args[0])
	}
}

func stateKey(s job.State) []byte {
	return []byte(s.String() + "\x00")
}
