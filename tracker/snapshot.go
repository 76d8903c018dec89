package tracker

import (
	"io"
	"time"

	"github.com/hashicorp/go-msgpack/codec"
	"github.com/nrwiersma/jobwatch/job"
	"github.com/pkg/errors"
)

// snapshotVersion is the version of the snapshot format.
const snapshotVersion = 1

// ErrUnsupportedSnapshot is returned when restoring a snapshot
// written in an unknown format.
var ErrUnsupportedSnapshot = errors.New("tracker: unsupported snapshot version")

// msgpackHandle is a shared handle for encoding/decoding snapshots.
var msgpackHandle = &codec.MsgpackHandle{}

type snapshotHeader struct {
	Version   int
	LastIndex uint64
	Count     int
}

// snapshotRecord is the encoded form of a Record.
type snapshotRecord struct {
	ID         string
	Name       string
	Action     string
	Handle     string
	State      int
	Attempts   int
	LastStatus string
	Error      string
	Result     []byte
	StartedAt  int64
	UpdatedAt  int64
	Index      uint64
}

// Persist writes a point-in-time snapshot of the store to w.
func (s *Store) Persist(w io.Writer) error {
	tx := s.db.Txn(false)
	defer tx.Abort()

	iter, err := tx.Get(tableRecords, "id")
	if err != nil {
		return errors.Wrap(err, "tracker: record lookup failed")
	}
	recs := collect(iter)

	header := snapshotHeader{
		Version:   snapshotVersion,
		LastIndex: maxIndex(tx, tableRecords),
		Count:     len(recs),
	}
	enc := codec.NewEncoder(w, msgpackHandle)
	if err = enc.Encode(&header); err != nil {
		return errors.Wrap(err, "tracker: error writing snapshot header")
	}

	for _, rec := range recs {
		sr := toSnapshot(rec)
		if err = enc.Encode(&sr); err != nil {
			return errors.Wrap(err, "tracker: error writing snapshot record")
		}
	}
	return nil
}

// Restore loads a snapshot written by Persist, replacing the
// records in the store. Nothing is changed if the snapshot is invalid.
func (s *Store) Restore(r io.Reader) error {
	dec := codec.NewDecoder(r, msgpackHandle)

	var header snapshotHeader
	if err := dec.Decode(&header); err != nil {
		return errors.Wrap(err, "tracker: error reading snapshot header")
	}
	if header.Version != snapshotVersion {
		return errors.Wrapf(ErrUnsupportedSnapshot, "version %d", header.Version)
	}

	tx := s.db.Txn(true)
	defer tx.Abort()

	if _, err := tx.DeleteAll(tableRecords, "id"); err != nil {
		return errors.Wrap(err, "tracker: error clearing records")
	}

	for i := 0; i < header.Count; i++ {
		var sr snapshotRecord
		if err := dec.Decode(&sr); err != nil {
			return errors.Wrapf(err, "tracker: error reading snapshot record %d", i)
		}

		rec := fromSnapshot(sr)
		if err := tx.Insert(tableRecords, rec); err != nil {
			return errors.Wrap(err, "tracker: failed inserting record")
		}
	}
	if err := updateIndex(tx, tableRecords, header.LastIndex); err != nil {
		return errors.Wrap(err, "tracker: failed updating index")
	}

	tx.Commit()
	return nil
}

func toSnapshot(rec *Record) snapshotRecord {
	return snapshotRecord{
		ID:         rec.ID,
		Name:       rec.Name,
		Action:     rec.Action,
		Handle:     string(rec.Handle),
		State:      int(rec.State),
		Attempts:   rec.Attempts,
		LastStatus: rec.LastStatus,
		Error:      rec.Error,
		Result:     rec.Result,
		StartedAt:  unixNano(rec.StartedAt),
		UpdatedAt:  unixNano(rec.UpdatedAt),
		Index:      rec.Index,
	}
}

func fromSnapshot(sr snapshotRecord) *Record {
	return &Record{
		ID:         sr.ID,
		Name:       sr.Name,
		Action:     sr.Action,
		Handle:     job.Handle(sr.Handle),
		State:      job.State(sr.State),
		Attempts:   sr.Attempts,
		LastStatus: sr.LastStatus,
		Error:      sr.Error,
		Result:     sr.Result,
		StartedAt:  fromUnixNano(sr.StartedAt),
		UpdatedAt:  fromUnixNano(sr.UpdatedAt),
		Index:      sr.Index,
	}
}

func unixNano(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}

func fromUnixNano(n int64) time.Time {
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n)
}
