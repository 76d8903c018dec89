package tracker

import (
	"github.com/hashicorp/go-memdb"
	"github.com/nrwiersma/jobwatch/job"
	"github.com/pkg/errors"
	"github.com/segmentio/ksuid"
)

const (
	tableIndex   = "index"
	tableRecords = "records"
)

// Store is an in-memory registry of poll sessions.
//
// Store is safe for concurrent use.
type Store struct {
	schema *memdb.DBSchema
	db     *memdb.MemDB
}

// New returns a session store.
func New() (*Store, error) {
	dbSchema := &memdb.DBSchema{
		Tables: map[string]*memdb.TableSchema{
			tableIndex:   indexTableSchema(),
			tableRecords: recordsTableSchema(),
		},
	}

	db, err := memdb.NewMemDB(dbSchema)
	if err != nil {
		return nil, err
	}

	return &Store{
		schema: dbSchema,
		db:     db,
	}, nil
}

// Record returns the record with the given id or nil.
func (s *Store) Record(id string) (*Record, error) {
	tx := s.db.Txn(false)
	defer tx.Abort()

	rec, err := tx.First(tableRecords, "id", id)
	if err != nil {
		return nil, errors.Wrap(err, "tracker: record lookup failed")
	}
	if rec == nil {
		return nil, nil
	}
	return rec.(*Record), nil
}

// Records returns all records ordered by id, along with the store index.
// The watch set, if given, fires when any record changes.
func (s *Store) Records(ws memdb.WatchSet) (uint64, []*Record, error) {
	tx := s.db.Txn(false)
	defer tx.Abort()

	idx := maxIndex(tx, tableRecords)
	iter, err := tx.Get(tableRecords, "id")
	if err != nil {
		return 0, nil, errors.Wrap(err, "tracker: record lookup failed")
	}
	if ws != nil {
		ws.Add(iter.WatchCh())
	}

	return idx, collect(iter), nil
}

// ByState returns the records in the given state.
func (s *Store) ByState(state job.State) ([]*Record, error) {
	tx := s.db.Txn(false)
	defer tx.Abort()

	iter, err := tx.Get(tableRecords, "state", state)
	if err != nil {
		return nil, errors.Wrap(err, "tracker: record lookup failed")
	}
	return collect(iter), nil
}

// Counts returns the number of records per state.
func (s *Store) Counts() (map[job.State]int, error) {
	_, recs, err := s.Records(nil)
	if err != nil {
		return nil, err
	}

	counts := map[job.State]int{}
	for _, rec := range recs {
		counts[rec.State]++
	}
	return counts, nil
}

// Upsert inserts or replaces a record. A record without an id
// is given a new one. The stored record is a copy of rec.
func (s *Store) Upsert(rec *Record) error {
	if rec.ID == "" {
		rec.ID = ksuid.New().String()
	}

	tx := s.db.Txn(true)
	defer tx.Abort()

	idx := maxIndex(tx, tableRecords) + 1
	rec.Index = idx

	cpy := *rec
	if err := tx.Insert(tableRecords, &cpy); err != nil {
		return errors.Wrap(err, "tracker: failed inserting record")
	}
	if err := updateIndex(tx, tableRecords, idx); err != nil {
		return errors.Wrap(err, "tracker: failed updating index")
	}

	tx.Commit()
	return nil
}

func collect(iter memdb.ResultIterator) []*Record {
	var recs []*Record
	for next := iter.Next(); next != nil; next = iter.Next() {
		recs = append(recs, next.(*Record))
	}
	return recs
}

// IndexEntry keeps a record of the last index per-table.
type IndexEntry struct {
	Table string
	Index uint64
}

func indexTableSchema() *memdb.TableSchema {
	return &memdb.TableSchema{
		Name: tableIndex,
		Indexes: map[string]*memdb.IndexSchema{
			"id": {
				Name:         "id",
				AllowMissing: false,
				Unique:       true,
				Indexer: &memdb.StringFieldIndex{
					Field:     "Table",
					Lowercase: true,
				},
			},
		},
	}
}

func updateIndex(tx *memdb.Txn, tbl string, idx uint64) error {
	return tx.Insert(tableIndex, &IndexEntry{Table: tbl, Index: idx})
}

func maxIndex(tx *memdb.Txn, tables ...string) uint64 {
	var max uint64

	for _, table := range tables {
		ti, err := tx.First(tableIndex, "id", table)
		if err != nil {
			continue
		}

		if idx, ok := ti.(*IndexEntry); ok && idx.Index > max {
			max = idx.Index
		}
	}
	return max
}
