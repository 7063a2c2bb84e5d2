// Package checkpoint keeps a registry of simulation runs in a bolt
// database, so that progress and outcome of a run can be inspected
// while it is running and after it has stopped.
package checkpoint

import (
	"encoding/json"
	"sort"
	"time"

	"github.com/op/go-logging"
	"github.com/pkg/errors"
	bolt "go.etcd.io/bbolt"

	"github.com/gerenuk/gerenuk/internal/logutil"
)

// RUNS is the bucket holding all runs.
var RUNS = []byte("runs")

// Status of a run.
type Status string

// Run statuses.
const (
	Running  Status = "running"
	Complete Status = "complete"
	Failed   Status = "failed"
)

// Run is the record of one simulation run.
type Run struct {
	Name       string
	Seed       uint64
	Replicates int
	Workers    int
	Collected  int
	Status     Status
	Output     string
	Error      string `json:",omitempty"`
	Started    time.Time
	Elapsed    float64
}

// Registry stores runs.
type Registry struct {
	db      *bolt.DB
	log     *logging.Logger
	last    time.Time
	seconds float64
}

// Open opens or creates a registry database. Progress updates are
// written at most once every seconds. A nil log discards messages.
func Open(path string, seconds float64, log *logging.Logger) (*Registry, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, errors.Wrapf(err, "opening run registry %s", path)
	}
	return &Registry{
		db:      db,
		log:     logutil.OrSilent(log, "checkpoint"),
		seconds: seconds,
	}, nil
}

// Close closes the database.
func (r *Registry) Close() error {
	return r.db.Close()
}

// Save stores a run under its name.
func (r *Registry) Save(run *Run) error {
	// Even if saving fails, we do not want to run this code too often.
	r.SetNow()
	run.Elapsed = time.Since(run.Started).Seconds()
	data, err := json.Marshal(run)
	if err != nil {
		r.log.Error("Error serializing run", err)
		return err
	}
	err = SaveData(r.db, []byte(run.Name), data)
	if err != nil {
		r.log.Error("Error saving run", err)
	}
	return err
}

// Progress stores a run if the last save is old enough.
func (r *Registry) Progress(run *Run) error {
	if !r.Old() {
		return nil
	}
	return r.Save(run)
}

// Load returns the run stored under name, nil if there is none.
func (r *Registry) Load(name string) (*Run, error) {
	b, err := LoadData(r.db, []byte(name))
	if err != nil || b == nil {
		return nil, err
	}
	var run Run
	if err := json.Unmarshal(b, &run); err != nil {
		return nil, errors.Wrapf(err, "decoding run %s", name)
	}
	if run.Status == Running {
		r.log.Noticef("Found unfinished run %s (%d of %d replicates)", run.Name, run.Collected, run.Replicates)
	}
	return &run, nil
}

// List returns all runs ordered by start time.
func (r *Registry) List() ([]*Run, error) {
	var runs []*Run
	err := r.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(RUNS)
		if b == nil {
			return nil
		}
		return b.ForEach(func(k, v []byte) error {
			var run Run
			if err := json.Unmarshal(v, &run); err != nil {
				return errors.Wrapf(err, "decoding run %s", k)
			}
			runs = append(runs, &run)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(runs, func(i, j int) bool { return runs[i].Started.Before(runs[j].Started) })
	return runs, nil
}

// Old returns true if last save time too long ago.
func (r *Registry) Old() bool {
	return time.Since(r.last).Seconds() > r.seconds
}

// SetNow sets last save time to now.
func (r *Registry) SetNow() {
	r.last = time.Now()
}

// SaveData saves values in bolt database.
func SaveData(db *bolt.DB, key []byte, data []byte) error {
	if db == nil {
		return nil
	}
	return db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(RUNS)
		if err != nil {
			return err
		}
		return b.Put(key, data)
	})
}

// LoadData loads data from bolt database.
func LoadData(db *bolt.DB, key []byte) ([]byte, error) {
	var data []byte
	if db == nil {
		return nil, nil
	}
	err := db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(RUNS)
		if b == nil {
			return nil
		}
		// v is only valid during the transaction
		if v := b.Get(key); v != nil {
			data = make([]byte, len(v))
			copy(data, v)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return data, nil
}
