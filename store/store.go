// Package store persists the daily session counter to the data store.
package store

import (
	"encoding/json"
	"errors"
	"io/fs"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/tomatotools/pomo/internal/timeutil"
)

const sessionsBucket = "sessions"

var errPomoRunning = errors.New(
	"is pomo already running? Only one instance can be active at a time",
)

// DayCount is the number of completed work sessions on a calendar day.
type DayCount struct {
	Date  time.Time `json:"date"`
	Count int       `json:"count"`
}

// Client is a BoltDB database client.
type Client struct {
	*bolt.DB
}

// Count retrieves the session count for the specified day. A missing record
// yields zero, so the counter resets implicitly on day rollover.
func (c *Client) Count(day time.Time) (int, error) {
	var count int

	err := c.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(sessionsBucket)).Get(timeutil.ToDayKey(day))
		if len(b) == 0 {
			return nil
		}

		var dc DayCount

		if err := json.Unmarshal(b, &dc); err != nil {
			return err
		}

		count = dc.Count

		return nil
	})

	return count, err
}

// SetCount records the session count for the specified day.
func (c *Client) SetCount(day time.Time, count int) error {
	dc := DayCount{
		Date:  day,
		Count: count,
	}

	value, err := json.Marshal(dc)
	if err != nil {
		return err
	}

	return c.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(sessionsBucket)).Put(timeutil.ToDayKey(day), value)
	})
}

// History returns the recorded daily counts for the most recent days,
// newest first.
func (c *Client) History(days int) ([]DayCount, error) {
	var counts []DayCount

	err := c.View(func(tx *bolt.Tx) error {
		cur := tx.Bucket([]byte(sessionsBucket)).Cursor()

		for k, v := cur.Last(); k != nil && len(counts) < days; k, v = cur.Prev() {
			var dc DayCount

			if err := json.Unmarshal(v, &dc); err != nil {
				// skip corrupt records rather than failing the listing
				continue
			}

			counts = append(counts, dc)
		}

		return nil
	})

	return counts, err
}

// openDB creates or opens a database and locks it.
func openDB(pathToDB string) (*bolt.DB, error) {
	var fileMode fs.FileMode = 0o600

	db, err := bolt.Open(
		pathToDB,
		fileMode,
		&bolt.Options{Timeout: 1 * time.Second},
	)
	if err != nil {
		if errors.Is(err, bolt.ErrDatabaseOpen) ||
			errors.Is(err, bolt.ErrTimeout) {
			return nil, errPomoRunning
		}

		return nil, err
	}

	return db, nil
}

// NewClient returns a wrapper to a BoltDB connection.
func NewClient(dbPath string) (*Client, error) {
	db, err := openDB(dbPath)
	if err != nil {
		return nil, err
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err = tx.CreateBucketIfNotExists([]byte(sessionsBucket))
		return err
	})
	if err != nil {
		return nil, err
	}

	return &Client{
		db,
	}, nil
}
