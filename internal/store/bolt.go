package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.etcd.io/bbolt"

	"github.com/katakuxiko/luminarag/internal/model"
)

// Bolt keeps one collection per bucket in a single bbolt file. Records are
// JSON values keyed by chunk id; search is a full cosine scan.
type Bolt struct {
	db     *bbolt.DB
	bucket []byte
}

// OpenBolt opens path and creates the collection bucket if it is missing.
func OpenBolt(path, collection string) (*Bolt, error) {
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, err
	}
	bucket := []byte(collection)
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &Bolt{db: db, bucket: bucket}, nil
}

func (s *Bolt) Upsert(_ context.Context, recs []Record) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return putRecords(tx.Bucket(s.bucket), recs)
	})
}

func (s *Bolt) ReplaceFile(_ context.Context, fileName string, recs []Record) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(s.bucket)
		var stale [][]byte
		err := b.ForEach(func(k, v []byte) error {
			var r Record
			if err := json.Unmarshal(v, &r); err != nil {
				return fmt.Errorf("decode %s: %w", k, err)
			}
			if r.FileName == fileName {
				stale = append(stale, append([]byte(nil), k...))
			}
			return nil
		})
		if err != nil {
			return err
		}
		for _, k := range stale {
			if err := b.Delete(k); err != nil {
				return err
			}
		}
		return putRecords(b, recs)
	})
}

func (s *Bolt) Nearest(_ context.Context, vec []float32, k int) ([]model.Hit, error) {
	var recs []Record
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(s.bucket).ForEach(func(key, v []byte) error {
			var r Record
			if err := json.Unmarshal(v, &r); err != nil {
				return fmt.Errorf("decode %s: %w", key, err)
			}
			recs = append(recs, r)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return rank(recs, vec, k)
}

func (s *Bolt) Delete(_ context.Context, ids []string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(s.bucket)
		for _, id := range ids {
			if err := b.Delete([]byte(id)); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Bolt) Count(context.Context) (int, error) {
	var n int
	err := s.db.View(func(tx *bbolt.Tx) error {
		n = tx.Bucket(s.bucket).Stats().KeyN
		return nil
	})
	return n, err
}

func (s *Bolt) Close() error {
	return s.db.Close()
}

func putRecords(b *bbolt.Bucket, recs []Record) error {
	for _, r := range recs {
		data, err := json.Marshal(r)
		if err != nil {
			return err
		}
		if err := b.Put([]byte(r.ID), data); err != nil {
			return err
		}
	}
	return nil
}
