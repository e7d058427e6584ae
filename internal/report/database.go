package report

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"go.etcd.io/bbolt"
)

const bucketName = "reports"

// DB defines the interface for report store operations
type DB interface {
	// SaveReport stores a new report. Returns ErrReportExists without
	// modifying the store if the ID is already present.
	SaveReport(report *SummaryReport) error

	// UpdateReport overwrites an existing report. Returns
	// ErrReportNotFound if the ID is not present.
	UpdateReport(report *SummaryReport) error

	// GetReport retrieves a report by ID
	GetReport(id string) (*SummaryReport, error)

	// ListReports returns all stored reports
	ListReports() ([]*SummaryReport, error)

	// DeleteReport removes a report. Deleting an absent ID is a no-op.
	DeleteReport(id string) error

	// Close closes the database connection
	Close() error
}

// BoltDB implements the DB interface using BoltDB. Reports are stored as
// individual JSON records keyed by ID, so saves and deletes never rewrite
// the whole collection.
type BoltDB struct {
	db *bbolt.DB
}

// NewBoltDB creates a new BoltDB instance
func NewBoltDB(path string) (*BoltDB, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening boltdb: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketName))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating bucket: %w", err)
	}

	return &BoltDB{db: db}, nil
}

// SaveReport stores a new report, refusing duplicates
func (b *BoltDB) SaveReport(report *SummaryReport) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(bucketName))
		if bucket.Get([]byte(report.ID)) != nil {
			return ErrReportExists
		}
		data, err := json.Marshal(report)
		if err != nil {
			return fmt.Errorf("marshaling report: %w", err)
		}
		return bucket.Put([]byte(report.ID), data)
	})
}

// UpdateReport overwrites an existing report
func (b *BoltDB) UpdateReport(report *SummaryReport) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(bucketName))
		if bucket.Get([]byte(report.ID)) == nil {
			return ErrReportNotFound
		}
		data, err := json.Marshal(report)
		if err != nil {
			return fmt.Errorf("marshaling report: %w", err)
		}
		return bucket.Put([]byte(report.ID), data)
	})
}

// GetReport retrieves a report by ID
func (b *BoltDB) GetReport(id string) (*SummaryReport, error) {
	var report *SummaryReport
	err := b.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(bucketName))
		data := bucket.Get([]byte(id))
		if data == nil {
			return ErrReportNotFound
		}
		return json.Unmarshal(data, &report)
	})
	if err != nil {
		return nil, err
	}
	return report, nil
}

// ListReports returns all stored reports. A record that no longer parses
// against the expected shape is skipped with a warning rather than
// failing the whole listing.
func (b *BoltDB) ListReports() ([]*SummaryReport, error) {
	reports := make([]*SummaryReport, 0)
	err := b.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(bucketName))
		return bucket.ForEach(func(k, v []byte) error {
			var report SummaryReport
			if err := json.Unmarshal(v, &report); err != nil {
				slog.Warn("Skipping corrupt report record", "id", string(k), "error", err)
				return nil
			}
			reports = append(reports, &report)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return reports, nil
}

// DeleteReport removes a report from the store
func (b *BoltDB) DeleteReport(id string) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(bucketName))
		return bucket.Delete([]byte(id))
	})
}

// Close closes the database connection
func (b *BoltDB) Close() error {
	return b.db.Close()
}
