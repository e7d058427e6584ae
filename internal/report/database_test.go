package report

import (
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.etcd.io/bbolt"
)

var _ = Describe("BoltDB", func() {
	var (
		tmpDir string
		dbPath string
		db     *BoltDB
	)

	newTestReport := func(id string) *SummaryReport {
		return &SummaryReport{
			ID:        id,
			Title:     "Streaming Service Terms",
			CreatedAt: time.Date(2025, 3, 10, 9, 30, 0, 0, time.UTC),
			FullText:  "1. You agree to everything.",
			SummaryEN: "You agree to everything.",
			SummaryBN: "আপনি সবকিছুতে সম্মত হচ্ছেন।",
			KeyClauses: []KeyClause{
				{Title: "Arbitration", ExplanationEN: "No courts.", ExplanationBN: "আদালত নয়।"},
			},
		}
	}

	BeforeEach(func() {
		tmpDir = GinkgoT().TempDir()
		dbPath = filepath.Join(tmpDir, "test.db")
		var err error
		db, err = NewBoltDB(dbPath)
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		if db != nil {
			db.Close()
		}
	})

	Describe("SaveReport", func() {
		var (
			report *SummaryReport
			err    error
		)

		BeforeEach(func() {
			report = newTestReport("test-id")
		})

		JustBeforeEach(func() {
			err = db.SaveReport(report)
		})

		When("saving succeeds", func() {
			It("should not return an error", func() {
				Expect(err).NotTo(HaveOccurred())
			})

			It("should save the report to the database", func() {
				saved, getErr := db.GetReport("test-id")
				Expect(getErr).NotTo(HaveOccurred())
				Expect(saved.Title).To(Equal("Streaming Service Terms"))
				Expect(saved.KeyClauses).To(HaveLen(1))
			})
		})

		When("the ID is already in the store", func() {
			BeforeEach(func() {
				existing := newTestReport("test-id")
				existing.Title = "Original Title"
				Expect(db.SaveReport(existing)).To(Succeed())
			})

			It("returns ErrReportExists", func() {
				Expect(err).To(MatchError(ErrReportExists))
			})

			It("leaves the stored report unchanged", func() {
				saved, getErr := db.GetReport("test-id")
				Expect(getErr).NotTo(HaveOccurred())
				Expect(saved.Title).To(Equal("Original Title"))
			})

			It("does not grow the store", func() {
				reports, listErr := db.ListReports()
				Expect(listErr).NotTo(HaveOccurred())
				Expect(reports).To(HaveLen(1))
			})
		})
	})

	Describe("UpdateReport", func() {
		When("the report exists", func() {
			BeforeEach(func() {
				Expect(db.SaveReport(newTestReport("test-id"))).To(Succeed())
			})

			It("overwrites the stored report", func() {
				updated := newTestReport("test-id")
				updated.Title = "Renamed"
				Expect(db.UpdateReport(updated)).To(Succeed())
				saved, err := db.GetReport("test-id")
				Expect(err).NotTo(HaveOccurred())
				Expect(saved.Title).To(Equal("Renamed"))
			})
		})

		When("the report does not exist", func() {
			It("returns ErrReportNotFound", func() {
				Expect(db.UpdateReport(newTestReport("missing"))).To(MatchError(ErrReportNotFound))
			})
		})
	})

	Describe("GetReport", func() {
		When("the report does not exist", func() {
			It("returns ErrReportNotFound", func() {
				_, err := db.GetReport("missing")
				Expect(err).To(MatchError(ErrReportNotFound))
			})
		})
	})

	Describe("ListReports", func() {
		When("reports exist", func() {
			BeforeEach(func() {
				Expect(db.SaveReport(newTestReport("id1"))).To(Succeed())
				Expect(db.SaveReport(newTestReport("id2"))).To(Succeed())
			})

			It("returns all reports", func() {
				reports, err := db.ListReports()
				Expect(err).NotTo(HaveOccurred())
				Expect(reports).To(HaveLen(2))
			})
		})

		When("no reports exist", func() {
			It("returns an empty slice", func() {
				reports, err := db.ListReports()
				Expect(err).NotTo(HaveOccurred())
				Expect(reports).NotTo(BeNil())
				Expect(reports).To(BeEmpty())
			})
		})

		When("a stored record is corrupt", func() {
			BeforeEach(func() {
				Expect(db.SaveReport(newTestReport("good"))).To(Succeed())
				writeErr := db.db.Update(func(tx *bbolt.Tx) error {
					return tx.Bucket([]byte(bucketName)).Put([]byte("bad"), []byte("{not json"))
				})
				Expect(writeErr).NotTo(HaveOccurred())
			})

			It("skips the corrupt record and keeps the rest", func() {
				reports, err := db.ListReports()
				Expect(err).NotTo(HaveOccurred())
				Expect(reports).To(HaveLen(1))
				Expect(reports[0].ID).To(Equal("good"))
			})
		})
	})

	Describe("DeleteReport", func() {
		BeforeEach(func() {
			Expect(db.SaveReport(newTestReport("id1"))).To(Succeed())
			Expect(db.SaveReport(newTestReport("id2"))).To(Succeed())
		})

		It("removes exactly the named report", func() {
			Expect(db.DeleteReport("id1")).To(Succeed())
			reports, err := db.ListReports()
			Expect(err).NotTo(HaveOccurred())
			Expect(reports).To(HaveLen(1))
			Expect(reports[0].ID).To(Equal("id2"))
		})

		It("is a no-op for an ID that is not in the store", func() {
			Expect(db.DeleteReport("missing")).To(Succeed())
			reports, err := db.ListReports()
			Expect(err).NotTo(HaveOccurred())
			Expect(reports).To(HaveLen(2))
		})
	})
})
