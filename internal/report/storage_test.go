package report

import (
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("LocalStorage", func() {
	var (
		tmpDir  string
		storage Storage
	)

	BeforeEach(func() {
		tmpDir = GinkgoT().TempDir()
		var err error
		storage, err = NewLocalStorage(tmpDir)
		Expect(err).NotTo(HaveOccurred())
	})

	Describe("Save", func() {
		var (
			filename  string
			data      []byte
			savedPath string
			err       error
		)

		BeforeEach(func() {
			filename = "img-1_page.png"
			data = []byte("page image bytes")
		})

		JustBeforeEach(func() {
			savedPath, err = storage.Save(filename, data)
		})

		When("saving succeeds", func() {
			It("should not return an error", func() {
				Expect(err).NotTo(HaveOccurred())
			})

			It("should return the stored filename", func() {
				Expect(savedPath).To(Equal(filename))
			})

			It("should save the file to disk", func() {
				Expect(filepath.Join(tmpDir, filename)).To(BeAnExistingFile())
			})
		})

		When("the filename carries directory components", func() {
			BeforeEach(func() {
				filename = "../escape/page.png"
			})

			It("flattens the name to its base", func() {
				Expect(err).NotTo(HaveOccurred())
				Expect(savedPath).To(Equal("page.png"))
				Expect(filepath.Join(tmpDir, "page.png")).To(BeAnExistingFile())
			})
		})
	})

	Describe("Get", func() {
		When("the file exists", func() {
			BeforeEach(func() {
				_, err := storage.Save("page.png", []byte("page image bytes"))
				Expect(err).NotTo(HaveOccurred())
			})

			It("returns the file data", func() {
				data, err := storage.Get("page.png")
				Expect(err).NotTo(HaveOccurred())
				Expect(string(data)).To(Equal("page image bytes"))
			})
		})

		When("the file does not exist", func() {
			It("returns the error", func() {
				_, err := storage.Get("missing.png")
				Expect(err).To(HaveOccurred())
			})
		})
	})

	Describe("Delete", func() {
		When("the file exists", func() {
			BeforeEach(func() {
				_, err := storage.Save("page.png", []byte("data"))
				Expect(err).NotTo(HaveOccurred())
			})

			It("removes the file", func() {
				Expect(storage.Delete("page.png")).To(Succeed())
				Expect(filepath.Join(tmpDir, "page.png")).NotTo(BeAnExistingFile())
			})
		})

		When("the file does not exist", func() {
			It("is a no-op", func() {
				Expect(storage.Delete("missing.png")).To(Succeed())
			})
		})
	})
})
