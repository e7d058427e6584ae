package analysis

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func encodeTestImage(encode func(*bytes.Buffer, image.Image) error) []byte {
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for x := 0; x < 4; x++ {
		for y := 0; y < 4; y++ {
			img.Set(x, y, color.White)
		}
	}
	var buf bytes.Buffer
	Expect(encode(&buf, img)).To(Succeed())
	return buf.Bytes()
}

var _ = Describe("normalizePage", func() {
	var (
		page   Page
		images [][]byte
		err    error
	)

	JustBeforeEach(func() {
		images, err = normalizePage(page)
	})

	When("the page is already a PNG", func() {
		BeforeEach(func() {
			data := encodeTestImage(func(buf *bytes.Buffer, img image.Image) error {
				return png.Encode(buf, img)
			})
			page = Page{ContentType: "image/png", Data: data}
		})

		It("should not return an error", func() {
			Expect(err).NotTo(HaveOccurred())
		})

		It("should pass the data through unchanged", func() {
			Expect(images).To(HaveLen(1))
			Expect(images[0]).To(Equal(page.Data))
		})
	})

	When("the page is a JPEG", func() {
		BeforeEach(func() {
			data := encodeTestImage(func(buf *bytes.Buffer, img image.Image) error {
				return jpeg.Encode(buf, img, nil)
			})
			page = Page{ContentType: "image/jpeg", Data: data}
		})

		It("should not return an error", func() {
			Expect(err).NotTo(HaveOccurred())
		})

		It("should convert to PNG", func() {
			Expect(images).To(HaveLen(1))
			decoded, format, decodeErr := image.Decode(bytes.NewReader(images[0]))
			Expect(decodeErr).NotTo(HaveOccurred())
			Expect(format).To(Equal("png"))
			Expect(decoded.Bounds().Dx()).To(Equal(4))
		})
	})

	When("the page has no data", func() {
		BeforeEach(func() {
			page = Page{ContentType: "image/png"}
		})

		It("returns the error", func() {
			Expect(err).To(MatchError(ContainSubstring("no data")))
		})
	})

	When("the page has no content type", func() {
		BeforeEach(func() {
			page = Page{Data: []byte("something")}
		})

		It("returns the error", func() {
			Expect(err).To(MatchError(ContainSubstring("no content type")))
		})
	})

	When("the page claims to be an image but is not", func() {
		BeforeEach(func() {
			page = Page{ContentType: "image/jpeg", Data: []byte("not an image")}
		})

		It("returns the error", func() {
			Expect(err).To(HaveOccurred())
		})
	})
})

var _ = Describe("isHEICFormat", func() {
	It("detects the heic ftyp brand", func() {
		data := append([]byte{0, 0, 0, 24}, []byte("ftypheic")...)
		data = append(data, make([]byte, 8)...)
		Expect(isHEICFormat(data)).To(BeTrue())
	})

	It("rejects PNG data", func() {
		data := encodeTestImage(func(buf *bytes.Buffer, img image.Image) error {
			return png.Encode(buf, img)
		})
		Expect(isHEICFormat(data)).To(BeFalse())
	})

	It("rejects short data", func() {
		Expect(isHEICFormat([]byte("tiny"))).To(BeFalse())
	})
})
