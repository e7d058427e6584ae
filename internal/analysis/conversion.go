package analysis

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"  // Register GIF decoder
	_ "image/jpeg" // Register JPEG decoder
	"image/png"
	"strings"

	"github.com/gen2brain/go-fitz"
	"github.com/gen2brain/heic"
)

// maxPDFPages bounds how many pages of an uploaded PDF are rendered.
// Terms documents run long, but sending hundreds of page images in one
// request is not useful.
const maxPDFPages = 20

// normalizePage turns one captured page into one or more PNG images.
// Camera captures and uploads come in as JPEG/PNG/GIF/HEIC; a PDF upload
// expands into one image per rendered page.
func normalizePage(p Page) ([][]byte, error) {
	if len(p.Data) == 0 {
		return nil, fmt.Errorf("page has no data")
	}

	mimeType := strings.ToLower(strings.TrimSpace(p.ContentType))
	if mimeType == "" {
		return nil, fmt.Errorf("page has no content type")
	}

	if mimeType == "application/pdf" {
		return pdfToImages(p.Data)
	}

	img, err := imageToPNG(p.Data, mimeType)
	if err != nil {
		return nil, err
	}
	return [][]byte{img}, nil
}

// pdfToImages renders each page of a PDF to a PNG image
func pdfToImages(pdfData []byte) ([][]byte, error) {
	doc, err := fitz.NewFromMemory(pdfData)
	if err != nil {
		return nil, fmt.Errorf("opening PDF: %w", err)
	}
	defer doc.Close()

	pageCount := doc.NumPage()
	if pageCount == 0 {
		return nil, fmt.Errorf("PDF has no pages")
	}
	if pageCount > maxPDFPages {
		pageCount = maxPDFPages
	}

	images := make([][]byte, 0, pageCount)
	for i := 0; i < pageCount; i++ {
		img, err := doc.Image(i)
		if err != nil {
			return nil, fmt.Errorf("rendering PDF page %d: %w", i+1, err)
		}

		var buf bytes.Buffer
		if err := png.Encode(&buf, img); err != nil {
			return nil, fmt.Errorf("encoding PNG: %w", err)
		}
		images = append(images, buf.Bytes())
	}

	return images, nil
}

// imageToPNG converts any supported image format to PNG
func imageToPNG(imageData []byte, mimeType string) ([]byte, error) {
	if mimeType == "image/png" && !isHEICFormat(imageData) {
		return imageData, nil
	}

	var img image.Image
	var err error

	// HEIC/HEIF (common on iPhones) is not supported by the standard
	// image package.
	if isHEICFormat(imageData) || isHEICMimeType(mimeType) {
		img, err = heic.Decode(bytes.NewReader(imageData))
		if err != nil {
			return nil, fmt.Errorf("decoding HEIC/HEIF image: %w", err)
		}
	} else {
		img, _, err = image.Decode(bytes.NewReader(imageData))
		if err != nil {
			if strings.Contains(err.Error(), "unknown format") || strings.Contains(err.Error(), "unsupported") {
				return nil, fmt.Errorf("unsupported image format. Supported formats: JPEG, PNG, GIF, HEIC, HEIF, PDF. Error: %w", err)
			}
			return nil, fmt.Errorf("decoding image: %w", err)
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encoding PNG: %w", err)
	}

	return buf.Bytes(), nil
}

// isHEICFormat checks the ftyp box brand for HEIC/HEIF magic bytes
func isHEICFormat(data []byte) bool {
	if len(data) < 12 {
		return false
	}
	if string(data[4:8]) != "ftyp" {
		return false
	}
	brand := string(data[8:12])
	return brand == "heic" || brand == "heif" || brand == "mif1" || brand == "msf1"
}

// isHEICMimeType checks if the MIME type indicates HEIC/HEIF format
func isHEICMimeType(mimeType string) bool {
	mimeType = strings.ToLower(strings.TrimSpace(mimeType))
	return mimeType == "image/heic" || mimeType == "image/heif" ||
		strings.Contains(mimeType, "heic") || strings.Contains(mimeType, "heif")
}
