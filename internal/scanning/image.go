package scanning

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"strings"

	"github.com/gen2brain/go-fitz"
	"github.com/gen2brain/heic"
)

// ErrUnsupportedFormat is returned for uploads that are neither a PDF nor a
// decodable image.
var ErrUnsupportedFormat = errors.New("unsupported format; expected JPEG, PNG, GIF, HEIC, HEIF or PDF")

const (
	mimePDF  = "application/pdf"
	mimePNG  = "image/png"
	mimeJPEG = "image/jpeg"
)

// heifBrands are the ftyp brands written by phones for HEIC/HEIF photos
var heifBrands = map[string]bool{"heic": true, "heix": true, "heif": true, "mif1": true, "msf1": true}

// asPNG returns the upload as PNG bytes, the one format every recognizer
// accepts. PDFs contribute their first page.
func asPNG(data []byte, contentType string) ([]byte, error) {
	mime := normalizeMIME(contentType)
	switch {
	case mime == mimePDF || bytes.HasPrefix(data, []byte("%PDF-")):
		return renderFirstPage(data)
	case isHEIF(data, mime):
		img, err := heic.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("decoding HEIF image: %w", err)
		}
		return encodePNG(img)
	case mime == mimePNG && bytes.HasPrefix(data, []byte("\x89PNG")):
		return data, nil
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if errors.Is(err, image.ErrFormat) {
		return nil, ErrUnsupportedFormat
	}
	if err != nil {
		return nil, fmt.Errorf("decoding image: %w", err)
	}
	return encodePNG(img)
}

func normalizeMIME(contentType string) string {
	mime, _, _ := strings.Cut(contentType, ";")
	mime = strings.ToLower(strings.TrimSpace(mime))
	if mime == "" {
		return mimeJPEG
	}
	return mime
}

func renderFirstPage(data []byte) ([]byte, error) {
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return nil, fmt.Errorf("opening PDF: %w", err)
	}
	defer doc.Close()

	if doc.NumPage() == 0 {
		return nil, errors.New("PDF has no pages")
	}
	img, err := doc.Image(0)
	if err != nil {
		return nil, fmt.Errorf("rendering PDF page: %w", err)
	}
	return encodePNG(img)
}

func isHEIF(data []byte, mime string) bool {
	if mime == "image/heic" || mime == "image/heif" {
		return true
	}
	return len(data) >= 12 && string(data[4:8]) == "ftyp" && heifBrands[string(data[8:12])]
}

func encodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encoding PNG: %w", err)
	}
	return buf.Bytes(), nil
}
