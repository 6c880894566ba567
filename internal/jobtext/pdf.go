package jobtext

import (
	"bytes"
	"fmt"

	"github.com/ledongthuc/pdf"
)

// FromPDF extracts the plain text of a PDF job posting. The extracted text
// is whatever the PDF's text layer carries; scanned image-only postings
// yield an empty string and an error.
func FromPDF(path string) (Input, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return Input{}, fmt.Errorf("opening pdf %s: %w", path, err)
	}
	defer f.Close()

	reader, err := r.GetPlainText()
	if err != nil {
		return Input{}, fmt.Errorf("extracting pdf text: %w", err)
	}

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(reader); err != nil {
		return Input{}, fmt.Errorf("reading pdf text: %w", err)
	}

	text := buf.String()
	if len(bytes.TrimSpace(buf.Bytes())) == 0 {
		return Input{}, fmt.Errorf("pdf %s has no extractable text", path)
	}
	return Text(text), nil
}
