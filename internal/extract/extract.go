// Package extract converts stored document bytes into plain text for
// indexing. Format dispatch is by storage-key suffix only; there is no
// content sniffing. Parse failures are returned to the caller — an empty
// result with a nil error means the document really contained no text.
package extract

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"
)

// Document formats, derived from the storage key.
const (
	FormatPDF  = "pdf"
	FormatDOCX = "docx"
)

// Format returns the extraction format for a storage key. Anything that is
// not a .pdf takes the DOCX path.
func Format(storageKey string) string {
	if strings.HasSuffix(strings.ToLower(storageKey), ".pdf") {
		return FormatPDF
	}
	return FormatDOCX
}

// Text extracts plain text from the raw document bytes, dispatching on the
// storage key's suffix.
func Text(data []byte, storageKey string) (string, error) {
	switch Format(storageKey) {
	case FormatPDF:
		text, err := extractPDF(data)
		if err != nil {
			return "", fmt.Errorf("extract pdf key=%s: %w", storageKey, err)
		}
		return text, nil
	default:
		text, err := extractDOCX(data)
		if err != nil {
			return "", fmt.Errorf("extract docx key=%s: %w", storageKey, err)
		}
		return text, nil
	}
}

func extractPDF(data []byte) (string, error) {
	reader := bytes.NewReader(data)
	pdfReader, err := pdf.NewReader(reader, int64(len(data)))
	if err != nil {
		return "", err
	}
	plain, err := pdfReader.GetPlainText()
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, plain); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func extractDOCX(data []byte) (string, error) {
	if len(data) == 0 {
		return "", errors.New("empty docx data")
	}
	readerAt := bytes.NewReader(data)
	zr, err := zip.NewReader(readerAt, int64(len(data)))
	if err != nil {
		return "", err
	}

	var docFile *zip.File
	for _, f := range zr.File {
		name := strings.ReplaceAll(f.Name, "\\", "/")
		if name == "word/document.xml" {
			docFile = f
			break
		}
	}
	if docFile == nil {
		return "", errors.New("document.xml file not found")
	}

	rc, err := docFile.Open()
	if err != nil {
		return "", err
	}
	defer rc.Close()

	raw, err := io.ReadAll(rc)
	if err != nil {
		return "", err
	}

	return stripDocxXML(string(raw))
}

func stripDocxXML(raw string) (string, error) {
	decoder := xml.NewDecoder(strings.NewReader(raw))
	var buf strings.Builder
	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("malformed document.xml: %w", err)
		}
		switch t := tok.(type) {
		case xml.CharData:
			buf.WriteString(string(t))
		case xml.EndElement:
			if t.Name.Local == "p" || t.Name.Local == "br" {
				if buf.Len() > 0 {
					buf.WriteString("\n")
				}
			}
		}
	}
	return strings.TrimSpace(buf.String()), nil
}
