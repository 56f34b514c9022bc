package ingest

import (
	"errors"
	"testing"
)

func TestParseEnvelopeDecodesRecords(t *testing.T) {
	body := `{"Records":[{"s3":{"bucket":{"name":"docs-bucket"},"object":{"key":"abc-quarterly+report.pdf"}}}]}`

	refs, err := ParseEnvelope(body)
	if err != nil {
		t.Fatalf("ParseEnvelope: %v", err)
	}
	if len(refs) != 1 {
		t.Fatalf("expected 1 ref, got %d", len(refs))
	}
	if refs[0].Bucket != "docs-bucket" {
		t.Fatalf("unexpected bucket %q", refs[0].Bucket)
	}
	if refs[0].Key != "abc-quarterly report.pdf" {
		t.Fatalf("expected url-decoded key, got %q", refs[0].Key)
	}
}

func TestParseEnvelopeMultipleRecords(t *testing.T) {
	body := `{"Records":[
		{"s3":{"bucket":{"name":"b"},"object":{"key":"one.pdf"}}},
		{"s3":{"bucket":{"name":"b"},"object":{"key":"two.docx"}}}
	]}`

	refs, err := ParseEnvelope(body)
	if err != nil {
		t.Fatalf("ParseEnvelope: %v", err)
	}
	if len(refs) != 2 {
		t.Fatalf("expected 2 refs, got %d", len(refs))
	}
	if refs[1].Key != "two.docx" {
		t.Fatalf("unexpected second key %q", refs[1].Key)
	}
}

func TestParseEnvelopeEmptyBody(t *testing.T) {
	_, err := ParseEnvelope("   ")
	var emptyErr ErrEmptyBody
	if !errors.As(err, &emptyErr) {
		t.Fatalf("expected ErrEmptyBody, got %v", err)
	}
}

func TestParseEnvelopeInvalidJSON(t *testing.T) {
	_, err := ParseEnvelope("{not-json")
	var decodeErr ErrDecode
	if !errors.As(err, &decodeErr) {
		t.Fatalf("expected ErrDecode, got %v", err)
	}
}

func TestParseEnvelopeNoRecords(t *testing.T) {
	for _, body := range []string{
		`{"Records":[]}`,
		`{"Event":"s3:TestEvent"}`,
		`{"Records":[{"s3":{"bucket":{"name":""},"object":{"key":""}}}]}`,
	} {
		_, err := ParseEnvelope(body)
		var noRecords ErrNoRecords
		if !errors.As(err, &noRecords) {
			t.Fatalf("body %s: expected ErrNoRecords, got %v", body, err)
		}
	}
}
