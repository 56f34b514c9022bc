package ingest

import (
	"encoding/json"
	"net/url"
	"strings"
)

// ObjectRef points at one uploaded object named by a storage notification.
type ObjectRef struct {
	Bucket string
	Key    string
}

// ErrEmptyBody indicates an empty queue payload.
type ErrEmptyBody struct{}

func (e ErrEmptyBody) Error() string { return "empty message body" }

// ErrDecode indicates the payload is not a storage event envelope.
type ErrDecode struct {
	Err error
}

func (e ErrDecode) Error() string {
	if e.Err == nil {
		return "decode envelope"
	}
	return "decode envelope: " + e.Err.Error()
}

// ErrNoRecords indicates a well-formed envelope carrying no object records.
type ErrNoRecords struct{}

func (e ErrNoRecords) Error() string { return "envelope has no records" }

type eventEnvelope struct {
	Records []struct {
		S3 struct {
			Bucket struct {
				Name string `json:"name"`
			} `json:"bucket"`
			Object struct {
				Key string `json:"key"`
			} `json:"object"`
		} `json:"s3"`
	} `json:"Records"`
}

// ParseEnvelope decodes an S3 event notification body into object
// references. Object keys arrive URL-encoded and are decoded here; a key
// that fails decoding is kept as-is rather than dropped.
func ParseEnvelope(body string) ([]ObjectRef, error) {
	if strings.TrimSpace(body) == "" {
		return nil, ErrEmptyBody{}
	}

	var envelope eventEnvelope
	if err := json.Unmarshal([]byte(body), &envelope); err != nil {
		return nil, ErrDecode{Err: err}
	}

	refs := make([]ObjectRef, 0, len(envelope.Records))
	for _, record := range envelope.Records {
		bucket := strings.TrimSpace(record.S3.Bucket.Name)
		key := strings.TrimSpace(record.S3.Object.Key)
		if bucket == "" || key == "" {
			continue
		}
		if decoded, err := url.QueryUnescape(key); err == nil {
			key = decoded
		}
		refs = append(refs, ObjectRef{Bucket: bucket, Key: key})
	}
	if len(refs) == 0 {
		return nil, ErrNoRecords{}
	}
	return refs, nil
}
