package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/opensearch-project/opensearch-go/v2"
	"github.com/opensearch-project/opensearch-go/v2/opensearchapi"
)

// OpenSearchIndex implements Index against an OpenSearch cluster.
type OpenSearchIndex struct {
	client *opensearch.Client
	index  string
}

// NewOpenSearchIndex constructs an OpenSearch-backed index client.
func NewOpenSearchIndex(endpoint, index, username, password string) (*OpenSearchIndex, error) {
	if endpoint == "" {
		return nil, fmt.Errorf("opensearch endpoint is required")
	}
	if index == "" {
		index = "documents"
	}

	client, err := opensearch.NewClient(opensearch.Config{
		Addresses: []string{endpoint},
		Username:  username,
		Password:  password,
	})
	if err != nil {
		return nil, fmt.Errorf("opensearch client: %w", err)
	}
	return &OpenSearchIndex{client: client, index: index}, nil
}

// Upsert indexes the entry under the document id with a synchronous refresh
// so subsequent searches see it immediately.
func (o *OpenSearchIndex) Upsert(ctx context.Context, documentID string, entry Entry) error {
	body, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal search entry: %w", err)
	}

	req := opensearchapi.IndexRequest{
		Index:      o.index,
		DocumentID: documentID,
		Body:       bytes.NewReader(body),
		Refresh:    "true",
	}
	res, err := req.Do(ctx, o.client)
	if err != nil {
		return fmt.Errorf("opensearch index id=%s: %w", documentID, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("opensearch index id=%s: %s", documentID, res.String())
	}
	return nil
}

// Delete removes the entry for the document id. A missing entry is not an
// error.
func (o *OpenSearchIndex) Delete(ctx context.Context, documentID string) error {
	req := opensearchapi.DeleteRequest{
		Index:      o.index,
		DocumentID: documentID,
		Refresh:    "true",
	}
	res, err := req.Do(ctx, o.client)
	if err != nil {
		return fmt.Errorf("opensearch delete id=%s: %w", documentID, err)
	}
	defer res.Body.Close()
	if res.StatusCode == http.StatusNotFound {
		return nil
	}
	if res.IsError() {
		return fmt.Errorf("opensearch delete id=%s: %s", documentID, res.String())
	}
	return nil
}

// Search fuzzy-matches the query against indexed text, filtered to an exact
// owner, returning highlighted snippets.
func (o *OpenSearchIndex) Search(ctx context.Context, owner, query string) ([]Hit, error) {
	body := map[string]any{
		"query": map[string]any{
			"bool": map[string]any{
				"must": []any{
					map[string]any{
						"match": map[string]any{
							"text": map[string]any{
								"query":     query,
								"fuzziness": "AUTO",
							},
						},
					},
				},
				"filter": []any{
					map[string]any{
						"term": map[string]any{
							"metadata.owner.keyword": owner,
						},
					},
				},
			},
		},
		"highlight": map[string]any{
			"fields": map[string]any{
				"text": map[string]any{},
			},
		},
	}

	raw, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal search query: %w", err)
	}

	req := opensearchapi.SearchRequest{
		Index: []string{o.index},
		Body:  bytes.NewReader(raw),
	}
	res, err := req.Do(ctx, o.client)
	if err != nil {
		return nil, fmt.Errorf("opensearch search owner=%s: %w", owner, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, fmt.Errorf("opensearch search owner=%s: %s", owner, res.String())
	}

	payload, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("read search response: %w", err)
	}

	var parsed struct {
		Hits struct {
			Hits []struct {
				ID        string `json:"_id"`
				Highlight struct {
					Text []string `json:"text"`
				} `json:"highlight"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.Unmarshal(payload, &parsed); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	hits := make([]Hit, 0, len(parsed.Hits.Hits))
	for _, h := range parsed.Hits.Hits {
		hits = append(hits, Hit{DocumentID: h.ID, Highlights: h.Highlight.Text})
	}
	return hits, nil
}

var _ Index = (*OpenSearchIndex)(nil)
