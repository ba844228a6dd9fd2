// Package wire translates between the typed query model and the server's
// HTTP wire format: request encoding on the way out, outcome classification
// on the way back.
package wire

import (
	"encoding/json"
	"fmt"
	"net/http"

	"cubeclient/domain"
)

// LoadPath is the single query endpoint exposed by the server.
const LoadPath = "/cubejs-api/v1/load"

// RequestSpec is a fully-encoded request, ready to hand to a transport. The
// body is encoded once per execution and reused across polling attempts.
type RequestSpec struct {
	Method string
	URL    string
	Header http.Header
	Body   []byte
}

type loadEnvelope struct {
	Query *domain.Query `json:"query"`
}

// Encode builds the request for one query execution. It is a pure function
// of (credentials, query, requestID): encoding the same inputs twice yields
// byte-identical output. Set-typed fields are deduplicated here, preserving
// first-occurrence order, so incidental duplicates never reach the wire.
func Encode(creds domain.Credentials, q *domain.Query, requestID string) (*RequestSpec, error) {
	body, err := json.Marshal(loadEnvelope{Query: q.Dedup()})
	if err != nil {
		return nil, fmt.Errorf("encode query: %w", err)
	}

	header := http.Header{}
	header.Set("Authorization", creds.Token())
	header.Set("Content-Type", "application/json")
	if requestID != "" {
		header.Set("X-Request-Id", requestID)
	}

	return &RequestSpec{
		Method: http.MethodPost,
		URL:    creds.Host() + LoadPath,
		Header: header,
		Body:   body,
	}, nil
}

// DecodeQuery parses an encoded request body back into a Query. Used by
// tests and tooling to verify round-trip equivalence.
func DecodeQuery(body []byte) (*domain.Query, error) {
	var env loadEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("decode query: %w", err)
	}
	if env.Query == nil {
		return nil, fmt.Errorf("decode query: missing \"query\" envelope")
	}
	return env.Query, nil
}
