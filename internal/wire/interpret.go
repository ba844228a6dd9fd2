package wire

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"cubeclient/domain"
)

// continueWaitMarker is the body marker the server sends while a query is
// still executing. It arrives with a 200 status, so status alone cannot
// distinguish "not ready" from "ready".
const continueWaitMarker = "Continue wait"

// maxBodyExcerpt bounds how much response body is carried in errors.
const maxBodyExcerpt = 512

// Kind classifies a server response.
type Kind int

const (
	// KindReady means the result payload is present.
	KindReady Kind = iota
	// KindContinueWait means the server is still computing; poll again.
	KindContinueWait
	// KindRetryable means a transient fault: 5xx, 429, or a transport error.
	KindRetryable
	// KindFatal means a non-retryable rejection or a schema mismatch.
	KindFatal
)

func (k Kind) String() string {
	switch k {
	case KindReady:
		return "ready"
	case KindContinueWait:
		return "continue-wait"
	case KindRetryable:
		return "retryable"
	default:
		return "fatal"
	}
}

// Outcome is the interpretation of one response.
type Outcome struct {
	Kind   Kind
	Result *domain.QueryResult // set when Kind == KindReady
	Hint   *time.Duration      // server-suggested wait, from Retry-After
	Status int                 // HTTP status, 0 for transport faults
	Body   string              // body excerpt for diagnostics
	Reason string              // short classification for logs/metrics
}

type loadResponse struct {
	Error      string             `json:"error"`
	Data       *[]map[string]any  `json:"data"`
	Annotation *domain.Annotation `json:"annotation"`
}

// Interpret classifies a raw server response. Decoding failures on an
// otherwise-successful response are fatal: producing wrong-but-plausible
// data is worse than failing loudly.
func Interpret(status int, header http.Header, body []byte) Outcome {
	excerpt := bodyExcerpt(body)

	switch {
	case status == http.StatusOK:
		return interpretOK(header, body, excerpt)
	case status == http.StatusTooManyRequests:
		return Outcome{
			Kind:   KindRetryable,
			Hint:   parseRetryAfter(header),
			Status: status,
			Body:   excerpt,
			Reason: "rate-limited",
		}
	case status >= 500:
		return Outcome{Kind: KindRetryable, Status: status, Body: excerpt, Reason: "server-error"}
	case status == http.StatusBadRequest:
		return Outcome{Kind: KindFatal, Status: status, Body: excerpt, Reason: "bad request"}
	case status == http.StatusForbidden, status == http.StatusUnauthorized:
		return Outcome{Kind: KindFatal, Status: status, Body: excerpt, Reason: "authorization failed"}
	default:
		return Outcome{Kind: KindFatal, Status: status, Body: excerpt, Reason: "unexpected status"}
	}
}

// TransportFailure wraps a transport-level error as a retryable outcome.
func TransportFailure(err error) Outcome {
	return Outcome{Kind: KindRetryable, Body: err.Error(), Reason: "transport"}
}

func interpretOK(header http.Header, body []byte, excerpt string) Outcome {
	var resp loadResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		// The marker may arrive as a bare text body.
		if strings.Contains(string(body), continueWaitMarker) {
			return Outcome{Kind: KindContinueWait, Hint: parseRetryAfter(header), Status: http.StatusOK, Body: excerpt, Reason: "continue-wait"}
		}
		return Outcome{Kind: KindFatal, Status: http.StatusOK, Body: excerpt, Reason: "malformed response body"}
	}
	if strings.HasPrefix(resp.Error, continueWaitMarker) {
		return Outcome{Kind: KindContinueWait, Hint: parseRetryAfter(header), Status: http.StatusOK, Body: excerpt, Reason: "continue-wait"}
	}
	if resp.Error != "" {
		return Outcome{Kind: KindFatal, Status: http.StatusOK, Body: excerpt, Reason: "server reported error"}
	}
	if resp.Data == nil {
		return Outcome{Kind: KindFatal, Status: http.StatusOK, Body: excerpt, Reason: "response missing data field"}
	}

	result := &domain.QueryResult{Data: *resp.Data}
	if resp.Annotation != nil {
		result.Annotation = *resp.Annotation
	}
	return Outcome{Kind: KindReady, Result: result, Status: http.StatusOK, Reason: "ready"}
}

// parseRetryAfter reads a Retry-After header as delay seconds or an HTTP
// date. Returns nil when absent or unparseable.
func parseRetryAfter(header http.Header) *time.Duration {
	v := header.Get("Retry-After")
	if v == "" {
		return nil
	}
	if secs, err := strconv.Atoi(v); err == nil {
		d := time.Duration(secs) * time.Second
		return &d
	}
	if at, err := http.ParseTime(v); err == nil {
		d := time.Until(at)
		if d < 0 {
			d = 0
		}
		return &d
	}
	return nil
}

func bodyExcerpt(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > maxBodyExcerpt {
		return s[:maxBodyExcerpt] + "..."
	}
	return s
}
