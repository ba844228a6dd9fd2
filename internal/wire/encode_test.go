package wire

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cubeclient/domain"
)

func testCreds(t *testing.T) domain.Credentials {
	t.Helper()
	creds, err := domain.NewCredentials("test-token", "https://cube.example.com")
	require.NoError(t, err)
	return creds
}

func TestEncode_MethodURLHeaders(t *testing.T) {
	spec, err := Encode(testCreds(t), &domain.Query{Measures: []string{"orders.count"}}, "req-1")
	require.NoError(t, err)

	assert.Equal(t, http.MethodPost, spec.Method)
	assert.Equal(t, "https://cube.example.com/cubejs-api/v1/load", spec.URL)
	assert.Equal(t, "test-token", spec.Header.Get("Authorization"))
	assert.Equal(t, "application/json", spec.Header.Get("Content-Type"))
	assert.Equal(t, "req-1", spec.Header.Get("X-Request-Id"))
}

func TestEncode_Body(t *testing.T) {
	rng := domain.AbsoluteRange("2023-01-01", "2023-12-31")
	q := &domain.Query{
		Measures:   []string{"orders.count", "orders.revenue"},
		Dimensions: []string{"customers.city"},
		Segments:   []string{"customers.active"},
		TimeDimensions: []domain.TimeDimension{
			{Dimension: "orders.created_at", Granularity: domain.GranularityMonth, DateRange: &rng},
		},
		Filters: domain.FilterList{
			domain.Filter{Member: "orders.status", Operator: domain.OpEquals, Values: []string{"completed"}},
		},
		Order: map[string]domain.Direction{"orders.revenue": domain.Desc},
	}

	spec, err := Encode(testCreds(t), q, "")
	require.NoError(t, err)

	assert.JSONEq(t, `{"query": {
		"measures": ["orders.count", "orders.revenue"],
		"dimensions": ["customers.city"],
		"segments": ["customers.active"],
		"timeDimensions": [{
			"dimension": "orders.created_at",
			"granularity": "month",
			"dateRange": ["2023-01-01", "2023-12-31"]
		}],
		"filters": [{"member": "orders.status", "operator": "equals", "values": ["completed"]}],
		"order": {"orders.revenue": "desc"}
	}}`, string(spec.Body))
}

func TestEncode_OmitsUnsetFields(t *testing.T) {
	spec, err := Encode(testCreds(t), &domain.Query{Measures: []string{"orders.count"}}, "")
	require.NoError(t, err)

	var raw map[string]map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(spec.Body, &raw))
	query := raw["query"]
	require.NotNil(t, query)

	assert.Contains(t, query, "measures")
	for _, absent := range []string{"dimensions", "segments", "timeDimensions", "filters", "order", "limit", "offset"} {
		assert.NotContains(t, query, absent, "unset field %s must be omitted, not null", absent)
	}
}

func TestEncode_DedupsSetFields(t *testing.T) {
	q := &domain.Query{Measures: []string{"a", "b", "a"}, Dimensions: []string{"x", "x"}}

	spec, err := Encode(testCreds(t), q, "")
	require.NoError(t, err)

	assert.JSONEq(t, `{"query": {"measures": ["a", "b"], "dimensions": ["x"]}}`, string(spec.Body))
	// the caller's query is untouched
	assert.Equal(t, []string{"a", "b", "a"}, q.Measures)
}

func TestEncode_Deterministic(t *testing.T) {
	limit := 50
	q := &domain.Query{
		Measures: []string{"m2", "m1"},
		Order: map[string]domain.Direction{
			"m2": domain.Asc,
			"m1": domain.Desc,
			"m3": domain.Asc,
		},
		Limit: &limit,
	}

	first, err := Encode(testCreds(t), q, "")
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		next, err := Encode(testCreds(t), q, "")
		require.NoError(t, err)
		assert.Equal(t, string(first.Body), string(next.Body))
	}
}

func TestEncodeDecodeQuery_RoundTrip(t *testing.T) {
	limit, offset := 100, 20
	rng := domain.RelativeRange("last 30 days")
	q := &domain.Query{
		Measures:   []string{"orders.count"},
		Dimensions: []string{"customers.city"},
		TimeDimensions: []domain.TimeDimension{
			{Dimension: "orders.created_at", Granularity: domain.GranularityDay, DateRange: &rng},
		},
		Filters: domain.FilterList{
			domain.FilterGroup{
				Or: domain.FilterList{
					domain.Filter{Member: "orders.total", Operator: domain.OpGt, Values: []string{"100"}},
					domain.Filter{Member: "orders.items", Operator: domain.OpGt, Values: []string{"5"}},
				},
			},
		},
		Order:  map[string]domain.Direction{"orders.count": domain.Desc},
		Limit:  &limit,
		Offset: &offset,
	}

	spec, err := Encode(testCreds(t), q, "")
	require.NoError(t, err)

	decoded, err := DecodeQuery(spec.Body)
	require.NoError(t, err)
	assert.Equal(t, q, decoded)
}

func TestDecodeQuery_Malformed(t *testing.T) {
	_, err := DecodeQuery([]byte(`not json`))
	require.Error(t, err)

	_, err = DecodeQuery([]byte(`{"no_query": true}`))
	require.Error(t, err)
}
