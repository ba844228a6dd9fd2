package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cubeclient/domain"
)

func writeQueryFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadQueryFile_YAML(t *testing.T) {
	path := writeQueryFile(t, "revenue.yaml", `
measures:
  - orders.count
  - orders.revenue
dimensions:
  - customers.city
timeDimensions:
  - dimension: orders.created_at
    granularity: month
    dateRange: last 12 months
filters:
  - member: orders.status
    operator: equals
    values: [completed]
order:
  orders.revenue: desc
limit: 100
`)

	q, err := LoadQueryFile(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"orders.count", "orders.revenue"}, q.Measures)
	assert.Equal(t, []string{"customers.city"}, q.Dimensions)
	require.Len(t, q.TimeDimensions, 1)
	assert.Equal(t, domain.GranularityMonth, q.TimeDimensions[0].Granularity)
	require.NotNil(t, q.TimeDimensions[0].DateRange)
	assert.Equal(t, "last 12 months", q.TimeDimensions[0].DateRange.Relative)
	require.Len(t, q.Filters, 1)
	assert.Equal(t,
		domain.Filter{Member: "orders.status", Operator: domain.OpEquals, Values: []string{"completed"}},
		q.Filters[0])
	assert.Equal(t, domain.Desc, q.Order["orders.revenue"])
	require.NotNil(t, q.Limit)
	assert.Equal(t, 100, *q.Limit)
}

func TestLoadQueryFile_JSON(t *testing.T) {
	path := writeQueryFile(t, "revenue.json", `{
		"measures": ["orders.count"],
		"timeDimensions": [
			{"dimension": "orders.created_at", "dateRange": ["2023-01-01", "2023-12-31"]}
		]
	}`)

	q, err := LoadQueryFile(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"orders.count"}, q.Measures)
	require.Len(t, q.TimeDimensions, 1)
	require.NotNil(t, q.TimeDimensions[0].DateRange)
	assert.Equal(t, "2023-01-01", q.TimeDimensions[0].DateRange.Start)
}

func TestLoadQueryFile_InvalidQueryRejected(t *testing.T) {
	path := writeQueryFile(t, "empty.yaml", `
limit: 10
`)

	_, err := LoadQueryFile(path)
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
}

func TestLoadQueryFile_MalformedFile(t *testing.T) {
	path := writeQueryFile(t, "broken.json", `{"measures": [`)

	_, err := LoadQueryFile(path)
	require.Error(t, err)
}

func TestLoadQueryFile_Missing(t *testing.T) {
	_, err := LoadQueryFile(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}
