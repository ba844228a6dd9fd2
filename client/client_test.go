package client

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cubeclient/domain"
	"cubeclient/internal/backoff"
	"cubeclient/internal/testutil"
)

const readyBody = `{
	"data": [{"orders.count": 42}],
	"annotation": {"measures": {"orders.count": {"title": "Orders Count"}}}
}`

func fastPolicy() backoff.Policy {
	return backoff.Policy{
		Base:        time.Millisecond,
		Multiplier:  2,
		Cap:         5 * time.Millisecond,
		MaxAttempts: 10,
		MaxElapsed:  10 * time.Second,
	}
}

func testClient(t *testing.T, srv *testutil.CubeServer, policy backoff.Policy) (*Client, domain.Credentials) {
	t.Helper()
	c, err := New(WithPolicy(policy))
	require.NoError(t, err)
	creds, err := domain.NewCredentials("test-token", srv.URL())
	require.NoError(t, err)
	return c, creds
}

func countQuery() *domain.Query {
	return &domain.Query{Measures: []string{"orders.count"}}
}

func TestExecute_ReadyFirstTry(t *testing.T) {
	srv := testutil.NewCubeServer(t, testutil.Ready(readyBody))
	c, creds := testClient(t, srv, fastPolicy())

	result, err := c.Execute(context.Background(), creds, countQuery())
	require.NoError(t, err)

	require.Len(t, result.Data, 1)
	assert.Equal(t, float64(42), result.Data[0]["orders.count"])
	assert.Equal(t, "Orders Count", result.Annotation.Measures["orders.count"].Title)
	assert.Equal(t, 1, srv.RequestCount())
}

func TestExecute_SendsAuthAndBody(t *testing.T) {
	srv := testutil.NewCubeServer(t, testutil.Ready(readyBody))
	c, creds := testClient(t, srv, fastPolicy())

	_, err := c.Execute(context.Background(), creds, countQuery())
	require.NoError(t, err)

	reqs := srv.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, "test-token", reqs[0].Header.Get("Authorization"))
	assert.Equal(t, "application/json", reqs[0].Header.Get("Content-Type"))
	assert.NotEmpty(t, reqs[0].Header.Get("X-Request-Id"))
	assert.JSONEq(t, `{"query": {"measures": ["orders.count"]}}`, string(reqs[0].Body))
}

func TestExecute_PollsUntilReady(t *testing.T) {
	const waits = 3
	steps := make([]testutil.Step, 0, waits+1)
	for i := 0; i < waits; i++ {
		steps = append(steps, testutil.ContinueWait())
	}
	steps = append(steps, testutil.Ready(readyBody))

	srv := testutil.NewCubeServer(t, steps...)
	c, creds := testClient(t, srv, fastPolicy())

	result, err := c.Execute(context.Background(), creds, countQuery())
	require.NoError(t, err)
	require.Len(t, result.Data, 1)
	assert.Equal(t, waits+1, srv.RequestCount(), "one request per poll plus the final one")

	// the query body is byte-identical across attempts
	reqs := srv.Requests()
	for i := 1; i < len(reqs); i++ {
		assert.Equal(t, string(reqs[0].Body), string(reqs[i].Body))
	}
}

func TestExecute_InvalidQueryNeverHitsTheNetwork(t *testing.T) {
	srv := testutil.NewCubeServer(t, testutil.Ready(readyBody))
	c, creds := testClient(t, srv, fastPolicy())

	_, err := c.Execute(context.Background(), creds, &domain.Query{})

	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, 0, srv.RequestCount(), "invalid queries must not reach the transport")
}

func TestExecute_TimeoutAfterExactlyMaxAttempts(t *testing.T) {
	srv := testutil.NewCubeServer(t, testutil.ContinueWait())
	policy := fastPolicy()
	policy.MaxAttempts = 3
	c, creds := testClient(t, srv, policy)

	_, err := c.Execute(context.Background(), creds, countQuery())

	var terr *domain.TimeoutError
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, 3, terr.Attempts)
	assert.Equal(t, 3, srv.RequestCount(), "exactly MaxAttempts requests, not one more")
	assert.Equal(t, http.StatusOK, terr.LastStatus)
	assert.Contains(t, terr.LastBody, "Continue wait")
}

func TestExecute_RetriesRateLimitThenSucceeds(t *testing.T) {
	srv := testutil.NewCubeServer(t,
		testutil.RateLimited(0),
		testutil.Ready(readyBody),
	)
	c, creds := testClient(t, srv, fastPolicy())

	result, err := c.Execute(context.Background(), creds, countQuery())
	require.NoError(t, err)
	require.Len(t, result.Data, 1)
	assert.Equal(t, 2, srv.RequestCount())
}

func TestExecute_RetriesServerErrorThenSucceeds(t *testing.T) {
	srv := testutil.NewCubeServer(t,
		testutil.Step{Status: http.StatusBadGateway, Body: "bad gateway"},
		testutil.Ready(readyBody),
	)
	c, creds := testClient(t, srv, fastPolicy())

	result, err := c.Execute(context.Background(), creds, countQuery())
	require.NoError(t, err)
	require.Len(t, result.Data, 1)
	assert.Equal(t, 2, srv.RequestCount())
}

func TestExecute_BadRequestFailsImmediately(t *testing.T) {
	srv := testutil.NewCubeServer(t,
		testutil.Step{Status: http.StatusBadRequest, Body: `{"error": "Member not found: orders.wrong"}`},
	)
	c, creds := testClient(t, srv, fastPolicy())

	_, err := c.Execute(context.Background(), creds, countQuery())

	var ferr *domain.FatalError
	require.ErrorAs(t, err, &ferr)
	assert.Equal(t, http.StatusBadRequest, ferr.Status)
	assert.Contains(t, ferr.Body, "Member not found")
	assert.Equal(t, 1, srv.RequestCount(), "fatal errors must not be retried")
}

func TestExecute_AuthFailureFailsImmediately(t *testing.T) {
	srv := testutil.NewCubeServer(t,
		testutil.Step{Status: http.StatusForbidden, Body: "Invalid token"},
	)
	c, creds := testClient(t, srv, fastPolicy())

	_, err := c.Execute(context.Background(), creds, countQuery())

	var ferr *domain.FatalError
	require.ErrorAs(t, err, &ferr)
	assert.Equal(t, http.StatusForbidden, ferr.Status)
	assert.Equal(t, 1, srv.RequestCount())
}

func TestExecute_MalformedReadyBodyIsFatal(t *testing.T) {
	srv := testutil.NewCubeServer(t, testutil.Ready(`{"data": "not an array"`))
	c, creds := testClient(t, srv, fastPolicy())

	_, err := c.Execute(context.Background(), creds, countQuery())

	var ferr *domain.FatalError
	require.ErrorAs(t, err, &ferr)
	assert.Equal(t, 1, srv.RequestCount())
}

func TestExecute_CancelMidWait(t *testing.T) {
	srv := testutil.NewCubeServer(t, testutil.ContinueWaitHint(30))
	policy := fastPolicy()
	policy.Cap = time.Minute // keep the hinted wait long so cancel lands mid-sleep
	c, creds := testClient(t, srv, policy)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	_, err := c.Execute(ctx, creds, countQuery())

	var cerr *domain.CancelledError
	require.ErrorAs(t, err, &cerr)
	assert.Less(t, time.Since(start), 5*time.Second, "cancellation must abort the wait promptly")

	seen := srv.RequestCount()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, seen, srv.RequestCount(), "no retries may outlive a cancelled call")
}

func TestExecute_CancelBeforeCall(t *testing.T) {
	srv := testutil.NewCubeServer(t, testutil.Ready(readyBody))
	c, creds := testClient(t, srv, fastPolicy())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Execute(ctx, creds, countQuery())

	var cerr *domain.CancelledError
	require.ErrorAs(t, err, &cerr)
}

func TestExecute_TransportFailureRetries(t *testing.T) {
	policy := fastPolicy()
	policy.MaxAttempts = 2
	c, err := New(WithPolicy(policy))
	require.NoError(t, err)

	creds, err := domain.NewCredentials("tok", "http://127.0.0.1:1") // nothing listens here
	require.NoError(t, err)

	_, err = c.Execute(context.Background(), creds, countQuery())

	var terr *domain.TimeoutError
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, 2, terr.Attempts)
	assert.Equal(t, 0, terr.LastStatus)
}

func TestExecuteBatch(t *testing.T) {
	srv := testutil.NewCubeServer(t, testutil.Ready(readyBody))
	c, creds := testClient(t, srv, fastPolicy())

	queries := []*domain.Query{
		{Measures: []string{"orders.count"}},
		{Measures: []string{"orders.revenue"}},
		{Dimensions: []string{"customers.city"}},
	}

	results, err := c.ExecuteBatch(context.Background(), creds, queries)
	require.NoError(t, err)
	require.Len(t, results, 3)
	for _, r := range results {
		require.NotNil(t, r)
	}
	assert.Equal(t, 3, srv.RequestCount())
}

func TestExecuteBatch_ValidatesBeforeAnyRequest(t *testing.T) {
	srv := testutil.NewCubeServer(t, testutil.Ready(readyBody))
	c, creds := testClient(t, srv, fastPolicy())

	queries := []*domain.Query{
		{Measures: []string{"orders.count"}},
		{}, // invalid
	}

	_, err := c.ExecuteBatch(context.Background(), creds, queries)

	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, 0, srv.RequestCount())
}

func TestNew_RejectsInvalidPolicy(t *testing.T) {
	_, err := New(WithPolicy(backoff.Policy{}))

	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
}
