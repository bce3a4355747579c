package dispatch

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/nanogate/imagegate/internal/credential"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedExecutor replays a fixed sequence of outcomes and records the
// credential used for each call.
type scriptedExecutor struct {
	outcomes []RawOutcome
	keysSeen []string
}

func (e *scriptedExecutor) Execute(ctx context.Context, url string, headers map[string]string, body []byte, timeout time.Duration) RawOutcome {
	e.keysSeen = append(e.keysSeen, strings.TrimPrefix(headers["Authorization"], "Bearer "))
	if len(e.outcomes) == 0 {
		return RawOutcome{StatusCode: http.StatusOK, Body: []byte(`{}`)}
	}
	out := e.outcomes[0]
	e.outcomes = e.outcomes[1:]
	return out
}

func fastFailover(exec Executor) *Failover {
	f := NewFailover(exec)
	f.networkBackoff = time.Millisecond
	f.gatewayBackoff = time.Millisecond
	return f
}

func pool(keys ...string) []credential.Credential {
	out := make([]credential.Credential, 0, len(keys))
	for _, k := range keys {
		out = append(out, credential.Credential{Key: k, Tag: credential.TagBackup})
	}
	return out
}

func TestDoRotatesOnAuthFailure(t *testing.T) {
	exec := &scriptedExecutor{outcomes: []RawOutcome{
		{StatusCode: http.StatusUnauthorized},
		{StatusCode: http.StatusTooManyRequests},
		{StatusCode: http.StatusOK, Body: []byte(`{"data":[]}`)},
	}}

	body, err := fastFailover(exec).Do(context.Background(), Request{MaxRetries: 2}, pool("k1", "k2", "k3"))

	require.NoError(t, err)
	assert.Equal(t, `{"data":[]}`, string(body))
	// One attempt per credential, rotation is immediate.
	assert.Equal(t, []string{"k1", "k2", "k3"}, exec.keysSeen)
}

func TestDoRetriesGatewayErrorsOnSameCredential(t *testing.T) {
	exec := &scriptedExecutor{outcomes: []RawOutcome{
		{StatusCode: http.StatusBadGateway},
		{StatusCode: http.StatusGatewayTimeout},
		{StatusCode: http.StatusOK, Body: []byte(`ok`)},
	}}

	body, err := fastFailover(exec).Do(context.Background(), Request{MaxRetries: 2}, pool("k1", "k2"))

	require.NoError(t, err)
	assert.Equal(t, "ok", string(body))
	assert.Equal(t, []string{"k1", "k1", "k1"}, exec.keysSeen)
}

func TestDoRetriesNetworkErrorsOnSameCredential(t *testing.T) {
	exec := &scriptedExecutor{outcomes: []RawOutcome{
		{NetworkErr: errors.New("connection refused")},
		{StatusCode: http.StatusOK, Body: []byte(`ok`)},
	}}

	_, err := fastFailover(exec).Do(context.Background(), Request{MaxRetries: 1}, pool("k1"))

	require.NoError(t, err)
	assert.Equal(t, []string{"k1", "k1"}, exec.keysSeen)
}

func TestDoStopsImmediatelyOnMalformedRequest(t *testing.T) {
	exec := &scriptedExecutor{outcomes: []RawOutcome{
		{StatusCode: http.StatusBadRequest, Body: []byte(`{"error":"bad prompt"}`)},
	}}

	_, err := fastFailover(exec).Do(context.Background(), Request{MaxRetries: 2}, pool("k1", "k2", "k3"))

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRequestMalformed)

	var dispatchErr *DispatchError
	require.ErrorAs(t, err, &dispatchErr)
	assert.Equal(t, http.StatusBadRequest, dispatchErr.StatusCode)
	assert.Equal(t, `{"error":"bad prompt"}`, dispatchErr.Body)
	assert.Equal(t, 1, dispatchErr.Attempts)
	// No rotation after a fatal status.
	assert.Equal(t, []string{"k1"}, exec.keysSeen)
}

func TestDoExhaustsPoolAndReturnsLastOutcome(t *testing.T) {
	exec := &scriptedExecutor{outcomes: []RawOutcome{
		{StatusCode: http.StatusUnauthorized, Body: []byte(`nope 1`)},
		{StatusCode: http.StatusServiceUnavailable, Body: []byte(`nope 2`)},
	}}

	_, err := fastFailover(exec).Do(context.Background(), Request{MaxRetries: 2}, pool("k1", "k2"))

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAllCredentialsFailed)

	var dispatchErr *DispatchError
	require.ErrorAs(t, err, &dispatchErr)
	assert.Equal(t, http.StatusServiceUnavailable, dispatchErr.StatusCode)
	assert.Equal(t, "nope 2", dispatchErr.Body)
	assert.Equal(t, 2, dispatchErr.Attempts)
}

func TestDoRespectsCancelledContext(t *testing.T) {
	exec := &scriptedExecutor{outcomes: []RawOutcome{
		{StatusCode: http.StatusBadGateway},
	}}

	f := NewFailover(exec)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.Do(ctx, Request{MaxRetries: 2}, pool("k1"))

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDoAgainstLiveServer(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if r.Header.Get("Authorization") != "Bearer good-key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		fmt.Fprint(w, `{"data":[{"url":"https://img.example/1.png"}]}`)
	}))
	defer server.Close()

	f := fastFailover(NewHTTPExecutor())
	req := Request{URL: server.URL, Body: []byte(`{}`), Timeout: 5 * time.Second, MaxRetries: 2}

	body, err := f.Do(context.Background(), req, pool("bad-key", "good-key"))

	require.NoError(t, err)
	assert.Contains(t, string(body), "img.example")
	assert.Equal(t, 2, calls)
}
