package dispatch

import (
	"context"
	"log"
	"time"

	"github.com/nanogate/imagegate/internal/credential"
)

// Backoff defaults between attempts against the same credential.
const (
	DefaultNetworkBackoff = 2 * time.Second
	DefaultGatewayBackoff = 5 * time.Second
)

// Request is one prepared provider call. Built once per dispatch and never
// mutated; per-request overrides are baked in before the failover runs.
type Request struct {
	URL     string
	Body    []byte
	Timeout time.Duration

	// MaxRetries bounds extra attempts against one credential; each
	// credential gets MaxRetries+1 attempts before the pool advances.
	MaxRetries int
}

// Failover drives retries and credential rotation across executor outcomes.
// The outer loop walks the credential pool in order; the inner loop bounds
// attempts per credential, so a dispatch always terminates.
type Failover struct {
	exec           Executor
	networkBackoff time.Duration
	gatewayBackoff time.Duration
}

func NewFailover(exec Executor) *Failover {
	return &Failover{
		exec:           exec,
		networkBackoff: DefaultNetworkBackoff,
		gatewayBackoff: DefaultGatewayBackoff,
	}
}

// Do runs the request against each credential in the pool, in order, until
// one attempt succeeds. Returns the successful response body, or an error
// value for every expected failure mode, never a panic.
func (f *Failover) Do(ctx context.Context, req Request, pool []credential.Credential) ([]byte, error) {
	attempts := 0
	var last RawOutcome

	for _, cred := range pool {
		headers := map[string]string{
			"Authorization": "Bearer " + cred.Key,
			"Content-Type":  "application/json",
		}

	credentialLoop:
		for retry := 0; retry <= req.MaxRetries; retry++ {
			attempts++
			outcome := f.exec.Execute(ctx, req.URL, headers, req.Body, req.Timeout)
			last = outcome

			switch Classify(outcome) {
			case ActionSuccess:
				return outcome.Body, nil

			case ActionRetryNetwork:
				log.Printf("Dispatch attempt %d: network error (%v), retrying same credential", attempts, outcome.NetworkErr)
				if retry < req.MaxRetries {
					if err := f.sleep(ctx, f.networkBackoff); err != nil {
						return nil, err
					}
				}

			case ActionRetryGateway:
				log.Printf("Dispatch attempt %d: gateway status %d, retrying same credential", attempts, outcome.StatusCode)
				if retry < req.MaxRetries {
					if err := f.sleep(ctx, f.gatewayBackoff); err != nil {
						return nil, err
					}
				}

			case ActionRotate:
				log.Printf("Dispatch attempt %d: status %d on %s credential, rotating", attempts, outcome.StatusCode, cred.Tag)
				break credentialLoop

			case ActionFatal:
				log.Printf("Dispatch attempt %d: status %d, request malformed, giving up", attempts, outcome.StatusCode)
				return nil, &DispatchError{
					Err:        ErrRequestMalformed,
					StatusCode: outcome.StatusCode,
					Body:       string(outcome.Body),
					Attempts:   attempts,
				}
			}
		}
	}

	return nil, &DispatchError{
		Err:        ErrAllCredentialsFailed,
		StatusCode: last.StatusCode,
		Body:       string(last.Body),
		Attempts:   attempts,
	}
}

// sleep blocks the current dispatch only; concurrent dispatches are not
// affected. Returns early if the caller goes away.
func (f *Failover) sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
