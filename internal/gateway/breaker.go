package gateway

import (
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/sony/gobreaker/v2"
)

// breakerClient wraps an http.Client with a circuit breaker so a flapping
// gateway fails fast instead of tying up checkout requests.
type breakerClient struct {
	client *http.Client
	cb     *gobreaker.CircuitBreaker[*http.Response]
}

func newBreakerClient(name string, timeout time.Duration) *breakerClient {
	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: 3,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 5
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			log.Printf("circuit breaker %s: %s -> %s", name, from, to)
		},
	}

	return &breakerClient{
		client: &http.Client{Timeout: timeout},
		cb:     gobreaker.NewCircuitBreaker[*http.Response](settings),
	}
}

// Do counts transport errors and 5xx responses as breaker failures.
// 4xx responses pass through: a rejected payment is an answer, not an outage.
func (b *breakerClient) Do(req *http.Request) (*http.Response, error) {
	return b.cb.Execute(func() (*http.Response, error) {
		resp, err := b.client.Do(req)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode >= http.StatusInternalServerError {
			resp.Body.Close()
			return nil, fmt.Errorf("%w: %s returned %d", ErrGateway, req.URL.Host, resp.StatusCode)
		}
		return resp, nil
	})
}
