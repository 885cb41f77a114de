package probe

import (
	"crypto/tls"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
)

// Connection pool tuning shared by every probe request, regardless of
// target. One *resty.Client backs every worker; per-request timeouts
// are applied with SetContext, not SetTimeout, since timeout varies
// per target.
const (
	maxIdleConns        = 100
	maxIdleConnsPerHost = 20
	idleConnTimeout     = 90 * time.Second
	tlsHandshakeTimeout = 10 * time.Second
)

// NewClient builds the resty client shared by all probe workers in a
// generation. Unlike an API client, it retries nothing: a probe's job
// is to observe whether one request succeeded, and a retry would
// quietly turn a real failure into a success with inflated latency.
func NewClient() *resty.Client {
	client := resty.New()

	httpClient := client.GetClient()
	httpClient.Transport = &http.Transport{
		MaxIdleConns:        maxIdleConns,
		MaxIdleConnsPerHost: maxIdleConnsPerHost,
		IdleConnTimeout:     idleConnTimeout,
		TLSHandshakeTimeout: tlsHandshakeTimeout,
		TLSClientConfig: &tls.Config{
			MinVersion: tls.VersionTLS12,
		},
	}

	return client
}
