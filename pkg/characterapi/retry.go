package characterapi

import (
	"fmt"
	"io"
	"io/ioutil"
	"net/http"
	"time"

	"github.com/Peripli/service-manager/pkg/log"
)

// RetryableTransport repeats a request until it gets a non 5xx response or runs out of attempts.
// Only requests without a body are retried.
type RetryableTransport struct {
	Transport          http.RoundTripper
	MaxRetryCount      int
	TimeBetweenRetries time.Duration
}

func (rt *RetryableTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if rt.MaxRetryCount <= 1 || req.Body != nil && req.Body != http.NoBody {
		return rt.Transport.RoundTrip(req)
	}

	ctx := req.Context()
	currentTry := 1
	for {
		log.C(ctx).Debugf("Try request to %s for %d time", req.URL.String(), currentTry)
		res, err := rt.Transport.RoundTrip(req)
		switch {
		case err != nil:
			log.C(ctx).Errorf("Request to %s failed with: %s", req.URL.String(), err)
		case res.StatusCode >= 500:
			log.C(ctx).Errorf("Request to %s failed with status: %d", req.URL.String(), res.StatusCode)
		default:
			return res, nil
		}

		if currentTry >= rt.MaxRetryCount {
			return res, err
		}
		if res != nil {
			io.Copy(ioutil.Discard, res.Body)
			res.Body.Close()
		}

		currentTry++
		log.C(ctx).Infof("Will retry request in %s", rt.TimeBetweenRetries)
		wait := time.NewTimer(rt.TimeBetweenRetries)
		select {
		case <-wait.C:
			continue
		case <-ctx.Done():
			wait.Stop()
			return nil, fmt.Errorf("request cancelled: %s", ctx.Err().Error())
		}
	}
}
