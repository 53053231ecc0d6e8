package sender

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/launchdarkly/go-sdk-common/v3/ldlog"
)

type httpStatusError struct {
	Message string
	Code    int
}

func (e httpStatusError) Error() string {
	return e.Message
}

// malformedHitError means no request could be made from a hit URL. Retrying cannot fix it.
type malformedHitError struct {
	err error
}

func (e malformedHitError) Error() string {
	return fmt.Sprintf("Invalid hit URL: %s", e.err)
}

// Tests whether an HTTP error status might resolve on its own if we retry. Client errors are
// final, except for timeouts and throttling.
func isHTTPErrorRecoverable(statusCode int) bool {
	if statusCode >= 400 && statusCode < 500 {
		switch statusCode {
		case http.StatusRequestTimeout, http.StatusTooManyRequests:
			return true
		default:
			return false
		}
	}
	return true
}

// Logs a delivery error at the appropriate level and reports whether it is worth retrying.
// Network errors are always retried.
func checkIfErrorIsRecoverableAndLog(loggers ldlog.Loggers, err error, recoverableMessage string) bool {
	if !isRecoverable(err) {
		loggers.Errorf("Error sending hit (giving up permanently): %s", err)
		return false
	}
	loggers.Warnf("Error sending hit (%s): %s", recoverableMessage, err)
	return true
}

func checkForHTTPError(statusCode int, url string) error {
	if statusCode/100 != 2 {
		return httpStatusError{
			Message: fmt.Sprintf("Unexpected response code: %d when accessing URL: %s", statusCode, url),
			Code:    statusCode,
		}
	}
	return nil
}

func (s *Sender) get(ctx context.Context, url string) error {
	if s.config.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.RequestTimeout)
		defer cancel()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return malformedHitError{err: err}
	}
	for k, vv := range s.config.Headers {
		req.Header[k] = vv
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()
	return checkForHTTPError(resp.StatusCode, url)
}
