package adapter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/aelexs/phone-verification-service/internal/domain"
)

// Twilio upstream error codes that need explicit classification. Everything
// else falls back on the HTTP status class.
const (
	twilioErrInvalidTo          = 21211 // 'To' number is not a valid phone number
	twilioErrUnroutable         = 21408 // permission to send to this region not enabled
	twilioErrUnreachable        = 21614 // 'To' number is not a mobile number
	twilioErrUnsubscribed       = 21610 // recipient has opted out
	twilioErrTooManyRequests    = 20429
	twilioErrInternal           = 20500
	twilioErrServiceUnavailable = 20503
)

const twilioMaxResponseBytes = 1 << 20

// twilioAPIError is Twilio's standard error envelope.
type twilioAPIError struct {
	Code     int    `json:"code"`
	Message  string `json:"message"`
	Status   int    `json:"status"`
	MoreInfo string `json:"more_info"`
}

// twilioStatusError is a classified upstream failure. It unwraps to the
// matching domain sentinel and keeps the raw status for callers that
// special-case specific responses (the Verify check treats 404 as a plain
// mismatch).
type twilioStatusError struct {
	httpStatus int
	apiCode    int
	message    string
	class      error
}

func (e *twilioStatusError) Error() string {
	return fmt.Sprintf("twilio: status %d code %d: %s", e.httpStatus, e.apiCode, e.message)
}

func (e *twilioStatusError) Unwrap() error { return e.class }

// classifyTwilioError maps a Twilio failure onto the sender error taxonomy.
func classifyTwilioError(httpStatus int, apiErr twilioAPIError) error {
	e := &twilioStatusError{
		httpStatus: httpStatus,
		apiCode:    apiErr.Code,
		message:    apiErr.Message,
	}

	switch apiErr.Code {
	case twilioErrInvalidTo, twilioErrUnroutable, twilioErrUnreachable:
		e.class = domain.ErrSenderIllegalArgument
		return e
	case twilioErrUnsubscribed:
		e.class = domain.ErrSenderRejected
		return e
	case twilioErrTooManyRequests, twilioErrInternal, twilioErrServiceUnavailable:
		e.class = domain.ErrSenderUnavailable
		return e
	}

	switch {
	case httpStatus == http.StatusTooManyRequests || httpStatus >= 500:
		e.class = domain.ErrSenderUnavailable
	case httpStatus == http.StatusBadRequest:
		e.class = domain.ErrSenderIllegalArgument
	default:
		e.class = domain.ErrSenderRejected
	}
	return e
}

// isTwilioNotFound reports whether the error is an upstream 404.
func isTwilioNotFound(err error) bool {
	var te *twilioStatusError
	return errors.As(err, &te) && (te.httpStatus == http.StatusNotFound || te.apiCode == 20404)
}

// postTwilioForm issues an authenticated form POST against the Twilio API
// and decodes the JSON response into out. Transport-level failures classify
// as transient.
func postTwilioForm(
	ctx context.Context,
	client *http.Client,
	endpoint string,
	accountSID string,
	authToken domain.SecretString,
	form url.Values,
	out interface{},
) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("twilio: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(accountSID, authToken.Expose())

	resp, err := client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("twilio: %v: %w", err, domain.ErrSenderUnavailable)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, twilioMaxResponseBytes))
	if err != nil {
		return fmt.Errorf("twilio: read response: %v: %w", err, domain.ErrSenderUnavailable)
	}

	if resp.StatusCode >= 300 {
		var apiErr twilioAPIError
		// A non-JSON error body still classifies by status code.
		_ = json.Unmarshal(body, &apiErr)
		return classifyTwilioError(resp.StatusCode, apiErr)
	}

	if out != nil {
		if err := json.Unmarshal(body, out); err != nil {
			return fmt.Errorf("twilio: decode response: %v: %w", err, domain.ErrSenderUnavailable)
		}
	}
	return nil
}

func defaultedHTTPClient(client *http.Client) *http.Client {
	if client != nil {
		return client
	}
	return &http.Client{Timeout: domain.UpstreamCallTimeout}
}

func defaultedTTL(ttl time.Duration) time.Duration {
	if ttl > 0 {
		return ttl
	}
	return domain.DefaultSessionTTL
}
