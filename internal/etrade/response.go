package etrade

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/tordrt/snaketrade/internal/tabular"
)

// maxErrorBody caps how much of a failed response is kept for diagnostics
const maxErrorBody = 1024

// UpstreamError is returned for any non-200 response
type UpstreamError struct {
	StatusCode int
	Reason     string
	Body       string
}

func (e *UpstreamError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("upstream returned %d %s: %s", e.StatusCode, e.Reason, e.Body)
	}
	return fmt.Sprintf("upstream returned %d %s", e.StatusCode, e.Reason)
}

// ParseResponse decodes the body of a 200 response. Every other status is an
// *UpstreamError. The body is always consumed and closed.
func ParseResponse(resp *http.Response) (tabular.Value, error) {
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return tabular.Value{}, &UpstreamError{
			StatusCode: resp.StatusCode,
			Reason:     reasonPhrase(resp),
			Body:       strings.TrimSpace(string(body)),
		}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return tabular.Value{}, fmt.Errorf("failed to read response body: %w", err)
	}

	v, err := tabular.Decode(data)
	if err != nil {
		return tabular.Value{}, err
	}
	return v, nil
}

// reasonPhrase strips the status code from resp.Status ("404 Not Found")
func reasonPhrase(resp *http.Response) string {
	reason := strings.TrimSpace(strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode)))
	if reason == "" {
		reason = http.StatusText(resp.StatusCode)
	}
	return reason
}
