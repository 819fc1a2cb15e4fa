package platforms

import (
	"errors"
	"fmt"
)

// ErrCredentialMissing means no API key is configured for a platform. It is
// raised at adapter construction (or registry lookup), never mid-request.
var ErrCredentialMissing = errors.New("platform api credential missing")

// UpstreamError is a non-success HTTP response or a timeout from a platform
// API. Status is 0 for timeouts and transport failures. Adapters never retry;
// retry policy belongs to the caller.
type UpstreamError struct {
	Platform string
	Status   int
	Message  string
}

func (e *UpstreamError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("%s api unavailable: %s", e.Platform, e.Message)
	}
	return fmt.Sprintf("%s api error %d: %s", e.Platform, e.Status, e.Message)
}

// ProtocolError is a successful HTTP response whose body does not match the
// shape the adapter expects.
type ProtocolError struct {
	Platform string
	Reason   string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("%s api unexpected response: %s", e.Platform, e.Reason)
}
