package cloudevent

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// ErrSignature is returned by Decode when the body is not signed by key.
var ErrSignature = errors.New("cloudevent: signature mismatch")

// maxEventSize bounds the body Decode will read.
const maxEventSize = 1 << 20

// Decode reads one structured-mode event from a sink request. With a
// non-empty key the signature header must match the body.
func Decode(r *http.Request, key string) (*CloudEvent, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxEventSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read event: %w", err)
	}
	if key != "" && !Verify(body, key, r.Header.Get(SignatureHeader)) {
		return nil, ErrSignature
	}

	var event CloudEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return nil, fmt.Errorf("failed to decode event: %w", err)
	}
	if err := event.Validate(); err != nil {
		return nil, err
	}
	return &event, nil
}
