// Package cloudevent carries error reports as CloudEvents 1.0 in structured
// mode: a signed JSON envelope POSTed to a single webhook sink.
package cloudevent

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// SpecVersion is the only CloudEvents version produced and accepted.
const SpecVersion = "1.0"

// CloudEvent is a structured-mode CloudEvents envelope. For error reports
// the subject is the error code.
type CloudEvent struct {
	SpecVersion     string         `json:"specversion"`
	Type            string         `json:"type"`
	Source          string         `json:"source"`
	Subject         string         `json:"subject,omitempty"`
	ID              string         `json:"id"`
	Time            time.Time      `json:"time"`
	DataContentType string         `json:"datacontenttype"`
	Data            map[string]any `json:"data"`
}

// New stamps a fresh id and time on an event of the given type.
func New(eventType, source, subject string, data map[string]any) *CloudEvent {
	return &CloudEvent{
		SpecVersion:     SpecVersion,
		Type:            eventType,
		Source:          source,
		Subject:         subject,
		ID:              uuid.NewString(),
		Time:            time.Now().UTC(),
		DataContentType: "application/json",
		Data:            data,
	}
}

// Validate checks the attributes every event must carry.
func (e *CloudEvent) Validate() error {
	switch {
	case e == nil:
		return errors.New("cloudevent: nil event")
	case e.SpecVersion != SpecVersion:
		return errors.New("cloudevent: unsupported specversion " + e.SpecVersion)
	case e.ID == "":
		return errors.New("cloudevent: missing id")
	case e.Type == "":
		return errors.New("cloudevent: missing type")
	case e.Source == "":
		return errors.New("cloudevent: missing source")
	}
	return nil
}
