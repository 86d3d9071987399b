package boundary

import (
	"errorgate/internal/apperrors"
	"maps"
)

// Response is the transport-agnostic rendering of a completed record.
type Response struct {
	StatusCode int
	Headers    map[string]string
	Body       *apperrors.Error // Serializes to the public body shape
}

// buildResponse derives the status code and copies headers verbatim.
func buildResponse(rec *apperrors.Error) Response {
	var headers map[string]string
	if len(rec.Headers) > 0 {
		headers = maps.Clone(rec.Headers)
	}
	return Response{
		StatusCode: rec.HTTPStatus(),
		Headers:    headers,
		Body:       rec,
	}
}
