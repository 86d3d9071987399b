package boundary

import (
	"context"
	"errorgate/internal/apperrors"
	"errors"
	"sync"
)

// mapLookup is an in-memory configuration source.
type mapLookup map[string]string

func (m mapLookup) Get(key string) (string, bool) {
	v, ok := m[key]
	return v, ok
}

type staticMetadata struct {
	app   string
	build string
}

func (m staticMetadata) ApplicationName() string { return m.app }
func (m staticMetadata) BuildName() string       { return m.build }

// testCatalog mirrors the codes shipped in configs/errors.yaml.
func testCatalog() mapLookup {
	return mapLookup{
		"application.error.bad-request.code":    "ER0001",
		"application.error.bad-request.message": "Bad request",
		"application.error.not-found.code":      "ER0004",
		"application.error.not-found.message":   "Resource not found",
		"application.error.unexpected.code":     "ER9999",
	}
}

type recordedError struct {
	status, code, errorType string
	httpStatus              int
}

type fakeRecorder struct {
	mu      sync.Mutex
	records []recordedError
}

func (f *fakeRecorder) RecordError(_ context.Context, status, code, errorType string, httpStatus int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records = append(f.records, recordedError{status, code, errorType, httpStatus})
}

type fakeReporter struct {
	mu      sync.Mutex
	records []*apperrors.Error
	accept  bool
}

func (f *fakeReporter) Report(_ context.Context, rec *apperrors.Error, _ *RequestInfo) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records = append(f.records, rec)
	return f.accept
}

func (f *fakeReporter) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.records)
}

// customError is a failure type nothing registers.
type customError struct{ msg string }

func (e *customError) Error() string { return e.msg }

// embeddedInput embeds a registered failure type.
type embeddedInput struct {
	*InputError
}

var errPlain = errors.New("plain failure")
