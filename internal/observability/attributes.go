// Package observability provides metrics for the HTTP surface, the error
// boundary and the error reporter.
package observability

import (
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"
)

// Attribute keys
const (
	attrMethod     = "method"
	attrPath       = "path"
	attrStatus     = "status"
	attrErrStatus  = "error_status"
	attrErrCode    = "error_code"
	attrErrType    = "error_type"
	attrDropReason = "reason"
)

func methodAttr(method string) attribute.KeyValue {
	return attribute.String(attrMethod, method)
}

func pathAttr(path string) attribute.KeyValue {
	// Normalize paths with IDs to reduce cardinality
	// /test/errors/not-found -> /test/errors/{status}
	normalized := normalizePath(path)
	return attribute.String(attrPath, normalized)
}

func statusAttr(code int) attribute.KeyValue {
	// Group status codes to reduce cardinality
	// 200-299 -> 2xx, 400-499 -> 4xx, 500-599 -> 5xx
	group := fmt.Sprintf("%dxx", code/100)
	return attribute.String(attrStatus, group)
}

func errorAttrs(status, code, errorType string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(attrErrStatus, status),
		attribute.String(attrErrCode, code),
		attribute.String(attrErrType, errorType),
	}
}

func dropReasonAttr(reason string) attribute.KeyValue {
	return attribute.String(attrDropReason, reason)
}

// knownPaths are served verbatim; anything else collapses to a placeholder so
// scanners probing random URLs cannot blow up cardinality.
var knownPaths = map[string]bool{
	"/livez":             true,
	"/readyz":            true,
	"/test/hello":        true,
	"/test/hello-params": true,
	"/test/panic":        true,
	"/test/secure":       true,
}

// normalizePath replaces dynamic path segments with placeholders.
func normalizePath(path string) string {
	const prefix = "/test/errors/"
	if len(path) > len(prefix) && strings.HasPrefix(path, prefix) {
		return "/test/errors/{status}"
	}
	if knownPaths[path] {
		return path
	}
	return "{unmatched}"
}
