package boundary

import "errorgate/internal/apperrors"

// Configuration keys are built as keyPrefix + Status.PropertyName() + suffix,
// e.g. "application.error.not-found.code".
const (
	keyPrefix     = "application.error"
	codeSuffix    = ".code"
	messageSuffix = ".message"
)

// Hardcoded fallbacks applied by complete.
const (
	DefaultCode      = "ER9999"
	DefaultMessage   = "No description configured."
	DefaultComponent = "default-component"
)

// Lookup reads configuration values by dotted key.
type Lookup interface {
	Get(key string) (string, bool)
}

// Metadata exposes identity values used as the component fallback.
type Metadata interface {
	ApplicationName() string
	BuildName() string
}

// resolveFields fills code and message from configuration. Resolved records
// keep any value already present; unresolved ones take configuration over
// their own values, and a key absent from configuration clears the field so
// complete supplies the default. A nil lookup changes nothing. The result is
// always marked resolved.
func resolveFields(rec *apperrors.Error, lookup Lookup) *apperrors.Error {
	out := *rec
	if out.Status == apperrors.StatusNone {
		out.Status = apperrors.StatusUnexpected
	}

	base := keyPrefix + out.Status.PropertyName()
	if lookup != nil {
		if out.Code == "" || !out.Resolved {
			out.Code, _ = lookup.Get(base + codeSuffix)
		}
		if out.Message == "" || !out.Resolved {
			out.Message, _ = lookup.Get(base + messageSuffix)
		}
	}

	out.Resolved = true
	return &out
}

// complete supplies a value for every public field that is still empty.
func complete(rec *apperrors.Error, meta Metadata) *apperrors.Error {
	out := *rec
	if out.Status == apperrors.StatusNone {
		out.Status = apperrors.StatusUnexpected
	}
	if out.Component == "" {
		out.Component = componentName(meta)
	}
	if out.Code == "" {
		out.Code = DefaultCode
	}
	if out.Message == "" {
		out.Message = DefaultMessage
	}
	if out.ErrorType == apperrors.TypeNone {
		out.ErrorType = apperrors.TypeTechnical
	}
	return &out
}

func componentName(meta Metadata) string {
	if meta != nil {
		if name := meta.ApplicationName(); name != "" {
			return name
		}
		if name := meta.BuildName(); name != "" {
			return name
		}
	}
	return DefaultComponent
}
