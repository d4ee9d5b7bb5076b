package log

// Common field names for structured logging
const (
	FieldComponent  = "component"
	FieldRequestID  = "request_id"
	FieldClientIP   = "client_ip"
	FieldMethod     = "method"
	FieldPath       = "path"
	FieldQuery      = "query"
	FieldStatusCode = "status_code"
	FieldDuration   = "duration_ms"
	FieldUserAgent  = "user_agent"
	FieldSuccess    = "success"
	FieldError      = "error"
	FieldOperation  = "operation"
	FieldSessionID  = "session_id"
	FieldUserID     = "user_id"
	FieldField      = "field"
	FieldMode       = "mode"
	FieldContext    = "context"
	FieldCriteria   = "criteria"
	FieldBackend    = "backend"
	FieldCount      = "count"
)

// Components defines standard component names
const (
	ComponentApp      = "app"
	ComponentHTTP     = "http"
	ComponentPanel    = "panel"
	ComponentOptions  = "options"
	ComponentStorage  = "storage"
	ComponentAMQP     = "amqp"
	ComponentSession  = "session"
	ComponentCache    = "cache"
	ComponentSecurity = "security"
	ComponentSync     = "sync"
)

// Operations defines standard operation names
const (
	OpSetFilter = "set_filter"
	OpClearAll  = "clear_all"
	OpCompile   = "compile"
	OpPublish   = "publish"
	OpLoad      = "load"
	OpSync      = "sync"
	OpIssue     = "issue"
	OpRevoke    = "revoke"
	OpShutdown  = "shutdown"
	OpStartup   = "startup"
)

// LogFields provides a builder pattern for structured log fields
type LogFields map[string]any

// NewFields creates a new LogFields instance
func NewFields() LogFields {
	return make(LogFields)
}

// WithComponent adds component field
func (f LogFields) WithComponent(component string) LogFields {
	f[FieldComponent] = component
	return f
}

// WithRequestID adds request ID field
func (f LogFields) WithRequestID(requestID string) LogFields {
	f[FieldRequestID] = requestID
	return f
}

// WithError adds error field
func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

// WithOperation adds operation field
func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

// WithSession adds session identity fields
func (f LogFields) WithSession(sessionID, userID string) LogFields {
	if sessionID != "" {
		f[FieldSessionID] = sessionID
	}
	if userID != "" {
		f[FieldUserID] = userID
	}
	return f
}

// WithFilter adds the field and mode of a filter mutation
func (f LogFields) WithFilter(field, mode string) LogFields {
	f[FieldField] = field
	f[FieldMode] = mode
	return f
}

// WithCriteria adds the query context and its compiled fragment
func (f LogFields) WithCriteria(context, criteria string) LogFields {
	f[FieldContext] = context
	f[FieldCriteria] = criteria
	return f
}

// WithHTTPRequest adds HTTP request fields
func (f LogFields) WithHTTPRequest(method, path, query, userAgent string) LogFields {
	f[FieldMethod] = method
	f[FieldPath] = path
	f[FieldQuery] = query
	f[FieldUserAgent] = userAgent
	return f
}

// WithHTTPResponse adds HTTP response fields
func (f LogFields) WithHTTPResponse(statusCode int, durationMs int64) LogFields {
	f[FieldStatusCode] = statusCode
	f[FieldDuration] = durationMs
	f[FieldSuccess] = statusCode < 400
	return f
}

// ToSlice converts LogFields to a slice for slog
func (f LogFields) ToSlice() []any {
	slice := make([]any, 0, len(f)*2)
	for k, v := range f {
		slice = append(slice, k, v)
	}
	return slice
}
