package logger

// Fields is an alias for map[string]interface{} for convenience.
type Fields map[string]interface{}

// Tracing fields, propagated through the call chain via context.
const (
	// FieldRequestID is the HTTP request ID (UUID)
	FieldRequestID = "request_id"

	// FieldUserID is the authenticated caller
	FieldUserID = "user_id"

	// FieldVideoID is the external video id a request is scoped to
	FieldVideoID = "video_id"

	// FieldTool is the name of the tool being executed
	FieldTool = "tool"

	// FieldStep is the tool round inside one assistant reply
	FieldStep = "step"

	// FieldComponent is the component/module name
	FieldComponent = "component"
)

// Metric fields, attached per entry for aggregation.
const (
	// FieldDurationMs is the execution duration in milliseconds
	FieldDurationMs = "duration_ms"

	// FieldCount is a generic count field
	FieldCount = "count"

	// FieldSize is the data size in bytes
	FieldSize = "size"

	// FieldStatus is the operation status
	FieldStatus = "status"
)
