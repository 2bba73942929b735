package log

// Canonical field name constants for structured logging.
const (
	FieldJobID      = "job_id"
	FieldMediaID    = "media_id"
	FieldMediaType  = "media_type"
	FieldCommunity  = "community_id"
	FieldEvent      = "event"
	FieldComponent  = "component"
	FieldDrmType    = "drm_type"
	FieldPssh       = "pssh"
	FieldAttempt    = "attempt"
	FieldOldState   = "old_state"
	FieldNewState   = "new_state"
	FieldPath       = "path"
	FieldStatusCode = "status_code"
	FieldBytes      = "bytes"
)
