package logger

// Standard field key constants for structured logging.
const (
	FieldService    = "service"
	FieldComponent  = "component"
	FieldTraceID    = "trace_id"
	FieldSpanID     = "span_id"
	FieldOperation  = "operation"
	FieldError      = "error"
	FieldTrackIndex = "track_index"
	FieldTrackID    = "track_id"
	FieldTimeUs     = "time_us"
	FieldPositionUs = "position_us"
	FieldMimeType   = "mime_type"
	FieldSize       = "size"
	FieldDigest     = "digest"
	FieldGeneration = "generation"
	FieldLooper     = "looper"
	FieldTopic      = "topic"
	FieldPartition  = "partition"
	FieldOffset     = "offset"
	FieldChannel    = "channel"
)

// Fields builds a map[string]interface{} from alternating key-value pairs.
//
//	log.Debug("dispatched", logger.Fields(logger.FieldTimeUs, ts))
func Fields(kvs ...interface{}) map[string]interface{} {
	m := make(map[string]interface{}, len(kvs)/2)
	for i := 0; i < len(kvs)-1; i += 2 {
		if key, ok := kvs[i].(string); ok {
			m[key] = kvs[i+1]
		}
	}
	return m
}

// ErrorFields creates fields for an operation that failed.
func ErrorFields(op string, err error) map[string]interface{} {
	return map[string]interface{}{
		FieldOperation: op,
		FieldError:     err.Error(),
	}
}
