package transport

// Format selects how a request body is encoded and a response body decoded.
type Format int

const (
	// FormatJSON is the structured text format used by every resource endpoint.
	FormatJSON Format = iota
	// FormatProtobuf is the binary log batch format (model.LogGroupList).
	FormatProtobuf
)

// ContentType returns the media type sent for the format.
func (f Format) ContentType() string {
	switch f {
	case FormatProtobuf:
		return "application/x-protobuf"
	default:
		return "application/json"
	}
}

func (f Format) String() string {
	switch f {
	case FormatJSON:
		return "json"
	case FormatProtobuf:
		return "protobuf"
	default:
		return "unknown"
	}
}
