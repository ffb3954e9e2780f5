package response

// Response is the standard API envelope. Every mutating operation answers
// with {success, message, error?}; reads wrap their payload in data.
type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Error   interface{} `json:"error,omitempty"`
}

// Success returns a success envelope wrapping the data
func Success(data interface{}) Response {
	return Response{
		Success: true,
		Data:    data,
	}
}

// SuccessMessage returns a success envelope with a human-readable message
func SuccessMessage(message string, data interface{}) Response {
	return Response{
		Success: true,
		Message: message,
		Data:    data,
	}
}

// Error returns an error envelope with a message only
func Error(message string) Response {
	return Response{
		Success: false,
		Message: message,
	}
}

// FieldErrors returns an error envelope carrying a field-path keyed error map
func FieldErrors(message string, fields interface{}) Response {
	return Response{
		Success: false,
		Message: message,
		Error:   fields,
	}
}
