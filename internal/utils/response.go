package utils

import "time"

// APIResponse is the envelope of every JSON dashboard response. Code is a
// stable machine-readable class for failures, e.g. "stale_index".
type APIResponse struct {
	Success   bool        `json:"success"`
	Message   string      `json:"message"`
	Data      interface{} `json:"data,omitempty"`
	Code      string      `json:"code,omitempty"`
	Error     string      `json:"error,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

func SuccessResponse(message string, data interface{}) APIResponse {
	return APIResponse{
		Success:   true,
		Message:   message,
		Data:      data,
		Timestamp: time.Now().UTC(),
	}
}

func ErrorResponse(message, code string, err error) APIResponse {
	resp := APIResponse{
		Success:   false,
		Message:   message,
		Code:      code,
		Timestamp: time.Now().UTC(),
	}
	if err != nil {
		resp.Error = err.Error()
	}
	return resp
}
