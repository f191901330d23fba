package response

import (
	"qiming/lib/apperr"
	"qiming/lib/clock"
)

type ErrorBody struct {
	Code        string `json:"code"`
	Message     string `json:"message"`
	WaitSeconds int    `json:"waitSeconds,omitempty"`
}

type Response struct {
	Data      interface{} `json:"data,omitempty"`
	Error     *ErrorBody  `json:"error,omitempty"`
	Success   bool        `json:"success"`
	Timestamp string      `json:"timestamp"`
}

func Ok(data interface{}) Response {
	return Response{
		Data:      data,
		Success:   true,
		Timestamp: clock.Now(),
	}
}

func Err(e *apperr.Error) Response {
	return Response{
		Success: false,
		Error: &ErrorBody{
			Code:        e.Code,
			Message:     e.Message,
			WaitSeconds: e.WaitSeconds,
		},
		Timestamp: clock.Now(),
	}
}
