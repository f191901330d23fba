package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Error is the service-wide error type. Every component raises one of these
// with a stable code string and a default user-facing message; the HTTP layer
// maps Status to the response code and renders Code/Message in the envelope.
type Error struct {
	Code        string
	Message     string
	Status      int
	WaitSeconds int
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func New(code, message string, status int) *Error {
	return &Error{Code: code, Message: message, Status: status}
}

// From returns err as *Error, wrapping anything unexpected as INTERNAL_ERROR.
func From(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return &Error{Code: "INTERNAL_ERROR", Message: "服务器内部错误，请稍后重试", Status: http.StatusInternalServerError}
}

func CodeFormatInvalid() *Error {
	return New("CODE_FORMAT_INVALID", "授权码格式不正确，请检查", http.StatusBadRequest)
}

func CodeNotFound() *Error {
	return New("CODE_NOT_FOUND", "授权码无效，请确认后重新输入", http.StatusNotFound)
}

func CodeAlreadyUsed() *Error {
	return New("CODE_ALREADY_USED", "该授权码已被使用，每个授权码仅限激活一次", http.StatusBadRequest)
}

func CodeExpired() *Error {
	return New("CODE_EXPIRED", "授权码已过期，请重新购买", http.StatusBadRequest)
}

func InvalidToken(message string) *Error {
	if message == "" {
		message = "Token无效或已过期"
	}
	return New("INVALID_TOKEN", message, http.StatusUnauthorized)
}

func DeviceMismatch() *Error {
	return New("DEVICE_MISMATCH", "该授权码已在其他设备激活，请联系客服", http.StatusForbidden)
}

func RateLimitExceeded(waitSeconds int) *Error {
	e := New("RATE_LIMIT_EXCEEDED", "操作过于频繁，请稍后再试", http.StatusTooManyRequests)
	e.WaitSeconds = waitSeconds
	return e
}

func NotFound(message string) *Error {
	if message == "" {
		message = "资源不存在"
	}
	return New("NOT_FOUND", message, http.StatusNotFound)
}

func Forbidden(message string) *Error {
	if message == "" {
		message = "无权访问"
	}
	return New("FORBIDDEN", message, http.StatusForbidden)
}

func BadRequest(message string) *Error {
	if message == "" {
		message = "请求参数错误"
	}
	return New("BAD_REQUEST", message, http.StatusBadRequest)
}

func Database() *Error {
	return New("DATABASE_ERROR", "数据库错误，请稍后重试", http.StatusInternalServerError)
}

// Upstream AI failures are all surfaced as service-unavailable; the code
// string still tells the client and the logs which way the call failed.

func AiAuthFailed() *Error {
	return New("AI_AUTH_FAILED", "AI服务认证失败，请检查API密钥配置", http.StatusServiceUnavailable)
}

func AiRateLimit() *Error {
	return New("AI_RATE_LIMIT", "AI服务请求过于频繁，请稍后再试", http.StatusServiceUnavailable)
}

func AiServiceError() *Error {
	return New("AI_SERVICE_ERROR", "AI服务暂时不可用，请稍后再试", http.StatusServiceUnavailable)
}

func AiEmptyResponse() *Error {
	return New("AI_EMPTY_RESPONSE", "AI返回内容为空，请重试", http.StatusServiceUnavailable)
}

func AiParseError() *Error {
	return New("AI_PARSE_ERROR", "解析AI结果失败，请重试", http.StatusServiceUnavailable)
}

func AiTimeout() *Error {
	return New("AI_TIMEOUT", "AI服务响应超时，请稍后再试", http.StatusServiceUnavailable)
}

func AiUnavailable() *Error {
	return New("AI_SERVICE_UNAVAILABLE", "AI服务暂不可用，请稍后再试", http.StatusServiceUnavailable)
}

func AiError(detail string) *Error {
	return New("AI_ERROR", fmt.Sprintf("AI服务错误: %s", detail), http.StatusServiceUnavailable)
}
