package entity

import (
	"net/http"
	"qiming/lib/validate"
	"time"
)

// CodeRequest is the body of both /auth/validate and /auth/recover.
type CodeRequest struct {
	Code     string `json:"code" validate:"required,min=16,max=24"`
	DeviceId string `json:"deviceId" validate:"required,min=8,max=128"`
}

func (c *CodeRequest) Bind(_ *http.Request) error {
	return validate.Struct(c)
}

// TokenResult is returned by both activation and recovery.
type TokenResult struct {
	Token     string `json:"token"`
	Recovered bool   `json:"recovered"`
	Message   string `json:"message"`
}

// AuthStatus is the read-only activation projection for one identity.
type AuthStatus struct {
	Activated   bool       `json:"activated"`
	Code        string     `json:"code,omitempty"`
	DeviceId    string     `json:"deviceId,omitempty"`
	ActivatedAt *time.Time `json:"activatedAt,omitempty"`
}

// RateLimitStatus reports how long the caller must wait before the next
// generation request.
type RateLimitStatus struct {
	WaitSeconds int  `json:"waitSeconds"`
	CanGenerate bool `json:"canGenerate"`
}
