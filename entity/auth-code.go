package entity

import (
	"regexp"
	"time"
)

// CodeStatus tracks the single-use lifecycle of an authorization code.
// UNUSED -> USED happens exactly once, on activation. UNUSED codes expire
// when their expiry passes; USED codes never expire.
type CodeStatus string

const (
	CodeUnused  CodeStatus = "UNUSED"
	CodeUsed    CodeStatus = "USED"
	CodeExpired CodeStatus = "EXPIRED"
)

// CodePrefix and CodeAlphabet define the printable code format
// BABY-XXXX-XXXX-XXXX. The alphabet drops visually ambiguous symbols
// (I, O, 0, 1), leaving 32 characters.
const (
	CodePrefix   = "BABY"
	CodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
)

var codeFormat = regexp.MustCompile(`^BABY-[A-Z0-9]{4}-[A-Z0-9]{4}-[A-Z0-9]{4}$`)

// ValidCodeFormat reports whether code matches BABY-XXXX-XXXX-XXXX.
func ValidCodeFormat(code string) bool {
	return codeFormat.MatchString(code)
}

// AuthorizationCode is a single-use credential unlocking the generation
// feature for one device. Created in bulk offline, mutated only by
// activation, never deleted.
type AuthorizationCode struct {
	Code        string     `json:"code" bson:"code"`
	Status      CodeStatus `json:"status" bson:"status"`
	DeviceId    string     `json:"device_id,omitempty" bson:"device_id,omitempty"`
	ActivatedAt *time.Time `json:"activated_at,omitempty" bson:"activated_at,omitempty"`
	ActivatedIp string     `json:"activated_ip,omitempty" bson:"activated_ip,omitempty"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty" bson:"expires_at,omitempty"`
	BatchId     string     `json:"batch_id,omitempty" bson:"batch_id,omitempty"`
	Metadata    string     `json:"metadata,omitempty" bson:"metadata,omitempty"`
	CreatedAt   time.Time  `json:"created_at" bson:"created_at"`
}

// IsExpired reports whether an unused code is past its expiry.
// USED codes are permanently valid.
func (c *AuthorizationCode) IsExpired(now time.Time) bool {
	if c.Status == CodeUsed {
		return false
	}
	if c.ExpiresAt == nil {
		return false
	}
	return now.After(*c.ExpiresAt)
}
