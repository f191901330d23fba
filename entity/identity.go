package entity

// Identity is the authenticated caller extracted from a verified token.
// The user identity IS the authorization code; UserId and Code carry the
// same value by construction.
type Identity struct {
	UserId   string `json:"userId"`
	DeviceId string `json:"deviceId"`
	Code     string `json:"code"`
}
