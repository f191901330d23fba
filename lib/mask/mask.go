// Package mask hides sensitive values in logs and responses.
package mask

import (
	"fmt"
	"strings"
)

// Code keeps the prefix and the first group of an authorization code.
// BABY-A3F7-92D1-4E8C -> BABY-A3F7-****
func Code(code string) string {
	if len(code) < 16 {
		return "****"
	}
	parts := strings.Split(code, "-")
	if len(parts) >= 4 {
		return fmt.Sprintf("%s-%s-****", parts[0], parts[1])
	}
	return code[:8] + "****"
}

// Ip keeps the first two octets. 192.168.1.100 -> 192.168.xxx.xxx
func Ip(ip string) string {
	parts := strings.Split(ip, ".")
	if len(parts) == 4 {
		return fmt.Sprintf("%s.%s.xxx.xxx", parts[0], parts[1])
	}
	return "xxx.xxx.xxx.xxx"
}

// DeviceId keeps the first and last 8 characters of a device fingerprint.
func DeviceId(deviceId string) string {
	if len(deviceId) < 16 {
		return "****"
	}
	return deviceId[:8] + "****" + deviceId[len(deviceId)-8:]
}

// Token keeps the first and last 20 characters of a JWT.
func Token(token string) string {
	if len(token) < 40 {
		return "****"
	}
	return token[:20] + "****" + token[len(token)-20:]
}
