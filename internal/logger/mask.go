package logger

import (
	"strings"
)

// Masking helpers for security-relevant log lines. Audit logging must never
// carry raw emails, full ids or full client addresses.

// MaskEmail keeps the first letter of the local part and the full domain:
// john.doe@example.com -> j***@example.com
func MaskEmail(email string) string {
	local, domain, found := strings.Cut(email, "@")
	if !found || local == "" || domain == "" {
		return "[invalid-email]"
	}

	if len(local) == 1 {
		return "*@" + domain
	}
	return local[:1] + "***@" + domain
}

// MaskID keeps the first id block only: 6b3f1c1e-...  -> 6b3f1c1e***
func MaskID(id string) string {
	if len(id) < 8 {
		return "[masked-id]"
	}
	return id[:8] + "***"
}

// MaskIP hides the host part of the client address
// 192.168.1.100 -> 192.168.*.*, IPv6 keeps the first two groups
func MaskIP(ip string) string {
	if parts := strings.Split(ip, "."); len(parts) == 4 {
		return parts[0] + "." + parts[1] + ".*.*"
	}

	if parts := strings.Split(ip, ":"); len(parts) >= 2 && strings.Contains(ip, ":") {
		return parts[0] + ":" + parts[1] + "::*"
	}

	return "[masked-ip]"
}
