package sanitizer

import "strings"

// redactEmail masks the local part of an address, keeping the first and
// last character and the domain: user@example.com -> u***r@example.com.
// Applied to its own output it is a no-op.
func redactEmail(match string) string {
	at := strings.LastIndex(match, "@")
	if at <= 0 {
		return "[REDACTED_EMAIL]"
	}
	local, domain := match[:at], match[at+1:]
	if len(local) <= 2 {
		return "[REDACTED]@" + domain
	}
	return local[:1] + "***" + local[len(local)-1:] + "@" + domain
}

// redactIPv4 keeps the first two octets: 192.168.1.100 -> 192.168.*.*.
func redactIPv4(match string) string {
	octets := strings.Split(match, ".")
	if len(octets) != 4 {
		return "[REDACTED_IP]"
	}
	return octets[0] + "." + octets[1] + ".*.*"
}

// redactIPv6 keeps the first two groups and masks the remainder.
func redactIPv6(match string) string {
	groups := strings.Split(match, ":")
	if len(groups) < 3 {
		return "[REDACTED_IP]"
	}
	return groups[0] + ":" + groups[1] + ":****"
}

// redactUUID keeps the first 8 hex characters so correlated identifiers
// stay correlatable: 12345678-1234-... -> 12345678-****-****-****-****.
func redactUUID(match string) string {
	if len(match) < 8 {
		return "[REDACTED_UUID]"
	}
	return match[:8] + "-****-****-****-****"
}

// redactBase64 redacts only blobs long enough to plausibly carry a secret.
// Short matches pass through untouched.
func redactBase64(match string) string {
	if len(match) <= 20 {
		return match
	}
	return "[REDACTED_BASE64]"
}
