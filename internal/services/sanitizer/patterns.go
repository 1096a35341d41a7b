package sanitizer

import "regexp"

// redaction strategies; each pattern family redacts differently so useful
// debugging context survives sanitization.
type strategy int

const (
	strategyFull   strategy = iota // replace the whole match with [REDACTED_<NAME>]
	strategyEmail                  // u***r@domain
	strategyIPv4                   // keep leading octets, mask trailing
	strategyIPv6                   // keep leading groups, mask trailing
	strategyUUID                   // keep first 8 hex chars, mask rest
	strategyBase64                 // redact only strings longer than 20 chars
)

// family is one named, independently applied redaction pattern.
type family struct {
	name     string
	regex    *regexp.Regexp
	strategy strategy
	highRisk bool // carries a fixed extra security-score penalty
}

// families lists the builtin redaction patterns in application order.
// The most specific credential formats run before generic key=value
// patterns so the matched family name stays meaningful.
var families = []family{
	{
		name:     "private_key",
		regex:    regexp.MustCompile(`-----BEGIN[\s\w]*PRIVATE[\s\w]*KEY-----[\s\S]*?-----END[\s\w]*PRIVATE[\s\w]*KEY-----`),
		strategy: strategyFull,
		highRisk: true,
	},
	{
		name:     "gcp_service_account",
		regex:    regexp.MustCompile(`"type"\s*:\s*"service_account"`),
		strategy: strategyFull,
		highRisk: true,
	},
	{
		name:     "aws_access_key",
		regex:    regexp.MustCompile(`\b(?:AKIA|ASIA)[0-9A-Z]{16}\b`),
		strategy: strategyFull,
	},
	{
		name:     "slack_token",
		regex:    regexp.MustCompile(`\bxox[baprs]-[0-9A-Za-z-]{10,}\b`),
		strategy: strategyFull,
	},
	{
		name:     "github_token",
		regex:    regexp.MustCompile(`\bgh[pousr]_[A-Za-z0-9]{36,}\b`),
		strategy: strategyFull,
	},
	{
		name:     "jwt",
		regex:    regexp.MustCompile(`eyJ[a-zA-Z0-9_-]*\.eyJ[a-zA-Z0-9_-]*\.[a-zA-Z0-9_-]*`),
		strategy: strategyFull,
	},
	{
		name:     "webhook_url",
		regex:    regexp.MustCompile(`(?i)https://hooks\.[^\s/]+/[^\s"']+`),
		strategy: strategyFull,
	},
	{
		name:     "database_dsn",
		regex:    regexp.MustCompile(`(?i)\b(?:postgres(?:ql)?|mysql|mongodb(?:\+srv)?|redis|amqps?)://[^\s"']+`),
		strategy: strategyFull,
	},
	{
		name:     "url_credentials",
		regex:    regexp.MustCompile(`https?://[^:/\s]+:[^@\s]+@[^\s"']+`),
		strategy: strategyFull,
	},
	{
		name:     "api_key",
		regex:    regexp.MustCompile(`(?i)(?:api[_-]?key|apikey|token|secret|password|passwd|pwd)\s*[=:]+\s*['"]?[a-zA-Z0-9._-]{8,}['"]?`),
		strategy: strategyFull,
	},
	{
		name:     "generic_secret",
		regex:    regexp.MustCompile(`(?i)(?:secret|token|key|password|passwd|pwd|auth|credential|cred)\s*[=:]+\s*['"]?[^\s'"\[\]]{8,}['"]?`),
		strategy: strategyFull,
	},
	{
		name:     "docker_auth",
		regex:    regexp.MustCompile(`(?i)docker\s+login.*?-p\s+[^\s]+`),
		strategy: strategyFull,
	},
	{
		name:     "credit_card",
		regex:    regexp.MustCompile(`\b(?:4[0-9]{12}(?:[0-9]{3})?|5[1-5][0-9]{14}|3[47][0-9]{13}|6(?:011|5[0-9]{2})[0-9]{12})\b`),
		strategy: strategyFull,
	},
	{
		// The local-part class includes '*' so already-masked addresses
		// match whole and re-redact to themselves.
		name:     "email",
		regex:    regexp.MustCompile(`\b[a-zA-Z0-9._%+*-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}\b`),
		strategy: strategyEmail,
	},
	{
		name:     "ipv4",
		regex:    regexp.MustCompile(`\b(?:(?:25[0-5]|2[0-4][0-9]|[01]?[0-9][0-9]?)\.){3}(?:25[0-5]|2[0-4][0-9]|[01]?[0-9][0-9]?)\b`),
		strategy: strategyIPv4,
	},
	{
		name:     "ipv6",
		regex:    regexp.MustCompile(`\b(?:[0-9a-fA-F]{1,4}:){3,7}[0-9a-fA-F]{1,4}\b`),
		strategy: strategyIPv6,
	},
	{
		name:     "uuid",
		regex:    regexp.MustCompile(`(?i)\b[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}\b`),
		strategy: strategyUUID,
	},
	{
		name:     "base64",
		regex:    regexp.MustCompile(`\b[A-Za-z0-9+/]{16,}={0,2}`),
		strategy: strategyBase64,
	},
}

// filePathPatterns match path segments that embed a username; only the
// captured username segment is replaced with [USER].
var filePathPatterns = []*regexp.Regexp{
	regexp.MustCompile(`/home/([^/\s]+)`),
	regexp.MustCompile(`/Users/([^/\s]+)`),
	regexp.MustCompile(`(?i)C:\\Users\\([^\\\s]+)`),
}

// urlPatterns mask credential values carried in URLs while preserving the
// surrounding query/path structure.
var urlPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)([?&](?:token|key|auth|secret|password)=)[^&\s]+`),
	regexp.MustCompile(`(?i)/(tokens?|keys?|secrets?)/([^/\s]+)`),
}

// sensitiveKeywords force full value redaction when they appear in a map
// key, regardless of the value's content.
var sensitiveKeywords = []string{
	"secret", "token", "password", "passwd", "pwd",
	"auth", "credential", "cred", "private", "priv",
	"bearer", "cert", "webhook", "dsn",
	"apikey", "api_key", "access_key",
}
