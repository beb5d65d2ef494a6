package audit

import (
	"strings"
	"unicode"
)

// ActionResource holds action and resource derived from a gRPC full method name.
type ActionResource struct {
	Action   string
	Resource string
}

var verbs = []string{"Create", "Get", "List", "Validate", "Invalidate", "Retry", "Update", "Delete", "Check", "Watch"}

// ParseFullMethod returns action and resource for a gRPC full method
// (e.g. /otprelay.v1.OTPService/CreateOTPRequest -> create, otp_request).
// The action is the method's leading verb in lower case; the resource is the rest in snake case.
// Methods without a known verb fall back to the service name as resource.
func ParseFullMethod(fullMethod string) ActionResource {
	slash := strings.LastIndex(fullMethod, "/")
	if slash < 0 {
		return ActionResource{Action: "unknown", Resource: "unknown"}
	}
	method := fullMethod[slash+1:]
	for _, v := range verbs {
		if rest, ok := strings.CutPrefix(method, v); ok && rest != "" {
			return ActionResource{Action: strings.ToLower(v), Resource: snakeCase(rest)}
		}
	}
	resource := "unknown"
	service := fullMethod[:slash]
	if dot := strings.LastIndex(service, "."); dot >= 0 {
		if s := strings.TrimSuffix(service[dot+1:], "Service"); s != "" {
			resource = snakeCase(s)
		}
	}
	return ActionResource{Action: strings.ToLower(method), Resource: resource}
}

// snakeCase converts CamelCase with acronyms (OTPRequest) to snake_case (otp_request).
func snakeCase(s string) string {
	rs := []rune(s)
	var b strings.Builder
	for i, r := range rs {
		if unicode.IsUpper(r) && i > 0 {
			prevLower := unicode.IsLower(rs[i-1])
			nextLower := i+1 < len(rs) && unicode.IsLower(rs[i+1])
			if prevLower || (unicode.IsUpper(rs[i-1]) && nextLower) {
				b.WriteByte('_')
			}
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}
