package otelgee

import "os"

// ServiceNameFromEnv resolves the service name: OTEL_SERVICE_NAME, then
// SERVICE_NAME, then "unknown". Empty values count as unset.
func ServiceNameFromEnv() string {
	for _, key := range []string{"OTEL_SERVICE_NAME", "SERVICE_NAME"} {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			return v
		}
	}
	return "unknown"
}
