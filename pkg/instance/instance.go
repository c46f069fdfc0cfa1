package instance

import "os"

// GetID identifies the running process in logs and lock ownership. It prefers
// BACKOFFICE_INSTANCE_ID, then the platform's DYNO, then the hostname.
func GetID() string {
	for _, key := range []string{"BACKOFFICE_INSTANCE_ID", "DYNO"} {
		if id := os.Getenv(key); id != "" {
			return id
		}
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "local"
}
