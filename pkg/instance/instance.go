// Package instance names the running process in logs and lock owners.
package instance

import "os"

const envInstanceID = "STOREFRONT_INSTANCE_ID"

// ID returns STOREFRONT_INSTANCE_ID, else the hostname, else "local".
func ID() string {
	if id := os.Getenv(envInstanceID); id != "" {
		return id
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "local"
}
