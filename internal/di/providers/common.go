package providers

import "time"

const (
	// shutdownTimeout is the maximum time to wait for graceful shutdown of services.
	shutdownTimeout = 30 * time.Second

	// pingTimeout bounds the startup connectivity check against the database.
	pingTimeout = 5 * time.Second
)
