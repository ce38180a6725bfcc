// Package instance identifies which replica of a worker process is
// running, so logs and locks can be traced back to a single pod.
package instance

import "github.com/vaulted-markets/vaulted-backend/pkg/env"

// GetID returns the worker instance identifier. VAULTED_WORKER_ID wins,
// then the plain WORKER_ID some schedulers inject.
func GetID() string {
	return env.Get("VAULTED_WORKER_ID", env.Get("WORKER_ID", "vlt-worker-0"))
}
