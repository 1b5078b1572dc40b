// Package mongo connects MongoDB clients with the v2 driver, retrying until
// the deployment answers a ping, and exposes a readiness check.
package mongo
