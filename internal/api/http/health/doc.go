// Package health exposes the daemon liveness and monitoring status over HTTP.
//
//	GET /healthz  200 when every dependency is up, 503 otherwise
//	GET /status   monitoring state, failure reason and fence count
package health
