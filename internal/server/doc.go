// Package server implements the HTTP layer: the dashboard page, the JSON
// API backing it, the viewer WebSocket endpoint, and observability routes.
package server
