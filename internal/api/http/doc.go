/*
Package http provides the REST API handlers.

Command handlers (label, delete, undo, commit) delegate to the session
engine, record metrics, and broadcast domain events to live clients. Query
handlers (session, stats, images, preview, diff) are read-only. Outcome
codes from the engine map to HTTP statuses: NOT_FOUND is 404, every other
command failure is 400.
*/
package http
