/*
Package ws provides the WebSocket live-update channel.

A Hub tracks connected clients and broadcasts session events; the Handler
upgrades connections and dispatches typed inbound commands (label, delete,
undo, navigate, sync) to the session engine. Every state-changing command
triggers a state_update broadcast so all peers converge.
*/
package ws
