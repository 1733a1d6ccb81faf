package types

// OverlaySnapshot (websocket, server -> client):
//   type: "OverlaySnapshot"
//   version: number           // monotonic; detect staleness
//   overlay:
//     deployments_by_tile: { [tileId]: { status: "ARMED"|"NONE", move_type, updated_at } }
//     active_by_target:    { [targetId]: [ { move_type, expires_at } ] }  // ordered by expiry
//     updated_at: timestamp
//
// The first message after subscribing is always the current snapshot;
// every later message is a full replacement, never a diff. Clients filter
// entries whose expires_at has passed, as defense in depth against a
// not-yet-reaped move.
//
// Error (websocket, server -> client):
//   type: "Error"
//   error: string
