// Package timeouts defines shared timeout constants used across commands.
// Centralizing these values prevents drift between service boundaries and
// makes the durations discoverable.
package timeouts

import "time"

// GRPCDial caps the wait time when dialing a gRPC peer.
const GRPCDial = 2 * time.Second

// SettlementRequest caps the time allowed for a single settlement-layer call.
const SettlementRequest = 10 * time.Second

// Shutdown limits how long the arbiter waits for in-flight work during
// graceful shutdown.
const Shutdown = 5 * time.Second
