// Package server provides HTTP server setup and initialization.
//
// This package orchestrates all components:
//   - HTTP routing with Gin framework
//   - Middleware stack (CORS, rate limiting, metrics, recovery)
//   - WebSocket hub wiring
//   - Session engine event fan-out
//
// Server Lifecycle:
//  1. Load configuration from environment/flags
//  2. Initialize logger (production or development)
//  3. Initialize the session engine for the working directory
//  4. Setup HTTP routes and middleware
//  5. Start HTTP server
//  6. Graceful shutdown on signal
//
// Example Usage:
//
//	srv := server.New(cfg, engine, fs, logger)
//	if err := srv.Run(addr); err != nil {
//	    logger.Fatal("server failed", zap.Error(err))
//	}
package server
