// Package middleware provides HTTP middleware for the SwiftLabel API.
//
// Middleware stack includes:
//   - CORS: localhost-only origins for the loopback-bound tool
//   - RateLimit: per-client token bucket rate limiting
//
// Example Usage:
//
//	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
//	router.Use(middleware.RateLimit(middleware.DefaultRateLimitConfig()))
package middleware
