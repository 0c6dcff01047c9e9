/*
Package monitoring provides Prometheus metrics collection.

# Overview

This package tracks HTTP request metrics, labeling command counters (labels,
deletions, undos, commits), catalog gauges, and WebSocket connection metrics.

# Usage

	// Create metrics collector
	metrics := monitoring.NewMetrics()

	// Add middleware to Gin router
	router.Use(monitoring.Middleware(metrics))

	// Record command metrics
	metrics.RecordLabel()
	metrics.RecordCommit(true, moves, deletes)

# Metrics Endpoint

Expose metrics via the standard Prometheus endpoint:

	import "github.com/prometheus/client_golang/prometheus/promhttp"
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
*/
package monitoring
