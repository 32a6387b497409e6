// Copyright (c) 2026 Inkpress. All rights reserved.

// Package ctxkey defines the private key types used to store request-scoped
// values in a context.Context. Keeping the keys in a dedicated package avoids
// collisions between middleware and handlers.
package ctxkey

type contextKey string

const (
	// KeyRequestID carries the unique ID assigned to each incoming request.
	KeyRequestID contextKey = "request_id"

	// KeyUser carries the authenticated principal after token verification.
	KeyUser contextKey = "user"

	// KeyLogger carries the request-scoped structured logger.
	KeyLogger contextKey = "logger"
)
