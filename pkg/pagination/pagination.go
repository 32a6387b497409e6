// Copyright (c) 2026 Inkpress. All rights reserved.

// Package pagination provides shared types and helpers for API list endpoints.
//
// # Overview
//
// It standardizes how page-based navigation is requested via query parameters
// and how a page of results plus its metadata is delivered as a uniform
// response envelope.
package pagination

import (
	"net/http"
	"strconv"
)

const (
	// DefaultSize is the number of items per page if not specified.
	DefaultSize = 10
	// MaxSize is the upper bound for items per page to prevent system abuse.
	MaxSize = 100
	// DefaultPage is the starting page (0-indexed).
	DefaultPage = 0
)

// Params holds the parsed page and size from a request's query string.
//
// Pages are zero-based: page 0 is the first page.
type Params struct {
	Page int
	Size int
}

// Offset returns the SQL OFFSET value derived from [Page] and [Size].
func (p Params) Offset() int {
	if p.Page <= 0 {
		return 0
	}
	return p.Page * p.Size
}

// Response is the uniform envelope wrapping one page of results.
type Response[T any] struct {
	Content       []T  `json:"content"`
	PageNo        int  `json:"pageNo"`
	PageSize      int  `json:"pageSize"`
	TotalElements int  `json:"totalElements"`
	TotalPages    int  `json:"totalPages"`
	First         bool `json:"first"`
	Last          bool `json:"last"`
	Empty         bool `json:"empty"`
}

// NewResponse assembles the envelope for one page of results.
//
// # Invariants
//
//   - TotalPages == ceil(total/size), 0 when total == 0.
//   - First == (page == 0).
//   - Last is true on the final page and for empty result sets.
func NewResponse[T any](content []T, page, size, total int) Response[T] {
	if content == nil {
		content = []T{}
	}

	totalPages := 0
	if size > 0 {
		totalPages = (total + size - 1) / size
	}

	return Response[T]{
		Content:       content,
		PageNo:        page,
		PageSize:      size,
		TotalElements: total,
		TotalPages:    totalPages,
		First:         page == 0,
		Last:          page >= totalPages-1,
		Empty:         len(content) == 0,
	}
}

// Normalize clamps raw page and size values the same way [FromRequest]
// does, for callers that receive them outside the query string.
func Normalize(page, size int) Params {
	if page < 0 {
		page = DefaultPage
	}
	if size < 1 || size > MaxSize {
		size = DefaultSize
	}
	return Params{Page: page, Size: size}
}

// FromRequest parses "page" and "size" query parameters from an HTTP request.
//
// # Clamping
//
// Invalid, negative, or excessive values are automatically clamped to
// [DefaultPage], [DefaultSize], or [MaxSize].
func FromRequest(r *http.Request) Params {
	page := parseIntParam(r, "page", DefaultPage)
	size := parseIntParam(r, "size", DefaultSize)

	if page < 0 {
		page = DefaultPage
	}

	if size < 1 || size > MaxSize {
		size = DefaultSize
	}

	return Params{Page: page, Size: size}
}

// parseIntParam parses a single integer query parameter with a fallback default.
func parseIntParam(r *http.Request, key string, defaultVal int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return defaultVal
	}

	n, err := strconv.Atoi(raw)
	if err != nil {
		return defaultVal
	}

	return n
}
