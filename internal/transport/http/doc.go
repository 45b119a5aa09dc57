// Package http implements the HTTP handlers for the engine atlas web
// service. It is a thin layer between transport and the service layer:
// handlers parse and validate requests, delegate to services, and
// translate results and errors back into HTTP.
//
// Each handler owns one resource and exposes a Routes() chi.Router
// that the application mounts under /api. Query parameters decode into
// the request structs from pkg/contracts/api/v1 and pass through the
// shared validation middleware before any service call.
//
// Errors render as RFC 7807 problem documents:
//
//	{
//	    "type": "/errors/dataset/not-loaded",
//	    "title": "Dataset Not Loaded",
//	    "status": 503,
//	    "detail": "The dataset has not been loaded yet. Trigger a reload and try again.",
//	    "instance": "/api/dataset/records",
//	    "trace_id": "7c62a9f4d0e83b15"
//	}
//
// Service errors map through errors.Is against the domain sentinels in
// internal/errors; anything unrecognized becomes a 500.
//
// Handlers are tested with httptest against stub services implementing
// the *ServiceInterface types declared alongside each handler.
package http
