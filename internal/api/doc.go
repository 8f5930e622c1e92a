// Package api serves recently viewed histories over HTTP.
//
// Every request passes through the session cookie middleware and the optional
// JWT middleware, then gets its own recent.Tracker bound to the session and,
// when a bearer token identifies a viewer, to that viewer's durable history.
//
// Routes:
//
//	POST   /api/views/{type}/{id}    record a view of a catalog item
//	GET    /api/views/{type}?limit=N resolved items, most recent first
//	GET    /api/views                every key list in the session
//	DELETE /api/views/{type}         forget one type
//	DELETE /api/views                forget everything
//	POST   /api/session/merge        merge the viewer's history after login
//	GET    /health                   liveness
package api
