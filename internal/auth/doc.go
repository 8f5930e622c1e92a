// Package auth identifies viewers on HTTP requests.
//
// Viewers authenticate with HS256 JWTs signed with the configured
// auth.jwt_secret. The "sub" claim is the viewer id that keys the durable
// recently viewed history.
//
// OptionalAuthMiddleware never rejects a request: a missing or bad token simply
// leaves the request anonymous, and the tracker falls back to session-only
// history. RequireViewer gates endpoints such as the login merge that only make
// sense for an identified viewer.
//
//	verifier, err := auth.NewJWTVerifier(secret)
//	token, err := verifier.Generate(viewerID, 24*time.Hour)
package auth
