// Package middleware contains HTTP middleware for the Fiber application.
//
// # Components
//
//   - Auth: API key validation. Health and metrics routes are left public.
//   - RayID: a request ID for every incoming request, stored in the context
//     and echoed in the response headers for tracing.
//
// Both are registered globally in the start command.
package middleware
