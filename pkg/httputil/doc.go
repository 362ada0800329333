// Package httputil provides HTTP utilities for standardized request/response handling.
//
// # Response Helpers
//
//	httputil.WriteJSON(w, http.StatusOK, resp)
//	httputil.WriteJSONBytes(w, http.StatusOK, cached)
//	httputil.WriteBadRequest(w, "invalid limit")
//	httputil.WriteInternalErrorWithRequestID(w, requestID)
//
// # Request Parsing
//
//	limit, ok := httputil.ParseQueryIntOrError(w, r, "limit", 0)
//	if !ok {
//		return // 400 already written
//	}
//	text := httputil.ParseQueryString(r, "text", "")
//
// # Middleware
//
//	handler := httputil.Chain(
//		httputil.RequestIDMiddleware(logger),
//		httputil.LoggingMiddleware,
//		httputil.RecoveryMiddleware,
//	)(router)
//
// RequestIDMiddleware must run first: the logging and recovery middleware
// read the request-scoped logger it stores in the context.
package httputil
