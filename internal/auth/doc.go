// Sentinel - Behavioral Login Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sentinel

/*
Package auth provides bearer-token authentication for the Sentinel API.

Two modes are supported, selected by AUTH_MODE:

  - jwt (default): every /api/v1 request except health checks must carry
    "Authorization: Bearer <token>" signed with HS256 using JWT_SECRET.
    The token subject is the caller's user id.
  - none: authentication is disabled. Rejected by config validation in
    production.

Callers holding the "service" or "admin" role may act on any user (the
upstream backend submits check-log requests on behalf of its users). Any
other caller may only read or modify data belonging to its own subject.

Usage:

	jwtManager, err := auth.NewJWTManager(&cfg.Security)
	if err != nil {
	    return err
	}
	mw := auth.NewMiddleware(jwtManager, cfg.Security.AuthMode)
	r.With(mw.Authenticate).Post("/check-log", h.CheckLog)
*/
package auth
