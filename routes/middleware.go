/*
 * Copyright 2025 Humaid Alqasimi
 * SPDX-License-Identifier: Apache-2.0
 */
package routes

import (
	"github.com/flamego/csrf"
	"github.com/flamego/flamego"
	"github.com/flamego/template"
)

// CSRFInjector exposes the CSRF token to templates as "csrf_token".
func CSRFInjector() flamego.Handler {
	return func(x csrf.CSRF, data template.Data) {
		data["csrf_token"] = x.Token()
	}
}

// FeatureInjector tells templates which optional collaborators are
// configured, so upload and AI controls can be hidden when they are not.
func FeatureInjector() flamego.Handler {
	return func(data template.Data) {
		data["ExtractionEnabled"] = extractionEnabledFn()
		data["AIEnabled"] = aiEnabledFn()
	}
}

// privateHeaders keep lab results out of shared caches, search indexes
// and other sites' frames.
var privateHeaders = map[string]string{
	"Cache-Control":          "no-store, max-age=0",
	"Pragma":                 "no-cache",
	"Referrer-Policy":        "no-referrer",
	"X-Content-Type-Options": "nosniff",
	"X-Frame-Options":        "DENY",
	"X-Robots-Tag":           "noindex, nofollow, noarchive, nosnippet",
}

// PrivateHeaders marks every response, including redirects and exports,
// as private health data.
func PrivateHeaders() flamego.Handler {
	return func(c flamego.Context) {
		header := c.ResponseWriter().Header()
		for key, value := range privateHeaders {
			header.Set(key, value)
		}

		c.Next()
	}
}
