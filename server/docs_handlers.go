package server

import (
	"encoding/json"
	"net/http"
)

// OpenAPIHandler serves the OpenAPI description of this service. Guarded like
// every other protected route.
func (s *Server) OpenAPIHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doc := map[string]any{
			"openapi": "3.0.3",
			"info": map[string]any{
				"title":   s.config.AppName,
				"version": "1",
			},
			"paths": map[string]any{
				RouteHome: map[string]any{
					"get": map[string]any{
						"tags":    []string{"pages"},
						"summary": "Home page with login state",
						"responses": map[string]any{
							"200": map[string]any{"description": "HTML page"},
						},
					},
				},
				RouteLogin: map[string]any{
					"get": map[string]any{
						"tags":    []string{"authentication"},
						"summary": "Redirect to the identity provider",
						"responses": map[string]any{
							"303": map[string]any{"description": "Redirect to provider"},
						},
					},
				},
				RouteCallback: map[string]any{
					"get": map[string]any{
						"tags":    []string{"authentication"},
						"summary": "OAuth callback, exchanges the authorization code",
						"responses": map[string]any{
							"303": map[string]any{"description": "Redirect to home on success"},
						},
					},
				},
				RouteLogout: map[string]any{
					"get": map[string]any{
						"tags":    []string{"authentication"},
						"summary": "Discard the session",
						"responses": map[string]any{
							"303": map[string]any{"description": "Redirect to home"},
						},
					},
				},
				RouteProtected: map[string]any{
					"get": map[string]any{
						"tags":    []string{"reports"},
						"summary": "Search Analytics report for the configured site",
						"parameters": []map[string]any{
							{"name": "start", "in": "query", "schema": map[string]any{"type": "string", "format": "date"}},
							{"name": "end", "in": "query", "schema": map[string]any{"type": "string", "format": "date"}},
							{"name": "dimension", "in": "query", "schema": map[string]any{"type": "string"}},
							{"name": "limit", "in": "query", "schema": map[string]any{"type": "integer"}},
						},
						"responses": map[string]any{
							"200": map[string]any{"description": "Report rows"},
							"401": map[string]any{"description": "Not authenticated"},
							"502": map[string]any{"description": "Upstream failure"},
						},
					},
				},
			},
		}

		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		_ = json.NewEncoder(w).Encode(doc)
	}
}

const docsPage = `<!DOCTYPE html>
<html>
<head>
<title>Documentation</title>
<link rel="stylesheet" href="https://cdn.jsdelivr.net/npm/swagger-ui-dist@5/swagger-ui.css">
</head>
<body>
<div id="swagger-ui"></div>
<script src="https://cdn.jsdelivr.net/npm/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
<script>
SwaggerUIBundle({url: '/openapi.json', dom_id: '#swagger-ui'});
</script>
</body>
</html>
`

// DocsHandler serves a minimal Swagger UI shell pointing at /openapi.json.
func (s *Server) DocsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(docsPage))
	}
}
