package httpapi

import (
	"net/http"

	"github.com/Guilhem-Bonnet/Stepik-Downloader/internal/httpjson"
)

// handleOpenAPI décrit les routes de l'API de statut.
func (s *Server) handleOpenAPI(w http.ResponseWriter, r *http.Request) {
	jsonOK := func(schemaRef string) map[string]any {
		return map[string]any{
			"description": "OK",
			"content": map[string]any{
				"application/json": map[string]any{
					"schema": map[string]any{"$ref": schemaRef},
				},
			},
		}
	}

	jsonErr := map[string]any{
		"description": "Error",
		"content": map[string]any{
			"application/json": map[string]any{
				"schema": map[string]any{"$ref": "#/components/schemas/Error"},
			},
		},
	}

	spec := map[string]any{
		"openapi": "3.0.3",
		"info": map[string]any{
			"title":   "stepik-dl status API",
			"version": "v1",
		},
		"components": map[string]any{
			"schemas": map[string]any{
				"Error": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"error": map[string]any{"type": "string"},
					},
					"required": []any{"error"},
				},
				"Settings": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"maxConcurrentDownloads": map[string]any{"type": "integer", "minimum": 1},
					},
					"additionalProperties": false,
				},
				"TaskProgress": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"id":          map[string]any{"type": "string"},
						"name":        map[string]any{"type": "string"},
						"state":       map[string]any{"type": "string", "enum": []any{"pending", "in-progress", "done", "failed"}},
						"bytes":       map[string]any{"type": "integer"},
						"total":       map[string]any{"type": "integer"},
						"remainingNs": map[string]any{"type": "integer"},
						"skipped":     map[string]any{"type": "boolean"},
						"error":       map[string]any{"type": "string"},
						"updatedAt":   map[string]any{"type": "string", "format": "date-time"},
					},
					"required": []any{"id", "name", "state", "bytes", "total", "updatedAt"},
				},
				"Progress": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"progress": map[string]any{
							"type": "object",
							"properties": map[string]any{
								"tasks":      map[string]any{"type": "array", "items": map[string]any{"$ref": "#/components/schemas/TaskProgress"}},
								"active":     map[string]any{"type": "integer"},
								"done":       map[string]any{"type": "integer"},
								"skipped":    map[string]any{"type": "integer"},
								"failed":     map[string]any{"type": "integer"},
								"bytes":      map[string]any{"type": "integer"},
								"capturedAt": map[string]any{"type": "string", "format": "date-time"},
							},
						},
						"limiter": map[string]any{
							"type": "object",
							"properties": map[string]any{
								"limit":    map[string]any{"type": "integer"},
								"inFlight": map[string]any{"type": "integer"},
							},
						},
					},
				},
			},
		},
		"paths": map[string]any{
			"/api/v1/health": map[string]any{
				"get": map[string]any{"responses": map[string]any{"200": map[string]any{"description": "OK"}}},
			},
			"/api/v1/version": map[string]any{
				"get": map[string]any{"responses": map[string]any{"200": map[string]any{"description": "OK"}}},
			},
			"/api/v1/openapi.json": map[string]any{
				"get": map[string]any{"responses": map[string]any{"200": map[string]any{"description": "OK"}}},
			},
			"/api/v1/events": map[string]any{
				"get": map[string]any{"responses": map[string]any{"200": map[string]any{
					"description": "SSE: download.started|progress|done|failed, week.started|completed|failed",
				}}},
			},
			"/api/v1/progress": map[string]any{
				"get": map[string]any{"responses": map[string]any{"200": jsonOK("#/components/schemas/Progress")}},
			},
			"/api/v1/settings": map[string]any{
				"get": map[string]any{
					"responses": map[string]any{
						"200": jsonOK("#/components/schemas/Settings"),
						"500": jsonErr,
					},
				},
				"put": map[string]any{
					"requestBody": map[string]any{
						"required": true,
						"content": map[string]any{
							"application/json": map[string]any{
								"schema": map[string]any{"$ref": "#/components/schemas/Settings"},
							},
						},
					},
					"responses": map[string]any{
						"200": jsonOK("#/components/schemas/Settings"),
						"400": jsonErr,
						"500": jsonErr,
					},
				},
			},
		},
	}

	httpjson.Write(w, http.StatusOK, spec)
}
