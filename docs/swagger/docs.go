// Package swagger registers the tap-agent API documentation with swag.
// Regenerate with: swag init -g cmd/tap-agent/server.go -o docs/swagger
package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/tap/status": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["Tap API"],
                "summary": "Get tap status",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/tapres.StatusResponse"}}}
            }
        },
        "/tap/session": {
            "post": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["Tap API"],
                "summary": "Start a tap session",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/tapres.StatusResponse"}},
                    "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/responses.ErrorResponse"}}
                }
            },
            "delete": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["Tap API"],
                "summary": "Stop the tap session",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/tapres.StatusResponse"}}}
            }
        },
        "/tap/reconnect": {
            "post": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["Tap API"],
                "summary": "Reconnect the tap session",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/tapres.StatusResponse"}}}
            }
        },
        "/tap/camera/toggle": {
            "post": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["Tap API"],
                "summary": "Flip the camera facing",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/tapres.StatusResponse"}}}
            }
        },
        "/tap/camera/permission": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["Tap API"],
                "summary": "Get camera permission prompt",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/tapres.PermissionResponse"}},
                    "501": {"description": "Not Implemented", "schema": {"$ref": "#/definitions/responses.ErrorResponse"}}
                }
            },
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Tap API"],
                "summary": "Answer camera permission prompt",
                "parameters": [{"name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/taprequests.PermissionAnswerRequest"}}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/tapres.PermissionResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/responses.ErrorResponse"}}
                }
            },
            "delete": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["Tap API"],
                "summary": "Revoke camera permission",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/tapres.PermissionResponse"}},
                    "501": {"description": "Not Implemented", "schema": {"$ref": "#/definitions/responses.ErrorResponse"}}
                }
            }
        },
        "/tap/scans": {
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Tap API"],
                "summary": "Submit decoded codes",
                "parameters": [{"name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/taprequests.SubmitScansRequest"}}],
                "responses": {
                    "202": {"description": "Accepted", "schema": {"$ref": "#/definitions/tapres.ScanResponse"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/responses.ErrorResponse"}}
                }
            }
        },
        "/tap/card": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["Tap API"],
                "summary": "Get selected card",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/tapres.SelectedCardResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/responses.ErrorResponse"}}
                }
            },
            "put": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Tap API"],
                "summary": "Select card",
                "parameters": [{"name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/taprequests.SelectCardRequest"}}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/tapres.SelectedCardResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/responses.ErrorResponse"}}
                }
            }
        },
        "/tap/history": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["Tap API"],
                "summary": "List tap attempts",
                "parameters": [
                    {"type": "string", "name": "card_id", "in": "query"},
                    {"type": "string", "name": "result", "in": "query"},
                    {"type": "integer", "name": "limit", "in": "query"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/tapres.HistoryResponse"}}}
            }
        },
        "/tap/history/{id}": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["Tap API"],
                "summary": "Get tap attempt",
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/tap.Attempt"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/responses.ErrorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/responses.ErrorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "responses.ErrorResponse": {
            "type": "object",
            "properties": {"error": {"$ref": "#/definitions/responses.ErrorDetail"}}
        },
        "responses.ErrorDetail": {
            "type": "object",
            "properties": {
                "message": {"type": "string"},
                "type": {"type": "string"},
                "code": {"type": "string"},
                "request_id": {"type": "string"}
            }
        },
        "tap.Attempt": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "generation": {"type": "integer"},
                "card_id": {"type": "string"},
                "room": {"type": "string"},
                "result": {"type": "string"},
                "reason": {"type": "string"},
                "detail": {"type": "string"},
                "started_at": {"type": "string"},
                "finished_at": {"type": "string"}
            }
        },
        "tapres.StatusResponse": {
            "type": "object",
            "properties": {
                "object": {"type": "string"},
                "state": {"type": "string"},
                "phase": {"type": "string"},
                "reason": {"type": "string"},
                "detail": {"type": "string"},
                "reconnecting": {"type": "boolean"},
                "connected": {"type": "boolean"},
                "scan_active": {"type": "boolean"},
                "room": {"type": "string"},
                "card_id": {"type": "string"},
                "facing": {"type": "string"},
                "generation": {"type": "integer"},
                "last_outcome": {"$ref": "#/definitions/tap.Attempt"},
                "scanner_active": {"type": "boolean"}
            }
        },
        "tapres.PermissionResponse": {
            "type": "object",
            "properties": {
                "object": {"type": "string"},
                "granted": {"type": "boolean"},
                "pending": {"type": "object", "properties": {"id": {"type": "string"}, "requested_at": {"type": "string"}}}
            }
        },
        "tapres.SelectedCardResponse": {
            "type": "object",
            "properties": {"object": {"type": "string"}, "card_id": {"type": "string"}}
        },
        "tapres.ScanResponse": {
            "type": "object",
            "properties": {
                "object": {"type": "string"},
                "forwarded": {"type": "integer"},
                "debounced": {"type": "integer"},
                "dropped": {"type": "integer"}
            }
        },
        "tapres.HistoryResponse": {
            "type": "object",
            "properties": {
                "object": {"type": "string"},
                "data": {"type": "array", "items": {"$ref": "#/definitions/tap.Attempt"}}
            }
        },
        "taprequests.SelectCardRequest": {
            "type": "object",
            "required": ["card_id"],
            "properties": {"card_id": {"type": "string"}}
        },
        "taprequests.PermissionAnswerRequest": {
            "type": "object",
            "required": ["granted"],
            "properties": {"granted": {"type": "boolean"}}
        },
        "taprequests.SubmitScansRequest": {
            "type": "object",
            "required": ["codes"],
            "properties": {
                "codes": {
                    "type": "array",
                    "items": {
                        "type": "object",
                        "properties": {
                            "payload": {"type": "string"},
                            "corners": {"type": "array", "items": {"type": "object", "properties": {"x": {"type": "number"}, "y": {"type": "number"}}}}
                        }
                    }
                }
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/v1",
	Schemes:          []string{},
	Title:            "Tap Agent API",
	Description:      "Drives the beep tap session: relay connection, camera permission, QR scans and tap outcomes.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
