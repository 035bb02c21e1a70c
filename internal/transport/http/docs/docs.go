// Package docs registers the OpenAPI description served at /openapi.json.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "paths": {
        "/login": {
            "post": {
                "tags": ["Auth"],
                "summary": "Log in",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [
                    {"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/LoginResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/ErrorResponse"}}
                }
            }
        },
        "/stats": {
            "get": {
                "tags": ["Telemetry"],
                "summary": "Hub statistics",
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/Stats"}}
                }
            }
        },
        "/data": {
            "get": {
                "tags": ["Telemetry"],
                "summary": "Recent samples",
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "parameters": [
                    {"in": "query", "name": "type", "type": "string", "enum": ["acceleration", "tension"]},
                    {"in": "query", "name": "limit", "type": "integer", "default": 100}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/History"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/ErrorResponse"}}
                }
            }
        },
        "/health": {
            "get": {
                "tags": ["System"],
                "summary": "Health check",
                "produces": ["application/json"],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/APIResponse"}}
                }
            }
        },
        "/events": {
            "get": {
                "tags": ["Events"],
                "summary": "Device audit trail",
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "parameters": [
                    {"in": "query", "name": "type", "type": "string"},
                    {"in": "query", "name": "limit", "type": "integer", "default": 50}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/APIResponse"}}
                }
            }
        }
    },
    "definitions": {
        "LoginRequest": {
            "type": "object",
            "required": ["username", "password"],
            "properties": {
                "username": {"type": "string"},
                "password": {"type": "string"}
            }
        },
        "Identity": {
            "type": "object",
            "properties": {
                "id": {"type": "integer"},
                "username": {"type": "string"},
                "role": {"type": "string"}
            }
        },
        "LoginResponse": {
            "type": "object",
            "properties": {
                "token": {"type": "string"},
                "expiresAt": {"type": "integer"},
                "user": {"$ref": "#/definitions/Identity"}
            }
        },
        "Sample": {
            "type": "object",
            "properties": {
                "time": {"type": "number"},
                "value": {"type": "number"},
                "kind": {"type": "string"},
                "deviceId": {"type": "string"},
                "username": {"type": "string"},
                "timestamp": {"type": "string", "format": "date-time"}
            }
        },
        "DeviceStats": {
            "type": "object",
            "properties": {
                "deviceId": {"type": "string"},
                "username": {"type": "string"},
                "dataCount": {"type": "integer"},
                "lastSeen": {"type": "string", "format": "date-time"},
                "connected": {"type": "boolean"}
            }
        },
        "Stats": {
            "type": "object",
            "properties": {
                "connectedDevices": {"type": "integer"},
                "totalAccelerationPoints": {"type": "integer"},
                "totalTensionPoints": {"type": "integer"},
                "lastUpdate": {"type": "integer", "x-nullable": true},
                "devices": {"type": "array", "items": {"$ref": "#/definitions/DeviceStats"}}
            }
        },
        "History": {
            "type": "object",
            "properties": {
                "data": {"type": "object"},
                "connectedDevices": {"type": "integer"},
                "lastUpdate": {"type": "integer", "x-nullable": true}
            }
        },
        "ErrorResponse": {
            "type": "object",
            "properties": {
                "error": {"type": "string"}
            }
        },
        "APIResponse": {
            "type": "object",
            "properties": {
                "success": {"type": "boolean"},
                "data": {"type": "object"},
                "message": {"type": "string"},
                "code": {"type": "integer"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api",
	Schemes:          []string{},
	Title:            "Tensosense API",
	Description:      "Login, polled statistics and recent samples of the Tensosense telemetry hub.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
