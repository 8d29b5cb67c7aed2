package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Family Calendar API",
        "description": "Shared family calendar with recurring events, digests and iCalendar feeds",
        "version": "1.0.0"
    },
    "basePath": "/api",
    "schemes": [
        "http",
        "https"
    ],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "tags": [
        {"name": "Auth", "description": "Joining a family and session tokens"},
        {"name": "Events", "description": "Stored events and expanded occurrences"},
        {"name": "Push", "description": "Web push subscriptions"},
        {"name": "Digests", "description": "Morning and evening agenda digests"},
        {"name": "Feeds", "description": "Signed iCalendar subscription links"}
    ],
    "paths": {
        "/auth/join-family": {
            "post": {
                "tags": ["Auth"],
                "summary": "Create or join a family",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/JoinFamilyRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation failed", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Unknown join code", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/me": {
            "get": {
                "tags": ["Auth"],
                "summary": "Current member and family roster",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Unauthorized"}
                }
            }
        },
        "/events": {
            "get": {
                "tags": ["Events"],
                "summary": "List occurrences in a date range",
                "description": "Without from/to the window defaults to yesterday through two weeks ahead.",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "from", "in": "query", "type": "string", "format": "date"},
                    {"name": "to", "in": "query", "type": "string", "format": "date"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Events"],
                "summary": "Create event",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateEventRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation failed", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/events/summary": {
            "get": {
                "tags": ["Events"],
                "summary": "One-line agenda summary",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "from", "in": "query", "type": "string", "format": "date"},
                    {"name": "to", "in": "query", "type": "string", "format": "date"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/events/export": {
            "get": {
                "tags": ["Events"],
                "summary": "Download the agenda as CSV or PDF",
                "security": [{"BearerAuth": []}],
                "produces": ["text/csv", "application/pdf"],
                "parameters": [
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf"]},
                    {"name": "from", "in": "query", "type": "string", "format": "date"},
                    {"name": "to", "in": "query", "type": "string", "format": "date"}
                ],
                "responses": {
                    "200": {"description": "File attachment"},
                    "400": {"description": "Unsupported format", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/events/{id}": {
            "get": {
                "tags": ["Events"],
                "summary": "Get stored event",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "put": {
                "tags": ["Events"],
                "summary": "Update event",
                "description": "Omitted fields are kept. A null repeat_rule clears the recurrence.",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/UpdateEventRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "delete": {
                "tags": ["Events"],
                "summary": "Delete event",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "No Content"},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/push/public-key": {
            "get": {
                "tags": ["Push"],
                "summary": "VAPID public key",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "503": {"description": "Push not configured"}
                }
            }
        },
        "/push/subscribe": {
            "post": {
                "tags": ["Push"],
                "summary": "Store the caller's push subscription",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SubscribeRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/digests/preview": {
            "get": {
                "tags": ["Digests"],
                "summary": "Preview today's digest for the caller's family",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "kind", "in": "query", "type": "string", "enum": ["morning", "evening"]}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/feeds": {
            "post": {
                "tags": ["Feeds"],
                "summary": "Issue a signed iCalendar subscription link",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/feeds/{token}": {
            "get": {
                "tags": ["Feeds"],
                "summary": "Render the family calendar as iCalendar",
                "produces": ["text/calendar"],
                "parameters": [
                    {"name": "token", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "iCalendar document"},
                    "401": {"description": "Invalid or expired link"}
                }
            }
        }
    },
    "definitions": {
        "JoinFamilyRequest": {
            "type": "object",
            "required": ["member_name"],
            "properties": {
                "join_code": {"type": "string"},
                "family_name": {"type": "string"},
                "member_name": {"type": "string"},
                "email": {"type": "string"},
                "color": {"type": "string"}
            }
        },
        "RepeatRule": {
            "type": "object",
            "required": ["type"],
            "properties": {
                "type": {"type": "string", "enum": ["none", "daily", "weekly", "monthly"]},
                "interval": {"type": "integer"},
                "by_weekday": {"type": "array", "items": {"type": "integer"}},
                "until": {"type": "string", "format": "date"}
            }
        },
        "CreateEventRequest": {
            "type": "object",
            "required": ["title", "date"],
            "properties": {
                "title": {"type": "string"},
                "date": {"type": "string", "format": "date"},
                "time": {"type": "string", "example": "09:30"},
                "description": {"type": "string"},
                "repeat_rule": {"$ref": "#/definitions/RepeatRule"},
                "all_day": {"type": "boolean"},
                "member_id": {"type": "string"},
                "location": {"type": "string"}
            }
        },
        "UpdateEventRequest": {
            "type": "object",
            "properties": {
                "title": {"type": "string"},
                "date": {"type": "string", "format": "date"},
                "time": {"type": "string"},
                "description": {"type": "string"},
                "repeat_rule": {"$ref": "#/definitions/RepeatRule"},
                "all_day": {"type": "boolean"},
                "member_id": {"type": "string"},
                "location": {"type": "string"}
            }
        },
        "SubscribeRequest": {
            "type": "object",
            "required": ["subscription"],
            "properties": {
                "subscription": {
                    "type": "object",
                    "properties": {
                        "endpoint": {"type": "string"},
                        "expirationTime": {"type": "integer"},
                        "keys": {
                            "type": "object",
                            "properties": {
                                "p256dh": {"type": "string"},
                                "auth": {"type": "string"}
                            }
                        }
                    }
                }
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"}
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {"type": "object"},
                "error": {"$ref": "#/definitions/APIError"},
                "meta": {"type": "object"}
            }
        }
    }
}`

type swaggerDoc struct{}

// ReadDoc returns the Swagger document.
func (s *swaggerDoc) ReadDoc() string {
	return docTemplate
}

func init() {
	swag.Register(swag.Name, &swaggerDoc{})
}
