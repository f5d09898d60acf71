package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Elective Portal API",
        "description": "Elective catalog and selection admission service",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "tags": [
        {"name": "Authentication", "description": "Accounts and sessions"},
        {"name": "Electives", "description": "Elective catalog"},
        {"name": "Selections", "description": "Elective selection and lifecycle"},
        {"name": "Students", "description": "Student directory"},
        {"name": "Tracks", "description": "Tracks and category limits"},
        {"name": "Exports", "description": "Roster exports"},
        {"name": "Notifications", "description": "Email broadcasts"},
        {"name": "Maintenance", "description": "Counter reconciliation and stats"}
    ],
    "paths": {
        "/auth/register": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Register a student account",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RegisterRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Email or roll number taken", "schema": {"$ref": "#/definitions/ErrorEnvelope"}}
                }
            }
        },
        "/auth/login": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Authenticate user",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Invalid credentials", "schema": {"$ref": "#/definitions/ErrorEnvelope"}}
                }
            }
        },
        "/auth/refresh": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Refresh access token",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/auth/logout": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Logout current session",
                "security": [{"BearerAuth": []}],
                "responses": {"204": {"description": "No Content"}}
            }
        },
        "/auth/me": {
            "get": {
                "tags": ["Authentication"],
                "summary": "Get current user",
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/auth/password": {
            "put": {
                "tags": ["Authentication"],
                "summary": "Change password",
                "security": [{"BearerAuth": []}],
                "responses": {"204": {"description": "No Content"}}
            }
        },
        "/electives": {
            "get": {
                "tags": ["Electives"],
                "summary": "List electives",
                "parameters": [
                    {"name": "department", "in": "query", "type": "string"},
                    {"name": "semester", "in": "query", "type": "integer"},
                    {"name": "category", "in": "query", "type": "string"},
                    {"name": "track", "in": "query", "type": "string"},
                    {"name": "active", "in": "query", "type": "boolean"},
                    {"name": "search", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "page_size", "in": "query", "type": "integer"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            },
            "post": {
                "tags": ["Electives"],
                "summary": "Create elective",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateElectiveRequest"}}
                ],
                "responses": {"201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/electives/{id}": {
            "get": {
                "tags": ["Electives"],
                "summary": "Get elective detail",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/ErrorEnvelope"}}
                }
            },
            "put": {
                "tags": ["Electives"],
                "summary": "Update elective",
                "security": [{"BearerAuth": []}],
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            },
            "delete": {
                "tags": ["Electives"],
                "summary": "Deactivate elective",
                "security": [{"BearerAuth": []}],
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"204": {"description": "No Content"}}
            }
        },
        "/electives/{id}/select": {
            "post": {
                "tags": ["Selections"],
                "summary": "Select an elective",
                "description": "Also served at /electives/select/{id}. Students act for themselves; admins name the student.",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SelectElectiveRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/SelectionEnvelope"}},
                    "400": {"description": "Rejected by an admission rule", "schema": {"$ref": "#/definitions/ErrorEnvelope"}},
                    "403": {"description": "Caller may not act for the student", "schema": {"$ref": "#/definitions/ErrorEnvelope"}},
                    "404": {"description": "Student or elective missing, or elective inactive", "schema": {"$ref": "#/definitions/ErrorEnvelope"}},
                    "429": {"description": "Too many requests", "schema": {"$ref": "#/definitions/ErrorEnvelope"}}
                }
            }
        },
        "/selections": {
            "get": {
                "tags": ["Selections"],
                "summary": "List selections",
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/selections/me": {
            "get": {
                "tags": ["Selections"],
                "summary": "List my selections",
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/selections/{id}": {
            "delete": {
                "tags": ["Selections"],
                "summary": "Drop a selection",
                "security": [{"BearerAuth": []}],
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/selections/{id}/status": {
            "patch": {
                "tags": ["Selections"],
                "summary": "Change selection status",
                "security": [{"BearerAuth": []}],
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Transition not allowed", "schema": {"$ref": "#/definitions/ErrorEnvelope"}}
                }
            }
        },
        "/selections/export": {
            "post": {
                "tags": ["Exports"],
                "summary": "Export an elective roster",
                "security": [{"BearerAuth": []}],
                "responses": {"201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/selections/exports/download": {
            "get": {
                "tags": ["Exports"],
                "summary": "Download an exported roster",
                "parameters": [{"name": "token", "in": "query", "required": true, "type": "string"}],
                "responses": {
                    "200": {"description": "File"},
                    "403": {"description": "Link expired", "schema": {"$ref": "#/definitions/ErrorEnvelope"}}
                }
            }
        },
        "/students": {
            "get": {
                "tags": ["Students"],
                "summary": "List students",
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/students/me": {
            "get": {
                "tags": ["Students"],
                "summary": "Get my student profile",
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/tracks": {
            "get": {"tags": ["Tracks"], "summary": "List tracks", "responses": {"200": {"description": "OK"}}},
            "post": {"tags": ["Tracks"], "summary": "Create track", "security": [{"BearerAuth": []}], "responses": {"201": {"description": "Created"}}}
        },
        "/category-limits": {
            "get": {"tags": ["Tracks"], "summary": "List category limits", "responses": {"200": {"description": "OK"}}},
            "put": {"tags": ["Tracks"], "summary": "Set a category limit", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "OK"}}}
        },
        "/notifications": {
            "post": {"tags": ["Notifications"], "summary": "Email students", "security": [{"BearerAuth": []}], "responses": {"202": {"description": "Accepted"}}}
        },
        "/maintenance/reconcile": {
            "post": {"tags": ["Maintenance"], "summary": "Reconcile enrolment counters", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "OK"}}}
        },
        "/maintenance/stats": {
            "get": {"tags": ["Maintenance"], "summary": "Process statistics", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "OK"}}}
        }
    },
    "definitions": {
        "LoginRequest": {
            "type": "object",
            "required": ["email", "password"],
            "properties": {
                "email": {"type": "string"},
                "password": {"type": "string"}
            }
        },
        "RegisterRequest": {
            "type": "object",
            "required": ["email", "password", "full_name", "roll_number", "department", "semester"],
            "properties": {
                "email": {"type": "string"},
                "password": {"type": "string"},
                "full_name": {"type": "string"},
                "roll_number": {"type": "string"},
                "department": {"type": "string"},
                "semester": {"type": "integer"},
                "section": {"type": "string"}
            }
        },
        "CreateElectiveRequest": {
            "type": "object",
            "required": ["name", "department", "semester", "categories"],
            "properties": {
                "name": {"type": "string"},
                "code": {"type": "string"},
                "description": {"type": "string"},
                "department": {"type": "string"},
                "semester": {"type": "integer"},
                "categories": {"type": "array", "items": {"type": "string"}},
                "track": {"type": "string"},
                "credits": {"type": "integer"},
                "selection_deadline": {"type": "string", "format": "date-time"},
                "max_enrollment": {"type": "integer"},
                "prerequisites": {"type": "array", "items": {"type": "string"}}
            }
        },
        "SelectElectiveRequest": {
            "type": "object",
            "required": ["semester"],
            "properties": {
                "studentId": {"type": "string"},
                "semester": {"type": "integer"}
            }
        },
        "Selection": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "student_id": {"type": "string"},
                "elective_id": {"type": "string"},
                "semester": {"type": "integer"},
                "categories": {"type": "array", "items": {"type": "string"}},
                "track": {"type": "string"},
                "status": {"type": "string", "enum": ["selected", "confirmed", "dropped", "completed"]},
                "selected_at": {"type": "string", "format": "date-time"}
            }
        },
        "SelectionEnvelope": {
            "type": "object",
            "properties": {
                "success": {"type": "boolean"},
                "selection": {"$ref": "#/definitions/Selection"}
            }
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total_count": {"type": "integer"}
            }
        },
        "ErrorEnvelope": {
            "type": "object",
            "properties": {
                "success": {"type": "boolean"},
                "error": {"type": "string"},
                "code": {"type": "string"},
                "details": {"type": "object"}
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "success": {"type": "boolean"},
                "data": {"type": "object"},
                "pagination": {"$ref": "#/definitions/Pagination"},
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
