package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Learner Records API",
        "description": "Learner, enrollment and application status records",
        "version": "0.1.0"
    },
    "basePath": "/",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Learners", "description": "Learner registration, lookup and update"}
    ],
    "paths": {
        "/health": {
            "get": {
                "summary": "Health check",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/ready": {
            "get": {
                "summary": "Readiness check",
                "responses": {
                    "200": {"description": "Ready"},
                    "503": {"description": "Database unavailable"}
                }
            }
        },
        "/exception": {
            "get": {
                "summary": "Retired endpoint",
                "responses": {
                    "400": {"description": "Endpoint retired", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/learners": {
            "get": {
                "tags": ["Learners"],
                "summary": "List learner details",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/LearnerDetailListEnvelope"}}
                }
            },
            "post": {
                "tags": ["Learners"],
                "summary": "Register learner with enrollments",
                "description": "Each enrollment runs for one year from registration and receives a provisional application status.",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/LearnerDetail"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/LearnerDetailEnvelope"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "put": {
                "tags": ["Learners"],
                "summary": "Update learner, enrollments and statuses",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/LearnerDetail"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/learners/{id}": {
            "get": {
                "tags": ["Learners"],
                "summary": "Get learner detail",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/LearnerDetailEnvelope"}},
                    "400": {"description": "Non-numeric id", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/learners/search": {
            "post": {
                "tags": ["Learners"],
                "summary": "Search learner details by condition",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/LearnerSearchCondition"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/LearnerDetailListEnvelope"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "No learner matched", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/learners/export": {
            "get": {
                "tags": ["Learners"],
                "summary": "Export learner roster",
                "produces": ["text/csv", "application/pdf"],
                "parameters": [
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf"]}
                ],
                "responses": {
                    "200": {"description": "Roster file", "schema": {"type": "file"}},
                    "400": {"description": "Unsupported format", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "Learner": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "name": {"type": "string"},
                "kana_name": {"type": "string"},
                "nickname": {"type": "string"},
                "email": {"type": "string", "format": "email"},
                "address": {"type": "string"},
                "age": {"type": "integer"},
                "gender": {"type": "string"},
                "remark": {"type": "string"},
                "is_deleted": {"type": "boolean"}
            },
            "required": ["name", "kana_name", "nickname", "email", "address", "gender"]
        },
        "Enrollment": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "learner_id": {"type": "string"},
                "course_name": {"type": "string"},
                "course_start_at": {"type": "string", "format": "date-time"},
                "course_end_at": {"type": "string", "format": "date-time"}
            },
            "required": ["course_name"]
        },
        "ApplicationStatus": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "enrollment_id": {"type": "string"},
                "status": {"type": "string", "enum": ["provisional", "confirmed", "in_progress", "completed"]}
            },
            "required": ["status"]
        },
        "LearnerDetail": {
            "type": "object",
            "properties": {
                "learner": {"$ref": "#/definitions/Learner"},
                "enrollments": {"type": "array", "items": {"$ref": "#/definitions/Enrollment"}},
                "statuses": {"type": "array", "items": {"$ref": "#/definitions/ApplicationStatus"}}
            }
        },
        "LearnerSearchCondition": {
            "type": "object",
            "properties": {
                "name": {"type": "string"},
                "kana_name": {"type": "string"},
                "nickname": {"type": "string"},
                "email": {"type": "string"},
                "address": {"type": "string"},
                "min_age": {"type": "integer"},
                "max_age": {"type": "integer"},
                "gender": {"type": "string"},
                "remark": {"type": "string"}
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
        },
        "LearnerDetailEnvelope": {
            "type": "object",
            "properties": {
                "data": {"$ref": "#/definitions/LearnerDetail"}
            }
        },
        "LearnerDetailListEnvelope": {
            "type": "object",
            "properties": {
                "data": {"type": "array", "items": {"$ref": "#/definitions/LearnerDetail"}}
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
