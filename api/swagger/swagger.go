package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Uniflow Academic API",
        "description": "Academic periods of Google-authenticated students",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": ["http", "https"],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "security": [{"BearerAuth": []}],
    "tags": [
        {"name": "Periods", "description": "Academic periods owned by the authenticated student"}
    ],
    "paths": {
        "/periods": {
            "get": {
                "tags": ["Periods"],
                "summary": "List periods",
                "parameters": [
                    {"$ref": "#/parameters/typeFilter"},
                    {"$ref": "#/parameters/yearFilter"},
                    {"$ref": "#/parameters/activeFilter"},
                    {"name": "page", "in": "query", "type": "integer", "default": 1},
                    {"name": "limit", "in": "query", "type": "integer", "default": 10, "maximum": 100}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/PeriodListEnvelope"}},
                    "400": {"description": "Invalid filter", "schema": {"$ref": "#/definitions/ErrorEnvelope"}}
                }
            },
            "post": {
                "tags": ["Periods"],
                "summary": "Create period",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreatePeriodRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/PeriodEnvelope"}},
                    "400": {"description": "INVALID_PERIOD or INVALID_PERIOD_TYPE", "schema": {"$ref": "#/definitions/ErrorEnvelope"}}
                }
            }
        },
        "/periods/current": {
            "get": {
                "tags": ["Periods"],
                "summary": "Get the active period",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/PeriodEnvelope"}},
                    "404": {"description": "No active period", "schema": {"$ref": "#/definitions/ErrorEnvelope"}}
                }
            }
        },
        "/periods/stats": {
            "get": {
                "tags": ["Periods"],
                "summary": "Period statistics",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/StatisticsEnvelope"}}
                }
            }
        },
        "/periods/export": {
            "get": {
                "tags": ["Periods"],
                "summary": "Export periods",
                "produces": ["text/csv", "application/pdf"],
                "parameters": [
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf"], "default": "csv"},
                    {"$ref": "#/parameters/typeFilter"},
                    {"$ref": "#/parameters/yearFilter"},
                    {"$ref": "#/parameters/activeFilter"}
                ],
                "responses": {
                    "200": {"description": "File download", "schema": {"type": "file"}}
                }
            }
        },
        "/periods/{id}": {
            "get": {
                "tags": ["Periods"],
                "summary": "Get period",
                "parameters": [{"$ref": "#/parameters/periodID"}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/PeriodEnvelope"}},
                    "404": {"description": "PERIOD_NOT_FOUND", "schema": {"$ref": "#/definitions/ErrorEnvelope"}}
                }
            },
            "put": {
                "tags": ["Periods"],
                "summary": "Partially update period",
                "parameters": [
                    {"$ref": "#/parameters/periodID"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/UpdatePeriodRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/PeriodEnvelope"}},
                    "400": {"description": "INVALID_PERIOD", "schema": {"$ref": "#/definitions/ErrorEnvelope"}},
                    "404": {"description": "PERIOD_NOT_FOUND", "schema": {"$ref": "#/definitions/ErrorEnvelope"}}
                }
            },
            "delete": {
                "tags": ["Periods"],
                "summary": "Delete period",
                "parameters": [{"$ref": "#/parameters/periodID"}],
                "responses": {
                    "204": {"description": "Deleted"},
                    "404": {"description": "PERIOD_NOT_FOUND", "schema": {"$ref": "#/definitions/ErrorEnvelope"}},
                    "409": {"description": "PERIOD_HAS_DEPENDENTS", "schema": {"$ref": "#/definitions/ErrorEnvelope"}}
                }
            }
        },
        "/periods/{id}/activate": {
            "patch": {
                "tags": ["Periods"],
                "summary": "Activate period and deactivate the others",
                "parameters": [{"$ref": "#/parameters/periodID"}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/PeriodEnvelope"}},
                    "404": {"description": "PERIOD_NOT_FOUND", "schema": {"$ref": "#/definitions/ErrorEnvelope"}}
                }
            }
        }
    },
    "parameters": {
        "periodID": {"name": "id", "in": "path", "required": true, "type": "string"},
        "typeFilter": {"name": "type", "in": "query", "type": "string", "enum": ["first-semester", "second-semester", "summer", "special"]},
        "yearFilter": {"name": "year", "in": "query", "type": "integer"},
        "activeFilter": {"name": "isActive", "in": "query", "type": "boolean"}
    },
    "definitions": {
        "Period": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "name": {"type": "string", "maxLength": 255},
                "type": {"type": "string", "enum": ["first-semester", "second-semester", "summer", "special"]},
                "year": {"type": "integer", "minimum": 1900, "maximum": 2100},
                "startDate": {"type": "string", "format": "date"},
                "endDate": {"type": "string", "format": "date"},
                "studentId": {"type": "string"},
                "isActive": {"type": "boolean"},
                "createdAt": {"type": "string", "format": "date-time"},
                "updatedAt": {"type": "string", "format": "date-time"}
            }
        },
        "CreatePeriodRequest": {
            "type": "object",
            "required": ["name", "type", "year", "startDate", "endDate"],
            "properties": {
                "name": {"type": "string"},
                "type": {"type": "string"},
                "year": {"type": "integer"},
                "startDate": {"type": "string", "format": "date"},
                "endDate": {"type": "string", "format": "date"}
            }
        },
        "UpdatePeriodRequest": {
            "type": "object",
            "properties": {
                "name": {"type": "string"},
                "type": {"type": "string"},
                "year": {"type": "integer"},
                "startDate": {"type": "string", "format": "date"},
                "endDate": {"type": "string", "format": "date"}
            }
        },
        "PeriodStatistics": {
            "type": "object",
            "properties": {
                "total": {"type": "integer"},
                "active": {"type": "integer"},
                "current": {"type": "integer"},
                "upcoming": {"type": "integer"},
                "finished": {"type": "integer"},
                "byType": {"type": "object", "additionalProperties": {"type": "integer"}},
                "averageDuration": {"type": "number"}
            }
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "limit": {"type": "integer"},
                "total": {"type": "integer"},
                "totalPages": {"type": "integer"},
                "hasNext": {"type": "boolean"},
                "hasPrevious": {"type": "boolean"}
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
        "PeriodEnvelope": {
            "type": "object",
            "properties": {"data": {"$ref": "#/definitions/Period"}}
        },
        "PeriodListEnvelope": {
            "type": "object",
            "properties": {
                "data": {"type": "array", "items": {"$ref": "#/definitions/Period"}},
                "pagination": {"$ref": "#/definitions/Pagination"}
            }
        },
        "StatisticsEnvelope": {
            "type": "object",
            "properties": {"data": {"$ref": "#/definitions/PeriodStatistics"}}
        },
        "ErrorEnvelope": {
            "type": "object",
            "properties": {"error": {"$ref": "#/definitions/APIError"}}
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
