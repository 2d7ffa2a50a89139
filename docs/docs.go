// Package docs регистрирует OpenAPI-описание API для swaggo/http-swagger.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "license": {
            "name": "MIT",
            "url": "https://opensource.org/licenses/MIT"
        },
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/bookings": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["Bookings"],
                "summary": "Список сессий",
                "parameters": [
                    {"type": "integer", "default": 50, "name": "limit", "in": "query"},
                    {"type": "integer", "default": 0, "name": "offset", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "Список сессий", "schema": {"$ref": "#/definitions/response.Response"}},
                    "400": {"description": "Некорректные параметры пагинации", "schema": {"$ref": "#/definitions/response.ErrorResponse"}},
                    "401": {"description": "Пользователь не авторизован", "schema": {"$ref": "#/definitions/response.ErrorResponse"}}
                }
            },
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Bookings"],
                "summary": "Забронировать сессию",
                "parameters": [
                    {"name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/models.CreateBookingRequest"}}
                ],
                "responses": {
                    "201": {"description": "Созданная сессия", "schema": {"$ref": "#/definitions/response.Response"}},
                    "400": {"description": "Некорректный запрос или время вне доступности", "schema": {"$ref": "#/definitions/response.ErrorResponse"}},
                    "402": {"description": "Сессии в подписке закончились", "schema": {"$ref": "#/definitions/response.ErrorResponse"}},
                    "404": {"description": "Нет активной подписки или ментора", "schema": {"$ref": "#/definitions/response.ErrorResponse"}},
                    "409": {"description": "Время уже занято", "schema": {"$ref": "#/definitions/response.ErrorResponse"}},
                    "422": {"description": "Ошибка валидации", "schema": {"$ref": "#/definitions/response.ErrorResponse"}}
                }
            }
        },
        "/bookings/{id}": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["Bookings"],
                "summary": "Получить сессию",
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "Сессия", "schema": {"$ref": "#/definitions/response.Response"}},
                    "403": {"description": "Нет доступа к сессии", "schema": {"$ref": "#/definitions/response.ErrorResponse"}},
                    "404": {"description": "Сессия не найдена", "schema": {"$ref": "#/definitions/response.ErrorResponse"}}
                }
            }
        },
        "/bookings/{id}/calendar": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["text/calendar"],
                "tags": ["Bookings"],
                "summary": "Сессия в формате iCalendar",
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "Файл invite.ics", "schema": {"type": "string"}},
                    "404": {"description": "Сессия не найдена", "schema": {"$ref": "#/definitions/response.ErrorResponse"}}
                }
            }
        },
        "/bookings/{id}/reschedule": {
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Bookings"],
                "summary": "Перенести сессию",
                "parameters": [
                    {"type": "string", "name": "id", "in": "path", "required": true},
                    {"name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/models.RescheduleRequest"}}
                ],
                "responses": {
                    "200": {"description": "Перенесённая сессия", "schema": {"$ref": "#/definitions/response.Response"}},
                    "409": {"description": "Время занято или сессия не в статусе SCHEDULED", "schema": {"$ref": "#/definitions/response.ErrorResponse"}}
                }
            }
        },
        "/bookings/{id}/cancel": {
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Bookings"],
                "summary": "Отменить сессию",
                "parameters": [
                    {"type": "string", "name": "id", "in": "path", "required": true},
                    {"name": "request", "in": "body", "schema": {"$ref": "#/definitions/models.CancelRequest"}}
                ],
                "responses": {
                    "200": {"description": "Сессия отменена", "schema": {"$ref": "#/definitions/response.Response"}},
                    "409": {"description": "Сессия не в статусе SCHEDULED", "schema": {"$ref": "#/definitions/response.ErrorResponse"}}
                }
            }
        },
        "/bookings/{id}/complete": {
            "post": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["Bookings"],
                "summary": "Завершить сессию",
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "Сессия завершена", "schema": {"$ref": "#/definitions/response.Response"}},
                    "403": {"description": "Недостаточно прав", "schema": {"$ref": "#/definitions/response.ErrorResponse"}},
                    "409": {"description": "Сессия не в статусе SCHEDULED", "schema": {"$ref": "#/definitions/response.ErrorResponse"}}
                }
            }
        },
        "/bookings/{id}/feedback": {
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Bookings"],
                "summary": "Оставить обратную связь",
                "parameters": [
                    {"type": "string", "name": "id", "in": "path", "required": true},
                    {"name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/models.Feedback"}}
                ],
                "responses": {
                    "201": {"description": "Обратная связь сохранена", "schema": {"$ref": "#/definitions/response.Response"}},
                    "409": {"description": "Сессия не завершена или оценка уже есть", "schema": {"$ref": "#/definitions/response.ErrorResponse"}},
                    "422": {"description": "Ошибка валидации", "schema": {"$ref": "#/definitions/response.ErrorResponse"}}
                }
            }
        },
        "/mentors/{id}/slots": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["Mentors"],
                "summary": "Свободные окна ментора",
                "parameters": [
                    {"type": "string", "name": "id", "in": "path", "required": true},
                    {"type": "string", "name": "from", "in": "query", "required": true},
                    {"type": "string", "name": "to", "in": "query", "required": true}
                ],
                "responses": {
                    "200": {"description": "Свободные окна", "schema": {"$ref": "#/definitions/response.Response"}},
                    "400": {"description": "Некорректный диапазон дат", "schema": {"$ref": "#/definitions/response.ErrorResponse"}}
                }
            }
        },
        "/mentors/{id}/availability": {
            "put": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Mentors"],
                "summary": "Заменить правила доступности",
                "parameters": [
                    {"type": "string", "name": "id", "in": "path", "required": true},
                    {"name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/models.ReplaceAvailabilityRequest"}}
                ],
                "responses": {
                    "200": {"description": "Правила заменены", "schema": {"$ref": "#/definitions/response.Response"}},
                    "403": {"description": "Чужой ментор", "schema": {"$ref": "#/definitions/response.ErrorResponse"}}
                }
            }
        },
        "/subscriptions/upgrade": {
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Subscriptions"],
                "summary": "Апгрейд подписки",
                "parameters": [
                    {"name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/models.UpgradeRequest"}}
                ],
                "responses": {
                    "201": {"description": "Новая подписка", "schema": {"$ref": "#/definitions/response.Response"}},
                    "422": {"description": "Апгрейд на этот пакет невозможен", "schema": {"$ref": "#/definitions/response.ErrorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "models.AvailabilityRuleInput": {
            "type": "object",
            "required": ["kind", "start", "end"],
            "properties": {
                "kind": {"type": "string", "enum": ["RECURRING", "ONE_OFF"]},
                "weekday": {"type": "integer", "maximum": 6, "minimum": 0},
                "date": {"type": "string"},
                "start": {"type": "string"},
                "end": {"type": "string"}
            }
        },
        "models.CancelRequest": {
            "type": "object",
            "properties": {"reason": {"type": "string", "maxLength": 500}}
        },
        "models.CreateBookingRequest": {
            "type": "object",
            "required": ["mentor_id", "package_id", "scheduled_at", "duration"],
            "properties": {
                "mentor_id": {"type": "string"},
                "package_id": {"type": "string"},
                "scheduled_at": {"type": "string"},
                "duration": {"type": "integer", "maximum": 240, "minimum": 15},
                "notes": {"type": "string", "maxLength": 2000}
            }
        },
        "models.Feedback": {
            "type": "object",
            "required": ["rating", "helpful_rating", "goals_achieved", "would_recommend"],
            "properties": {
                "rating": {"type": "integer", "maximum": 5, "minimum": 1},
                "helpful_rating": {"type": "integer", "maximum": 5, "minimum": 1},
                "goals_achieved": {"type": "string", "enum": ["yes", "no", "partially"]},
                "would_recommend": {"type": "string", "enum": ["yes", "no"]},
                "comment": {"type": "string", "maxLength": 2000}
            }
        },
        "models.ReplaceAvailabilityRequest": {
            "type": "object",
            "properties": {
                "rules": {"type": "array", "items": {"$ref": "#/definitions/models.AvailabilityRuleInput"}}
            }
        },
        "models.RescheduleRequest": {
            "type": "object",
            "required": ["scheduled_at"],
            "properties": {"scheduled_at": {"type": "string"}}
        },
        "models.UpgradeRequest": {
            "type": "object",
            "required": ["package_id"],
            "properties": {"package_id": {"type": "string"}}
        },
        "response.ErrorResponse": {
            "type": "object",
            "properties": {
                "error": {"type": "string", "example": "invalid request body"},
                "status": {"type": "string", "example": "Error"}
            }
        },
        "response.Response": {
            "type": "object",
            "properties": {
                "data": {},
                "error": {"type": "string"},
                "status": {"type": "string"}
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {
            "description": "Type \"Bearer\" followed by a space and JWT token.",
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8080",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "Mentorship Booking API",
	Description:      "API бронирования сессий с менторами: доступность, сессии, подписки.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
