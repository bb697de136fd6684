// Package docs holds the OpenAPI document served at /swagger. Keep it in
// step with the swag annotations on the handlers.
package docs

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
        "/api/v1/logs": {
            "get": {
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "description": "Journal of program starts, stops, crashes, holiday transitions and weather interrupts. Filter by date (RFC3339, 'YYYY-MM-DD HH:MM:SS', or 'YYYY-MM-DD'). If 'to' is date-only, it is treated as end-of-day inclusive (23:59:59.999999999Z).",
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "logs"
                ],
                "summary": "List display events",
                "parameters": [
                    {
                        "type": "string",
                        "example": "2025-08-01",
                        "description": "Start of range (RFC3339, 'YYYY-MM-DD HH:MM:SS', or 'YYYY-MM-DD')",
                        "name": "from",
                        "in": "query"
                    },
                    {
                        "type": "string",
                        "example": "2025-08-31",
                        "description": "End of range (RFC3339, 'YYYY-MM-DD HH:MM:SS', or 'YYYY-MM-DD'). Date-only treated as end of day.",
                        "name": "to",
                        "in": "query"
                    },
                    {
                        "enum": [
                            "PROGRAM_START",
                            "PROGRAM_STOP",
                            "START_FAILED",
                            "CRASH",
                            "HOLIDAY_START",
                            "HOLIDAY_END",
                            "RETRY_EXHAUSTED",
                            "WEATHER_START",
                            "WEATHER_END"
                        ],
                        "type": "string",
                        "description": "Event type",
                        "name": "type",
                        "in": "query"
                    },
                    {
                        "type": "string",
                        "description": "Only events of this program",
                        "name": "program",
                        "in": "query"
                    },
                    {
                        "type": "integer",
                        "description": "Only the newest N events (1-1000)",
                        "name": "limit",
                        "in": "query"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "count, events",
                        "schema": {
                            "type": "object",
                            "additionalProperties": true
                        }
                    },
                    "400": {
                        "description": "Bad Request",
                        "schema": {
                            "type": "object",
                            "additionalProperties": {
                                "type": "string"
                            }
                        }
                    },
                    "401": {
                        "description": "Unauthorized",
                        "schema": {
                            "type": "object",
                            "additionalProperties": {
                                "type": "string"
                            }
                        }
                    },
                    "500": {
                        "description": "Internal Server Error",
                        "schema": {
                            "type": "object",
                            "additionalProperties": {
                                "type": "string"
                            }
                        }
                    }
                }
            }
        },
        "/api/v1/schedule": {
            "get": {
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "description": "Loaded schedule entries, the entries eligible now and the program they resolve to.",
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "status"
                ],
                "summary": "Holiday schedule",
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/service.ScheduleView"
                        }
                    },
                    "401": {
                        "description": "Unauthorized",
                        "schema": {
                            "type": "object",
                            "additionalProperties": {
                                "type": "string"
                            }
                        }
                    },
                    "500": {
                        "description": "Internal Server Error",
                        "schema": {
                            "type": "object",
                            "additionalProperties": {
                                "type": "string"
                            }
                        }
                    }
                }
            }
        },
        "/api/v1/status": {
            "get": {
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "description": "What the orchestrator believes is on the matrix: current and scheduled program, PID, weather state, retry state.",
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "status"
                ],
                "summary": "Orchestrator status",
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/models.OrchestratorState"
                        }
                    },
                    "401": {
                        "description": "Unauthorized",
                        "schema": {
                            "type": "object",
                            "additionalProperties": {
                                "type": "string"
                            }
                        }
                    },
                    "500": {
                        "description": "Internal Server Error",
                        "schema": {
                            "type": "object",
                            "additionalProperties": {
                                "type": "string"
                            }
                        }
                    }
                }
            }
        },
        "/auth/sign-in": {
            "post": {
                "description": "Exchanges operator credentials from the config file for a bearer token.",
                "consumes": [
                    "application/json"
                ],
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "auth"
                ],
                "summary": "Sign in",
                "parameters": [
                    {
                        "description": "username and password",
                        "name": "credentials",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/handlers.authCredentials"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "token, token_type",
                        "schema": {
                            "type": "object",
                            "additionalProperties": {
                                "type": "string"
                            }
                        }
                    },
                    "400": {
                        "description": "Bad Request",
                        "schema": {
                            "type": "object",
                            "additionalProperties": {
                                "type": "string"
                            }
                        }
                    },
                    "401": {
                        "description": "Unauthorized",
                        "schema": {
                            "type": "object",
                            "additionalProperties": {
                                "type": "string"
                            }
                        }
                    },
                    "503": {
                        "description": "Service Unavailable",
                        "schema": {
                            "type": "object",
                            "additionalProperties": {
                                "type": "string"
                            }
                        }
                    }
                }
            }
        },
        "/health": {
            "get": {
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "system"
                ],
                "summary": "Health check",
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "type": "object",
                            "additionalProperties": {
                                "type": "string"
                            }
                        }
                    }
                }
            }
        },
        "/ws": {
            "get": {
                "description": "Upgrades to a WebSocket. The orchestrator status is sent at once, then whenever it changes, checked every interval (?interval=2s or ?interval_ms=2000, max 10s).",
                "tags": [
                    "status"
                ],
                "summary": "Status stream",
                "parameters": [
                    {
                        "type": "string",
                        "description": "Bearer token when the Authorization header cannot be set",
                        "name": "access_token",
                        "in": "query"
                    }
                ],
                "responses": {}
            }
        }
    },
    "definitions": {
        "handlers.authCredentials": {
            "type": "object",
            "required": [
                "password",
                "username"
            ],
            "properties": {
                "password": {
                    "type": "string"
                },
                "username": {
                    "type": "string"
                }
            }
        },
        "models.OrchestratorState": {
            "type": "object",
            "properties": {
                "current_program": {
                    "type": "string"
                },
                "failed_attempts": {
                    "type": "integer"
                },
                "last_weather_check": {
                    "type": "string"
                },
                "next_retry_at": {
                    "type": "string"
                },
                "pid": {
                    "type": "integer"
                },
                "program_start_time": {
                    "type": "string"
                },
                "target_program": {
                    "type": "string"
                },
                "updated_at": {
                    "type": "string"
                },
                "weather_state": {
                    "type": "string"
                }
            }
        },
        "models.ScheduleEntry": {
            "type": "object",
            "properties": {
                "day": {
                    "type": "integer"
                },
                "duration_hours": {
                    "type": "integer"
                },
                "month": {
                    "type": "integer"
                },
                "priority": {
                    "type": "integer"
                },
                "program_name": {
                    "type": "string"
                }
            }
        },
        "service.ScheduleView": {
            "type": "object",
            "properties": {
                "active_entries": {
                    "type": "array",
                    "items": {
                        "$ref": "#/definitions/models.ScheduleEntry"
                    }
                },
                "default_program": {
                    "type": "string"
                },
                "entries": {
                    "type": "array",
                    "items": {
                        "$ref": "#/definitions/models.ScheduleEntry"
                    }
                },
                "now": {
                    "type": "string"
                },
                "resolved_program": {
                    "type": "string"
                }
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Matrix Orchestrator API",
	Description:      "Read-only status API of the LED matrix display orchestrator.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
