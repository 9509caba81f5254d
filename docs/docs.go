// Package docs registers the swagger document served at /swagger in local mode.
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
    "paths": {
        "/api/polls": {
            "post": {
                "security": [
                    {
                        "SignerToken": []
                    }
                ],
                "tags": [
                    "polls"
                ],
                "summary": "Initialize a poll",
                "parameters": [
                    {
                        "in": "body",
                        "name": "poll",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/models.CreatePollRequest"
                        }
                    }
                ],
                "responses": {
                    "201": {
                        "description": "Created",
                        "schema": {
                            "$ref": "#/definitions/models.ReceiptResponse"
                        }
                    },
                    "400": {
                        "description": "Invalid poll data",
                        "schema": {
                            "$ref": "#/definitions/models.ErrorResponse"
                        }
                    },
                    "409": {
                        "description": "Poll already exists",
                        "schema": {
                            "$ref": "#/definitions/models.ErrorResponse"
                        }
                    }
                }
            }
        },
        "/api/polls/{pollId}": {
            "get": {
                "tags": [
                    "polls"
                ],
                "summary": "Get a poll",
                "parameters": [
                    {
                        "type": "integer",
                        "in": "path",
                        "name": "pollId",
                        "required": true
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/models.PollResponse"
                        }
                    },
                    "404": {
                        "description": "Poll not found",
                        "schema": {
                            "$ref": "#/definitions/models.ErrorResponse"
                        }
                    }
                }
            }
        },
        "/api/polls/{pollId}/candidates": {
            "get": {
                "tags": [
                    "polls"
                ],
                "summary": "List candidates",
                "parameters": [
                    {
                        "type": "integer",
                        "in": "path",
                        "name": "pollId",
                        "required": true
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "type": "array",
                            "items": {
                                "$ref": "#/definitions/models.CandidateResponse"
                            }
                        }
                    }
                }
            },
            "post": {
                "security": [
                    {
                        "SignerToken": []
                    }
                ],
                "tags": [
                    "polls"
                ],
                "summary": "Register a candidate",
                "parameters": [
                    {
                        "type": "integer",
                        "in": "path",
                        "name": "pollId",
                        "required": true
                    },
                    {
                        "in": "body",
                        "name": "candidate",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/models.CreateCandidateRequest"
                        }
                    }
                ],
                "responses": {
                    "201": {
                        "description": "Created",
                        "schema": {
                            "$ref": "#/definitions/models.ReceiptResponse"
                        }
                    },
                    "409": {
                        "description": "Candidate already registered",
                        "schema": {
                            "$ref": "#/definitions/models.ErrorResponse"
                        }
                    }
                }
            }
        },
        "/api/polls/{pollId}/candidates/{name}": {
            "get": {
                "tags": [
                    "polls"
                ],
                "summary": "Get a candidate by name",
                "parameters": [
                    {
                        "type": "integer",
                        "in": "path",
                        "name": "pollId",
                        "required": true
                    },
                    {
                        "type": "string",
                        "in": "path",
                        "name": "name",
                        "required": true
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/models.CandidateResponse"
                        }
                    }
                }
            }
        },
        "/api/polls/{pollId}/votes": {
            "post": {
                "security": [
                    {
                        "SignerToken": []
                    }
                ],
                "tags": [
                    "voting"
                ],
                "summary": "Cast a ballot",
                "parameters": [
                    {
                        "type": "integer",
                        "in": "path",
                        "name": "pollId",
                        "required": true
                    },
                    {
                        "in": "body",
                        "name": "ballot",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/models.CastBallotRequest"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/models.ReceiptResponse"
                        }
                    },
                    "409": {
                        "description": "Already voted or concurrent update",
                        "schema": {
                            "$ref": "#/definitions/models.ErrorResponse"
                        }
                    },
                    "422": {
                        "description": "Ballot violates the D21 rules",
                        "schema": {
                            "$ref": "#/definitions/models.ErrorResponse"
                        }
                    }
                }
            }
        },
        "/api/polls/{pollId}/voters/{voter}": {
            "get": {
                "tags": [
                    "voting"
                ],
                "summary": "Get a voter record",
                "parameters": [
                    {
                        "type": "integer",
                        "in": "path",
                        "name": "pollId",
                        "required": true
                    },
                    {
                        "type": "string",
                        "in": "path",
                        "name": "voter",
                        "required": true
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/models.VoterRecordResponse"
                        }
                    }
                }
            }
        },
        "/api/voter-records/{address}": {
            "delete": {
                "security": [
                    {
                        "SignerToken": []
                    }
                ],
                "tags": [
                    "voting"
                ],
                "summary": "Close a voter record",
                "parameters": [
                    {
                        "type": "string",
                        "in": "path",
                        "name": "address",
                        "required": true
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/models.CloseVoterRecordResponse"
                        }
                    },
                    "403": {
                        "description": "Signer does not own the record",
                        "schema": {
                            "$ref": "#/definitions/models.ErrorResponse"
                        }
                    },
                    "409": {
                        "description": "Poll has not ended",
                        "schema": {
                            "$ref": "#/definitions/models.ErrorResponse"
                        }
                    }
                }
            }
        }
    },
    "definitions": {
        "models.AllocationEntry": {
            "type": "object",
            "properties": {
                "candidate": {
                    "type": "string"
                },
                "votes": {
                    "type": "integer"
                }
            }
        },
        "models.CastBallotRequest": {
            "type": "object",
            "properties": {
                "plus": {
                    "type": "array",
                    "items": {
                        "$ref": "#/definitions/models.AllocationEntry"
                    }
                },
                "minus": {
                    "type": "array",
                    "items": {
                        "$ref": "#/definitions/models.AllocationEntry"
                    }
                },
                "candidates": {
                    "type": "array",
                    "items": {
                        "type": "string"
                    }
                }
            }
        },
        "models.CandidateResponse": {
            "type": "object",
            "properties": {
                "address": {
                    "type": "string"
                },
                "pollId": {
                    "type": "integer"
                },
                "name": {
                    "type": "string"
                },
                "plusVotes": {
                    "type": "integer"
                },
                "minusVotes": {
                    "type": "integer"
                }
            }
        },
        "models.CloseVoterRecordResponse": {
            "type": "object",
            "properties": {
                "id": {
                    "type": "string"
                },
                "operation": {
                    "type": "string"
                },
                "signer": {
                    "type": "string"
                },
                "touched": {
                    "type": "array",
                    "items": {
                        "type": "string"
                    }
                },
                "committedAt": {
                    "type": "string"
                },
                "payer": {
                    "type": "string"
                },
                "refund": {
                    "type": "integer"
                }
            }
        },
        "models.CreateCandidateRequest": {
            "type": "object",
            "properties": {
                "name": {
                    "type": "string"
                }
            }
        },
        "models.CreatePollRequest": {
            "type": "object",
            "properties": {
                "pollId": {
                    "type": "integer"
                },
                "description": {
                    "type": "string"
                },
                "start": {
                    "type": "integer"
                },
                "end": {
                    "type": "integer"
                },
                "winners": {
                    "type": "integer"
                }
            }
        },
        "models.ErrorResponse": {
            "type": "object",
            "properties": {
                "error": {
                    "type": "string"
                },
                "code": {
                    "type": "string"
                }
            }
        },
        "models.PollResponse": {
            "type": "object",
            "properties": {
                "address": {
                    "type": "string"
                },
                "pollId": {
                    "type": "integer"
                },
                "description": {
                    "type": "string"
                },
                "start": {
                    "type": "integer"
                },
                "end": {
                    "type": "integer"
                },
                "candidateCount": {
                    "type": "integer"
                },
                "winners": {
                    "type": "integer"
                },
                "plusVotesAllowed": {
                    "type": "integer"
                },
                "minusVotesAllowed": {
                    "type": "integer"
                },
                "candidates": {
                    "type": "array",
                    "items": {
                        "$ref": "#/definitions/models.CandidateResponse"
                    }
                }
            }
        },
        "models.ReceiptResponse": {
            "type": "object",
            "properties": {
                "id": {
                    "type": "string"
                },
                "operation": {
                    "type": "string"
                },
                "signer": {
                    "type": "string"
                },
                "touched": {
                    "type": "array",
                    "items": {
                        "type": "string"
                    }
                },
                "committedAt": {
                    "type": "string"
                }
            }
        },
        "models.VoterRecordResponse": {
            "type": "object",
            "properties": {
                "address": {
                    "type": "string"
                },
                "pollId": {
                    "type": "integer"
                },
                "voter": {
                    "type": "string"
                },
                "hasVoted": {
                    "type": "boolean"
                },
                "plusUsed": {
                    "type": "integer"
                },
                "minusUsed": {
                    "type": "integer"
                }
            }
        }
    },
    "securityDefinitions": {
        "SignerToken": {
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
	Title:            "D21 Ballot API",
	Description:      "Multi-winner D21 polls: poll and candidate registration, ballots and voter records",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
