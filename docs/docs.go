// Package docs registers the Swagger document served under /swagger/. Keep it in step with
// the handler annotations when routes change.
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
        "/sessions": {
            "post": {
                "description": "Creates a session, detects the wallet, resumes an authorised account and probes the storage service",
                "produces": ["application/json"],
                "tags": ["sessions"],
                "summary": "Open operator session",
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/model.SessionResponse"}}
                }
            }
        },
        "/sessions/{id}": {
            "get": {
                "description": "Returns connection status, paper form and storage availability",
                "produces": ["application/json"],
                "tags": ["sessions"],
                "summary": "Session status",
                "parameters": [{"type": "string", "description": "Session ID", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/model.SessionResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/model.ErrorResponse"}}
                }
            },
            "delete": {
                "description": "Releases wallet notifications and drops the session",
                "tags": ["sessions"],
                "summary": "Close operator session",
                "parameters": [{"type": "string", "description": "Session ID", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "204": {"description": "No Content"},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/model.ErrorResponse"}}
                }
            }
        },
        "/sessions/{id}/connect": {
            "post": {
                "description": "Requests account access, verifies the network (switching or adding it) and binds the contract",
                "produces": ["application/json"],
                "tags": ["sessions"],
                "summary": "Connect wallet",
                "parameters": [{"type": "string", "description": "Session ID", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/model.SessionResponse"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/model.ErrorResponse"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/model.ErrorResponse"}},
                    "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/model.ErrorResponse"}}
                }
            }
        },
        "/sessions/{id}/paper": {
            "put": {
                "description": "Sets paper id, exam date (YYYY-MM-DD) and exam time (HH:MM); the start time is derived when both are present",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["papers"],
                "summary": "Edit paper form",
                "parameters": [
                    {"type": "string", "description": "Session ID", "name": "id", "in": "path", "required": true},
                    {"description": "Paper form", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/model.PaperForm"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/model.PaperSubmission"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/model.ErrorResponse"}}
                }
            }
        },
        "/sessions/{id}/exam-time": {
            "post": {
                "description": "Submits setExamTime for the paper. Missing fields fall back to the session's paper form",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["papers"],
                "summary": "Set exam time",
                "parameters": [
                    {"type": "string", "description": "Session ID", "name": "id", "in": "path", "required": true},
                    {"description": "Overrides", "name": "request", "in": "body", "schema": {"$ref": "#/definitions/model.ExamTimeRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/model.OperationResponse"}},
                    "412": {"description": "Precondition Failed", "schema": {"$ref": "#/definitions/model.OperationResponse"}},
                    "502": {"description": "Bad Gateway", "schema": {"$ref": "#/definitions/model.OperationResponse"}}
                }
            }
        },
        "/sessions/{id}/approve": {
            "post": {
                "description": "Submits approvePaper for the paper. The encryption key is optional",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["papers"],
                "summary": "Approve paper",
                "parameters": [
                    {"type": "string", "description": "Session ID", "name": "id", "in": "path", "required": true},
                    {"description": "Overrides", "name": "request", "in": "body", "schema": {"$ref": "#/definitions/model.ApproveRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/model.OperationResponse"}},
                    "412": {"description": "Precondition Failed", "schema": {"$ref": "#/definitions/model.OperationResponse"}},
                    "502": {"description": "Bad Gateway", "schema": {"$ref": "#/definitions/model.OperationResponse"}}
                }
            }
        },
        "/sessions/{id}/paper-reference": {
            "post": {
                "description": "Submits uploadPaper with the content reference of the uploaded file",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["papers"],
                "summary": "Register paper reference",
                "parameters": [
                    {"type": "string", "description": "Session ID", "name": "id", "in": "path", "required": true},
                    {"description": "Overrides", "name": "request", "in": "body", "schema": {"$ref": "#/definitions/model.PaperReferenceRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/model.OperationResponse"}},
                    "412": {"description": "Precondition Failed", "schema": {"$ref": "#/definitions/model.OperationResponse"}},
                    "502": {"description": "Bad Gateway", "schema": {"$ref": "#/definitions/model.OperationResponse"}}
                }
            }
        },
        "/sessions/{id}/upload": {
            "post": {
                "description": "Pins the file to IPFS and records its content identifier in the session",
                "consumes": ["multipart/form-data"],
                "produces": ["application/json"],
                "tags": ["papers"],
                "summary": "Upload paper file",
                "parameters": [
                    {"type": "string", "description": "Session ID", "name": "id", "in": "path", "required": true},
                    {"type": "file", "description": "Paper file", "name": "file", "in": "formData", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/model.OperationResponse"}},
                    "412": {"description": "Precondition Failed", "schema": {"$ref": "#/definitions/model.OperationResponse"}},
                    "502": {"description": "Bad Gateway", "schema": {"$ref": "#/definitions/model.OperationResponse"}}
                }
            }
        },
        "/sessions/{id}/papers/{paperId}": {
            "get": {
                "description": "Reads papers(paperId) from the registry contract",
                "produces": ["application/json"],
                "tags": ["papers"],
                "summary": "Read paper record",
                "parameters": [
                    {"type": "string", "description": "Session ID", "name": "id", "in": "path", "required": true},
                    {"type": "string", "description": "Paper ID", "name": "paperId", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/model.PaperResponse"}},
                    "412": {"description": "Precondition Failed", "schema": {"$ref": "#/definitions/model.ErrorResponse"}}
                }
            }
        },
        "/sessions/{id}/contract": {
            "get": {
                "description": "Reads admin() and paperCount() from the registry contract",
                "produces": ["application/json"],
                "tags": ["papers"],
                "summary": "Registry info",
                "parameters": [{"type": "string", "description": "Session ID", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/model.ContractInfoResponse"}},
                    "412": {"description": "Precondition Failed", "schema": {"$ref": "#/definitions/model.ErrorResponse"}}
                }
            }
        },
        "/storage/status": {
            "get": {
                "description": "Tests the pinning service credentials",
                "produces": ["application/json"],
                "tags": ["storage"],
                "summary": "Storage service status",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/model.StorageStatusResponse"}}
                }
            }
        }
    },
    "definitions": {
        "model.ApproveRequest": {
            "type": "object",
            "properties": {"encryptionKey": {"type": "string"}, "paperId": {"type": "string"}}
        },
        "model.ContractInfoResponse": {
            "type": "object",
            "properties": {"address": {"type": "string"}, "admin": {"type": "string"}, "paperCount": {"type": "string"}}
        },
        "model.ErrorResponse": {
            "type": "object",
            "properties": {"code": {"type": "string"}, "error": {"type": "string"}}
        },
        "model.ExamTimeRequest": {
            "type": "object",
            "properties": {"examStartEpochSeconds": {"type": "integer"}, "paperId": {"type": "string"}}
        },
        "model.OperationResponse": {
            "type": "object",
            "properties": {
                "cid": {"type": "string"},
                "code": {"type": "string"},
                "gatewayUrl": {"type": "string"},
                "message": {"type": "string"},
                "operation": {"type": "string"},
                "paperId": {"type": "string"},
                "qr": {"type": "string"},
                "success": {"type": "boolean"},
                "txHash": {"type": "string"}
            }
        },
        "model.PaperForm": {
            "type": "object",
            "properties": {"examDate": {"type": "string"}, "examTime": {"type": "string"}, "paperId": {"type": "string"}}
        },
        "model.PaperReferenceRequest": {
            "type": "object",
            "properties": {"contentReference": {"type": "string"}}
        },
        "model.PaperResponse": {
            "type": "object",
            "properties": {
                "approved": {"type": "boolean"},
                "encryptionKey": {"type": "string"},
                "ipfsHash": {"type": "string"},
                "paperId": {"type": "string"},
                "startTime": {"type": "string"}
            }
        },
        "model.PaperSubmission": {
            "type": "object",
            "properties": {
                "contentReference": {"type": "string"},
                "examDate": {"type": "string"},
                "examStartEpochSeconds": {"type": "integer"},
                "examTime": {"type": "string"},
                "paperId": {"type": "string"}
            }
        },
        "model.SessionResponse": {
            "type": "object",
            "properties": {
                "accountAddress": {"type": "string"},
                "accountQR": {"type": "string"},
                "chainId": {"type": "string"},
                "contractReady": {"type": "boolean"},
                "id": {"type": "string"},
                "lastError": {"type": "string"},
                "networkCorrect": {"type": "boolean"},
                "paper": {"$ref": "#/definitions/model.PaperSubmission"},
                "state": {"type": "string"},
                "storageOnline": {"type": "boolean"},
                "walletConnected": {"type": "boolean"}
            }
        },
        "model.StorageStatusResponse": {
            "type": "object",
            "properties": {"connected": {"type": "boolean"}, "message": {"type": "string"}}
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Exam Admin API",
	Description:      "Exam paper administration: wallet session handshake, registry contract submissions and IPFS pinning.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
