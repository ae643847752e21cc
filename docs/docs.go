// Package docs содержит описание HTTP API для swagger-ui.
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
        "/search-by-image": {
            "post": {
                "description": "Строит цветовую гистограмму загруженного изображения и возвращает до 10 самых похожих товаров",
                "consumes": ["multipart/form-data"],
                "produces": ["application/json"],
                "tags": ["search"],
                "summary": "Поиск товаров по изображению",
                "parameters": [
                    {"type": "file", "description": "Изображение-запрос", "name": "image", "in": "formData", "required": true}
                ],
                "responses": {
                    "200": {"description": "Товары по убыванию похожести", "schema": {"type": "array", "items": {"$ref": "#/definitions/http.SearchResultResponse"}}},
                    "400": {"description": "Изображение не передано", "schema": {"$ref": "#/definitions/http.ErrorResponse"}},
                    "413": {"description": "Файл слишком большой", "schema": {"$ref": "#/definitions/http.ErrorResponse"}},
                    "422": {"description": "Изображение не удалось обработать", "schema": {"$ref": "#/definitions/http.ErrorResponse"}},
                    "500": {"description": "Внутренняя ошибка", "schema": {"$ref": "#/definitions/http.ErrorResponse"}}
                }
            }
        },
        "/products": {
            "get": {
                "produces": ["application/json"],
                "tags": ["products"],
                "summary": "Список товаров",
                "parameters": [
                    {"type": "integer", "description": "Размер страницы (1..100, по умолчанию 50)", "name": "limit", "in": "query"},
                    {"type": "integer", "description": "Смещение", "name": "offset", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/http.ProductResponse"}}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/http.ErrorResponse"}}
                }
            }
        },
        "/products/{id}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["products"],
                "summary": "Товар по идентификатору",
                "parameters": [
                    {"type": "integer", "description": "ID товара", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/http.ProductResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/http.ErrorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/http.ErrorResponse"}}
                }
            }
        },
        "/admin/products": {
            "post": {
                "security": [{"AdminToken": []}],
                "description": "Загружает изображение в хранилище, создаёт товар и сразу считает его цветовую гистограмму",
                "consumes": ["multipart/form-data"],
                "produces": ["application/json"],
                "tags": ["admin"],
                "summary": "Регистрация нового товара",
                "parameters": [
                    {"type": "string", "description": "Название товара", "name": "name", "in": "formData", "required": true},
                    {"type": "string", "description": "Категория", "name": "category", "in": "formData", "required": true},
                    {"type": "number", "description": "Цена", "name": "price", "in": "formData", "required": true},
                    {"type": "integer", "description": "Остаток", "name": "stock", "in": "formData"},
                    {"type": "file", "description": "Изображение товара", "name": "image", "in": "formData", "required": true}
                ],
                "responses": {
                    "201": {"description": "Успешное создание", "schema": {"$ref": "#/definitions/http.ProductResponse"}},
                    "400": {"description": "Ошибка валидации", "schema": {"$ref": "#/definitions/http.ErrorResponse"}},
                    "409": {"description": "Товар уже существует", "schema": {"$ref": "#/definitions/http.ErrorResponse"}},
                    "415": {"description": "Неподдерживаемый формат изображения", "schema": {"$ref": "#/definitions/http.ErrorResponse"}}
                }
            }
        },
        "/admin/products/{id}/fingerprint": {
            "post": {
                "security": [{"AdminToken": []}],
                "description": "Загружает текущее изображение товара и перезаписывает его гистограмму",
                "produces": ["application/json"],
                "tags": ["admin"],
                "summary": "Пересчитать гистограмму товара",
                "parameters": [
                    {"type": "integer", "description": "ID товара", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/http.MessageResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/http.ErrorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/http.ErrorResponse"}},
                    "422": {"description": "Unprocessable Entity", "schema": {"$ref": "#/definitions/http.ErrorResponse"}},
                    "502": {"description": "Bad Gateway", "schema": {"$ref": "#/definitions/http.ErrorResponse"}}
                }
            }
        },
        "/admin/recompute-histograms": {
            "post": {
                "security": [{"AdminToken": []}],
                "description": "Запускает в фоне расчёт гистограмм для товаров, у которых их нет. Существующие не перезаписываются.",
                "produces": ["application/json"],
                "tags": ["admin"],
                "summary": "Досчитать недостающие гистограммы",
                "responses": {
                    "202": {"description": "Accepted", "schema": {"$ref": "#/definitions/http.MessageResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/http.ErrorResponse"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/http.ErrorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "http.ErrorResponse": {
            "type": "object",
            "properties": {
                "code": {"type": "integer"},
                "message": {"type": "string"}
            }
        },
        "http.MessageResponse": {
            "type": "object",
            "properties": {
                "message": {"type": "string"}
            }
        },
        "http.ProductResponse": {
            "type": "object",
            "properties": {
                "category": {"type": "string"},
                "created_at": {"type": "string"},
                "has_fingerprint": {"type": "boolean"},
                "id": {"type": "integer"},
                "image": {"type": "string"},
                "name": {"type": "string"},
                "price": {"type": "number"},
                "stock": {"type": "integer"}
            }
        },
        "http.SearchResultResponse": {
            "type": "object",
            "properties": {
                "id": {"type": "integer"},
                "image": {"type": "string"},
                "name": {"type": "string"},
                "price": {"type": "number"},
                "similarity": {"type": "number"}
            }
        }
    },
    "securityDefinitions": {
        "AdminToken": {
            "description": "Bearer <ADMIN_TOKEN>",
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
	Title:            "Shop backend API",
	Description:      "Каталог товаров и поиск по изображению.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
