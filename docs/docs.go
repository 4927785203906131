// Package docs registers the OpenAPI description served under /swagger.
// Keep the paths in step with the handler annotations.
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
        "/auth/register": {"post": {"tags": ["auth"], "summary": "Регистрация пользователя", "responses": {"201": {"description": "Created"}, "400": {"description": "Bad Request"}, "409": {"description": "Email или username заняты"}}}},
        "/auth/login": {"post": {"tags": ["auth"], "summary": "Вход, выдаёт JWT", "responses": {"200": {"description": "OK"}, "401": {"description": "Unauthorized"}}}},
        "/auth/me": {"get": {"tags": ["auth"], "summary": "Профиль текущего пользователя", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "OK"}, "401": {"description": "Unauthorized"}}}},
        "/players": {
            "get": {"tags": ["players"], "summary": "Список профилей игроков", "responses": {"200": {"description": "OK"}}},
            "post": {"tags": ["players"], "summary": "Создание профиля игрока", "security": [{"BearerAuth": []}], "responses": {"201": {"description": "Created"}, "409": {"description": "Профиль с таким именем уже есть"}}}
        },
        "/players/{playerID}": {
            "get": {"tags": ["players"], "summary": "Профиль игрока", "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}},
            "patch": {"tags": ["players"], "summary": "Изменение профиля игрока", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}, "409": {"description": "Conflict"}}},
            "delete": {"tags": ["players"], "summary": "Удаление профиля игрока", "security": [{"BearerAuth": []}], "responses": {"204": {"description": "No Content"}, "409": {"description": "Профиль привязан к пользователю"}}}
        },
        "/players/{playerID}/avatar": {"put": {"tags": ["players"], "summary": "Загрузка аватара игрока", "consumes": ["multipart/form-data"], "security": [{"BearerAuth": []}], "responses": {"200": {"description": "OK"}, "400": {"description": "Bad Request"}, "503": {"description": "Хранилище не настроено"}}}},
        "/matches": {
            "get": {"tags": ["matches"], "summary": "Список матчей", "responses": {"200": {"description": "OK"}}},
            "post": {"tags": ["matches"], "summary": "Создание матча", "security": [{"BearerAuth": []}], "responses": {"201": {"description": "Created"}, "400": {"description": "Bad Request"}, "409": {"description": "Conflict"}}}
        },
        "/matches/{matchID}": {"get": {"tags": ["matches"], "summary": "Матч по ID", "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}}},
        "/matches/{matchID}/score": {"post": {"tags": ["matches"], "summary": "Изменение счёта участника матча", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "OK"}, "409": {"description": "Матч уже завершён"}, "422": {"description": "Игрок не участвует или счёт стал бы отрицательным"}}}},
        "/matches/{matchID}/date": {"patch": {"tags": ["matches"], "summary": "Перенос матча", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "OK"}, "400": {"description": "Дата в прошлом"}, "409": {"description": "Матч уже завершён"}}}},
        "/matches/{matchID}/finish": {"post": {"tags": ["matches"], "summary": "Завершение матча", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "OK"}, "409": {"description": "Матч уже завершён"}}}},
        "/tournaments": {
            "get": {"tags": ["tournaments"], "summary": "Список турниров с матчами", "responses": {"200": {"description": "OK"}}},
            "post": {"tags": ["tournaments"], "summary": "Создание турнира", "security": [{"BearerAuth": []}], "responses": {"201": {"description": "Created"}, "400": {"description": "Bad Request"}, "422": {"description": "Недостаточно участников или размер сетки не степень двойки"}}}
        },
        "/tournaments/{tournamentID}": {"get": {"tags": ["tournaments"], "summary": "Турнир по ID", "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}}},
        "/tournaments/{tournamentID}/standings": {"get": {"tags": ["tournaments"], "summary": "Таблица лиги", "responses": {"200": {"description": "OK"}, "422": {"description": "Турнир не является лигой"}}}},
        "/tournaments/{tournamentID}/next-round": {"post": {"tags": ["tournaments"], "summary": "Переход к следующему раунду плей-офф", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "OK"}, "409": {"description": "Нет активных матчей, ничья или устаревший раунд"}}}},
        "/admin/stats": {"get": {"tags": ["admin"], "summary": "Сводная статистика для администратора", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "OK"}}}},
        "/claims": {"get": {"tags": ["claims"], "summary": "Нерассмотренные заявки", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "OK"}, "403": {"description": "Forbidden"}}}},
        "/claims/player": {"post": {"tags": ["claims"], "summary": "Заявка на привязку профиля игрока", "security": [{"BearerAuth": []}], "responses": {"201": {"description": "Created"}, "409": {"description": "Профиль или пользователь уже привязан, либо заявка уже есть"}}}},
        "/claims/director": {"post": {"tags": ["claims"], "summary": "Заявка на роль директора турниров", "security": [{"BearerAuth": []}], "responses": {"201": {"description": "Created"}, "409": {"description": "Пользователь уже директор или заявка уже есть"}}}},
        "/claims/{claimID}/resolve": {"post": {"tags": ["claims"], "summary": "Одобрение или отклонение заявки", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "OK"}, "409": {"description": "Заявка уже рассмотрена"}}}}
    },
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api",
	Schemes:          []string{},
	Title:            "Match Score API",
	Description:      "Player directory, matches and tournaments.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
