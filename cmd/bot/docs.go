package main

// @title           Meu Bot Agenda API
// @version         1.0
// @description     API HTTP do bot de agenda, tarefas, Trello e anotações

// @host      localhost:8080
// @BasePath  /api/v1

// @securityDefinitions.apikey Bearer
// @in header
// @name Authorization
// @description Cabeçalho de autenticação JWT usando o esquema Bearer. Exemplo: "Bearer {token}"
