package docs

import "github.com/swaggo/swag"

const docTemplate = `{
  "swagger": "2.0",
  "info": {
    "title": "KB Triage API",
    "description": "AI issue triage, ticket creation and knowledge-base publishing",
    "version": "1.0"
  },
  "basePath": "/",
  "paths": {
    "/api/welcome": {"get": {"tags": ["chat"], "summary": "Welcome text"}},
    "/api/chat": {"post": {"tags": ["chat"], "summary": "Chat with the assistant"}},
    "/api/tickets": {"post": {"tags": ["tickets"], "summary": "Create a tracked issue"}},
    "/api/knowledge/publish": {"post": {"tags": ["knowledge"], "summary": "Publish a knowledge article"}},
    "/api/knowledge/connectivity": {"get": {"tags": ["knowledge"], "summary": "Content platform connectivity"}},
    "/api/publishes": {"get": {"tags": ["knowledge"], "summary": "Recent publish outcomes"}}
  }
}`

func init() {
	swag.Register(swag.Name, &s{})
}

type s struct{}

func (s *s) ReadDoc() string {
	return docTemplate
}
