// Package docs provides generated OpenAPI documentation.
//
// Etho API
//
//	@title			Etho API
//	@version		1.0
//	@description	Pet behavior analysis API: upload videos, get structured ethological assessments.
//
//	@contact.name	API Support
//	@contact.url	https://github.com/jackzampolin/etho
//
//	@license.name	MIT
//	@license.url	https://opensource.org/licenses/MIT
//
//	@host		localhost:8000
//	@BasePath	/
//
//	@schemes	http https
package docs

//go:generate swag init -g ../cmd/etho/serve.go -o ./swagger --parseDependency --parseInternal
