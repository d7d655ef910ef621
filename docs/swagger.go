// Package docs provides Swagger documentation for the API.
package docs

// @title Dialer Services API
// @version 1.0
// @description Outbound call campaign dialer with compliance enforcement

// @contact.name API Support

// @host localhost:8080
// @BasePath /api/v1
// @schemes http https
