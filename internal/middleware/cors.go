package middleware

import (
	"net/http"

	"github.com/rs/cors"

	"github.com/fekuna/omnipos-invoice-service/config"
)

func NewCORS(cfg *config.CORSConfig) func(http.Handler) http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   cfg.AllowedMethods,
		AllowedHeaders:   cfg.AllowedHeaders,
		ExposedHeaders:   []string{"Content-Disposition", "X-Export-Rows", "X-Export-Marked"},
		AllowCredentials: true,
		MaxAge:           300,
	})
	return c.Handler
}
