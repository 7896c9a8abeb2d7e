package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"genstudio/internal/http/handlers"
	"genstudio/internal/middleware"
)

// Options tunes the middleware stack.
type Options struct {
	Logger          zerolog.Logger
	CORSOrigins     []string
	RateLimitPerMin int
}

func NewRouter(app *handlers.App, opts Options) http.Handler {
	r := chi.NewRouter()

	r.Use(
		chimw.RealIP,
		chimw.Recoverer,
		middleware.RequestID,
		middleware.Logger(opts.Logger),
		middleware.CORS(opts.CORSOrigins),
	)

	r.Get("/v1/healthz", app.Health)

	// Generation streams run for minutes and hit paid backends.
	r.Group(func(r chi.Router) {
		r.Use(middleware.RateLimit(opts.RateLimitPerMin, time.Minute))
		r.Post("/generate", app.GenerateImage)
		r.Post("/video", app.GenerateVideo)
		r.Post("/comfyui", app.GenerateComfyUI)
		r.Post("/enhance", app.Enhance)
		r.Post("/chat", app.Chat)
	})

	r.Post("/cancel", app.Cancel)
	r.Get("/gallery", app.ListGallery)
	r.Get("/comfyui", app.EngineStatus)
	r.Get("/api/comfyui/image/{filename}", app.ServeAsset)

	return r
}
