// Package http provides the HTTP delivery layer of the link and file directory.
// Public routes serve links and files to visitors and record every access;
// the /api/v1 routes manage entries without recording anything.
package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v2"
	httpSwagger "github.com/swaggo/http-swagger"
)

type routerOptions struct {
	maxUploadSize int64
	public        []func(http.Handler) http.Handler
	docsPath      string
}

type RouterOption func(*routerOptions)

// WithMaxUploadSize limits the request body of file uploads. Zero means no limit.
func WithMaxUploadSize(n int64) RouterOption {
	return func(o *routerOptions) {
		o.maxUploadSize = n
	}
}

// WithPublicMiddleware adds middleware applied only to the visitor facing routes.
func WithPublicMiddleware(mw ...func(http.Handler) http.Handler) RouterOption {
	return func(o *routerOptions) {
		o.public = append(o.public, mw...)
	}
}

func WithDocsPath(path string) RouterOption {
	return func(o *routerOptions) {
		o.docsPath = path
	}
}

// NewRouter initializes and returns a new Chi router with the public and management routes.
func NewRouter(
	logger *httplog.Logger,
	links linkUseCase,
	files fileUseCase,
	sweeper sweeper,
	opts ...RouterOption,
) *chi.Mux {
	o := routerOptions{docsPath: "./docs/swagger.yml"}
	for _, opt := range opts {
		opt(&o)
	}

	validate := newValidator()
	lh := newLinkHandler(links, validate)
	fh := newFileHandler(files, validate, o.maxUploadSize)
	sh := &sweepHandler{sweeper: sweeper}

	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*"},
		AllowedMethods:   []string{"POST", "GET", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Accept"},
		AllowCredentials: false,
		MaxAge:           84600,
	}))
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(httplog.RequestLogger(logger))
	r.Use(middleware.Recoverer)

	r.Group(func(r chi.Router) {
		r.Use(o.public...)

		r.Get("/s/{key}", lh.accessLink)
		r.Get("/f/{key}", fh.accessFile)
	})

	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/docs/swagger.yml"),
	))

	r.Get("/docs/swagger.yml", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, o.docsPath)
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/ping", handlePing)

		r.Route("/links", func(r chi.Router) {
			r.Post("/", lh.createLink)
			r.Get("/", lh.listLinks)

			r.Route("/{key}", func(r chi.Router) {
				r.Get("/", lh.getLink)
				r.Delete("/", lh.deleteLink)
				r.Get("/access", lh.getLinkAccesses)
			})
		})

		r.Route("/files", func(r chi.Router) {
			r.Post("/", fh.createFile)
			r.Get("/", fh.listFiles)

			r.Route("/{key}", func(r chi.Router) {
				r.Get("/", fh.getFile)
				r.Delete("/", fh.deleteFile)
				r.Get("/access", fh.getFileAccesses)
			})
		})

		r.Post("/sweep", sh.sweep)
	})

	return r
}
