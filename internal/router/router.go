// Package router wires HTTP routes onto an Echo instance.
package router

import (
	"context"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/iliyamo/cinema-booking-core/internal/config"
	"github.com/iliyamo/cinema-booking-core/internal/handler"
	"github.com/iliyamo/cinema-booking-core/internal/middleware"
	"github.com/iliyamo/cinema-booking-core/internal/reservation"
)

// Deps are the collaborators needed to build the routes.  Redis is
// optional; without it caching and rate limiting are disabled.
type Deps struct {
	Core      *reservation.Core
	Log       *zap.Logger
	Redis     *redis.Client
	Cache     config.CacheConfig
	RateLimit config.RateLimitConfig
	Version   string
}

// RegisterRoutes mounts the health check and the /api surface.  Movie reads
// go through the Redis response cache and movie writes drop it; booking
// mutations are rate limited per caller.
func RegisterRoutes(e *echo.Echo, d Deps) {
	e.GET("/healthz", handler.Health)

	status := handler.NewStatusHandler(d.Core, d.Version)
	catalog := handler.NewCatalogHandler(d.Core, d.Log)
	catalog.InvalidateMovies = func(ctx context.Context) error {
		return middleware.InvalidateCache(ctx, d.Cache, d.Redis, middleware.CacheGroupMovies)
	}
	bookings := handler.NewBookingHandler(d.Core)
	admin := handler.NewAdminHandler(d.Core, d.Log)

	movieCache := middleware.NewRedisCache(d.Cache, d.Redis, middleware.CacheGroupMovies, d.Log)
	limit := middleware.NewTokenBucket(d.RateLimit, d.Redis, d.Log)

	api := e.Group("/api")
	api.GET("", status.Status)
	api.GET("/status", status.Status)

	api.GET("/movies", catalog.ListMovies, movieCache)
	api.GET("/movies/:id", catalog.GetMovie, movieCache)
	api.POST("/movies", catalog.UpsertMovie)

	api.GET("/cinemas", catalog.ListCinemas)
	api.GET("/cinemas/:id", catalog.GetCinema)
	api.GET("/cinemas/:id/showtimes", catalog.CinemaShowtimes)
	api.POST("/cinemas", catalog.UpsertCinema)

	api.GET("/showtimes", catalog.ListShowtimes)
	api.POST("/showtimes", catalog.AddShowtime)
	api.GET("/showtimes/:id", catalog.GetShowtime)
	api.GET("/showtimes/:id/seats", catalog.ShowtimeSeats)

	api.POST("/bookings", bookings.Create, limit)
	api.GET("/bookings/:id", bookings.Get)
	api.POST("/bookings/:id/cancel", bookings.Cancel, limit)
	api.POST("/bookings/:id/restore", bookings.Restore, limit)
	api.GET("/users/:id/bookings", bookings.ByUser)

	adm := api.Group("/admin")
	adm.GET("/bookings", admin.Bookings)
	adm.GET("/analytics", admin.Analytics)
	adm.POST("/flush", admin.Flush)
	adm.POST("/cinemas", catalog.UpsertCinema)
	adm.PUT("/cinemas/:id", catalog.UpdateCinema)
	adm.DELETE("/cinemas/:id", catalog.DeleteCinema)
}
