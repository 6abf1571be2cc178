package main

import (
	"github.com/gin-gonic/gin"

	bookHandler "book-catalog/internal/domains/book/handler"
	"book-catalog/internal/shared"
	"book-catalog/internal/shared/middleware"
	"book-catalog/internal/shared/response"
	"book-catalog/pkg/container"
)

func SetupRouter(c *container.Container) *gin.Engine {
	router := gin.New()
	// Match trên escaped path để /books/by-author/AC%2FDC vẫn là một segment.
	router.UseRawPath = true
	router.UnescapePathValues = true

	// Global middlewares
	router.Use(
		middleware.Recovery(),
		middleware.RequestID(),
		middleware.Logger(),
		middleware.CORS(),
	)

	bookHandler.RegisterRoutes(router, c.BookHandler, guards(c))

	router.NoRoute(func(ctx *gin.Context) {
		response.NotFound(ctx, "route not found")
	})

	return router
}

// guards bảo vệ các route ghi và /admin khi AUTH_ENABLED bật. Route đọc vẫn public.
func guards(c *container.Container) bookHandler.Guards {
	if c.JWTManager == nil {
		return bookHandler.Guards{}
	}

	auth := middleware.Auth(c.JWTManager)
	return bookHandler.Guards{
		Write: []gin.HandlerFunc{auth, middleware.RequireRole(shared.RoleEditor, shared.RoleAdmin)},
		Admin: []gin.HandlerFunc{auth, middleware.RequireRole(shared.RoleAdmin)},
	}
}
