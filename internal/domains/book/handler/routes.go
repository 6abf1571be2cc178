package handler

import (
	"github.com/gin-gonic/gin"
)

// Guards are extra middlewares for protected routes. Empty guards leave the
// routes open.
type Guards struct {
	Write []gin.HandlerFunc // PUT, POST, DELETE on books
	Admin []gin.HandlerFunc // /admin
}

// RegisterRoutes mounts the catalog API at the root of r.
func RegisterRoutes(r gin.IRouter, h *BookHandler, g Guards) {
	r.GET("/", h.Info)
	r.GET("/health", h.Health)

	r.GET("/book/:id", h.Get)
	r.PUT("/book/:id", withGuards(g.Write, h.Replace)...)
	r.DELETE("/book/:id", withGuards(g.Write, h.Delete)...)

	books := r.Group("/books")
	{
		books.GET("", h.List)
		books.POST("", withGuards(g.Write, h.Create)...)
		books.GET("/by-author/:author", h.ListByAuthor)
		books.GET("/by-year/:from/:to", h.ListByYear)
		books.GET("/search", h.Search)
		books.GET("/export", h.Export)
	}

	admin := r.Group("/admin", g.Admin...)
	{
		admin.POST("/index/rebuild", h.RebuildIndex)
	}
}

func withGuards(guards []gin.HandlerFunc, h gin.HandlerFunc) []gin.HandlerFunc {
	chain := make([]gin.HandlerFunc, 0, len(guards)+1)
	chain = append(chain, guards...)
	return append(chain, h)
}
