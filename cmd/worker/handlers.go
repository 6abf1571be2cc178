package main

import (
	"github.com/hibiken/asynq"

	bookJob "book-catalog/internal/domains/book/job"
	"book-catalog/internal/shared"
	"book-catalog/pkg/container"
)

// HandlerRegistry holds all job handlers
type HandlerRegistry struct {
	rebuildIndex *bookJob.RebuildIndexHandler
	ensureIndex  *bookJob.EnsureIndexHandler
}

// initializeHandlers creates all job handlers with their dependencies
func initializeHandlers(c *container.Container) *HandlerRegistry {
	return &HandlerRegistry{
		rebuildIndex: bookJob.NewRebuildIndexHandler(c.BookService),
		ensureIndex:  bookJob.NewEnsureIndexHandler(c.BookService),
	}
}

// RegisterHandlers registers all handlers with the mux
func (h *HandlerRegistry) RegisterHandlers(mux *asynq.ServeMux) {
	mux.HandleFunc(shared.TypeRebuildBookIndex, h.rebuildIndex.ProcessTask)
	mux.HandleFunc(shared.TypeEnsureBookIndex, h.ensureIndex.ProcessTask)
}
