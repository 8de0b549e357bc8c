// Package handlers holds the request/response half of the API. Realtime
// lives in the gateway; everything here is plain Gin handlers over the chat
// service and the store.
package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"duochat/chat"
	"duochat/config"
	"duochat/store"
)

type API struct {
	cfg   *config.Config
	store *store.Store
	chat  *chat.Service
}

func New(cfg *config.Config, st *store.Store, svc *chat.Service) *API {
	return &API{
		cfg:   cfg,
		store: st,
		chat:  svc,
	}
}

func currentUserID(c *gin.Context) string {
	return c.GetString("userId")
}

func pageParams(c *gin.Context) (int, int) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit < 1 || limit > 100 {
		limit = 20
	}
	return page, limit
}

// storeError maps store sentinels onto the HTTP taxonomy.
func storeError(c *gin.Context, err error, notFoundMsg string) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": notFoundMsg})
	case errors.Is(err, store.ErrDuplicate):
		c.JSON(http.StatusConflict, gin.H{"error": "Username or email already exists"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
