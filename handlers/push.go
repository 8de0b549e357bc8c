package handlers

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"duochat/models"
)

func (a *API) VapidPublicKey(c *gin.Context) {
	if a.cfg.VAPIDPublicKey == "" {
		c.JSON(http.StatusNotFound, gin.H{"error": "Web push not configured"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"publicKey": a.cfg.VAPIDPublicKey})
}

type SubscribePushRequest struct {
	Endpoint string `json:"endpoint" binding:"required"`
	Keys     struct {
		P256dh string `json:"p256dh" binding:"required"`
		Auth   string `json:"auth" binding:"required"`
	} `json:"keys" binding:"required"`
}

func (a *API) SubscribePush(c *gin.Context) {
	var req SubscribePushRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sub := &models.PushSubscription{
		UserID:   currentUserID(c),
		Endpoint: req.Endpoint,
		P256dh:   req.Keys.P256dh,
		Auth:     req.Keys.Auth,
	}
	if err := a.store.PushSubs.Upsert(c.Request.Context(), sub); err != nil {
		log.Printf("push subscribe failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save subscription"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "Subscribed"})
}

func (a *API) UnsubscribePush(c *gin.Context) {
	if err := a.store.PushSubs.Delete(c.Request.Context(), currentUserID(c)); err != nil {
		log.Printf("push unsubscribe failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to remove subscription"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Unsubscribed"})
}
