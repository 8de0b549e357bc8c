package handlers

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
)

func (a *API) ListUsers(c *gin.Context) {
	users, err := a.store.Users.All(c.Request.Context())
	if err != nil {
		log.Printf("listing users failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch users"})
		return
	}
	c.JSON(http.StatusOK, users)
}

func (a *API) Me(c *gin.Context) {
	user, err := a.store.Users.ByID(c.Request.Context(), currentUserID(c))
	if err != nil {
		storeError(c, err, "User not found")
		return
	}
	c.JSON(http.StatusOK, user)
}

func (a *API) GetUser(c *gin.Context) {
	user, err := a.store.Users.ByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		storeError(c, err, "User not found")
		return
	}
	c.JSON(http.StatusOK, user)
}

type UpdateProfileRequest struct {
	ProfileImage *string `json:"profileImage"`
}

func (a *API) UpdateMe(c *gin.Context) {
	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := a.store.Users.UpdateProfileImage(c.Request.Context(), currentUserID(c), req.ProfileImage)
	if err != nil {
		storeError(c, err, "User not found")
		return
	}
	c.JSON(http.StatusOK, user)
}
