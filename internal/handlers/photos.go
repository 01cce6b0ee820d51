package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"picstoria/api/internal/models"
	"picstoria/api/internal/repository"
	"picstoria/api/internal/service"
)

type savePhotoRequest struct {
	ImageURL       string `json:"imageUrl" binding:"required"`
	Description    string `json:"description"`
	AltDescription string `json:"altDescription"`
}

func (h HandlerSet) SavePhoto(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req savePhotoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid image URL"})
		return
	}

	photo, err := h.photos.SavePhoto(c.Request.Context(), service.SavePhotoInput{
		UserID:         user.ID,
		ImageURL:       req.ImageURL,
		Description:    req.Description,
		AltDescription: req.AltDescription,
	})
	if err != nil {
		if errors.Is(err, service.ErrValidation) {
			c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid image URL"})
			return
		}
		h.internalError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"id":      photo.ID,
		"message": "Photo saved successfully",
	})
}

func (h HandlerSet) Collection(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	photos, err := h.photos.ListCollection(c.Request.Context(), user.ID)
	if err != nil {
		h.internalError(c, err)
		return
	}

	resp := make([]gin.H, 0, len(photos))
	for _, photo := range photos {
		resp = append(resp, photoResponse(photo))
	}
	c.JSON(http.StatusOK, gin.H{"photos": resp})
}

func (h HandlerSet) PhotoPage(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	page, err := h.photos.GetPhotoPage(c.Request.Context(), user.ID, c.Param("photoId"))
	if err != nil {
		if errors.Is(err, repository.ErrPhotoNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"message": "Photo not found"})
			return
		}
		h.internalError(c, err)
		return
	}

	photo := photoResponse(page.Photo)
	photo["tags"] = page.Tags
	c.JSON(http.StatusOK, gin.H{
		"photo":             photo,
		"recommendedImages": page.Recommendations,
	})
}

type addTagRequest struct {
	Tag  string `json:"tag" binding:"required"`
	Type string `json:"type"`
}

func (h HandlerSet) AddTag(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req addTagRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Tag must be a non-empty string."})
		return
	}

	err := h.photos.AddTag(c.Request.Context(), user.ID, c.Param("photoId"), req.Tag, req.Type)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrValidation):
			c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		case errors.Is(err, service.ErrTagLimit):
			c.JSON(http.StatusBadRequest, gin.H{"message": "A photo can have a maximum of 5 tags."})
		case errors.Is(err, repository.ErrPhotoNotFound):
			c.JSON(http.StatusNotFound, gin.H{"message": "Photo not found"})
		default:
			h.internalError(c, err)
		}
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "Tag added successfully."})
}

func (h HandlerSet) RemoveTag(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	err := h.photos.RemoveTag(c.Request.Context(), user.ID, c.Param("photoId"), c.Param("tag"))
	if err != nil {
		if errors.Is(err, repository.ErrPhotoNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"message": "Photo not found"})
			return
		}
		h.internalError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Tag removed successfully."})
}

func (h HandlerSet) SearchByTag(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	photos, err := h.photos.SearchByTag(c.Request.Context(), user.ID, c.Query("tag"), c.DefaultQuery("sort", "ASC"))
	if err != nil {
		if errors.Is(err, service.ErrValidation) {
			c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
			return
		}
		h.internalError(c, err)
		return
	}

	if len(photos) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"message": "No photos found for the tag: " + c.Query("tag")})
		return
	}

	resp := make([]gin.H, 0, len(photos))
	for _, photo := range photos {
		resp = append(resp, photoResponse(photo))
	}
	c.JSON(http.StatusOK, gin.H{"photos": resp})
}

func (h HandlerSet) SearchExternal(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	results, err := h.photos.SearchExternal(c.Request.Context(), user.ID, c.Query("query"))
	if err != nil {
		if errors.Is(err, service.ErrValidation) {
			c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
			return
		}
		h.internalError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"results": results})
}

func (h HandlerSet) SearchHistory(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	entries, err := h.photos.History(c.Request.Context(), user.ID)
	if err != nil {
		h.internalError(c, err)
		return
	}

	resp := make([]gin.H, 0, len(entries))
	for _, entry := range entries {
		resp = append(resp, gin.H{
			"id":        entry.ID,
			"query":     entry.Query,
			"type":      entry.Type,
			"timestamp": entry.Timestamp.Format(time.RFC3339),
		})
	}
	c.JSON(http.StatusOK, gin.H{"history": resp})
}

func photoResponse(photo models.Photo) gin.H {
	return gin.H{
		"id":             photo.ID,
		"imageUrl":       photo.ImageURL,
		"description":    photo.Description,
		"altDescription": photo.AltDescription,
		"colorPalette":   photo.ColorPalette,
		"suggestedTags":  photo.SuggestedTags,
		"dateSaved":      photo.DateSaved,
	}
}
