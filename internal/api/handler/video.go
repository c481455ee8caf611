package handler

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/timmy/creatorkit/internal/auth"
	"github.com/timmy/creatorkit/internal/domain"
	"github.com/timmy/creatorkit/internal/service"
)

// VideoHandler handles video analysis and per-video data endpoints.
type VideoHandler struct {
	videos       *service.VideoService
	images       *service.ImageService
	analysisPath string
}

// NewVideoHandler creates a new video handler.
//
// Parameters:
//   - videos: video service instance.
//   - images: image service instance.
//   - analysisPath: redirect target format taking the video id.
//
// Returns:
//   - *VideoHandler: initialized handler.
func NewVideoHandler(videos *service.VideoService, images *service.ImageService, analysisPath string) *VideoHandler {
	return &VideoHandler{
		videos:       videos,
		images:       images,
		analysisPath: analysisPath,
	}
}

// Analyze handles POST /analyze with form fields url and optional userId.
// A userId that differs from the authenticated caller is rejected.
func (h *VideoHandler) Analyze(c *gin.Context) {
	ctx := c.Request.Context()
	rawURL := c.PostForm("url")
	formUserID := c.PostForm("userId")

	callerID, authenticated := auth.UserIDFromContext(ctx)
	userID := callerID
	if formUserID != "" {
		if !authenticated || formUserID != callerID {
			c.JSON(http.StatusForbidden, gin.H{"error": "userId does not match the signed-in user"})
			return
		}
		userID = formUserID
	}

	videoID, err := h.videos.Analyze(ctx, userID, rawURL)
	if err != nil {
		respondError(c, err)
		return
	}

	c.Redirect(http.StatusSeeOther, fmt.Sprintf(h.analysisPath, url.PathEscape(videoID)))
}

// VideoListResponse is the GET /api/v1/videos payload.
type VideoListResponse struct {
	Videos []domain.Video `json:"videos"`
	Total  int64          `json:"total"`
}

// ListVideos handles GET /api/v1/videos.
func (h *VideoHandler) ListVideos(c *gin.Context) {
	userID, _ := auth.UserIDFromContext(c.Request.Context())

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	videos, total, err := h.videos.List(c.Request.Context(), userID, limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, VideoListResponse{Videos: videos, Total: total})
}

// GetVideo handles GET /api/v1/videos/:videoId.
func (h *VideoHandler) GetVideo(c *gin.Context) {
	userID, _ := auth.UserIDFromContext(c.Request.Context())

	overview, err := h.videos.Overview(c.Request.Context(), userID, c.Param("videoId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, overview)
}

// ListImages handles GET /api/v1/videos/:videoId/images.
func (h *VideoHandler) ListImages(c *gin.Context) {
	userID, _ := auth.UserIDFromContext(c.Request.Context())

	images, err := h.images.List(c.Request.Context(), userID, c.Param("videoId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"images": images})
}

// DeleteImage handles DELETE /api/v1/videos/:videoId/images/:imageId.
func (h *VideoHandler) DeleteImage(c *gin.Context) {
	userID, _ := auth.UserIDFromContext(c.Request.Context())

	if err := h.images.Delete(c.Request.Context(), userID, c.Param("videoId"), c.Param("imageId")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
