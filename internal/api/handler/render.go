package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/timmy/creatorkit/internal/domain"
	"github.com/timmy/creatorkit/internal/render"
)

// RenderHandler renders message lists for display.
type RenderHandler struct {
	renderer *render.Renderer
}

// NewRenderHandler creates a new render handler.
func NewRenderHandler(renderer *render.Renderer) *RenderHandler {
	return &RenderHandler{renderer: renderer}
}

// RenderRequest is the POST /api/v1/render body.
type RenderRequest struct {
	Messages []domain.Message `json:"messages"`
	// Expanded lists message ids whose long text is shown in full.
	Expanded []string         `json:"expanded,omitempty"`
	Viewport *render.Viewport `json:"viewport,omitempty"`
}

// RenderResponse holds the rendered window [Start, End) of the message list.
type RenderResponse struct {
	Total    int                      `json:"total"`
	Start    int                      `json:"start"`
	End      int                      `json:"end"`
	Messages []render.RenderedMessage `json:"messages"`
}

// Render handles POST /api/v1/render.
func (h *RenderHandler) Render(c *gin.Context) {
	var req RenderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	total := len(req.Messages)
	start, end := 0, total
	if req.Viewport != nil {
		start, end = render.VisibleRange(total, *req.Viewport)
	}

	expanded := make(map[string]bool, len(req.Expanded))
	for _, id := range req.Expanded {
		expanded[id] = true
	}

	c.JSON(http.StatusOK, RenderResponse{
		Total:    total,
		Start:    start,
		End:      end,
		Messages: h.renderer.Render(c.Request.Context(), req.Messages[start:end], expanded),
	})
}
