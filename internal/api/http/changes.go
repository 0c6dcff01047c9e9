package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// LabelRequest is the label command body.
type LabelRequest struct {
	ImageID    string `json:"image_id" binding:"required"`
	ClassIndex *int   `json:"class_index" binding:"required"`
}

// DeleteRequest is the delete command body.
type DeleteRequest struct {
	ImageID string `json:"image_id" binding:"required"`
}

// Label assigns a class to an image
func (h *Handlers) Label(c *gin.Context) {
	var req LabelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "INVALID_REQUEST", "message": err.Error()})
		return
	}

	res, err := h.engine.LabelImage(req.ImageID, *req.ClassIndex)
	if err != nil {
		commandError(c, err)
		return
	}

	h.metrics.RecordLabel()
	h.events.Broadcast("image_labeled", res)

	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"image_id":    res.ImageID,
		"class_index": res.ClassIndex,
		"class_name":  res.ClassName,
	})
}

// Delete marks an image for deletion
func (h *Handlers) Delete(c *gin.Context) {
	var req DeleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "INVALID_REQUEST", "message": err.Error()})
		return
	}

	if err := h.engine.DeleteImage(req.ImageID); err != nil {
		commandError(c, err)
		return
	}

	h.metrics.RecordDeletion()
	h.events.Broadcast("image_deleted", gin.H{"image_id": req.ImageID})

	c.JSON(http.StatusOK, gin.H{"success": true, "image_id": req.ImageID})
}

// Undo reverses the most recent command
func (h *Handlers) Undo(c *gin.Context) {
	res, err := h.engine.Undo()
	if err != nil {
		commandError(c, err)
		return
	}

	h.metrics.RecordUndo()
	h.events.Broadcast("undo_completed", gin.H{
		"undone_action": res.UndoneAction,
		"image_id":      res.ImageID,
	})

	c.JSON(http.StatusOK, gin.H{
		"success":       true,
		"undone_action": res.UndoneAction,
		"image_id":      res.ImageID,
		"message":       res.Message,
	})
}

// PreviewChanges returns the staged moves and deletes
func (h *Handlers) PreviewChanges(c *gin.Context) {
	c.JSON(http.StatusOK, h.engine.GetPreview())
}

// CommitChanges applies all staged changes to the filesystem
func (h *Handlers) CommitChanges(c *gin.Context) {
	res, err := h.engine.Commit(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	h.metrics.RecordCommit(res.Success, res.MovesCompleted, res.DeletesCompleted)
	h.events.Broadcast("changes_committed", gin.H{
		"moves_count":   res.MovesCompleted,
		"deletes_count": res.DeletesCompleted,
		"errors":        res.Errors,
	})

	c.JSON(http.StatusOK, res)
}

// CountChanges returns the pending-change count with a breakdown
func (h *Handlers) CountChanges(c *gin.Context) {
	preview := h.engine.GetPreview()
	c.JSON(http.StatusOK, gin.H{
		"user_changes_count": preview.TotalChanges,
		"has_changes":        preview.TotalChanges > 0,
		"breakdown": gin.H{
			"moves":     len(preview.Moves),
			"deletions": len(preview.Deletes),
		},
	})
}

// DiffChanges returns the per-image label diff against the baseline
func (h *Handlers) DiffChanges(c *gin.Context) {
	c.JSON(http.StatusOK, h.engine.GetChangeDiff())
}

// MetricsSummary returns current metric values as JSON
func (h *Handlers) MetricsSummary(c *gin.Context) {
	c.JSON(http.StatusOK, h.metrics.GetSnapshot())
}
