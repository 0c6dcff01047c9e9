package http

import (
	"net/http"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ksavkin/SwiftLabel/internal/shared/paths"
)

// ServeImage streams an image file by its catalog ID.
func (h *Handlers) ServeImage(c *gin.Context) {
	id := imageIDParam(c)

	if err := paths.Validate(id, h.engine.WorkingDirectory()); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "INVALID_IMAGE_PATH",
			"message": err.Error(),
			"details": gin.H{"image_id": id},
		})
		return
	}

	full := paths.Resolve(id, h.engine.WorkingDirectory())
	if !h.fs.Exists(full) {
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "IMAGE_NOT_FOUND",
			"message": "image not found: " + id,
			"details": gin.H{"image_id": id},
		})
		return
	}

	mime := paths.MimeType(full)
	if mime == "" {
		detected, err := mimetype.DetectFile(full)
		if err != nil {
			h.logger.Warn("MIME detection failed", zap.String("image", id), zap.Error(err))
			mime = "application/octet-stream"
		} else {
			mime = detected.String()
		}
	}

	c.Header("Content-Type", mime)
	c.Header("Cache-Control", "max-age=3600")
	c.File(full)
}
