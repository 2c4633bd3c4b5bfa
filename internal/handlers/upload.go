package handlers

import (
	"fmt"
	"net/http"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/thereayou/workspace-relay/internal/handlers/dto"
	"github.com/thereayou/workspace-relay/internal/storage"
)

const uploadField = "myfile"

type UploadHandler struct {
	store   *storage.Store
	baseURL string
	now     func() time.Time
	log     zerolog.Logger
}

func NewUploadHandler(store *storage.Store, baseURL string, log zerolog.Logger) *UploadHandler {
	return &UploadHandler{
		store:   store,
		baseURL: baseURL,
		now:     time.Now,
		log:     log.With().Str("component", "upload").Logger(),
	}
}

// Upload stores a single multipart file and returns the URL it is served at.
func (h *UploadHandler) Upload(c *gin.Context) {
	fileHeader, err := c.FormFile(uploadField)
	if err != nil {
		c.String(http.StatusBadRequest, "No file uploaded.")
		return
	}

	src, err := fileHeader.Open()
	if err != nil {
		c.String(http.StatusInternalServerError, "Failed to open uploaded file")
		return
	}
	defer src.Close()

	ext := filepath.Ext(filepath.Base(fileHeader.Filename))
	name := fmt.Sprintf("%s-%d%s", uploadField, h.now().UnixMilli(), ext)

	size, err := h.store.Save(c.Request.Context(), name, src)
	if err != nil {
		h.log.Error().Err(err).Str("file", name).Msg("failed to save upload")
		c.String(http.StatusInternalServerError, "Failed to save file")
		return
	}

	h.log.Info().Str("file", name).Int64("bytes", size).Msg("file uploaded")
	c.JSON(http.StatusOK, dto.UploadResponse{
		Message: "File uploaded successfully.",
		URL:     h.baseURL + "/uploads/" + name,
	})
}
