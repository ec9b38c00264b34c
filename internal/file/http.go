package file

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"

	"github.com/abduss/foldershare/internal/auth"
	"github.com/abduss/foldershare/internal/blob"
	"github.com/abduss/foldershare/internal/folder"
	"github.com/abduss/foldershare/internal/logger"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// multipartOverhead leaves room for boundaries and form fields around the file part.
const multipartOverhead = 1 << 20

// RegisterRoutes mounts file operations under the provided router group.
func RegisterRoutes(group *gin.RouterGroup, service *Service, log *zap.Logger) {
	if log == nil {
		log = zap.NewNop()
	}
	handler := &httpHandler{service: service, log: log}
	group.POST("/folders/:folderID/files", handler.uploadFile)
	group.GET("/folders/:folderID/files", handler.listFolderFiles)
	group.GET("/files", handler.listFiles)
	group.GET("/files/:fileID", handler.getFile)
	group.GET("/files/:fileID/download", handler.downloadFile)
	group.DELETE("/files/:fileID", handler.deleteFile)
}

type httpHandler struct {
	service *Service
	log     *zap.Logger
}

func (h *httpHandler) uploadFile(c *gin.Context) {
	userID, _, ok := auth.RequireUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	folderID, err := uuid.Parse(c.Param("folderID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid folder id"})
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.service.maxFileSize+multipartOverhead)
	fileHeader, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "file too large"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "file field is required"})
		return
	}

	meta, err := h.service.Upload(c.Request.Context(), userID, folderID, fileHeader)
	if err != nil {
		h.writeError(c, err, "failed to upload file")
		return
	}

	c.JSON(http.StatusCreated, meta)
}

func (h *httpHandler) listFolderFiles(c *gin.Context) {
	userID, _, ok := auth.RequireUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	folderID, err := uuid.Parse(c.Param("folderID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid folder id"})
		return
	}

	h.respondWithList(c, userID, &folderID)
}

func (h *httpHandler) listFiles(c *gin.Context) {
	userID, _, ok := auth.RequireUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var folderID *uuid.UUID
	if raw := c.Query("folder_id"); raw != "" {
		parsed, err := uuid.Parse(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid folder id"})
			return
		}
		folderID = &parsed
	}

	h.respondWithList(c, userID, folderID)
}

func (h *httpHandler) respondWithList(c *gin.Context, userID uuid.UUID, folderID *uuid.UUID) {
	list, err := h.service.List(c.Request.Context(), userID, folderID)
	if err != nil {
		h.writeError(c, err, "failed to list files")
		return
	}
	c.JSON(http.StatusOK, gin.H{"files": list})
}

func (h *httpHandler) getFile(c *gin.Context) {
	userID, _, ok := auth.RequireUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	fileID, err := uuid.Parse(c.Param("fileID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid file id"})
		return
	}

	meta, err := h.service.Get(c.Request.Context(), userID, fileID)
	if err != nil {
		h.writeError(c, err, "failed to fetch file")
		return
	}
	c.JSON(http.StatusOK, meta)
}

func (h *httpHandler) downloadFile(c *gin.Context) {
	userID, _, ok := auth.RequireUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	fileID, err := uuid.Parse(c.Param("fileID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid file id"})
		return
	}

	meta, loc, err := h.service.Download(c.Request.Context(), userID, fileID)
	if err != nil {
		h.writeError(c, err, "failed to download file")
		return
	}

	if err := WriteDownload(c, h.service, meta, loc); err != nil {
		logger.For(h.log, c).Error("stream file", zap.String("file_id", meta.ID.String()), zap.Error(err))
	}
}

func (h *httpHandler) deleteFile(c *gin.Context) {
	userID, _, ok := auth.RequireUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	fileID, err := uuid.Parse(c.Param("fileID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid file id"})
		return
	}

	if err := h.service.Delete(c.Request.Context(), userID, fileID); err != nil {
		h.writeError(c, err, "failed to delete file")
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *httpHandler) writeError(c *gin.Context, err error, message string) {
	switch {
	case errors.Is(err, ErrFileNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "file not found"})
	case errors.Is(err, folder.ErrFolderNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "folder not found"})
	case errors.Is(err, ErrFileTooLarge):
		c.JSON(http.StatusBadRequest, gin.H{"error": "file too large"})
	case errors.Is(err, ErrUnsupportedType):
		c.JSON(http.StatusBadRequest, gin.H{"error": "file type not allowed"})
	case errors.Is(err, ErrMissingPayload):
		c.JSON(http.StatusBadRequest, gin.H{"error": "file field is required"})
	default:
		logger.For(h.log, c).Error(message, zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": message})
	}
}

// Opener streams stored bytes by key.
type Opener interface {
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// WriteDownload redirects to loc.URL when the backend issued one, otherwise it
// streams the object through the response.
func WriteDownload(c *gin.Context, opener Opener, meta Metadata, loc blob.Locator) error {
	if loc.URL != "" {
		c.Redirect(http.StatusFound, loc.URL)
		return nil
	}

	reader, err := opener.Open(c.Request.Context(), loc.Key)
	if err != nil {
		if errors.Is(err, blob.ErrObjectNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "file not found"})
			return nil
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to download file"})
		return fmt.Errorf("open object: %w", err)
	}
	defer reader.Close()

	c.Header("Content-Type", meta.ContentType)
	c.Header("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": meta.OriginalName}))
	c.Header("Content-Length", strconv.FormatInt(meta.SizeBytes, 10))
	c.Status(http.StatusOK)

	if _, err := io.Copy(c.Writer, reader); err != nil {
		return fmt.Errorf("copy object: %w", err)
	}
	return nil
}
