package share

import (
	"errors"
	"net/http"
	"time"

	"github.com/abduss/foldershare/internal/auth"
	"github.com/abduss/foldershare/internal/file"
	"github.com/abduss/foldershare/internal/folder"
	"github.com/abduss/foldershare/internal/logger"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RegisterRoutes mounts owner share management on protected and the token
// routes on public.
func RegisterRoutes(protected, public *gin.RouterGroup, service *Service, log *zap.Logger) {
	if log == nil {
		log = zap.NewNop()
	}
	handler := &httpHandler{service: service, log: log}

	protected.POST("/folders/:folderID/shares", handler.createShare)
	protected.GET("/folders/:folderID/shares", handler.listShares)

	public.GET("/share/:token", handler.resolveShare)
	public.GET("/share/:token/files/:fileID/download", handler.downloadSharedFile)
	public.GET("/share/:token/qr.png", handler.qrCode)
}

type httpHandler struct {
	service *Service
	log     *zap.Logger
}

type shareResponse struct {
	Share
	URL    string `json:"url"`
	Status string `json:"status"`
}

type publicFolder struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

type publicFile struct {
	ID           uuid.UUID `json:"id"`
	OriginalName string    `json:"original_name"`
	SizeBytes    int64     `json:"size_bytes"`
	ContentType  string    `json:"content_type"`
	CreatedAt    time.Time `json:"created_at"`
}

type resolveResponse struct {
	Status    string       `json:"status"`
	ExpiresAt time.Time    `json:"expires_at"`
	Folder    publicFolder `json:"folder"`
	Files     []publicFile `json:"files"`
}

func (h *httpHandler) createShare(c *gin.Context) {
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

	days := h.service.ParseDays(c.Query("days"))
	sh, err := h.service.CreateShare(c.Request.Context(), userID, folderID, days)
	if err != nil {
		h.writeError(c, err, "failed to create share")
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"share": h.present(sh),
		"days":  days,
	})
}

func (h *httpHandler) listShares(c *gin.Context) {
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

	shares, err := h.service.ListShares(c.Request.Context(), userID, folderID)
	if err != nil {
		h.writeError(c, err, "failed to list shares")
		return
	}

	out := make([]shareResponse, 0, len(shares))
	for _, sh := range shares {
		out = append(out, h.present(sh))
	}
	c.JSON(http.StatusOK, gin.H{"shares": out})
}

func (h *httpHandler) resolveShare(c *gin.Context) {
	shared, err := h.service.Resolve(c.Request.Context(), c.Param("token"))
	if err != nil {
		if errors.Is(err, ErrShareExpired) {
			c.JSON(http.StatusGone, gin.H{"status": StatusExpired, "expires_at": shared.Share.ExpiresAt})
			return
		}
		h.writeError(c, err, "failed to open share")
		return
	}

	files := make([]publicFile, 0, len(shared.Files))
	for _, meta := range shared.Files {
		files = append(files, publicFile{
			ID:           meta.ID,
			OriginalName: meta.OriginalName,
			SizeBytes:    meta.SizeBytes,
			ContentType:  meta.ContentType,
			CreatedAt:    meta.CreatedAt,
		})
	}

	c.JSON(http.StatusOK, resolveResponse{
		Status:    StatusActive,
		ExpiresAt: shared.Share.ExpiresAt,
		Folder: publicFolder{
			ID:        shared.Folder.ID,
			Name:      shared.Folder.Name,
			CreatedAt: shared.Folder.CreatedAt,
		},
		Files: files,
	})
}

func (h *httpHandler) downloadSharedFile(c *gin.Context) {
	fileID, err := uuid.Parse(c.Param("fileID"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "file not found"})
		return
	}

	meta, loc, err := h.service.DownloadSharedFile(c.Request.Context(), c.Param("token"), fileID)
	if err != nil {
		h.writeError(c, err, "failed to download file")
		return
	}

	if err := file.WriteDownload(c, h.service, meta, loc); err != nil {
		logger.For(h.log, c).Error("stream shared file", zap.String("file_id", meta.ID.String()), zap.Error(err))
	}
}

func (h *httpHandler) qrCode(c *gin.Context) {
	png, err := h.service.QRCode(c.Request.Context(), c.Param("token"))
	if err != nil {
		h.writeError(c, err, "failed to render qr code")
		return
	}
	c.Data(http.StatusOK, "image/png", png)
}

func (h *httpHandler) present(sh Share) shareResponse {
	return shareResponse{
		Share:  sh,
		URL:    h.service.URL(sh.Token),
		Status: sh.Status(h.service.nowFunc()),
	}
}

func (h *httpHandler) writeError(c *gin.Context, err error, message string) {
	switch {
	case errors.Is(err, ErrShareExpired):
		c.JSON(http.StatusGone, gin.H{"status": StatusExpired})
	case errors.Is(err, ErrShareNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "share not found"})
	case errors.Is(err, folder.ErrFolderNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "folder not found"})
	default:
		logger.For(h.log, c).Error(message, zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": message})
	}
}
