package folder

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/abduss/foldershare/internal/auth"
	"github.com/abduss/foldershare/internal/logger"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// FileLister lists the files held directly by one of the owner's folders.
type FileLister interface {
	FolderFiles(ctx context.Context, ownerID, folderID uuid.UUID) ([]FileSummary, error)
}

// RegisterRoutes mounts folder endpoints onto the router. files may be nil, in
// which case folder views carry no files.
func RegisterRoutes(group *gin.RouterGroup, service *Service, files FileLister, log *zap.Logger) {
	if log == nil {
		log = zap.NewNop()
	}
	handler := &httpHandler{service: service, files: files, log: log}
	group.POST("/folders", handler.createFolder)
	group.GET("/folders", handler.listFolders)
	group.GET("/folders/:folderID", handler.getFolder)
	group.DELETE("/folders/:folderID", handler.deleteFolder)
}

type httpHandler struct {
	service *Service
	files   FileLister
	log     *zap.Logger
}

type createFolderRequest struct {
	Name     string  `json:"name"`
	ParentID *string `json:"parent_id"`
}

type folderView struct {
	Folder   Folder        `json:"folder"`
	Children []Folder      `json:"children"`
	Files    []FileSummary `json:"files"`
}

func (h *httpHandler) createFolder(c *gin.Context) {
	userID, _, ok := auth.RequireUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req createFolderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	var parentID *uuid.UUID
	if req.ParentID != nil && strings.TrimSpace(*req.ParentID) != "" {
		parsed, err := uuid.Parse(strings.TrimSpace(*req.ParentID))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid parent id"})
			return
		}
		parentID = &parsed
	}

	folder, err := h.service.CreateFolder(c.Request.Context(), userID, req.Name, parentID)
	if err != nil {
		h.writeError(c, err, "failed to create folder")
		return
	}

	c.JSON(http.StatusCreated, folder)
}

func (h *httpHandler) listFolders(c *gin.Context) {
	userID, _, ok := auth.RequireUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var parentID *uuid.UUID
	if raw := c.Query("parent_id"); raw != "" {
		parsed, err := uuid.Parse(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid parent id"})
			return
		}
		parentID = &parsed
	}

	folders, err := h.service.ListChildren(c.Request.Context(), userID, parentID)
	if err != nil {
		h.writeError(c, err, "failed to list folders")
		return
	}

	c.JSON(http.StatusOK, gin.H{"folders": folders})
}

func (h *httpHandler) getFolder(c *gin.Context) {
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

	folder, err := h.service.GetFolder(c.Request.Context(), userID, folderID)
	if err != nil {
		h.writeError(c, err, "failed to fetch folder")
		return
	}

	children, err := h.service.ListChildren(c.Request.Context(), userID, &folder.ID)
	if err != nil {
		h.writeError(c, err, "failed to fetch folder")
		return
	}

	files := make([]FileSummary, 0)
	if h.files != nil {
		files, err = h.files.FolderFiles(c.Request.Context(), userID, folder.ID)
		if err != nil {
			h.writeError(c, err, "failed to fetch folder")
			return
		}
	}

	c.JSON(http.StatusOK, folderView{Folder: folder, Children: children, Files: files})
}

func (h *httpHandler) deleteFolder(c *gin.Context) {
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

	if err := h.service.DeleteFolder(c.Request.Context(), userID, folderID); err != nil {
		h.writeError(c, err, "failed to delete folder")
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *httpHandler) writeError(c *gin.Context, err error, message string) {
	switch {
	case errors.Is(err, ErrFolderNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "folder not found"})
	case errors.Is(err, ErrInvalidName):
		c.JSON(http.StatusBadRequest, gin.H{"error": strings.TrimPrefix(err.Error(), ErrInvalidName.Error()+": ")})
	default:
		logger.For(h.log, c).Error(message, zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": message})
	}
}
