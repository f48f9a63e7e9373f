package handlers

import (
	"errors"
	"net/http"
	"time"

	"deltaServer/backend/internal/store"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// DocumentHandler 暴露文档的 REST 面：创建 / 列表 / 按标题查。
// 实时编辑走 WebSocket，这里只管元数据。
type DocumentHandler struct {
	docs *store.DocumentStore
}

func NewDocumentHandler(docs *store.DocumentStore) *DocumentHandler {
	return &DocumentHandler{docs: docs}
}

type createDocumentReq struct {
	Title string `json:"title" binding:"required"`
}

func (h *DocumentHandler) CreateDocument(c *gin.Context) {
	// 鉴权中间件已写入 userId，对每个请求天然隔离
	ownerID := c.GetUint64("userId")
	if ownerID == 0 {
		c.JSON(http.StatusInternalServerError, gin.H{"code": "INTERNAL", "message": "user context missing"})
		return
	}

	var req createDocumentReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "INVALID_ARGUMENT", "message": "title is required"})
		return
	}

	if err := h.docs.CreateDocument(c.Request.Context(), ownerID, req.Title); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"code": "INTERNAL", "message": "create document failed"})
		return
	}

	docID, err := h.docs.GetDocumentID(c.Request.Context(), req.Title)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"code": "INTERNAL", "message": "create document failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"docId":     docID,
		"ownerId":   ownerID,
		"title":     req.Title,
		"createdAt": time.Now().Format(time.RFC3339),
	})
}

func (h *DocumentHandler) ListDocuments(c *gin.Context) {
	ownerID := c.GetUint64("userId")
	if ownerID == 0 {
		c.JSON(http.StatusInternalServerError, gin.H{"code": "INTERNAL", "message": "user context missing"})
		return
	}

	docs, err := h.docs.ListDocuments(c.Request.Context(), ownerID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"code": "INTERNAL", "message": "list documents failed"})
		return
	}

	out := make([]gin.H, 0, len(docs))
	for _, d := range docs {
		out = append(out, gin.H{
			"id":        d.ID,
			"title":     d.Title,
			"ownerId":   d.OwnerID,
			"updatedAt": d.UpdatedAt.Format(time.RFC3339),
		})
	}
	c.JSON(http.StatusOK, gin.H{"documents": out})
}

func (h *DocumentHandler) GetDocumentByTitle(c *gin.Context) {
	title := c.Param("title")
	if title == "" {
		c.JSON(http.StatusBadRequest, gin.H{"code": "INVALID_ARGUMENT", "message": "title is required"})
		return
	}

	docID, err := h.docs.GetDocumentID(c.Request.Context(), title)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"code": "NOT_FOUND", "message": "document not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"code": "INTERNAL", "message": "query document failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"docId": docID, "title": title})
}
