package memoir

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/memoir-press/internal/auth"
)

// ListHandler は GET /api/pdf/list のハンドラーを返します。
func ListHandler(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		ownerID := c.GetString(auth.ContextUserKey)

		artifacts, err := svc.ListArtifacts(ownerID)
		if err != nil {
			respondWithError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"pdfs": artifacts})
	}
}

// DeleteHandler は DELETE /api/pdf/file/:fileName のハンドラーを返します。
func DeleteHandler(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		ownerID := c.GetString(auth.ContextUserKey)
		fileName := strings.TrimSpace(c.Param("fileName"))
		if fileName == "" {
			c.JSON(http.StatusBadRequest, gin.H{
				"code":    "INVALID_INPUT",
				"message": "请指定要删除的文件名",
			})
			return
		}

		if err := svc.DeleteArtifact(ownerID, fileName); err != nil {
			respondWithError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "PDF 已删除"})
	}
}

// respondWithError はドメインエラーをHTTPレスポンスへ対応付けます。
func respondWithError(c *gin.Context, err error) {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		status := http.StatusInternalServerError
		switch apiErr.Code {
		case "PDF_NOT_FOUND":
			status = http.StatusNotFound
		case "INVALID_INPUT":
			status = http.StatusBadRequest
		}
		c.JSON(status, gin.H{
			"code":    apiErr.Code,
			"message": apiErr.Message,
		})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{
		"code":    "INTERNAL_ERROR",
		"message": "服务器内部错误",
	})
}
