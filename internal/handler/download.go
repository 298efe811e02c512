package handler

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const (
	csvContentType  = "text/csv; charset=utf-8"
	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// sendFile answers with data as an attachment named <base>_export_<timestamp>.<ext>.
func sendFile(c *gin.Context, base, ext, contentType string, data []byte) {
	name := fmt.Sprintf("%s_export_%s.%s", base, time.Now().UTC().Format("20060102_150405"), ext)
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, name))
	c.Data(http.StatusOK, contentType, data)
}
