package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// weakETag derives a weak validator for a list resource from its cheap stats:
// row count plus the newest update timestamp. Any insert, delete, or touch
// changes the tag.
func weakETag(scope, key string, count int64, maxTS *time.Time) string {
	var ts int64
	if maxTS != nil {
		ts = maxTS.Unix()
	}
	return fmt.Sprintf(`W/"%s:%s:%d:%d"`, scope, key, count, ts)
}

// writeETag sets the ETag header and reports whether the client's
// If-None-Match already matches, in which case a 304 has been written.
func writeETag(c *gin.Context, etag string) (notModified bool) {
	c.Header("ETag", etag)
	if c.GetHeader("If-None-Match") == etag {
		c.Status(http.StatusNotModified)
		return true
	}
	return false
}
