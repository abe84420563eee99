package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/geocoder89/authhub/internal/domain/user"
	"github.com/gin-gonic/gin"
)

// respondProfile sends {"user": p} with a weak validator derived from the
// row version, answering 304 when the client already holds it.
func respondProfile(ctx *gin.Context, p user.Profile, extra gin.H) {
	etag := profileETag(p)

	ctx.Header("ETag", etag)
	ctx.Header("Cache-Control", "private, no-cache")

	if ctx.Request.Method == http.MethodGet && ifNoneMatchMatches(ctx.GetHeader("If-None-Match"), etag) {
		ctx.Status(http.StatusNotModified)
		return
	}

	body := gin.H{"user": p}
	for k, v := range extra {
		body[k] = v
	}

	ctx.JSON(http.StatusOK, body)
}

// the name is the only mutable public field and every write bumps updated_at
func profileETag(p user.Profile) string {
	return `W/"` + strconv.FormatInt(p.ID, 10) + "-" + strconv.FormatInt(p.UpdatedAt.UnixNano(), 36) + `"`
}

func ifNoneMatchMatches(headerValue, currentETag string) bool {
	if strings.TrimSpace(headerValue) == "" {
		return false
	}

	if strings.TrimSpace(headerValue) == "*" {
		return true
	}

	current := normalizeETag(currentETag)

	for _, part := range strings.Split(headerValue, ",") {
		if normalizeETag(part) == current {
			return true
		}
	}

	return false
}

// weak comparison: W/"x" and "x" match
func normalizeETag(raw string) string {
	return strings.TrimPrefix(strings.TrimSpace(raw), "W/")
}
