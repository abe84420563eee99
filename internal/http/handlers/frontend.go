package handlers

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
)

const indexPage = "/templates/index.html"

// FrontendHandler serves the login/profile pages shipped next to the API.
type FrontendHandler struct {
	templatesDir string
}

func NewFrontendHandler(templatesDir string) *FrontendHandler {
	return &FrontendHandler{templatesDir: templatesDir}
}

// GET /templates/:page
func (h *FrontendHandler) Page(ctx *gin.Context) {
	page := ctx.Param("page")

	if page == "" || strings.HasPrefix(page, ".") || strings.ContainsAny(page, `/\`) || filepath.Base(page) != page {
		RespondNotFound(ctx, "Page not found")
		return
	}

	f, err := os.Open(filepath.Join(h.templatesDir, page))
	if err != nil {
		RespondNotFound(ctx, "Page not found")
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil || info.IsDir() {
		RespondNotFound(ctx, "Page not found")
		return
	}

	// ServeContent, unlike ServeFile, never redirects ".../index.html" to "./"
	http.ServeContent(ctx.Writer, ctx.Request, page, info.ModTime(), f)
}

// GET /
func RedirectToIndex(ctx *gin.Context) {
	ctx.Redirect(http.StatusFound, indexPage)
}
