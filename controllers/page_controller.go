package controllers

import (
	"net/http"
	"os"

	"github.com/gin-gonic/gin"

	"github.com/cppla/viewlog/config"
	"github.com/cppla/viewlog/utils"
)

// PageController serves the static-ish pages: menu, video player and the video file.
type PageController struct{}

// NewPageController creates a new PageController instance.
func NewPageController() *PageController {
	return &PageController{}
}

// Index lets the visitor choose between watching and the admin screen.
func (p *PageController) Index(ctx *gin.Context) {
	ctx.HTML(http.StatusOK, "index.tmpl", pageData(nil))
}

// Watch renders the player; the attendance form appears once playback ends.
func (p *PageController) Watch(ctx *gin.Context) {
	ctx.HTML(http.StatusOK, "watch.tmpl", pageData(gin.H{
		"Affiliations": config.Get().Affiliations,
		"VideoURL":     "/video",
		"NameMaxLen":   NameMaxLen,
	}))
}

// Submitted confirms that the record was stored.
func (p *PageController) Submitted(ctx *gin.Context) {
	ctx.HTML(http.StatusOK, "submitted.tmpl", pageData(nil))
}

// Video streams the configured training video.
func (p *PageController) Video(ctx *gin.Context) {
	path := config.Get().VideoPath
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		utils.Sugar.Warnw("video file missing", "path", path)
		utils.PlainError(ctx, http.StatusNotFound, "動画ファイルが見つかりません。")
		return
	}
	ctx.Header("Content-Type", "video/mp4")
	ctx.File(path)
}

// Favicon answers browsers' automatic request with an empty icon.
func (p *PageController) Favicon(ctx *gin.Context) {
	ctx.Data(http.StatusOK, "image/x-icon", []byte{})
}
