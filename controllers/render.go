package controllers

import (
	"github.com/gin-gonic/gin"

	"github.com/cppla/viewlog/config"
)

// pageData adds the shared layout fields to a template payload.
func pageData(data gin.H) gin.H {
	out := gin.H{"Title": config.Get().AppTitle}
	for k, v := range data {
		out[k] = v
	}
	return out
}

// renderError shows message on the error page with a link back to back.
func renderError(ctx *gin.Context, status int, message, back string) {
	ctx.HTML(status, "error.tmpl", pageData(gin.H{"Message": message, "Back": back}))
}
