package controllers

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/cppla/viewlog/config"
	"github.com/cppla/viewlog/middleware"
	"github.com/cppla/viewlog/report"
	"github.com/cppla/viewlog/utils"
)

// AdminController serves the admin screen: range selection, HTML preview and PDF export.
type AdminController struct {
	db      *gorm.DB
	reports *report.Generator
	now     func() time.Time
}

// NewAdminController creates a new AdminController instance.
func NewAdminController(db *gorm.DB, reports *report.Generator) *AdminController {
	return &AdminController{db: db, reports: reports, now: time.Now}
}

// Page renders the range form, defaulting to the current month up to today.
func (a *AdminController) Page(ctx *gin.Context) {
	start, end := monthToDate(a.now().In(config.Location()))
	ctx.HTML(http.StatusOK, "admin.tmpl", pageData(gin.H{
		"Start":       start,
		"End":         end,
		"AuthEnabled": utils.AdminAuthEnabled(),
	}))
}

// Preview renders the range as an HTML table.
func (a *AdminController) Preview(ctx *gin.Context) {
	r, err := parseDateRange(ctx.Query("start"), ctx.Query("end"), config.Location())
	if err != nil {
		renderError(ctx, http.StatusBadRequest, "プレビューでエラーが発生しました："+describeDateError(err), "/admin")
		return
	}

	records, err := fetchRecords(ctx.Request.Context(), a.db, r)
	utils.RecordReport("html", err)
	if err != nil {
		utils.Sugar.Errorw("/admin/preview failed", "error", err)
		renderError(ctx, http.StatusInternalServerError, "プレビューでエラーが発生しました："+err.Error(), "/admin")
		return
	}

	ctx.HTML(http.StatusOK, "preview.tmpl", pageData(gin.H{
		"Start":       r.StartLabel(),
		"End":         r.EndLabel(),
		"Rows":        toReportRows(records, config.Location()),
		"Placeholder": report.PlaceholderText,
	}))
}

// Export streams the range as an A4 portrait PDF attachment.
func (a *AdminController) Export(ctx *gin.Context) {
	r, err := parseDateRange(ctx.Query("start"), ctx.Query("end"), config.Location())
	if err != nil {
		utils.PlainError(ctx, http.StatusBadRequest, "PDF出力でエラーが発生しました："+describeDateError(err))
		return
	}

	records, err := fetchRecords(ctx.Request.Context(), a.db, r)
	if err != nil {
		a.exportFailed(ctx, err)
		return
	}

	var buf bytes.Buffer
	title := report.Title(config.Get().AppTitle, r.StartLabel(), r.EndLabel())
	if err := a.reports.Render(&buf, title, toReportRows(records, config.Location())); err != nil {
		a.exportFailed(ctx, err)
		return
	}
	utils.RecordReport("pdf", nil)

	filename := report.Filename(r.StartLabel(), r.EndLabel())
	ctx.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	ctx.Data(http.StatusOK, "application/pdf", buf.Bytes())
}

func (a *AdminController) exportFailed(ctx *gin.Context, err error) {
	utils.RecordReport("pdf", err)
	utils.Sugar.Errorw("/admin/export failed", "error", err)
	utils.PlainError(ctx, http.StatusInternalServerError, "PDF出力でエラーが発生しました："+err.Error())
}

// LoginPage renders the password form, or skips it when no password is configured.
func (a *AdminController) LoginPage(ctx *gin.Context) {
	if !utils.AdminAuthEnabled() {
		ctx.Redirect(http.StatusSeeOther, "/admin")
		return
	}
	ctx.HTML(http.StatusOK, "login.tmpl", pageData(nil))
}

// Login checks the admin password and issues the session cookie.
func (a *AdminController) Login(ctx *gin.Context) {
	if !utils.AdminAuthEnabled() {
		ctx.Redirect(http.StatusSeeOther, "/admin")
		return
	}
	if !utils.CheckAdminPassword(ctx.PostForm("password")) {
		utils.Sugar.Warnw("admin login failed", "ip", ctx.ClientIP())
		ctx.HTML(http.StatusUnauthorized, "login.tmpl", pageData(gin.H{"Message": "パスワードが違います。"}))
		return
	}

	ttl := time.Duration(config.Get().AdminTokenTTLHours) * time.Hour
	token, err := utils.GenerateAdminToken(ttl)
	if err != nil {
		utils.Sugar.Errorw("failed to issue admin token", "error", err)
		renderError(ctx, http.StatusInternalServerError, "ログインに失敗しました。", "/admin/login")
		return
	}

	ctx.SetSameSite(http.SameSiteLaxMode)
	ctx.SetCookie(middleware.AdminCookieName, token, int(ttl.Seconds()), "/", "", ctx.Request.TLS != nil, true)
	ctx.Redirect(http.StatusSeeOther, "/admin")
}

// Logout clears the session cookie.
func (a *AdminController) Logout(ctx *gin.Context) {
	ctx.SetSameSite(http.SameSiteLaxMode)
	ctx.SetCookie(middleware.AdminCookieName, "", -1, "/", "", ctx.Request.TLS != nil, true)
	ctx.Redirect(http.StatusSeeOther, "/")
}
