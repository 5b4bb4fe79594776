package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/cppla/viewlog/utils"
)

// AdminCookieName carries the admin session JWT.
const AdminCookieName = "admin_token"

// AdminRequired guards admin pages when an admin password is configured.
// Browsers are redirected to the login form; API callers get a JSON 401.
func AdminRequired() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if !utils.AdminAuthEnabled() {
			ctx.Next()
			return
		}

		token, err := ctx.Cookie(AdminCookieName)
		if err == nil && token != "" {
			if _, err := utils.ParseAdminToken(token); err == nil {
				ctx.Next()
				return
			}
		}

		if strings.HasPrefix(ctx.Request.URL.Path, "/api/") {
			utils.Error(ctx, http.StatusUnauthorized, 40101, "admin login required")
			ctx.Abort()
			return
		}
		ctx.Redirect(http.StatusSeeOther, "/admin/login")
		ctx.Abort()
	}
}
