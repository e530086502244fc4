package rbac

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"telecrm/internal/auth"

	"github.com/gin-gonic/gin"
)

func serveWithRole(role string, mw gin.HandlerFunc) int {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.GET("/x", func(c *gin.Context) {
		if role != "" {
			ctx := auth.WithIdentity(c.Request.Context(), "u", role)
			c.Request = c.Request.WithContext(ctx)
		}
		c.Next()
	}, mw, func(c *gin.Context) {
		c.Status(200)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
	return w.Code
}

func TestRequireAnyRole_SysAdminBypasses(t *testing.T) {
	if code := serveWithRole(RoleSysAdmin, RequireAnyRole(RoleOwner)); code != 200 {
		t.Fatalf("expected 200, got %d", code)
	}
}

func TestRequireAnyRole_DeniesOtherRoles(t *testing.T) {
	if code := serveWithRole(RoleSalesperson, RequireAnyRole(RoleHeadOffice, RoleOwner)); code != 403 {
		t.Fatalf("expected 403, got %d", code)
	}
}

func TestRequireAnyRole_RoleRequired(t *testing.T) {
	if code := serveWithRole("", RequireAnyRole(RoleHeadOffice)); code != 401 {
		t.Fatalf("expected 401, got %d", code)
	}
}

func TestCanManageDevices(t *testing.T) {
	if !CanManageDevices(RoleHeadOffice) || !CanManageDevices(RoleSysAdmin) {
		t.Fatalf("expected head office and sysadmin to manage devices")
	}
	if CanManageDevices(RoleOwner) || CanManageDevices("") {
		t.Fatalf("owner and anonymous must not manage devices")
	}
}
