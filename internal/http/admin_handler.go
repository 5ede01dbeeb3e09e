package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"lexia-auth/internal/domain"
	"lexia-auth/internal/service"
)

// AdminHandler expone las consultas del visor de base de datos.
type AdminHandler struct {
	responder
	adminServ *service.AdminService
}

func NewAdminHandler(logger *zap.Logger, adminServ *service.AdminService, dev bool) *AdminHandler {
	return &AdminHandler{
		responder: responder{logger: logger, dev: dev},
		adminServ: adminServ,
	}
}

// ListUsers maneja GET /admin/users.
func (h *AdminHandler) ListUsers(c *gin.Context) {
	users, err := h.adminServ.ListUsers(c.Request.Context())
	if err != nil {
		h.fail(c, "admin list users", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(users), "users": publicUsers(users)})
}

// ListByType maneja GET /admin/users/by-type/:type.
func (h *AdminHandler) ListByType(c *gin.Context) {
	userType := domain.UserType(c.Param("type"))
	users, err := h.adminServ.ListByType(c.Request.Context(), userType)
	if err != nil {
		h.fail(c, "admin list by type", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"userType": userType, "count": len(users), "users": publicUsers(users)})
}

// UserTypes maneja GET /admin/user-types.
func (h *AdminHandler) UserTypes(c *gin.Context) {
	summary, err := h.adminServ.UserTypeSummary(c.Request.Context())
	if err != nil {
		h.fail(c, "admin user types", err)
		return
	}
	if summary == nil {
		summary = []domain.UserTypeSummary{}
	}
	c.JSON(http.StatusOK, gin.H{"userTypes": summary})
}

// GetUser maneja GET /admin/users/:id.
func (h *AdminHandler) GetUser(c *gin.Context) {
	user, err := h.adminServ.GetUser(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, "admin get user", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": publicUser(user)})
}

// Stats maneja GET /admin/stats.
func (h *AdminHandler) Stats(c *gin.Context) {
	stats, err := h.adminServ.Stats(c.Request.Context())
	if err != nil {
		h.fail(c, "admin stats", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"totalUsers":      stats.TotalUsers,
		"verifiedUsers":   stats.VerifiedUsers,
		"unverifiedUsers": stats.TotalUsers - stats.VerifiedUsers,
		"activeUsers":     stats.ActiveUsers,
		"usersByType":     nonNilTypes(stats.ByType),
		"socialAccounts":  nonNilProviders(stats.BySocial),
		"recentUsers":     publicUsers(stats.Recent),
	})
}

// Search maneja GET /admin/search?q=&type=&verified=.
func (h *AdminHandler) Search(c *gin.Context) {
	filter := service.SearchFilter{
		Term:     c.Query("q"),
		UserType: domain.UserType(c.Query("type")),
	}
	if raw, ok := c.GetQuery("verified"); ok {
		verified, err := strconv.ParseBool(raw)
		if err != nil {
			writeValidation(c, []service.FieldError{{Field: "verified", Message: "verified must be true or false"}})
			return
		}
		filter.Verified = &verified
	}
	users, err := h.adminServ.Search(c.Request.Context(), filter)
	if err != nil {
		h.fail(c, "admin search", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(users), "users": publicUsers(users)})
}

func nonNilTypes(v []domain.UserTypeSummary) []domain.UserTypeSummary {
	if v == nil {
		return []domain.UserTypeSummary{}
	}
	return v
}

func nonNilProviders(v []domain.ProviderCount) []domain.ProviderCount {
	if v == nil {
		return []domain.ProviderCount{}
	}
	return v
}
