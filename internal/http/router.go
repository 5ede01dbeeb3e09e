package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"lexia-auth/internal/service"
)

// RouterDeps agrupa los handlers y middlewares que arma main.
type RouterDeps struct {
	Logger         *zap.Logger
	Authenticator  *Authenticator
	AdminServ      *service.AdminService
	AuthH          *AuthHandler
	OAuthH         *OAuthHandler
	UserH          *UserHandler
	AdminH         *AdminHandler
	HealthH        *HealthHandler
	AllowedOrigins []string
}

// NewRouter configura el router de Gin con middlewares y rutas.
func NewRouter(d RouterDeps) *gin.Engine {
	registerValidators()
	r := gin.New()

	// Middlewares basicos: logging, recovery y JSON content-type.
	r.Use(zapLoggerMiddleware(d.Logger), gin.Recovery(), jsonContentTypeMiddleware())

	requireAuth := d.Authenticator.RequireAuth()

	r.GET("/health", d.HealthH.Health)

	auth := r.Group("/auth")
	auth.POST("/register", d.AuthH.Register)
	auth.POST("/login", d.AuthH.Login)
	auth.GET("/me", requireAuth, d.AuthH.Me)
	auth.POST("/logout", requireAuth, d.AuthH.Logout)
	auth.POST("/verify-email", d.AuthH.VerifyEmail)
	auth.POST("/resend-verification", requireAuth, d.AuthH.ResendVerification)
	auth.GET("/:provider", d.OAuthH.Begin)
	auth.GET("/:provider/callback", d.OAuthH.Callback)

	users := r.Group("/users")
	users.GET("/preferences", d.Authenticator.OptionalAuth(), d.UserH.Preferences)
	users.Use(requireAuth)
	users.GET("/profile", d.UserH.GetProfile)
	users.PUT("/profile", d.UserH.UpdateProfile)
	users.PUT("/accessibility", d.UserH.UpdateAccessibility)
	users.PUT("/password", d.UserH.ChangePassword)
	users.DELETE("/account", d.UserH.DeleteAccount)
	users.GET("/stats", d.UserH.Stats)

	admin := r.Group("/admin", AdminAuth(d.Logger, d.AdminServ))
	admin.GET("/users", d.AdminH.ListUsers)
	admin.GET("/users/by-type/:type", d.AdminH.ListByType)
	admin.GET("/users/:id", d.AdminH.GetUser)
	admin.GET("/user-types", d.AdminH.UserTypes)
	admin.GET("/stats", d.AdminH.Stats)
	admin.GET("/search", d.AdminH.Search)

	return r
}

// WithCORS envuelve el engine para la SPA; las redirecciones OAuth no dependen de CORS.
func WithCORS(h http.Handler, origins []string) http.Handler {
	return cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", adminEmailHeader},
		AllowCredentials: true,
		MaxAge:           300,
	})(h)
}

// zapLoggerMiddleware crea un middleware simple de logging con zap.
func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)
		logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", latency),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}

// jsonContentTypeMiddleware fuerza Content-Type: application/json en responses.
func jsonContentTypeMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Content-Type", "application/json")
		c.Next()
	}
}
