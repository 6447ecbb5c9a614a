package bootstrap

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/warranty-tracker/warranty-client/internal/auth"
	"github.com/warranty-tracker/warranty-client/internal/auth/middleware"
	"github.com/warranty-tracker/warranty-client/internal/devserver"
)

type RouterDeps struct {
	ServiceName string
	Version     string
	// Verifier checks bearer tokens. Nil disables auth and trusts X-User-Id.
	Verifier middleware.TokenVerifier
	AuthMode string
	Server   *devserver.Server
}

func BuildRouter(dep RouterDeps) *gin.Engine {
	r := gin.Default()

	corsCfg := cors.DefaultConfig()
	corsCfg.AllowAllOrigins = true
	corsCfg.AllowHeaders = append(corsCfg.AllowHeaders, "Authorization", "X-Request-Id", "X-User-Id")
	corsCfg.ExposeHeaders = []string{"X-Request-Id"}
	r.Use(cors.New(corsCfg))
	r.Use(devserver.RequestIDMiddleware())

	healthHandler := devserver.NewHealthHandler(dep.ServiceName, dep.Version, dep.AuthMode)
	healthHandler.RegisterRoutes(r)

	api := r.Group("/api")
	protected := api.Group("")
	if dep.Verifier != nil {
		protected.Use(middleware.FirebaseAuthMiddleware(dep.Verifier))
	} else {
		protected.Use(auth.OptionalUser())
	}

	dep.Server.Register(api, protected)

	return r
}
