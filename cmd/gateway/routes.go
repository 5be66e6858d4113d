package main

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"sipproxy-client/internal/httpapi"
	"sipproxy-client/internal/rbac"
	"sipproxy-client/pkg/utils"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// Keep this file free of business logic. Handlers delegate to the provider client.

// registerPublicRoutes mounts /healthz. db and rdb may be nil when not configured.
func registerPublicRoutes(r *gin.Engine, db *sql.DB, rdb *redis.Client) {
	r.GET("/healthz", func(c *gin.Context) {
		deps := gin.H{}
		healthy := true
		if db != nil {
			if err := utils.HealthCheck(c.Request.Context(), db, 2*time.Second); err != nil {
				deps["postgres"] = err.Error()
				healthy = false
			} else {
				deps["postgres"] = "ok"
			}
		}
		if rdb != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			err := rdb.Ping(ctx).Err()
			cancel()
			if err != nil {
				deps["redis"] = err.Error()
				healthy = false
			} else {
				deps["redis"] = "ok"
			}
		}
		if !healthy {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "deps": deps})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok", "deps": deps})
	})
}

func registerProviderRoutes(r *gin.Engine, authMW gin.HandlerFunc, h httpapi.Handlers) {
	v1 := r.Group("/v1")
	v1.Use(authMW)
	v1.Use(rbac.RequireWorkspace())

	providers := v1.Group("/providers")
	{
		read := providers.Group("", rbac.RequireAnyRole(rbac.ReadRoles...))
		read.GET("", h.ListProviders)
		read.GET("/:ref", h.GetProvider)

		write := providers.Group("", rbac.RequireAnyRole(rbac.WriteRoles...), h.LimitMutations())
		write.POST("", h.CreateProvider)
		write.PATCH("/:ref", h.UpdateProvider)
		write.DELETE("/:ref", h.DeleteProvider)
	}
}
