package api

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func SetupRouter(handler *Handler, isDebug bool) *gin.Engine {
	var r *gin.Engine
	if isDebug {
		gin.SetMode(gin.DebugMode)
		r = gin.Default()
	} else {
		gin.SetMode(gin.ReleaseMode)
		r = gin.New()
		r.Use(gin.Recovery())
	}

	// Trace id first, so everything downstream logs with it.
	r.Use(TraceIDMiddleware())

	r.Use(cors.New(cors.Config{
		AllowAllOrigins:  true,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "X-Trace-ID"},
		ExposeHeaders:    []string{"Content-Length", "X-Trace-ID"},
		AllowCredentials: false,
	}))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api/v1")
	{
		browser := api.Group("/browser")
		{
			browser.POST("/start", handler.StartBrowser)
			browser.POST("/stop", handler.StopBrowser)
			browser.GET("/status", handler.BrowserStatus)
			browser.GET("/content", handler.PageContent)
			browser.POST("/downloads/wait", handler.WaitDownload)
		}

		scripts := api.Group("/scripts")
		{
			scripts.GET("", handler.ListScripts)
			scripts.GET("/:id", handler.GetScript)
			scripts.POST("", handler.CreateScript)
			scripts.PUT("/:id", handler.UpdateScript)
			scripts.DELETE("/:id", handler.DeleteScript)
			scripts.POST("/:id/play", handler.PlayScript)
			scripts.GET("/:id/executions", handler.ListExecutions)
		}

		api.POST("/run", handler.RunDocument)
	}

	return r
}
