package route

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/andrelucas-arraes/meu-bot-agenda/internal/adapter/api/controller"
	_ "github.com/andrelucas-arraes/meu-bot-agenda/internal/adapter/api/docs"
	"github.com/andrelucas-arraes/meu-bot-agenda/pkg/auth"
)

// versão exibida no health check
const Version = "1.0.0"

// SetupRouter configura todas as rotas da API
func SetupRouter(jwt *auth.JWTService, authController *controller.AuthController, messageController *controller.MessageController) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:    []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:   []string{"Content-Length"},
	}))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"version": Version,
		})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	v1 := router.Group("/api/v1")
	SetupAuthRoutes(v1, authController)
	SetupMessageRoutes(v1, jwt, messageController)
	return router
}

// SetupAuthRoutes configura as rotas para autenticação
func SetupAuthRoutes(router *gin.RouterGroup, authController *controller.AuthController) {
	authRouter := router.Group("/auth")
	{
		// não requer autenticação
		authRouter.POST("/token", authController.Token)
	}
}

// SetupMessageRoutes configura as rotas protegidas do bot
func SetupMessageRoutes(router *gin.RouterGroup, jwt *auth.JWTService, messageController *controller.MessageController) {
	protected := router.Group("")
	protected.Use(auth.JWTAuthMiddleware(jwt))
	{
		protected.POST("/message", messageController.Send)
		protected.POST("/callback", messageController.Callback)
		protected.GET("/history/:user_id", messageController.History)
	}
}
