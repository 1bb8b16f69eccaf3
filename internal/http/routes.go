package http

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/sujalbistaa/crown/internal/logging"
)

// SetupRoutes configures all application routes and middleware.
func SetupRoutes(router *gin.Engine, env *Env, corsOrigin string) {
	if env.Log == nil {
		env.Log = logging.GetLogger("http")
	}
	if env.Limiter == nil {
		env.Limiter = NewDefaultRateLimiter()
	}

	router.SetHTMLTemplate(Templates())

	// --- Middleware ---
	router.Use(RequestLogger(env.Log))
	router.Use(gin.Recovery())
	router.Use(SecurityHeadersMiddleware())

	if corsOrigin == "" {
		corsOrigin = "*"
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{corsOrigin},
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: corsOrigin != "*",
	}))

	router.Use(SessionMiddleware(env.Sessions))

	limited := RateLimitMiddleware(env.Limiter)

	// --- Pages ---
	router.GET("/", env.Home)
	router.GET("/pvp", env.PvP)
	router.Static("/static", "./public")

	// --- Auth ---
	router.POST("/signup", limited, env.Signup)
	router.POST("/login", limited, env.Login)
	router.GET("/logout", env.Logout)
	router.GET("/auth/:provider", env.BeginProviderAuth)
	router.GET("/auth/:provider/crown", env.ProviderCallback)

	// --- Forum ---
	forums := router.Group("/forums", RequireAuthenticated())
	{
		forums.GET("", env.GetForums)
		forums.POST("", limited, env.CreatePost)
		forums.GET("/:postID", env.GetPost)
		forums.POST("/:postID", env.AddComment)
		forums.POST("/:postID/delete", env.RemoveComment)
		forums.POST("/:postID/comments/:commentID/vote", env.VoteOnComment)
	}

	// --- Live feed ---
	if env.Hub != nil {
		router.GET("/ws", RequireAuthenticated(), env.LiveFeed)
	}
}
