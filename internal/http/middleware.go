package http

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	sessionCookie = "wb_session"
	sessionKey    = "session"
)

func CORS(origins []string) gin.HandlerFunc {
	config := cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "X-Requested-With"},
		AllowCredentials: true,
	}
	return cors.New(config)
}

func RequestLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		log.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("route", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)))
	}
}

func MaxBodySize(limit int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limit > 0 {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
		}
		c.Next()
	}
}

// Session attaches the visitor's session id. The cookie is reissued on every
// request so its lifetime slides together with the server-side session.
func (a *API) Session() gin.HandlerFunc {
	return func(c *gin.Context) {
		presented, _ := c.Cookie(sessionCookie)
		view := a.coord.Session(presented)
		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie(sessionCookie, view.ID, int(a.cfg.SessionTTL.Seconds()), "/", "", a.cfg.IsProduction(), true)
		c.Set(sessionKey, view.ID)
		c.Next()
	}
}

func sessionID(c *gin.Context) string {
	return c.GetString(sessionKey)
}
