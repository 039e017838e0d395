package ops

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Stats is the machine's view exposed to operators.
type Stats interface {
	RegistrationSessions() int
	ReportSessions() int
	ActiveLockouts() int
}

// NewRouter builds the ops HTTP surface: liveness plus live session counts.
func NewRouter(stats Stats) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/stats", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"registration_sessions": stats.RegistrationSessions(),
			"report_sessions":       stats.ReportSessions(),
			"active_lockouts":       stats.ActiveLockouts(),
		})
	})

	return r
}

// Serve runs the ops server until the listener fails; meant for a goroutine.
func Serve(listen string, stats Stats) {
	if listen == "" {
		return
	}
	if err := NewRouter(stats).Run(listen); err != nil {
		log.Printf("[ops] server stopped: %v", err)
	}
}
