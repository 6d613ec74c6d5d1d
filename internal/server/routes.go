package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/danmuck/darling/internal/dispatch"
	"github.com/danmuck/darling/pkg/backend"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// BackendInfo is one registry entry as served by /backends.
type BackendInfo struct {
	Name    string `json:"name"`
	Package string `json:"package"`
}

// packageBackends counts the linked package-manager backends; the host's own
// module backend is always present and does not make the host useful.
func packageBackends(names []string) int {
	n := 0
	for _, name := range names {
		if name != backend.ReservedIdentity {
			n++
		}
	}
	return n
}

func (s *Server) registerRoutes() {
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"uptime":  time.Since(s.Started).String(),
			"version": Version,
		})
	})

	s.router.GET("/ready", func(c *gin.Context) {
		n := packageBackends(s.src.Registry().Names())
		status := http.StatusOK
		if n == 0 {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{
			"ready":    n > 0,
			"backends": n,
			"version":  Version,
		})
	})

	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	s.router.GET("/backends", func(c *gin.Context) {
		entries := s.src.Registry().Entries()
		list := make([]BackendInfo, 0, len(entries))
		for _, e := range entries {
			list = append(list, BackendInfo{Name: e.Identity, Package: e.Package})
		}
		c.JSON(http.StatusOK, gin.H{"backends": list})
	})

	s.router.GET("/backends/:name/packages", func(c *gin.Context) {
		name := c.Param("name")
		pkgs, err := s.src.Dispatcher().ListExplicit(name)
		if err != nil {
			status := http.StatusInternalServerError
			if errors.Is(err, dispatch.ErrUnknownBackend) {
				status = http.StatusNotFound
			}
			c.JSON(status, gin.H{"error": err.Error()})
			return
		}
		if pkgs == nil {
			pkgs = []backend.Package{}
		}
		c.JSON(http.StatusOK, gin.H{"backend": name, "packages": pkgs})
	})

	s.router.GET("/installed", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"installed": s.src.Installed()})
	})
}
