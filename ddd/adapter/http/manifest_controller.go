package http

import (
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"signage-service/ddd/application/app"
	"signage-service/ddd/infrastructure/catalog"
	"signage-service/ddd/infrastructure/notify"
	"signage-service/pkg/errno"
	"signage-service/pkg/logger"
)

// ManifestController serves versioned catalogs, the version probe and the
// live-update stream.
type ManifestController struct {
	store *catalog.Store
	hub   *notify.Hub
	app   *app.PublishApp
}

func NewManifestController(store *catalog.Store, hub *notify.Hub, publishApp *app.PublishApp) *ManifestController {
	return &ManifestController{store: store, hub: hub, app: publishApp}
}

// GetManifest returns the catalog for one target with a strong content
// ETag; a matching If-None-Match short-circuits to 304.
func (ctl *ManifestController) GetManifest(c *gin.Context) {
	target := c.Param("target")
	data, etag, ok := ctl.store.Get(target)
	if !ok {
		fail(c, errno.ErrManifestMissing)
		return
	}

	c.Header("Cache-Control", "no-cache")
	c.Header("ETag", etag)
	if match := c.GetHeader("If-None-Match"); match != "" && match == etag {
		c.Status(http.StatusNotModified)
		return
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", data)
}

// GetVersion returns the current manifest version for cheap polling.
func (ctl *ManifestController) GetVersion(c *gin.Context) {
	c.Header("Cache-Control", "no-cache")
	c.JSON(http.StatusOK, gin.H{"version": ctl.app.Version()})
}

// Events streams manifest versions over SSE. Heartbeats go out as comment
// lines so intermediaries keep the connection warm without waking parsers.
func (ctl *ManifestController) Events(c *gin.Context) {
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	notices, cancel := ctl.hub.Subscribe()
	defer cancel()

	// The current version goes out immediately so a reconnecting player
	// can reconcile without waiting for the next publish.
	first := notify.Notice{Version: ctl.app.Version()}
	deviceID := c.GetString("device_id")
	logger.Debugf("sse subscriber connected device=%s", deviceID)

	c.Stream(func(w io.Writer) bool {
		write := func(n notify.Notice) {
			if n.Heartbeat {
				fmt.Fprint(w, ": hb\n\n")
				return
			}
			fmt.Fprintf(w, "event: version\ndata: {\"version\":%d}\n\n", n.Version)
		}
		if first.Version > 0 {
			write(first)
			first.Version = 0
			return true
		}
		select {
		case n, open := <-notices:
			if !open {
				return false
			}
			write(n)
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
	logger.Debugf("sse subscriber disconnected device=%s", deviceID)
}
