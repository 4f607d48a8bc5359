package providers

import (
	"context"
	"net/http"

	"github.com/samber/do/v2"

	"github.com/chapterlyapp/chapterly-server/internal/api"
	"github.com/chapterlyapp/chapterly-server/internal/auth"
	"github.com/chapterlyapp/chapterly-server/internal/config"
	"github.com/chapterlyapp/chapterly-server/internal/logger"
	"github.com/chapterlyapp/chapterly-server/internal/service"
)

// HTTPServerHandle wraps http.Server with Shutdownable.
type HTTPServerHandle struct {
	*http.Server
}

// Shutdown implements do.Shutdownable.
func (h *HTTPServerHandle) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return h.Server.Shutdown(ctx)
}

// ProvideHTTPServer provides the HTTP server.
func ProvideHTTPServer(i do.Injector) (*HTTPServerHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	sseHandle := do.MustInvoke[*SSEManagerHandle](i)
	synthesisHandle := do.MustInvoke[*SynthesisServiceHandle](i)
	chapterService := do.MustInvoke[*service.ChapterService](i)
	tokens := do.MustInvoke[*auth.TokenService](i)

	handler := api.NewServer(
		storeHandle.Store,
		synthesisHandle.SynthesisService,
		chapterService,
		tokens,
		sseHandle.Manager,
		cfg.Storage.AudioPath,
		cfg.Storage.PublicBaseURL,
		log.Logger,
	)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start in background
	go func() {
		log.Info("HTTP server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("HTTP server error", "error", err)
		}
	}()

	log.Info("Server running", "addr", srv.Addr)

	return &HTTPServerHandle{Server: srv}, nil
}
