// Package di provides dependency injection configuration for the Chapterly server.
package di

import (
	"github.com/samber/do/v2"

	"github.com/chapterlyapp/chapterly-server/internal/auth"
	"github.com/chapterlyapp/chapterly-server/internal/config"
	"github.com/chapterlyapp/chapterly-server/internal/di/providers"
	"github.com/chapterlyapp/chapterly-server/internal/logger"
	"github.com/chapterlyapp/chapterly-server/internal/service"
	"github.com/chapterlyapp/chapterly-server/internal/storage"
	"github.com/chapterlyapp/chapterly-server/internal/tts"
)

// NewContainer creates and configures the DI container with all providers.
func NewContainer() *do.RootScope {
	injector := do.New()

	// Core infrastructure
	do.Provide(injector, providers.ProvideConfig)
	do.Provide(injector, providers.ProvideLogger)
	do.Provide(injector, providers.ProvideAuthKey)

	// Database layer
	do.Provide(injector, providers.ProvideSSEManager)
	do.Provide(injector, providers.ProvideStore)

	// Synthesis layer
	do.Provide(injector, providers.ProvideSynthesizer)
	do.Provide(injector, providers.ProvideAudioStore)
	do.Provide(injector, providers.ProvideSynthesisService)

	// Auth layer
	do.Provide(injector, providers.ProvideTokenService)

	// Business services
	do.Provide(injector, providers.ProvideChapterService)

	// Server
	do.Provide(injector, providers.ProvideHTTPServer)

	return injector
}

// Bootstrap initializes all services and returns handles for lifecycle management.
// This triggers lazy initialization of all core services.
func Bootstrap(injector *do.RootScope) error {
	_ = do.MustInvoke[*config.Config](injector)
	_ = do.MustInvoke[*logger.Logger](injector)
	_ = do.MustInvoke[providers.AuthKey](injector)
	_ = do.MustInvoke[*providers.SSEManagerHandle](injector)
	_ = do.MustInvoke[*providers.StoreHandle](injector)
	_ = do.MustInvoke[*tts.Client](injector)
	_ = do.MustInvoke[*storage.FilesystemStore](injector)
	_ = do.MustInvoke[*providers.SynthesisServiceHandle](injector)
	_ = do.MustInvoke[*auth.TokenService](injector)
	_ = do.MustInvoke[*service.ChapterService](injector)
	_ = do.MustInvoke[*providers.HTTPServerHandle](injector)

	return nil
}
