package providers

import (
	"github.com/samber/do/v2"

	"github.com/chapterlyapp/chapterly-server/internal/config"
	"github.com/chapterlyapp/chapterly-server/internal/logger"
	"github.com/chapterlyapp/chapterly-server/internal/service"
	"github.com/chapterlyapp/chapterly-server/internal/storage"
	"github.com/chapterlyapp/chapterly-server/internal/tts"
)

// ProvideSynthesizer provides the speech-synthesis provider client.
func ProvideSynthesizer(i do.Injector) (*tts.Client, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	return tts.NewClient(cfg.Synthesis, log.Logger), nil
}

// ProvideAudioStore provides the filesystem store for published narration.
func ProvideAudioStore(i do.Injector) (*storage.FilesystemStore, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	audioStore, err := storage.NewFilesystemStore(cfg.Storage.AudioPath, cfg.Storage.PublicBaseURL)
	if err != nil {
		return nil, err
	}

	log.Info("Audio store ready",
		"path", cfg.Storage.AudioPath,
		"public_url", cfg.Storage.PublicBaseURL,
	)

	return audioStore, nil
}

// SynthesisServiceHandle wraps the synthesis service with shutdown capability.
type SynthesisServiceHandle struct {
	*service.SynthesisService
}

// Shutdown implements do.Shutdownable.
func (h *SynthesisServiceHandle) Shutdown() error {
	h.Stop()
	return nil
}

// ProvideSynthesisService provides the narration pipeline.
func ProvideSynthesisService(i do.Injector) (*SynthesisServiceHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	synthesizer := do.MustInvoke[*tts.Client](i)
	audioStore := do.MustInvoke[*storage.FilesystemStore](i)

	svc := service.NewSynthesisService(storeHandle.Store, synthesizer, audioStore, cfg.Synthesis, log.Logger)

	// Fail jobs left live by a previous process so chapters aren't stuck.
	svc.Start()

	log.Info("Synthesis service started",
		"max_chunk_chars", cfg.Synthesis.MaxChunkChars,
		"max_fragment_bytes", cfg.Synthesis.MaxFragmentBytes,
		"max_concurrent", cfg.Synthesis.MaxConcurrent,
	)

	return &SynthesisServiceHandle{SynthesisService: svc}, nil
}
