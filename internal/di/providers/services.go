package providers

import (
	"github.com/samber/do/v2"

	"github.com/chapterlyapp/chapterly-server/internal/logger"
	"github.com/chapterlyapp/chapterly-server/internal/service"
)

// ProvideChapterService provides book and chapter management.
func ProvideChapterService(i do.Injector) (*service.ChapterService, error) {
	log := do.MustInvoke[*logger.Logger](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)

	return service.NewChapterService(storeHandle.Store, log.Logger), nil
}
