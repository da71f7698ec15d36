package source

import (
	"bytes"
	"log/slog"
	"sync"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/kode4food/signwiz/pkg/log"
)

var disableConfigDir sync.Once

// CountPages returns the number of pages of a PDF document, or 0 when the
// document cannot be read
func CountPages(data []byte) (pages int) {
	disableConfigDir.Do(api.DisableConfigDir)

	defer func() {
		if r := recover(); r != nil {
			slog.Debug("PDF page count panicked", slog.Any("panic", r))
			pages = 0
		}
	}()

	cfg := model.NewDefaultConfiguration()
	cfg.ValidationMode = model.ValidationRelaxed
	n, err := api.PageCount(bytes.NewReader(data), cfg)
	if err != nil {
		slog.Debug("Failed to count PDF pages", log.Error(err))
		return 0
	}
	return n
}
