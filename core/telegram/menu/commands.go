package menu

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/m3rciful/menubot/core/buildinfo"
	"github.com/m3rciful/menubot/core/catalog"
	"github.com/m3rciful/menubot/core/logger"
	tghelpers "github.com/m3rciful/menubot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// DefaultHelpText is shown by /help when no custom text is configured.
const DefaultHelpText = "Нажмите /start, чтобы открыть главное меню, и выберите раздел кнопками."

// HelpHandler replies with a short usage hint.
func HelpHandler(text string) tele.HandlerFunc {
	if strings.TrimSpace(text) == "" {
		text = DefaultHelpText
	}
	return func(c tele.Context) error {
		return c.Send(text)
	}
}

// ReloadFunc rebuilds the catalog from its source and installs it.
type ReloadFunc func(ctx context.Context) (*catalog.Catalog, error)

// ReloadHandler re-reads the menu and reports the outcome to the caller.
// A failed reload leaves the current menu in place.
func ReloadHandler(reload ReloadFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		ctx := tghelpers.BuildContext(c)
		cat, err := reload(ctx)
		if err != nil {
			logger.Warn(ctx, "catalog", "reload.rejected",
				slog.String("trigger", "command"),
				slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
			)
			return c.Send("Меню не обновлено: " + logger.SanitizeLimit(err.Error(), 512))
		}
		return c.Send(fmt.Sprintf("Меню обновлено: %d разделов.", len(cat.Categories())))
	}
}

// VersionHandler replies with build metadata and the id of the answering
// process, which matches the instance field of its startup log line.
func VersionHandler() tele.HandlerFunc {
	return func(c tele.Context) error {
		return c.Send(VersionText() + "\ninstance: " + logger.Instance())
	}
}

// VersionText formats build metadata for /version.
func VersionText() string {
	return buildinfo.Text()
}
