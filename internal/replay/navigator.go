// internal/replay/navigator.go
package replay

import (
	"log/slog"

	"github.com/user/ghostwalk/internal/types"
)

// LogNavigator is a navigator that only logs what a real driver would do.
// It backs dry runs; real browser drivers are supplied by callers.
type LogNavigator struct{}

var _ types.Navigator = LogNavigator{}

func (LogNavigator) NavigateTo(url string) error {
	slog.Info("navigate", "url", url)
	return nil
}

func (LogNavigator) ScrollTo(pixels float64) error {
	slog.Info("scroll", "pixels", pixels)
	return nil
}

func (LogNavigator) ClickAt(x, y float64) error {
	slog.Info("click", "x", x, "y", y)
	return nil
}
