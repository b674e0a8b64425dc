package usecase

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/example/moonbaby-storefront/internal/domain"
)

// VisitorFallback отображается вместо счётчика при любой ошибке.
const VisitorFallback = "1000+"

// TrackVisitor — увеличить счётчик посещений и вернуть подпись для отображения.
type TrackVisitor struct {
	Counter domain.VisitorCounter
	Logger  *slog.Logger
}

// Execute делает одну попытку и никогда не возвращает пустую подпись.
func (uc TrackVisitor) Execute(ctx context.Context) string {
	n, err := uc.Counter.Bump(ctx)
	if err != nil {
		logger := uc.Logger
		if logger == nil {
			logger = slog.Default()
		}
		logger.Error("update visitor count", "err", err)
		return VisitorFallback
	}
	return strconv.FormatInt(n, 10)
}
