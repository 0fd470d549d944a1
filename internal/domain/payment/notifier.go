package payment

import (
	"context"

	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"
)

// LogNotifier reports operator alerts as error level log entries tagged for
// alert routing.
type LogNotifier struct{}

func (LogNotifier) Notify(ctx context.Context, subject string, err error) {
	zctx.From(ctx).Error("Operator alert",
		zap.String("alert", subject),
		zap.Bool("notify", true),
		zap.Error(err),
	)
}
