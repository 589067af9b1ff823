package notify

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/xhris2006/moninvest/internal/eventing"
	settlement "github.com/xhris2006/moninvest/internal/settlement/application"
)

// RegisterConsumers subscribes notification handlers to settlement
// events. The processed store makes redelivery a no-op.
func RegisterConsumers(bus eventing.EventBus, notifier Notifier, store eventing.ProcessedStore, logger *zap.Logger) {
	if logger == nil {
		logger = zap.NewNop()
	}

	eventing.Subscribe(bus, eventing.EventTypeOf[settlement.GainCredited](), "notify.gain_credited",
		func(ctx context.Context, event any) error {
			gain, ok := event.(settlement.GainCredited)
			if !ok {
				return nil
			}
			body := fmt.Sprintf("Vos passes vous ont rapporté %d FCFA aujourd'hui.", gain.Amount)
			if gain.Passes == 1 {
				body = fmt.Sprintf("Votre pass vous a rapporté %d FCFA aujourd'hui.", gain.Amount)
			}
			if err := notifier.Notify(ctx, gain.UserID, "Gain journalier crédité", body); err != nil {
				logger.Warn("gain notification failed", zap.Int64("user_id", gain.UserID), zap.Error(err))
			}
			return nil
		}, store)

	eventing.Subscribe(bus, eventing.EventTypeOf[settlement.PassExpired](), "notify.pass_expired",
		func(ctx context.Context, event any) error {
			expired, ok := event.(settlement.PassExpired)
			if !ok {
				return nil
			}
			body := fmt.Sprintf("Votre %s est arrivé à terme.", expired.PassName)
			if err := notifier.Notify(ctx, expired.UserID, "Pass expiré", body); err != nil {
				logger.Warn("expiry notification failed", zap.Int64("user_id", expired.UserID), zap.Error(err))
			}
			return nil
		}, store)
}
