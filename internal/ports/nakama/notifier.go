package nakama

import (
	"context"
	"errors"
	"fmt"

	"github.com/SlateSense/ThunderFleet-backend-sub000/internal/app"
	"github.com/SlateSense/ThunderFleet-backend-sub000/internal/codec"

	"github.com/heroiclabs/nakama-common/runtime"
)

// Notifier delivers match events as Nakama notifications.
type Notifier struct {
	nk     runtime.NakamaModule
	logger runtime.Logger
}

var _ app.Emitter = (*Notifier)(nil)

func NewNotifier(nk runtime.NakamaModule, logger runtime.Logger) *Notifier {
	return &Notifier{nk: nk, logger: logger}
}

// Emit sends one non-persistent notification per recipient. Failures are
// collected so one offline user does not starve the others.
func (n *Notifier) Emit(ctx context.Context, events []app.Event) error {
	var errs []error
	for _, ev := range events {
		code, ok := notificationCodes[ev.Kind]
		if !ok {
			errs = append(errs, fmt.Errorf("no notification code for %s", ev.Kind))
			continue
		}
		env, err := codec.Envelope(string(ev.Kind), ev.MatchID, ev.Payload)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		content := env.AsMap()
		for _, userID := range ev.Recipients {
			if err := n.nk.NotificationSend(ctx, userID, string(ev.Kind), content, code, "", false); err != nil {
				n.logger.Warn("Notifier: failed to send %s to %s: %v", ev.Kind, userID, err)
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}
