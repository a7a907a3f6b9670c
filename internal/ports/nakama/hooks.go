package nakama

import (
	"context"

	"github.com/heroiclabs/nakama-common/api"
	"github.com/heroiclabs/nakama-common/runtime"
)

// onSessionEnd treats a closed session as a disconnect: pending joins are
// cancelled and an active match is left.
func (m *Module) onSessionEnd(ctx context.Context, logger runtime.Logger, evt *api.Event) {
	userID, _ := ctx.Value(runtime.RUNTIME_CTX_USER_ID).(string)
	if userID == "" {
		return
	}
	logger.Debug("onSessionEnd: user %s (%s)", userID, evt.GetName())
	m.lobby.Disconnect(userID)
}
