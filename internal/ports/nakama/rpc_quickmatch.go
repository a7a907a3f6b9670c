package nakama

import (
	"context"
	"database/sql"

	"github.com/SlateSense/ThunderFleet-backend-sub000/internal/codec"

	"github.com/heroiclabs/nakama-common/runtime"
)

// QuickMatchResponse is returned by the join RPC. Exactly one of MatchID and
// InvoiceID is set.
type QuickMatchResponse struct {
	MatchID        string `json:"matchId,omitempty"`
	InvoiceID      string `json:"invoiceId,omitempty"`
	PaymentRequest string `json:"paymentRequest,omitempty"`
}

// rpcJoin stakes the bet and queues the caller for a match of that tier.
//
// Payload: {"bet": 300}
func (m *Module) rpcJoin(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	userID, err := callerID(ctx)
	if err != nil {
		return "", err
	}
	cmd, err := codec.DecodeArgs(RpcJoin, []byte(payload))
	if err != nil {
		return "", rpcError(logger, RpcJoin, err)
	}
	bet, err := cmd.Int("bet")
	if err != nil {
		return "", rpcError(logger, RpcJoin, err)
	}

	pj, match, err := m.lobby.RequestJoin(ctx, userID, userID, bet)
	if err != nil {
		return "", rpcError(logger, RpcJoin, err)
	}
	resp := QuickMatchResponse{}
	if match != nil {
		resp.MatchID = match.ID()
		logger.Info("rpcJoin [User:%s]: seated in match %s", userID, resp.MatchID)
	} else {
		resp.InvoiceID = pj.InvoiceID
		resp.PaymentRequest = pj.PaymentRequest
	}
	return respond(resp)
}
