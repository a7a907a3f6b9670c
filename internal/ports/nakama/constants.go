package nakama

import "github.com/SlateSense/ThunderFleet-backend-sub000/internal/app"

// RPC ids registered with Nakama.
const (
	RpcJoin          = "battleship_join"
	RpcPlaceShips    = "battleship_place"
	RpcFire          = "battleship_fire"
	RpcCancel        = "battleship_cancel"
	RpcState         = "battleship_state"
	RpcStats         = "battleship_stats"
	RpcInvoicePaid   = "battleship_invoice_paid"
	RpcInvoiceFailed = "battleship_invoice_failed"
)

// Env keys read from runtime.RUNTIME_CTX_ENV.
const (
	EnvGameConfig      = "battleship_game_config"
	EnvBotsEnabled     = "battleship_bots_enabled"
	EnvForfeitPayout   = "battleship_forfeit_payout"
	EnvPlatformAccount = "battleship_platform_account"
	EnvWalletKey       = "battleship_wallet_key"
	EnvRetrySeconds    = "battleship_settlement_retry_sec"
)

// Notification codes, one per event kind. Nakama reserves codes <= 0.
const (
	CodeJoined               = 101
	CodeWaitingForOpponent   = 102
	CodePlacementStart       = 103
	CodeBoardUpdate          = 104 // send privately
	CodeReadyCount           = 105
	CodePlacementConfirmed   = 106
	CodePlacementAutoApplied = 107
	CodeMatchStart           = 108
	CodeFireResult           = 109
	CodeTurnChanged          = 110
	CodeMatchEnd             = 111
	CodeSettlementResult     = 112
	CodeMatchClosed          = 113
	CodeErrorNotice          = 114
	CodePaymentRequired      = 115
	CodeJoinCancelled        = 116
)

var notificationCodes = map[app.EventKind]int{
	app.EventJoined:               CodeJoined,
	app.EventWaitingForOpponent:   CodeWaitingForOpponent,
	app.EventPlacementStart:       CodePlacementStart,
	app.EventBoardUpdate:          CodeBoardUpdate,
	app.EventReadyCount:           CodeReadyCount,
	app.EventPlacementConfirmed:   CodePlacementConfirmed,
	app.EventPlacementAutoApplied: CodePlacementAutoApplied,
	app.EventMatchStart:           CodeMatchStart,
	app.EventFireResult:           CodeFireResult,
	app.EventTurnChanged:          CodeTurnChanged,
	app.EventMatchEnd:             CodeMatchEnd,
	app.EventSettlementResult:     CodeSettlementResult,
	app.EventMatchClosed:          CodeMatchClosed,
	app.EventErrorNotice:          CodeErrorNotice,
	app.EventPaymentRequired:      CodePaymentRequired,
	app.EventJoinCancelled:        CodeJoinCancelled,
}
