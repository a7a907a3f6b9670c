package app

import (
	"errors"

	"github.com/SlateSense/ThunderFleet-backend-sub000/internal/config"
	"github.com/SlateSense/ThunderFleet-backend-sub000/internal/domain"
)

var (
	ErrMatchNotFound       = errors.New("match not found")
	ErrPlayerNotFound      = errors.New("player not found")
	ErrPendingJoinNotFound = errors.New("pending join not found")

	ErrMatchFull       = errors.New("match is full")
	ErrMatchClosed     = errors.New("match is closed")
	ErrAlreadyJoined   = errors.New("party already joined this match")
	ErrAlreadyInMatch  = errors.New("party is already in a match")
	ErrAlreadyPending  = errors.New("party already has a pending join")
	ErrBotCannotAct    = errors.New("bots act through the bot pipeline")
	ErrPlacementClosed = errors.New("ship placement is closed")
	ErrNotInProgress   = errors.New("match not in progress")
	ErrNotYourTurn     = errors.New("not your turn")
	ErrMatchFinished   = errors.New("match already finished")

	ErrPayout  = errors.New("payout failed")
	ErrBotTurn = errors.New("bot turn failed")
)

// IsNotFound reports whether err means the addressed match, player or invoice does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrMatchNotFound) ||
		errors.Is(err, ErrPlayerNotFound) ||
		errors.Is(err, ErrPendingJoinNotFound)
}

// IsValidation reports whether err is a caller mistake that left the match untouched.
func IsValidation(err error) bool {
	for _, target := range []error{
		ErrMatchFull, ErrMatchClosed, ErrAlreadyJoined, ErrAlreadyInMatch, ErrAlreadyPending,
		ErrBotCannotAct, ErrPlacementClosed, ErrNotInProgress, ErrNotYourTurn, ErrMatchFinished,
		domain.ErrInvalidPlacement, domain.ErrInvalidPosition, domain.ErrAlreadyTried,
		config.ErrUnknownBetTier,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
