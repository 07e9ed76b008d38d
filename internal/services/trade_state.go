package services

import (
	"marketplace/internal/apperr"
	"marketplace/internal/models"
)

// TradeEvent is an action a trade party applies to a trade
type TradeEvent string

const (
	TradeEventConfirm  TradeEvent = "confirm"
	TradeEventReject   TradeEvent = "reject"
	TradeEventCancel   TradeEvent = "cancel"
	TradeEventComplete TradeEvent = "complete"
)

type tradeRole string

const (
	roleBuyer  tradeRole = "buyer"
	roleSeller tradeRole = "seller"
)

type tradeEdge struct {
	to    models.TradeStatus
	roles []tradeRole
}

// tradeTransitions is the complete set of legal {from, event} -> to moves.
// Any pair missing from the table is rejected.
var tradeTransitions = map[models.TradeStatus]map[TradeEvent]tradeEdge{
	models.TradeStatusInitiated: {
		TradeEventConfirm: {to: models.TradeStatusInProgress, roles: []tradeRole{roleSeller}},
		TradeEventReject:  {to: models.TradeStatusCancelled, roles: []tradeRole{roleSeller}},
		TradeEventCancel:  {to: models.TradeStatusCancelled, roles: []tradeRole{roleBuyer, roleSeller}},
	},
	models.TradeStatusInProgress: {
		TradeEventComplete: {to: models.TradeStatusCompleted, roles: []tradeRole{roleBuyer, roleSeller}},
		TradeEventCancel:   {to: models.TradeStatusCancelled, roles: []tradeRole{roleBuyer, roleSeller}},
	},
}

// nextTradeStatus looks up the target status for event applied by role.
// A missing edge is InvalidState; an edge the role may not take is Forbidden.
func nextTradeStatus(from models.TradeStatus, event TradeEvent, role tradeRole) (models.TradeStatus, error) {
	edge, ok := tradeTransitions[from][event]
	if !ok {
		return "", apperr.InvalidState("cannot %s a trade that is %s", event, from)
	}
	for _, allowed := range edge.roles {
		if allowed == role {
			return edge.to, nil
		}
	}
	return "", apperr.Forbidden("only the " + string(edge.roles[0]) + " can " + string(event) + " this trade")
}
