package steamtrade

import (
	"context"
	"fmt"

	"github.com/k64z/steamstacks/steamapi"
	"github.com/k64z/steamstacks/steamcommunity"
	"github.com/k64z/steamstacks/steamid"
)

// partnerSteamID rebuilds a full SteamID for a trade offer's partner
// from the account ID IEconService gives us, the same way
// steamclient.Login assembles a SteamID for a logon target.
func partnerSteamID(o steamapi.TradeOffer) steamid.SteamID {
	return steamid.SteamID(0).
		SetUniverse(1).
		SetType(1).
		SetInstance(1).
		SetAccountID(o.PartnerAccountID)
}

// Accept accepts a received trade offer, creating a mobile confirmation
// for it if Steam requires one. Repeat calls against an offer already
// observed in a terminal state return ErrAlreadyClosed without making
// a request.
func (e *Engine) Accept(ctx context.Context, tradeOfferID string) error {
	offer, err := e.checkOpen(tradeOfferID)
	if err != nil {
		return err
	}

	resp, err := e.community.AcceptTradeOffer(ctx, tradeOfferID, partnerSteamID(offer))
	if err != nil {
		return fmt.Errorf("steamtrade: accept %s: %w", tradeOfferID, err)
	}

	if resp.NeedsConfirmation {
		if len(e.identitySecret) == 0 {
			return fmt.Errorf("steamtrade: accept %s: needs a mobile confirmation but no identity secret is configured", tradeOfferID)
		}
		if err := e.community.AcceptConfirmationByCreatorID(ctx, e.identitySecret, tradeOfferID); err != nil {
			return fmt.Errorf("steamtrade: confirm accept of %s: %w", tradeOfferID, err)
		}
	}

	return nil
}

// Decline declines a received trade offer. Repeat calls against an
// offer already observed in a terminal state return ErrAlreadyClosed.
func (e *Engine) Decline(ctx context.Context, tradeOfferID string) error {
	if _, err := e.checkOpen(tradeOfferID); err != nil {
		return err
	}
	if err := e.community.DeclineTradeOffer(ctx, tradeOfferID); err != nil {
		return fmt.Errorf("steamtrade: decline %s: %w", tradeOfferID, err)
	}
	return nil
}

// Cancel cancels a sent trade offer. Repeat calls against an offer
// already observed in a terminal state return ErrAlreadyClosed.
func (e *Engine) Cancel(ctx context.Context, tradeOfferID string) error {
	if _, err := e.checkOpen(tradeOfferID); err != nil {
		return err
	}
	if err := e.community.CancelTradeOffer(ctx, tradeOfferID); err != nil {
		return fmt.Errorf("steamtrade: cancel %s: %w", tradeOfferID, err)
	}
	return nil
}

// Counter replaces a received trade offer with a new one proposing
// different items, referencing the original via
// trade_offer_create_params the way the web UI does. Repeat calls
// against an offer already observed in a terminal state return
// ErrAlreadyClosed.
func (e *Engine) Counter(ctx context.Context, tradeOfferID string, itemsToGive, itemsToReceive []steamapi.TradeAsset, message string) (*steamcommunity.SendTradeOfferResponse, error) {
	offer, err := e.checkOpen(tradeOfferID)
	if err != nil {
		return nil, err
	}

	resp, err := e.community.SendTradeOffer(ctx, steamcommunity.SendTradeOfferOptions{
		Partner:        partnerSteamID(offer),
		Message:        message,
		ItemsToGive:    itemsToGive,
		ItemsToReceive: itemsToReceive,
		CounterOfferID: tradeOfferID,
	})
	if err != nil {
		return nil, fmt.Errorf("steamtrade: counter %s: %w", tradeOfferID, err)
	}

	if resp.NeedsConfirmation {
		if len(e.identitySecret) == 0 {
			return resp, fmt.Errorf("steamtrade: counter %s: needs a mobile confirmation but no identity secret is configured", tradeOfferID)
		}
		if err := e.community.AcceptConfirmationByCreatorID(ctx, e.identitySecret, resp.TradeOfferID); err != nil {
			return resp, fmt.Errorf("steamtrade: confirm counter of %s: %w", tradeOfferID, err)
		}
	}

	return resp, nil
}

// checkOpen looks up a tracked offer and reports ErrAlreadyClosed if
// the engine last saw it in a terminal state, or ErrOfferNotTracked if
// it has never appeared in a snapshot.
func (e *Engine) checkOpen(tradeOfferID string) (steamapi.TradeOffer, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	tracked, ok := e.snapshot[tradeOfferID]
	if !ok {
		return steamapi.TradeOffer{}, ErrOfferNotTracked
	}
	if tracked.reported {
		return steamapi.TradeOffer{}, ErrAlreadyClosed
	}
	return tracked.offer, nil
}
