package steamtrade

import (
	"context"
	"errors"
	"time"

	"github.com/k64z/steamstacks/steamapi"
)

// pollMargin widens the historical cutoff sent to GetTradeOffers so a
// slow server-side commit just before a poll can't slip past the
// engine's last_poll_time and get silently skipped.
const pollMargin = 10 * time.Second

// Run polls IEconService until ctx is cancelled, emitting events
// through the configured handler as offers change state. It blocks;
// callers typically run it in its own goroutine.
func (e *Engine) Run(ctx context.Context) error {
	for {
		interval, err := e.pollOnce(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			e.logger.Error("poll failed", "err", err)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
		}
	}
}

// pollOnce runs a single poll/diff cycle and returns how long Run
// should wait before the next one.
func (e *Engine) pollOnce(ctx context.Context) (time.Duration, error) {
	e.mu.Lock()
	cutoff := int64(0)
	if e.lastPollTime > 0 {
		cutoff = e.lastPollTime - int64(pollMargin.Seconds())
		if cutoff < 0 {
			cutoff = 0
		}
	}
	e.mu.Unlock()

	resp, err := e.api.GetTradeOffers(ctx, steamapi.GetTradeOffersOptions{
		GetSentOffers:        true,
		GetReceivedOffers:    true,
		ActiveOnly:           false,
		TimeHistoricalCutoff: cutoff,
	})
	if err != nil {
		var statusErr *steamapi.HTTPStatusError
		if errors.As(err, &statusErr) && statusErr.StatusCode >= 500 {
			return errorRetryInterval, err
		}
		e.mu.Lock()
		interval := e.backoffInterval(false)
		e.mu.Unlock()
		return interval, err
	}

	current := make(map[string]steamapi.TradeOffer, len(resp.SentOffers)+len(resp.ReceivedOffers))
	for _, o := range resp.SentOffers {
		current[o.ID] = o
	}
	for _, o := range resp.ReceivedOffers {
		current[o.ID] = o
	}

	e.mu.Lock()
	var events []Event
	changed := e.diff(current, &events)
	e.advancePollTime(current)

	var interval time.Duration
	if !changed {
		interval = e.backoffInterval(true)
	} else {
		e.curInterval = e.pollInterval
		interval = e.curInterval
	}
	e.mu.Unlock()

	// Deliver events outside the lock: handlers may call back into
	// Accept/Decline/Cancel/Counter, which also take e.mu.
	for _, evt := range events {
		if e.onEvent != nil {
			e.onEvent(evt)
		}
	}

	return interval, nil
}

// backoffInterval requires e.mu to already be held.
func (e *Engine) backoffInterval(empty bool) time.Duration {
	if !empty {
		return e.curInterval
	}
	next := e.curInterval * 2
	if next > maxPollInterval {
		next = maxPollInterval
	}
	if next < e.pollInterval {
		next = e.pollInterval
	}
	e.curInterval = next
	return next
}

// advancePollTime requires e.mu to already be held.
func (e *Engine) advancePollTime(current map[string]steamapi.TradeOffer) {
	for _, o := range current {
		if o.TimeUpdated > e.lastPollTime {
			e.lastPollTime = o.TimeUpdated
		}
	}
}

// diff compares the freshly polled offers against the engine's
// snapshot, appends the events every transition it finds to *events,
// and installs the result as the new snapshot. It reports whether
// anything changed so the caller can decide whether to reset the poll
// backoff. Requires e.mu to already be held.
func (e *Engine) diff(current map[string]steamapi.TradeOffer, events *[]Event) bool {
	if !e.bootstrapped {
		e.bootstrapped = true
		if !e.replayHistory {
			next := make(map[string]trackedOffer, len(current))
			for id, o := range current {
				next[id] = trackedOffer{offer: o, reported: isTerminal(o.State)}
			}
			e.snapshot = next
			return false
		}
		// replayHistory: diff against an empty snapshot below so every
		// current offer is treated as newly discovered.
	}

	changed := false
	consumed := make(map[string]bool)

	// Pass 1: pair offers that moved to Countered with the new offer
	// that superseded them, so the transition surfaces as a
	// trade_counter event rather than a countered offer with no event.
	// The replacement still gets its own trade_receive/trade_send in
	// pass 2, after the trade_counter.
	for id, prev := range e.snapshot {
		if prev.reported {
			continue
		}
		newState, stillPresent := current[id]
		if !stillPresent || newState.State != steamapi.ETradeOfferStateCountered {
			continue
		}

		replacement, ok := findCounterReplacement(prev.offer, current, consumed)
		if ok {
			consumed[replacement.ID] = true
			priorCopy := prev.offer
			*events = append(*events, Event{Type: EventCountered, Offer: replacement, PriorOffer: &priorCopy})
		} else {
			e.logger.Warn("countered offer had no matching replacement", "trade_offer_id", id)
		}
		changed = true
	}

	next := make(map[string]trackedOffer, len(current))

	// Pass 2: everything else — new arrivals and in-place state changes.
	for id, o := range current {
		prev, existed := e.snapshot[id]

		if !existed {
			// Even when id was just paired as a Countered offer's
			// replacement in pass 1, it's still a newly discovered offer
			// in its own right and gets its own trade_send/trade_receive
			// — pass 1 already appended trade_counter first, so the two
			// events come out in the order the counter scenario expects.
			appendDiscoveryEvents(events, o, e.replayHistory)
			changed = true
			next[id] = trackedOffer{offer: o, reported: isTerminal(o.State)}
			continue
		}

		if prev.offer.State == o.State {
			next[id] = trackedOffer{offer: o, reported: prev.reported}
			continue
		}

		if prev.reported {
			// Already closed; a late-arriving duplicate must not fire again.
			next[id] = trackedOffer{offer: o, reported: true}
			continue
		}

		if o.State == steamapi.ETradeOfferStateCountered {
			// Handled in pass 1 (or logged as unmatched there).
			next[id] = trackedOffer{offer: o, reported: true}
			changed = true
			continue
		}

		if evt, ok := mapStateToEvent(o.State); ok {
			*events = append(*events, Event{Type: evt, Offer: o})
		}
		changed = true
		next[id] = trackedOffer{offer: o, reported: isTerminal(o.State)}
	}

	// Pass 3: offers that vanished from the response entirely.
	now := time.Now().Unix()
	for id, prev := range e.snapshot {
		if _, stillPresent := current[id]; stillPresent {
			continue
		}
		if prev.reported {
			continue
		}
		if prev.offer.ExpirationTime > 0 && prev.offer.ExpirationTime <= now {
			*events = append(*events, Event{Type: EventExpired, Offer: prev.offer})
			changed = true
			continue // dropped: terminal and reported, no need to retain
		}
		// Not yet expired — a poll-window artifact. Keep tracking it.
		next[id] = prev
	}

	e.snapshot = next
	return changed
}

func appendDiscoveryEvents(events *[]Event, o steamapi.TradeOffer, replayHistory bool) {
	if o.IsOurOffer {
		*events = append(*events, Event{Type: EventSent, Offer: o})
	} else {
		*events = append(*events, Event{Type: EventReceived, Offer: o})
	}
	if replayHistory {
		if evt, ok := mapStateToEvent(o.State); ok {
			*events = append(*events, Event{Type: evt, Offer: o})
		}
	}
}

// findCounterReplacement picks the best candidate among the newly
// discovered offers in current for pairing with a just-countered
// offer: the closest-in-time new offer with the same partner and
// direction that isn't already claimed by another pairing.
func findCounterReplacement(prev steamapi.TradeOffer, current map[string]steamapi.TradeOffer, consumed map[string]bool) (steamapi.TradeOffer, bool) {
	var best steamapi.TradeOffer
	var bestDelta int64 = -1
	found := false

	for id, o := range current {
		if id == prev.ID || consumed[id] {
			continue
		}
		if o.PartnerAccountID != prev.PartnerAccountID || o.IsOurOffer != prev.IsOurOffer {
			continue
		}
		delta := o.TimeCreated - prev.TimeUpdated
		if delta < 0 {
			delta = -delta
		}
		if !found || delta < bestDelta {
			best, bestDelta, found = o, delta, true
		}
	}

	return best, found
}

func isTerminal(s steamapi.ETradeOfferState) bool {
	switch s {
	case steamapi.ETradeOfferStateAccepted,
		steamapi.ETradeOfferStateInEscrow,
		steamapi.ETradeOfferStateExpired,
		steamapi.ETradeOfferStateCanceled,
		steamapi.ETradeOfferStateCanceledBySecondFactor,
		steamapi.ETradeOfferStateDeclined,
		steamapi.ETradeOfferStateInvalidItems,
		steamapi.ETradeOfferStateCountered:
		return true
	default:
		return false
	}
}

// mapStateToEvent maps a terminal offer state to the event it reports.
// Countered is deliberately absent: it is only ever surfaced paired
// with its replacement offer via trade_counter (see diff's pass 1).
// InvalidItems has no dedicated event in the catalog; the closest
// analog is treating it like a cancellation, since the offer never
// went through.
func mapStateToEvent(s steamapi.ETradeOfferState) (EventType, bool) {
	switch s {
	case steamapi.ETradeOfferStateAccepted, steamapi.ETradeOfferStateInEscrow:
		return EventAccepted, true
	case steamapi.ETradeOfferStateExpired:
		return EventExpired, true
	case steamapi.ETradeOfferStateCanceled, steamapi.ETradeOfferStateCanceledBySecondFactor:
		return EventCanceled, true
	case steamapi.ETradeOfferStateDeclined:
		return EventDeclined, true
	case steamapi.ETradeOfferStateInvalidItems:
		return EventCanceled, true
	default:
		return 0, false
	}
}
