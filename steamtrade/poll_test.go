package steamtrade

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/k64z/steamstacks/steamapi"
)

// fakeEconServer serves IEconService/GetTradeOffers/v1 from a
// caller-controlled sequence of responses, one per call, repeating the
// last one once the sequence is exhausted.
type fakeEconServer struct {
	mu        sync.Mutex
	responses []steamapi.TradeOffersResponse
	calls     int
}

func (f *fakeEconServer) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, "GetTradeOffers") {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}

		f.mu.Lock()
		idx := f.calls
		if idx >= len(f.responses) {
			idx = len(f.responses) - 1
		}
		resp := f.responses[idx]
		f.calls++
		f.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		body := struct {
			Response steamapi.TradeOffersResponse `json:"response"`
		}{Response: resp}
		_ = json.NewEncoder(w).Encode(body)
	}
}

func collectEvents(dst *[]Event) func(Event) {
	return func(evt Event) {
		*dst = append(*dst, evt)
	}
}

func TestPollBootstrapSeedsSnapshotSilently(t *testing.T) {
	fake := &fakeEconServer{responses: []steamapi.TradeOffersResponse{
		{ReceivedOffers: []steamapi.TradeOffer{
			{ID: "1", PartnerAccountID: 100, State: steamapi.ETradeOfferStateActive, TimeUpdated: 1000},
		}},
	}}
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	var events []Event
	e := newTestEngine(t, srv, WithEventHandler(collectEvents(&events)))

	if _, err := e.pollOnce(context.Background()); err != nil {
		t.Fatalf("pollOnce: %v", err)
	}

	if len(events) != 0 {
		t.Fatalf("expected no events on bootstrap poll, got %d: %+v", len(events), events)
	}
	if len(e.snapshot) != 1 {
		t.Fatalf("expected snapshot to contain 1 offer, got %d", len(e.snapshot))
	}
}

func TestPollEmitsReceiveAndSend(t *testing.T) {
	fake := &fakeEconServer{responses: []steamapi.TradeOffersResponse{
		{}, // bootstrap: nothing yet
		{
			ReceivedOffers: []steamapi.TradeOffer{
				{ID: "1", PartnerAccountID: 100, IsOurOffer: false, State: steamapi.ETradeOfferStateActive, TimeUpdated: 1000},
			},
			SentOffers: []steamapi.TradeOffer{
				{ID: "2", PartnerAccountID: 200, IsOurOffer: true, State: steamapi.ETradeOfferStateActive, TimeUpdated: 1000},
			},
		},
	}}
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	var events []Event
	e := newTestEngine(t, srv, WithEventHandler(collectEvents(&events)))

	if _, err := e.pollOnce(context.Background()); err != nil {
		t.Fatalf("bootstrap poll: %v", err)
	}
	if _, err := e.pollOnce(context.Background()); err != nil {
		t.Fatalf("second poll: %v", err)
	}

	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d: %+v", len(events), events)
	}

	var gotReceive, gotSend bool
	for _, evt := range events {
		switch evt.Type {
		case EventReceived:
			gotReceive = true
		case EventSent:
			gotSend = true
		}
	}
	if !gotReceive || !gotSend {
		t.Fatalf("expected one trade_receive and one trade_send, got %+v", events)
	}
}

func TestPollEmitsTerminalTransitionsOnce(t *testing.T) {
	fake := &fakeEconServer{responses: []steamapi.TradeOffersResponse{
		{ReceivedOffers: []steamapi.TradeOffer{
			{ID: "1", PartnerAccountID: 100, State: steamapi.ETradeOfferStateActive, TimeUpdated: 1000},
		}},
		{ReceivedOffers: []steamapi.TradeOffer{
			{ID: "1", PartnerAccountID: 100, State: steamapi.ETradeOfferStateAccepted, TimeUpdated: 2000},
		}},
		{ReceivedOffers: []steamapi.TradeOffer{
			{ID: "1", PartnerAccountID: 100, State: steamapi.ETradeOfferStateAccepted, TimeUpdated: 2000},
		}},
	}}
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	var events []Event
	e := newTestEngine(t, srv, WithEventHandler(collectEvents(&events)))

	for i := 0; i < 3; i++ {
		if _, err := e.pollOnce(context.Background()); err != nil {
			t.Fatalf("poll %d: %v", i, err)
		}
	}

	var acceptCount int
	for _, evt := range events {
		if evt.Type == EventAccepted {
			acceptCount++
		}
	}
	if acceptCount != 1 {
		t.Fatalf("expected exactly 1 trade_accept across 3 polls, got %d: %+v", acceptCount, events)
	}
}

func TestPollRetainsUnexpiredMissingOffer(t *testing.T) {
	future := int64(4102444800) // far future
	fake := &fakeEconServer{responses: []steamapi.TradeOffersResponse{
		{ReceivedOffers: []steamapi.TradeOffer{
			{ID: "1", PartnerAccountID: 100, State: steamapi.ETradeOfferStateActive, ExpirationTime: future, TimeUpdated: 1000},
		}},
		{}, // offer vanished from the response but hasn't expired yet
	}}
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	var events []Event
	e := newTestEngine(t, srv, WithEventHandler(collectEvents(&events)))

	if _, err := e.pollOnce(context.Background()); err != nil {
		t.Fatalf("bootstrap poll: %v", err)
	}
	if _, err := e.pollOnce(context.Background()); err != nil {
		t.Fatalf("second poll: %v", err)
	}

	if len(events) != 0 {
		t.Fatalf("expected no events for a not-yet-expired missing offer, got %+v", events)
	}
	if _, ok := e.snapshot["1"]; !ok {
		t.Fatal("expected offer 1 to still be tracked")
	}
}

func TestPollExpiresMissingOfferPastDeadline(t *testing.T) {
	fake := &fakeEconServer{responses: []steamapi.TradeOffersResponse{
		{ReceivedOffers: []steamapi.TradeOffer{
			{ID: "1", PartnerAccountID: 100, State: steamapi.ETradeOfferStateActive, ExpirationTime: 1, TimeUpdated: 1000},
		}},
		{},
	}}
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	var events []Event
	e := newTestEngine(t, srv, WithEventHandler(collectEvents(&events)))

	if _, err := e.pollOnce(context.Background()); err != nil {
		t.Fatalf("bootstrap poll: %v", err)
	}
	if _, err := e.pollOnce(context.Background()); err != nil {
		t.Fatalf("second poll: %v", err)
	}

	if len(events) != 1 || events[0].Type != EventExpired {
		t.Fatalf("expected exactly one trade_expire event, got %+v", events)
	}
}

func TestPollPairsCounterOffer(t *testing.T) {
	fake := &fakeEconServer{responses: []steamapi.TradeOffersResponse{
		{SentOffers: []steamapi.TradeOffer{
			{ID: "1", PartnerAccountID: 100, IsOurOffer: true, State: steamapi.ETradeOfferStateActive, TimeUpdated: 1000},
		}},
		{SentOffers: []steamapi.TradeOffer{
			{ID: "1", PartnerAccountID: 100, IsOurOffer: true, State: steamapi.ETradeOfferStateCountered, TimeUpdated: 1000},
			{ID: "2", PartnerAccountID: 100, IsOurOffer: true, State: steamapi.ETradeOfferStateActive, TimeCreated: 1005, TimeUpdated: 1005},
		}},
	}}
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	var events []Event
	e := newTestEngine(t, srv, WithEventHandler(collectEvents(&events)))

	if _, err := e.pollOnce(context.Background()); err != nil {
		t.Fatalf("bootstrap poll: %v", err)
	}
	if _, err := e.pollOnce(context.Background()); err != nil {
		t.Fatalf("second poll: %v", err)
	}

	if len(events) != 2 {
		t.Fatalf("expected exactly 2 events (trade_counter then trade_send), got %d: %+v", len(events), events)
	}

	counter := events[0]
	if counter.Type != EventCountered {
		t.Fatalf("expected trade_counter, got %v", counter.Type)
	}
	if counter.Offer.ID != "2" {
		t.Fatalf("expected replacement offer 2, got %s", counter.Offer.ID)
	}
	if counter.PriorOffer == nil || counter.PriorOffer.ID != "1" {
		t.Fatalf("expected prior offer 1, got %+v", counter.PriorOffer)
	}

	discovery := events[1]
	if discovery.Type != EventSent {
		t.Fatalf("expected trade_send for the replacement offer, got %v", discovery.Type)
	}
	if discovery.Offer.ID != "2" {
		t.Fatalf("expected discovery event for offer 2, got %s", discovery.Offer.ID)
	}
}

func TestPollReplayHistoricalTradesEmitsBootstrapEvents(t *testing.T) {
	fake := &fakeEconServer{responses: []steamapi.TradeOffersResponse{
		{ReceivedOffers: []steamapi.TradeOffer{
			{ID: "1", PartnerAccountID: 100, IsOurOffer: false, State: steamapi.ETradeOfferStateAccepted, TimeUpdated: 1000},
		}},
	}}
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	var events []Event
	e := newTestEngine(t, srv, WithEventHandler(collectEvents(&events)), WithReplayHistoricalTrades(true))

	if _, err := e.pollOnce(context.Background()); err != nil {
		t.Fatalf("pollOnce: %v", err)
	}

	if len(events) != 2 {
		t.Fatalf("expected 2 events (receive + accept), got %d: %+v", len(events), events)
	}
	if events[0].Type != EventReceived || events[1].Type != EventAccepted {
		t.Fatalf("unexpected event order: %+v", events)
	}
}

func TestPollBackoffDoublesOnEmptyPolls(t *testing.T) {
	fake := &fakeEconServer{responses: []steamapi.TradeOffersResponse{{}, {}, {}}}
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	e := newTestEngine(t, srv, WithPollInterval(1))

	first, err := e.pollOnce(context.Background())
	if err != nil {
		t.Fatalf("poll 1: %v", err)
	}
	second, err := e.pollOnce(context.Background())
	if err != nil {
		t.Fatalf("poll 2: %v", err)
	}
	if second <= first {
		t.Fatalf("expected backoff to grow after an empty poll: first=%v second=%v", first, second)
	}
}

func TestPollHTTP500UsesFixedRetryInterval(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	e := newTestEngine(t, srv)

	interval, err := e.pollOnce(context.Background())
	if err == nil {
		t.Fatal("expected error from HTTP 500")
	}
	if interval != errorRetryInterval {
		t.Fatalf("interval = %v, want %v", interval, errorRetryInterval)
	}
}

func TestEventTypeString(t *testing.T) {
	cases := map[EventType]string{
		EventReceived:  "trade_receive",
		EventSent:      "trade_send",
		EventAccepted:  "trade_accept",
		EventDeclined:  "trade_decline",
		EventCanceled:  "trade_cancel",
		EventExpired:   "trade_expire",
		EventCountered: "trade_counter",
	}
	for typ, want := range cases {
		if got := typ.String(); got != want {
			t.Errorf("%v.String() = %q, want %q", int(typ), got, want)
		}
	}
	if got := EventType(999).String(); got != "unknown" {
		t.Errorf("unknown EventType.String() = %q, want %q", got, "unknown")
	}
}
