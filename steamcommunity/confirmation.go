package steamcommunity

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/k64z/steamstacks/steamapi"
	"github.com/k64z/steamstacks/steamtotp"
)

// replayRetryDelay is how long to wait before retrying a confirmation
// request that Steam rejected as a replay (our clock drifted enough that
// the request landed outside the server's acceptance window). Overridden
// in tests to keep them fast.
var replayRetryDelay = 30 * time.Second

// ConfirmationType represents the type of confirmation.
type ConfirmationType int

const (
	ConfirmationTypeUnknown       ConfirmationType = 0
	ConfirmationTypeTrade         ConfirmationType = 2
	ConfirmationTypeMarketListing ConfirmationType = 3
)

func (t ConfirmationType) String() string {
	switch t {
	case ConfirmationTypeTrade:
		return "Trade"
	case ConfirmationTypeMarketListing:
		return "Market Listing"
	default:
		return "Unknown"
	}
}

// Confirmation represents a pending mobile confirmation.
type Confirmation struct {
	ID        string           `json:"id"`
	Type      ConfirmationType `json:"type"`
	CreatorID string           `json:"creator_id"` // TradeOfferID for trades, listing ID for market
	Key       string           `json:"nonce"`      // Used for responding to confirmation
	Title     string           `json:"title"`
	Headline  string           `json:"headline"`
	Summary   []string         `json:"summary"`
	Timestamp time.Time        `json:"timestamp"`
	Icon      string           `json:"icon"`
}

// buildConfirmationParams builds the common query parameters for confirmation requests.
func (c *Community) buildConfirmationParams(identitySecret []byte, tag string) (url.Values, error) {
	serverTime, _, err := steamapi.GetSteamTimeWithClient(context.Background(), c.httpClient)
	if err != nil {
		return nil, fmt.Errorf("get steam time: %w", err)
	}

	steamID64 := c.SteamID.ToSteamID64()
	key := steamtotp.GenerateConfirmationKey(identitySecret, serverTime, tag)
	deviceID := steamtotp.GetDeviceID(steamID64)

	params := url.Values{}
	params.Set("p", deviceID)
	params.Set("a", strconv.FormatUint(steamID64, 10))
	params.Set("k", key)
	params.Set("t", strconv.FormatInt(serverTime, 10))
	params.Set("m", "android")
	params.Set("tag", tag)

	return params, nil
}

// GetConfirmations retrieves all pending confirmations.
// The identitySecret should be the base64-decoded identity_secret from your maFile.
func (c *Community) GetConfirmations(ctx context.Context, identitySecret []byte) ([]Confirmation, error) {
	result, err := c.fetchConfirmationList(ctx, identitySecret)
	if err != nil {
		return nil, err
	}

	confirmations := make([]Confirmation, len(result.Conf))
	for i, c := range result.Conf {
		confirmations[i] = Confirmation{
			ID:        c.ID,
			Type:      ConfirmationType(c.Type),
			CreatorID: c.CreatorID,
			Key:       c.Nonce,
			Title:     c.TypeName,
			Headline:  c.Headline,
			Summary:   c.Summary,
			Timestamp: time.Unix(c.CreationTime, 0),
			Icon:      c.Icon,
		}
	}

	return confirmations, nil
}

type confirmationListResult struct {
	Success bool `json:"success"`
	Conf    []struct {
		ID           string   `json:"id"`
		Type         int      `json:"type"`
		CreatorID    string   `json:"creator_id"`
		Nonce        string   `json:"nonce"`
		TypeName     string   `json:"type_name"`
		Headline     string   `json:"headline"`
		Summary      []string `json:"summary"`
		CreationTime int64    `json:"creation_time"`
		Icon         string   `json:"icon"`
	} `json:"conf"`
	NeedAuth bool   `json:"needauth"`
	Message  string `json:"message"`
}

// isReplayMessage reports whether Steam rejected a confirmation request
// because the request's timestamp fell outside its acceptance window.
func isReplayMessage(message string) bool {
	return message == "Replay detected; please try again" || message == "replayed"
}

// fetchConfirmationList performs the mobileconf/getlist call, retrying once
// after replayRetryDelay if Steam reports the request as replayed.
func (c *Community) fetchConfirmationList(ctx context.Context, identitySecret []byte) (*confirmationListResult, error) {
	for attempt := 0; ; attempt++ {
		params, err := c.buildConfirmationParams(identitySecret, "conf")
		if err != nil {
			return nil, err
		}

		reqURL := "https://steamcommunity.com/mobileconf/getlist?" + params.Encode()
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("do request: %w", err)
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("read body: %w", err)
		}

		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(body))
		}

		var result confirmationListResult
		if err := json.Unmarshal(body, &result); err != nil {
			return nil, fmt.Errorf("decode response: %w", err)
		}

		if result.NeedAuth {
			return nil, fmt.Errorf("authentication required")
		}

		if !result.Success && attempt == 0 && isReplayMessage(result.Message) {
			if err := sleepContext(ctx, replayRetryDelay); err != nil {
				return nil, err
			}
			continue
		}

		if !result.Success {
			if result.Message != "" {
				return nil, fmt.Errorf("steam error: %s", result.Message)
			}
			return nil, fmt.Errorf("request failed")
		}

		return &result, nil
	}
}

// sleepContext waits for d or returns early if ctx is done.
func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// respondToConfirmation sends an accept or reject response for a confirmation,
// retrying once after replayRetryDelay if Steam reports the request as replayed.
func (c *Community) respondToConfirmation(ctx context.Context, conf Confirmation, identitySecret []byte, accept bool) error {
	tag := "cancel"
	op := "cancel"
	if accept {
		tag = "allow"
		op = "allow"
	}

	for attempt := 0; ; attempt++ {
		params, err := c.buildConfirmationParams(identitySecret, tag)
		if err != nil {
			return err
		}

		params.Set("op", op)
		params.Set("cid", conf.ID)
		params.Set("ck", conf.Key)

		reqURL := "https://steamcommunity.com/mobileconf/ajaxop?" + params.Encode()
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("do request: %w", err)
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return fmt.Errorf("read body: %w", err)
		}

		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(body))
		}

		var result struct {
			Success bool   `json:"success"`
			Message string `json:"message"`
		}

		if err := json.Unmarshal(body, &result); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}

		if result.Success {
			return nil
		}

		if attempt == 0 && isReplayMessage(result.Message) {
			if err := sleepContext(ctx, replayRetryDelay); err != nil {
				return err
			}
			continue
		}

		if result.Message != "" {
			return fmt.Errorf("steam error: %s", result.Message)
		}
		return fmt.Errorf("operation failed")
	}
}

// AcceptConfirmation accepts a pending confirmation.
func (c *Community) AcceptConfirmation(ctx context.Context, conf Confirmation, identitySecret []byte) error {
	return c.respondToConfirmation(ctx, conf, identitySecret, true)
}

// RejectConfirmation rejects a pending confirmation.
func (c *Community) RejectConfirmation(ctx context.Context, conf Confirmation, identitySecret []byte) error {
	return c.respondToConfirmation(ctx, conf, identitySecret, false)
}

// AcceptConfirmationByCreatorID finds and accepts a confirmation by its creator ID.
// For trade offers, the creator ID is the trade offer ID.
// For market listings, the creator ID is the listing ID.
func (c *Community) AcceptConfirmationByCreatorID(ctx context.Context, identitySecret []byte, creatorID string) error {
	confirmations, err := c.GetConfirmations(ctx, identitySecret)
	if err != nil {
		return fmt.Errorf("get confirmations: %w", err)
	}

	for _, conf := range confirmations {
		if conf.CreatorID == creatorID {
			return c.AcceptConfirmation(ctx, conf, identitySecret)
		}
	}

	return fmt.Errorf("confirmation with creator ID %s not found", creatorID)
}

// RejectConfirmationByCreatorID finds and rejects a confirmation by its creator ID.
func (c *Community) RejectConfirmationByCreatorID(ctx context.Context, identitySecret []byte, creatorID string) error {
	confirmations, err := c.GetConfirmations(ctx, identitySecret)
	if err != nil {
		return fmt.Errorf("get confirmations: %w", err)
	}

	for _, conf := range confirmations {
		if conf.CreatorID == creatorID {
			return c.RejectConfirmation(ctx, conf, identitySecret)
		}
	}

	return fmt.Errorf("confirmation with creator ID %s not found", creatorID)
}
