package steam

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
)

const (
	TradeStateNone = iota
	TradeStateInvalid
	TradeStateActive
	TradeStateAccepted
	TradeStateCountered
	TradeStateExpired
	TradeStateCanceled
	TradeStateDeclined
	TradeStateInvalidItems
	TradeStateCreatedNeedsConfirmation
	TradeStateCanceledByTwoFactor
	TradeStateInEscrow
)

const (
	TradeConfirmationNone = iota
	TradeConfirmationEmail
	TradeConfirmationMobileApp
	TradeConfirmationMobile
)

const (
	TradeFilterNone             = 0
	TradeFilterSentOffers       = 1 << 0
	TradeFilterRecvOffers       = 1 << 1
	TradeFilterActiveOnly       = 1 << 3
	TradeFilterHistoricalOnly   = 1 << 4
	TradeFilterItemDescriptions = 1 << 5
)

const offerLifetime = 14 * 24 * time.Hour

type EconItemDesc struct {
	ClassID        uint64 `json:"classid,string"`
	InstanceID     uint64 `json:"instanceid,string"`
	Tradable       int    `json:"tradable"`
	Name           string `json:"name"`
	MarketHashName string `json:"market_hash_name"`
	AppData        struct {
		DefIndex int `json:"def_index,string"`
	} `json:"app_data"`
}

type TradeOfferResponse struct {
	Offer          *TradeOffer     `json:"offer"`
	SentOffers     []*TradeOffer   `json:"trade_offers_sent"`
	ReceivedOffers []*TradeOffer   `json:"trade_offers_received"`
	Descriptions   []*EconItemDesc `json:"descriptions"`
}

type APIResponse struct {
	Inner *TradeOfferResponse `json:"response"`
}

func testBit(bits uint32, bit uint32) bool {
	return (bits & bit) == bit
}

func (c *Client) getJSON(ctx context.Context, uri string, v interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusForbidden {
		return ApiAccessDeniedError
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("http error: %d", resp.StatusCode)
	}

	return json.NewDecoder(resp.Body).Decode(v)
}

func (c *Client) GetTradeOffer(ctx context.Context, id uint64) (*TradeOffer, error) {
	var response APIResponse
	err := c.getJSON(ctx, c.apiURL+"/IEconService/GetTradeOffer/v1/?"+url.Values{
		"key":          {c.apiKey},
		"tradeofferid": {strconv.FormatUint(id, 10)},
		"language":     {c.language},
	}.Encode(), &response)
	if err != nil {
		return nil, fmt.Errorf("get trade offer %d: %w", id, err)
	}

	if response.Inner == nil || response.Inner.Offer == nil {
		return nil, fmt.Errorf("get trade offer %d: empty response", id)
	}

	return response.Inner.Offer, nil
}

func (c *Client) GetTradeOffers(ctx context.Context, filter uint32, timeCutOff time.Time) (*TradeOfferResponse, error) {
	params := url.Values{
		"key":      {c.apiKey},
		"language": {c.language},
	}
	if testBit(filter, TradeFilterSentOffers) {
		params.Set("get_sent_offers", "1")
	}

	if testBit(filter, TradeFilterRecvOffers) {
		params.Set("get_received_offers", "1")
	}

	if testBit(filter, TradeFilterActiveOnly) {
		params.Set("active_only", "1")
	}

	if testBit(filter, TradeFilterItemDescriptions) {
		params.Set("get_descriptions", "1")
	}

	if testBit(filter, TradeFilterHistoricalOnly) {
		params.Set("historical_only", "1")
		params.Set("time_historical_cutoff", strconv.FormatInt(timeCutOff.Unix(), 10))
	}

	var response APIResponse
	if err := c.getJSON(ctx, c.apiURL+"/IEconService/GetTradeOffers/v1/?"+params.Encode(), &response); err != nil {
		return nil, fmt.Errorf("get trade offers: %w", err)
	}

	if response.Inner == nil {
		return &TradeOfferResponse{}, nil
	}

	return response.Inner, nil
}

// GetMyTradeToken reads the trade offer access token from the privacy page.
func (c *Client) GetMyTradeToken(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.communityURL+"/my/tradeoffers/privacy", nil)
	if err != nil {
		return "", err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("http error: %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return "", err
	}

	raw, ok := doc.Find("#trade_offer_access_url").Attr("value")
	if !ok {
		return "", CannotFindTradeOfferInfoError
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}

	token := u.Query().Get("token")
	if token == "" {
		return "", CannotFindTradeOfferInfoError
	}

	return token, nil
}

type sendOfferResponse struct {
	ErrorMessage               string `json:"strError"`
	ID                         uint64 `json:"tradeofferid,string"`
	MobileConfirmationRequired bool   `json:"needs_mobile_confirmation"`
	EmailConfirmationRequired  bool   `json:"needs_email_confirmation"`
	EmailDomain                string `json:"email_domain"`
}

func (c *Client) SendTradeOffer(ctx context.Context, offer *TradeOffer, sid SteamID, token string) error {
	form := url.Values{
		"partner":           {sid.ToString()},
		"tradeoffermessage": {offer.Message},
	}
	if token != "" {
		form.Set("trade_offer_create_params", "{\"trade_offer_access_token\":\""+token+"\"}")
	} else {
		form.Set("trade_offer_create_params", "{}")
	}

	referer := c.communityURL + "/tradeoffer/new/?" + url.Values{
		"partner": {strconv.FormatUint(uint64(sid.GetAccountID()), 10)},
		"token":   {token},
	}.Encode()

	return c.postOffer(ctx, offer, form, referer)
}

// CounterTradeOffer replaces a received offer with one holding offer's current items.
// On success offer describes the new, outgoing offer.
func (c *Client) CounterTradeOffer(ctx context.Context, offer *TradeOffer) error {
	if offer.IsOurOffer || offer.ID == 0 {
		return OfferNotCounterableError
	}

	var sid SteamID
	sid.ParseDefaults(offer.Partner)

	countered := offer.ID
	form := url.Values{
		"partner":                   {sid.ToString()},
		"tradeoffermessage":         {offer.Message},
		"tradeofferid_countered":    {strconv.FormatUint(countered, 10)},
		"trade_offer_create_params": {"{}"},
	}
	referer := fmt.Sprintf("%s/tradeoffer/%d/", c.communityURL, countered)

	if err := c.postOffer(ctx, offer, form, referer); err != nil {
		return err
	}

	c.log.Info("countered trade offer",
		zap.Uint64("offer_id", countered),
		zap.Uint64("new_offer_id", offer.ID),
	)
	return nil
}

func (c *Client) postOffer(ctx context.Context, offer *TradeOffer, form url.Values, referer string) error {
	sessionID, err := c.sessionID()
	if err != nil {
		return err
	}

	content := map[string]interface{}{
		"newversion": true,
		"version":    offer.Items().Version(),
		"me": map[string]interface{}{
			"assets":   nonNil(offer.SendItems),
			"currency": make([]struct{}, 0),
			"ready":    false,
		},
		"them": map[string]interface{}{
			"assets":   nonNil(offer.RecvItems),
			"currency": make([]struct{}, 0),
			"ready":    false,
		},
	}

	contentJSON, err := json.Marshal(content)
	if err != nil {
		return err
	}

	form.Set("sessionid", sessionID)
	form.Set("serverid", "1")
	form.Set("json_tradeoffer", string(contentJSON))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.communityURL+"/tradeoffer/new/send", strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Add("Referer", referer)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var response sendOfferResponse
	if err = json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return fmt.Errorf("decode send offer response: %w", err)
	}

	if len(response.ErrorMessage) != 0 {
		return errors.New(response.ErrorMessage)
	}

	if response.ID == 0 {
		return NoOfferIDError
	}

	now := time.Now()
	offer.ID = response.ID
	offer.Created = now.Unix()
	offer.Updated = now.Unix()
	offer.Expires = now.Add(offerLifetime).Unix()
	offer.RealTime = false
	offer.IsOurOffer = true
	offer.Items().commit()

	// email confirmation is deprecated, only mobile is tracked
	if response.MobileConfirmationRequired {
		offer.ConfirmationMethod = TradeConfirmationMobileApp
		offer.State = TradeStateCreatedNeedsConfirmation
	} else {
		offer.State = TradeStateActive
	}

	return nil
}

func nonNil(items []*EconItem) []*EconItem {
	if items == nil {
		return make([]*EconItem, 0)
	}
	return items
}

func (c *Client) postEResult(ctx context.Context, op, endpoint string, id uint64) error {
	form := url.Values{
		"key":          {c.apiKey},
		"tradeofferid": {strconv.FormatUint(id, 10)},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL+endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	resp.Body.Close()

	if result := resp.Header.Get("x-eresult"); result != "1" {
		return &EResultError{Op: op, Result: result}
	}

	return nil
}

func (c *Client) DeclineTradeOffer(ctx context.Context, id uint64) error {
	return c.postEResult(ctx, "decline trade", "/IEconService/DeclineTradeOffer/v1/", id)
}

func (c *Client) CancelTradeOffer(ctx context.Context, id uint64) error {
	return c.postEResult(ctx, "cancel trade", "/IEconService/CancelTradeOffer/v1/", id)
}

// AcceptResult is what steam answers to an accepted offer.
type AcceptResult struct {
	TradeID                    uint64 `json:"tradeid,string"`
	MobileConfirmationRequired bool   `json:"needs_mobile_confirmation"`
	EmailConfirmationRequired  bool   `json:"needs_email_confirmation"`
	ErrorMessage               string `json:"strError"`
}

func (c *Client) AcceptTradeOffer(ctx context.Context, id uint64) (*AcceptResult, error) {
	sessionID, err := c.sessionID()
	if err != nil {
		return nil, err
	}

	tid := strconv.FormatUint(id, 10)
	postURL := c.communityURL + "/tradeoffer/" + tid

	req, err := http.NewRequestWithContext(ctx,
		http.MethodPost,
		postURL+"/accept",
		strings.NewReader(url.Values{
			"sessionid":    {sessionID},
			"serverid":     {"1"},
			"tradeofferid": {tid},
		}.Encode()),
	)
	if err != nil {
		return nil, err
	}

	req.Header.Add("Referer", postURL)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("http error: %d", resp.StatusCode)
	}

	var result AcceptResult
	if err = json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode accept response: %w", err)
	}

	if len(result.ErrorMessage) != 0 {
		return nil, errors.New(result.ErrorMessage)
	}

	return &result, nil
}
