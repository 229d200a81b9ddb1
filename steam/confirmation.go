package steam

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
)

const (
	AnswerAllow = "allow"
	AnswerDeny  = "deny"
)

type Confirmation struct {
	ID        uint64
	Key       uint64
	Title     string
	Receiving string
	Since     string
	OfferID   uint64
}

func (confirmation *Confirmation) Answer(ctx context.Context, client *Client, answer string) error {
	return client.AnswerConfirmation(ctx, confirmation, answer)
}

type ConfirmationAnswerResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type confirmationRequest struct {
	ctx    context.Context
	uri    string
	tag    string
	values map[string]interface{}
	resp   chan confirmationResponse
}

type confirmationResponse struct {
	body   []byte
	status int
	err    error
}

// StartConfirmationWorker serializes mobile confirmation calls and waits delay
// between them. It returns once ctx is done.
func (c *Client) StartConfirmationWorker(ctx context.Context, delay time.Duration) {
	queue := make(chan *confirmationRequest)
	done := make(chan struct{})

	c.confMu.Lock()
	c.confQueue = queue
	c.confDone = done
	c.confMu.Unlock()

	defer close(done)
	for {
		select {
		case req := <-queue:
			req.resp <- c.execConfirmationRequest(req.ctx, req.uri, req.tag, req.values)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

func (c *Client) confirmationRequest(ctx context.Context, uri, tag string, values map[string]interface{}) confirmationResponse {
	c.confMu.Lock()
	queue, done := c.confQueue, c.confDone
	c.confMu.Unlock()

	if queue == nil {
		return c.execConfirmationRequest(ctx, uri, tag, values)
	}

	req := &confirmationRequest{
		ctx:    ctx,
		uri:    uri,
		tag:    tag,
		values: values,
		resp:   make(chan confirmationResponse, 1),
	}

	select {
	case queue <- req:
	case <-done:
		return confirmationResponse{err: ConfirmationWorkerStoppedError}
	case <-ctx.Done():
		return confirmationResponse{err: ctx.Err()}
	}

	select {
	case resp := <-req.resp:
		return resp
	case <-ctx.Done():
		return confirmationResponse{err: ctx.Err()}
	}
}

func (c *Client) GetConfirmations(ctx context.Context) ([]*Confirmation, error) {
	resp := c.confirmationRequest(ctx, "conf", "conf", nil)
	if resp.err != nil {
		return nil, resp.err
	}

	return parseConfirmations(bytes.NewReader(resp.body))
}

func parseConfirmations(body io.Reader) ([]*Confirmation, error) {
	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return nil, err
	}

	entries := doc.Find(".mobileconf_list_entry")
	if entries.Length() == 0 {
		if doc.Find("#mobileconf_empty").Length() != 0 {
			return []*Confirmation{}, nil
		}
		return nil, ConfirmationsNotFoundError
	}

	confirmations := make([]*Confirmation, 0, entries.Length())
	var parseErr error
	entries.EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		desc := sel.Find(".mobileconf_list_entry_description")
		if desc.Length() == 0 {
			parseErr = ConfirmationsDescriptionNotFoundError
			return false
		}

		confirmation := &Confirmation{}
		confirmation.ID, _ = strconv.ParseUint(sel.AttrOr("data-confid", ""), 10, 64)
		confirmation.Key, _ = strconv.ParseUint(sel.AttrOr("data-key", ""), 10, 64)
		confirmation.OfferID, _ = strconv.ParseUint(sel.AttrOr("data-creator", ""), 10, 64)

		desc.ChildrenFiltered("div").Each(func(depth int, line *goquery.Selection) {
			text := strings.TrimSpace(line.Text())
			switch depth {
			case 0:
				confirmation.Title = text
			case 1:
				confirmation.Receiving = text
			case 2:
				confirmation.Since = text
			}
		})

		confirmations = append(confirmations, confirmation)
		return true
	})
	if parseErr != nil {
		return nil, parseErr
	}

	return confirmations, nil
}

func (c *Client) execConfirmationRequest(ctx context.Context, uri, tag string, values map[string]interface{}) confirmationResponse {
	if c.credentials.IdentitySecret == "" {
		return confirmationResponse{err: IdentitySecretEmptyError, status: http.StatusBadRequest}
	}
	if c.session == nil {
		return confirmationResponse{err: InvalidSessionError, status: http.StatusBadRequest}
	}

	now := c.getTimeDiff()
	key, err := GenerateConfirmationCode(c.credentials.IdentitySecret, tag, now)
	if err != nil {
		return confirmationResponse{err: err, status: http.StatusBadRequest}
	}

	params := url.Values{
		"p":   {c.session.DeviceID},
		"a":   {c.session.SteamID.ToString()},
		"t":   {strconv.FormatInt(now, 10)},
		"m":   {"android"},
		"k":   {key},
		"tag": {tag},
	}

	for k, v := range values {
		switch v := v.(type) {
		case string:
			params.Add(k, v)
		case uint64:
			params.Add(k, strconv.FormatUint(v, 10))
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.communityURL+"/mobileconf/"+uri+"?"+params.Encode(), nil)
	if err != nil {
		return confirmationResponse{err: err, status: http.StatusBadRequest}
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return confirmationResponse{err: err, status: http.StatusBadRequest}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err == nil && resp.StatusCode != http.StatusOK {
		err = fmt.Errorf("http error: %d", resp.StatusCode)
	}

	return confirmationResponse{
		err:    err,
		body:   body,
		status: resp.StatusCode,
	}
}

func (c *Client) AnswerConfirmation(ctx context.Context, confirmation *Confirmation, answer string) error {
	op := map[string]interface{}{
		"op":  answer,
		"cid": confirmation.ID,
		"ck":  confirmation.Key,
	}

	resp := c.confirmationRequest(ctx, "ajaxop", answer, op)
	if resp.err != nil {
		return resp.err
	}

	var response ConfirmationAnswerResponse
	if err := json.Unmarshal(resp.body, &response); err != nil {
		return err
	}

	if !response.Success {
		if response.Message == "" {
			return fmt.Errorf("cannot %s confirmation %d", answer, confirmation.ID)
		}
		return errors.New(response.Message)
	}

	c.log.Debug("answered confirmation",
		zap.Uint64("confirmation_id", confirmation.ID),
		zap.Uint64("offer_id", confirmation.OfferID),
		zap.String("answer", answer),
	)
	return nil
}
