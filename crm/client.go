package crm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"portal_leads/models"
)

var ErrNotConfigured = errors.New("bitrix webhook not configured")

// Client talks to a Bitrix24 inbound webhook.
type Client struct {
	webhookURL           string
	listingsEntityTypeID int
	client               *http.Client
}

func NewClient(webhookURL string, listingsEntityTypeID int, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		webhookURL:           strings.TrimRight(webhookURL, "/"),
		listingsEntityTypeID: listingsEntityTypeID,
		client:               httpClient,
	}
}

type envelope struct {
	Result           json.RawMessage `json:"result"`
	Error            string          `json:"error"`
	ErrorDescription string          `json:"error_description"`
}

func (c *Client) call(ctx context.Context, method string, params interface{}, out interface{}) error {
	if c.webhookURL == "" {
		return ErrNotConfigured
	}

	body, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("%s: encode params: %w", method, err)
	}

	url := fmt.Sprintf("%s/%s.json", c.webhookURL, method)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%s: read body: %w", method, err)
	}

	var env envelope
	if err := json.Unmarshal(respBody, &env); err != nil {
		if resp.StatusCode >= 400 {
			return fmt.Errorf("%s: bitrix error %d: %s", method, resp.StatusCode, string(respBody))
		}
		return fmt.Errorf("%s: decode response: %w", method, err)
	}

	if env.Error != "" {
		return &APIError{Method: method, Code: env.Error, Description: env.ErrorDescription}
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("%s: bitrix error %d: %s", method, resp.StatusCode, string(respBody))
	}

	if out != nil && len(env.Result) > 0 {
		if err := json.Unmarshal(env.Result, out); err != nil {
			return fmt.Errorf("%s: decode result: %w", method, err)
		}
	}
	return nil
}

// CreateDeal adds a deal and returns its id.
func (c *Client) CreateDeal(ctx context.Context, fields models.DealFields) (int, error) {
	var id models.FlexString
	if err := c.call(ctx, "crm.deal.add", map[string]interface{}{"fields": fields}, &id); err != nil {
		return 0, err
	}

	dealID, err := strconv.Atoi(id.String())
	if err != nil || dealID <= 0 {
		return 0, fmt.Errorf("crm.deal.add: unexpected result %q", id)
	}
	return dealID, nil
}

// FindUser returns the id of the first user matching filter.
func (c *Client) FindUser(ctx context.Context, filter Filter) (int, bool, error) {
	var users []struct {
		ID models.FlexString `json:"ID"`
	}
	if err := c.call(ctx, "user.get", map[string]interface{}{"filter": filter}, &users); err != nil {
		return 0, false, err
	}

	if len(users) == 0 {
		return 0, false, nil
	}
	id, err := strconv.Atoi(users[0].ID.String())
	if err != nil || id <= 0 {
		return 0, false, nil
	}
	return id, true, nil
}

// FindListing looks up a listing by reference number. Returns nil when none exists.
func (c *Client) FindListing(ctx context.Context, reference string) (*models.Listing, error) {
	params := map[string]interface{}{
		"entityTypeId": c.listingsEntityTypeID,
		"filter":       map[string]string{"ufCrm37ReferenceNumber": reference},
		"select":       []string{"ufCrm37ReferenceNumber", "ufCrm37AgentEmail", "ufCrm37ListingOwner", "ufCrm37OwnerId"},
	}

	var result struct {
		Items []models.Listing `json:"items"`
	}
	if err := c.call(ctx, "crm.item.list", params, &result); err != nil {
		return nil, err
	}

	if len(result.Items) == 0 {
		return nil, nil
	}
	return &result.Items[0], nil
}

// RegisterCall returns the call id, or "" when Bitrix did not assign one.
func (c *Client) RegisterCall(ctx context.Context, reg CallRegistration) (string, error) {
	var result struct {
		CallID string `json:"CALL_ID"`
	}
	if err := c.call(ctx, "telephony.externalcall.register", reg, &result); err != nil {
		return "", err
	}
	return result.CallID, nil
}

func (c *Client) FinishCall(ctx context.Context, finish CallFinish) error {
	return c.call(ctx, "telephony.externalcall.finish", finish, nil)
}

func (c *Client) AttachRecording(ctx context.Context, att RecordingAttachment) error {
	return c.call(ctx, "telephony.externalcall.attachRecord", att, nil)
}
