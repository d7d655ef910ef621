package telephony

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const twilioAPIBase = "https://api.twilio.com/2010-04-01"

// TwilioClient implements Client against the Twilio REST API
type TwilioClient struct {
	accountSID string
	authToken  string
	baseURL    string
	httpClient *http.Client
}

func NewTwilioClient(accountSID, authToken string) *TwilioClient {
	return &TwilioClient{
		accountSID: accountSID,
		authToken:  authToken,
		baseURL:    twilioAPIBase,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

type twilioCallResponse struct {
	Sid       string `json:"sid"`
	Status    string `json:"status"`
	Duration  string `json:"duration"`
	Price     string `json:"price"`
	Direction string `json:"direction"`
	Message   string `json:"message"` // error body
	Code      int    `json:"code"`    // error body
}

// PlaceCall originates an outbound call via the Calls resource
func (c *TwilioClient) PlaceCall(ctx context.Context, req PlaceCallRequest) (string, error) {
	form := url.Values{}
	form.Set("From", req.From)
	form.Set("To", req.To)
	if req.ActionURL != "" {
		form.Set("Url", req.ActionURL)
	}
	if req.StatusCallbackURL != "" {
		form.Set("StatusCallback", req.StatusCallbackURL)
		form.Set("StatusCallbackEvent", "initiated ringing answered completed")
	}

	endpoint := fmt.Sprintf("%s/Accounts/%s/Calls.json", c.baseURL, c.accountSID)
	body, err := c.do(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}

	var resp twilioCallResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("failed to decode provider response: %w", err)
	}
	if resp.Sid == "" {
		return "", fmt.Errorf("provider rejected call: %s", resp.Message)
	}
	return resp.Sid, nil
}

// FetchCall retrieves the provider's record of a call
func (c *TwilioClient) FetchCall(ctx context.Context, callID string) (CallInfo, error) {
	endpoint := fmt.Sprintf("%s/Accounts/%s/Calls/%s.json", c.baseURL, c.accountSID, callID)
	body, err := c.do(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return CallInfo{}, err
	}

	var resp twilioCallResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return CallInfo{}, fmt.Errorf("failed to decode provider response: %w", err)
	}
	if resp.Sid == "" {
		return CallInfo{}, fmt.Errorf("call %s not found at provider", callID)
	}

	info := CallInfo{
		CallID:    resp.Sid,
		Status:    resp.Status,
		Direction: resp.Direction,
	}
	if resp.Duration != "" {
		if d, err := strconv.Atoi(resp.Duration); err == nil {
			info.Duration = d
		}
	}
	// Twilio reports price as a negative decimal string
	if resp.Price != "" {
		if p, err := strconv.ParseFloat(resp.Price, 64); err == nil {
			info.Cost = math.Abs(p)
		}
	}
	return info, nil
}

func (c *TwilioClient) do(ctx context.Context, method, endpoint string, body io.Reader) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, err
	}
	req.SetBasicAuth(c.accountSID, c.authToken)
	if method == http.MethodPost {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("provider request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read provider response: %w", err)
	}
	if resp.StatusCode >= 400 {
		var errResp twilioCallResponse
		if json.Unmarshal(data, &errResp) == nil && errResp.Message != "" {
			return nil, fmt.Errorf("provider error %d: %s", errResp.Code, errResp.Message)
		}
		return nil, fmt.Errorf("provider returned status %d", resp.StatusCode)
	}
	return data, nil
}
