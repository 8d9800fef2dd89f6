package services

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	"tikiti/internal/config"
)

// STKPusher is the push-payment provider boundary. Initiating a push asks
// the provider to pop a PIN prompt on the payer's phone; the final outcome
// arrives later on the callback endpoint.
type STKPusher interface {
	STKPush(ctx context.Context, req STKPushRequest) (*STKPushResponse, error)
}

// STKPushRequest carries everything the provider needs to prompt the payer.
// Phone must already be in canonical international format and Amount is in
// cents.
type STKPushRequest struct {
	Phone            string
	Amount           int
	AccountReference string
	Description      string
}

// STKPushResponse is the provider's synchronous acknowledgement. The
// CheckoutRequestID correlates the eventual callback with the order.
type STKPushResponse struct {
	CheckoutRequestID string
	MerchantRequestID string
	ResponseCode      string
	CustomerMessage   string
}

// DarajaClient talks to the Safaricom Daraja API for M-Pesa STK pushes.
type DarajaClient struct {
	config  config.DarajaConfig
	client  *http.Client
	baseURL string

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
}

// NewDarajaClient creates a new Daraja API client
func NewDarajaClient(cfg config.DarajaConfig) *DarajaClient {
	baseURL := "https://api.safaricom.co.ke"
	if cfg.Environment == "sandbox" {
		baseURL = "https://sandbox.safaricom.co.ke"
	}

	return &DarajaClient{
		config:  cfg,
		client:  &http.Client{Timeout: 30 * time.Second},
		baseURL: baseURL,
	}
}

type darajaAuthResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   string `json:"expires_in"`
}

type darajaSTKPushRequest struct {
	BusinessShortCode string `json:"BusinessShortCode"`
	Password          string `json:"Password"`
	Timestamp         string `json:"Timestamp"`
	TransactionType   string `json:"TransactionType"`
	Amount            string `json:"Amount"`
	PartyA            string `json:"PartyA"`
	PartyB            string `json:"PartyB"`
	PhoneNumber       string `json:"PhoneNumber"`
	CallBackURL       string `json:"CallBackURL"`
	AccountReference  string `json:"AccountReference"`
	TransactionDesc   string `json:"TransactionDesc"`
}

type darajaSTKPushResponse struct {
	MerchantRequestID   string `json:"MerchantRequestID"`
	CheckoutRequestID   string `json:"CheckoutRequestID"`
	ResponseCode        string `json:"ResponseCode"`
	ResponseDescription string `json:"ResponseDescription"`
	CustomerMessage     string `json:"CustomerMessage"`
	ErrorCode           string `json:"errorCode"`
	ErrorMessage        string `json:"errorMessage"`
}

// STKPush initiates a push payment. Amounts are converted from cents to
// whole shillings because M-Pesa does not carry sub-shilling amounts.
func (c *DarajaClient) STKPush(ctx context.Context, req STKPushRequest) (*STKPushResponse, error) {
	token, err := c.authenticate(ctx)
	if err != nil {
		return nil, fmt.Errorf("authentication failed: %w", err)
	}

	timestamp := time.Now().Format("20060102150405")
	password := base64.StdEncoding.EncodeToString(
		[]byte(c.config.ShortCode + c.config.Passkey + timestamp))

	amount := req.Amount / 100
	if req.Amount%100 != 0 {
		amount++
	}

	body := darajaSTKPushRequest{
		BusinessShortCode: c.config.ShortCode,
		Password:          password,
		Timestamp:         timestamp,
		TransactionType:   "CustomerPayBillOnline",
		Amount:            strconv.Itoa(amount),
		PartyA:            req.Phone,
		PartyB:            c.config.ShortCode,
		PhoneNumber:       req.Phone,
		CallBackURL:       c.config.CallbackURL,
		AccountReference:  req.AccountReference,
		TransactionDesc:   req.Description,
	}

	jsonData, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal stk push request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/mpesa/stkpush/v1/processrequest", bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create stk push request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+token)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to send stk push request: %w", err)
	}
	defer resp.Body.Close()

	var pushResp darajaSTKPushResponse
	if err := json.NewDecoder(resp.Body).Decode(&pushResp); err != nil {
		return nil, fmt.Errorf("failed to decode stk push response: %w", err)
	}

	if pushResp.ErrorCode != "" {
		return nil, fmt.Errorf("stk push rejected (%s): %s", pushResp.ErrorCode, pushResp.ErrorMessage)
	}

	if pushResp.ResponseCode != "0" {
		return nil, fmt.Errorf("stk push rejected: %s", pushResp.ResponseDescription)
	}

	if pushResp.CheckoutRequestID == "" {
		return nil, fmt.Errorf("stk push accepted without a checkout request id")
	}

	return &STKPushResponse{
		CheckoutRequestID: pushResp.CheckoutRequestID,
		MerchantRequestID: pushResp.MerchantRequestID,
		ResponseCode:      pushResp.ResponseCode,
		CustomerMessage:   pushResp.CustomerMessage,
	}, nil
}

// authenticate fetches an OAuth token, caching it until shortly before
// expiry so concurrent pushes do not stampede the auth endpoint.
func (c *DarajaClient) authenticate(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && time.Now().Before(c.tokenExpiry) {
		return c.token, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/oauth/v1/generate?grant_type=client_credentials", nil)
	if err != nil {
		return "", fmt.Errorf("failed to create auth request: %w", err)
	}
	req.SetBasicAuth(c.config.ConsumerKey, c.config.ConsumerSecret)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send auth request: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read auth response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("auth request failed with status %d: %s", resp.StatusCode, string(bodyBytes))
	}

	var authResp darajaAuthResponse
	if err := json.Unmarshal(bodyBytes, &authResp); err != nil {
		return "", fmt.Errorf("failed to decode auth response: %w", err)
	}

	if authResp.AccessToken == "" {
		return "", fmt.Errorf("received empty access token")
	}

	expiresIn, err := strconv.Atoi(authResp.ExpiresIn)
	if err != nil || expiresIn <= 0 {
		expiresIn = 3600
	}

	c.token = authResp.AccessToken
	c.tokenExpiry = time.Now().Add(time.Duration(expiresIn-60) * time.Second)

	return c.token, nil
}
