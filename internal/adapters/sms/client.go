package sms

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/dumu-tech/digibill/internal/config"
	"github.com/dumu-tech/digibill/internal/core"
)

// Client sends transactional SMS through the Digialaya HTTP gateway. The
// gateway takes everything as query parameters on a GET request and
// answers with a JSON body we only inspect for logging.
type Client struct {
	baseURL        string
	userID         string
	password       string
	senderID       string
	serviceName    string
	messageType    string
	otpTemplateID  string
	billTemplateID string
	baseLinkURL    string
	httpClient     *http.Client
}

// NewClient creates an SMS gateway client from the loaded configuration
func NewClient(cfg *config.Config) *Client {
	return &Client{
		baseURL:        cfg.SMSBaseURL,
		userID:         cfg.SMSUserID,
		password:       cfg.SMSPassword,
		senderID:       cfg.SMSSenderID,
		serviceName:    cfg.SMSServiceName,
		messageType:    cfg.SMSMessageType,
		otpTemplateID:  cfg.OTPTemplateID,
		billTemplateID: cfg.BillTemplateID,
		baseLinkURL:    cfg.BaseURL,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// SendBillLink texts the customer a link to view their digital bill
func (c *Client) SendBillLink(ctx context.Context, phone, billID string) error {
	message := fmt.Sprintf("Thank you for shopping with us! View your bill here: %s/mybill?b=%s", c.baseLinkURL, billID)
	return c.send(ctx, phone, message, c.billTemplateID)
}

// SendOTP texts a verification code to the customer
func (c *Client) SendOTP(ctx context.Context, phone, code string) error {
	message := fmt.Sprintf("%s is your verification code. It expires in 5 minutes.", code)
	return c.send(ctx, phone, message, c.otpTemplateID)
}

// SendText submits one free-form message to the gateway
func (c *Client) SendText(ctx context.Context, phone, message string) error {
	return c.send(ctx, phone, message, "")
}

// send submits one message, carrying the DLT template id when the message
// was built from a registered template
func (c *Client) send(ctx context.Context, phone, message, templateID string) error {
	params := url.Values{}
	params.Set("userid", c.userID)
	params.Set("password", c.password)
	params.Set("senderid", c.senderID)
	params.Set("sendMethod", "quick")
	params.Set("msgType", c.messageType)
	params.Set("output", "json")
	params.Set("duplicatecheck", "true")
	if c.serviceName != "" {
		params.Set("serviceName", c.serviceName)
	}
	if templateID != "" {
		params.Set("templateid", templateID)
	}
	params.Set("mobile", phone)
	params.Set("msg", message)

	endpoint := c.baseURL + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create sms request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send sms: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("sms gateway returned status %d: %s: %w", resp.StatusCode, string(body), core.ErrUpstream)
	}
	return nil
}
