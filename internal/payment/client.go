// Package payment предоставляет клиент платёжного шлюза push-платежей (STK push).
package payment

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/dkharlamov/dukaorder-system/internal/validation"
)

// ErrCredentialsMissing возвращается, если учётные данные провайдера не настроены.
var (
	ErrCredentialsMissing = errors.New("payment credentials missing")
	// ErrUpstreamAuth возвращается при отказе провайдера выдать токен доступа.
	ErrUpstreamAuth = errors.New("upstream auth failure")
	// ErrUpstreamRejected возвращается, если провайдер отклонил запрос на платёж.
	ErrUpstreamRejected = errors.New("upstream rejected request")
	// ErrUpstreamTimeout возвращается при истечении времени ожидания ответа провайдера.
	ErrUpstreamTimeout = errors.New("upstream timeout")
	// ErrValidation возвращается при некорректных входных данных до обращения к провайдеру.
	ErrValidation = errors.New("validation error")
)

const (
	sandboxBaseURL    = "https://sandbox.safaricom.co.ke"
	productionBaseURL = "https://api.safaricom.co.ke"

	referenceMaxLen = 12
	tokenSafetyGap  = 50 * time.Second
)

// Config содержит параметры подключения к платёжному провайдеру.
type Config struct {
	ConsumerKey    string
	ConsumerSecret string
	ShortCode      string
	PassKey        string
	Environment    string // sandbox или production
	CallbackURL    string
}

// Client инкапсулирует HTTP-взаимодействие с платёжным провайдером.
type Client struct {
	cfg        Config
	httpClient *retryablehttp.Client

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time

	now func() time.Time

	// testBaseURL подменяет адрес провайдера в тестах
	testBaseURL string
}

// NewClient создаёт клиент платёжного провайдера с таймаутами и ограниченными ретраями
// на транспортные сбои.
func NewClient(cfg Config) *Client {
	rc := retryablehttp.NewClient()
	rc.RetryMax = 2
	rc.RetryWaitMin = 200 * time.Millisecond
	rc.RetryWaitMax = 2 * time.Second
	rc.HTTPClient.Timeout = 10 * time.Second
	rc.Logger = nil

	// Ретраим только транспортные сбои: отказ провайдера отдаётся вызывающей
	// стороне как есть и автоматически не повторяется.
	rc.CheckRetry = func(ctx context.Context, resp *http.Response, err error) (bool, error) {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		return err != nil, nil
	}

	return &Client{
		cfg:        cfg,
		httpClient: rc,
		now:        time.Now,
	}
}

func (c *Client) resolvedBaseURL() string {
	if c.testBaseURL != "" {
		return c.testBaseURL
	}
	if c.cfg.Environment == "production" {
		return productionBaseURL
	}
	return sandboxBaseURL
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   string `json:"expires_in"`
}

// AccessToken обменивает учётные данные на короткоживущий bearer-токен.
// Токен кэшируется и переиспользуется до истечения срока действия.
func (c *Client) AccessToken(ctx context.Context) (string, error) {
	if c.cfg.ConsumerKey == "" || c.cfg.ConsumerSecret == "" {
		return "", ErrCredentialsMissing
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && c.now().Before(c.tokenExpiry) {
		return c.token, nil
	}

	url := c.resolvedBaseURL() + "/oauth/v1/generate?grant_type=client_credentials"

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("create token request: %w", err)
	}
	req.SetBasicAuth(c.cfg.ConsumerKey, c.cfg.ConsumerSecret)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", upstreamErr(err, ErrUpstreamAuth)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("%w: status %d: %s", ErrUpstreamAuth, resp.StatusCode, string(body))
	}

	var tr tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return "", fmt.Errorf("%w: decode token response: %v", ErrUpstreamAuth, err)
	}
	if tr.AccessToken == "" {
		return "", fmt.Errorf("%w: empty access token", ErrUpstreamAuth)
	}

	ttl := time.Hour
	if seconds, convErr := strconv.Atoi(tr.ExpiresIn); convErr == nil && seconds > 0 {
		ttl = time.Duration(seconds) * time.Second
	}

	c.token = tr.AccessToken
	c.tokenExpiry = c.now().Add(ttl - tokenSafetyGap)

	return c.token, nil
}

// STKPushResult содержит ответ провайдера на инициацию push-платежа.
type STKPushResult struct {
	CheckoutRequestID   string
	MerchantRequestID   string
	ResponseCode        string
	ResponseDescription string
	CustomerMessage     string
}

type stkPushRequest struct {
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

type stkPushResponse struct {
	MerchantRequestID   string `json:"MerchantRequestID"`
	CheckoutRequestID   string `json:"CheckoutRequestID"`
	ResponseCode        string `json:"ResponseCode"`
	ResponseDescription string `json:"ResponseDescription"`
	CustomerMessage     string `json:"CustomerMessage"`
}

// InitiateSTKPush запрашивает у провайдера отправку платёжного запроса на телефон клиента.
// Валидация входных данных выполняется до любого сетевого вызова.
func (c *Client) InitiateSTKPush(ctx context.Context, phone string, amount int64, reference, description string) (*STKPushResult, error) {
	normalized, ok := validation.NormalizePhone(phone)
	if !ok {
		return nil, fmt.Errorf("%w: invalid phone number %q", ErrValidation, phone)
	}
	if amount <= 0 {
		return nil, fmt.Errorf("%w: amount must be positive, got %d", ErrValidation, amount)
	}
	if c.cfg.ShortCode == "" || c.cfg.PassKey == "" {
		return nil, ErrCredentialsMissing
	}

	reference = sanitizeReference(reference)

	token, err := c.AccessToken(ctx)
	if err != nil {
		return nil, err
	}

	timestamp := c.now().Format("20060102150405")
	password := base64.StdEncoding.EncodeToString([]byte(c.cfg.ShortCode + c.cfg.PassKey + timestamp))

	payload := stkPushRequest{
		BusinessShortCode: c.cfg.ShortCode,
		Password:          password,
		Timestamp:         timestamp,
		TransactionType:   "CustomerPayBillOnline",
		Amount:            strconv.FormatInt(amount, 10),
		PartyA:            normalized,
		PartyB:            c.cfg.ShortCode,
		PhoneNumber:       normalized,
		CallBackURL:       c.cfg.CallbackURL,
		AccountReference:  reference,
		TransactionDesc:   description,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal stk push request: %w", err)
	}

	url := c.resolvedBaseURL() + "/mpesa/stkpush/v1/processrequest"

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create stk push request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, upstreamErr(err, ErrUpstreamRejected)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("%w: status %d: %s", ErrUpstreamRejected, resp.StatusCode, string(raw))
	}

	var pr stkPushResponse
	if err := json.NewDecoder(resp.Body).Decode(&pr); err != nil {
		return nil, fmt.Errorf("%w: decode stk push response: %v", ErrUpstreamRejected, err)
	}

	return &STKPushResult{
		CheckoutRequestID:   pr.CheckoutRequestID,
		MerchantRequestID:   pr.MerchantRequestID,
		ResponseCode:        pr.ResponseCode,
		ResponseDescription: pr.ResponseDescription,
		CustomerMessage:     pr.CustomerMessage,
	}, nil
}

// sanitizeReference обрезает ссылку мерчанта до лимита провайдера и подставляет
// значение по умолчанию для пустой строки.
func sanitizeReference(reference string) string {
	if reference == "" {
		return "Order"
	}
	if len(reference) > referenceMaxLen {
		return reference[:referenceMaxLen]
	}
	return reference
}

// upstreamErr переводит транспортную ошибку в ошибку таксономии провайдера.
func upstreamErr(err error, fallback error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrUpstreamTimeout, err)
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return fmt.Errorf("%w: %v", ErrUpstreamTimeout, err)
	}
	return fmt.Errorf("%w: %v", fallback, err)
}
