package cenabast

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"strings"
	"time"
)

// Each CENABAST operation is a separate Mirth channel on its own port of the
// same integration host.
const (
	defaultAuthPort     = 6661
	defaultProductPort  = 6662
	defaultStockPort    = 6663
	defaultMovementPort = 6664

	authTimeout   = 10 * time.Second
	submitTimeout = 30 * time.Second
)

// OutcomeKind distinguishes the ways a broker call can end. A soft failure is
// an HTTP 200 whose envelope says isSuccessful=false; callers that only check
// the status code will misread those as success.
type OutcomeKind string

const (
	OutcomeSuccess          OutcomeKind = "success"
	OutcomeHTTPFailure      OutcomeKind = "http_failure"
	OutcomeSoftFailure      OutcomeKind = "soft_failure"
	OutcomeTransportFailure OutcomeKind = "transport_failure"
)

// Envelope is the broker's uniform response wrapper.
type Envelope struct {
	StatusCode   int             `json:"statusCode"`
	IsSuccessful *bool           `json:"isSuccessful"`
	Result       json.RawMessage `json:"result"`
	ErrorMessage string          `json:"errorMessage"`
}

type Outcome struct {
	Kind       OutcomeKind `json:"kind"`
	StatusCode int         `json:"status_code"`
	Body       []byte      `json:"-"`
	Envelope   Envelope    `json:"envelope"`
	Err        string      `json:"error,omitempty"`
}

func (o Outcome) OK() bool { return o.Kind == OutcomeSuccess }

// EffectiveStatus prefers the envelope's status over the raw HTTP status,
// so an HTTP 200 carrying {statusCode: 500, isSuccessful: false} reads as 500.
func (o Outcome) EffectiveStatus() int {
	if o.Envelope.StatusCode != 0 {
		return o.Envelope.StatusCode
	}
	return o.StatusCode
}

// ErrorText returns the most specific message available for classification.
func (o Outcome) ErrorText() string {
	if o.Envelope.ErrorMessage != "" {
		return o.Envelope.ErrorMessage
	}
	if o.Err != "" {
		return o.Err
	}
	return strings.TrimSpace(string(o.Body))
}

type Client struct {
	host         string
	authPort     int
	productPort  int
	stockPort    int
	movementPort int
	http         *http.Client
}

func NewClient() *Client {
	host := strings.TrimSpace(os.Getenv("MIRTH_HOST"))
	if host == "" {
		host = "localhost"
	}
	return &Client{
		host:         host,
		authPort:     intFromEnv("MIRTH_AUTH_PORT", defaultAuthPort),
		productPort:  intFromEnv("MIRTH_PRODUCT_PORT", defaultProductPort),
		stockPort:    intFromEnv("MIRTH_STOCK_PORT", defaultStockPort),
		movementPort: intFromEnv("MIRTH_MOVEMENT_PORT", defaultMovementPort),
		http:         &http.Client{},
	}
}

func intFromEnv(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	var n int
	if _, err := fmt.Sscanf(v, "%d", &n); err != nil || n <= 0 {
		return def
	}
	return n
}

func (c *Client) url(port int, path string) string {
	return fmt.Sprintf("http://%s:%d%s", c.host, port, path)
}

func (c *Client) call(ctx context.Context, method string, port int, path string, token string, body any, timeout time.Duration) Outcome {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return Outcome{Kind: OutcomeTransportFailure, Err: err.Error()}
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.url(port, path), reader)
	if err != nil {
		return Outcome{Kind: OutcomeTransportFailure, Err: err.Error()}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		msg := err.Error()
		if errors.Is(err, context.DeadlineExceeded) {
			msg = "Timeout: Mirth no respondió"
		}
		return Outcome{Kind: OutcomeTransportFailure, Err: msg}
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	outcome := Outcome{StatusCode: resp.StatusCode, Body: raw}
	_ = json.Unmarshal(raw, &outcome.Envelope)
	if outcome.Envelope.StatusCode == 0 {
		outcome.Envelope.StatusCode = resp.StatusCode
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		outcome.Kind = OutcomeHTTPFailure
		return outcome
	}
	if outcome.Envelope.IsSuccessful != nil && !*outcome.Envelope.IsSuccessful {
		outcome.Kind = OutcomeSoftFailure
		return outcome
	}
	outcome.Kind = OutcomeSuccess
	return outcome
}

type AuthResult struct {
	Token       string `json:"token"`
	Jwt         string `json:"jwt"`
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

func (r AuthResult) AnyToken() string {
	if r.Token != "" {
		return r.Token
	}
	if r.Jwt != "" {
		return r.Jwt
	}
	return r.AccessToken
}

// Login requests a fresh token with the service credentials.
func (c *Client) Login(ctx context.Context, user string, password string) Outcome {
	body := map[string]string{"usuario": user, "clave": password}
	return c.call(ctx, http.MethodPost, c.authPort, "/cenabast/auth/login", "", body, authTimeout)
}

// FetchToken asks the auth channel for a pre-provisioned token.
func (c *Client) FetchToken(ctx context.Context) Outcome {
	return c.call(ctx, http.MethodGet, c.authPort, "/cenabast/auth/token", "", nil, authTimeout)
}

// Refresh exchanges the current token for a new one.
func (c *Client) Refresh(ctx context.Context, token string) Outcome {
	return c.call(ctx, http.MethodPost, c.authPort, "/cenabast/auth/refresh", token, nil, authTimeout)
}

func (c *Client) InformStock(ctx context.Context, token string, payload StockPayload) Outcome {
	return c.call(ctx, http.MethodPost, c.stockPort, "/cenabast/stock/informar", token, payload, submitTimeout)
}

func (c *Client) InformMovement(ctx context.Context, token string, payload MovementPayload) Outcome {
	return c.call(ctx, http.MethodPost, c.movementPort, "/cenabast/movimiento", token, payload, submitTimeout)
}

func (c *Client) SetStockRules(ctx context.Context, token string, rules []StockRule) Outcome {
	return c.call(ctx, http.MethodPost, c.stockPort, "/cenabast/stock/reglas", token, rules, submitTimeout)
}

func (c *Client) GetProducts(ctx context.Context, token string, page int, perPage int) Outcome {
	path := fmt.Sprintf("/cenabast/productos/paginados?paginaActual=%d&elementosPorPagina=%d", page, perPage)
	return c.call(ctx, http.MethodGet, c.productPort, path, token, nil, submitTimeout)
}

// ChannelHealth reports reachability of the four channels without sending any
// payloads.
func (c *Client) ChannelHealth(ctx context.Context) map[string]bool {
	ports := map[string]int{
		"auth":       c.authPort,
		"productos":  c.productPort,
		"stock":      c.stockPort,
		"movimiento": c.movementPort,
	}
	health := make(map[string]bool, len(ports))
	dialer := net.Dialer{Timeout: 3 * time.Second}
	for name, port := range ports {
		conn, err := dialer.DialContext(ctx, "tcp", fmt.Sprintf("%s:%d", c.host, port))
		if err != nil {
			health[name] = false
			continue
		}
		_ = conn.Close()
		health[name] = true
	}
	return health
}
