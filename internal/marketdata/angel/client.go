// Package angel reads daily candles from the Angel One SmartAPI.
//
// Only the endpoints a history download needs are wired: password+TOTP
// login, scrip search to resolve a trading symbol to its token, historical
// candles, and logout.
//
//	c := angel.NewClient(angel.Config{APIKey: key, ClientCode: code, Password: pin, TOTPSecret: secret})
//	series, err := c.FetchHistory(ctx, "SBIN-EQ", from, to)
package angel

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/pquerna/otp/totp"
	"golang.org/x/time/rate"

	"trading-analysisv1/internal/marketdata"
)

const (
	defaultRoot      = "https://apiconnect.angelone.in"
	defaultTimeout   = 7 * time.Second
	defaultRateLimit = 3 // historical API allows 3 requests per second
)

var routes = map[string]string{
	"api.login":        "/rest/auth/angelbroking/user/v1/loginByPassword",
	"api.logout":       "/rest/secure/angelbroking/user/v1/logout",
	"api.candle.data":  "/rest/secure/angelbroking/historical/v1/getCandleData",
	"api.search.scrip": "/rest/secure/angelbroking/order/v1/searchScrip",
}

// Config configures the client.
type Config struct {
	APIKey     string
	ClientCode string
	Password   string
	TOTPSecret string
	Exchange   string // default: NSE

	RootURL   string        // default: https://apiconnect.angelone.in
	Timeout   time.Duration // default: 7s
	RateLimit int           // requests per second, default 3

	ClientLocalIP  string // default: first non-loopback IPv4, else 127.0.0.1
	ClientPublicIP string // default: same as local
	ClientMAC      string // default: first interface MAC
}

// Client is a SmartAPI session. It logs in lazily on first use.
type Client struct {
	cfg        Config
	rootURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	now        func() time.Time
	log        *slog.Logger

	mu          sync.Mutex
	accessToken string
	tokens      map[string]string // trading symbol -> symbol token
}

// NewClient builds a client without touching the network.
func NewClient(cfg Config) *Client {
	if cfg.RootURL == "" {
		cfg.RootURL = defaultRoot
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = defaultRateLimit
	}
	if cfg.Exchange == "" {
		cfg.Exchange = "NSE"
	}
	if cfg.ClientLocalIP == "" {
		cfg.ClientLocalIP = localIP()
	}
	if cfg.ClientPublicIP == "" {
		cfg.ClientPublicIP = cfg.ClientLocalIP
	}
	if cfg.ClientMAC == "" {
		cfg.ClientMAC = macAddress()
	}

	return &Client{
		cfg:        cfg,
		rootURL:    strings.TrimRight(cfg.RootURL, "/"),
		httpClient: &http.Client{Timeout: cfg.Timeout},
		limiter:    rate.NewLimiter(rate.Limit(cfg.RateLimit), 1),
		now:        time.Now,
		log:        slog.With("component", "angel"),
		tokens:     make(map[string]string),
	}
}

// localIP finds the first non-loopback IPv4 address.
func localIP() string {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return "127.0.0.1"
	}
	for _, address := range addrs {
		if ipNet, ok := address.(*net.IPNet); ok && !ipNet.IP.IsLoopback() && ipNet.IP.To4() != nil {
			return ipNet.IP.String()
		}
	}
	return "127.0.0.1"
}

func macAddress() string {
	ifs, _ := net.Interfaces()
	for _, ifc := range ifs {
		if len(ifc.HardwareAddr) > 0 {
			return ifc.HardwareAddr.String()
		}
	}
	return "00:11:22:33:44:55"
}

// envelope is the common SmartAPI response wrapper.
type envelope struct {
	Status    bool            `json:"status"`
	Message   string          `json:"message"`
	ErrorCode string          `json:"errorcode"`
	Data      json.RawMessage `json:"data"`
}

func (c *Client) requestHeaders() http.Header {
	h := http.Header{}
	h.Set("Content-Type", "application/json")
	h.Set("Accept", "application/json")
	h.Set("X-ClientLocalIP", c.cfg.ClientLocalIP)
	h.Set("X-ClientPublicIP", c.cfg.ClientPublicIP)
	h.Set("X-MACAddress", c.cfg.ClientMAC)
	h.Set("X-PrivateKey", c.cfg.APIKey)
	h.Set("X-UserType", "USER")
	h.Set("X-SourceID", "WEB")
	c.mu.Lock()
	if c.accessToken != "" {
		h.Set("Authorization", "Bearer "+c.accessToken)
	}
	c.mu.Unlock()
	return h
}

// post sends params as JSON to route and decodes the data field into out.
// Transport failures, non-200 statuses and status=false bodies all return
// an error; the latter two as *marketdata.APIError.
func (c *Client) post(ctx context.Context, route string, params any, out any) error {
	uri, ok := routes[route]
	if !ok {
		return fmt.Errorf("angel: unknown route: %s", route)
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("angel rate limiter: %w", err)
	}

	b, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("angel: marshal: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.rootURL+uri, bytes.NewReader(b))
	if err != nil {
		return fmt.Errorf("angel: create request: %w", err)
	}
	req.Header = c.requestHeaders()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("angel: %s: %w", route, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("angel: read %s: %w", route, err)
	}
	if resp.StatusCode != http.StatusOK {
		return &marketdata.APIError{Provider: "Angel", StatusCode: resp.StatusCode, Endpoint: uri, Message: strings.TrimSpace(string(raw))}
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("angel: couldn't parse JSON response: %w", err)
	}
	if !env.Status {
		msg := env.Message
		if env.ErrorCode != "" {
			msg = env.ErrorCode + ": " + msg
		}
		return &marketdata.APIError{Provider: "Angel", StatusCode: resp.StatusCode, Endpoint: uri, Message: msg}
	}
	if out == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("angel: decode %s data: %w", route, err)
	}
	return nil
}

// Login opens a session using a TOTP generated from the configured secret.
func (c *Client) Login(ctx context.Context) error {
	code, err := totp.GenerateCode(c.cfg.TOTPSecret, c.now())
	if err != nil {
		return fmt.Errorf("angel: generate totp: %w", err)
	}

	var data struct {
		JWTToken     string `json:"jwtToken"`
		RefreshToken string `json:"refreshToken"`
		FeedToken    string `json:"feedToken"`
	}
	params := map[string]string{"clientcode": c.cfg.ClientCode, "password": c.cfg.Password, "totp": code}
	if err := c.post(ctx, "api.login", params, &data); err != nil {
		return fmt.Errorf("angel login: %w", err)
	}
	if data.JWTToken == "" {
		return fmt.Errorf("angel login: unexpected login response format")
	}

	c.mu.Lock()
	c.accessToken = data.JWTToken
	c.mu.Unlock()
	c.log.Info("session started", "client_code", c.cfg.ClientCode)
	return nil
}

func (c *Client) ensureSession(ctx context.Context) error {
	c.mu.Lock()
	ok := c.accessToken != ""
	c.mu.Unlock()
	if ok {
		return nil
	}
	return c.Login(ctx)
}

// Close logs out when a session is open.
func (c *Client) Close() error {
	c.mu.Lock()
	open := c.accessToken != ""
	c.mu.Unlock()
	if !open {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), c.cfg.Timeout)
	defer cancel()
	err := c.post(ctx, "api.logout", map[string]string{"clientcode": c.cfg.ClientCode}, nil)
	c.mu.Lock()
	c.accessToken = ""
	c.mu.Unlock()
	return err
}
