// Package client holds outbound HTTP clients. WeChatClient resolves sender
// nicknames through the Official Account API.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/boddenberg/ledger-bot-go/internal/domain"
	"github.com/boddenberg/ledger-bot-go/internal/infra/observability"
	"github.com/boddenberg/ledger-bot-go/internal/infra/resilience"
	"github.com/boddenberg/ledger-bot-go/internal/port"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("client")

// DefaultWeChatBaseURL is the public Official Account API host.
const DefaultWeChatBaseURL = "https://api.weixin.qq.com"

const tokenKey = "access_token"

// WeChat error codes meaning the access token must be fetched again.
const (
	errcodeInvalidToken = 40001
	errcodeExpiredToken = 42001
)

var _ port.NicknameResolver = (*WeChatClient)(nil)

// WeChatClient fetches user nicknames. Access tokens and nicknames are
// cached; calls go through the breaker with retry and backoff. Lookups are
// reads, so replaying them is harmless.
type WeChatClient struct {
	httpClient *http.Client
	baseURL    string
	appID      string
	appSecret  string
	tokens     port.Cache[string]
	names      port.Cache[string]
	cb         *gobreaker.CircuitBreaker
	cfg        resilience.Config
	metrics    *observability.Metrics
	logger     *zap.Logger
}

// NewWeChatClient creates a new WeChatClient.
func NewWeChatClient(
	httpClient *http.Client,
	baseURL, appID, appSecret string,
	tokens, names port.Cache[string],
	cb *gobreaker.CircuitBreaker,
	cfg resilience.Config,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *WeChatClient {
	if baseURL == "" {
		baseURL = DefaultWeChatBaseURL
	}
	return &WeChatClient{
		httpClient: httpClient,
		baseURL:    baseURL,
		appID:      appID,
		appSecret:  appSecret,
		tokens:     tokens,
		names:      names,
		cb:         cb,
		cfg:        cfg,
		metrics:    metrics,
		logger:     logger,
	}
}

// apiError is a non-zero errcode in a WeChat response body.
type apiError struct {
	Code    int
	Message string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("wechat errcode %d: %s", e.Code, e.Message)
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
	ErrCode     int    `json:"errcode"`
	ErrMsg      string `json:"errmsg"`
}

type userInfoResponse struct {
	Nickname string `json:"nickname"`
	ErrCode  int    `json:"errcode"`
	ErrMsg   string `json:"errmsg"`
}

// Nickname returns the user's nickname, or "" when WeChat does not
// disclose one.
func (c *WeChatClient) Nickname(ctx context.Context, openID string) (string, error) {
	ctx, span := tracer.Start(ctx, "WeChatClient.Nickname")
	defer span.End()
	span.SetAttributes(attribute.String("openid", openID))

	if name, ok := c.names.Get(openID); ok {
		c.metrics.IncrCacheHit("nickname")
		return name, nil
	}
	c.metrics.IncrCacheMiss("nickname")

	result, err := c.cb.Execute(func() (any, error) {
		var name string
		innerErr := resilience.RetryWithBackoff(ctx, c.cfg, func() error {
			token, err := c.accessToken(ctx)
			if err != nil {
				return err
			}

			q := url.Values{"access_token": {token}, "openid": {openID}, "lang": {"zh_CN"}}
			var info userInfoResponse
			if err := c.getJSON(ctx, "/cgi-bin/user/info?"+q.Encode(), &info); err != nil {
				return err
			}
			if info.ErrCode != 0 {
				apiErr := &apiError{Code: info.ErrCode, Message: info.ErrMsg}
				if info.ErrCode == errcodeInvalidToken || info.ErrCode == errcodeExpiredToken {
					c.tokens.Delete(tokenKey)
					return apiErr
				}
				return resilience.Permanent(apiErr)
			}
			name = info.Nickname
			return nil
		})
		if innerErr != nil {
			return nil, innerErr
		}
		return name, nil
	})
	if err != nil {
		c.metrics.IncrExternalError("wechat")
		return "", &domain.ErrExternalService{Service: "wechat/user_info", Err: err}
	}

	name := result.(string)
	c.names.Set(openID, name)
	return name, nil
}

// accessToken returns the cached token or fetches a new one.
func (c *WeChatClient) accessToken(ctx context.Context) (string, error) {
	if token, ok := c.tokens.Get(tokenKey); ok {
		return token, nil
	}

	q := url.Values{"grant_type": {"client_credential"}, "appid": {c.appID}, "secret": {c.appSecret}}
	var resp tokenResponse
	if err := c.getJSON(ctx, "/cgi-bin/token?"+q.Encode(), &resp); err != nil {
		return "", err
	}
	if resp.ErrCode != 0 || resp.AccessToken == "" {
		return "", resilience.Permanent(&apiError{Code: resp.ErrCode, Message: resp.ErrMsg})
	}

	c.tokens.Set(tokenKey, resp.AccessToken)
	c.logger.Info("wechat: access token refreshed", zap.Int("expires_in", resp.ExpiresIn))
	return resp.AccessToken, nil
}

func (c *WeChatClient) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("wechat API returned status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
