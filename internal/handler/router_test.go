package handler_test

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/boddenberg/ledger-bot-go/internal/category"
	"github.com/boddenberg/ledger-bot-go/internal/command"
	"github.com/boddenberg/ledger-bot-go/internal/domain"
	"github.com/boddenberg/ledger-bot-go/internal/handler"
	"github.com/boddenberg/ledger-bot-go/internal/infra/cache"
	"github.com/boddenberg/ledger-bot-go/internal/infra/memstore"
	"github.com/boddenberg/ledger-bot-go/internal/infra/observability"
	"github.com/boddenberg/ledger-bot-go/internal/infra/spreadsheet"
	"github.com/boddenberg/ledger-bot-go/internal/period"
	"github.com/boddenberg/ledger-bot-go/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	wechatToken = "test-token"
	openID      = "oHANDLER0001"
)

type env struct {
	router   http.Handler
	store    *memstore.Store
	metrics  *observability.Metrics
	exporter *service.Exporter
}

func newEnv(t *testing.T) *env {
	t.Helper()

	logger := zap.NewNop()
	store := memstore.New()
	metrics := observability.NewMetrics()
	periods := period.NewResolver(time.FixedZone("CST", 8*3600), time.Now)
	categories := category.NewResolver(category.DefaultTable())

	archiver := service.NewArchiver(store, periods, service.ArchiveConfig{}, metrics, logger)
	ledger := service.NewLedger(store, archiver, periods, categories, logger)
	debts := service.NewDebtLedger(store, periods, logger)
	exporter := service.NewExporter(store, periods, service.NewExportSigner("secret", 0, time.Now), logger)
	bot := service.NewBot(command.New(categories), ledger, debts, exporter, nil, "http://example.test", metrics, logger)

	router := handler.NewRouter(handler.Deps{
		Bot:         bot,
		Exporter:    exporter,
		Store:       store,
		Dedup:       cache.New[string](time.Minute),
		WeChatToken: wechatToken,
		Metrics:     metrics,
		Logger:      logger,
	})
	return &env{router: router, store: store, metrics: metrics, exporter: exporter}
}

func (e *env) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func signedURL(extra url.Values) string {
	q := url.Values{}
	q.Set("timestamp", "1760000000")
	q.Set("nonce", "42")
	q.Set("signature", handler.Signature(wechatToken, "1760000000", "42"))
	for k, v := range extra {
		q[k] = v
	}
	return "/api/wechat?" + q.Encode()
}

func textMessage(msgID int64, content string) string {
	return fmt.Sprintf(`<xml>
<ToUserName><![CDATA[gh_service]]></ToUserName>
<FromUserName><![CDATA[%s]]></FromUserName>
<CreateTime>1760000000</CreateTime>
<MsgType><![CDATA[text]]></MsgType>
<Content><![CDATA[%s]]></Content>
<MsgId>%d</MsgId>
</xml>`, openID, content, msgID)
}

type reply struct {
	ToUserName   string `xml:"ToUserName"`
	FromUserName string `xml:"FromUserName"`
	MsgType      string `xml:"MsgType"`
	Content      string `xml:"Content"`
}

func post(t *testing.T, e *env, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, signedURL(nil), strings.NewReader(body))
	req.Header.Set("Content-Type", "text/xml")
	return e.do(req)
}

func TestHealthz(t *testing.T) {
	e := newEnv(t)
	rec := e.do(httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var status domain.HealthStatus
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&status))
	assert.Equal(t, "healthy", status.Status)
	assert.Len(t, status.Services, 2)
}

func TestReadyz(t *testing.T) {
	e := newEnv(t)
	rec := e.do(httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMetrics(t *testing.T) {
	e := newEnv(t)
	rec := e.do(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestPing(t *testing.T) {
	e := newEnv(t)
	rec := e.do(httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSignature_KnownVector(t *testing.T) {
	// sha1("123abcxyz"), whatever the argument order
	want := "94ffbd20c84766e871799062cb1bc3e3f40c5e13"
	assert.Equal(t, want, handler.Signature("abc", "123", "xyz"))
	assert.Equal(t, want, handler.Signature("xyz", "abc", "123"))
}

func TestWeChatVerify(t *testing.T) {
	e := newEnv(t)

	rec := e.do(httptest.NewRequest(http.MethodGet, signedURL(url.Values{"echostr": {"hello-echo"}}), nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "hello-echo", rec.Body.String())
}

func TestWeChat_RejectsBadSignature(t *testing.T) {
	e := newEnv(t)

	rec := e.do(httptest.NewRequest(http.MethodGet, "/api/wechat?timestamp=1&nonce=2&signature=deadbeef&echostr=x", nil))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = e.do(httptest.NewRequest(http.MethodPost, "/api/wechat", strings.NewReader(textMessage(1, "coffee 18"))))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	records, err := e.store.ListRecords(context.Background(), domain.RecordFilter{})
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestWeChat_TextMessageRoundTrip(t *testing.T) {
	e := newEnv(t)

	rec := post(t, e, textMessage(1001, "coffee 18"))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "xml")
	assert.Contains(t, rec.Body.String(), "<![CDATA[")

	var r reply
	require.NoError(t, xml.Unmarshal(rec.Body.Bytes(), &r))
	assert.Equal(t, openID, r.ToUserName)
	assert.Equal(t, "gh_service", r.FromUserName)
	assert.Equal(t, "text", r.MsgType)
	assert.Contains(t, r.Content, "Recorded")

	records, err := e.store.ListRecords(context.Background(), domain.RecordFilter{})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, openID, records[0].OwnerID)
	assert.Equal(t, "18.00", records[0].Amount.StringFixed(2))
}

func TestWeChat_DuplicateDeliveryIsDropped(t *testing.T) {
	e := newEnv(t)

	first := post(t, e, textMessage(2002, "coffee 18"))
	require.Equal(t, http.StatusOK, first.Code)

	second := post(t, e, textMessage(2002, "coffee 18"))
	require.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, "success", second.Body.String())

	records, err := e.store.ListRecords(context.Background(), domain.RecordFilter{})
	require.NoError(t, err)
	assert.Len(t, records, 1)
	assert.Equal(t, int64(1), e.metrics.GetLedgerSnapshot().DuplicateHits)
}

func TestWeChat_NonTextMessage(t *testing.T) {
	e := newEnv(t)

	body := `<xml><ToUserName>gh</ToUserName><FromUserName>` + openID + `</FromUserName>` +
		`<CreateTime>1</CreateTime><MsgType>image</MsgType><MsgId>3003</MsgId></xml>`
	rec := post(t, e, body)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "success", rec.Body.String())
}

func TestWeChat_MalformedBody(t *testing.T) {
	e := newEnv(t)
	rec := post(t, e, "<xml><unclosed>")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestExport_Download(t *testing.T) {
	e := newEnv(t)
	require.Equal(t, http.StatusOK, post(t, e, textMessage(4004, "coffee 18")).Code)

	link := e.exporter.Link(openID, period.Today)
	rec := e.do(httptest.NewRequest(http.MethodGet, "/v1/export?"+link.Query().Encode(), nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, spreadsheet.ContentType, rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "attachment; filename=\"ledger_")
	assert.NotZero(t, rec.Body.Len())
}

func TestExport_RejectsTamperedLink(t *testing.T) {
	e := newEnv(t)

	q := e.exporter.Link(openID, period.Today).Query()
	q.Set("period", string(period.ThisMonth))
	rec := e.do(httptest.NewRequest(http.MethodGet, "/v1/export?"+q.Encode(), nil))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = e.do(httptest.NewRequest(http.MethodGet, "/v1/export?owner=x&period=today&ts=abc&sig=00", nil))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestLedgerMetrics(t *testing.T) {
	e := newEnv(t)
	require.Equal(t, http.StatusOK, post(t, e, textMessage(5005, "coffee 18")).Code)

	rec := e.do(httptest.NewRequest(http.MethodGet, "/v1/metrics/ledger", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var snap domain.LedgerMetrics
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&snap))
	assert.Equal(t, int64(1), snap.MessagesTotal)
}
