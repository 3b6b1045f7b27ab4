package handler

import (
	"encoding/xml"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/boddenberg/ledger-bot-go/internal/infra/observability"
	"github.com/boddenberg/ledger-bot-go/internal/port"
	"github.com/boddenberg/ledger-bot-go/internal/service"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ackBody tells WeChat the message was handled and needs no reply.
const ackBody = "success"

// inboundMessage is the XML envelope WeChat posts to the webhook.
type inboundMessage struct {
	XMLName      xml.Name `xml:"xml"`
	ToUserName   string   `xml:"ToUserName"`
	FromUserName string   `xml:"FromUserName"`
	CreateTime   int64    `xml:"CreateTime"`
	MsgType      string   `xml:"MsgType"`
	Content      string   `xml:"Content"`
	MsgID        int64    `xml:"MsgId"`
}

type cdata struct {
	Value string `xml:",cdata"`
}

// textReply is the passive text reply envelope.
type textReply struct {
	XMLName      xml.Name `xml:"xml"`
	ToUserName   cdata    `xml:"ToUserName"`
	FromUserName cdata    `xml:"FromUserName"`
	CreateTime   int64    `xml:"CreateTime"`
	MsgType      cdata    `xml:"MsgType"`
	Content      cdata    `xml:"Content"`
}

// dedupKey identifies a delivery across WeChat retries.
func (m inboundMessage) dedupKey() string {
	if m.MsgID != 0 {
		return "msg:" + strconv.FormatInt(m.MsgID, 10)
	}
	return "msg:" + m.FromUserName + ":" + strconv.FormatInt(m.CreateTime, 10)
}

// wechatVerifyHandler answers the server URL check by echoing echostr.
// The signature was already checked by the middleware.
func wechatVerifyHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		io.WriteString(w, r.URL.Query().Get("echostr"))
	}
}

func wechatMessageHandler(bot *service.Bot, dedup port.Cache[string], metrics *observability.Metrics, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "handler.WeChatMessage")
		defer span.End()

		correlationID := uuid.New().String()
		log := logger.With(zap.String("correlation_id", correlationID))

		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
		if err != nil {
			writeError(w, http.StatusRequestEntityTooLarge, "body too large")
			return
		}

		var msg inboundMessage
		if err := xml.Unmarshal(body, &msg); err != nil {
			log.Warn("wechat: malformed message", zap.Error(err))
			writeError(w, http.StatusBadRequest, "malformed message")
			return
		}

		metrics.IncrMessage(msg.MsgType)
		span.SetAttributes(
			attribute.String("wechat.msg_type", msg.MsgType),
			attribute.Int64("wechat.msg_id", msg.MsgID),
		)

		if msg.MsgType != "text" {
			log.Debug("wechat: ignoring non-text message", zap.String("msg_type", msg.MsgType))
			writePlain(w, ackBody)
			return
		}

		if dedup != nil && !dedup.SetIfAbsent(msg.dedupKey(), correlationID) {
			metrics.IncrDuplicate()
			log.Info("wechat: duplicate delivery dropped", zap.Int64("msg_id", msg.MsgID))
			writePlain(w, ackBody)
			return
		}

		log.Info("wechat: message received",
			zap.String("from", msg.FromUserName),
			zap.Int64("msg_id", msg.MsgID),
		)

		text := bot.Handle(ctx, msg.FromUserName, msg.Content)

		reply := textReply{
			ToUserName:   cdata{msg.FromUserName},
			FromUserName: cdata{msg.ToUserName},
			CreateTime:   time.Now().Unix(),
			MsgType:      cdata{"text"},
			Content:      cdata{text},
		}
		out, err := xml.Marshal(reply)
		if err != nil {
			log.Error("wechat: encode reply", zap.Error(err))
			writePlain(w, ackBody)
			return
		}
		w.Header().Set("Content-Type", "application/xml; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		w.Write(out)
	}
}

func writePlain(w http.ResponseWriter, s string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	io.WriteString(w, s)
}
