package feishu

import (
	"context"
	"encoding/json"
	"fmt"

	lark "github.com/larksuite/oapi-sdk-go/v3"
	larkcore "github.com/larksuite/oapi-sdk-go/v3/core"
	"github.com/larksuite/oapi-sdk-go/v3/event/dispatcher"
	"github.com/larksuite/oapi-sdk-go/v3/event/dispatcher/callback"
	larkim "github.com/larksuite/oapi-sdk-go/v3/service/im/v1"
	larkws "github.com/larksuite/oapi-sdk-go/v3/ws"
	"github.com/rs/zerolog/log"
)

// Message represents a received Feishu text message
type Message struct {
	ChatID  string
	MsgID   string
	Content string
	// ParentMsgID is the message this one replies to, empty for top-level
	// messages. Operator comments arrive as replies to a review card.
	ParentMsgID string
}

// CardAction represents a pressed button on an interactive card
type CardAction struct {
	ChatID    string
	MessageID string
	// Value is the button's value payload as sent with the card
	Value map[string]interface{}
}

// MessageHandler is the callback for received text messages
type MessageHandler func(msg *Message)

// CardActionHandler is the callback for card button presses. The returned
// string, when non-empty, is shown to the operator as a toast.
type CardActionHandler func(action *CardAction) string

// Client is the Feishu API client
type Client struct {
	appID        string
	appSecret    string
	larkCli      *lark.Client
	wsCli        *larkws.Client
	onMessage    MessageHandler
	onCardAction CardActionHandler
	ctx          context.Context
	cancel       context.CancelFunc
}

// NewClient creates a new Feishu client
func NewClient(appID, appSecret string) *Client {
	return &Client{
		appID:     appID,
		appSecret: appSecret,
		larkCli:   lark.NewClient(appID, appSecret),
	}
}

// OnMessage sets the text message handler
func (c *Client) OnMessage(handler MessageHandler) {
	c.onMessage = handler
}

// OnCardAction sets the card button handler
func (c *Client) OnCardAction(handler CardActionHandler) {
	c.onCardAction = handler
}

// Start connects to Feishu via WebSocket and blocks while listening for
// events.
func (c *Client) Start() error {
	c.ctx, c.cancel = context.WithCancel(context.Background())

	// Handlers must return quickly so the SDK can ACK, otherwise Feishu
	// retries the event delivery.
	eventHandler := dispatcher.NewEventDispatcher("", "").
		OnP2MessageReceiveV1(func(ctx context.Context, event *larkim.P2MessageReceiveV1) error {
			go c.handleMessage(event)
			return nil
		}).
		OnP2CardActionTrigger(func(ctx context.Context, event *callback.CardActionTriggerEvent) (*callback.CardActionTriggerResponse, error) {
			return c.handleCardAction(event), nil
		})

	c.wsCli = larkws.NewClient(c.appID, c.appSecret,
		larkws.WithEventHandler(eventHandler),
		larkws.WithLogLevel(larkcore.LogLevelInfo),
	)

	log.Info().Msg("feishu websocket connecting")
	return c.wsCli.Start(c.ctx)
}

// Stop disconnects from Feishu
func (c *Client) Stop() {
	if c.cancel != nil {
		c.cancel()
	}
}

// handleMessage processes incoming Feishu messages
func (c *Client) handleMessage(event *larkim.P2MessageReceiveV1) {
	rawMsg := event.Event.Message
	if rawMsg == nil {
		return
	}

	// Ignore the bot's own messages to avoid loops
	if event.Event.Sender != nil && event.Event.Sender.SenderType != nil {
		if *event.Event.Sender.SenderType == "app" {
			return
		}
	}

	// Only text messages carry operator commands or comments
	if rawMsg.MessageType == nil || *rawMsg.MessageType != "text" {
		return
	}

	msg := &Message{
		ChatID:  derefString(rawMsg.ChatId),
		MsgID:   derefString(rawMsg.MessageId),
		Content: parseTextContent(derefString(rawMsg.Content)),
	}
	msg.ParentMsgID = derefString(rawMsg.ParentId)
	if msg.ParentMsgID == "" {
		msg.ParentMsgID = derefString(rawMsg.RootId)
	}

	if msg.Content == "" || c.onMessage == nil {
		return
	}
	c.onMessage(msg)
}

// handleCardAction routes a card button press to the registered handler and
// wraps its answer into a toast.
func (c *Client) handleCardAction(event *callback.CardActionTriggerEvent) *callback.CardActionTriggerResponse {
	if c.onCardAction == nil || event.Event == nil || event.Event.Action == nil {
		return &callback.CardActionTriggerResponse{}
	}

	action := &CardAction{Value: event.Event.Action.Value}
	if event.Event.Context != nil {
		action.ChatID = event.Event.Context.OpenChatID
		action.MessageID = event.Event.Context.OpenMessageID
	}

	toast := c.onCardAction(action)
	if toast == "" {
		return &callback.CardActionTriggerResponse{}
	}
	return &callback.CardActionTriggerResponse{
		Toast: &callback.Toast{Type: "info", Content: toast},
	}
}

// parseTextContent extracts the text field from a text message payload
func parseTextContent(content string) string {
	var parsed struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		return ""
	}
	return parsed.Text
}

// SendText sends a plain text message to a chat
func (c *Client) SendText(ctx context.Context, chatID, text string) error {
	content, _ := json.Marshal(map[string]string{"text": text})

	req := larkim.NewCreateMessageReqBuilder().
		ReceiveIdType(larkim.ReceiveIdTypeChatId).
		Body(larkim.NewCreateMessageReqBodyBuilder().
			ReceiveId(chatID).
			MsgType(larkim.MsgTypeText).
			Content(string(content)).
			Build()).
		Build()

	resp, err := c.larkCli.Im.Message.Create(ctx, req)
	if err != nil {
		return fmt.Errorf("send message failed: %w", err)
	}
	if !resp.Success() {
		return fmt.Errorf("send message error: %s", resp.Msg)
	}
	return nil
}

// ReplyText sends a text message as a reply to an existing message
func (c *Client) ReplyText(ctx context.Context, msgID, text string) error {
	content, _ := json.Marshal(map[string]string{"text": text})

	req := larkim.NewReplyMessageReqBuilder().
		MessageId(msgID).
		Body(larkim.NewReplyMessageReqBodyBuilder().
			MsgType(larkim.MsgTypeText).
			Content(string(content)).
			Build()).
		Build()

	resp, err := c.larkCli.Im.Message.Reply(ctx, req)
	if err != nil {
		return fmt.Errorf("reply message failed: %w", err)
	}
	if !resp.Success() {
		return fmt.Errorf("reply message error: %s", resp.Msg)
	}
	return nil
}

// SendCard sends an interactive card and returns the created message ID
func (c *Client) SendCard(ctx context.Context, chatID, cardJSON string) (string, error) {
	req := larkim.NewCreateMessageReqBuilder().
		ReceiveIdType(larkim.ReceiveIdTypeChatId).
		Body(larkim.NewCreateMessageReqBodyBuilder().
			ReceiveId(chatID).
			MsgType(larkim.MsgTypeInteractive).
			Content(cardJSON).
			Build()).
		Build()

	resp, err := c.larkCli.Im.Message.Create(ctx, req)
	if err != nil {
		return "", fmt.Errorf("send card failed: %w", err)
	}
	if !resp.Success() {
		return "", fmt.Errorf("send card error: %s", resp.Msg)
	}
	if resp.Data == nil || resp.Data.MessageId == nil {
		return "", fmt.Errorf("send card: missing message id in response")
	}
	return *resp.Data.MessageId, nil
}

// PatchCard replaces the content of an already-sent interactive card
func (c *Client) PatchCard(ctx context.Context, msgID, cardJSON string) error {
	req := larkim.NewPatchMessageReqBuilder().
		MessageId(msgID).
		Body(larkim.NewPatchMessageReqBodyBuilder().
			Content(cardJSON).
			Build()).
		Build()

	resp, err := c.larkCli.Im.Message.Patch(ctx, req)
	if err != nil {
		return fmt.Errorf("patch card failed: %w", err)
	}
	if !resp.Success() {
		return fmt.Errorf("patch card error: %s", resp.Msg)
	}
	return nil
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
