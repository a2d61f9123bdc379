package insights

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"connectrpc.com/connect"

	"github.com/mmynk/finwise/internal/middleware"
	"github.com/mmynk/finwise/internal/models"
	"github.com/mmynk/finwise/internal/storage"
)

// AssistantServiceName is the fully-qualified name of the assistant service.
const AssistantServiceName = "finwise.assistant.v1.AssistantService"

const (
	ChatProcedure               = "/" + AssistantServiceName + "/Chat"
	GetInsightsProcedure        = "/" + AssistantServiceName + "/GetInsights"
	ListConversationsProcedure  = "/" + AssistantServiceName + "/ListConversations"
	GetConversationProcedure    = "/" + AssistantServiceName + "/GetConversation"
	DeleteConversationProcedure = "/" + AssistantServiceName + "/DeleteConversation"
)

type ChatRequest struct {
	ConversationID string `json:"conversationId,omitempty"`
	Message        string `json:"message"`
}

type ChatResponse struct {
	Reply        string                 `json:"reply"`
	Conversation *models.AIConversation `json:"conversation"`
}

type GetInsightsRequest struct{}

type GetInsightsResponse struct {
	Model    string    `json:"model"`
	Insights []Insight `json:"insights"`
	Snapshot Snapshot  `json:"snapshot"`
}

type ListConversationsRequest struct{}

// ConversationInfo describes a conversation without its messages.
type ConversationInfo struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	MessageCount int    `json:"messageCount"`
	UpdatedAt    string `json:"updatedAt"`
}

type ListConversationsResponse struct {
	Conversations []ConversationInfo `json:"conversations"`
}

type ConversationRequest struct {
	ID string `json:"id"`
}

type GetConversationResponse struct {
	Conversation *models.AIConversation `json:"conversation"`
}

type DeleteConversationResponse struct{}

// jsonCodec lets Connect carry plain Go structs. It replaces the built-in
// "json" codec, which only accepts protobuf messages.
type jsonCodec struct{}

func (jsonCodec) Name() string                       { return "json" }
func (jsonCodec) Marshal(v any) ([]byte, error)      { return json.Marshal(v) }
func (jsonCodec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }

// WithJSON configures a Connect client or handler to use the assistant's
// JSON codec.
func WithJSON() connect.Option {
	return connect.WithCodec(jsonCodec{})
}

// AssistantService implements the assistant RPCs.
type AssistantService struct {
	assistant *Assistant
	logger    *slog.Logger
}

// NewAssistantService creates the RPC service.
func NewAssistantService(assistant *Assistant, logger *slog.Logger) *AssistantService {
	return &AssistantService{assistant: assistant, logger: logger}
}

// Chat sends a message to the assistant.
func (s *AssistantService) Chat(ctx context.Context, req *connect.Request[ChatRequest]) (*connect.Response[ChatResponse], error) {
	userID := middleware.GetUserID(ctx)
	conv, err := s.assistant.Chat(ctx, userID, req.Msg.ConversationID, req.Msg.Message)
	if err != nil {
		s.logger.Error("Chat failed", "user_id", userID, "conversation_id", req.Msg.ConversationID, "error", err)
		return nil, toConnectError(err)
	}
	reply := conv.Messages[len(conv.Messages)-1].Content
	return connect.NewResponse(&ChatResponse{Reply: reply, Conversation: conv}), nil
}

// GetInsights returns observations about the user's current month.
func (s *AssistantService) GetInsights(ctx context.Context, _ *connect.Request[GetInsightsRequest]) (*connect.Response[GetInsightsResponse], error) {
	userID := middleware.GetUserID(ctx)
	insights, snapshot, err := s.assistant.Insights(ctx, userID)
	if err != nil {
		s.logger.Error("Insights failed", "user_id", userID, "error", err)
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&GetInsightsResponse{
		Model:    s.assistant.model.Name(),
		Insights: insights,
		Snapshot: snapshot,
	}), nil
}

// ListConversations lists the user's conversations without their messages.
func (s *AssistantService) ListConversations(ctx context.Context, _ *connect.Request[ListConversationsRequest]) (*connect.Response[ListConversationsResponse], error) {
	convs, err := s.assistant.Conversations(ctx, middleware.GetUserID(ctx))
	if err != nil {
		return nil, toConnectError(err)
	}
	infos := make([]ConversationInfo, len(convs))
	for i, c := range convs {
		infos[i] = ConversationInfo{
			ID:           c.ID,
			Title:        c.Title,
			MessageCount: len(c.Messages),
			UpdatedAt:    c.UpdatedAt.Format(time.RFC3339),
		}
	}
	return connect.NewResponse(&ListConversationsResponse{Conversations: infos}), nil
}

func (s *AssistantService) GetConversation(ctx context.Context, req *connect.Request[ConversationRequest]) (*connect.Response[GetConversationResponse], error) {
	conv, err := s.assistant.Conversation(ctx, middleware.GetUserID(ctx), req.Msg.ID)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&GetConversationResponse{Conversation: conv}), nil
}

func (s *AssistantService) DeleteConversation(ctx context.Context, req *connect.Request[ConversationRequest]) (*connect.Response[DeleteConversationResponse], error) {
	userID := middleware.GetUserID(ctx)
	if err := s.assistant.DeleteConversation(ctx, userID, req.Msg.ID); err != nil {
		return nil, toConnectError(err)
	}
	s.logger.Info("Conversation deleted", "user_id", userID, "conversation_id", req.Msg.ID)
	return connect.NewResponse(&DeleteConversationResponse{}), nil
}

// NewAssistantServiceHandler builds an HTTP handler serving every assistant
// procedure. It returns the path to mount the handler on.
func NewAssistantServiceHandler(svc *AssistantService, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append(opts, WithJSON())
	mux := http.NewServeMux()
	mux.Handle(ChatProcedure, connect.NewUnaryHandler(ChatProcedure, svc.Chat, opts...))
	mux.Handle(GetInsightsProcedure, connect.NewUnaryHandler(GetInsightsProcedure, svc.GetInsights, opts...))
	mux.Handle(ListConversationsProcedure, connect.NewUnaryHandler(ListConversationsProcedure, svc.ListConversations, opts...))
	mux.Handle(GetConversationProcedure, connect.NewUnaryHandler(GetConversationProcedure, svc.GetConversation, opts...))
	mux.Handle(DeleteConversationProcedure, connect.NewUnaryHandler(DeleteConversationProcedure, svc.DeleteConversation, opts...))
	return "/" + AssistantServiceName + "/", mux
}

// AssistantClient calls the assistant service.
type AssistantClient struct {
	chat               *connect.Client[ChatRequest, ChatResponse]
	getInsights        *connect.Client[GetInsightsRequest, GetInsightsResponse]
	listConversations  *connect.Client[ListConversationsRequest, ListConversationsResponse]
	getConversation    *connect.Client[ConversationRequest, GetConversationResponse]
	deleteConversation *connect.Client[ConversationRequest, DeleteConversationResponse]
}

// NewAssistantClient creates a client for the service at baseURL.
func NewAssistantClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *AssistantClient {
	opts = append(opts, WithJSON())
	return &AssistantClient{
		chat:               connect.NewClient[ChatRequest, ChatResponse](httpClient, baseURL+ChatProcedure, opts...),
		getInsights:        connect.NewClient[GetInsightsRequest, GetInsightsResponse](httpClient, baseURL+GetInsightsProcedure, opts...),
		listConversations:  connect.NewClient[ListConversationsRequest, ListConversationsResponse](httpClient, baseURL+ListConversationsProcedure, opts...),
		getConversation:    connect.NewClient[ConversationRequest, GetConversationResponse](httpClient, baseURL+GetConversationProcedure, opts...),
		deleteConversation: connect.NewClient[ConversationRequest, DeleteConversationResponse](httpClient, baseURL+DeleteConversationProcedure, opts...),
	}
}

func (c *AssistantClient) Chat(ctx context.Context, req *connect.Request[ChatRequest]) (*connect.Response[ChatResponse], error) {
	return c.chat.CallUnary(ctx, req)
}

func (c *AssistantClient) GetInsights(ctx context.Context, req *connect.Request[GetInsightsRequest]) (*connect.Response[GetInsightsResponse], error) {
	return c.getInsights.CallUnary(ctx, req)
}

func (c *AssistantClient) ListConversations(ctx context.Context, req *connect.Request[ListConversationsRequest]) (*connect.Response[ListConversationsResponse], error) {
	return c.listConversations.CallUnary(ctx, req)
}

func (c *AssistantClient) GetConversation(ctx context.Context, req *connect.Request[ConversationRequest]) (*connect.Response[GetConversationResponse], error) {
	return c.getConversation.CallUnary(ctx, req)
}

func (c *AssistantClient) DeleteConversation(ctx context.Context, req *connect.Request[ConversationRequest]) (*connect.Response[DeleteConversationResponse], error) {
	return c.deleteConversation.CallUnary(ctx, req)
}

func toConnectError(err error) error {
	var verr *models.ValidationError
	switch {
	case errors.As(err, &verr):
		return connect.NewError(connect.CodeInvalidArgument, err)
	case errors.Is(err, storage.ErrNotFound):
		return connect.NewError(connect.CodeNotFound, err)
	}
	return connect.NewError(connect.CodeInternal, err)
}
