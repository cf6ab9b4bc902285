package httpadapter

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/medassist/chat-backend/internal/core/domain"
	"github.com/medassist/chat-backend/internal/core/ports"
	"github.com/medassist/chat-backend/internal/observability/metrics"
)

const maxAttachmentBytes = 10 << 20

// Router exposes the chat API: conversation CRUD, the streaming chat
// endpoint and title generation.
type Router struct {
	chat    ports.ChatStreamer
	titles  ports.TitleService
	store   ports.ConversationStore
	memory  ports.MemoryService
	metrics *metrics.HTTPServerMetrics
	service string
	logger  *slog.Logger
}

func NewRouter(
	chat ports.ChatStreamer,
	titles ports.TitleService,
	store ports.ConversationStore,
	memory ports.MemoryService,
	httpMetrics *metrics.HTTPServerMetrics,
	service string,
	logger *slog.Logger,
) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{
		chat:    chat,
		titles:  titles,
		store:   store,
		memory:  memory,
		metrics: httpMetrics,
		service: service,
		logger:  logger,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.HandleFunc("/api/conversations", rt.conversations)
	mux.HandleFunc("/api/conversations/", rt.conversationByID)

	var handler http.Handler = mux
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(rt.service, handler)
	}
	return requestIDMiddleware(accessLogMiddleware(rt.logger, handler))
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) conversations(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		rt.createConversation(w, r)
	case http.MethodGet:
		rt.listConversations(w, r)
	default:
		writeJSON(w, http.StatusMethodNotAllowed, errorBody("method not allowed"))
	}
}

// conversationByID dispatches /api/conversations/{id}[/segment].
func (rt *Router) conversationByID(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/conversations/")
	id, segment, _ := strings.Cut(rest, "/")
	if id == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("conversation id is required"))
		return
	}

	switch segment {
	case "":
		switch r.Method {
		case http.MethodGet:
			rt.getConversation(w, r, id)
		case http.MethodDelete:
			rt.deleteConversation(w, r, id)
		default:
			writeJSON(w, http.StatusMethodNotAllowed, errorBody("method not allowed"))
		}
	case "messages":
		if r.Method != http.MethodGet {
			writeJSON(w, http.StatusMethodNotAllowed, errorBody("method not allowed"))
			return
		}
		rt.listMessages(w, r, id)
	case "stream":
		if r.Method != http.MethodPost {
			writeJSON(w, http.StatusMethodNotAllowed, errorBody("method not allowed"))
			return
		}
		rt.streamChat(w, r, id)
	case "generate_title":
		if r.Method != http.MethodPost {
			writeJSON(w, http.StatusMethodNotAllowed, errorBody("method not allowed"))
			return
		}
		rt.generateTitle(w, r, id)
	default:
		writeJSON(w, http.StatusNotFound, errorBody("unknown resource"))
	}
}

func (rt *Router) createConversation(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID string `json:"user_id"`
		Title  string `json:"title"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid json"))
		return
	}
	if strings.TrimSpace(req.UserID) == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("user_id is required"))
		return
	}

	conversation, err := rt.store.CreateConversation(r.Context(), req.UserID, req.Title)
	if err != nil {
		rt.writeError(w, r, "create conversation", err)
		return
	}
	writeJSON(w, http.StatusCreated, conversation)
}

func (rt *Router) listConversations(w http.ResponseWriter, r *http.Request) {
	userID := strings.TrimSpace(r.URL.Query().Get("user_id"))
	if userID == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("user_id query parameter is required"))
		return
	}

	conversations, err := rt.store.ListConversations(r.Context(), userID)
	if err != nil {
		rt.writeError(w, r, "list conversations", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"conversations": conversations})
}

func (rt *Router) getConversation(w http.ResponseWriter, r *http.Request, id string) {
	conversation, err := rt.store.GetConversation(r.Context(), id)
	if err != nil {
		rt.writeError(w, r, "get conversation", err)
		return
	}
	writeJSON(w, http.StatusOK, conversation)
}

func (rt *Router) listMessages(w http.ResponseWriter, r *http.Request, id string) {
	if _, err := rt.store.GetConversation(r.Context(), id); err != nil {
		rt.writeError(w, r, "get conversation", err)
		return
	}
	turns, err := rt.store.ListTurns(r.Context(), id)
	if err != nil {
		rt.writeError(w, r, "list messages", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"messages": turns})
}

// deleteConversation removes the transcript and the memory records the
// conversation produced. The memory cleanup is best effort; the transcript
// delete is what the client observes.
func (rt *Router) deleteConversation(w http.ResponseWriter, r *http.Request, id string) {
	conversation, err := rt.store.GetConversation(r.Context(), id)
	if err != nil {
		rt.writeError(w, r, "get conversation", err)
		return
	}

	if err := rt.store.DeleteConversation(r.Context(), id); err != nil {
		rt.writeError(w, r, "delete conversation", err)
		return
	}
	if err := rt.memory.DeleteByConversation(r.Context(), conversation.UserID, id); err != nil {
		rt.logger.Warn("memory_cleanup_failed",
			"request_id", requestIDFromContext(r.Context()),
			"conversation_id", id,
			"error", err,
		)
	}
	w.WriteHeader(http.StatusNoContent)
}

func (rt *Router) streamChat(w http.ResponseWriter, r *http.Request, conversationID string) {
	req, err := decodeChatRequest(r)
	if err != nil {
		rt.writeError(w, r, "decode chat request", err)
		return
	}
	req.ConversationID = conversationID

	events, err := rt.chat.Stream(r.Context(), req)
	if err != nil {
		rt.writeError(w, r, "start chat stream", err)
		return
	}
	streamSSE(w, r, events)
}

func (rt *Router) generateTitle(w http.ResponseWriter, r *http.Request, conversationID string) {
	var req struct {
		Content string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid json"))
		return
	}

	content := strings.TrimSpace(req.Content)
	if content == "" {
		// Fall back to the first user turn of the conversation.
		turns, err := rt.store.ListTurns(r.Context(), conversationID)
		if err != nil {
			rt.writeError(w, r, "list messages", err)
			return
		}
		for _, turn := range turns {
			if turn.Role == "user" && strings.TrimSpace(turn.Content) != "" {
				content = turn.Content
				break
			}
		}
	}

	title, err := rt.titles.GenerateTitle(r.Context(), domain.TitleRequest{Content: content})
	if err != nil {
		if rt.metrics != nil {
			rt.metrics.RecordTitleGeneration(rt.service, "error")
		}
		rt.writeError(w, r, "generate title", err)
		return
	}
	if rt.metrics != nil {
		rt.metrics.RecordTitleGeneration(rt.service, "ok")
	}

	if err := rt.store.UpdateTitle(r.Context(), conversationID, title); err != nil {
		rt.writeError(w, r, "update title", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"title": title})
}

// decodeChatRequest accepts either a JSON body or multipart form data with
// an optional image attachment.
func decodeChatRequest(r *http.Request) (domain.ChatRequest, error) {
	contentType := r.Header.Get("Content-Type")
	if strings.HasPrefix(contentType, "multipart/form-data") {
		return decodeMultipartChatRequest(r)
	}

	var req struct {
		UserID  string `json:"user_id"`
		Content string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return domain.ChatRequest{}, domain.WrapError(domain.ErrInvalidInput, "decode chat request", err)
	}
	return domain.ChatRequest{UserID: req.UserID, Content: req.Content}, nil
}

func decodeMultipartChatRequest(r *http.Request) (domain.ChatRequest, error) {
	if err := r.ParseMultipartForm(maxAttachmentBytes); err != nil {
		return domain.ChatRequest{}, domain.WrapError(domain.ErrInvalidInput, "parse multipart form", err)
	}

	req := domain.ChatRequest{
		UserID:  r.FormValue("user_id"),
		Content: r.FormValue("content"),
	}

	file, _, err := r.FormFile("image")
	if err == http.ErrMissingFile {
		return req, nil
	}
	if err != nil {
		return domain.ChatRequest{}, domain.WrapError(domain.ErrInvalidInput, "read image field", err)
	}
	defer file.Close()

	attachment, err := normalizeAttachment(file)
	if err != nil {
		return domain.ChatRequest{}, err
	}
	req.Attachment = attachment
	return req, nil
}

// normalizeAttachment reads and validates an uploaded image so downstream
// components see a consistent (mime, bytes) pair regardless of what the
// client sent.
func normalizeAttachment(file io.Reader) (*domain.Attachment, error) {
	data, err := io.ReadAll(io.LimitReader(file, maxAttachmentBytes+1))
	if err != nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "read attachment", err)
	}
	if len(data) == 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "read attachment", io.ErrUnexpectedEOF)
	}
	if len(data) > maxAttachmentBytes {
		return nil, domain.WrapError(domain.ErrInvalidInput, "read attachment", errAttachmentTooLarge)
	}

	mime := http.DetectContentType(data)
	switch mime {
	case "image/jpeg", "image/png", "image/webp", "image/gif":
		return &domain.Attachment{MimeType: mime, Data: data}, nil
	default:
		return nil, domain.WrapError(domain.ErrInvalidInput, "validate attachment", errUnsupportedImage)
	}
}

func (rt *Router) writeError(w http.ResponseWriter, r *http.Request, operation string, err error) {
	status := mapErrorToHTTPStatus(err)
	if status >= 500 {
		rt.logger.Error("request_failed",
			"request_id", requestIDFromContext(r.Context()),
			"operation", operation,
			"error", err,
		)
	}
	writeJSON(w, status, errorBody(err.Error()))
}

func errorBody(message string) map[string]string {
	return map[string]string{"error": message}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
