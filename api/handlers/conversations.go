package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/roundwise/roundwise/api"
	"github.com/roundwise/roundwise/internal/progress"
	"github.com/roundwise/roundwise/pipeline"
	"github.com/roundwise/roundwise/store"
	"github.com/roundwise/roundwise/types"
	"go.uber.org/zap"
)

// ConversationHandler serves the conversation endpoints.
type ConversationHandler struct {
	coord   *pipeline.Coordinator
	store   store.Store
	tracker progress.Tracker
	logger  *zap.Logger
}

// NewConversationHandler creates the handler.
func NewConversationHandler(coord *pipeline.Coordinator, st store.Store, tracker progress.Tracker, logger *zap.Logger) *ConversationHandler {
	return &ConversationHandler{
		coord:   coord,
		store:   st,
		tracker: tracker,
		logger:  logger.With(zap.String("component", "conversation_handler")),
	}
}

// Register installs the conversation routes on mux.
func (h *ConversationHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/api/conversations", h.HandleCollection)
	mux.HandleFunc("/api/conversations/", h.HandleItem)
}

// HandleCollection serves POST (create) and GET (list) on the
// collection.
func (h *ConversationHandler) HandleCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.create(w, r)
	case http.MethodGet:
		h.list(w, r)
	default:
		WriteErrorMessage(w, http.StatusMethodNotAllowed, types.ErrInvalidRequest, "method not allowed", h.logger)
	}
}

// HandleItem routes /api/conversations/{id}[/progress|/message].
func (h *ConversationHandler) HandleItem(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/conversations/")
	id, sub, _ := strings.Cut(rest, "/")
	if id == "" {
		WriteErrorMessage(w, http.StatusNotFound, types.ErrNotFound, "conversation id missing", h.logger)
		return
	}

	switch {
	case sub == "" && r.Method == http.MethodGet:
		h.get(w, r, id)
	case sub == "progress" && r.Method == http.MethodGet:
		h.progress(w, r, id)
	case sub == "message" && r.Method == http.MethodPost:
		h.message(w, r, id)
	default:
		WriteErrorMessage(w, http.StatusMethodNotAllowed, types.ErrInvalidRequest, "method not allowed", h.logger)
	}
}

func (h *ConversationHandler) create(w http.ResponseWriter, r *http.Request) {
	id, err := h.store.Create(r.Context())
	if err != nil {
		WriteError(w, types.NewError(types.ErrInternalError, "create conversation").WithCause(err), h.logger)
		return
	}

	conv, err := h.store.Get(r.Context(), id)
	if err != nil {
		WriteError(w, types.NewError(types.ErrInternalError, "load conversation").WithCause(err), h.logger)
		return
	}

	h.logger.Info("conversation created", zap.String("conversation_id", id))
	WriteStatus(w, http.StatusCreated, api.CreateConversationResponse{ID: conv.ID, CreatedAt: conv.CreatedAt})
}

func (h *ConversationHandler) list(w http.ResponseWriter, r *http.Request) {
	summaries, err := h.store.List(r.Context())
	if err != nil {
		WriteError(w, types.NewError(types.ErrInternalError, "list conversations").WithCause(err), h.logger)
		return
	}
	WriteSuccess(w, summaries)
}

func (h *ConversationHandler) get(w http.ResponseWriter, r *http.Request, id string) {
	conv, err := h.store.Get(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		WriteErrorMessage(w, http.StatusNotFound, types.ErrNotFound, "conversation not found", h.logger)
		return
	}
	if err != nil {
		WriteError(w, types.NewError(types.ErrInternalError, "load conversation").WithCause(err), h.logger)
		return
	}
	WriteSuccess(w, conv)
}

func (h *ConversationHandler) progress(w http.ResponseWriter, r *http.Request, id string) {
	stage, err := h.tracker.Get(r.Context(), id)
	if err != nil {
		WriteError(w, types.NewError(types.ErrInternalError, "read progress marker").WithCause(err), h.logger)
		return
	}
	WriteSuccess(w, api.ProgressResponse{
		ConversationID: id,
		Stage:          stage,
		InProgress:     stage != "",
	})
}

// message dispatches on the action type and runs the matching stage.
func (h *ConversationHandler) message(w http.ResponseWriter, r *http.Request, id string) {
	var req api.MessageRequest
	if err := DecodeJSONBody(w, r, &req, h.logger); err != nil {
		return
	}

	resp := api.MessageResponse{ConversationID: id}
	ctx := r.Context()

	switch req.Type {
	case api.ActionMessage:
		if strings.TrimSpace(req.Content) == "" {
			WriteErrorMessage(w, http.StatusBadRequest, types.ErrInvalidRequest, "content is required", h.logger)
			return
		}
		payload, err := h.coord.SubmitProblem(ctx, id, req.Content)
		if err != nil {
			WriteError(w, err, h.logger)
			return
		}
		resp.Stage0 = payload

	case api.ActionRoleUpdate:
		payload, err := h.coord.ConfirmRoles(ctx, id, req.Agents)
		if err != nil {
			WriteError(w, err, h.logger)
			return
		}
		resp.Stage1 = payload

	case api.ActionStage:
		switch req.Stage {
		case api.StageRebuttal:
			payload, err := h.coord.RequestRebuttal(ctx, id)
			if err != nil {
				WriteError(w, err, h.logger)
				return
			}
			resp.Stage2 = payload
		case api.StageSynthesis:
			payload, err := h.coord.RequestSynthesis(ctx, id)
			if err != nil {
				WriteError(w, err, h.logger)
				return
			}
			resp.Stage3 = payload
		case api.StageScoring:
			result, err := h.coord.RequestScoring(ctx, id)
			if err != nil {
				WriteError(w, err, h.logger)
				return
			}
			resp.Stage4 = result.Payload
			resp.Rankings = result.Rankings
			resp.LabelToModel = result.LabelToModel
		default:
			WriteErrorMessage(w, http.StatusBadRequest, types.ErrInvalidRequest, "unknown stage "+req.Stage, h.logger)
			return
		}

	default:
		WriteErrorMessage(w, http.StatusBadRequest, types.ErrInvalidRequest, "unknown message type "+req.Type, h.logger)
		return
	}

	WriteSuccess(w, resp)
}
