package rest

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/rocketscienceinc/reversi-client/internal/apperror"
)

type registerRequest struct {
	Name string `json:"name"`
}

type startSessionRequest struct {
	Player    string `json:"player"`
	Opponent  string `json:"opponent"`
	Dimension int    `json:"dimension"`
}

type moveRequest struct {
	Row *int `json:"row"`
	Col *int `json:"col"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (that *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !that.decode(w, r, &req) {
		return
	}

	info, err := that.manager.Register(r.Context(), req.Name)
	if err != nil {
		that.writeError(w, r, err)
		return
	}

	that.writeJSON(w, r, http.StatusOK, info)
}

func (that *Server) handleStartSession(w http.ResponseWriter, r *http.Request) {
	var req startSessionRequest
	if !that.decode(w, r, &req) {
		return
	}

	view, err := that.manager.StartSession(r.Context(), req.Player, req.Opponent, req.Dimension)
	if err != nil {
		that.writeError(w, r, err)
		return
	}

	that.writeJSON(w, r, http.StatusCreated, view)
}

func (that *Server) handleView(w http.ResponseWriter, r *http.Request) {
	view, err := that.manager.View(r.Context())
	if err != nil {
		that.writeError(w, r, err)
		return
	}

	that.writeJSON(w, r, http.StatusOK, view)
}

func (that *Server) handleMove(w http.ResponseWriter, r *http.Request) {
	var req moveRequest
	if !that.decode(w, r, &req) {
		return
	}

	if req.Row == nil || req.Col == nil {
		that.writeJSON(w, r, http.StatusBadRequest, errorResponse{Error: "InvalidRequest"})
		return
	}

	if err := that.manager.Move(r.Context(), *req.Row, *req.Col); err != nil {
		that.writeError(w, r, err)
		return
	}

	// the move is already on the local board; answer with the redrawn view
	that.handleView(w, r)
}

func (that *Server) handleHint(w http.ResponseWriter, r *http.Request) {
	hint, err := that.manager.Hint(r.Context())
	if err != nil {
		that.writeError(w, r, err)
		return
	}

	that.writeJSON(w, r, http.StatusOK, hint)
}

func (that *Server) handleLeave(w http.ResponseWriter, _ *http.Request) {
	that.manager.Leave()
	w.WriteHeader(http.StatusNoContent)
}

func (that *Server) handlePlayers(w http.ResponseWriter, r *http.Request) {
	lists, err := that.manager.Players(r.Context())
	if err != nil {
		that.writeError(w, r, err)
		return
	}

	that.writeJSON(w, r, http.StatusOK, lists)
}

func (that *Server) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(dst); err != nil {
		that.logger.Info("invalid request body", "request_id", middleware.GetReqID(r.Context()), "error", err)
		that.writeJSON(w, r, http.StatusBadRequest, errorResponse{Error: "InvalidRequest"})

		return false
	}

	return true
}

func (that *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusOf(err)
	log := that.logger.With("request_id", middleware.GetReqID(r.Context()), "path", r.URL.Path)

	if status >= http.StatusInternalServerError {
		log.Error("request failed", "error", err)
	} else {
		log.Info("request refused", "error", err)
	}

	that.writeJSON(w, r, status, errorResponse{Error: apperror.Code(err)})
}

func (that *Server) writeJSON(w http.ResponseWriter, r *http.Request, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(body); err != nil {
		that.logger.Error("failed to write response", "request_id", middleware.GetReqID(r.Context()), "error", err)
	}
}

func statusOf(err error) int {
	var codeErr *apperror.CodeError

	switch {
	case errors.As(err, &codeErr),
		errors.Is(err, apperror.ErrInvalidName),
		errors.Is(err, apperror.ErrInvalidDimension),
		errors.Is(err, apperror.ErrOutOfBounds),
		errors.Is(err, apperror.ErrIllegalMove):
		return http.StatusBadRequest
	case errors.Is(err, apperror.ErrNoActiveSession),
		errors.Is(err, apperror.ErrOpponentNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperror.ErrNameAlreadyExists),
		errors.Is(err, apperror.ErrOpponentBusy),
		errors.Is(err, apperror.ErrNotYourTurn),
		errors.Is(err, apperror.ErrGameFinished),
		errors.Is(err, apperror.ErrGameCancelled):
		return http.StatusConflict
	case errors.Is(err, apperror.ErrRemoteUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
