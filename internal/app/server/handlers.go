package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/fitduel-vn/fitduel/internal/domains/dtos"
	"github.com/fitduel-vn/fitduel/internal/domains/entities"
	"github.com/fitduel-vn/fitduel/internal/realtime"
	"github.com/fitduel-vn/fitduel/pkg/logging"
	"go.uber.org/zap"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError maps a coordinator failure onto the structured wire
// format; unclassified errors surface as a dependency fault.
func writeError(w http.ResponseWriter, err error) {
	if apiErr, ok := AsError(err); ok {
		writeJSON(w, apiErr.HTTPStatus(), apiErr)
		return
	}
	logging.Error("unclassified handler error", zap.Error(err))
	writeJSON(w, http.StatusInternalServerError, &Error{
		Kind:        KindDependency,
		Title:       "Internal error",
		Description: "something went wrong, try again later",
	})
}

func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, newValidationError("Malformed request", "request body is not valid json"))
		return false
	}
	return true
}

func (s *server) handleSearchOpponent(w http.ResponseWriter, r *http.Request) {
	userId, err := s.auth(r)
	if err != nil {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	var req dtos.SearchOpponentRequest
	if !decodeBody(w, r, &req) {
		return
	}
	result, err := s.coordinator.SearchOpponent(r.Context(), req.ChallengeId, req.ConnectionHandle, userId)
	if err != nil {
		writeError(w, err)
		return
	}
	status := http.StatusCreated
	if result.Role == RoleCreator {
		status = http.StatusAccepted
	}
	writeJSON(w, status, result)
}

// handleStakeObserved is the entry point for the external ledger-event
// listener; the named participant's stake landed on-chain.
func (s *server) handleStakeObserved(w http.ResponseWriter, r *http.Request) {
	if _, err := s.auth(r); err != nil {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	var req dtos.StakeObservedRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := s.coordinator.OnStakeObserved(r.Context(), req.DuelId, req.UserId); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *server) handleStartMonitoring(w http.ResponseWriter, r *http.Request) {
	if _, err := s.auth(r); err != nil {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	var req dtos.StartMonitoringRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := s.coordinator.StartMonitoring(r.Context(), req.DuelId); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *server) handleSubmitHealthData(w http.ResponseWriter, r *http.Request) {
	userId, err := s.auth(r)
	if err != nil {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	var req dtos.SubmitHealthDataRequest
	if !decodeBody(w, r, &req) {
		return
	}
	result, err := s.coordinator.SubmitScore(r.Context(), req.DuelId, userId, req.DataType, req.Value, req.Timestamp)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *server) handleUpdateDuel(w http.ResponseWriter, r *http.Request) {
	userId, err := s.auth(r)
	if err != nil {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	var req dtos.UpdateDuelRequest
	if !decodeBody(w, r, &req) {
		return
	}
	result, err := s.coordinator.UpdateDuelScore(r.Context(), req.DuelId, userId, req.NewVal)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *server) handleCancelDuel(w http.ResponseWriter, r *http.Request) {
	userId, err := s.auth(r)
	if err != nil {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	var req dtos.CancelDuelRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := s.coordinator.CancelDuel(r.Context(), req.DuelId, userId); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *server) handleRegisterChallenge(w http.ResponseWriter, r *http.Request) {
	if _, err := s.auth(r); err != nil {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	var req dtos.RegisterChallengeRequest
	if !decodeBody(w, r, &req) {
		return
	}
	challenge, err := s.coordinator.RegisterChallenge(r.Context(), entities.Challenge{
		Name:        req.Name,
		Unit:        req.Unit,
		TargetValue: req.TargetValue,
		StakeAmount: req.StakeAmount,
		Duration:    time.Duration(req.DurationSeconds) * time.Second,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, challenge)
}

func (s *server) handleRegisterPushEndpoint(w http.ResponseWriter, r *http.Request) {
	userId, err := s.auth(r)
	if err != nil {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	var req dtos.RegisterPushEndpointRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := s.coordinator.RegisterPushEndpoint(r.Context(), userId, req.EndpointArn, req.Platform); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *server) handleGetDuel(w http.ResponseWriter, r *http.Request) {
	if _, err := s.auth(r); err != nil {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	view, err := s.coordinator.GetDuelView(r.Context(), r.PathValue("duelId"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// Handler for duel messages arriving over an open websocket.
func (s *server) handleWebSocketMessage(
	ctx context.Context,
	conn *realtime.Conn,
	userId string,
	handle string,
	payload payload,
) {
	var err error
	switch payload.Type {
	case "search_opponent":
		var req dtos.SearchOpponentRequest
		if err = json.Unmarshal(payload.Data, &req); err == nil {
			var result MatchResult
			result, err = s.coordinator.SearchOpponent(ctx, req.ChallengeId, handle, userId)
			if err == nil {
				conn.WriteJSON(realtime.Event{Type: "search_result", Data: result})
			}
		}
	case "confirm_match":
		var req dtos.ConfirmMatchRequest
		if err = json.Unmarshal(payload.Data, &req); err == nil {
			err = s.coordinator.ConfirmMatch(ctx, req.DuelId, userId, req.Answer)
		}
	case "submit_health_data":
		var req dtos.SubmitHealthDataRequest
		if err = json.Unmarshal(payload.Data, &req); err == nil {
			var result ScoreResult
			result, err = s.coordinator.SubmitScore(ctx, req.DuelId, userId, req.DataType, req.Value, req.Timestamp)
			if err == nil {
				conn.WriteJSON(realtime.Event{Type: "score_result", Data: result})
			}
		}
	case "cancel_duel":
		var req dtos.CancelDuelRequest
		if err = json.Unmarshal(payload.Data, &req); err == nil {
			err = s.coordinator.CancelDuel(ctx, req.DuelId, userId)
		}
	default:
		logging.Info("invalid payload type:", zap.String("type", payload.Type))
		return
	}
	if err != nil {
		apiErr, ok := AsError(err)
		if !ok {
			apiErr = &Error{
				Kind:        KindDependency,
				Title:       "Internal error",
				Description: "something went wrong, try again later",
			}
			logging.Error("unclassified socket error", zap.Error(err))
		}
		conn.WriteJSON(realtime.Event{Type: "error", Data: apiErr})
	}
}
