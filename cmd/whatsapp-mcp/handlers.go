package main

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/ab2005/whatsapp-mcp/internal/constants"
	apperrors "github.com/ab2005/whatsapp-mcp/internal/errors"
	"github.com/ab2005/whatsapp-mcp/internal/httputil"
	"github.com/ab2005/whatsapp-mcp/internal/security"
	"github.com/ab2005/whatsapp-mcp/internal/service"
	"github.com/ab2005/whatsapp-mcp/internal/tracing"
	"github.com/ab2005/whatsapp-mcp/internal/versioning"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

type sendMessageRequest struct {
	Recipient string `json:"recipient"`
	Message   string `json:"message"`
}

type sendFileRequest struct {
	Recipient string `json:"recipient"`
	FilePath  string `json:"file_path"`
}

type downloadMediaRequest struct {
	MessageID string `json:"message_id"`
	ChatJID   string `json:"chat_jid"`
}

type sendResult struct {
	Delivered bool   `json:"delivered"`
	Detail    string `json:"detail"`
}

type healthStatus struct {
	Status   string `json:"status"`
	Database string `json:"database"`
	Bridge   string `json:"bridge"`
	Messages int64  `json:"messages,omitempty"`
	Chats    int64  `json:"chats,omitempty"`
}

// queryInt parses an optional integer query parameter. Absent values
// fall back to def; malformed values are a validation error.
func queryInt(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperrors.NewValidationError(name, raw, "must be an integer")
	}
	return value, nil
}

func (s *Server) handleSearchMessages() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		limit, err := queryInt(r, "limit", constants.DefaultSearchLimit)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		page, err := queryInt(r, "page", 0)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}

		messages, err := s.msgService.SearchMessages(r.Context(), service.MessageSearchParams{
			Query:   q.Get("query"),
			ChatJID: q.Get("chat_jid"),
			Sender:  q.Get("sender"),
			After:   q.Get("after"),
			Before:  q.Get("before"),
			Limit:   limit,
			Page:    page,
		})
		if err != nil {
			httputil.WriteError(w, err)
			return
		}

		httputil.WriteJSON(w, http.StatusOK, messages)
	}
}

func (s *Server) handleMessageContext() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		messageID := mux.Vars(r)["id"]
		chatJID := r.URL.Query().Get("chat_jid")

		before, err := queryInt(r, "before", constants.DefaultContextMessages)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		after, err := queryInt(r, "after", constants.DefaultContextMessages)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}

		msgContext, err := s.msgService.GetMessageContext(r.Context(), messageID, chatJID, before, after)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}

		httputil.WriteJSON(w, http.StatusOK, msgContext)
	}
}

func (s *Server) handleSearchChats() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		limit, err := queryInt(r, "limit", constants.DefaultSearchLimit)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		page, err := queryInt(r, "page", 0)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}

		chats, err := s.msgService.SearchChats(r.Context(), service.ChatSearchParams{
			Query:  q.Get("query"),
			SortBy: q.Get("sort"),
			Limit:  limit,
			Page:   page,
		})
		if err != nil {
			httputil.WriteError(w, err)
			return
		}

		httputil.WriteJSON(w, http.StatusOK, chats)
	}
}

func (s *Server) handleGetChat() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		chat, err := s.msgService.GetChatByJID(r.Context(), mux.Vars(r)["jid"])
		if err != nil {
			httputil.WriteError(w, err)
			return
		}

		httputil.WriteJSON(w, http.StatusOK, chat)
	}
}

func (s *Server) handleListContacts() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		limit, err := queryInt(r, "limit", constants.DefaultSearchLimit)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		page, err := queryInt(r, "page", 0)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}

		contacts, err := s.msgService.ListContacts(r.Context(), service.ContactSearchParams{
			Query: q.Get("query"),
			Limit: limit,
			Page:  page,
		})
		if err != nil {
			httputil.WriteError(w, err)
			return
		}

		httputil.WriteJSON(w, http.StatusOK, contacts)
	}
}

func (s *Server) handleSendMessage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req sendMessageRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httputil.WriteError(w, apperrors.NewValidationError("body", "", "invalid JSON payload"))
			return
		}

		ok, detail := s.bridge.SendMessage(r.Context(), req.Recipient, req.Message)

		s.logger.WithFields(logrus.Fields{
			service.LogFieldRecipient: service.LoggableRecipient(r.Context(), req.Recipient),
			"delivered":               ok,
		}).Info("Send message request processed")

		httputil.WriteJSON(w, http.StatusOK, sendResult{Delivered: ok, Detail: detail})
	}
}

func (s *Server) handleSendFile() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req sendFileRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httputil.WriteError(w, apperrors.NewValidationError("body", "", "invalid JSON payload"))
			return
		}

		// Outbound files are named relative to the configured media root
		// and must stay inside it.
		fullPath, err := security.ResolveWithinBase(s.cfg.MediaPath, req.FilePath)
		if err != nil {
			httputil.WriteError(w, apperrors.NewValidationError("file_path", req.FilePath, err.Error()))
			return
		}

		ok, detail := s.bridge.SendFile(r.Context(), req.Recipient, fullPath)

		s.logger.WithFields(logrus.Fields{
			service.LogFieldRecipient: service.LoggableRecipient(r.Context(), req.Recipient),
			service.LogFieldFilePath:  req.FilePath,
			"delivered":               ok,
		}).Info("Send file request processed")

		httputil.WriteJSON(w, http.StatusOK, sendResult{Delivered: ok, Detail: detail})
	}
}

func (s *Server) handleDownloadMedia() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req downloadMediaRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httputil.WriteError(w, apperrors.NewValidationError("body", "", "invalid JSON payload"))
			return
		}

		filePath, ok := s.bridge.DownloadMedia(r.Context(), req.MessageID, req.ChatJID)
		if !ok {
			httputil.WriteError(w, apperrors.NewNotFoundError("media", req.MessageID))
			return
		}

		httputil.WriteJSON(w, http.StatusOK, map[string]string{"file_path": filePath})
	}
}

// handleHealth reports liveness plus store and bridge reachability.
// A degraded dependency does not fail the endpoint; orchestrators
// read the status field.
func (s *Server) handleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := healthStatus{Status: "healthy", Database: "ok", Bridge: "ok"}

		stats, err := s.msgService.Stats(r.Context())
		if err != nil {
			requestInfo := tracing.GetRequestInfo(r.Context())
			s.logger.WithError(err).WithField(service.LogFieldRequestID, requestInfo.RequestID).Warn("Health check: store unreachable")
			status.Status = "degraded"
			status.Database = "unreachable"
		} else {
			status.Messages = stats.Messages
			status.Chats = stats.Chats
		}

		if !s.bridge.HealthCheck(r.Context()) {
			status.Status = "degraded"
			status.Bridge = "unreachable"
		}

		httputil.WriteJSON(w, http.StatusOK, status)
	}
}

type versionResponse struct {
	Info     versioning.VersionInfo      `json:"info"`
	Features []versioning.FeatureVersion `json:"features"`
}

func (s *Server) handleVersion() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		negotiated, ok := versioning.GetVersionFromContext(r.Context())
		if !ok {
			negotiated = versioning.CurrentVersion
		}

		info := versioning.DefaultVersionInfo()
		info.Build = Version
		info.Commit = GitCommit

		httputil.WriteJSON(w, http.StatusOK, versionResponse{
			Info:     info,
			Features: versioning.GetSupportedFeatures(negotiated),
		})
	}
}
