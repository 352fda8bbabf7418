package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/samber/oops"
	"github.com/sysu-ecnc-dev/job-portal/backend/internal/auth"
)

func (h *Handler) logInternalServerError(r *http.Request, err error) {
	slog.Error("服务器内部错误", "method", r.Method, "path", r.URL.Path, "error", err)
}

func (h *Handler) readJSON(r *http.Request, v any) error {
	return json.NewDecoder(r.Body).Decode(v)
}

func (h *Handler) writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logInternalServerError(r, err)
	}
}

type Response struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data"`
}

func (h *Handler) errorResponse(w http.ResponseWriter, r *http.Request, status int, msg string) {
	h.writeJSON(w, r, status, Response{
		Success: false,
		Message: msg,
		Data:    nil,
	})
}

func (h *Handler) badRequest(w http.ResponseWriter, r *http.Request, err error) {
	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		h.errorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	h.errorResponse(w, r, http.StatusBadRequest, validationErrors[0].Translate(h.translator))
}

func (h *Handler) internalServerError(w http.ResponseWriter, r *http.Request, err error) {
	h.logInternalServerError(r, err)
	h.writeJSON(w, r, http.StatusInternalServerError, Response{
		Success: false,
		Message: "服务器内部错误",
		Data:    nil,
	})
}

func (h *Handler) successResponse(w http.ResponseWriter, r *http.Request, msg string, data any) {
	h.writeJSON(w, r, http.StatusOK, Response{
		Success: true,
		Message: msg,
		Data:    data,
	})
}

func statusFromCode(code string) int {
	switch code {
	case auth.CodeMissingField,
		auth.CodeInvalidField,
		auth.CodeDuplicateEmail,
		auth.CodeInvalidCredentials,
		auth.CodeRoleMismatch,
		auth.CodePasswordMismatch:
		return http.StatusBadRequest
	case auth.CodeUnauthenticated:
		return http.StatusUnauthorized
	case auth.CodeForbidden:
		return http.StatusForbidden
	case auth.CodeEditConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// handleError 是所有业务错误的统一出口，未知错误一律按服务器内部错误处理
func (h *Handler) handleError(w http.ResponseWriter, r *http.Request, err error) {
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		h.internalServerError(w, r, err)
		return
	}

	code := auth.ErrorCode(err)
	switch code {
	case auth.CodeAssetUploadFailed:
		h.logInternalServerError(r, err)
		h.errorResponse(w, r, http.StatusInternalServerError, "简历上传失败")
		return
	}

	status := statusFromCode(code)
	if status == http.StatusInternalServerError {
		h.internalServerError(w, r, err)
		return
	}

	h.errorResponse(w, r, status, oopsErr.Error())
}
