package handler

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/sysu-ecnc-dev/job-portal/backend/internal/auth"
	"github.com/sysu-ecnc-dev/job-portal/backend/internal/domain"
	"github.com/sysu-ecnc-dev/job-portal/backend/internal/utils"
)

// multipart 表单中除文件以外的部分最多占用的内存
const maxFormMemory = 1 << 20

func (h *Handler) setSessionCookie(w http.ResponseWriter, session auth.Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.config.Cookie.Name,
		Value:    session.Token,
		Expires:  session.ExpiresAt,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.config.Cookie.Secure,
		SameSite: http.SameSiteStrictMode,
	})
}

// 同时接受 multipart 和 urlencoded 表单
func (h *Handler) parseForm(w http.ResponseWriter, r *http.Request) error {
	r.Body = http.MaxBytesReader(w, r.Body, h.config.Resume.MaxSize+maxFormMemory)
	if err := r.ParseMultipartForm(maxFormMemory); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		return err
	}
	return nil
}

// 没有上传简历时返回 nil
func (h *Handler) readResume(r *http.Request) ([]byte, error) {
	file, header, err := r.FormFile("resume")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return nil, nil
		}
		return nil, err
	}
	defer file.Close()

	if header.Size > h.config.Resume.MaxSize {
		return nil, fmt.Errorf("简历文件不能超过 %d 字节", h.config.Resume.MaxSize)
	}

	return io.ReadAll(file)
}

// 邮件只是通知，发送失败不影响请求本身
func (h *Handler) sendMail(r *http.Request, msg domain.MailMessage) {
	if err := h.mailer.Publish(context.WithoutCancel(r.Context()), msg); err != nil {
		slog.Error("无法将邮件发送到消息队列", "type", msg.Type, "to", msg.To, "error", err)
	}
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	if err := h.parseForm(w, r); err != nil {
		h.badRequest(w, r, err)
		return
	}

	resume, err := h.readResume(r)
	if err != nil {
		h.badRequest(w, r, err)
		return
	}

	in := auth.RegisterInput{
		Name:     r.FormValue("name"),
		Email:    r.FormValue("email"),
		Phone:    r.FormValue("phone"),
		Password: r.FormValue("password"),
		Address:  r.FormValue("address"),
		Role:     domain.Role(r.FormValue("role")),
		Niches: domain.Niches{
			FirstNiche:  r.FormValue("firstNiche"),
			SecondNiche: r.FormValue("secondNiche"),
			ThirdNiche:  r.FormValue("thirdNiche"),
		},
		CoverLetter: r.FormValue("coverLetter"),
		Resume:      resume,
	}

	user, session, err := h.accounts.Register(r.Context(), in)
	recordAuthEvent("register", err)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	h.sendMail(r, domain.MailMessage{
		Type: domain.MailTypeWelcome,
		To:   user.Email,
		Data: domain.WelcomeMailData{
			Name: user.Name,
			Role: user.Role,
		},
	})

	h.setSessionCookie(w, session)
	h.successResponse(w, r, "注册成功", user)
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var in auth.LoginInput
	if err := h.readJSON(r, &in); err != nil {
		h.badRequest(w, r, err)
		return
	}

	user, session, err := h.accounts.Login(r.Context(), in)
	recordAuthEvent("login", err)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	h.setSessionCookie(w, session)
	h.successResponse(w, r, "登录成功", user)
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	h.setSessionCookie(w, h.sessions.Revoke())
	recordAuthEvent("logout", nil)
	h.successResponse(w, r, "登出成功", nil)
}

// 超过这个次数后验证码作废，需要重新申请
const maxOTPAttempts = 5

func resetPasswordOTPKey(email string) string {
	return fmt.Sprintf("otp_%s_reset_password", email)
}

func resetPasswordAttemptsKey(email string) string {
	return resetPasswordOTPKey(email) + "_attempts"
}

func (h *Handler) discardOTP(r *http.Request, email string) {
	for _, key := range []string{resetPasswordOTPKey(email), resetPasswordAttemptsKey(email)} {
		if err := h.otp.Del(r.Context(), key); err != nil {
			slog.Warn("删除验证码失败", "key", key, "error", err)
		}
	}
}

func (h *Handler) RequireResetPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email" validate:"required,email"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	const sentMessage = "重置密码所需验证码已通过邮件发送"

	user, err := h.accounts.Lookup(r.Context(), req.Email)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrRecordNotFound):
			// 账户不存在时同样返回成功，避免接口被用来探测邮箱
			h.successResponse(w, r, sentMessage, nil)
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	otp := utils.GenerateRandomOTP()
	ttl := time.Duration(h.config.OTP.Expiration) * time.Second

	// 新的验证码重新计算尝试次数
	if err := h.otp.Del(r.Context(), resetPasswordAttemptsKey(user.Email)); err != nil {
		h.internalServerError(w, r, err)
		return
	}
	if err := h.otp.Set(r.Context(), resetPasswordOTPKey(user.Email), otp, ttl); err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.sendMail(r, domain.MailMessage{
		Type: domain.MailTypeResetPassword,
		To:   user.Email,
		Data: domain.ResetPasswordMailData{
			Name:       user.Name,
			OTP:        otp,
			Expiration: h.config.OTP.Expiration / 60, // 邮件中以分钟显示
		},
	})

	h.successResponse(w, r, sentMessage, nil)
}

func (h *Handler) ConfirmResetPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email" validate:"required,email"`
		OTP      string `json:"otp" validate:"required"`
		Password string `json:"password" validate:"required"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	ttl := time.Duration(h.config.OTP.Expiration) * time.Second
	attempts, err := h.otp.Incr(r.Context(), resetPasswordAttemptsKey(req.Email), ttl)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}
	if attempts > maxOTPAttempts {
		h.discardOTP(r, req.Email)
		h.errorResponse(w, r, http.StatusBadRequest, "验证码错误")
		return
	}

	otp, err := h.otp.Get(r.Context(), resetPasswordOTPKey(req.Email))
	if err != nil || subtle.ConstantTimeCompare([]byte(otp), []byte(req.OTP)) != 1 {
		if attempts == maxOTPAttempts {
			h.discardOTP(r, req.Email)
		}
		h.errorResponse(w, r, http.StatusBadRequest, "验证码错误")
		return
	}

	_, err = h.accounts.ResetPassword(r.Context(), req.Email, req.Password)
	recordAuthEvent("reset_password", err)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	h.discardOTP(r, req.Email)

	h.successResponse(w, r, "重置密码成功", nil)
}
