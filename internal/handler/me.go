package handler

import (
	"net/http"

	"github.com/sysu-ecnc-dev/job-portal/backend/internal/auth"
	"github.com/sysu-ecnc-dev/job-portal/backend/internal/domain"
)

func (h *Handler) GetMyInfo(w http.ResponseWriter, r *http.Request) {
	myInfo := myInfoFrom(r.Context())
	h.successResponse(w, r, "获取个人信息成功", myInfo)
}

func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	myInfo := myInfoFrom(r.Context())

	if err := h.parseForm(w, r); err != nil {
		h.badRequest(w, r, err)
		return
	}

	resume, err := h.readResume(r)
	if err != nil {
		h.badRequest(w, r, err)
		return
	}

	in := auth.ProfileInput{
		Name:    r.FormValue("name"),
		Email:   r.FormValue("email"),
		Phone:   r.FormValue("phone"),
		Address: r.FormValue("address"),
		Niches: domain.Niches{
			FirstNiche:  r.FormValue("firstNiche"),
			SecondNiche: r.FormValue("secondNiche"),
			ThirdNiche:  r.FormValue("thirdNiche"),
		},
		CoverLetter: optionalFormValue(r, "coverLetter"),
		Resume:      resume,
	}

	user, err := h.accounts.UpdateProfile(r.Context(), myInfo.ID, in)
	recordAuthEvent("update_profile", err)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	h.successResponse(w, r, "个人信息已更新", user)
}

// 表单中没有这个字段时返回 nil，有但为空时返回空字符串
func optionalFormValue(r *http.Request, key string) *string {
	values, ok := r.Form[key]
	if !ok || len(values) == 0 {
		return nil
	}
	return &values[0]
}

func (h *Handler) UpdatePassword(w http.ResponseWriter, r *http.Request) {
	myInfo := myInfoFrom(r.Context())

	var in auth.PasswordInput
	if err := h.readJSON(r, &in); err != nil {
		h.badRequest(w, r, err)
		return
	}

	user, session, err := h.accounts.UpdatePassword(r.Context(), myInfo.ID, in)
	recordAuthEvent("update_password", err)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	h.sendMail(r, domain.MailMessage{
		Type: domain.MailTypePasswordChanged,
		To:   user.Email,
		Data: domain.PasswordChangedMailData{
			Name: user.Name,
		},
	})

	h.setSessionCookie(w, session)
	h.successResponse(w, r, "密码已更新", user)
}

func (h *Handler) GetMyResume(w http.ResponseWriter, r *http.Request) {
	myInfo := myInfoFrom(r.Context())
	if myInfo.Resume == nil {
		h.errorResponse(w, r, http.StatusNotFound, "尚未上传简历")
		return
	}
	h.successResponse(w, r, "获取简历成功", myInfo.Resume)
}
