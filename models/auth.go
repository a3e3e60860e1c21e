package models

import (
	"github.com/thedevsaddam/govalidator"
)

type LoginOpts struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse carries the role flags the cashier and nurse stations gate
// their screens on, so the client never re-derives them from the token.
type LoginResponse struct {
	User      *User  `json:"user"`
	Token     string `json:"token"`
	IsAdmin   bool   `json:"is_admin"`
	IsCashier bool   `json:"is_cashier"`
	IsDoctor  bool   `json:"is_doctor"`
	IsNurse   bool   `json:"is_nurse"`
}

type UpdateUserPasswordOpts struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

type SendRememberTokenOpts struct {
	Email string `json:"email"`
}

var LoginRules = govalidator.MapData{
	"email":    []string{"required", "email"},
	"password": []string{"required"},
}

var UpdateUserPasswordRules = govalidator.MapData{
	"token":    []string{"required"},
	"password": []string{"required"},
}

var SendRememberTokenRules = govalidator.MapData{
	"email": []string{"required"},
}
