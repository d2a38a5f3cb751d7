package domain

import (
	"context"
	"errors"

	"github.com/landworks/cadastre/pkg/db/pagination"
)

type ListUserRequest struct {
	PageToken string
	PageSize  int32
	Role      string
	Active    *bool
}

type ListUserFilter struct {
	Role   Role
	Active *bool
}

type ListUserResponse struct {
	pagination.PageInfo
	Users []User `json:"users"`
}

type CreateUserRequest struct {
	Username string
	FullName string
	Email    string
	Role     string
}

type GetUserRequest struct {
	ID string
}

type UpdateUserRequest struct {
	ID     string
	Role   *string
	Active *bool
}

type Service interface {
	Create(context.Context, CreateUserRequest) (User, error)
	List(context.Context, ListUserRequest) (ListUserResponse, error)
	GetByID(context.Context, GetUserRequest) (User, error)
	Update(context.Context, UpdateUserRequest) (User, error)
	ActiveReviewers(context.Context) ([]User, error)
}

var (
	ErrInvalidUsername = errors.New("invalid_username")
	ErrInvalidName     = errors.New("invalid_name")
	ErrInvalidEmail    = errors.New("invalid_email")
	ErrInvalidRole     = errors.New("invalid_role")
	ErrInvalidID       = errors.New("invalid_id")
	ErrUsernameTaken   = errors.New("username_taken")
	ErrNotFound        = errors.New("not_found")
)
