package domain

import (
	"context"
	"errors"

	workflowdomain "github.com/landworks/cadastre/internal/workflow/domain"
	"github.com/landworks/cadastre/pkg/db/pagination"
)

type DetailInput struct {
	NationalID         string `json:"national_id"`
	DateOfBirth        string `json:"date_of_birth"`
	RegistrationNumber string `json:"registration_number"`
	ContactPerson      string `json:"contact_person"`
	AgencyCode         string `json:"agency_code"`
	Department         string `json:"department"`
}

type CreateCustomerRequest struct {
	Name         string
	Email        string
	Phone        string
	Address      string
	CustomerType string
	Detail       DetailInput
}

type UpdateCustomerRequest struct {
	ID      string
	Name    *string
	Email   *string
	Phone   *string
	Address *string
	Detail  *DetailInput
}

type GetCustomerRequest struct {
	ID string
}

type ListCustomerRequest struct {
	PageToken string
	PageSize  int32
	Status    string
	Type      string
	Name      string
}

type ListCustomerFilter struct {
	Status workflowdomain.Status
	Type   CustomerType
	Name   string
}

type ListCustomerResponse struct {
	pagination.PageInfo
	Customers []Customer `json:"customers"`
}

type Service interface {
	Create(context.Context, CreateCustomerRequest) (Customer, error)
	GetByID(context.Context, GetCustomerRequest) (Customer, error)
	List(context.Context, ListCustomerRequest) (ListCustomerResponse, error)
	Update(context.Context, UpdateCustomerRequest) (Customer, error)
}

var (
	ErrInvalidName   = errors.New("invalid_name")
	ErrInvalidEmail  = errors.New("invalid_email")
	ErrInvalidType   = errors.New("invalid_type")
	ErrInvalidStatus = errors.New("invalid_status")
	ErrInvalidID     = errors.New("invalid_id")
	ErrInvalidActor  = errors.New("invalid_actor")
	ErrNotFound      = errors.New("not_found")
	ErrNotEditable   = errors.New("not_editable")
	ErrForbidden     = errors.New("forbidden")
	ErrConflict      = errors.New("conflict")
)
