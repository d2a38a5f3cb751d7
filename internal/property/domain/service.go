package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	workflowdomain "github.com/landworks/cadastre/internal/workflow/domain"
	"github.com/landworks/cadastre/pkg/db/pagination"
)

type CreatePropertyRequest struct {
	ParcelNumber  string
	Address       string
	AreaSqm       float64
	LandUse       string
	OwnerID       string
	DeclaredValue int64
}

type UpdatePropertyRequest struct {
	ID            string
	Address       *string
	AreaSqm       *float64
	LandUse       *string
	DeclaredValue *int64
}

type GetPropertyRequest struct {
	ID string
}

type ListPropertyRequest struct {
	PageToken string
	PageSize  int32
	Status    string
	OwnerID   string
	LandUse   string
}

type ListPropertyFilter struct {
	Status  workflowdomain.Status
	OwnerID snowflake.ID
	LandUse string
}

type ListPropertyResponse struct {
	pagination.PageInfo
	Properties []Property `json:"properties"`
}

type Service interface {
	Create(context.Context, CreatePropertyRequest) (Property, error)
	GetByID(context.Context, GetPropertyRequest) (Property, error)
	List(context.Context, ListPropertyRequest) (ListPropertyResponse, error)
	Update(context.Context, UpdatePropertyRequest) (Property, error)
}

var (
	ErrInvalidParcelNumber = errors.New("invalid_parcel_number")
	ErrInvalidAddress      = errors.New("invalid_address")
	ErrInvalidArea         = errors.New("invalid_area")
	ErrInvalidValue        = errors.New("invalid_value")
	ErrInvalidStatus       = errors.New("invalid_status")
	ErrInvalidID           = errors.New("invalid_id")
	ErrInvalidActor        = errors.New("invalid_actor")
	ErrOwnerNotFound       = errors.New("owner_not_found")
	ErrParcelNumberTaken   = errors.New("parcel_number_taken")
	ErrNotFound            = errors.New("not_found")
	ErrNotEditable         = errors.New("not_editable")
	ErrConflict            = errors.New("conflict")
)
