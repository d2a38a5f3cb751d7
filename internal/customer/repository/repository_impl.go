package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/landworks/cadastre/internal/customer/domain"
	workflowdomain "github.com/landworks/cadastre/internal/workflow/domain"
	"github.com/landworks/cadastre/pkg/db/option"
	"github.com/landworks/cadastre/pkg/db/pagination"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, customer *domain.Customer) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Exec(
			`INSERT INTO customers (id, name, email, phone, address, customer_type, status, created_by, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			customer.ID,
			customer.Name,
			customer.Email,
			customer.Phone,
			customer.Address,
			customer.CustomerType,
			customer.Status,
			customer.CreatedBy,
			customer.CreatedAt,
			customer.UpdatedAt,
		).Error
		if err != nil {
			return err
		}
		return insertDetail(tx, customer.ID, customer.Detail)
	})
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Customer, error) {
	var customer domain.Customer
	err := db.WithContext(ctx).Raw(
		`SELECT id, name, email, phone, address, customer_type, status, created_by,
		        submitted_at, approved_by, rejection_feedback, created_at, updated_at
		 FROM customers WHERE id = ?`,
		id,
	).Scan(&customer).Error
	if err != nil {
		return nil, err
	}
	if customer.ID == 0 {
		return nil, nil
	}

	detail, err := findDetail(ctx, db, customer.ID, customer.CustomerType)
	if err != nil {
		return nil, err
	}
	customer.Detail = detail
	return &customer, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListCustomerFilter, page pagination.Pagination) ([]*domain.Customer, error) {
	var customers []*domain.Customer
	stmt := db.WithContext(ctx).Model(&domain.Customer{})
	if filter.Status != "" {
		stmt = stmt.Where("status = ?", filter.Status)
	}
	if filter.Type != "" {
		stmt = stmt.Where("customer_type = ?", filter.Type)
	}
	if filter.Name != "" {
		stmt = stmt.Where("name LIKE ?", "%"+filter.Name+"%")
	}
	stmt = option.ApplyPagination(page).Apply(stmt)
	err := stmt.
		Order("created_at desc, id desc").
		Find(&customers).Error
	if err != nil {
		return nil, err
	}
	return customers, nil
}

func (r *repo) UpdateFields(ctx context.Context, db *gorm.DB, customer *domain.Customer, expected []workflowdomain.Status) (bool, error) {
	updated := false
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Exec(
			`UPDATE customers
			 SET name = ?, email = ?, phone = ?, address = ?, updated_at = ?
			 WHERE id = ? AND status IN ?`,
			customer.Name,
			customer.Email,
			customer.Phone,
			customer.Address,
			customer.UpdatedAt,
			customer.ID,
			expected,
		)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return nil
		}
		updated = true

		if customer.Detail == nil {
			return nil
		}
		return updateDetail(tx, customer.ID, customer.Detail)
	})
	if err != nil {
		return false, err
	}
	return updated, nil
}

func insertDetail(tx *gorm.DB, customerID snowflake.ID, detail domain.Detail) error {
	switch d := detail.(type) {
	case domain.PersonDetail:
		return tx.Exec(
			`INSERT INTO customer_person_details (customer_id, national_id, date_of_birth)
			 VALUES (?, ?, ?)`,
			customerID, d.NationalID, d.DateOfBirth,
		).Error
	case domain.BusinessDetail:
		return tx.Exec(
			`INSERT INTO customer_business_details (customer_id, registration_number, contact_person)
			 VALUES (?, ?, ?)`,
			customerID, d.RegistrationNumber, d.ContactPerson,
		).Error
	case domain.GovernmentDetail:
		return tx.Exec(
			`INSERT INTO customer_government_details (customer_id, agency_code, department)
			 VALUES (?, ?, ?)`,
			customerID, d.AgencyCode, d.Department,
		).Error
	default:
		return domain.ErrInvalidDetail
	}
}

func updateDetail(tx *gorm.DB, customerID snowflake.ID, detail domain.Detail) error {
	switch d := detail.(type) {
	case domain.PersonDetail:
		return tx.Exec(
			`UPDATE customer_person_details SET national_id = ?, date_of_birth = ?
			 WHERE customer_id = ?`,
			d.NationalID, d.DateOfBirth, customerID,
		).Error
	case domain.BusinessDetail:
		return tx.Exec(
			`UPDATE customer_business_details SET registration_number = ?, contact_person = ?
			 WHERE customer_id = ?`,
			d.RegistrationNumber, d.ContactPerson, customerID,
		).Error
	case domain.GovernmentDetail:
		return tx.Exec(
			`UPDATE customer_government_details SET agency_code = ?, department = ?
			 WHERE customer_id = ?`,
			d.AgencyCode, d.Department, customerID,
		).Error
	default:
		return domain.ErrInvalidDetail
	}
}

func findDetail(ctx context.Context, db *gorm.DB, customerID snowflake.ID, customerType domain.CustomerType) (domain.Detail, error) {
	switch customerType {
	case domain.TypePerson:
		var d domain.PersonDetail
		err := db.WithContext(ctx).Raw(
			`SELECT customer_id, national_id, date_of_birth
			 FROM customer_person_details WHERE customer_id = ?`,
			customerID,
		).Scan(&d).Error
		if err != nil || d.CustomerID == 0 {
			return nil, err
		}
		return d, nil
	case domain.TypeBusiness:
		var d domain.BusinessDetail
		err := db.WithContext(ctx).Raw(
			`SELECT customer_id, registration_number, contact_person
			 FROM customer_business_details WHERE customer_id = ?`,
			customerID,
		).Scan(&d).Error
		if err != nil || d.CustomerID == 0 {
			return nil, err
		}
		return d, nil
	case domain.TypeGovernment:
		var d domain.GovernmentDetail
		err := db.WithContext(ctx).Raw(
			`SELECT customer_id, agency_code, department
			 FROM customer_government_details WHERE customer_id = ?`,
			customerID,
		).Scan(&d).Error
		if err != nil || d.CustomerID == 0 {
			return nil, err
		}
		return d, nil
	default:
		return nil, domain.ErrInvalidDetail
	}
}
