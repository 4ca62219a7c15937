package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"sitekhata/internal/model"
	"sitekhata/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type CreateProjectRequest struct {
	Name    string `json:"name" binding:"required"`
	Address string `json:"address"`
}

type UpdateProjectRequest struct {
	Name    *string `json:"name"`
	Address *string `json:"address"`
}

type CreateLaborRequest struct {
	Name      string          `json:"name" binding:"required"`
	Phone     string          `json:"phone"`
	Rate      decimal.Decimal `json:"rate" binding:"required"`
	ProjectID *uuid.UUID      `json:"project_id"`
}

type UpdateLaborRequest struct {
	Name     *string          `json:"name"`
	Phone    *string          `json:"phone"`
	Rate     *decimal.Decimal `json:"rate"`
	IsActive *bool            `json:"is_active"`
}

// ProjectService manages projects and their labor roster. Admin-only: a
// project is the ownership root, so it never enters the approval queue itself.
type ProjectService struct {
	db  *gorm.DB
	txm repository.TransactionManager
}

func NewProjectService(db *gorm.DB, txm repository.TransactionManager) *ProjectService {
	return &ProjectService{db: db, txm: txm}
}

func (s *ProjectService) Create(ctx context.Context, req CreateProjectRequest, actor Actor) (*model.Project, error) {
	if !actor.IsAdmin() {
		return nil, fmt.Errorf("%w: only admins manage projects", ErrInvalidState)
	}
	if strings.TrimSpace(req.Name) == "" {
		return nil, fmt.Errorf("%w: project name is required", ErrValidation)
	}

	project := model.Project{
		Name:    req.Name,
		Address: req.Address,
		OwnerID: &actor.ID,
	}
	if err := s.db.WithContext(ctx).Create(&project).Error; err != nil {
		return nil, err
	}
	return &project, nil
}

func (s *ProjectService) Update(ctx context.Context, id uuid.UUID, req UpdateProjectRequest, actor Actor) (*model.Project, error) {
	if !actor.IsAdmin() {
		return nil, fmt.Errorf("%w: only admins manage projects", ErrInvalidState)
	}

	var project model.Project
	if err := s.db.WithContext(ctx).First(&project, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: project %s", ErrNotFound, id)
		}
		return nil, err
	}

	if req.Name != nil {
		if strings.TrimSpace(*req.Name) == "" {
			return nil, fmt.Errorf("%w: project name is required", ErrValidation)
		}
		project.Name = *req.Name
	}
	if req.Address != nil {
		project.Address = *req.Address
	}

	if err := s.db.WithContext(ctx).Save(&project).Error; err != nil {
		return nil, err
	}
	return &project, nil
}

func (s *ProjectService) Get(ctx context.Context, id uuid.UUID) (*model.Project, error) {
	var project model.Project
	if err := s.db.WithContext(ctx).First(&project, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: project %s", ErrNotFound, id)
		}
		return nil, err
	}
	return &project, nil
}

func (s *ProjectService) List(ctx context.Context) ([]model.Project, error) {
	var projects []model.Project
	if err := s.db.WithContext(ctx).Order("created_at ASC").Find(&projects).Error; err != nil {
		return nil, err
	}
	return projects, nil
}

// Delete removes a project and every dependent row. Children are deleted
// explicitly inside one transaction rather than trusting database cascades.
func (s *ProjectService) Delete(ctx context.Context, id uuid.UUID, actor Actor) error {
	if !actor.IsAdmin() {
		return fmt.Errorf("%w: only admins manage projects", ErrInvalidState)
	}

	return s.txm.RunInTx(ctx, func(txCtx context.Context) error {
		tx := repository.GetDB(txCtx, s.db)

		var project model.Project
		if err := tx.First(&project, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: project %s", ErrNotFound, id)
			}
			return err
		}

		// Record settlements hang off records, so they go first.
		if err := tx.Where("record_id IN (?)",
			tx.Model(&model.Record{}).Select("id").Where("project_id = ?", id),
		).Delete(&model.RecordSettlement{}).Error; err != nil {
			return err
		}
		for _, child := range []any{
			&model.Record{}, &model.Transaction{}, &model.Task{},
			&model.Photo{}, &model.Document{}, &model.Hajari{},
			&model.MaterialLedgerEntry{},
		} {
			if err := tx.Where("project_id = ?", id).Delete(child).Error; err != nil {
				return err
			}
		}
		if err := tx.Where("project_id = ?", id).Delete(&model.Labor{}).Error; err != nil {
			return err
		}
		if err := tx.Delete(&project).Error; err != nil {
			return err
		}
		return writeAudit(tx, actor.ID, model.ActionDelete, "project", id, nil)
	})
}

// --- Labor roster ---

func (s *ProjectService) CreateLabor(ctx context.Context, req CreateLaborRequest, actor Actor) (*model.Labor, error) {
	if !actor.IsAdmin() {
		return nil, fmt.Errorf("%w: only admins manage labors", ErrInvalidState)
	}
	if strings.TrimSpace(req.Name) == "" {
		return nil, fmt.Errorf("%w: labor name is required", ErrValidation)
	}
	if req.Rate.IsNegative() {
		return nil, fmt.Errorf("%w: labor rate cannot be negative", ErrValidation)
	}

	labor := model.Labor{
		Name:      req.Name,
		Phone:     req.Phone,
		Rate:      req.Rate,
		ProjectID: req.ProjectID,
		IsActive:  true,
	}
	if err := s.db.WithContext(ctx).Create(&labor).Error; err != nil {
		return nil, err
	}
	return &labor, nil
}

// UpdateLabor changes the roster entry. Rate changes apply to future hajari
// rows only; existing rows keep their snapshotted rate.
func (s *ProjectService) UpdateLabor(ctx context.Context, id uuid.UUID, req UpdateLaborRequest, actor Actor) (*model.Labor, error) {
	if !actor.IsAdmin() {
		return nil, fmt.Errorf("%w: only admins manage labors", ErrInvalidState)
	}

	var labor model.Labor
	if err := s.db.WithContext(ctx).First(&labor, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: labor %s", ErrNotFound, id)
		}
		return nil, err
	}

	if req.Name != nil {
		labor.Name = *req.Name
	}
	if req.Phone != nil {
		labor.Phone = *req.Phone
	}
	if req.Rate != nil {
		if req.Rate.IsNegative() {
			return nil, fmt.Errorf("%w: labor rate cannot be negative", ErrValidation)
		}
		labor.Rate = *req.Rate
	}
	if req.IsActive != nil {
		labor.IsActive = *req.IsActive
	}

	if err := s.db.WithContext(ctx).Save(&labor).Error; err != nil {
		return nil, err
	}
	return &labor, nil
}

func (s *ProjectService) ListLabors(ctx context.Context, projectID *uuid.UUID) ([]model.Labor, error) {
	q := s.db.WithContext(ctx).Order("name ASC")
	if projectID != nil {
		q = q.Where("project_id = ?", *projectID)
	}
	var labors []model.Labor
	if err := q.Find(&labors).Error; err != nil {
		return nil, err
	}
	return labors, nil
}
