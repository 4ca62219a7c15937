package model

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Project is the ownership root for day-to-day site records. Deleting a
// project cascades to every dependent row.
type Project struct {
	ID      uuid.UUID  `gorm:"type:uuid;default:(gen_random_uuid());primaryKey" json:"id"`
	Name    string     `gorm:"type:varchar(255);not null" json:"name"`
	Address string     `gorm:"type:text" json:"address,omitempty"`
	OwnerID *uuid.UUID `gorm:"type:uuid;index" json:"owner_id,omitempty"`

	Transactions []Transaction `gorm:"foreignKey:ProjectID;constraint:OnDelete:CASCADE" json:"-"`
	Records      []Record      `gorm:"foreignKey:ProjectID;constraint:OnDelete:CASCADE" json:"-"`
	Tasks        []Task        `gorm:"foreignKey:ProjectID;constraint:OnDelete:CASCADE" json:"-"`
	Photos       []Photo       `gorm:"foreignKey:ProjectID;constraint:OnDelete:CASCADE" json:"-"`
	Documents    []Document    `gorm:"foreignKey:ProjectID;constraint:OnDelete:CASCADE" json:"-"`
	Hajari       []Hajari      `gorm:"foreignKey:ProjectID;constraint:OnDelete:CASCADE" json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (p *Project) BeforeCreate(_ *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// TaskStatus enum constants
const (
	TaskOpen = "OPEN"
	TaskDone = "DONE"
)

// Task is a site work item.
type Task struct {
	ID uuid.UUID `gorm:"type:uuid;default:(gen_random_uuid());primaryKey" json:"id"`
	Approvable

	ProjectID   uuid.UUID  `gorm:"type:uuid;not null;index" json:"project_id"`
	Title       string     `gorm:"type:varchar(255);not null" json:"title"`
	Description string     `gorm:"type:text" json:"description,omitempty"`
	Status      string     `gorm:"type:varchar(10);not null;default:'OPEN'" json:"status"`
	DueDate     *time.Time `json:"due_date,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (t *Task) BeforeCreate(_ *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

func (t *Task) GetID() uuid.UUID { return t.ID }

func (t *Task) Validate() error {
	if t.ProjectID == uuid.Nil {
		return errors.New("task project is required")
	}
	if strings.TrimSpace(t.Title) == "" {
		return errors.New("task title is required")
	}
	switch t.Status {
	case "", TaskOpen, TaskDone:
	default:
		return errors.New("task status must be OPEN or DONE")
	}
	return nil
}

// TaskPatch is the typed partial used for staged edits.
type TaskPatch struct {
	Title       *string    `json:"title,omitempty"`
	Description *string    `json:"description,omitempty"`
	Status      *string    `json:"status,omitempty"`
	DueDate     *time.Time `json:"due_date,omitempty"`
}

func (t *Task) ApplyPatch(raw []byte) error {
	var p TaskPatch
	if err := unmarshalStrict(raw, &p); err != nil {
		return err
	}
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.Status != nil {
		t.Status = *p.Status
	}
	if p.DueDate != nil {
		t.DueDate = p.DueDate
	}
	return nil
}

// Photo is a site photo reference; the bytes live in the external attachment
// store, only the URL is kept here.
type Photo struct {
	ID uuid.UUID `gorm:"type:uuid;default:(gen_random_uuid());primaryKey" json:"id"`
	Approvable

	ProjectID uuid.UUID `gorm:"type:uuid;not null;index" json:"project_id"`
	URL       string    `gorm:"type:text;not null" json:"url"`
	Caption   string    `gorm:"type:text" json:"caption,omitempty"`
	TakenAt   time.Time `json:"taken_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (p *Photo) BeforeCreate(_ *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

func (p *Photo) GetID() uuid.UUID { return p.ID }

func (p *Photo) Validate() error {
	if p.ProjectID == uuid.Nil {
		return errors.New("photo project is required")
	}
	if strings.TrimSpace(p.URL) == "" {
		return errors.New("photo url is required")
	}
	return nil
}

// PhotoPatch is the typed partial used for staged edits.
type PhotoPatch struct {
	URL     *string    `json:"url,omitempty"`
	Caption *string    `json:"caption,omitempty"`
	TakenAt *time.Time `json:"taken_at,omitempty"`
}

func (p *Photo) ApplyPatch(raw []byte) error {
	var patch PhotoPatch
	if err := unmarshalStrict(raw, &patch); err != nil {
		return err
	}
	if patch.URL != nil {
		p.URL = *patch.URL
	}
	if patch.Caption != nil {
		p.Caption = *patch.Caption
	}
	if patch.TakenAt != nil {
		p.TakenAt = *patch.TakenAt
	}
	return nil
}

// Document is a stored file reference (agreements, bills, drawings).
type Document struct {
	ID uuid.UUID `gorm:"type:uuid;default:(gen_random_uuid());primaryKey" json:"id"`
	Approvable

	ProjectID uuid.UUID `gorm:"type:uuid;not null;index" json:"project_id"`
	Name      string    `gorm:"type:varchar(255);not null" json:"name"`
	URL       string    `gorm:"type:text;not null" json:"url"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (d *Document) BeforeCreate(_ *gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return nil
}

func (d *Document) GetID() uuid.UUID { return d.ID }

func (d *Document) Validate() error {
	if d.ProjectID == uuid.Nil {
		return errors.New("document project is required")
	}
	if strings.TrimSpace(d.Name) == "" {
		return errors.New("document name is required")
	}
	if strings.TrimSpace(d.URL) == "" {
		return errors.New("document url is required")
	}
	return nil
}

// DocumentPatch is the typed partial used for staged edits.
type DocumentPatch struct {
	Name *string `json:"name,omitempty"`
	URL  *string `json:"url,omitempty"`
}

func (d *Document) ApplyPatch(raw []byte) error {
	var p DocumentPatch
	if err := unmarshalStrict(raw, &p); err != nil {
		return err
	}
	if p.Name != nil {
		d.Name = *p.Name
	}
	if p.URL != nil {
		d.URL = *p.URL
	}
	return nil
}
