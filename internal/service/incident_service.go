package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"vendorica-api/internal/apperr"
	"vendorica-api/internal/domain"
	"vendorica-api/internal/repository"
)

const (
	dueDateLayout           = "2006-01-02"
	defaultIncidentPageSize = 20
	enrichedHistorySize     = 50
)

var (
	ErrIncidentNotFound = apperr.New(apperr.ErrNotFound, "", "Incident not found")
	ErrNothingToUpdate  = apperr.New(apperr.ErrValidation, "", "No fields to update")
	ErrAssigneeInvalid  = apperr.New(apperr.ErrValidation, "", "assigned_to must reference a user in your organization")
)

type CreateIncidentInput struct {
	Title       string  `json:"title" validate:"required,max=255"`
	Description string  `json:"description" validate:"max=10000"`
	Priority    string  `json:"priority" validate:"omitempty,oneof=low medium high critical"`
	Status      string  `json:"status" validate:"omitempty,oneof=open in_progress resolved closed"`
	VendorID    *string `json:"vendor_id" validate:"omitempty,uuid"`
	AssignedTo  *string `json:"assigned_to" validate:"omitempty,uuid"`
	DueDate     *string `json:"due_date" validate:"omitempty,datetime=2006-01-02"`
}

type UpdateIncidentInput struct {
	Title       *string `json:"title" validate:"omitempty,max=255"`
	Description *string `json:"description" validate:"omitempty,max=10000"`
	Priority    *string `json:"priority" validate:"omitempty,oneof=low medium high critical"`
	Status      *string `json:"status" validate:"omitempty,oneof=open in_progress resolved closed"`
	VendorID    *string `json:"vendor_id" validate:"omitempty,uuid"`
	AssignedTo  *string `json:"assigned_to" validate:"omitempty,uuid"`
	DueDate     *string `json:"due_date" validate:"omitempty,datetime=2006-01-02"`
}

type ListIncidentsInput struct {
	Status   string `form:"status" validate:"omitempty,oneof=open in_progress resolved closed"`
	Priority string `form:"priority" validate:"omitempty,oneof=low medium high critical"`
	Page     uint64 `form:"page" validate:"omitempty,min=1"`
	Size     uint64 `form:"size" validate:"omitempty,min=1,max=100"`
}

// IncidentService implementa el CRUD de incidentes con alcance de organizacion.
type IncidentService struct {
	logger    *zap.Logger
	incidents repository.IncidentRepository
	users     repository.UserRepository
	audit     *AuditRecorder
	now       func() time.Time
}

func NewIncidentService(logger *zap.Logger, incidents repository.IncidentRepository, users repository.UserRepository, audit *AuditRecorder) *IncidentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IncidentService{
		logger:    logger,
		incidents: incidents,
		users:     users,
		audit:     audit,
		now:       time.Now,
	}
}

func (s *IncidentService) List(ctx context.Context, identity domain.Identity, input ListIncidentsInput) ([]domain.Incident, error) {
	if err := validate.Struct(input); err != nil {
		return nil, apperr.Validation("Invalid query parameters").WithDetails(fieldErrors(err))
	}
	filter := domain.IncidentFilter{Status: input.Status, Priority: input.Priority}
	if input.Size > 0 || input.Page > 0 {
		size := input.Size
		if size == 0 {
			size = defaultIncidentPageSize
		}
		filter.Limit = size
		filter.Offset = (max(input.Page, 1) - 1) * size
	}
	incidents, err := s.incidents.List(ctx, identity.OrganizationID, filter)
	if err != nil {
		return nil, fmt.Errorf("list incidents: %w", err)
	}
	return incidents, nil
}

func (s *IncidentService) Get(ctx context.Context, identity domain.Identity, id string) (domain.Incident, error) {
	if _, err := uuid.Parse(id); err != nil {
		return domain.Incident{}, ErrIncidentNotFound
	}
	inc, err := s.incidents.GetByID(ctx, identity.OrganizationID, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Incident{}, ErrIncidentNotFound
		}
		return domain.Incident{}, fmt.Errorf("get incident: %w", err)
	}
	return inc, nil
}

func (s *IncidentService) Create(ctx context.Context, identity domain.Identity, input CreateIncidentInput) (domain.Incident, error) {
	input.Title = strings.TrimSpace(input.Title)
	if err := validate.Struct(input); err != nil {
		return domain.Incident{}, apperr.Validation("Invalid incident").WithDetails(fieldErrors(err))
	}
	dueDate, err := parseDueDate(input.DueDate)
	if err != nil {
		return domain.Incident{}, err
	}
	if err := s.checkAssignee(ctx, identity, input.AssignedTo); err != nil {
		return domain.Incident{}, err
	}

	now := s.now().UTC()
	inc := domain.Incident{
		ID:             uuid.NewString(),
		OrganizationID: identity.OrganizationID,
		Title:          input.Title,
		Description:    input.Description,
		Priority:       defaultString(input.Priority, domain.DefaultIncidentPriority),
		Status:         defaultString(input.Status, domain.DefaultIncidentStatus),
		VendorID:       input.VendorID,
		AssignedTo:     input.AssignedTo,
		DueDate:        dueDate,
		CreatedBy:      identity.UserID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.incidents.Create(ctx, inc); err != nil {
		return domain.Incident{}, fmt.Errorf("create incident: %w", err)
	}

	s.audit.Record(ctx, identity.UserID, domain.AuditActionCreate, auditTableIncidents, inc.ID, map[string]any{
		"title":    inc.Title,
		"priority": inc.Priority,
		"status":   inc.Status,
	})
	return inc, nil
}

func (s *IncidentService) Update(ctx context.Context, identity domain.Identity, id string, input UpdateIncidentInput) (domain.Incident, error) {
	if err := validate.Struct(input); err != nil {
		return domain.Incident{}, apperr.Validation("Invalid incident").WithDetails(fieldErrors(err))
	}
	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if title == "" {
			return domain.Incident{}, apperr.Validation("Invalid incident").WithDetails(map[string]string{"title": "required"})
		}
		input.Title = &title
	}
	dueDate, err := parseDueDate(input.DueDate)
	if err != nil {
		return domain.Incident{}, err
	}
	patch := domain.IncidentPatch{
		Title:       input.Title,
		Description: input.Description,
		Priority:    input.Priority,
		Status:      input.Status,
		VendorID:    input.VendorID,
		AssignedTo:  input.AssignedTo,
		DueDate:     dueDate,
	}
	if patch.Empty() {
		return domain.Incident{}, ErrNothingToUpdate
	}

	if _, err := s.Get(ctx, identity, id); err != nil {
		return domain.Incident{}, err
	}
	if err := s.checkAssignee(ctx, identity, input.AssignedTo); err != nil {
		return domain.Incident{}, err
	}

	updated, err := s.incidents.Update(ctx, identity.OrganizationID, id, patch, s.now().UTC())
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Incident{}, ErrIncidentNotFound
		}
		return domain.Incident{}, fmt.Errorf("update incident: %w", err)
	}

	s.audit.Record(ctx, identity.UserID, domain.AuditActionUpdate, auditTableIncidents, id, patchChanges(input))
	return updated, nil
}

func (s *IncidentService) Delete(ctx context.Context, identity domain.Identity, id string) error {
	existing, err := s.Get(ctx, identity, id)
	if err != nil {
		return err
	}
	if err := s.incidents.Delete(ctx, identity.OrganizationID, id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrIncidentNotFound
		}
		return fmt.Errorf("delete incident: %w", err)
	}

	s.audit.Record(ctx, identity.UserID, domain.AuditActionDelete, auditTableIncidents, id, map[string]any{
		"title": existing.Title,
	})
	return nil
}

// GetEnriched devuelve el incidente junto con su historial de auditoria.
func (s *IncidentService) GetEnriched(ctx context.Context, identity domain.Identity, id string) (domain.EnrichedIncident, error) {
	inc, err := s.Get(ctx, identity, id)
	if err != nil {
		return domain.EnrichedIncident{}, err
	}
	history, err := s.audit.History(ctx, auditTableIncidents, inc.ID, enrichedHistorySize)
	if err != nil {
		s.logger.Warn("incident history unavailable", zap.String("incident_id", inc.ID), zap.Error(err))
		history = []domain.AuditEntry{}
	}
	return domain.EnrichedIncident{
		Incident:            inc,
		History:             history,
		EnrichmentTimestamp: s.now().UTC(),
	}, nil
}

func (s *IncidentService) checkAssignee(ctx context.Context, identity domain.Identity, assignee *string) error {
	if assignee == nil || s.users == nil {
		return nil
	}
	user, err := s.users.GetByID(ctx, *assignee)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrAssigneeInvalid
		}
		return fmt.Errorf("load assignee: %w", err)
	}
	if user.OrganizationID != identity.OrganizationID {
		return ErrAssigneeInvalid
	}
	return nil
}

func parseDueDate(raw *string) (*time.Time, error) {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return nil, nil
	}
	t, err := time.Parse(dueDateLayout, strings.TrimSpace(*raw))
	if err != nil {
		return nil, apperr.Validation("Invalid incident").WithDetails(map[string]string{"due_date": "datetime=" + dueDateLayout})
	}
	return &t, nil
}

func patchChanges(input UpdateIncidentInput) map[string]any {
	changes := make(map[string]any)
	set := func(key string, v *string) {
		if v != nil {
			changes[key] = *v
		}
	}
	set("title", input.Title)
	set("description", input.Description)
	set("priority", input.Priority)
	set("status", input.Status)
	set("vendor_id", input.VendorID)
	set("assigned_to", input.AssignedTo)
	set("due_date", input.DueDate)
	return changes
}

func defaultString(v, fallback string) string {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return v
}
