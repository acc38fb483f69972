package domain

import "time"

var (
	IncidentPriorities = []string{"low", "medium", "high", "critical"}
	IncidentStatuses   = []string{"open", "in_progress", "resolved", "closed"}
)

const (
	DefaultIncidentPriority = "medium"
	DefaultIncidentStatus   = "open"
)

// Incident pertenece siempre a una organizacion.
type Incident struct {
	ID             string     `json:"id"`
	OrganizationID string     `json:"organization_id"`
	Title          string     `json:"title"`
	Description    string     `json:"description,omitempty"`
	Priority       string     `json:"priority"`
	Status         string     `json:"status"`
	VendorID       *string    `json:"vendor_id,omitempty"`
	AssignedTo     *string    `json:"assigned_to,omitempty"`
	DueDate        *time.Time `json:"due_date,omitempty"`
	CreatedBy      string     `json:"created_by"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// IncidentPatch contiene solo los campos presentes en un update.
type IncidentPatch struct {
	Title       *string
	Description *string
	Priority    *string
	Status      *string
	VendorID    *string
	AssignedTo  *string
	DueDate     *time.Time
}

// Empty reporta si el patch no modifica ningun campo.
func (p IncidentPatch) Empty() bool {
	return p.Title == nil && p.Description == nil && p.Priority == nil && p.Status == nil &&
		p.VendorID == nil && p.AssignedTo == nil && p.DueDate == nil
}

// IncidentFilter acota el listado de incidentes.
type IncidentFilter struct {
	Status   string
	Priority string
	Limit    uint64
	Offset   uint64
}

// EnrichedIncident agrega el historial de auditoria al incidente.
type EnrichedIncident struct {
	Incident
	History             []AuditEntry `json:"history"`
	EnrichmentTimestamp time.Time    `json:"enrichment_timestamp"`
}
