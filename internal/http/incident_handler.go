package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"vendorica-api/internal/service"
)

// IncidentHandler expone el CRUD de incidentes de la organizacion del llamador.
type IncidentHandler struct {
	logger    *zap.Logger
	incidents *service.IncidentService
}

func NewIncidentHandler(logger *zap.Logger, incidents *service.IncidentService) *IncidentHandler {
	return &IncidentHandler{logger: logger, incidents: incidents}
}

// List maneja GET /incidents.
//
//	@Summary	List incidents
//	@Tags		Incidents
//	@Produce	json
//	@Param		status		query		string	false	"open, in_progress, resolved, closed"
//	@Param		priority	query		string	false	"low, medium, high, critical"
//	@Param		page		query		int		false	"Page, starting at 1"
//	@Param		size		query		int		false	"Page size, up to 100"
//	@Success	200			{object}	envelope{data=[]domain.Incident}
//	@Failure	400			{object}	envelope
//	@Failure	401			{object}	envelope
//	@Security	BearerAuth
//	@Router		/incidents [get]
func (h *IncidentHandler) List(c *gin.Context) {
	var input service.ListIncidentsInput
	if err := c.ShouldBindQuery(&input); err != nil {
		respondError(c, h.logger, bindError(err))
		return
	}
	identity, _ := GetIdentity(c)
	incidents, err := h.incidents.List(c.Request.Context(), identity, input)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respond(c, http.StatusOK, envelope{Data: incidents, Message: "Incidents retrieved successfully"})
}

// Get maneja GET /incidents/:id.
//
//	@Summary	Get an incident
//	@Tags		Incidents
//	@Produce	json
//	@Param		id	path		string	true	"Incident id"
//	@Success	200	{object}	envelope{data=domain.Incident}
//	@Failure	401	{object}	envelope
//	@Failure	404	{object}	envelope
//	@Security	BearerAuth
//	@Router		/incidents/{id} [get]
func (h *IncidentHandler) Get(c *gin.Context) {
	identity, _ := GetIdentity(c)
	incident, err := h.incidents.Get(c.Request.Context(), identity, c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respond(c, http.StatusOK, envelope{Data: incident, Message: "Incident retrieved successfully"})
}

// Create maneja POST /incidents.
//
//	@Summary	Create an incident
//	@Tags		Incidents
//	@Accept		json
//	@Produce	json
//	@Param		body	body		service.CreateIncidentInput	true	"Incident"
//	@Success	201		{object}	envelope{data=domain.Incident}
//	@Failure	400		{object}	envelope
//	@Failure	401		{object}	envelope
//	@Security	BearerAuth
//	@Router		/incidents [post]
func (h *IncidentHandler) Create(c *gin.Context) {
	var input service.CreateIncidentInput
	if err := c.ShouldBindJSON(&input); err != nil {
		respondError(c, h.logger, bindError(err))
		return
	}
	identity, _ := GetIdentity(c)
	incident, err := h.incidents.Create(c.Request.Context(), identity, input)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respond(c, http.StatusCreated, envelope{Data: incident, Message: "Incident created successfully"})
}

// Update maneja PUT /incidents/:id. Solo se modifican los campos presentes.
//
//	@Summary	Update an incident
//	@Tags		Incidents
//	@Accept		json
//	@Produce	json
//	@Param		id		path		string						true	"Incident id"
//	@Param		body	body		service.UpdateIncidentInput	true	"Fields to change"
//	@Success	200		{object}	envelope{data=domain.Incident}
//	@Failure	400		{object}	envelope
//	@Failure	401		{object}	envelope
//	@Failure	404		{object}	envelope
//	@Security	BearerAuth
//	@Router		/incidents/{id} [put]
func (h *IncidentHandler) Update(c *gin.Context) {
	var input service.UpdateIncidentInput
	if err := c.ShouldBindJSON(&input); err != nil {
		respondError(c, h.logger, bindError(err))
		return
	}
	identity, _ := GetIdentity(c)
	incident, err := h.incidents.Update(c.Request.Context(), identity, c.Param("id"), input)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respond(c, http.StatusOK, envelope{Data: incident, Message: "Incident updated successfully"})
}

// Delete maneja DELETE /incidents/:id.
//
//	@Summary	Delete an incident
//	@Tags		Incidents
//	@Produce	json
//	@Param		id	path		string	true	"Incident id"
//	@Success	200	{object}	envelope
//	@Failure	401	{object}	envelope
//	@Failure	404	{object}	envelope
//	@Security	BearerAuth
//	@Router		/incidents/{id} [delete]
func (h *IncidentHandler) Delete(c *gin.Context) {
	identity, _ := GetIdentity(c)
	if err := h.incidents.Delete(c.Request.Context(), identity, c.Param("id")); err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondMessage(c, "Incident deleted successfully")
}

// Enriched maneja GET /incidents/:id/enriched.
//
//	@Summary	Get an incident with its audit history
//	@Tags		Incidents
//	@Produce	json
//	@Param		id	path		string	true	"Incident id"
//	@Success	200	{object}	envelope{data=domain.EnrichedIncident}
//	@Failure	401	{object}	envelope
//	@Failure	404	{object}	envelope
//	@Security	BearerAuth
//	@Router		/incidents/{id}/enriched [get]
func (h *IncidentHandler) Enriched(c *gin.Context) {
	identity, _ := GetIdentity(c)
	enriched, err := h.incidents.GetEnriched(c.Request.Context(), identity, c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respond(c, http.StatusOK, envelope{Data: enriched, Message: "Enriched incident data retrieved successfully"})
}
