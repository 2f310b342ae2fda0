package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/readingroom/internal/audit"
	auditRepo "github.com/mrlokans/readingroom/internal/database/audit"
	"github.com/mrlokans/readingroom/internal/entities"
)

const auditPageSize = 25

type AuditController struct {
	responder
	auditService *audit.Service
}

func NewAuditController(r responder, auditService *audit.Service) *AuditController {
	return &AuditController{responder: r, auditService: auditService}
}

type EventTypeOption struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

func eventTypes() []EventTypeOption {
	return []EventTypeOption{
		{Value: "", Label: "All Events"},
		{Value: string(entities.AuditEventAuth), Label: "Authentication"},
		{Value: string(entities.AuditEventAdmin), Label: "Admin"},
		{Value: string(entities.AuditEventBook), Label: "Books"},
		{Value: string(entities.AuditEventPage), Label: "Pages"},
	}
}

// AuditLog renders paginated audit events, optionally filtered by ?type=,
// ?book= (a book with its page changes) and ?status=failed.
// GET /admin/audit
func (ac *AuditController) AuditLog(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	if page < 1 {
		page = 1
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(auditPageSize)))
	if limit < 1 || limit > 100 {
		limit = auditPageSize
	}
	eventType := c.Query("type")
	filter := auditRepo.Filter{Type: entities.AuditEventType(eventType)}
	if raw := c.Query("book"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 32)
		if err != nil || id == 0 {
			ac.fail(c, errInvalidID, "")
			return
		}
		filter.BookID = uint(id)
	}
	if c.Query("status") == string(entities.AuditStatusFailed) {
		filter.Status = entities.AuditStatusFailed
	}

	events, total, err := ac.auditService.Events(c.Request.Context(), filter, limit, (page-1)*limit)
	if err != nil {
		ac.fail(c, err, "")
		return
	}

	totalPages := (int(total) + limit - 1) / limit
	if totalPages < 1 {
		totalPages = 1
	}

	ac.render(c, http.StatusOK, "audit", gin.H{
		"Events":      events,
		"CurrentPage": page,
		"TotalPages":  totalPages,
		"TotalEvents": total,
		"EventType":   eventType,
		"EventTypes":  eventTypes(),
		"BookID":      filter.BookID,
		"FailedOnly":  filter.Status != "",
	})
}
