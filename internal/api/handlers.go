package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	customerrors "github.com/linkgate/urlshortener/internal/errors"
	"github.com/linkgate/urlshortener/internal/models"
	"github.com/linkgate/urlshortener/internal/services"
)

// HealthCheckHandler handles the /health route to verify service status
func HealthCheckHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// CreateLinkRequest represents the JSON request body for creating one or multiple links.
// Single: {"original_url": "example.com", "custom_code": "promo", ...}
// Multiple: {"original_urls": ["example.com", "golang.org"]}
// A batch only takes plain URLs; custom codes and passwords apply to single links.
type CreateLinkRequest struct {
	OriginalURL         string     `json:"original_url"`
	OriginalURLs        []string   `json:"original_urls"`
	CustomCode          string     `json:"custom_code"`
	Title               string     `json:"title"`
	Description         string     `json:"description"`
	ExpiresAt           *time.Time `json:"expires_at"`
	Password            string     `json:"password"`
	IsPasswordProtected bool       `json:"is_password_protected"`
}

// CreateLinkResponse is the result of a single link creation, also used as a
// batch element.
type CreateLinkResponse struct {
	ID                  string     `json:"id,omitempty"`
	ShortCode           string     `json:"short_code,omitempty"`
	ShortURL            string     `json:"short_url,omitempty"`
	OriginalURL         string     `json:"original_url"`
	IsPasswordProtected bool       `json:"is_password_protected"`
	ExpiresAt           *time.Time `json:"expires_at,omitempty"`
	Success             bool       `json:"success"`
	Error               string     `json:"error,omitempty"`
}

// CreateLinksResponse represents the response for multiple link creation
type CreateLinksResponse struct {
	Results []CreateLinkResponse `json:"results"`
	Summary struct {
		Total      int `json:"total"`
		Successful int `json:"successful"`
		Failed     int `json:"failed"`
	} `json:"summary"`
}

// CreateShortLinkHandler handles the creation of one or multiple shortened URLs.
// The owner comes from OwnerHeader; without it the link is anonymous.
func CreateShortLinkHandler(deps Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateLinkRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
			return
		}
		owner := ownerID(c)

		if len(req.OriginalURLs) > 0 {
			if req.OriginalURL != "" {
				req.OriginalURLs = append([]string{req.OriginalURL}, req.OriginalURLs...)
			}
			handleMultipleURLs(c, deps, req.OriginalURLs, owner)
			return
		}

		link, err := deps.Links.CreateLink(c.Request.Context(), services.CreateLinkInput{
			OriginalURL:         req.OriginalURL,
			CustomCode:          req.CustomCode,
			Title:               req.Title,
			Description:         req.Description,
			ExpiresAt:           req.ExpiresAt,
			Password:            req.Password,
			IsPasswordProtected: req.IsPasswordProtected,
			OwnerID:             owner,
		})
		if err != nil {
			respondError(c, deps.Log, err)
			return
		}
		c.JSON(http.StatusCreated, newCreateLinkResponse(deps, link))
	}
}

// handleMultipleURLs shortens each URL independently so some may succeed
// while others fail.
func handleMultipleURLs(c *gin.Context, deps Dependencies, urls []string, owner string) {
	var response CreateLinksResponse
	for _, raw := range urls {
		link, err := deps.Links.CreateLink(c.Request.Context(), services.CreateLinkInput{OriginalURL: raw, OwnerID: owner})
		if err != nil {
			if customerrors.KindOf(err) == customerrors.KindInternal {
				deps.Log.Error("Error creating link", zap.String("url", raw), zap.Error(err))
			}
			response.Results = append(response.Results, CreateLinkResponse{OriginalURL: raw, Error: customerrors.Message(err)})
			response.Summary.Failed++
			continue
		}
		response.Results = append(response.Results, newCreateLinkResponse(deps, link))
		response.Summary.Successful++
	}
	response.Summary.Total = len(urls)

	status := http.StatusMultiStatus
	switch {
	case response.Summary.Failed == 0:
		status = http.StatusCreated
	case response.Summary.Successful == 0:
		status = http.StatusBadRequest
	}
	c.JSON(status, response)
}

func newCreateLinkResponse(deps Dependencies, link *models.Link) CreateLinkResponse {
	return CreateLinkResponse{
		ID:                  link.ID.String(),
		ShortCode:           link.ShortCode,
		ShortURL:            deps.Config.ShortURL(link.ShortCode),
		OriginalURL:         link.OriginalURL,
		IsPasswordProtected: link.IsPasswordProtected,
		ExpiresAt:           link.ExpiresAt,
		Success:             true,
	}
}

// ListLinksHandler returns the links of the calling account.
func ListLinksHandler(deps Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		links, err := deps.Links.ListLinksByOwner(c.Request.Context(), ownerID(c))
		if err != nil {
			respondError(c, deps.Log, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"links": links})
	}
}

// UpdateLinkRequest lists the owner-mutable fields. Absent fields are unchanged.
type UpdateLinkRequest struct {
	Title       *string    `json:"title"`
	Description *string    `json:"description"`
	ExpiresAt   *time.Time `json:"expires_at"`
	ClearExpiry bool       `json:"clear_expiry"`
	IsActive    *bool      `json:"is_active"`
}

// UpdateLinkHandler applies a partial update to a link.
func UpdateLinkHandler(deps Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := linkID(c)
		if !ok {
			return
		}
		var req UpdateLinkRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
			return
		}

		link, err := deps.Links.UpdateLink(c.Request.Context(), id, ownerID(c), models.LinkUpdate{
			Title:       req.Title,
			Description: req.Description,
			ExpiresAt:   req.ExpiresAt,
			ClearExpiry: req.ClearExpiry,
			IsActive:    req.IsActive,
		})
		if err != nil {
			respondError(c, deps.Log, err)
			return
		}
		c.JSON(http.StatusOK, link)
	}
}

// DeleteLinkHandler removes a link and its clicks.
func DeleteLinkHandler(deps Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := linkID(c)
		if !ok {
			return
		}
		if err := deps.Links.DeleteLink(c.Request.Context(), id, ownerID(c)); err != nil {
			respondError(c, deps.Log, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

// GetLinkAnalyticsHandler returns the click summary of a link.
func GetLinkAnalyticsHandler(deps Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := linkID(c)
		if !ok {
			return
		}
		result, err := deps.Clicks.GetLinkAnalytics(c.Request.Context(), id, ownerID(c))
		if err != nil {
			respondError(c, deps.Log, err)
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

// CheckStatusHandler tells a client whether a code can be visited and whether
// it needs a password first.
func CheckStatusHandler(deps Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		status, err := deps.Access.CheckStatus(c.Request.Context(), c.Param("shortCode"))
		if err != nil {
			respondError(c, deps.Log, err)
			return
		}
		c.JSON(http.StatusOK, status)
	}
}

// VerifyPasswordRequest is the body of a password submission.
type VerifyPasswordRequest struct {
	Password string `json:"password"`
}

// VerifyPasswordHandler exchanges a link password for a grant cookie scoped to
// the short code.
func VerifyPasswordHandler(deps Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		shortCode := c.Param("shortCode")
		var req VerifyPasswordRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
			return
		}

		grant, err := deps.Access.VerifyPassword(c.Request.Context(), shortCode, req.Password)
		if err != nil {
			respondError(c, deps.Log, err)
			return
		}

		// The grant's own expiry is checked against the injected clock, so the
		// cookie lifetime follows the configured TTL rather than the wall clock.
		maxAge := int(deps.Config.Security.GrantTTL.Seconds())
		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie(GrantCookiePrefix+grant.ShortCode, grant.Token, maxAge, "/", "", deps.Config.Security.SecureCookies, true)
		c.JSON(http.StatusOK, gin.H{
			"success":    true,
			"short_code": grant.ShortCode,
			"expires_at": grant.ExpiresAt,
			"short_url":  deps.Config.ShortURL(grant.ShortCode),
		})
	}
}

// GetLinkStatsHandler handles the retrieval of statistics for a specific short code.
func GetLinkStatsHandler(deps Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		stats, err := deps.Links.GetLinkStats(c.Request.Context(), c.Param("shortCode"))
		if err != nil {
			respondError(c, deps.Log, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"short_code":   stats.Link.ShortCode,
			"original_url": stats.Link.OriginalURL,
			"total_clicks": stats.TotalClicks,
			"countries":    stats.Countries,
			"devices":      stats.Devices,
			"browsers":     stats.Browsers,
			"created_at":   stats.Link.CreatedAt.Format("2006-01-02 15:04:05"),
		})
	}
}

// GetGlobalStatsHandler returns service-wide totals.
func GetGlobalStatsHandler(deps Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		stats, err := deps.Clicks.GetGlobalStats(c.Request.Context())
		if err != nil {
			respondError(c, deps.Log, err)
			return
		}
		c.JSON(http.StatusOK, stats)
	}
}

// PasswordPromptHandler is where visitors of protected links land. It tells the
// client where to submit the password.
func PasswordPromptHandler(deps Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		shortCode := c.Param("shortCode")
		c.JSON(http.StatusOK, gin.H{
			"short_code": shortCode,
			"message":    "This link is password protected",
			"access_url": "/api/v1/codes/" + shortCode + "/access",
		})
	}
}

// RedirectHandler sends the visitor on with a 302 in every case: to the
// original URL, to the password route or to the fallback.
func RedirectHandler(deps Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		shortCode := c.Param("shortCode")
		grant, _ := c.Cookie(GrantCookiePrefix + shortCode)

		// The click is recorded even if the visitor disconnects mid-request.
		ctx := context.WithoutCancel(c.Request.Context())
		result := deps.Redirect.Visit(ctx, shortCode, services.VisitRequest{
			GrantToken:   grant,
			UserAgent:    c.GetHeader("User-Agent"),
			ForwardedFor: c.GetHeader("X-Forwarded-For"),
			RealIP:       c.GetHeader("X-Real-IP"),
			Referer:      c.GetHeader("Referer"),
		})
		c.Redirect(http.StatusFound, result.Location)
	}
}

func ownerID(c *gin.Context) string {
	return strings.TrimSpace(c.GetHeader(OwnerHeader))
}

func linkID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid link id"})
		return uuid.Nil, false
	}
	return id, true
}

// respondError maps the error taxonomy onto HTTP statuses. Internal failures
// are logged and answered with a generic message.
func respondError(c *gin.Context, log *zap.Logger, err error) {
	status := http.StatusInternalServerError
	switch customerrors.KindOf(err) {
	case customerrors.KindValidation:
		status = http.StatusBadRequest
	case customerrors.KindConflict:
		status = http.StatusConflict
	case customerrors.KindNotFound:
		status = http.StatusNotFound
	case customerrors.KindForbidden:
		status = http.StatusForbidden
	case customerrors.KindUnauthorized:
		status = http.StatusUnauthorized
	default:
		log.Error("Request failed", zap.String("path", c.Request.URL.Path), zap.Error(err))
	}
	_ = c.Error(err)
	c.JSON(status, gin.H{"error": customerrors.Message(err)})
}
