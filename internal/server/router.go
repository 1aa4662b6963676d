package server

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/reparigo/reparigo/backend/internal/seo"
	"go.uber.org/zap"
)

const adminSubjectContextKey = "reparigo_admin_subject"

var (
	errMissingTokenManager = errors.New("token manager dependency required")
	errMissingAdminKey     = errors.New("admin key dependency required")
	errMissingStore        = errors.New("page store dependency required")
	errMissingResolver     = errors.New("slug resolver dependency required")
	errMissingPipeline     = errors.New("generation pipeline dependency required")
	errMissingCoordinator  = errors.New("bulk coordinator dependency required")
	errMissingSuggester    = errors.New("city suggester dependency required")
	errMissingSitemap      = errors.New("sitemap builder dependency required")
	errMissingTracker      = errors.New("view tracker dependency required")
	errInvalidAuth         = errors.New("authorization header missing or invalid")
)

// AdminTokenManager issues and validates administrative bearer tokens.
type AdminTokenManager interface {
	IssueAdminToken(ctx context.Context, subject string) (string, int64, error)
	ValidateToken(token string) (string, error)
}

// Dependencies wires the engine components into the HTTP surface.
type Dependencies struct {
	TokenManager AdminTokenManager
	AdminKey     string
	Store        *seo.Store
	Resolver     *seo.Resolver
	Pipeline     *seo.Pipeline
	Coordinator  *seo.Coordinator
	Suggester    *seo.Suggester
	Sitemap      *seo.SitemapBuilder
	Tracker      *seo.Tracker
	Logger       *zap.Logger
}

// NewHTTPHandler builds the gin router over validated dependencies.
func NewHTTPHandler(deps Dependencies) (http.Handler, error) {
	if deps.TokenManager == nil {
		return nil, errMissingTokenManager
	}
	if strings.TrimSpace(deps.AdminKey) == "" {
		return nil, errMissingAdminKey
	}
	if deps.Store == nil {
		return nil, errMissingStore
	}
	if deps.Resolver == nil {
		return nil, errMissingResolver
	}
	if deps.Pipeline == nil {
		return nil, errMissingPipeline
	}
	if deps.Coordinator == nil {
		return nil, errMissingCoordinator
	}
	if deps.Suggester == nil {
		return nil, errMissingSuggester
	}
	if deps.Sitemap == nil {
		return nil, errMissingSitemap
	}
	if deps.Tracker == nil {
		return nil, errMissingTracker
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{"Authorization", "Content-Type"},
		MaxAge:       12 * time.Hour,
	}))

	handler := &httpHandler{
		tokens:      deps.TokenManager,
		adminKey:    deps.AdminKey,
		store:       deps.Store,
		resolver:    deps.Resolver,
		pipeline:    deps.Pipeline,
		coordinator: deps.Coordinator,
		suggester:   deps.Suggester,
		sitemap:     deps.Sitemap,
		tracker:     deps.Tracker,
		logger:      logger,
	}

	router.GET("/healthz", handler.handleHealth)
	router.GET("/pages/:slug", handler.handleGetPage)
	router.POST("/pages/:slug/click", handler.handleClick)
	router.GET("/"+seo.SitemapFilename, handler.handleSitemap)
	router.POST("/auth/admin", handler.handleAdminLogin)

	admin := router.Group("/admin/seo")
	admin.Use(handler.authorizeRequest)
	admin.GET("/pages", handler.handleListPages)
	admin.POST("/pages", handler.handleGeneratePage)
	admin.POST("/pages/:id/refresh", handler.handleRefreshPage)
	admin.PUT("/pages/:id/content", handler.handleUpdateContent)
	admin.PATCH("/pages/:id/publish", handler.handleSetPublished)
	admin.DELETE("/pages/:id", handler.handleDeletePage)
	admin.POST("/bulk/publish", handler.handleBulkPublish)
	admin.POST("/bulk/unpublish", handler.handleBulkUnpublish)
	admin.POST("/bulk/delete", handler.handleBulkDelete)
	admin.POST("/bulk/generate", handler.handleBulkGenerate)
	admin.POST("/bulk/optimize", handler.handleBulkOptimize)
	admin.GET("/stats", handler.handleStats)
	admin.GET("/suggested-cities", handler.handleSuggestedCities)

	return router, nil
}

type httpHandler struct {
	tokens      AdminTokenManager
	adminKey    string
	store       *seo.Store
	resolver    *seo.Resolver
	pipeline    *seo.Pipeline
	coordinator *seo.Coordinator
	suggester   *seo.Suggester
	sitemap     *seo.SitemapBuilder
	tracker     *seo.Tracker
	logger      *zap.Logger
}

type pagePayload struct {
	ID                 string   `json:"id"`
	Slug               string   `json:"slug"`
	City               string   `json:"city"`
	ServiceType        string   `json:"service_type"`
	Title              string   `json:"title"`
	MetaDescription    string   `json:"meta_description"`
	H1Title            string   `json:"h1_title"`
	ContentParagraph1  string   `json:"content_paragraph_1"`
	ContentParagraph2  string   `json:"content_paragraph_2"`
	CTAText            string   `json:"cta_text"`
	RepairerCount      int      `json:"repairer_count"`
	AverageRating      float64  `json:"average_rating"`
	SampleTestimonials []string `json:"sample_testimonials"`
	IsPublished        bool     `json:"is_published"`
	GeneratedByAI      bool     `json:"generated_by_ai"`
	AIModel            string   `json:"ai_model"`
	PageViews          int64    `json:"page_views"`
	ClickThroughRate   float64  `json:"click_through_rate"`
	CreatedAtSeconds   int64    `json:"created_at_s"`
	UpdatedAtSeconds   int64    `json:"updated_at_s"`
}

func toPagePayload(page seo.Page) pagePayload {
	return pagePayload{
		ID:                 page.ID,
		Slug:               page.Slug,
		City:               page.City,
		ServiceType:        page.ServiceType,
		Title:              page.Title,
		MetaDescription:    page.MetaDescription,
		H1Title:            page.H1Title,
		ContentParagraph1:  page.ContentParagraph1,
		ContentParagraph2:  page.ContentParagraph2,
		CTAText:            page.CTAText,
		RepairerCount:      page.RepairerCount,
		AverageRating:      page.AverageRating,
		SampleTestimonials: page.Testimonials(),
		IsPublished:        page.IsPublished,
		GeneratedByAI:      page.GeneratedByAI,
		AIModel:            page.AIModel,
		PageViews:          page.PageViews,
		ClickThroughRate:   page.ClickThroughRate,
		CreatedAtSeconds:   page.CreatedAtSeconds,
		UpdatedAtSeconds:   page.UpdatedAtSeconds,
	}
}

func (h *httpHandler) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *httpHandler) handleGetPage(c *gin.Context) {
	rawSlug := c.Param("slug")

	page, err := h.resolver.Resolve(c.Request.Context(), rawSlug)
	if errors.Is(err, seo.ErrResolutionMiss) {
		c.JSON(http.StatusNotFound, gin.H{"error": "page_not_found"})
		return
	}
	if err != nil {
		h.logger.Error("slug resolution failed", zap.String("slug", rawSlug), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "resolution_failed"})
		return
	}

	// View recording must never fail the render path.
	h.tracker.TrackView(page.ID)

	c.JSON(http.StatusOK, toPagePayload(page))
}

func (h *httpHandler) handleClick(c *gin.Context) {
	rawSlug := c.Param("slug")

	page, err := h.resolver.Resolve(c.Request.Context(), rawSlug)
	if errors.Is(err, seo.ErrResolutionMiss) {
		c.JSON(http.StatusNotFound, gin.H{"error": "page_not_found"})
		return
	}
	if err != nil {
		h.logger.Error("slug resolution failed", zap.String("slug", rawSlug), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "resolution_failed"})
		return
	}

	h.tracker.TrackClick(page.ID)
	c.JSON(http.StatusAccepted, gin.H{"status": "accepted"})
}

func (h *httpHandler) handleSitemap(c *gin.Context) {
	document, err := h.sitemap.Build(c.Request.Context())
	if err != nil {
		h.logger.Error("sitemap build failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "sitemap_failed"})
		return
	}
	c.Data(http.StatusOK, "application/xml", document)
}

type adminLoginPayload struct {
	AdminKey string `json:"admin_key"`
}

type tokenResponsePayload struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
	TokenType   string `json:"token_type"`
}

func (h *httpHandler) handleAdminLogin(c *gin.Context) {
	var request adminLoginPayload
	if err := c.ShouldBindJSON(&request); err != nil || strings.TrimSpace(request.AdminKey) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	if subtle.ConstantTimeCompare([]byte(request.AdminKey), []byte(h.adminKey)) != 1 {
		h.logger.Warn("admin key rejected")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	token, expiresIn, err := h.tokens.IssueAdminToken(c.Request.Context(), "admin")
	if err != nil {
		h.logger.Error("failed to issue admin token", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token_issue_failed"})
		return
	}

	c.JSON(http.StatusOK, tokenResponsePayload{
		AccessToken: token,
		ExpiresIn:   expiresIn,
		TokenType:   "Bearer",
	})
}

func (h *httpHandler) handleListPages(c *gin.Context) {
	filter := seo.Filter{
		ServiceType: strings.TrimSpace(c.Query("service_type")),
		City:        strings.TrimSpace(c.Query("city")),
	}
	if raw := strings.TrimSpace(c.Query("published")); raw != "" {
		published := raw == "true"
		filter.Published = &published
	}

	pages, err := h.store.List(c.Request.Context(), filter)
	if err != nil {
		h.respondServiceError(c, err, "list_failed")
		return
	}

	payloads := make([]pagePayload, 0, len(pages))
	for _, page := range pages {
		payloads = append(payloads, toPagePayload(page))
	}
	c.JSON(http.StatusOK, gin.H{"pages": payloads})
}

type generatePagePayload struct {
	City          string  `json:"city"`
	ServiceType   string  `json:"service_type"`
	RepairerCount int     `json:"repairer_count"`
	AverageRating float64 `json:"average_rating"`
}

func (h *httpHandler) handleGeneratePage(c *gin.Context) {
	var request generatePagePayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	city, err := seo.NewCityName(request.City)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_city"})
		return
	}
	serviceType, err := seo.ParseServiceType(request.ServiceType)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_service_type"})
		return
	}

	page, err := h.pipeline.Generate(c.Request.Context(), city, serviceType, request.RepairerCount, request.AverageRating)
	if err != nil {
		h.respondServiceError(c, err, "generation_failed")
		return
	}

	c.JSON(http.StatusCreated, toPagePayload(page))
}

func (h *httpHandler) handleRefreshPage(c *gin.Context) {
	page, err := h.pipeline.Refresh(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondServiceError(c, err, "refresh_failed")
		return
	}
	c.JSON(http.StatusOK, toPagePayload(page))
}

type updateContentPayload struct {
	Title             string `json:"title"`
	MetaDescription   string `json:"meta_description"`
	H1Title           string `json:"h1_title"`
	ContentParagraph1 string `json:"content_paragraph_1"`
	ContentParagraph2 string `json:"content_paragraph_2"`
	CTAText           string `json:"cta_text"`
}

func (h *httpHandler) handleUpdateContent(c *gin.Context) {
	var request updateContentPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	page, err := h.store.UpdateContent(c.Request.Context(), c.Param("id"), seo.PageContent{
		Title:             request.Title,
		MetaDescription:   request.MetaDescription,
		H1Title:           request.H1Title,
		ContentParagraph1: request.ContentParagraph1,
		ContentParagraph2: request.ContentParagraph2,
		CTAText:           request.CTAText,
	})
	if err != nil {
		h.respondServiceError(c, err, "update_failed")
		return
	}
	c.JSON(http.StatusOK, toPagePayload(page))
}

type setPublishedPayload struct {
	Published bool `json:"published"`
}

func (h *httpHandler) handleSetPublished(c *gin.Context) {
	var request setPublishedPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	page, err := h.store.SetPublished(c.Request.Context(), c.Param("id"), request.Published)
	if err != nil {
		h.respondServiceError(c, err, "publish_failed")
		return
	}
	c.JSON(http.StatusOK, toPagePayload(page))
}

func (h *httpHandler) handleDeletePage(c *gin.Context) {
	if err := h.store.Delete(c.Request.Context(), c.Param("id")); err != nil {
		h.respondServiceError(c, err, "delete_failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

type bulkSelectionPayload struct {
	PageIDs []string `json:"page_ids"`
}

type bulkItemPayload struct {
	Key   string `json:"key"`
	Error string `json:"error,omitempty"`
}

type bulkResponsePayload struct {
	SuccessCount int               `json:"success_count"`
	TotalCount   int               `json:"total_count"`
	Items        []bulkItemPayload `json:"items"`
}

func toBulkResponse(result seo.BulkResult) bulkResponsePayload {
	payload := bulkResponsePayload{
		SuccessCount: result.SuccessCount,
		TotalCount:   result.TotalCount,
		Items:        make([]bulkItemPayload, 0, len(result.Items)),
	}
	for _, item := range result.Items {
		entry := bulkItemPayload{Key: item.Key}
		if item.Err != nil {
			entry.Error = item.Err.Error()
		}
		payload.Items = append(payload.Items, entry)
	}
	return payload
}

func (h *httpHandler) bindBulkSelection(c *gin.Context) ([]string, bool) {
	var request bulkSelectionPayload
	if err := c.ShouldBindJSON(&request); err != nil || len(request.PageIDs) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return nil, false
	}
	return request.PageIDs, true
}

func (h *httpHandler) handleBulkPublish(c *gin.Context) {
	pageIDs, ok := h.bindBulkSelection(c)
	if !ok {
		return
	}
	result := h.coordinator.BulkPublish(c.Request.Context(), pageIDs)
	c.JSON(http.StatusOK, toBulkResponse(result))
}

func (h *httpHandler) handleBulkUnpublish(c *gin.Context) {
	pageIDs, ok := h.bindBulkSelection(c)
	if !ok {
		return
	}
	result := h.coordinator.BulkUnpublish(c.Request.Context(), pageIDs)
	c.JSON(http.StatusOK, toBulkResponse(result))
}

func (h *httpHandler) handleBulkDelete(c *gin.Context) {
	pageIDs, ok := h.bindBulkSelection(c)
	if !ok {
		return
	}
	result := h.coordinator.BulkDelete(c.Request.Context(), pageIDs)
	c.JSON(http.StatusOK, toBulkResponse(result))
}

type bulkGeneratePayload struct {
	ServiceType string `json:"service_type"`
}

func (h *httpHandler) handleBulkGenerate(c *gin.Context) {
	var request bulkGeneratePayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	serviceType, err := seo.ParseServiceType(request.ServiceType)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_service_type"})
		return
	}

	result, err := h.coordinator.BulkGenerate(c.Request.Context(), serviceType)
	if err != nil {
		h.respondServiceError(c, err, "bulk_generate_failed")
		return
	}
	c.JSON(http.StatusOK, toBulkResponse(result))
}

func (h *httpHandler) handleBulkOptimize(c *gin.Context) {
	result, err := h.coordinator.BulkOptimize(c.Request.Context())
	if err != nil {
		h.respondServiceError(c, err, "bulk_optimize_failed")
		return
	}
	c.JSON(http.StatusOK, toBulkResponse(result))
}

func (h *httpHandler) handleStats(c *gin.Context) {
	stats, err := h.store.AggregateStats(c.Request.Context())
	if err != nil {
		h.respondServiceError(c, err, "stats_failed")
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *httpHandler) handleSuggestedCities(c *gin.Context) {
	suggestions, err := h.suggester.SuggestCities(c.Request.Context())
	if err != nil {
		h.respondServiceError(c, err, "suggestions_failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{"suggested_cities": suggestions})
}

func (h *httpHandler) authorizeRequest(c *gin.Context) {
	header := c.GetHeader("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": errInvalidAuth.Error()})
		return
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	if token == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": errInvalidAuth.Error()})
		return
	}
	subject, err := h.tokens.ValidateToken(token)
	if err != nil {
		h.logger.Warn("token validation failed", zap.Error(err))
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	c.Set(adminSubjectContextKey, subject)
	c.Next()
}

// respondServiceError maps engine errors onto HTTP statuses, surfacing the
// dotted service code when one is present.
func (h *httpHandler) respondServiceError(c *gin.Context, err error, fallback string) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, seo.ErrPageNotFound):
		status = http.StatusNotFound
	case errors.Is(err, seo.ErrDuplicateSlug):
		status = http.StatusConflict
	case errors.Is(err, seo.ErrGenerationFailed):
		status = http.StatusBadGateway
	case errors.Is(err, seo.ErrInvalidCityName), errors.Is(err, seo.ErrInvalidServiceType):
		status = http.StatusBadRequest
	}

	if status == http.StatusInternalServerError {
		h.logger.Error("request failed", zap.String("fallback", fallback), zap.Error(err))
	}

	var serviceErr *seo.ServiceError
	if errors.As(err, &serviceErr) {
		c.JSON(status, gin.H{"error": fallback, "code": serviceErr.Code()})
		return
	}
	c.JSON(status, gin.H{"error": fallback})
}
