package dashboard

import (
	"net/http"
	"strconv"
	"unicode/utf8"

	"github.com/gin-gonic/gin"

	"github.com/zulandar/nudgeyard/internal/logger"
	"github.com/zulandar/nudgeyard/internal/nudge"
	"github.com/zulandar/nudgeyard/internal/scheduler"
	"github.com/zulandar/nudgeyard/internal/store"
)

// maxHistoryLimit caps the history endpoint's page size.
const maxHistoryLimit = 200

type api struct {
	svc   *scheduler.Service
	store *store.Store
	hub   *Hub
	log   *logger.Logger
}

// registerRoutes sets up all API routes on the Gin router.
func registerRoutes(router *gin.Engine, a *api) {
	router.GET("/healthz", a.handleHealth)

	users := router.Group("/api/users/:id")
	users.PUT("/context", a.handlePutContext)
	users.POST("/interventions/trigger", a.handleTrigger)
	users.POST("/interventions/crisis", a.handleCrisis)
	users.GET("/interventions/active", a.handleActive)
	users.GET("/interventions/pending", a.handlePending)
	users.GET("/config", a.handleGetConfig)
	users.PATCH("/config", a.handlePatchConfig)
	users.DELETE("/config", a.handleResetConfig)
	users.GET("/effectiveness", a.handleEffectiveness)
	users.GET("/history", a.handleHistory)

	router.POST("/api/interventions/:id/feedback", a.handleFeedback)
	router.POST("/api/interventions/:id/viewed", a.handleViewed)

	router.GET("/api/events", a.handleSSE)
}

func errorJSON(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, gin.H{"error": msg})
}

func (a *api) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":            "ok",
		"scheduler_enabled": a.svc.Enabled(),
	})
}

// contextRequest is the classifier output posted for a user. Energy and
// social engagement default to the midpoint when omitted. String lengths
// match the stored column sizes.
type contextRequest struct {
	RiskLevel            nudge.RiskLevel   `json:"risk_level" binding:"required"`
	StressLevel          nudge.StressLevel `json:"stress_level" binding:"required"`
	EnergyLevel          *int              `json:"energy_level"`
	SocialEngagement     *int              `json:"social_engagement"`
	ActivityState        string            `json:"activity_state" binding:"max=32"`
	EnvironmentalFactors []string          `json:"environmental_factors"`
	InsightPatterns      []string          `json:"insight_patterns"`
	AppForeground        bool              `json:"app_foreground"`
	ScreenActive         bool              `json:"screen_active"`
	Locale               string            `json:"locale" binding:"max=16"`
}

// maxUserIDLen is the stored user_id column size.
const maxUserIDLen = 64

func level(v *int) (int, bool) {
	if v == nil {
		return 50, true
	}
	return *v, *v >= 0 && *v <= 100
}

func (a *api) handlePutContext(c *gin.Context) {
	if utf8.RuneCountInString(c.Param("id")) > maxUserIDLen {
		errorJSON(c, http.StatusBadRequest, "user id is too long")
		return
	}
	var req contextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorJSON(c, http.StatusBadRequest, err.Error())
		return
	}
	if !req.RiskLevel.Valid() {
		errorJSON(c, http.StatusBadRequest, "unknown risk_level")
		return
	}
	if !req.StressLevel.Valid() {
		errorJSON(c, http.StatusBadRequest, "unknown stress_level")
		return
	}
	energy, ok := level(req.EnergyLevel)
	if !ok {
		errorJSON(c, http.StatusBadRequest, "energy_level must be within [0, 100]")
		return
	}
	social, ok := level(req.SocialEngagement)
	if !ok {
		errorJSON(c, http.StatusBadRequest, "social_engagement must be within [0, 100]")
		return
	}

	snap := nudge.Snapshot{
		UserID:               c.Param("id"),
		RiskLevel:            req.RiskLevel,
		StressLevel:          req.StressLevel,
		EnergyLevel:          energy,
		SocialEngagement:     social,
		ActivityState:        req.ActivityState,
		EnvironmentalFactors: req.EnvironmentalFactors,
		InsightPatterns:      req.InsightPatterns,
		AppForeground:        req.AppForeground,
		ScreenActive:         req.ScreenActive,
		Locale:               req.Locale,
		TakenAt:              a.svc.Now(),
	}
	if err := a.store.PutSnapshot(c.Request.Context(), snap); err != nil {
		a.log.Error("store context snapshot", "user", snap.UserID, "error", err)
		errorJSON(c, http.StatusInternalServerError, "could not store context")
		return
	}
	c.JSON(http.StatusOK, snap)
}

// respondIntervention writes iv, or 204 when nothing was scheduled.
func respondIntervention(c *gin.Context, iv *nudge.Intervention) {
	if iv == nil {
		c.Status(http.StatusNoContent)
		return
	}
	c.JSON(http.StatusOK, iv)
}

func (a *api) handleTrigger(c *gin.Context) {
	iv, err := a.svc.TriggerContextual(c.Request.Context(), c.Param("id"))
	if err != nil {
		errorJSON(c, http.StatusBadRequest, err.Error())
		return
	}
	respondIntervention(c, iv)
}

type crisisRequest struct {
	RiskLevel nudge.RiskLevel `json:"risk_level"`
	Factors   []string        `json:"factors"`
}

func (a *api) handleCrisis(c *gin.Context) {
	var req crisisRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			errorJSON(c, http.StatusBadRequest, err.Error())
			return
		}
	}
	if req.RiskLevel != "" && !req.RiskLevel.Valid() {
		errorJSON(c, http.StatusBadRequest, "unknown risk_level")
		return
	}
	iv, err := a.svc.TriggerCrisis(c.Request.Context(), c.Param("id"), req.RiskLevel, req.Factors)
	if err != nil {
		errorJSON(c, http.StatusBadRequest, err.Error())
		return
	}
	respondIntervention(c, iv)
}

func (a *api) handleActive(c *gin.Context) {
	out := a.svc.ActiveInterventions(c.Param("id"))
	if out == nil {
		out = []*nudge.Intervention{}
	}
	c.JSON(http.StatusOK, out)
}

func (a *api) handlePending(c *gin.Context) {
	out := a.svc.PendingInterventions(c.Param("id"))
	if out == nil {
		out = []*nudge.Intervention{}
	}
	c.JSON(http.StatusOK, out)
}

func (a *api) handleGetConfig(c *gin.Context) {
	cfg, err := a.svc.UserConfig(c.Request.Context(), c.Param("id"))
	if err != nil {
		a.log.Error("load user config", "user", c.Param("id"), "error", err)
		errorJSON(c, http.StatusInternalServerError, "could not load config")
		return
	}
	c.JSON(http.StatusOK, cfg)
}

func (a *api) handlePatchConfig(c *gin.Context) {
	var patch nudge.ConfigPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		errorJSON(c, http.StatusBadRequest, err.Error())
		return
	}
	cfg, err := a.svc.UpdateUserConfig(c.Request.Context(), c.Param("id"), patch)
	if err != nil {
		errorJSON(c, http.StatusUnprocessableEntity, err.Error())
		return
	}
	c.JSON(http.StatusOK, cfg)
}

func (a *api) handleResetConfig(c *gin.Context) {
	cfg, err := a.svc.ResetUserConfig(c.Request.Context(), c.Param("id"))
	if err != nil {
		a.log.Error("reset user config", "user", c.Param("id"), "error", err)
		errorJSON(c, http.StatusInternalServerError, "could not reset config")
		return
	}
	c.JSON(http.StatusOK, cfg)
}

func (a *api) handleEffectiveness(c *gin.Context) {
	summary, err := a.svc.EffectivenessSummary(c.Request.Context(), c.Param("id"))
	if err != nil {
		a.log.Error("effectiveness summary", "user", c.Param("id"), "error", err)
		errorJSON(c, http.StatusInternalServerError, "could not load effectiveness")
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (a *api) handleHistory(c *gin.Context) {
	f := store.HistoryFilter{UserID: c.Param("id"), Limit: 50}
	if v := c.Query("category"); v != "" {
		cat := nudge.Category(v)
		if !cat.Valid() {
			errorJSON(c, http.StatusBadRequest, "unknown category")
			return
		}
		f.Category = cat
	}
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > maxHistoryLimit {
			errorJSON(c, http.StatusBadRequest, "limit must be between 1 and 200")
			return
		}
		f.Limit = n
	}
	f.FollowUp = c.Query("follow_up") == "true"

	out, err := a.store.History(c.Request.Context(), f)
	if err != nil {
		a.log.Error("history", "user", f.UserID, "error", err)
		errorJSON(c, http.StatusInternalServerError, "could not load history")
		return
	}
	c.JSON(http.StatusOK, out)
}

type feedbackRequest struct {
	Response nudge.Response `json:"response" binding:"required"`
	Rating   *int           `json:"rating"`
}

func (a *api) handleFeedback(c *gin.Context) {
	var req feedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorJSON(c, http.StatusBadRequest, err.Error())
		return
	}
	if !req.Response.Valid() {
		errorJSON(c, http.StatusBadRequest, "response must be completed, dismissed, delayed or ignored")
		return
	}
	if !a.svc.RecordFeedback(c.Request.Context(), c.Param("id"), req.Response, req.Rating) {
		errorJSON(c, http.StatusNotFound, "intervention is not active")
		return
	}
	c.JSON(http.StatusOK, gin.H{"recorded": true})
}

func (a *api) handleViewed(c *gin.Context) {
	if !a.svc.MarkViewed(c.Request.Context(), c.Param("id")) {
		errorJSON(c, http.StatusNotFound, "intervention is not active")
		return
	}
	c.Status(http.StatusNoContent)
}
