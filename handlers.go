package main

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/Coxwtwo/gacha-ocr/models"
	"github.com/Coxwtwo/gacha-ocr/pkg/analyze"
	"github.com/Coxwtwo/gacha-ocr/pkg/batch"
	"github.com/Coxwtwo/gacha-ocr/pkg/catalog"
	"github.com/Coxwtwo/gacha-ocr/pkg/history"
	"github.com/Coxwtwo/gacha-ocr/pkg/ocr"
)

func setupRoutes(r *gin.Engine) {
	r.POST("/register", registerHandler)
	r.POST("/login", loginHandler)
	authGroup := r.Group("")
	authGroup.Use(jwtAuthMiddleware())
	authGroup.GET("/me", meHandler)
	authGroup.GET("/games", listGamesHandler)
	authGroup.POST("/batches", startBatchHandler)
	authGroup.GET("/batches/:id", getBatchHandler)
	authGroup.POST("/batches/:id/cancel", cancelBatchHandler)
	authGroup.GET("/review", listReviewHandler)
	authGroup.POST("/review/:id/confirm", confirmReviewHandler)
	authGroup.POST("/review/:id/reject", rejectReviewHandler)
	authGroup.GET("/history", historyHandler)
	authGroup.GET("/history/stats", statsHandler)
	authGroup.GET("/audit", auditHandler)
}

func jwtAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" || len(authHeader) < 8 || authHeader[:7] != "Bearer " {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing or invalid Authorization header"})
			c.Abort()
			return
		}
		tokenString := authHeader[7:]
		token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrInvalidKeyType
			}
			return jwtSecret, nil
		})
		if err != nil || !token.Valid {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			c.Abort()
			return
		}
		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid claims"})
			c.Abort()
			return
		}
		username, _ := claims["username"].(string)
		role, _ := claims["role"].(string)
		c.Set("username", username)
		if role != "" {
			c.Set("role", role)
		}
		c.Next()
	}
}

func registerHandler(c *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := RegisterUser(req.Username, req.Password); err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "user registered successfully"})
}

func loginHandler(c *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	user, err := Authenticate(req.Username, req.Password)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}
	// Resolve role name from RoleID so handlers can gate on it.
	roleName := ""
	if user.RoleID != nil {
		var r models.Role
		if err := db.First(&r, *user.RoleID).Error; err == nil {
			roleName = r.Name
		}
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"username": user.Username,
		"role":     roleName,
		"exp":      time.Now().Add(time.Hour * 24).Unix(),
	})
	tokenString, err := token.SignedString(jwtSecret)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "login successful", "token": tokenString})
}

func meHandler(c *gin.Context) {
	usernameVal, _ := c.Get("username")
	if usernameVal == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "context missing username"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"username": usernameVal.(string)})
}

func actor(c *gin.Context) string {
	if v, ok := c.Get("username"); ok {
		if s, _ := v.(string); s != "" {
			return s
		}
	}
	return "unknown"
}

func listGamesHandler(c *gin.Context) {
	games, err := manager.Games()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to scan config dir"})
		return
	}
	out := make([]gin.H, 0, len(games))
	for _, g := range games {
		out = append(out, gin.H{"id": g[0], "name": g[1]})
	}
	c.JSON(http.StatusOK, out)
}

// batchJob tracks one in-flight (or finished) ingest run. The registry is
// in-memory only: a restart forgets running jobs, which is fine because the
// ledger itself is idempotent and the run can simply be repeated.
type batchJob struct {
	ID      string
	GameID  string
	Dir     string
	Started time.Time

	cancel context.CancelFunc

	mu      sync.Mutex
	done    bool
	summary batch.Summary
	err     error
}

var (
	jobsMu sync.Mutex
	jobs   = map[string]*batchJob{}
)

func startBatchHandler(c *gin.Context) {
	var req struct {
		GameID string `json:"game_id" binding:"required"`
		Dir    string `json:"dir" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	gameCfg, err := manager.Load(req.GameID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	cats, err := catalog.LoadGame(cfg.CatalogDir, req.GameID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	paths := batch.ListImages(req.Dir)
	if len(paths) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no images found in dir"})
		return
	}

	pipe := batch.NewPipeline(gameCfg, cats, ocr.NewTesseract(cfg.OCRLanguage))
	runner := batch.NewRunner(pipe, store, cfg.Workers)

	ctx, cancel := context.WithCancel(context.Background())
	job := &batchJob{
		ID:      uuid.NewString(),
		GameID:  req.GameID,
		Dir:     req.Dir,
		Started: time.Now(),
		cancel:  cancel,
	}
	jobsMu.Lock()
	jobs[job.ID] = job
	jobsMu.Unlock()

	go func() {
		defer cancel()
		sum, runErr := runner.Run(ctx, paths)
		job.mu.Lock()
		job.done = true
		job.summary = sum
		job.err = runErr
		job.mu.Unlock()
		if runErr != nil {
			log.Error().Err(runErr).Str("job", job.ID).Msg("batch run failed")
		}
	}()

	c.JSON(http.StatusAccepted, gin.H{"id": job.ID, "images": len(paths)})
}

func lookupJob(c *gin.Context) *batchJob {
	jobsMu.Lock()
	job := jobs[c.Param("id")]
	jobsMu.Unlock()
	if job == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown batch id"})
	}
	return job
}

func getBatchHandler(c *gin.Context) {
	job := lookupJob(c)
	if job == nil {
		return
	}
	job.mu.Lock()
	defer job.mu.Unlock()
	resp := gin.H{
		"id":      job.ID,
		"game_id": job.GameID,
		"dir":     job.Dir,
		"started": job.Started,
		"done":    job.done,
	}
	if job.done {
		resp["summary"] = job.summary
		if job.err != nil {
			resp["error"] = job.err.Error()
		}
	}
	c.JSON(http.StatusOK, resp)
}

func cancelBatchHandler(c *gin.Context) {
	job := lookupJob(c)
	if job == nil {
		return
	}
	job.cancel()
	c.JSON(http.StatusOK, gin.H{"message": "cancellation requested"})
}

func listReviewHandler(c *gin.Context) {
	gameID := c.Query("game")
	if gameID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "game query param required"})
		return
	}
	recs, err := store.Pending(c.Request.Context(), gameID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	c.JSON(http.StatusOK, recs)
}

func recordIDParam(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid record id"})
		return 0, false
	}
	return uint(id), true
}

func confirmReviewHandler(c *gin.Context) {
	id, ok := recordIDParam(c)
	if !ok {
		return
	}
	var req struct {
		ItemID   string `json:"item_id"`
		BannerID string `json:"banner_id"`
		DrawTime string `json:"draw_time"` // optional RFC3339 correction
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	var drawTime time.Time
	if req.DrawTime != "" {
		t, err := time.Parse(time.RFC3339, req.DrawTime)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "draw_time must be RFC3339"})
			return
		}
		drawTime = t
	}
	rec, inserted, err := store.Confirm(c.Request.Context(), id, req.ItemID, req.BannerID, drawTime, actor(c))
	if err != nil {
		if errors.Is(err, history.ErrNotPending) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"record": rec, "inserted": inserted})
}

func rejectReviewHandler(c *gin.Context) {
	id, ok := recordIDParam(c)
	if !ok {
		return
	}
	var req struct {
		Reason string `json:"reason"`
	}
	// body optional
	_ = c.ShouldBindJSON(&req)
	if err := store.Reject(c.Request.Context(), id, actor(c), req.Reason); err != nil {
		if errors.Is(err, history.ErrNotPending) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "record rejected"})
}

// timeWindow parses optional from/to query params (RFC3339). Zero values
// mean an unbounded side of the window.
func timeWindow(c *gin.Context) (time.Time, time.Time, bool) {
	var from, to time.Time
	if v := c.Query("from"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "from must be RFC3339"})
			return from, to, false
		}
		from = t
	}
	if v := c.Query("to"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "to must be RFC3339"})
			return from, to, false
		}
		to = t
	}
	return from, to, true
}

func historyHandler(c *gin.Context) {
	gameID := c.Query("game")
	if gameID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "game query param required"})
		return
	}
	from, to, ok := timeWindow(c)
	if !ok {
		return
	}
	recs, err := store.Slice(c.Request.Context(), gameID, from, to)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	c.JSON(http.StatusOK, recs)
}

func statsHandler(c *gin.Context) {
	gameID := c.Query("game")
	if gameID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "game query param required"})
		return
	}
	from, to, ok := timeWindow(c)
	if !ok {
		return
	}
	gameCfg, err := manager.Load(gameID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	cats, err := catalog.LoadGame(cfg.CatalogDir, gameID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	recs, err := store.Slice(c.Request.Context(), gameID, from, to)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	c.JSON(http.StatusOK, analyze.Analyze(gameID, recs, cats, gameCfg.Pity))
}

func auditHandler(c *gin.Context) {
	gameID := c.Query("game")
	if gameID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "game query param required"})
		return
	}
	limit := 0
	if v := c.Query("limit"); v != "" {
		limit, _ = strconv.Atoi(v)
	}
	entries, err := store.Audit(c.Request.Context(), gameID, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	c.JSON(http.StatusOK, entries)
}
