// @title           Costing API
// @version         1.0
// @description     Costing Backend API - cost sheet roll-up, approval workflow and cutting plan endpoints.
// @termsOfService  http://swagger.io/terms/

// @contact.name   API Support
// @contact.url    https://costing.blueinvent.com

// @license.name  Apache 2.0
// @license.url   http://www.apache.org/licenses/LICENSE-2.0.html

// @host      https://costing.blueinvent.com

// @BasePath  /

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

// @schemes http https
package main

import (
	"backend/handlers"
	"backend/services"
	"backend/storage"
	"backend/utils"
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"regexp"
	"runtime/debug"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/robfig/cron/v3"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"github.com/swaggo/swag"
)

func CORSConfig() cors.Config {
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{
		"https://costing.blueinvent.com",
		"http://localhost:9000",
		"http://localhost:8080",
		"http://localhost:3000",
	}
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{
		"Content-Type", "Content-Length", "Accept-Encoding", "X-XSRF-TOKEN",
		"Accept", "Origin", "X-Requested-With", "Authorization", "User-Agent",
		"Cache-Control", "Referer",
		"Access-Control-Request-Method", "Access-Control-Request-Headers",
		"X-Custom-Header", "X-API-Key", "X-Client-Version",
		"Accept-Language", "Accept-Charset", "DNT", "Connection",
	}
	corsConfig.AllowMethods = []string{
		"GET", "POST", "PUT", "DELETE", "OPTIONS", "HEAD", "PATCH",
	}
	corsConfig.ExposeHeaders = []string{
		"Content-Length", "Authorization", "Content-Type", "Content-Disposition",
		"Access-Control-Allow-Origin", "Access-Control-Allow-Credentials",
	}
	corsConfig.MaxAge = 12 * time.Hour
	return corsConfig
}

var cronRunning int32

func safeGo(
	ctx context.Context,
	wg *sync.WaitGroup,
	name string,
	fn func(context.Context) error,
	cronLogger *log.Logger,
) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer func() {
			if r := recover(); r != nil {
				log.Printf("PANIC in %s: %v\n%s", name, r, debug.Stack())
				if cronLogger != nil {
					cronLogger.Printf("PANIC in %s: %v\n%s", name, r, debug.Stack())
				}
			}
		}()

		if err := fn(ctx); err != nil {
			log.Printf("%s failed: %v", name, err)
			if cronLogger != nil {
				cronLogger.Printf("%s failed: %v", name, err)
			}
		} else {
			log.Printf("%s completed successfully", name)
			if cronLogger != nil {
				cronLogger.Printf("%s completed successfully", name)
			}
		}
	}()
}

// runSummaryReconciliation recomputes every stored cost summary from its
// underlying cost items and labour rows so drift introduced by out-of-band
// writes never survives past the nightly cycle.
func runSummaryReconciliation(ctx context.Context, db *sql.DB) error {
	queryCtx, cancel := utils.GetSlowQueryContext(ctx)
	defer cancel()

	rows, err := db.QueryContext(queryCtx, `SELECT project_id FROM cost_summaries WHERE status != 'approved'`)
	if err != nil {
		return err
	}
	defer rows.Close()

	var projectIDs []int
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return err
		}
		projectIDs = append(projectIDs, id)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for _, projectID := range projectIDs {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if _, err := handlers.RecomputeAndStoreSummary(db, projectID); err != nil {
			log.Printf("summary reconciliation failed for project %d: %v", projectID, err)
		}
	}
	return nil
}

// ginPathToSwaggerPath converts Gin path params :param to Swagger {param}
var ginPathParamRe = regexp.MustCompile(`:([^/]+)`)

func ginPathToSwaggerPath(path string) string {
	return ginPathParamRe.ReplaceAllString(path, "{$1}")
}

// Common API response/request models for Swagger so Example Value and Model show real JSON structure.
var swaggerDefinitions = map[string]interface{}{
	"ApiResponseDataItem": map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"id":          map[string]interface{}{"type": "integer", "example": 425},
			"project_id":  map[string]interface{}{"type": "integer", "example": 731623920},
			"category":    map[string]interface{}{"type": "string", "example": "material"},
			"item":        map[string]interface{}{"type": "string", "example": "Leather upper"},
			"cost":        map[string]interface{}{"type": "number", "example": 245.5},
			"created_at":  map[string]interface{}{"type": "string", "format": "date-time", "example": "2026-01-28T05:49:18.445326Z"},
			"updated_at":  map[string]interface{}{"type": "string", "format": "date-time", "example": "2026-02-04T12:26:17.582917Z"},
		},
	},
	"ApiResponse": map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"data": map[string]interface{}{
				"type":        "array",
				"items":       map[string]interface{}{"$ref": "#/definitions/ApiResponseDataItem"},
				"description": "List of items (structure may vary by endpoint)",
			},
			"message": map[string]interface{}{"type": "string", "example": "cost items fetched successfully"},
		},
	},
	"ApiRequest": map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"project_id": map[string]interface{}{"type": "integer", "example": 731623920},
			"item":       map[string]interface{}{"type": "string", "example": "Leather upper"},
			"cost":       map[string]interface{}{"type": "number", "example": 245.5},
		},
		"description": "Request body (fields may vary by endpoint)",
	},
}

// buildSwaggerFromRoutes returns a handler that serves Swagger 2.0 JSON with all registered routes.
// Uses JSON models so each API shows input/output structure and example value.
func buildSwaggerFromRoutes(engine *gin.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		paths := make(map[string]interface{})
		routes := engine.Routes()
		for _, route := range routes {
			if strings.HasPrefix(route.Path, "/swagger") {
				continue
			}
			path := ginPathToSwaggerPath(route.Path)
			if paths[path] == nil {
				paths[path] = make(map[string]interface{})
			}
			method := strings.ToLower(route.Method)

			op := map[string]interface{}{
				"summary":     route.Method + " " + route.Path,
				"description": "API endpoint: " + route.Path,
				"tags":        []string{"API"},
				"produces":    []string{"application/json"},
				"responses": map[string]interface{}{
					"200": map[string]interface{}{
						"description": "Success - returns JSON",
						"schema":      map[string]interface{}{"$ref": "#/definitions/ApiResponse"},
					},
					"400": map[string]interface{}{
						"description": "Bad Request",
						"schema": map[string]interface{}{
							"type": "object",
							"properties": map[string]interface{}{
								"error": map[string]interface{}{"type": "string"},
							},
						},
					},
					"500": map[string]interface{}{
						"description": "Internal Server Error",
						"schema": map[string]interface{}{
							"type": "object",
							"properties": map[string]interface{}{
								"error": map[string]interface{}{"type": "string"},
							},
						},
					},
				},
			}

			if method == "post" || method == "put" || method == "patch" {
				op["consumes"] = []string{"application/json"}
				op["parameters"] = []map[string]interface{}{
					{
						"in":          "body",
						"name":        "body",
						"required":    true,
						"description": "JSON body. See model below; fields may vary by endpoint.",
						"schema":      map[string]interface{}{"$ref": "#/definitions/ApiRequest"},
					},
				}
			}

			(paths[path].(map[string]interface{}))[method] = op
		}
		doc := map[string]interface{}{
			"swagger":     "2.0",
			"definitions": swaggerDefinitions,
			"info": map[string]interface{}{
				"title":       "Costing API",
				"description": "Costing Backend API. Response model: { data: [], message }. Request body model shown for POST/PUT/PATCH.",
				"version":     "1.0",
			},
			"host":     c.Request.Host,
			"basePath": "/",
			"schemes":  []string{"http", "https"},
			"paths":    paths,
		}
		c.Header("Content-Type", "application/json")
		c.JSON(http.StatusOK, doc)
	}
}

func main() {
	db := storage.InitDB()
	gormDB := storage.InitGormDB()

	if err := storage.EnsureCostingTables(db); err != nil {
		log.Fatalf("Failed to ensure costing tables: %v", err)
	}
	if err := handlers.SeedDefaultStages(gormDB); err != nil {
		log.Printf("Warning: failed to seed default stages: %v", err)
	}

	// Initialize Firebase Cloud Messaging service using HTTP v1 API
	credentialsPath := os.Getenv("FCM_CREDENTIALS_PATH")
	if credentialsPath == "" {
		credentialsPath = "firebase-credentials.json"
	}
	fcmService, err := services.NewFCMService(credentialsPath, db)
	if err != nil {
		log.Printf("Warning: Failed to initialize FCM service: %v. Push notifications will be disabled.", err)
		fcmService = nil
	} else {
		log.Println("FCM service initialized successfully")
	}
	handlers.SetFCMService(fcmService)

	emailService := services.NewEmailService(db)

	// Setup cron job to run maintenance daily at 11:50 PM
	cronScheduler := cron.New(
		cron.WithLogger(cron.VerbosePrintfLogger(log.New(os.Stdout, "cron: ", log.LstdFlags))),
	)

	cronLogFile, err := os.OpenFile("cron_errors.log", os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		log.Printf("Failed to open cron error log file: %v", err)
	}
	cronLogger := log.New(cronLogFile, "CRON_ERROR: ", log.LstdFlags)

	_, err = cronScheduler.AddFunc("50 23 * * *", func() {
		if !atomic.CompareAndSwapInt32(&cronRunning, 0, 1) {
			log.Println("Previous cron still running. Skipping this run.")
			if cronLogger != nil {
				cronLogger.Println("Previous cron still running. Skipping this run.")
			}
			return
		}
		defer atomic.StoreInt32(&cronRunning, 0)

		log.Println("Starting daily maintenance cron job")
		if cronLogger != nil {
			cronLogger.Println("Starting daily maintenance cron job")
		}

		ctx, cancel := context.WithTimeout(context.Background(), 25*time.Minute)
		defer cancel()

		var wg sync.WaitGroup

		safeGo(ctx, &wg, "CleanupExpiredSessions", func(ctx context.Context) error {
			return storage.CleanupExpiredSessions(db)
		}, cronLogger)

		safeGo(ctx, &wg, "SummaryReconciliation", func(ctx context.Context) error {
			return runSummaryReconciliation(ctx, db)
		}, cronLogger)

		done := make(chan struct{})
		go func() {
			wg.Wait()
			close(done)
		}()

		select {
		case <-done:
			log.Println("All cron jobs finished")
			if cronLogger != nil {
				cronLogger.Println("All cron jobs finished")
			}
		case <-ctx.Done():
			log.Println("Cron timeout reached, jobs cancelled")
			if cronLogger != nil {
				cronLogger.Println("Cron timeout reached, jobs cancelled")
			}
		}
	})
	if err != nil {
		log.Fatalf("Failed to schedule daily maintenance cron job: %v", err)
	}

	cronScheduler.Start()

	r := gin.Default()
	r.MaxMultipartMemory = 8 << 20

	r.Use(cors.New(CORSConfig()))

	// ==================== 1. AUTH & SESSION ====================
	frontendBaseURL := os.Getenv("FRONTEND_RESET_URL")
	if frontendBaseURL == "" {
		frontendBaseURL = "http://localhost:3000/reset-password/"
	}
	r.POST("/api/login", handlers.LoginHandler(db))
	r.POST("/api/refresh-token", handlers.RefreshTokenHandler(db))
	r.POST("/api/validate-session", handlers.ValidateSession(db))
	r.DELETE("/api/session/:user_id", handlers.DeleteSessionHandler(db))
	r.POST("/api/auth/forgot-password", handlers.ForgetPasswordHandler(db, emailService, frontendBaseURL))
	r.POST("/api/auth/reset-password/:token", handlers.ResetPasswordHandler(db))
	r.POST("/api/change-password", handlers.ChangePasswordHandler(db))

	// ==================== 2. USERS & PROJECTS ====================
	r.POST("/api/users", handlers.CreateUser(db))
	r.GET("/api/users", handlers.GetAllUsers(db))
	r.GET("/api/users/:id", handlers.GetUser(db))
	r.PUT("/api/users/:id", handlers.UpdateUser(db))
	r.DELETE("/api/users/:id", handlers.DeleteUser(db))
	r.GET("/api/me", handlers.GetUserFromSession(db))

	r.POST("/api/projects", handlers.CreateProject(db))
	r.GET("/api/projects", handlers.FetchAllProjects(db))
	r.GET("/api/project/:project_id", handlers.GetProject(db))
	r.GET("/api/project/:project_id/status", handlers.GetProjectStatus(db))
	r.POST("/api/project/:project_id/members", handlers.AddProjectMember(db))
	r.GET("/api/project/:project_id/members", handlers.GetProjectMembers(db))
	r.DELETE("/api/project/:project_id/members/:user_id", handlers.RemoveProjectMember(db))

	// ==================== 3. DEPARTMENT STAGES ====================
	r.GET("/api/departments", handlers.GetDepartments(db))
	r.POST("/api/departments", handlers.CreateDepartment(db))
	r.PUT("/api/departments/:id", handlers.UpdateDepartment(db))
	r.DELETE("/api/departments/:id", handlers.DeleteDepartment(db))

	// ==================== 4. COST SHEET ====================
	costing := r.Group("/api/project/:project_id")
	costing.Use(handlers.CostingGateMiddleware(db))
	{
		costing.GET("/costs/:category", handlers.GetCostItems(db))
		costing.POST("/costs/:category", handlers.CreateCostItem(db))
		costing.PATCH("/costs/:category/:item_id", handlers.UpdateCostItemCost(db))
		costing.DELETE("/costs/:category/:item_id", handlers.DeleteCostItem(db))
		costing.PATCH("/costs/:category/:item_id/department", handlers.SetCostItemDepartment(db))

		costing.GET("/labour", handlers.GetLabourBlock(db))
		costing.PATCH("/labour", handlers.UpdateLabourBlock(db))

		costing.GET("/cost-summary", handlers.GetCostSummary(db))
		costing.PATCH("/cost-summary", handlers.UpdateCostSummary(db))
	}

	// Save and approve sit outside the gate: once a sheet is approved they
	// answer 409 from the state machine itself, not 423 from the freeze.
	r.POST("/api/project/:project_id/cost-summary/save", handlers.SaveCostSummary(db))
	r.POST("/api/project/:project_id/cost-summary/approve", handlers.ApproveCostSummary(db, gormDB, emailService))

	// ==================== 5. CUTTING PLAN ====================
	r.POST("/api/cutting/compute", handlers.ComputeCuttingPlan())
	r.GET("/api/project/:project_id/cutting/:item_id", handlers.GetCuttingMaterials(db))
	r.POST("/api/project/:project_id/cutting/:item_id", handlers.CreateCuttingMaterial(db))
	r.PATCH("/api/project/:project_id/cutting/:item_id/:material_id", handlers.UpdateCuttingQuantity(db))
	r.POST("/api/project/:project_id/cutting/:item_id/commit", handlers.CommitCuttingDay(db))

	// ==================== 6. APPROVAL LOGS & EXPORTS ====================
	r.GET("/api/project/:project_id/approval-logs", handlers.GetApprovalLogs(db, gormDB))
	r.GET("/api/project/:project_id/cost-sheet/export/csv", handlers.ExportCostSheetCSV(db))
	r.GET("/api/project/:project_id/cost-sheet/export/excel", handlers.ExportCostSheetExcel(db))
	r.GET("/api/project/:project_id/cost-sheet/export/pdf", handlers.ExportCostSheetPDF(db))
	r.GET("/api/project/:project_id/cost-sheet/qr", handlers.GenerateCostSheetQR(db))

	// ==================== 7. EMAIL TEMPLATES ====================
	r.POST("/api/email-templates", handlers.CreateEmailTemplate(db))
	r.GET("/api/email-templates", handlers.GetEmailTemplates(db))
	r.GET("/api/email-templates/:id", handlers.GetEmailTemplateByID(db))
	r.PUT("/api/email-templates/:id", handlers.UpdateEmailTemplate(db))
	r.DELETE("/api/email-templates/:id", handlers.DeleteEmailTemplate(db))
	r.GET("/api/email-templates/type/:type", handlers.GetTemplatesByType(db))

	// ==================== 8. NOTIFICATIONS ====================
	r.POST("/api/notifications", handlers.CreateNotificationHandler(db))
	r.GET("/api/notifications/my", handlers.GetMyNotificationsHandler(db))
	r.PUT("/api/notifications/:id/read", handlers.MarkNotificationAsReadHandler(db))
	r.PUT("/api/notifications/read-all", handlers.MarkAllNotificationsAsReadHandler(db))
	r.DELETE("/api/notifications/:id", handlers.DeleteNotificationHandler(db))
	r.POST("/api/fcm/register", handlers.RegisterFCMTokenHandler(db, fcmService))
	r.POST("/api/fcm/remove", handlers.RemoveFCMTokenHandler(db, fcmService))

	// ==================== 9. ACTIVITY LOGS ====================
	r.GET("/api/activity-logs", handlers.GetActivityLogsHandler(db))
	r.GET("/api/activity-logs/search", handlers.SearchActivityLogsHandler(db))

	// ==================== 10. SWAGGER ====================
	r.GET("/swagger/*any", func(c *gin.Context) {
		if c.Param("any") == "/doc.json" {
			doc, err := swag.ReadDoc("swagger")
			if err != nil {
				// No generated doc registered; derive one from the live route table.
				buildSwaggerFromRoutes(r)(c)
				return
			}
			c.Header("Content-Type", "application/json")
			c.String(http.StatusOK, doc)
			return
		}
		ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json"))(c)
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = "9000"
	}
	portInt, err := strconv.Atoi(port)
	if err != nil {
		log.Fatalf("Invalid PORT environment variable: %s. Must be a number.", port)
	}
	if portInt < 0 || portInt > 65535 {
		log.Fatalf("Invalid PORT: %d. Must be between 0 and 65535.", portInt)
	}

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: r,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	<-quit
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cronCtx := cronScheduler.Stop()
	select {
	case <-cronCtx.Done():
	case <-time.After(20 * time.Second):
		log.Println("Warning: cron jobs did not finish before shutdown timeout")
	}

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}
	log.Println("Server exiting")
}
