package router

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/Omgp9308/timetable-scheduler/internal/handler"
	"github.com/Omgp9308/timetable-scheduler/internal/middleware"
	"github.com/Omgp9308/timetable-scheduler/internal/models"
	"github.com/Omgp9308/timetable-scheduler/internal/service"
	"github.com/Omgp9308/timetable-scheduler/pkg/config"
	"github.com/Omgp9308/timetable-scheduler/pkg/logger"
	corsmiddleware "github.com/Omgp9308/timetable-scheduler/pkg/middleware/cors"
	reqidmiddleware "github.com/Omgp9308/timetable-scheduler/pkg/middleware/requestid"
)

// Handlers groups every HTTP handler mounted by Setup.
type Handlers struct {
	Auth      *handler.AuthHandler
	Timetable *handler.TimetableHandler
	Catalog   *handler.CatalogHandler
	Export    *handler.ExportHandler
	User      *handler.UserHandler
	Metrics   *handler.MetricsHandler
}

// Setup builds the gin engine with global middleware and all routes.
func Setup(cfg *config.Config, h Handlers, tokens middleware.TokenValidator, metrics *service.MetricsService, logr *zap.Logger) *gin.Engine {
	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS))
	r.Use(middleware.Metrics(metrics))
	r.Use(middleware.WithResponseMeta())

	r.GET("/health", h.Metrics.Health)
	r.GET("/ready", h.Metrics.Ready)
	r.GET("/metrics", h.Metrics.Prometheus)
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	// auth
	api.POST("/auth/login", h.Auth.Login)
	api.POST("/auth/logout", h.Auth.Logout)
	api.GET("/auth/me", middleware.JWT(tokens), h.Auth.Me)

	// public viewer
	public := api.Group("/public")
	{
		public.GET("/timetable", h.Timetable.Published)
		public.GET("/filters", h.Timetable.Filters)
		public.POST("/timetable/export", h.Export.Export)
		public.GET("/exports/:token", h.Export.Download)
	}

	staff := []models.UserRole{models.RoleAdmin, models.RoleHOD, models.RoleTeacher}
	reviewers := []models.UserRole{models.RoleAdmin, models.RoleHOD}

	admin := api.Group("/admin")
	admin.Use(middleware.JWT(tokens))
	{
		admin.POST("/generate", middleware.RequireRoles(staff...), h.Timetable.Generate)
		admin.POST("/generate-and-save", middleware.RequireRoles(staff...), middleware.Audit(logr, "timetable.generate_and_save"), h.Timetable.GenerateAndSave)
		admin.GET("/drafts", middleware.RequireRoles(staff...), h.Timetable.ListDrafts)
		admin.GET("/timetables/:id", middleware.RequireRoles(staff...), h.Timetable.GetDraft)
		admin.POST("/timetables/:id/submit", middleware.RequireRoles(staff...), middleware.Audit(logr, "timetable.submit"), h.Timetable.Submit)
		admin.POST("/submit-for-approval/:id", middleware.RequireRoles(staff...), middleware.Audit(logr, "timetable.submit"), h.Timetable.Submit)

		admin.GET("/all-data", middleware.RequireRoles(staff...), h.Catalog.AllData)
		admin.GET("/stats", middleware.RequireRoles(staff...), h.Catalog.Stats)

		// subjects and batches are open to teachers; faculty and rooms are not
		mountCatalog(admin, service.CatalogSubjects, "subject", h.Catalog.CreateSubject, h.Catalog, logr, staff)
		mountCatalog(admin, service.CatalogBatches, "batch", h.Catalog.CreateBatch, h.Catalog, logr, staff)
		mountCatalog(admin, service.CatalogFaculty, "faculty", h.Catalog.CreateFaculty, h.Catalog, logr, reviewers)
		mountCatalog(admin, service.CatalogRooms, "room", h.Catalog.CreateRoom, h.Catalog, logr, reviewers)

		admin.GET("/departments", middleware.RequireRoles(staff...), h.Catalog.ListDepartments)
		admin.POST("/departments", middleware.RequireRoles(models.RoleAdmin), middleware.Audit(logr, "department.create"), h.Catalog.CreateDepartment)
		admin.GET("/users", middleware.RequireRoles(models.RoleAdmin), h.User.List)
		admin.POST("/users", middleware.RequireRoles(models.RoleAdmin), middleware.Audit(logr, "user.create"), h.User.Create)
	}

	hod := api.Group("/hod")
	hod.Use(middleware.JWT(tokens), middleware.RequireRoles(reviewers...))
	{
		hod.GET("/pending", h.Timetable.ListPending)
		hod.POST("/timetables/:id/approve", middleware.Audit(logr, "timetable.approve"), h.Timetable.Approve)
		hod.POST("/timetables/:id/reject", middleware.Audit(logr, "timetable.reject"), h.Timetable.Reject)
		hod.POST("/approve/:id", middleware.Audit(logr, "timetable.approve"), h.Timetable.Approve)
		hod.POST("/reject/:id", middleware.Audit(logr, "timetable.reject"), h.Timetable.Reject)
	}

	return r
}

// mountCatalog registers the REST routes of one catalog kind plus the
// add-<name>/delete-<name> aliases older clients call.
func mountCatalog(g *gin.RouterGroup, kind, name string, create gin.HandlerFunc, h *handler.CatalogHandler, logr *zap.Logger, roles []models.UserRole) {
	guard := middleware.RequireRoles(roles...)
	remove := h.Delete(kind)

	g.POST("/"+kind, guard, middleware.Audit(logr, name+".create"), create)
	g.DELETE("/"+kind+"/:id", guard, middleware.Audit(logr, name+".delete"), remove)
	g.POST("/add-"+name, guard, middleware.Audit(logr, name+".create"), create)
	g.DELETE("/delete-"+name+"/:id", guard, middleware.Audit(logr, name+".delete"), remove)
}
