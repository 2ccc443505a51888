package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"campus-registrar/backend/config"
	"campus-registrar/backend/internal/api/handler"
	"campus-registrar/backend/internal/api/middleware"
	"campus-registrar/backend/pkg/redis"
)

// Setup 初始化并返回 Gin 路由引擎
// rdb 为 nil 时写接口不限流；db 为 nil 时健康检查不探测数据库
func Setup(cfg *config.Config, h *handler.Handler, rdb *redis.Client, db *gorm.DB, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))
	r.Use(middleware.BodyLimit(cfg.Server.BodyLimit))

	// ── 健康检查 ──
	r.GET("/health", func(c *gin.Context) {
		status := gin.H{"status": "ok", "redis": rdb != nil}
		if db != nil {
			sqlDB, err := db.DB()
			if err != nil || sqlDB.PingContext(c.Request.Context()) != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "database": "unreachable"})
				return
			}
		}
		c.JSON(http.StatusOK, status)
	})

	// 写接口限流
	limited := middleware.RateLimit(rdb, cfg.Server.RateLimit.Limit, cfg.Server.RateLimit.Window, logger)

	// ── API v1 ──
	v1 := r.Group("/api/v1")
	{
		// 学期模块
		semesters := v1.Group("/semesters")
		{
			semesters.GET("", h.Semester.ListSemesters)
			semesters.GET("/current", h.Semester.GetCurrentSemester)
			semesters.GET("/:id", h.Semester.GetSemester)
			semesters.POST("", h.Semester.CreateSemester)
			semesters.PUT("/:id/activate", h.Semester.ActivateSemester)
		}

		// 教室模块（DELETE 为归档）
		rooms := v1.Group("/rooms")
		{
			rooms.GET("", h.Room.ListRooms)
			rooms.GET("/:id", h.Room.GetRoom)
			rooms.POST("", h.Room.CreateRoom)
			rooms.PUT("/:id", h.Room.UpdateRoom)
			rooms.DELETE("/:id", limited, h.Room.ArchiveRoom)
		}

		// 课程模块
		subjects := v1.Group("/subjects")
		{
			subjects.GET("", h.Subject.ListSubjects)
			subjects.GET("/:id", h.Subject.GetSubject)
			subjects.POST("", h.Subject.CreateSubject)
		}

		// 班级模块
		sections := v1.Group("/sections")
		{
			sections.GET("", h.Section.ListSections)
			sections.GET("/next-name", h.Section.NextSectionName)
			sections.POST("", h.Section.CreateSection)
			sections.POST("/bulk", limited, h.Section.BulkCreateSections)
			sections.DELETE("/:id", limited, h.Section.DeleteSection)
		}

		// 课表模块
		tt := v1.Group("/timetable")
		{
			tt.GET("/sections/:id/grid", h.Timetable.SectionGrid)
			tt.GET("/sections/:id/assignments", h.Timetable.Assignments)
			tt.GET("/rooms/:name/grid", h.Timetable.RoomGrid)
			tt.POST("/placements", limited, h.Timetable.Place)
			tt.DELETE("/slots/:id", limited, h.Timetable.RemoveSlot)
			tt.GET("/audit", h.Timetable.Audit)
		}

		// 导出模块
		export := v1.Group("/export")
		{
			export.GET("/timetable.xlsx", h.Export.ExportXLSX)
			export.GET("/timetable.ics", h.Export.ExportICS)
		}
	}

	return r
}
