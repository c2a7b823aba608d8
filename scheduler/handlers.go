package scheduler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"bitbucket.org/saluddigitalcl/farmacia_backend/config"
	"bitbucket.org/saluddigitalcl/farmacia_backend/models"
	"bitbucket.org/saluddigitalcl/farmacia_backend/utils"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"
)

var validate = validator.New()

type taskRequest struct {
	Name         string `json:"nombre" validate:"required"`
	Kind         string `json:"tipo" validate:"required,oneof=STOCK MOVIMIENTO_ENTRADA MOVIMIENTO_SALIDA REGLAS"`
	Active       *bool  `json:"activo"`
	RunTime      string `json:"hora_ejecucion" validate:"required"`
	Weekdays     string `json:"dias_semana"`
	RelationId   int    `json:"id_relacion" validate:"required,gt=0"`
	PurchaseType string `json:"tipo_compra" validate:"omitempty,oneof=C M"`
}

func (req *taskRequest) apply(task *models.SchedulerTask) error {
	task.Name = req.Name
	task.Kind = req.Kind
	task.RunTime = req.RunTime
	task.RelationId = req.RelationId
	if req.Weekdays != "" {
		task.Weekdays = req.Weekdays
	}
	if task.Weekdays == "" {
		task.Weekdays = "1,2,3,4,5"
	}
	task.PurchaseType = req.PurchaseType
	if task.PurchaseType == "" {
		task.PurchaseType = "C"
	}
	if req.Active != nil {
		task.Active = *req.Active
	}
	next, err := ComputeNextRun(time.Now(), task.RunTime, task.Weekdays)
	if err != nil {
		return err
	}
	task.NextRunAt = &next
	return nil
}

func TasksListHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var tasks []models.SchedulerTask
		if err := config.GetDB().WithContext(c.Request.Context()).Order("id").Find(&tasks).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"total": len(tasks), "tareas": tasks})
	}
}

func TaskCreateHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req taskRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}
		if err := validate.Struct(req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		task := models.SchedulerTask{Active: true}
		if err := req.apply(&task); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if err := config.GetDB().WithContext(c.Request.Context()).Create(&task).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusCreated, task)
	}
}

func TaskUpdateHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil || id <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
			return
		}
		var req taskRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}
		if err := validate.Struct(req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		db := config.GetDB().WithContext(c.Request.Context())
		var task models.SchedulerTask
		if err := db.Take(&task, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": utils.ErrorRecordNotFound.Error()})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		if err := req.apply(&task); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if err := db.Save(&task).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, task)
	}
}

func TaskDeleteHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil || id <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
			return
		}
		res := config.GetDB().WithContext(c.Request.Context()).Delete(&models.SchedulerTask{}, id)
		if res.Error != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": res.Error.Error()})
			return
		}
		if res.RowsAffected == 0 {
			c.JSON(http.StatusNotFound, gin.H{"error": "tarea no encontrada"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true})
	}
}

type executeRequest struct {
	TaskId       uint   `json:"id"`
	Kind         string `json:"tipo" validate:"omitempty,oneof=STOCK MOVIMIENTO_ENTRADA MOVIMIENTO_SALIDA REGLAS"`
	RelationId   int    `json:"id_relacion"`
	PurchaseType string `json:"tipo_compra" validate:"omitempty,oneof=C M"`
}

// TaskExecuteHandler runs a task right now, either an existing one by id or
// an ad-hoc descriptor that never touches the task table.
func TaskExecuteHandler(runner *Runner) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req executeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}
		if err := validate.Struct(req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		ctx := c.Request.Context()
		var task models.SchedulerTask
		if req.TaskId != 0 {
			if err := config.GetDB().WithContext(ctx).Take(&task, req.TaskId).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					c.JSON(http.StatusNotFound, gin.H{"error": "tarea no encontrada"})
					return
				}
				c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}
		} else {
			if req.Kind == "" || req.RelationId <= 0 {
				c.JSON(http.StatusBadRequest, gin.H{"error": "se requiere id de tarea, o tipo e id_relacion"})
				return
			}
			task = models.SchedulerTask{
				Kind:         req.Kind,
				RelationId:   req.RelationId,
				PurchaseType: req.PurchaseType,
			}
			if task.PurchaseType == "" {
				task.PurchaseType = "C"
			}
		}

		username, _ := utils.GetUsernameFromContext(ctx)
		if username == "" {
			username = "system"
		}
		summary := runner.ExecuteTask(ctx, task, models.TriggerModeManual, username)

		status := http.StatusOK
		if summary.Status == models.ExecStatusError {
			status = http.StatusBadGateway
		}
		c.JSON(status, summary)
	}
}

// CronHandler is the endpoint an external cron hits to fire due tasks.
func CronHandler(runner *Runner) gin.HandlerFunc {
	return func(c *gin.Context) {
		summaries, err := runner.RunDueTasks(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"ejecutadas": len(summaries), "resultados": summaries})
	}
}

func LogsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
		if err != nil || limit < 1 || limit > 500 {
			limit = 50
		}
		query := config.GetDB().WithContext(c.Request.Context()).Order("id desc").Limit(limit)
		if kind := c.Query("tipo"); kind != "" {
			query = query.Where("kind = ?", kind)
		}
		var logs []models.TaskExecutionLog
		if err := query.Find(&logs).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"total": len(logs), "ejecuciones": logs})
	}
}
