package scheduler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"bitbucket.org/saluddigitalcl/farmacia_backend/cenabast"
	"bitbucket.org/saluddigitalcl/farmacia_backend/config"
	"bitbucket.org/saluddigitalcl/farmacia_backend/models"
	"github.com/bsm/redislock"
	"github.com/sirupsen/logrus"
)

const tickLockKey = "Lock:SchedulerTick"

// errNoEligibleRows marks an empty selection after the fallback-date retry.
// A quiet day is an informational zero-item success, not a task failure.
var errNoEligibleRows = errors.New("sin elementos elegibles")

// Summary is what one task execution produced, mirrored into the
// execution log row.
type Summary struct {
	TaskId     *uint  `json:"task_id,omitempty"`
	Kind       string `json:"kind"`
	Status     string `json:"status"`
	ItemsSent  int    `json:"items_sent"`
	ItemsError int    `json:"items_error"`
	Message    string `json:"message"`
}

// Runner executes scheduler tasks against the broker. The clock is
// injectable so schedule math stays testable.
type Runner struct {
	client *cenabast.Client
	tokens *cenabast.TokenManager
	logger *logrus.Logger
	now    func() time.Time
}

func NewRunner() *Runner {
	client, tokens := cenabast.Broker()
	return &Runner{
		client: client,
		tokens: tokens,
		logger: config.GetLogger(),
		now:    time.Now,
	}
}

func (r *Runner) openLog(ctx context.Context, task models.SchedulerTask, mode string, username string) *models.TaskExecutionLog {
	entry := &models.TaskExecutionLog{
		Kind:     task.Kind,
		Mode:     mode,
		Status:   models.ExecStatusRunning,
		Username: username,
	}
	if task.ID != 0 {
		id := task.ID
		entry.TaskId = &id
	}
	if err := config.GetDB().WithContext(ctx).Create(entry).Error; err != nil {
		config.LogError(r.logger, "scheduler", "openLog", "create execution log", nil, err)
	}
	return entry
}

func (r *Runner) closeLog(ctx context.Context, entry *models.TaskExecutionLog, status string, sent int, failed int, message string, response interface{}) {
	finished := r.now()
	entry.Status = status
	entry.FinishedAt = &finished
	entry.ItemsSent = sent
	entry.ItemsError = failed
	entry.Message = message
	if response != nil {
		if raw, err := json.Marshal(response); err == nil {
			entry.ResponseJSON = raw
		}
	}
	if entry.ID == 0 {
		return
	}
	if err := config.GetDB().WithContext(ctx).Save(entry).Error; err != nil {
		config.LogError(r.logger, "scheduler", "closeLog", "update execution log", nil, err)
	}
}

// ExecuteTask runs one task end to end and records the outcome. The broker
// is never contacted without a token: a failed token acquisition is a
// terminal error by itself.
func (r *Runner) ExecuteTask(ctx context.Context, task models.SchedulerTask, mode string, username string) Summary {
	entry := r.openLog(ctx, task, mode, username)
	summary := Summary{TaskId: entry.TaskId, Kind: task.Kind}

	info, err := r.tokens.GetValidToken(ctx, cenabast.TokenOptions{AllowRefresh: true, AllowFake: true})
	if err == nil && info == nil {
		err = errors.New("sin token CENABAST disponible")
	}
	if err != nil {
		summary.Status = models.ExecStatusError
		summary.ItemsError = 1
		summary.Message = "No se pudo obtener token: " + err.Error()
		r.closeLog(ctx, entry, summary.Status, 0, 1, summary.Message, nil)
		return summary
	}

	var sent int
	var outcome cenabast.Outcome
	var hardErrors []string
	switch task.Kind {
	case models.TaskKindStock:
		sent, outcome, err = r.runStock(ctx, task, info.Token)
	case models.TaskKindMovementIn:
		sent, outcome, hardErrors, err = r.runMovement(ctx, task, models.MovementIn, info.Token)
	case models.TaskKindMovementOut:
		sent, outcome, hardErrors, err = r.runMovement(ctx, task, models.MovementOut, info.Token)
	case models.TaskKindRules:
		sent, outcome, err = r.runRules(ctx, task, info.Token)
	default:
		err = fmt.Errorf("tipo de tarea desconocido: %s", task.Kind)
	}

	switch {
	case errors.Is(err, errNoEligibleRows):
		summary.Status = models.ExecStatusCompleted
		summary.Message = err.Error()
		r.closeLog(ctx, entry, summary.Status, 0, 0, summary.Message, nil)
	case len(hardErrors) > 0:
		summary.Status = models.ExecStatusError
		summary.ItemsError = len(hardErrors)
		summary.Message = fmt.Sprintf("Validación fallida: %d producto(s) con errores", len(hardErrors))
		r.closeLog(ctx, entry, summary.Status, 0, len(hardErrors), summary.Message, hardErrors)
	case err != nil:
		summary.Status = models.ExecStatusError
		summary.ItemsError = 1
		summary.Message = err.Error()
		r.closeLog(ctx, entry, summary.Status, 0, 1, summary.Message, nil)
	case !outcome.OK():
		classified := cenabast.Classify(outcome)
		summary.Status = models.ExecStatusError
		summary.ItemsError = sent
		summary.Message = fmt.Sprintf("[%s] %s", classified.Category, classified.Message)
		r.closeLog(ctx, entry, summary.Status, 0, sent, summary.Message, classified)
		r.audit(ctx, username, task.Kind, false, summary.Message)
	default:
		summary.Status = models.ExecStatusCompleted
		summary.ItemsSent = sent
		summary.Message = fmt.Sprintf("%d elemento(s) informados", sent)
		r.closeLog(ctx, entry, summary.Status, sent, 0, summary.Message, outcome.Envelope)
		r.audit(ctx, username, task.Kind, true, summary.Message)
	}
	return summary
}

func (r *Runner) audit(ctx context.Context, username string, kind string, ok bool, detail string) {
	var action string
	switch kind {
	case models.TaskKindStock:
		action = models.AuditStockReportOK
		if !ok {
			action = models.AuditStockReportError
		}
	case models.TaskKindMovementIn, models.TaskKindMovementOut:
		action = models.AuditMovementReportOK
		if !ok {
			action = models.AuditMovementReportErr
		}
	case models.TaskKindRules:
		action = models.AuditRulesReportOK
		if !ok {
			action = models.AuditRulesReportError
		}
	default:
		return
	}
	models.CreateAudit(ctx, username, action, detail)
}

func (r *Runner) runStock(ctx context.Context, task models.SchedulerTask, token string) (int, cenabast.Outcome, error) {
	date := r.now()
	items, err := cenabast.SelectStockCandidates(ctx, date, config.StockStrictGenericFilter())
	if err != nil {
		return 0, cenabast.Outcome{}, err
	}
	if len(items) == 0 {
		latest, found, err := cenabast.LatestStockDate(ctx)
		if err != nil {
			return 0, cenabast.Outcome{}, err
		}
		if !found {
			return 0, cenabast.Outcome{}, fmt.Errorf("%w: no hay existencias registradas para informar", errNoEligibleRows)
		}
		date = latest
		items, err = cenabast.SelectStockCandidates(ctx, date, config.StockStrictGenericFilter())
		if err != nil {
			return 0, cenabast.Outcome{}, err
		}
	}
	payload := cenabast.BuildStockPayload(task.RelationId, date, items)
	return len(payload.StockDetalle), r.client.InformStock(ctx, token, payload), nil
}

func (r *Runner) runMovement(ctx context.Context, task models.SchedulerTask, direction string, token string) (int, cenabast.Outcome, []string, error) {
	date := r.now()
	rows, _, err := cenabast.SelectMovementCandidates(ctx, date, direction)
	if err != nil {
		return 0, cenabast.Outcome{}, nil, err
	}
	if len(rows) == 0 {
		// Fall back once to the most recent day that has eligible rows,
		// so a quiet day does not silently skip the report.
		latest, found, err := cenabast.LatestMovementDate(ctx, date, direction)
		if err != nil {
			return 0, cenabast.Outcome{}, nil, err
		}
		if !found {
			return 0, cenabast.Outcome{}, nil, fmt.Errorf("%w: no hay movimientos %s pendientes de informar", errNoEligibleRows, direction)
		}
		date = latest
		rows, _, err = cenabast.SelectMovementCandidates(ctx, date, direction)
		if err != nil {
			return 0, cenabast.Outcome{}, nil, err
		}
	}

	purchaseType := task.PurchaseType
	payload, hardErrors, warnings := cenabast.BuildMovementPayload(task.RelationId, date, direction, purchaseType, rows)
	for _, w := range warnings {
		r.logger.WithFields(logrus.Fields{"module": "scheduler", "kind": task.Kind}).Warn(w)
	}
	if len(hardErrors) > 0 {
		return 0, cenabast.Outcome{}, hardErrors, nil
	}

	outcome := r.client.InformMovement(ctx, token, payload)
	if outcome.OK() {
		ids := make([]uint, 0, len(rows))
		for _, row := range rows {
			ids = append(ids, row.ID)
		}
		if err := cenabast.MarkMovementsReported(ctx, ids); err != nil {
			config.LogError(r.logger, "scheduler", "runMovement", "mark reported", nil, err)
		}
	}
	return len(payload.MovimientoDetalle), outcome, nil, nil
}

func (r *Runner) runRules(ctx context.Context, task models.SchedulerTask, token string) (int, cenabast.Outcome, error) {
	requester := os.Getenv("CENABAST_RUT_SOLICITANTE")
	if requester == "" {
		return 0, cenabast.Outcome{}, errors.New("CENABAST_RUT_SOLICITANTE no configurado")
	}

	var rules []models.MinMaxRule
	if err := config.GetDB().WithContext(ctx).Order("code").Find(&rules).Error; err != nil {
		return 0, cenabast.Outcome{}, err
	}
	if len(rules) == 0 {
		return 0, cenabast.Outcome{}, errors.New("no hay reglas de stock mínimo/máximo definidas")
	}

	wire := make([]cenabast.StockRule, 0, len(rules))
	for _, rule := range rules {
		wire = append(wire, cenabast.StockRule{
			RutSolicitante: requester,
			IdRelacion:     task.RelationId,
			CodigoProducto: rule.Code,
			StockMinimo:    rule.MinStock,
			StockMaximo:    rule.MaxStock,
		})
	}
	return len(wire), r.client.SetStockRules(ctx, token, wire), nil
}

// RunDueTasks executes every active task whose next run is due. A short
// redis lock keeps overlapping ticks (two replicas, or cron firing while a
// manual run is in flight) from double-reporting.
func (r *Runner) RunDueTasks(ctx context.Context) ([]Summary, error) {
	lock, err := config.GetRedisLock().Obtain(ctx, tickLockKey, 5*time.Minute, nil)
	if errors.Is(err, redislock.ErrNotObtained) {
		r.logger.WithField("module", "scheduler").Info("tick already running elsewhere, skipping")
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer func() { _ = lock.Release(ctx) }()

	now := r.now()
	var due []models.SchedulerTask
	err = config.GetDB().WithContext(ctx).
		Where("active = ? AND next_run_at IS NOT NULL AND next_run_at <= ?", true, now).
		Order("next_run_at").
		Find(&due).Error
	if err != nil {
		return nil, err
	}

	summaries := make([]Summary, 0, len(due))
	for _, task := range due {
		summaries = append(summaries, r.ExecuteTask(ctx, task, models.TriggerModeAutomatic, "system"))

		// The next run always moves forward, even after a failed
		// execution, so a broken task cannot fire on every tick.
		next, err := ComputeNextRun(r.now(), task.RunTime, task.Weekdays)
		updates := map[string]interface{}{"last_run_at": r.now()}
		if err == nil {
			updates["next_run_at"] = next
		} else {
			config.LogError(r.logger, "scheduler", "RunDueTasks", "compute next run for task", task.Name, err)
		}
		if err := config.GetDB().WithContext(ctx).Model(&models.SchedulerTask{}).
			Where("id = ?", task.ID).Updates(updates).Error; err != nil {
			config.LogError(r.logger, "scheduler", "RunDueTasks", "persist next run", task.Name, err)
		}
	}
	return summaries, nil
}
