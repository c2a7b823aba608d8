package cenabast

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"bitbucket.org/saluddigitalcl/farmacia_backend/config"
	"bitbucket.org/saluddigitalcl/farmacia_backend/models"
	"bitbucket.org/saluddigitalcl/farmacia_backend/utils"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"
)

var validate = validator.New()

var (
	brokerOnce sync.Once
	broker     *Client
	tokens     *TokenManager
)

// Broker returns the process-wide client and token manager. The scheduler
// shares them so there is exactly one token lifecycle in the process.
func Broker() (*Client, *TokenManager) {
	brokerOnce.Do(func() {
		broker = NewClient()
		tokens = NewTokenManager(broker)
	})
	return broker, tokens
}

func requestUser(c *gin.Context) string {
	username, _ := utils.GetUsernameFromContext(c.Request.Context())
	return username
}

// ---------------------------------------------------------------------------
// Dashboard session

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

func LoginHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req loginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}
		if err := validate.Struct(req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "username and password are required"})
			return
		}

		var user models.User
		err := config.GetDB().WithContext(c.Request.Context()).
			Where("username = ? AND active = ?", strings.TrimSpace(req.Username), true).
			Take(&user).Error
		if err != nil || utils.ComparePassword(user.PasswordHash, req.Password) != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": utils.ErrorUnauthorized.Error()})
			return
		}

		token, err := utils.JwtGenerate(user.ID, user.Username, user.Role)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		if err := config.SetRedisValue("Token:"+token, user.Username, 8*time.Hour); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"token": token,
			"user":  gin.H{"id": user.ID, "username": user.Username, "name": user.Name, "role": user.Role},
		})
	}
}

func LogoutHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, _ := utils.GetTokenFromContext(c.Request.Context())
		if token != "" {
			_ = config.RemoveRedisKey("Token:" + token)
		}
		c.JSON(http.StatusOK, gin.H{"success": true})
	}
}

// ---------------------------------------------------------------------------
// Broker auth

func TokenStatusHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		_, mgr := Broker()
		status, err := mgr.Status(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, status)
	}
}

func BrokerLoginHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		_, mgr := Broker()
		info, err := mgr.GetValidToken(c.Request.Context(), TokenOptions{
			ForceNew:     true,
			AllowRefresh: false,
			AllowFake:    true,
		})
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		if info == nil {
			c.JSON(http.StatusBadGateway, gin.H{"error": "no se pudo obtener token de CENABAST"})
			return
		}
		models.CreateAudit(c.Request.Context(), requestUser(c), models.AuditBrokerLogin,
			fmt.Sprintf("source=%s, expires_at=%s", info.Source, info.ExpiresAt.Format(time.RFC3339)))
		c.JSON(http.StatusOK, gin.H{"source": info.Source, "expires_at": info.ExpiresAt})
	}
}

func BrokerRefreshHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		_, mgr := Broker()
		info, err := mgr.GetValidToken(c.Request.Context(), TokenOptions{
			ForceNew:     true,
			AllowRefresh: true,
			AllowFake:    false,
		})
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		if info == nil {
			c.JSON(http.StatusBadGateway, gin.H{"error": "no se pudo refrescar el token"})
			return
		}
		models.CreateAudit(c.Request.Context(), requestUser(c), models.AuditBrokerTokenRefresh,
			fmt.Sprintf("source=%s, expires_at=%s", info.Source, info.ExpiresAt.Format(time.RFC3339)))
		c.JSON(http.StatusOK, gin.H{"source": info.Source, "expires_at": info.ExpiresAt})
	}
}

// ---------------------------------------------------------------------------
// Stock

type stockReportRequest struct {
	FechaStock string `json:"fecha_stock" validate:"required,datetime=2006-01-02"`
	IdRelacion int    `json:"id_relacion" validate:"required,gt=0"`
	// Optional explicit detail; when present it is sent as-is instead of the
	// selected snapshot rows.
	StockDetalle []StockDetail `json:"stock_detalle" validate:"omitempty,dive"`
}

func parseDateQuery(c *gin.Context, key string) (time.Time, bool) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return time.Now(), true
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("%s: formato esperado YYYY-MM-DD", key)})
		return time.Time{}, false
	}
	return t, true
}

func StockPreviewHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		date, ok := parseDateQuery(c, "fecha")
		if !ok {
			return
		}
		strict := config.StockStrictGenericFilter()
		if v := strings.TrimSpace(c.Query("estricto")); v != "" {
			strict = v == "1" || strings.EqualFold(v, "true")
		}
		items, err := SelectStockCandidates(c.Request.Context(), date, strict)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"fecha":    FormatDate(date),
			"estricto": strict,
			"total":    len(items),
			"detalle":  TransformStockItems(items),
		})
	}
}

func StockReportHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req stockReportRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}
		if err := validate.Struct(req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		date, _ := time.Parse("2006-01-02", req.FechaStock)
		username := requestUser(c)

		payload := StockPayload{
			IdRelacion:   req.IdRelacion,
			FechaStock:   req.FechaStock,
			StockDetalle: req.StockDetalle,
		}
		if len(payload.StockDetalle) == 0 {
			items, err := SelectStockCandidates(c.Request.Context(), date, config.StockStrictGenericFilter())
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}
			if len(items) == 0 {
				c.JSON(http.StatusUnprocessableEntity, gin.H{
					"error": fmt.Sprintf("No hay existencias para la fecha %s", req.FechaStock),
				})
				return
			}
			payload = BuildStockPayload(req.IdRelacion, date, items)
		}

		client, mgr := Broker()
		info, err := mgr.GetValidToken(c.Request.Context(), TokenOptions{AllowRefresh: true, AllowFake: true})
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		if info == nil {
			c.JSON(http.StatusBadGateway, gin.H{"error": "sin token CENABAST disponible"})
			return
		}

		outcome := client.InformStock(c.Request.Context(), info.Token, payload)
		if !outcome.OK() {
			classified := Classify(outcome)
			models.CreateAudit(c.Request.Context(), username, models.AuditStockReportError,
				fmt.Sprintf("fecha=%s, tipo=%s, mensaje=%s", req.FechaStock, classified.Category, classified.Message))
			c.JSON(http.StatusBadGateway, gin.H{"error": classified, "enviados": 0})
			return
		}

		models.CreateAudit(c.Request.Context(), username, models.AuditStockReportOK,
			fmt.Sprintf("fecha=%s, productos=%d", req.FechaStock, len(payload.StockDetalle)))
		c.JSON(http.StatusOK, gin.H{
			"fecha_stock": req.FechaStock,
			"enviados":    len(payload.StockDetalle),
			"respuesta":   outcome.Envelope,
		})
	}
}

// ---------------------------------------------------------------------------
// Movements

type movementReportRequest struct {
	FechaMovimiento string `json:"fecha_movimiento" validate:"required,datetime=2006-01-02"`
	TipoMovimiento  string `json:"tipo_movimiento" validate:"required,oneof=E S"`
	TipoCompra      string `json:"tipo_compra" validate:"omitempty,oneof=C M"`
	IdRelacion      int    `json:"id_relacion" validate:"required,gt=0"`
	// Optional explicit detail; when present it replaces the ledger selection
	// but still goes through hard-rule validation.
	MovimientoDetalle []MovementDetail `json:"movimiento_detalle" validate:"omitempty,dive"`
}

func MovementPreviewHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		date, ok := parseDateQuery(c, "fecha")
		if !ok {
			return
		}
		direction := strings.ToUpper(strings.TrimSpace(c.Query("tipo")))
		if direction != models.MovementIn && direction != models.MovementOut {
			c.JSON(http.StatusBadRequest, gin.H{"error": "tipo: valores válidos E o S"})
			return
		}

		rows, diag, err := SelectMovementCandidates(c.Request.Context(), date, direction)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		details, errores, warnings := TransformMovements(rows)
		c.JSON(http.StatusOK, gin.H{
			"fecha":       FormatDate(date),
			"tipo":        direction,
			"diagnostico": diag,
			"detalle":     details,
			"errores":     errores,
			"warnings":    warnings,
		})
	}
}

func MovementReportHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req movementReportRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}
		if err := validate.Struct(req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		date, _ := time.Parse("2006-01-02", req.FechaMovimiento)
		username := requestUser(c)

		var payload MovementPayload
		var warnings []string
		var rows []models.Movement
		if len(req.MovimientoDetalle) > 0 {
			var errores []string
			for _, d := range req.MovimientoDetalle {
				errores = append(errores, ValidateMovementDetail(d)...)
			}
			if len(errores) > 0 {
				c.JSON(http.StatusUnprocessableEntity, gin.H{"errores": errores})
				return
			}
			warnings = DetailWarnings(req.MovimientoDetalle)
			purchaseType := req.TipoCompra
			if purchaseType == "" {
				purchaseType = "C"
			}
			payload = MovementPayload{
				IdRelacion:        req.IdRelacion,
				FechaMovimiento:   req.FechaMovimiento,
				TipoMovimiento:    req.TipoMovimiento,
				TipoCompra:        purchaseType,
				MovimientoDetalle: req.MovimientoDetalle,
			}
		} else {
			var err error
			rows, _, err = SelectMovementCandidates(c.Request.Context(), date, req.TipoMovimiento)
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}
			if len(rows) == 0 {
				c.JSON(http.StatusUnprocessableEntity, gin.H{
					"error": fmt.Sprintf("No hay movimientos %s para la fecha %s", req.TipoMovimiento, req.FechaMovimiento),
				})
				return
			}

			var errores []string
			payload, errores, warnings = BuildMovementPayload(req.IdRelacion, date, req.TipoMovimiento, req.TipoCompra, rows)
			if len(errores) > 0 {
				c.JSON(http.StatusUnprocessableEntity, gin.H{"errores": errores, "warnings": warnings})
				return
			}
		}

		client, mgr := Broker()
		info, err := mgr.GetValidToken(c.Request.Context(), TokenOptions{AllowRefresh: true, AllowFake: true})
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		if info == nil {
			c.JSON(http.StatusBadGateway, gin.H{"error": "sin token CENABAST disponible"})
			return
		}

		outcome := client.InformMovement(c.Request.Context(), info.Token, payload)
		if !outcome.OK() {
			classified := Classify(outcome)
			models.CreateAudit(c.Request.Context(), username, models.AuditMovementReportErr,
				fmt.Sprintf("fecha=%s, tipo=%s, categoria=%s", req.FechaMovimiento, req.TipoMovimiento, classified.Category))
			c.JSON(http.StatusBadGateway, gin.H{"error": classified, "enviados": 0})
			return
		}

		ids := make([]uint, 0, len(rows))
		for _, row := range rows {
			ids = append(ids, row.ID)
		}
		if err := MarkMovementsReported(c.Request.Context(), ids); err != nil {
			config.LogError(config.GetLogger(), "cenabast", "MovementReportHandler", "mark reported", nil, err)
		}

		models.CreateAudit(c.Request.Context(), username, models.AuditMovementReportOK,
			fmt.Sprintf("fecha=%s, tipo=%s, items=%d", req.FechaMovimiento, req.TipoMovimiento, len(payload.MovimientoDetalle)))
		c.JSON(http.StatusOK, gin.H{
			"fecha_movimiento": req.FechaMovimiento,
			"tipo_movimiento":  req.TipoMovimiento,
			"enviados":         len(payload.MovimientoDetalle),
			"warnings":         warnings,
			"respuesta":        outcome.Envelope,
		})
	}
}

// ---------------------------------------------------------------------------
// Min/max rules

type ruleInput struct {
	Codigo      string `json:"codigo" validate:"required"`
	CodigoZgen  string `json:"codigo_zgen"`
	StockMinimo int    `json:"stock_minimo" validate:"gte=0"`
	StockMaximo int    `json:"stock_maximo" validate:"gte=0"`
}

type rulesReportRequest struct {
	RutSolicitante string      `json:"rut_solicitante" validate:"required"`
	IdRelacion     int         `json:"id_relacion" validate:"required,gt=0"`
	Reglas         []ruleInput `json:"reglas" validate:"required,min=1,dive"`
}

func RulesListHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var rules []models.MinMaxRule
		if err := config.GetDB().WithContext(c.Request.Context()).Order("code").Find(&rules).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"total": len(rules), "reglas": rules})
	}
}

func RulesReportHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req rulesReportRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}
		if err := validate.Struct(req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		for _, rule := range req.Reglas {
			if rule.StockMinimo > rule.StockMaximo {
				c.JSON(http.StatusBadRequest, gin.H{
					"error": fmt.Sprintf("Producto %s: stock_minimo no puede superar stock_maximo", rule.Codigo),
				})
				return
			}
		}
		username := requestUser(c)

		wire := make([]StockRule, 0, len(req.Reglas))
		for _, rule := range req.Reglas {
			wire = append(wire, StockRule{
				RutSolicitante: req.RutSolicitante,
				IdRelacion:     req.IdRelacion,
				CodigoProducto: rule.Codigo,
				StockMinimo:    rule.StockMinimo,
				StockMaximo:    rule.StockMaximo,
			})
		}

		client, mgr := Broker()
		info, err := mgr.GetValidToken(c.Request.Context(), TokenOptions{AllowRefresh: true, AllowFake: true})
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		if info == nil {
			c.JSON(http.StatusBadGateway, gin.H{"error": "sin token CENABAST disponible"})
			return
		}

		outcome := client.SetStockRules(c.Request.Context(), info.Token, wire)
		if !outcome.OK() {
			classified := Classify(outcome)
			models.CreateAudit(c.Request.Context(), username, models.AuditRulesReportError,
				fmt.Sprintf("reglas=%d, categoria=%s", len(wire), classified.Category))
			c.JSON(http.StatusBadGateway, gin.H{"error": classified})
			return
		}

		// Mirror accepted rules locally so the dashboard can show them without
		// asking the broker.
		db := config.GetDB().WithContext(c.Request.Context())
		for _, rule := range req.Reglas {
			local := models.MinMaxRule{
				Code:        rule.Codigo,
				GenericCode: rule.CodigoZgen,
				MinStock:    rule.StockMinimo,
				MaxStock:    rule.StockMaximo,
				RelationId:  req.IdRelacion,
			}
			var existing models.MinMaxRule
			err := db.Where("code = ?", rule.Codigo).Take(&existing).Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				err = db.Create(&local).Error
			} else if err == nil {
				err = db.Model(&existing).Updates(map[string]interface{}{
					"generic_code": rule.CodigoZgen,
					"min_stock":    rule.StockMinimo,
					"max_stock":    rule.StockMaximo,
					"relation_id":  req.IdRelacion,
				}).Error
			}
			if err != nil {
				config.LogError(config.GetLogger(), "cenabast", "RulesReportHandler", "mirror rule "+rule.Codigo, nil, err)
			}
		}

		models.CreateAudit(c.Request.Context(), username, models.AuditRulesReportOK,
			fmt.Sprintf("reglas=%d, id_relacion=%d", len(wire), req.IdRelacion))
		c.JSON(http.StatusOK, gin.H{"enviadas": len(wire), "respuesta": outcome.Envelope})
	}
}

// ---------------------------------------------------------------------------
// Diagnostics, catalog, health

func DiagnosticsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		date, ok := parseDateQuery(c, "fecha")
		if !ok {
			return
		}
		ctx := c.Request.Context()

		stockDiag, err := DiagnoseStock(ctx, date)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		_, inDiag, err := SelectMovementCandidates(ctx, date, models.MovementIn)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		_, outDiag, err := SelectMovementCandidates(ctx, date, models.MovementOut)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"fecha":              FormatDate(date),
			"stock":              stockDiag,
			"movimiento_entrada": inDiag,
			"movimiento_salida":  outDiag,
		})
	}
}

func ProductsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		page, _ := strconv.Atoi(c.DefaultQuery("pagina", "1"))
		perPage, _ := strconv.Atoi(c.DefaultQuery("porPagina", "50"))
		if page < 1 {
			page = 1
		}
		if perPage < 1 || perPage > 200 {
			perPage = 50
		}

		client, mgr := Broker()
		info, err := mgr.GetValidToken(c.Request.Context(), TokenOptions{AllowRefresh: true, AllowFake: true})
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		if info == nil {
			c.JSON(http.StatusBadGateway, gin.H{"error": "sin token CENABAST disponible"})
			return
		}

		outcome := client.GetProducts(c.Request.Context(), info.Token, page, perPage)
		if !outcome.OK() {
			c.JSON(http.StatusBadGateway, gin.H{"error": Classify(outcome)})
			return
		}
		c.JSON(http.StatusOK, outcome.Envelope)
	}
}

// brokerProduct is the catalog entry shape the products channel returns.
type brokerProduct struct {
	Codigo         string `json:"codigo"`
	CodigoGenerico int    `json:"codigo_generico"`
	Descripcion    string `json:"descripcion"`
}

type brokerProductPage struct {
	Elementos     []brokerProduct `json:"elementos"`
	TotalPaginas  int             `json:"totalPaginas"`
	PaginaActual  int             `json:"paginaActual"`
	TotalRegistro int             `json:"totalRegistros"`
}

func CatalogListHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		query := config.GetDB().WithContext(c.Request.Context()).Order("code")
		if q := strings.TrimSpace(c.Query("q")); q != "" {
			like := "%" + q + "%"
			query = query.Where("code LIKE ? OR name LIKE ?", like, like)
		}
		var products []models.CatalogProduct
		if err := query.Limit(500).Find(&products).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"total": len(products), "productos": products})
	}
}

// CatalogSyncHandler walks the broker's paginated catalog and upserts it into
// the local mirror. Bounded page walk; a malformed totalPaginas cannot loop it.
func CatalogSyncHandler() gin.HandlerFunc {
	const maxPages = 200
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		client, mgr := Broker()
		info, err := mgr.GetValidToken(ctx, TokenOptions{AllowRefresh: true, AllowFake: true})
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		if info == nil {
			c.JSON(http.StatusBadGateway, gin.H{"error": "sin token CENABAST disponible"})
			return
		}

		db := config.GetDB().WithContext(ctx)
		now := time.Now()
		synced := 0
		for page := 1; page <= maxPages; page++ {
			outcome := client.GetProducts(ctx, info.Token, page, 100)
			if !outcome.OK() {
				c.JSON(http.StatusBadGateway, gin.H{"error": Classify(outcome), "sincronizados": synced})
				return
			}
			var pageData brokerProductPage
			if err := json.Unmarshal(outcome.Envelope.Result, &pageData); err != nil || len(pageData.Elementos) == 0 {
				break
			}
			for _, p := range pageData.Elementos {
				code := strings.TrimSpace(p.Codigo)
				if code == "" {
					continue
				}
				row := models.CatalogProduct{
					Code:        code,
					GenericCode: p.CodigoGenerico,
					Name:        p.Descripcion,
					Active:      true,
					SyncedAt:    now,
				}
				err := db.Where("code = ?", code).
					Assign(map[string]interface{}{
						"generic_code": p.CodigoGenerico,
						"name":         p.Descripcion,
						"active":       true,
						"synced_at":    now,
					}).
					FirstOrCreate(&row).Error
				if err != nil {
					config.LogError(config.GetLogger(), "cenabast", "CatalogSyncHandler", "upsert "+code, nil, err)
					continue
				}
				synced++
			}
			if pageData.TotalPaginas > 0 && page >= pageData.TotalPaginas {
				break
			}
		}

		c.JSON(http.StatusOK, gin.H{"sincronizados": synced})
	}
}

// BrokerHealthHandler always answers 200; broker unavailability must not take
// the dashboard down with it.
func BrokerHealthHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		client, mgr := Broker()
		channels := client.ChannelHealth(c.Request.Context())
		status, err := mgr.Status(c.Request.Context())
		tokenField := gin.H{"available": err == nil && status.HasToken && !status.IsExpired}
		if err != nil {
			tokenField["error"] = err.Error()
		}
		healthy := true
		for _, up := range channels {
			if !up {
				healthy = false
				break
			}
		}
		c.JSON(http.StatusOK, gin.H{
			"healthy":  healthy,
			"channels": channels,
			"token":    tokenField,
		})
	}
}
