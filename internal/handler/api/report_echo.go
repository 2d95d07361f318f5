package api

import (
	"errors"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"VolScan/internal/domain/models"
	"VolScan/internal/usecase"
	xhttp "VolScan/pkg/http"
	xlogger "VolScan/pkg/logger"
	"VolScan/pkg/util"
)

// LatestReports exposes the most recently published report.
type LatestReports interface {
	Latest() (*models.Report, bool)
}

// ReportEchoHandler serves reports and triggers runs.
type ReportEchoHandler struct {
	logger *xlogger.Logger
	runner usecase.Runner
	latest LatestReports
}

func NewReportEchoHandler(logger *xlogger.Logger, runner usecase.Runner, latest LatestReports) *ReportEchoHandler {
	return &ReportEchoHandler{logger: logger, runner: runner, latest: latest}
}

func (h *ReportEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/report/latest", h.Latest)
	g.POST("/runs", h.Trigger)
}

// Latest returns the last published report.
func (h *ReportEchoHandler) Latest(c echo.Context) error {
	r, ok := h.latest.Latest()
	if !ok {
		return xhttp.AppErrorResponse(c, xhttp.NotFoundError("no report has been produced yet"))
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "private, max-age=15")
	return xhttp.SuccessResponse(c, r)
}

// Trigger runs the pipeline synchronously and returns the report.
func (h *ReportEchoHandler) Trigger(c echo.Context) error {
	req := &models.RunRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	rp := h.runParams(req)
	start := time.Now()
	report, err := h.runner.Run(c.Request().Context(), rp)
	if err != nil {
		h.logger.Error("run request failed",
			xlogger.Strings("tickers", req.Tickers),
			xlogger.String("date", req.Date),
			xlogger.Error(err),
		)
		return xhttp.AppErrorResponse(c, runError(err))
	}
	h.logger.Info("run request finished",
		xlogger.String("run_id", report.RunID),
		xlogger.Duration("took", time.Since(start)),
	)
	return xhttp.CreatedResponse(c, report)
}

func (h *ReportEchoHandler) runParams(req *models.RunRequest) usecase.RunParams {
	params := h.runner.Params()
	if req.TopN > 0 {
		params.TopN = req.TopN
	}
	if req.WeightGKYZ != nil {
		params.WeightGKYZ = *req.WeightGKYZ
	}
	if req.WeightCloseClose != nil {
		params.WeightCloseClose = *req.WeightCloseClose
	}

	rp := usecase.RunParams{Params: &params}
	if d, ok := util.ParseDate(req.Date); ok {
		rp.Date = d
	}
	for _, t := range req.Tickers {
		if t = strings.TrimSpace(t); t != "" {
			rp.Tickers = append(rp.Tickers, t)
		}
	}
	return rp
}

func runError(err error) *xhttp.AppError {
	switch {
	case errors.Is(err, models.ErrRunInProgress):
		return xhttp.ConflictError("a run is already in progress").WithError(err)
	case errors.Is(err, models.ErrNoTickers):
		return xhttp.BadRequestError("no tickers to scan").WithError(err)
	case errors.Is(err, models.ErrShapeMismatch):
		return xhttp.BadRequestError("realized volatility matrices are not aligned").WithError(err)
	default:
		return xhttp.InternalError("run failed").WithError(err)
	}
}
