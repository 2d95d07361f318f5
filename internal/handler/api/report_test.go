package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"VolScan/internal/domain/models"
	"VolScan/internal/repository"
	"VolScan/internal/usecase"
	xhttp "VolScan/pkg/http"
	xlogger "VolScan/pkg/logger"
)

type fakeRunner struct {
	got usecase.RunParams
	err error
}

func (f *fakeRunner) Run(_ context.Context, rp usecase.RunParams) (*models.Report, error) {
	f.got = rp
	if f.err != nil {
		return nil, f.err
	}
	return &models.Report{RunID: "run-1", Date: rp.Date, Params: *rp.Params, Tickers: rp.Tickers}, nil
}

func (f *fakeRunner) Params() models.AnalysisParams { return models.DefaultAnalysisParams() }

func newServer(handlers ...xhttp.Handler) *xhttp.Server {
	return xhttp.NewServer(handlers, xhttp.WithRegistry(prometheus.NewRegistry()))
}

func do(s *xhttp.Server, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, req)
	return rec
}

func TestLatest_NotFoundThenReport(t *testing.T) {
	store := repository.NewLatestReportStore()
	s := newServer(NewReportEchoHandler(xlogger.Nop(), &fakeRunner{}, store))

	rec := do(s, http.MethodGet, "/api/report/latest", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "ERR_NOT_FOUND")

	require.NoError(t, store.Publish(context.Background(), &models.Report{RunID: "abc"}))
	rec = do(s, http.MethodGet, "/api/report/latest", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"run_id":"abc"`)
}

func TestTrigger_MapsRequestToRunParams(t *testing.T) {
	runner := &fakeRunner{}
	s := newServer(NewReportEchoHandler(xlogger.Nop(), runner, repository.NewLatestReportStore()))

	rec := do(s, http.MethodPost, "/api/runs", `{"date":"2024-06-03","weight_gkyz":0.5,"tickers":["AAPL"," MSFT"]}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rp := runner.got
	assert.Equal(t, time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC), rp.Date)
	assert.Equal(t, []string{"AAPL", "MSFT"}, rp.Tickers)
	require.NotNil(t, rp.Params)
	assert.Equal(t, 20, rp.Params.TopN)
	assert.Equal(t, 0.5, rp.Params.WeightGKYZ)
	assert.Equal(t, 0.4, rp.Params.WeightCloseClose)
	assert.Equal(t, 0.75, rp.Params.ThresholdPositive)
}

func TestTrigger_Validation(t *testing.T) {
	s := newServer(NewReportEchoHandler(xlogger.Nop(), &fakeRunner{}, repository.NewLatestReportStore()))

	rec := do(s, http.MethodPost, "/api/runs", `{"date":"June 3","top_n":1000,"weight_close_close":2}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `"field":"date"`)
	assert.Contains(t, body, `"field":"top_n"`)
	assert.Contains(t, body, `"field":"weight_close_close"`)
}

func TestTrigger_ErrorMapping(t *testing.T) {
	cases := []struct {
		err  error
		code int
	}{
		{models.ErrRunInProgress, http.StatusConflict},
		{models.ErrNoTickers, http.StatusBadRequest},
		{models.ErrShapeMismatch, http.StatusBadRequest},
		{context.DeadlineExceeded, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		s := newServer(NewReportEchoHandler(xlogger.Nop(), &fakeRunner{err: tc.err}, repository.NewLatestReportStore()))
		rec := do(s, http.MethodPost, "/api/runs", `{}`)
		assert.Equal(t, tc.code, rec.Code, tc.err.Error())
	}
}

func readMessage(t *testing.T, conn *websocket.Conn) wsMessage {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var msg wsMessage
	require.NoError(t, json.Unmarshal(data, &msg))
	return msg
}

func TestReportHub_PushesReports(t *testing.T) {
	store := repository.NewLatestReportStore()
	require.NoError(t, store.Publish(context.Background(), &models.Report{RunID: "old"}))
	hub := NewReportHub(xlogger.Nop(), store)
	ts := httptest.NewServer(newServer(hub).Echo())
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/report"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	hello := readMessage(t, conn)
	assert.Equal(t, TypeConnection, hello.Type)
	assert.Contains(t, hello.Data, "latest")
	assert.Equal(t, 1, hub.Clients())

	require.NoError(t, hub.Publish(context.Background(), &models.Report{
		RunID: "new",
		Date:  time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC),
	}))
	msg := readMessage(t, conn)
	assert.Equal(t, TypeReport, msg.Type)
	data, ok := msg.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "new", data["run_id"])
	assert.Equal(t, "2024-06-03", data["date"])

	hub.Close()
	assert.Equal(t, 0, hub.Clients())
}
