package v1

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Grangy/specialist-warehouse-sub000/internal/aggregate"
	"github.com/Grangy/specialist-warehouse-sub000/internal/audit"
	"github.com/Grangy/specialist-warehouse-sub000/internal/difficulty"
	"github.com/Grangy/specialist-warehouse-sub000/internal/importer"
	"github.com/Grangy/specialist-warehouse-sub000/internal/ingest"
	"github.com/Grangy/specialist-warehouse-sub000/internal/model"
	"github.com/Grangy/specialist-warehouse-sub000/internal/period"
	"github.com/Grangy/specialist-warehouse-sub000/internal/scoring"
	"github.com/Grangy/specialist-warehouse-sub000/internal/store"
)

func newTestRouter(t *testing.T) (*gin.Engine, *store.Store) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	st, err := store.New(filepath.Join(t.TempDir(), "pickstat.db"))
	if err != nil {
		t.Fatalf("init store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	resolver := period.NewResolver(0)
	scoreCfg := scoring.DefaultConfig()
	norms := scoring.NewNormService(st)
	learner := difficulty.NewLearner(st, difficulty.Config{})
	pipeline := ingest.NewPipeline(st, norms, learner, scoreCfg)
	aggregator := aggregate.NewAggregator(st, st, resolver)
	recomputer := ingest.NewRecomputer(aggregator, st, resolver)
	importCoord := importer.NewCoordinator(pipeline, aggregator, st, resolver)
	auditor := audit.NewAuditor(st, audit.DefaultConfig())

	h := NewHandler(st, pipeline, aggregator, recomputer, importCoord, auditor, resolver, t.TempDir())
	r := gin.New()
	api := r.Group("/api")
	h.RegisterRoutes(api)
	return r, st
}

func postJSON(t *testing.T, r *gin.Engine, path string, payload interface{}) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func getJSON(t *testing.T, r *gin.Engine, path string, out interface{}) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if out != nil && w.Code == http.StatusOK {
		if err := json.Unmarshal(w.Body.Bytes(), out); err != nil {
			t.Fatalf("unmarshal response: %v body=%s", err, w.Body.String())
		}
	}
	return w
}

func eventPayload(taskID, userID string) map[string]interface{} {
	return map[string]interface{}{
		"taskId":      taskID,
		"userId":      userID,
		"roleType":    "collector",
		"shipmentId":  "S-1",
		"warehouse":   "WH-1",
		"startedAt":   "2026-03-10T09:00:00Z",
		"completedAt": "2026-03-10T09:04:10Z",
		"positions":   10,
		"units":       20,
	}
}

func TestPostEventAndDailyRankings(t *testing.T) {
	r, _ := newTestRouter(t)

	w := postJSON(t, r, "/api/events", eventPayload("T-1", "u1"))
	if w.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d body=%s", w.Code, w.Body.String())
	}

	var resp struct {
		Skipped bool                `json:"skipped"`
		Records []*model.TaskRecord `json:"records"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Skipped || len(resp.Records) != 1 {
		t.Fatalf("response = %+v, want one record", resp)
	}
	// 250 秒拣 10 位：expected 300，效率 1.2，积分 12
	if resp.Records[0].OrderPoints != 12 {
		t.Errorf("orderPoints = %v, want 12", resp.Records[0].OrderPoints)
	}

	var rankings struct {
		Date     string                  `json:"date"`
		Rankings []*model.DailyAggregate `json:"rankings"`
	}
	rw := getJSON(t, r, "/api/rankings/daily?date=2026-03-10", &rankings)
	if rw.Code != http.StatusOK {
		t.Fatalf("rankings status: %d body=%s", rw.Code, rw.Body.String())
	}
	if len(rankings.Rankings) != 1 {
		t.Fatalf("rankings = %d, want 1", len(rankings.Rankings))
	}
	agg := rankings.Rankings[0]
	if agg.UserID != "u1" || agg.Points != 12 {
		t.Errorf("daily = %+v, want u1/12", agg)
	}
	// 单人榜：非零积分拿满档
	if agg.Rank != 1 {
		t.Errorf("rank = %d, want 1", agg.Rank)
	}
}

func TestPostEventSkipped(t *testing.T) {
	r, _ := newTestRouter(t)

	payload := eventPayload("T-1", "u1")
	payload["roleType"] = "admin"

	w := postJSON(t, r, "/api/events", payload)
	if w.Code != http.StatusAccepted {
		t.Fatalf("unexpected status: %d body=%s", w.Code, w.Body.String())
	}
}

func TestStatusLifecycle(t *testing.T) {
	r, _ := newTestRouter(t)

	var before StatusResponse
	getJSON(t, r, "/api/status", &before)
	if before.Initialized {
		t.Error("expected uninitialized before any event")
	}
	if before.NormVersion != 1 {
		t.Errorf("normVersion = %d, want seeded 1", before.NormVersion)
	}

	postJSON(t, r, "/api/events", eventPayload("T-1", "u1"))

	var after StatusResponse
	getJSON(t, r, "/api/status", &after)
	if !after.Initialized || after.TaskRecords != 1 {
		t.Errorf("status = %+v, want initialized with 1 record", after)
	}
	if after.LatestDate != "2026-03-10" {
		t.Errorf("latestDate = %s, want 2026-03-10", after.LatestDate)
	}
}

func TestUpsertNormValidation(t *testing.T) {
	r, _ := newTestRouter(t)

	w := postJSON(t, r, "/api/norms", map[string]interface{}{"normA": 0})
	if w.Code != http.StatusBadRequest {
		t.Errorf("normA=0 status = %d, want 400", w.Code)
	}

	w = postJSON(t, r, "/api/norms", map[string]interface{}{"normA": 25, "normC": -1})
	if w.Code != http.StatusBadRequest {
		t.Errorf("negative normC status = %d, want 400", w.Code)
	}

	wh := "WH-1"
	w = postJSON(t, r, "/api/norms", map[string]interface{}{
		"warehouse": wh, "normA": 25, "normC": 100, "coefficientM": 3,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("valid norm status = %d body=%s", w.Code, w.Body.String())
	}
	var resp struct {
		Norm *model.Norm `json:"norm"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Norm.Version != 1 || resp.Norm.Warehouse == nil || *resp.Norm.Warehouse != wh {
		t.Errorf("norm = %+v, want WH-1 version 1", resp.Norm)
	}
}

func TestNormAffectsSubsequentScoring(t *testing.T) {
	r, _ := newTestRouter(t)

	// 给 WH-1 发布一个翻倍定额：normA=60 → expected 600，效率顶到 1.5
	w := postJSON(t, r, "/api/norms", map[string]interface{}{
		"warehouse": "WH-1", "normA": 60, "normC": 120, "coefficientM": 3,
		"effectiveFrom": "2026-01-01T00:00:00Z",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("upsert norm: %d body=%s", w.Code, w.Body.String())
	}

	ew := postJSON(t, r, "/api/events", eventPayload("T-1", "u1"))
	var resp struct {
		Records []*model.TaskRecord `json:"records"`
	}
	if err := json.Unmarshal(ew.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	rec := resp.Records[0]
	if rec.EfficiencyClamped == nil || *rec.EfficiencyClamped != 1.5 {
		t.Errorf("efficiencyClamped = %v, want clamp at 1.5", rec.EfficiencyClamped)
	}
	if rec.OrderPoints != 15 {
		t.Errorf("orderPoints = %v, want 15", rec.OrderPoints)
	}
	if rec.NormVersion != 1 {
		t.Errorf("normVersion = %d, want 1 (warehouse norm)", rec.NormVersion)
	}
}

func TestConfigRoundTrip(t *testing.T) {
	r, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPatch, "/api/config",
		bytes.NewReader([]byte(`{"report_footer":"仓库一部"}`)))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("patch config status: %d body=%s", w.Code, w.Body.String())
	}

	var resp struct {
		Config map[string]string `json:"config"`
	}
	gw := getJSON(t, r, "/api/config", &resp)
	if gw.Code != http.StatusOK {
		t.Fatalf("get config status: %d", gw.Code)
	}
	if resp.Config["report_footer"] != "仓库一部" {
		t.Errorf("config = %+v, want report_footer set", resp.Config)
	}
}

func TestAuditEndpoint(t *testing.T) {
	r, _ := newTestRouter(t)

	postJSON(t, r, "/api/events", eventPayload("T-1", "u1"))
	postJSON(t, r, "/api/events", eventPayload("T-2", "u2"))

	var report model.AuditReport
	w := getJSON(t, r, "/api/audit?from=2026-03-01&to=2026-03-31", &report)
	if w.Code != http.StatusOK {
		t.Fatalf("audit status: %d body=%s", w.Code, w.Body.String())
	}
	if report.UserCount != 2 || report.TaskCount != 2 {
		t.Errorf("report = %d users / %d tasks, want 2/2", report.UserCount, report.TaskCount)
	}
	if report.Narrative == "" {
		t.Error("expected narrative text")
	}

	// year+month 指定历史月份
	var byMonth model.AuditReport
	if w := getJSON(t, r, "/api/audit?year=2026&month=3", &byMonth); w.Code != http.StatusOK {
		t.Fatalf("audit by month status: %d body=%s", w.Code, w.Body.String())
	}
	if byMonth.TaskCount != 2 {
		t.Errorf("audit by month tasks = %d, want 2", byMonth.TaskCount)
	}

	// period 符号与 from/to 必须成对
	if w := getJSON(t, r, "/api/audit?from=2026-03-01", nil); w.Code != http.StatusBadRequest {
		t.Errorf("lone from status = %d, want 400", w.Code)
	}
	if w := getJSON(t, r, "/api/audit?period=decade", nil); w.Code != http.StatusBadRequest {
		t.Errorf("unknown period status = %d, want 400", w.Code)
	}
}

func TestExportDownloadRoundTrip(t *testing.T) {
	r, _ := newTestRouter(t)
	postJSON(t, r, "/api/events", eventPayload("T-1", "u1"))

	w := postJSON(t, r, "/api/export", map[string]interface{}{
		"fromDate": "2026-03-01", "toDate": "2026-03-31",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("export status: %d body=%s", w.Code, w.Body.String())
	}
	var resp struct {
		Token    string `json:"token"`
		Filename string `json:"filename"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Token == "" {
		t.Fatal("expected download token")
	}

	dw := getJSON(t, r, "/api/export/download/"+resp.Token, nil)
	if dw.Code != http.StatusOK {
		t.Fatalf("download status: %d", dw.Code)
	}
	if dw.Body.Len() == 0 {
		t.Error("expected file content")
	}

	// 令牌一次性
	dw2 := getJSON(t, r, "/api/export/download/"+resp.Token, nil)
	if dw2.Code != http.StatusNotFound {
		t.Errorf("second download status = %d, want 404", dw2.Code)
	}
}

func TestRecomputeEndpoint(t *testing.T) {
	r, st := newTestRouter(t)
	postJSON(t, r, "/api/events", eventPayload("T-1", "u1"))

	w := postJSON(t, r, "/api/recompute", map[string]interface{}{
		"fromDate": "2026-03-10", "toDate": "2026-03-10",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("recompute status: %d body=%s", w.Code, w.Body.String())
	}
	if !bytes.Contains(w.Body.Bytes(), []byte(`"type":"done"`)) {
		t.Errorf("expected done event in SSE stream, body=%s", w.Body.String())
	}

	logs, err := st.ListJobLogs(10)
	if err != nil {
		t.Fatalf("ListJobLogs: %v", err)
	}
	if len(logs) != 1 || logs[0].Kind != "recompute" {
		t.Errorf("job logs = %+v, want one recompute entry", logs)
	}
}

func TestDownloadExpiredToken(t *testing.T) {
	s := newExportDownloadStore()
	token := s.put("/tmp/x.xlsx", "x.xlsx", -time.Second)
	if _, ok := s.get(token); ok {
		t.Error("expected expired token to be rejected")
	}
}
