package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/flyswxf/calendar/internal/api/middleware"
	"github.com/flyswxf/calendar/internal/dto"
	"github.com/flyswxf/calendar/internal/service"
	pkgerrors "github.com/flyswxf/calendar/pkg/errors"
	"github.com/flyswxf/calendar/pkg/response"
)

func init() {
	gin.SetMode(gin.TestMode)
	if err := dto.RegisterValidators(); err != nil {
		panic(err)
	}
}

// ═══════════════════════════════════════════════════════════
// Mock Services
// ═══════════════════════════════════════════════════════════

// ── Mock TaskService ──

type mockTaskService struct {
	listResult []dto.TaskResponse
	addResult  *dto.TaskResponse
	addErr     error
	toggleErr  error
	deleteErr  error
	lastText   string
	lastIndex  int
	replaced   []dto.SnapshotTask
}

func (m *mockTaskService) List(_ context.Context, _ string) ([]dto.TaskResponse, error) {
	return m.listResult, nil
}
func (m *mockTaskService) Add(_ context.Context, _, text string) (*dto.TaskResponse, error) {
	m.lastText = text
	return m.addResult, m.addErr
}
func (m *mockTaskService) Toggle(_ context.Context, _ string, index int) (*dto.TaskResponse, error) {
	m.lastIndex = index
	if m.toggleErr != nil {
		return nil, m.toggleErr
	}
	return &dto.TaskResponse{Index: index, Completed: true}, nil
}
func (m *mockTaskService) Complete(_ context.Context, _ string, index int) (*dto.TaskResponse, error) {
	return &dto.TaskResponse{Index: index, Completed: true}, nil
}
func (m *mockTaskService) Delete(_ context.Context, _ string, index int) error {
	m.lastIndex = index
	return m.deleteErr
}
func (m *mockTaskService) ReplaceAll(_ context.Context, _ string, tasks []dto.SnapshotTask) ([]dto.TaskResponse, error) {
	m.replaced = tasks
	return []dto.TaskResponse{}, nil
}
func (m *mockTaskService) Cleanup(_ context.Context, _ string) (*dto.CleanupResponse, error) {
	return &dto.CleanupResponse{Purged: 1}, nil
}
func (m *mockTaskService) CheckInitialCleanup(_ context.Context) (*dto.CleanupResponse, bool, error) {
	return nil, false, nil
}
func (m *mockTaskService) RunDailyCleanup(_ context.Context) {}

// ── Mock CourseService ──

type mockCourseService struct {
	createErr  error
	importErr  error
	importBody string
	importMode string
	importURL  string
}

func (m *mockCourseService) List(_ context.Context, _ string) ([]dto.CourseResponse, error) {
	return []dto.CourseResponse{}, nil
}
func (m *mockCourseService) Create(_ context.Context, _ string, req *dto.CreateCourseRequest) (*dto.CourseResponse, error) {
	if m.createErr != nil {
		return nil, m.createErr
	}
	return &dto.CourseResponse{ID: "c1", Title: req.Title, Start: req.Start, End: req.End}, nil
}
func (m *mockCourseService) Update(_ context.Context, _, _ string, _ *dto.UpdateCourseRequest) (*dto.CourseResponse, error) {
	return nil, service.ErrCourseNotFound
}
func (m *mockCourseService) Delete(_ context.Context, _, _ string) error {
	return nil
}
func (m *mockCourseService) ImportICS(_ context.Context, _ string, reader io.Reader, mode string) (*dto.ImportICSResponse, error) {
	b, _ := io.ReadAll(reader)
	m.importBody = string(b)
	m.importMode = mode
	if m.importErr != nil {
		return nil, m.importErr
	}
	return &dto.ImportICSResponse{ImportedCount: 1, Mode: mode}, nil
}
func (m *mockCourseService) ImportICSFromURL(_ context.Context, _, url, mode string) (*dto.ImportICSResponse, error) {
	m.importURL = url
	m.importMode = mode
	if m.importErr != nil {
		return nil, m.importErr
	}
	return &dto.ImportICSResponse{ImportedCount: 1, Mode: mode}, nil
}

// ── Mock CalendarService ──

type mockCalendarService struct {
	err          error
	lastDate     string
	lastViewport int
}

func (m *mockCalendarService) GetWeek(_ context.Context, _, date string, viewport int) (*dto.WeekResponse, error) {
	m.lastDate, m.lastViewport = date, viewport
	if m.err != nil {
		return nil, m.err
	}
	return &dto.WeekResponse{WeekNumber: 5, Days: []dto.DayResponse{}}, nil
}
func (m *mockCalendarService) Term(_ context.Context) *dto.TermResponse {
	return &dto.TermResponse{TermStart: "2025-09-15", CurrentWeek: 5, Label: "第5周"}
}

// ── Mock TimerService ──

type mockTimerService struct {
	openErr   error
	finishErr error
	lastOpen  *dto.OpenTimerRequest
	calls     []string
}

func (m *mockTimerService) status(call string) (*dto.TimerStatusResponse, error) {
	m.calls = append(m.calls, call)
	return &dto.TimerStatusResponse{State: "running", Mode: "countdown"}, nil
}

func (m *mockTimerService) Status(_ context.Context, _ string) *dto.TimerStatusResponse {
	return &dto.TimerStatusResponse{State: "idle", Mode: "countdown", Display: "01:00:00"}
}
func (m *mockTimerService) Open(_ context.Context, _ string, req *dto.OpenTimerRequest) (*dto.TimerStatusResponse, error) {
	m.lastOpen = req
	if m.openErr != nil {
		return nil, m.openErr
	}
	return m.status("open")
}
func (m *mockTimerService) Start(_ context.Context, _ string) (*dto.TimerStatusResponse, error) {
	return m.status("start")
}
func (m *mockTimerService) Pause(_ context.Context, _ string) (*dto.TimerStatusResponse, error) {
	return m.status("pause")
}
func (m *mockTimerService) Resume(_ context.Context, _ string) (*dto.TimerStatusResponse, error) {
	return m.status("resume")
}
func (m *mockTimerService) Reset(_ context.Context, _ string) (*dto.TimerStatusResponse, error) {
	return m.status("reset")
}
func (m *mockTimerService) Finish(_ context.Context, _ string) (*dto.TimerStatusResponse, error) {
	if m.finishErr != nil {
		return nil, m.finishErr
	}
	return m.status("finish")
}
func (m *mockTimerService) Stop(_ context.Context, _ string) (*dto.TimerStatusResponse, error) {
	return m.status("stop")
}
func (m *mockTimerService) SetMode(_ context.Context, _, mode string) (*dto.TimerStatusResponse, error) {
	return m.status("mode:" + mode)
}
func (m *mockTimerService) SetCountdown(_ context.Context, _ string, _ int) (*dto.TimerStatusResponse, error) {
	return m.status("countdown")
}
func (m *mockTimerService) Close() {}

// ── Mock FocusSessionService ──

type mockFocusSessionService struct{}

func (m *mockFocusSessionService) List(_ context.Context, _ string, req *dto.FocusSessionListRequest) ([]dto.FocusSessionResponse, int64, int, int, error) {
	return []dto.FocusSessionResponse{{ID: "f1", Title: "阅读"}}, 21, 2, 10, nil
}

// ── Mock SyncService ──

type mockSyncService struct {
	getResult *dto.Snapshot
	err       error
	put       *dto.Snapshot
	owner     string
	// unconfigured 模拟未配置远程 KV
	unconfigured bool
}

func (m *mockSyncService) Get(_ context.Context, ownerID string) (*dto.Snapshot, error) {
	m.owner = ownerID
	return m.getResult, m.err
}
func (m *mockSyncService) Put(_ context.Context, ownerID string, snap *dto.Snapshot) error {
	m.owner = ownerID
	m.put = snap
	return m.err
}
func (m *mockSyncService) Push(_ context.Context, _ string) (*dto.SyncResult, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &dto.SyncResult{Tasks: 2}, nil
}
func (m *mockSyncService) Pull(_ context.Context, _ string) (*dto.SyncResult, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &dto.SyncResult{Tasks: 2, Skipped: 1}, nil
}
func (m *mockSyncService) Configured() bool {
	return !m.unconfigured
}

func (m *mockSyncService) MirrorAsync(_ string) {}

func (m *mockSyncService) Wait() {}

// ── Mock ExportService ──

type mockExportService struct {
	buf      *bytes.Buffer
	filename string
	err      error
}

func (m *mockExportService) Export(_ context.Context, _ string) (*bytes.Buffer, string, error) {
	return m.buf, m.filename, m.err
}

// ═══════════════════════════════════════════════════════════
// Test Helpers
// ═══════════════════════════════════════════════════════════

// newOwnerRouter 创建挂载 Owner 中间件的路由
func newOwnerRouter() (*gin.Engine, *gin.RouterGroup) {
	r := gin.New()
	g := r.Group("", middleware.Owner())
	return r, g
}

func serve(r *gin.Engine, method, path string, body io.Reader) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, body)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	r.ServeHTTP(w, req)
	return w
}

func jsonBody(v interface{}) io.Reader {
	b, _ := json.Marshal(v)
	return bytes.NewReader(b)
}

func parseResponse(w *httptest.ResponseRecorder) response.Response {
	var resp response.Response
	json.Unmarshal(w.Body.Bytes(), &resp)
	return resp
}

// ═══════════════════════════════════════════════════════════
// TaskHandler Tests
// ═══════════════════════════════════════════════════════════

func newTaskRouter(mock *mockTaskService) *gin.Engine {
	h := NewTaskHandler(mock)
	r, g := newOwnerRouter()
	g.GET("/tasks", h.ListTasks)
	g.POST("/tasks", h.AddTask)
	g.PUT("/tasks", h.ReplaceTasks)
	g.PUT("/tasks/:index/toggle", h.ToggleTask)
	g.DELETE("/tasks/:index", h.DeleteTask)
	return r
}

func TestTaskHandler_Add_Success(t *testing.T) {
	mock := &mockTaskService{addResult: &dto.TaskResponse{Text: "背单词"}}
	r := newTaskRouter(mock)

	w := serve(r, "POST", "/tasks?userId=u1", jsonBody(dto.CreateTaskRequest{Text: "背单词"}))
	if w.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", w.Code)
	}
	if mock.lastText != "背单词" {
		t.Errorf("expected text 背单词, got %q", mock.lastText)
	}
}

func TestTaskHandler_Add_MissingOwner(t *testing.T) {
	r := newTaskRouter(&mockTaskService{})

	w := serve(r, "POST", "/tasks", jsonBody(dto.CreateTaskRequest{Text: "a"}))
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
	resp := parseResponse(w)
	if resp.Code != 10001 || resp.Message != "userId required" {
		t.Errorf("unexpected response: %+v", resp)
	}
}

func TestTaskHandler_Add_OwnerFromHeader(t *testing.T) {
	mock := &mockTaskService{addResult: &dto.TaskResponse{Text: "a"}}
	r := newTaskRouter(mock)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/tasks", jsonBody(dto.CreateTaskRequest{Text: "a"}))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-ID", "u1")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", w.Code)
	}
}

func TestTaskHandler_Add_BadJSON(t *testing.T) {
	r := newTaskRouter(&mockTaskService{})

	w := serve(r, "POST", "/tasks?userId=u1", strings.NewReader("invalid json"))
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
	if resp := parseResponse(w); resp.Code != 20000 {
		t.Errorf("expected code 20000, got %d", resp.Code)
	}
}

func TestTaskHandler_Add_Empty(t *testing.T) {
	r := newTaskRouter(&mockTaskService{addErr: service.ErrTaskEmpty})

	w := serve(r, "POST", "/tasks?userId=u1", jsonBody(dto.CreateTaskRequest{Text: "  "}))
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
	if resp := parseResponse(w); resp.Code != 20001 {
		t.Errorf("expected code 20001, got %d", resp.Code)
	}
}

func TestTaskHandler_Toggle(t *testing.T) {
	mock := &mockTaskService{}
	r := newTaskRouter(mock)

	w := serve(r, "PUT", "/tasks/2/toggle?userId=u1", nil)
	if w.Code != http.StatusOK || mock.lastIndex != 2 {
		t.Errorf("expected 200 with index 2, got %d index %d", w.Code, mock.lastIndex)
	}

	w = serve(r, "PUT", "/tasks/abc/toggle?userId=u1", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for bad index, got %d", w.Code)
	}

	mock.toggleErr = service.ErrTaskNotFound
	w = serve(r, "PUT", "/tasks/9/toggle?userId=u1", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}

func TestTaskHandler_Delete(t *testing.T) {
	mock := &mockTaskService{}
	r := newTaskRouter(mock)

	w := serve(r, "DELETE", "/tasks/0?userId=u1", nil)
	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}

	w = serve(r, "DELETE", "/tasks/-1?userId=u1", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for negative index, got %d", w.Code)
	}
}

func TestTaskHandler_Replace(t *testing.T) {
	mock := &mockTaskService{}
	r := newTaskRouter(mock)

	body := `{"tasks":[{"text":"a","completed":true,"createdAt":1700000000000,"isLegacy":false}]}`
	w := serve(r, "PUT", "/tasks?userId=u1", strings.NewReader(body))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if len(mock.replaced) != 1 || !mock.replaced[0].Completed || mock.replaced[0].CreatedAt != 1700000000000 {
		t.Errorf("unexpected replaced tasks: %+v", mock.replaced)
	}

	w = serve(r, "PUT", "/tasks?userId=u1", strings.NewReader(`{"tasks":[{"text":""}]}`))
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for empty text, got %d", w.Code)
	}
}

// ═══════════════════════════════════════════════════════════
// CourseHandler Tests
// ═══════════════════════════════════════════════════════════

func newCourseRouter(mock *mockCourseService) *gin.Engine {
	h := NewCourseHandler(mock)
	r, g := newOwnerRouter()
	g.POST("/courses", h.CreateCourse)
	g.PUT("/courses/:id", h.UpdateCourse)
	g.POST("/courses/import", h.ImportICS)
	return r
}

func TestCourseHandler_Create(t *testing.T) {
	r := newCourseRouter(&mockCourseService{})

	w := serve(r, "POST", "/courses?userId=u1", jsonBody(dto.CreateCourseRequest{
		Title: "高数", Day: 1, Start: "08:00", End: "09:40",
	}))
	if w.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
}

func TestCourseHandler_Create_InvalidClock(t *testing.T) {
	r := newCourseRouter(&mockCourseService{})

	w := serve(r, "POST", "/courses?userId=u1", jsonBody(dto.CreateCourseRequest{
		Title: "高数", Day: 1, Start: "8点", End: "09:40",
	}))
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
	if resp := parseResponse(w); resp.Code != 21000 {
		t.Errorf("expected code 21000, got %d", resp.Code)
	}
}

func TestCourseHandler_Create_InvalidRange(t *testing.T) {
	r := newCourseRouter(&mockCourseService{createErr: service.ErrCourseInvalidTime})

	w := serve(r, "POST", "/courses?userId=u1", jsonBody(dto.CreateCourseRequest{
		Title: "高数", Day: 1, Start: "10:00", End: "09:00",
	}))
	if resp := parseResponse(w); w.Code != http.StatusBadRequest || resp.Code != 21004 {
		t.Errorf("expected 400/21004, got %d/%d", w.Code, resp.Code)
	}
}

func TestCourseHandler_Update_NotFound(t *testing.T) {
	r := newCourseRouter(&mockCourseService{})

	w := serve(r, "PUT", "/courses/missing?userId=u1", strings.NewReader(`{"title":"x"}`))
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}

func TestCourseHandler_ImportFile(t *testing.T) {
	mock := &mockCourseService{}
	r := newCourseRouter(mock)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, _ := mw.CreateFormFile("file", "schedule.ics")
	fw.Write([]byte("BEGIN:VCALENDAR"))
	mw.WriteField("mode", "append")
	mw.Close()

	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/courses/import?userId=u1", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	r.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	if mock.importBody != "BEGIN:VCALENDAR" || mock.importMode != "append" {
		t.Errorf("unexpected import: body=%q mode=%q", mock.importBody, mock.importMode)
	}
}

func TestCourseHandler_ImportURL(t *testing.T) {
	mock := &mockCourseService{}
	r := newCourseRouter(mock)

	w := serve(r, "POST", "/courses/import?userId=u1", jsonBody(dto.ImportICSRequest{URL: "https://example.com/a.ics"}))
	if w.Code != http.StatusCreated || mock.importURL != "https://example.com/a.ics" {
		t.Errorf("expected 201 with url, got %d url %q", w.Code, mock.importURL)
	}

	mock.importErr = service.ErrICSFetchFailed
	w = serve(r, "POST", "/courses/import?userId=u1", jsonBody(dto.ImportICSRequest{URL: "https://example.com/a.ics"}))
	if resp := parseResponse(w); w.Code != http.StatusBadRequest || resp.Code != 21012 {
		t.Errorf("expected 400/21012, got %d/%d", w.Code, resp.Code)
	}
}

func TestCourseHandler_ImportMissing(t *testing.T) {
	r := newCourseRouter(&mockCourseService{})

	w := serve(r, "POST", "/courses/import?userId=u1", strings.NewReader(`{}`))
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

// ═══════════════════════════════════════════════════════════
// CalendarHandler / FocusSessionHandler Tests
// ═══════════════════════════════════════════════════════════

func TestCalendarHandler_GetWeek(t *testing.T) {
	mock := &mockCalendarService{}
	h := NewCalendarHandler(mock)
	r, g := newOwnerRouter()
	g.GET("/calendar/week", h.GetWeek)
	r.GET("/calendar/term", h.GetTerm)

	w := serve(r, "GET", "/calendar/week?userId=u1&date=2025-10-13&viewport=400", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if mock.lastDate != "2025-10-13" || mock.lastViewport != 400 {
		t.Errorf("unexpected query: %q %d", mock.lastDate, mock.lastViewport)
	}

	w = serve(r, "GET", "/calendar/week?userId=u1&date=13/10/2025", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for bad date, got %d", w.Code)
	}

	w = serve(r, "GET", "/calendar/term", nil)
	if w.Code != http.StatusOK {
		t.Errorf("expected 200 for term, got %d", w.Code)
	}
}

func TestFocusSessionHandler_List(t *testing.T) {
	h := NewFocusSessionHandler(&mockFocusSessionService{})
	r, g := newOwnerRouter()
	g.GET("/focus-sessions", h.ListFocusSessions)

	w := serve(r, "GET", "/focus-sessions?userId=u1&page=2&page_size=10", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var resp struct {
		Data response.PageData `json:"data"`
	}
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Data.Pagination.TotalPages != 3 || resp.Data.Pagination.Page != 2 {
		t.Errorf("unexpected pagination: %+v", resp.Data.Pagination)
	}

	w = serve(r, "GET", "/focus-sessions?userId=u1&page_size=1000", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for page_size > 100, got %d", w.Code)
	}
}

// ═══════════════════════════════════════════════════════════
// TimerHandler Tests
// ═══════════════════════════════════════════════════════════

func newTimerRouter(mock *mockTimerService) *gin.Engine {
	h := NewTimerHandler(mock)
	r, g := newOwnerRouter()
	g.GET("/timer", h.GetStatus)
	g.POST("/timer/open", h.Open)
	g.POST("/timer/start", h.Start)
	g.POST("/timer/finish", h.Finish)
	g.POST("/timer/mode", h.SetMode)
	return r
}

func TestTimerHandler_OpenEmptyBody(t *testing.T) {
	mock := &mockTimerService{}
	r := newTimerRouter(mock)

	w := serve(r, "POST", "/timer/open?userId=u1", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if mock.lastOpen == nil || mock.lastOpen.TaskIndex != nil {
		t.Errorf("expected empty open request, got %+v", mock.lastOpen)
	}
}

func TestTimerHandler_OpenWhileActive(t *testing.T) {
	r := newTimerRouter(&mockTimerService{openErr: service.ErrTimerActive})

	w := serve(r, "POST", "/timer/open?userId=u1", strings.NewReader(`{"task_index":0}`))
	if w.Code != http.StatusConflict {
		t.Errorf("expected 409, got %d", w.Code)
	}
	if resp := parseResponse(w); resp.Code != 24001 {
		t.Errorf("expected code 24001, got %d", resp.Code)
	}
}

func TestTimerHandler_Transitions(t *testing.T) {
	mock := &mockTimerService{}
	r := newTimerRouter(mock)

	if w := serve(r, "GET", "/timer?userId=u1", nil); w.Code != http.StatusOK {
		t.Errorf("expected 200 for status, got %d", w.Code)
	}
	if w := serve(r, "POST", "/timer/start?userId=u1", nil); w.Code != http.StatusOK {
		t.Errorf("expected 200 for start, got %d", w.Code)
	}
	if w := serve(r, "POST", "/timer/mode?userId=u1", strings.NewReader(`{"mode":"stopwatch"}`)); w.Code != http.StatusOK {
		t.Errorf("expected 200 for mode, got %d", w.Code)
	}
	if w := serve(r, "POST", "/timer/mode?userId=u1", strings.NewReader(`{"mode":"pomodoro"}`)); w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for invalid mode, got %d", w.Code)
	}
	if len(mock.calls) != 2 || mock.calls[0] != "start" || mock.calls[1] != "mode:stopwatch" {
		t.Errorf("unexpected calls: %v", mock.calls)
	}

	mock.finishErr = io.ErrUnexpectedEOF
	if w := serve(r, "POST", "/timer/finish?userId=u1", nil); w.Code != http.StatusInternalServerError {
		t.Errorf("expected 500 when recording fails, got %d", w.Code)
	}
}

// ═══════════════════════════════════════════════════════════
// SyncHandler Tests
// ═══════════════════════════════════════════════════════════

func newSyncRouter(mock *mockSyncService) *gin.Engine {
	h := NewSyncHandler(mock)
	r, g := newOwnerRouter()
	r.Any("/api/data", h.Data)
	g.POST("/sync/pull", h.Pull)
	g.POST("/sync/push", h.Push)
	return r
}

func TestSyncHandler_Data_MissingUser(t *testing.T) {
	r := newSyncRouter(&mockSyncService{})

	w := serve(r, "GET", "/api/data", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"error":"userId required"`) {
		t.Errorf("unexpected body: %s", w.Body.String())
	}
}

func TestSyncHandler_Data_Get(t *testing.T) {
	mock := &mockSyncService{getResult: &dto.Snapshot{
		Tasks:         json.RawMessage(`[{"text":"a"}]`),
		Courses:       json.RawMessage(`[]`),
		FocusSessions: json.RawMessage(`[]`),
	}}
	r := newSyncRouter(mock)

	w := serve(r, "GET", "/api/data?userId=u1", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var body map[string]json.RawMessage
	json.Unmarshal(w.Body.Bytes(), &body)
	if string(body["tasks"]) != `[{"text":"a"}]` || string(body["focusSessions"]) != "[]" {
		t.Errorf("unexpected body: %s", w.Body.String())
	}
	if mock.owner != "u1" {
		t.Errorf("expected owner u1, got %q", mock.owner)
	}
}

func TestSyncHandler_Data_Put(t *testing.T) {
	mock := &mockSyncService{}
	r := newSyncRouter(mock)

	w := serve(r, "PUT", "/api/data?userId=u1", strings.NewReader(`{"tasks":[{"text":"a"}],"courses":[]}`))
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"ok":true`) {
		t.Fatalf("expected 200 ok, got %d: %s", w.Code, w.Body.String())
	}
	if mock.put == nil || string(mock.put.Tasks) != `[{"text":"a"}]` {
		t.Errorf("unexpected snapshot: %+v", mock.put)
	}
}

func TestSyncHandler_Data_Errors(t *testing.T) {
	mock := &mockSyncService{}
	r := newSyncRouter(mock)

	if w := serve(r, "POST", "/api/data?userId=u1", nil); w.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected 405, got %d", w.Code)
	}

	mock.err = service.ErrSyncSnapshotInvalid
	w := serve(r, "PUT", "/api/data?userId=u1", strings.NewReader(`{"tasks":5}`))
	if w.Code != http.StatusBadRequest || !strings.Contains(w.Body.String(), `"error":"invalid body"`) {
		t.Errorf("expected 400 invalid body, got %d: %s", w.Code, w.Body.String())
	}

	mock.err = pkgerrors.ErrStoreUnavailable
	w = serve(r, "GET", "/api/data?userId=u1", nil)
	if w.Code != http.StatusInternalServerError || !strings.Contains(w.Body.String(), `"error"`) {
		t.Errorf("expected 500 with error, got %d: %s", w.Code, w.Body.String())
	}
}

func TestSyncHandler_Data_MissingEnvBeforeMethod(t *testing.T) {
	mock := &mockSyncService{unconfigured: true}
	r := newSyncRouter(mock)

	for _, method := range []string{"GET", "PUT", "POST", "DELETE"} {
		w := serve(r, method, "/api/data?userId=u1", nil)
		if w.Code != http.StatusInternalServerError || !strings.Contains(w.Body.String(), `"error":"missing env"`) {
			t.Errorf("%s: expected 500 missing env, got %d: %s", method, w.Code, w.Body.String())
		}
	}
	if mock.owner != "" {
		t.Error("store should not be touched when unconfigured")
	}

	// userId 校验仍在最前
	if w := serve(r, "POST", "/api/data", nil); w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 without userId, got %d", w.Code)
	}
}

func TestSyncHandler_PullPush(t *testing.T) {
	mock := &mockSyncService{}
	r := newSyncRouter(mock)

	if w := serve(r, "POST", "/sync/pull?userId=u1", nil); w.Code != http.StatusOK {
		t.Errorf("expected 200 for pull, got %d", w.Code)
	}

	mock.err = service.ErrSyncSnapshotInvalid
	w := serve(r, "POST", "/sync/pull?userId=u1", nil)
	if resp := parseResponse(w); w.Code != http.StatusBadRequest || resp.Code != 25001 {
		t.Errorf("expected 400/25001, got %d/%d", w.Code, resp.Code)
	}

	mock.err = pkgerrors.ErrStoreUnavailable
	w = serve(r, "POST", "/sync/push?userId=u1", nil)
	if resp := parseResponse(w); w.Code != http.StatusInternalServerError || resp.Code != 50001 {
		t.Errorf("expected 500/50001, got %d/%d", w.Code, resp.Code)
	}
}

// ═══════════════════════════════════════════════════════════
// ExportHandler Tests
// ═══════════════════════════════════════════════════════════

func TestExportHandler_Success(t *testing.T) {
	mock := &mockExportService{
		buf:      bytes.NewBufferString("xlsx-content"),
		filename: "专注记录_20251014.xlsx",
	}
	h := NewExportHandler(mock)
	r, g := newOwnerRouter()
	g.GET("/export/focus-sessions", h.ExportFocusSessions)

	w := serve(r, "GET", "/export/focus-sessions?userId=u1", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet" {
		t.Errorf("unexpected content type: %s", ct)
	}
	wantCD := `attachment; filename="____` + "_20251014.xlsx\"; filename*=UTF-8''%E4%B8%93%E6%B3%A8%E8%AE%B0%E5%BD%95_20251014.xlsx"
	if cd := w.Header().Get("Content-Disposition"); cd != wantCD {
		t.Errorf("unexpected disposition: %s", cd)
	}
	if cl := w.Header().Get("Content-Length"); cl != "12" {
		t.Errorf("unexpected content length: %s", cl)
	}
	if w.Body.String() != "xlsx-content" {
		t.Errorf("unexpected body: %s", w.Body.String())
	}
}

func TestExportHandler_Empty(t *testing.T) {
	h := NewExportHandler(&mockExportService{err: service.ErrExportEmpty})
	r, g := newOwnerRouter()
	g.GET("/export/focus-sessions", h.ExportFocusSessions)

	w := serve(r, "GET", "/export/focus-sessions?userId=u1", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
	if resp := parseResponse(w); resp.Code != 26001 {
		t.Errorf("expected code 26001, got %d", resp.Code)
	}
}
