package routes

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/oleeahmmed/hrm/internal/app/controllers"
	"github.com/oleeahmmed/hrm/internal/domain/models"
	"github.com/oleeahmmed/hrm/internal/domain/services"
	"github.com/oleeahmmed/hrm/internal/domain/services/container"
	"github.com/oleeahmmed/hrm/internal/infrastructure/config"
	"github.com/oleeahmmed/hrm/internal/infrastructure/database"
)

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type testServer struct {
	t      *testing.T
	router *gin.Engine
	db     *gorm.DB
	token  string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	db, err := database.OpenMemory()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	cfg := &config.Config{
		DefaultScope:         "default",
		Timezone:             "UTC",
		ADMSErrorDelay:       30,
		ADMSDelay:            10,
		ADMSTransFlag:        "TransData AttLog OpLog",
		JWTSecretKey:         "routes-test",
		DefaultAdminPassword: "Admin@123",
	}
	c := container.NewServiceContainer(db, cfg)
	if err := c.GetService("admin").(services.InterfaceAdminService).EnsureDefaultAdmin(); err != nil {
		t.Fatal(err)
	}
	s := &testServer{t: t, router: SetupRouter(c), db: db}
	s.token = s.login("admin", "Admin@123")
	return s
}

func (s *testServer) do(method, path, body, contentType string, auth bool) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if auth {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *testServer) api(method, path string, payload interface{}) (*httptest.ResponseRecorder, envelope) {
	s.t.Helper()
	var buf bytes.Buffer
	if payload != nil {
		if err := json.NewEncoder(&buf).Encode(payload); err != nil {
			s.t.Fatal(err)
		}
	}
	w := s.do(method, path, buf.String(), "application/json", true)
	var env envelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		s.t.Fatalf("%s %s: decode %q: %v", method, path, w.Body.String(), err)
	}
	return w, env
}

func (s *testServer) login(username, password string) string {
	s.t.Helper()
	body := fmt.Sprintf(`{"username":%q,"password":%q}`, username, password)
	w := s.do(http.MethodPost, "/api/auth/login", body, "application/json", false)
	if w.Code != http.StatusOK {
		s.t.Fatalf("login: %d %s", w.Code, w.Body.String())
	}
	var env envelope
	json.Unmarshal(w.Body.Bytes(), &env)
	var result services.LoginResult
	if err := json.Unmarshal(env.Data, &result); err != nil || result.Token == "" {
		s.t.Fatalf("login result %s: %v", env.Data, err)
	}
	return result.Token
}

func TestDeviceEndpointsAlwaysAnswerOK(t *testing.T) {
	s := newTestServer(t)

	w := s.do(http.MethodGet, "/iclock/cdata?SN=GATE01&options=all&pushver=2.4.1", "", "", false)
	if w.Code != http.StatusOK || !strings.HasPrefix(w.Body.String(), "GET OPTION FROM: GATE01\n") {
		t.Fatalf("handshake: %d %q", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Errorf("content type = %q", ct)
	}

	paths := []struct {
		method, path, body string
	}{
		{http.MethodPost, "/iclock/cdata?SN=GATE01&table=ATTLOG", "1001\t2024-03-05 09:07:00\t0\t1\t0\t0\n"},
		{http.MethodPost, "/iclock/cdata?SN=GATE01&table=ATTLOG", "1001\t2024-03-05 09:07:00\t0\t1\t0\t0\n"},
		{http.MethodPost, "/cdata?SN=GATE01&table=NOPE", "junk"},
		{http.MethodPost, "/iclock/cdata.aspx?SN=GATE01&table=ATTLOG", "not a punch"},
		{http.MethodPost, "/iclock/cdata", "no serial"},
		{http.MethodGet, "/iclock/getrequest?SN=GATE01", ""},
		{http.MethodPost, "/iclock/devicecmd?SN=GATE01", "ID=999&Return=0&CMD=REBOOT"},
		{http.MethodPost, "/iclockpush/upload?SN=GATE01&table=OPERLOG", "USER PIN=1001\tName=Alice"},
	}
	for _, p := range paths {
		w := s.do(p.method, p.path, p.body, "text/plain", false)
		if w.Code != http.StatusOK || w.Body.String() != "OK" {
			t.Errorf("%s %s: %d %q", p.method, p.path, w.Code, w.Body.String())
		}
	}

	var count int64
	s.db.Model(&models.PunchRecord{}).Count(&count)
	if count != 1 {
		t.Errorf("punches stored = %d", count)
	}
}

func TestOversizedUploadKeepsCompleteLines(t *testing.T) {
	s := newTestServer(t)
	limit := controllers.MaxPushBody
	controllers.MaxPushBody = 80
	t.Cleanup(func() { controllers.MaxPushBody = limit })

	line := "1001\t2024-03-05 09:07:00\t0\t1\t0\t0\n"
	body := line + strings.Replace(line, "09:07", "12:30", 1) + strings.Replace(line, "09:07", "18:02", 1)
	w := s.do(http.MethodPost, "/iclock/cdata?SN=GATE03&table=ATTLOG", body, "text/plain", false)
	if w.Code != http.StatusOK || w.Body.String() != "OK" {
		t.Fatalf("upload: %d %q", w.Code, w.Body.String())
	}

	var count int64
	s.db.Model(&models.PunchRecord{}).Count(&count)
	if count != 2 {
		t.Errorf("punches stored = %d, want 2", count)
	}
}

func TestCommandRoundTrip(t *testing.T) {
	s := newTestServer(t)
	s.do(http.MethodGet, "/iclock/cdata?SN=GATE02", "", "", false)

	var device models.Device
	if err := s.db.Where("serial_number = ?", "GATE02").First(&device).Error; err != nil {
		t.Fatal(err)
	}
	w, env := s.api(http.MethodPost, fmt.Sprintf("/api/devices/%d/commands", device.ID), map[string]string{"kind": "reboot"})
	if w.Code != http.StatusOK {
		t.Fatalf("enqueue: %d %s", w.Code, w.Body.String())
	}
	var cmd models.Command
	json.Unmarshal(env.Data, &cmd)

	w = s.do(http.MethodGet, "/iclock/getrequest?SN=GATE02", "", "", false)
	if want := fmt.Sprintf("C:%d:REBOOT", cmd.ID); w.Body.String() != want {
		t.Fatalf("poll = %q, want %q", w.Body.String(), want)
	}
	s.do(http.MethodPost, "/iclock/devicecmd?SN=GATE02", fmt.Sprintf("ID=%d&Return=0&CMD=REBOOT", cmd.ID), "text/plain", false)

	_, env = s.api(http.MethodGet, fmt.Sprintf("/api/commands/%d", cmd.ID), nil)
	var got models.Command
	json.Unmarshal(env.Data, &got)
	if got.Status != models.CommandExecuted {
		t.Errorf("status = %s", got.Status)
	}

	w, _ = s.api(http.MethodPost, fmt.Sprintf("/api/devices/%d/commands", device.ID), map[string]string{"kind": "format_disk"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("invalid kind: %d", w.Code)
	}
}

func TestAPIRequiresToken(t *testing.T) {
	s := newTestServer(t)
	for _, path := range []string{"/api/devices", "/api/punches", "/api/attendance", "/api/admins"} {
		w := s.do(http.MethodGet, path, "", "", false)
		if w.Code != http.StatusUnauthorized {
			t.Errorf("%s without token: %d", path, w.Code)
		}
	}
	if w := s.do(http.MethodGet, "/api/ping", "", "", false); w.Code != http.StatusOK {
		t.Errorf("ping: %d", w.Code)
	}
	if w := s.do(http.MethodPost, "/api/auth/login", `{"username":"admin","password":"wrong"}`, "application/json", false); w.Code != http.StatusUnauthorized {
		t.Errorf("bad login: %d", w.Code)
	}
}

func TestOperatorCannotManageConfigs(t *testing.T) {
	s := newTestServer(t)
	w, _ := s.api(http.MethodPost, "/api/admins", map[string]string{
		"username": "clerk", "password": "secret1", "role": "operator",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("create operator: %d %s", w.Code, w.Body.String())
	}
	s.token = s.login("clerk", "secret1")

	w, env := s.api(http.MethodGet, "/api/auth/me", nil)
	var me controllers.SessionInfo
	json.Unmarshal(env.Data, &me)
	if w.Code != http.StatusOK || me.Username != "clerk" || me.Role != "operator" || me.AdminID == 0 {
		t.Errorf("me: %d %+v", w.Code, me)
	}

	if w, _ := s.api(http.MethodGet, "/api/rule-configs", nil); w.Code != http.StatusOK {
		t.Errorf("list configs: %d", w.Code)
	}
	w = s.do(http.MethodPost, "/api/rule-configs/import?activate=true", "name: x\n", "application/x-yaml", true)
	if w.Code != http.StatusForbidden {
		t.Errorf("import as operator: %d", w.Code)
	}
}

func TestDeviceRegistrationAndSyncValidation(t *testing.T) {
	s := newTestServer(t)

	w, env := s.api(http.MethodPost, "/api/devices", map[string]interface{}{
		"serial_number": "TCP01", "connection_type": "tcp", "ip_address": "192.168.1.50",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("register: %d %s", w.Code, w.Body.String())
	}
	var tcp models.Device
	json.Unmarshal(env.Data, &tcp)

	if w, _ := s.api(http.MethodPost, "/api/devices", map[string]interface{}{"serial_number": "TCP01", "connection_type": "adms"}); w.Code != http.StatusBadRequest {
		t.Errorf("duplicate serial: %d", w.Code)
	}
	if w, _ := s.api(http.MethodPost, "/api/devices", map[string]interface{}{"serial_number": "TCP02", "connection_type": "tcp"}); w.Code != http.StatusBadRequest {
		t.Errorf("tcp device without ip: %d", w.Code)
	}

	// TCP 设备不接受推送命令
	if w, _ := s.api(http.MethodPost, fmt.Sprintf("/api/devices/%d/commands", tcp.ID), map[string]string{"kind": "reboot"}); w.Code != http.StatusBadRequest {
		t.Errorf("push command on tcp device: %d", w.Code)
	}

	s.do(http.MethodGet, "/iclock/cdata?SN=PUSH01", "", "", false)
	var push models.Device
	s.db.Where("serial_number = ?", "PUSH01").First(&push)
	if w, _ := s.api(http.MethodPost, fmt.Sprintf("/api/devices/%d/sync", push.ID), map[string]string{"sync_type": "users"}); w.Code != http.StatusBadRequest {
		t.Errorf("pull sync on push device: %d", w.Code)
	}
	if w, _ := s.api(http.MethodGet, "/api/devices/9999", nil); w.Code != http.StatusNotFound {
		t.Errorf("missing device: %d", w.Code)
	}
}

func TestAttendanceGenerateEndpoint(t *testing.T) {
	s := newTestServer(t)
	s.db.Create(&models.Shift{Code: "GEN", StartTime: "09:00", EndTime: "18:00", BreakMinutes: 60})
	gen := "GEN"
	s.db.Create(&models.Employee{SubjectID: "E1", Scope: "default", DefaultShiftCode: &gen, ExpectedHours: 8, IsActive: true})

	w, env := s.api(http.MethodPost, "/api/attendance/generate", map[string]string{
		"start_date": "2024-03-05", "end_date": "2024-03-06",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("generate: %d %s", w.Code, w.Body.String())
	}
	var data struct {
		Result  services.BatchResult `json:"result"`
		Message string               `json:"message"`
	}
	json.Unmarshal(env.Data, &data)
	if data.Result.Generated != 2 || data.Message != "Generated 2, Updated 0" {
		t.Errorf("data = %+v", data)
	}

	if w, _ := s.api(http.MethodPost, "/api/attendance/generate", map[string]string{"start_date": "2024-03-06", "end_date": "2024-03-05"}); w.Code != http.StatusBadRequest {
		t.Errorf("reversed range: %d", w.Code)
	}

	_, env = s.api(http.MethodGet, "/api/attendance?subject_id=E1", nil)
	var page struct {
		List       []models.AttendanceRecord `json:"list"`
		Pagination struct {
			Total int64 `json:"total"`
		} `json:"pagination"`
	}
	json.Unmarshal(env.Data, &page)
	if page.Pagination.Total != 2 || page.List[0].Status != models.StatusAbsent {
		t.Errorf("page = %+v", page)
	}
}
