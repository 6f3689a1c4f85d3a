package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/oleeahmmed/hrm/internal/domain/models"
	"github.com/oleeahmmed/hrm/internal/domain/zk"
	"github.com/oleeahmmed/hrm/internal/infrastructure/clock"
	"github.com/oleeahmmed/hrm/internal/infrastructure/config"
	"github.com/oleeahmmed/hrm/internal/infrastructure/database"
)

// 2024-03-05 is a Tuesday
var tuesday = time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)

func at(day time.Time, hh, mm int) time.Time {
	return day.Add(time.Duration(hh)*time.Hour + time.Duration(mm)*time.Minute)
}

func testConfig() *config.Config {
	return &config.Config{
		DefaultScope:         "default",
		Timezone:             "UTC",
		ADMSErrorDelay:       30,
		ADMSDelay:            10,
		ADMSTimeZone:         6,
		ADMSTransFlag:        "TransData AttLog OpLog",
		ADMSServerVersion:    "2.4.1",
		ADMSPushVersion:      "2.4.1",
		PullTimeout:          time.Second,
		CommandTimeout:       30 * time.Minute,
		BatchLockTTL:         time.Minute,
		JWTSecretKey:         "test-secret",
		DefaultAdminPassword: "Admin@123",
	}
}

// recordingNotifier 记录发布的事件
type recordingNotifier struct {
	mu     sync.Mutex
	events []string
}

func (n *recordingNotifier) Connect() error            { return nil }
func (n *recordingNotifier) Disconnect()               {}
func (n *recordingNotifier) IsConnected() bool         { return false }
func (n *recordingNotifier) Topic(event string) string { return "test/" + event }

func (n *recordingNotifier) Publish(event string, payload interface{}) {
	n.mu.Lock()
	n.events = append(n.events, event)
	n.mu.Unlock()
}

func (n *recordingNotifier) count(event string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	c := 0
	for _, e := range n.events {
		if e == event {
			c++
		}
	}
	return c
}

// fakeSession 内存中的考勤机
type fakeSession struct {
	info       zk.Info
	users      []zk.User
	records    []zk.Attendance
	failAfter  string // "users" / "attendance": 该步骤返回连接错误
	restarted  bool
	timeSet    time.Time
	cleared    bool
	closed     bool
	closeCount int
}

var errLinkDown = errors.New("connection reset by peer")

func (s *fakeSession) Info(ctx context.Context) (zk.Info, error) { return s.info, nil }

func (s *fakeSession) Users(ctx context.Context) ([]zk.User, error) {
	if s.failAfter == "users" {
		return nil, errLinkDown
	}
	return s.users, nil
}

func (s *fakeSession) Attendance(ctx context.Context) ([]zk.Attendance, error) {
	if s.failAfter == "attendance" {
		return nil, errLinkDown
	}
	return s.records, nil
}

func (s *fakeSession) Restart(ctx context.Context) error { s.restarted = true; return nil }

func (s *fakeSession) SetTime(ctx context.Context, t time.Time) error { s.timeSet = t; return nil }

func (s *fakeSession) ClearAttendance(ctx context.Context) error { s.cleared = true; return nil }

func (s *fakeSession) Close() error { s.closed = true; s.closeCount++; return nil }

// fakeDialer 返回同一个会话，dialErr 非空时拨号失败
type fakeDialer struct {
	session *fakeSession
	dialErr error
	targets []zk.Target
}

func (d *fakeDialer) Dial(ctx context.Context, target zk.Target) (zk.Session, error) {
	d.targets = append(d.targets, target)
	if d.dialErr != nil {
		return nil, d.dialErr
	}
	return d.session, nil
}

type fixture struct {
	db       *gorm.DB
	cfg      *config.Config
	clock    *clock.FakeClock
	notifier *recordingNotifier
	dialer   *fakeDialer

	registry   InterfaceRegistryService
	ledger     InterfaceLedgerService
	directory  InterfaceDirectoryService
	commands   InterfaceCommandService
	gateway    InterfaceGatewayService
	pull       InterfacePullSyncService
	ruleConfig InterfaceRuleConfigService
	attendance InterfaceAttendanceService
	overtime   InterfaceOvertimeService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := database.OpenMemory()
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	f := &fixture{
		db:       db,
		cfg:      testConfig(),
		clock:    clock.Fake(at(tuesday, 12, 0)),
		notifier: &recordingNotifier{},
		dialer:   &fakeDialer{session: &fakeSession{}},
	}
	f.registry = NewRegistryService(db, f.cfg, f.clock, nil, f.notifier)
	f.ledger = NewLedgerService(db, f.cfg)
	f.directory = NewDirectoryService(db, f.cfg)
	f.commands = NewCommandService(db, f.cfg, f.clock, f.notifier)
	f.gateway = NewGatewayService(f.cfg, f.clock, f.registry, f.ledger, f.directory, f.commands, f.notifier)
	f.pull = NewPullSyncService(db, f.cfg, f.clock, f.dialer, f.registry, f.ledger, f.directory, f.notifier)
	f.ruleConfig = NewRuleConfigService(db, f.cfg)
	f.attendance = NewAttendanceService(db, f.cfg, f.clock, f.ruleConfig, f.ledger, f.notifier, nil)
	f.overtime = NewOvertimeService(db, f.cfg, f.clock, f.ruleConfig, f.notifier, nil)
	return f
}

func (f *fixture) device(t *testing.T, serial string, conn models.ConnectionType) *models.Device {
	t.Helper()
	d := &models.Device{SerialNumber: serial, ConnectionType: conn, IPAddress: "192.168.1.201"}
	if err := f.registry.Register(d); err != nil {
		t.Fatalf("register %s: %v", serial, err)
	}
	return d
}

func strPtr(s string) *string { return &s }
