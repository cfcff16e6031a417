package services

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/fabwatch/fabwatch-backend/internal/db"
	"github.com/fabwatch/fabwatch-backend/internal/logger"
	"github.com/fabwatch/fabwatch-backend/internal/repos"
	"github.com/fabwatch/fabwatch-backend/internal/sse"
	"github.com/fabwatch/fabwatch-backend/internal/types"
)

// testEnv wires the full service stack over an in-memory sqlite database so
// the detection, lifecycle, and acknowledgment flows run against real SQL.
type testEnv struct {
	db              *gorm.DB
	characteristics CharacteristicService
	samples         SampleService
	limits          LimitsService
	violations      ViolationService
	annotations     AnnotationService
	charts          ChartService
	detector        DetectorService
	violationRepo   repos.ViolationRepo
	sampleRepo      repos.SampleRepo
	events          *recordingEmitter
}

// recordingEmitter captures outbound dashboard events for assertions.
type recordingEmitter struct {
	messages []sse.SSEMessage
}

func (e *recordingEmitter) Emit(_ context.Context, msg sse.SSEMessage) {
	e.messages = append(e.messages, msg)
}

func (e *recordingEmitter) countByEvent(event sse.SSEEvent) int {
	n := 0
	for _, m := range e.messages {
		if m.Event == event {
			n++
		}
	}
	return n
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	gormDB, err := gorm.Open(sqlite.Open("file::memory:?cache=shared&_fk=1"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("sqlite open: %v", err)
	}
	if err := db.AutoMigrate(gormDB); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() {
		for _, table := range []string{"annotation", "violation", "control_limits", "sample_edit", "sample", "characteristic"} {
			gormDB.Exec("DELETE FROM " + table)
		}
	})

	characteristicRepo := repos.NewCharacteristicRepo(gormDB, log)
	sampleRepo := repos.NewSampleRepo(gormDB, log)
	sampleEditRepo := repos.NewSampleEditRepo(gormDB, log)
	controlLimitsRepo := repos.NewControlLimitsRepo(gormDB, log)
	violationRepo := repos.NewViolationRepo(gormDB, log)
	annotationRepo := repos.NewAnnotationRepo(gormDB, log)

	events := &recordingEmitter{}
	notifier := NewChartNotifier(events)
	locker := NewCharacteristicLocker()
	detector := NewDetectorService(gormDB, log, sampleRepo, controlLimitsRepo, violationRepo)
	sampleService := NewSampleService(gormDB, log, locker, characteristicRepo, sampleRepo, sampleEditRepo, detector, notifier)

	return &testEnv{
		db:              gormDB,
		characteristics: NewCharacteristicService(gormDB, log, characteristicRepo),
		samples:         sampleService,
		limits:          NewLimitsService(gormDB, log, locker, characteristicRepo, sampleRepo, controlLimitsRepo, notifier, 100, 20),
		violations:      NewViolationService(gormDB, log, violationRepo, sampleRepo, sampleService),
		annotations:     NewAnnotationService(gormDB, log, characteristicRepo, sampleRepo, annotationRepo),
		charts:          NewChartService(gormDB, log, characteristicRepo, sampleRepo, controlLimitsRepo, violationRepo, annotationRepo),
		detector:        detector,
		violationRepo:   violationRepo,
		sampleRepo:      sampleRepo,
		events:          events,
	}
}

func (env *testEnv) createCharacteristic(t *testing.T, subgroupSize int) *types.Characteristic {
	t.Helper()
	char, err := env.characteristics.Create(context.Background(), CharacteristicInput{
		Name:         fmt.Sprintf("cd-width-%s", uuid.NewString()[:8]),
		SubgroupSize: subgroupSize,
	})
	if err != nil {
		t.Fatalf("create characteristic: %v", err)
	}
	return char
}

// setManualLimits installs the CL 10 / UCL 11.5 / LCL 8.5 band used across
// the detection tests (zone width 0.5).
func (env *testEnv) setManualLimits(t *testing.T, characteristicID uuid.UUID) {
	t.Helper()
	if _, err := env.limits.Set(context.Background(), characteristicID, 10, 11.5, 8.5, 0.5); err != nil {
		t.Fatalf("set limits: %v", err)
	}
}

func (env *testEnv) submit(t *testing.T, characteristicID uuid.UUID, measurements ...float64) *SubmitResult {
	t.Helper()
	res, err := env.samples.Submit(context.Background(), characteristicID, measurements, nil)
	if err != nil {
		t.Fatalf("submit sample: %v", err)
	}
	return res
}

func (env *testEnv) listViolations(t *testing.T, characteristicID uuid.UUID, includeRetired bool) []*types.Violation {
	t.Helper()
	out, _, err := env.violations.List(context.Background(), repos.ViolationFilter{
		CharacteristicID: &characteristicID,
		IncludeRetired:   includeRetired,
	})
	if err != nil {
		t.Fatalf("list violations: %v", err)
	}
	return out
}
