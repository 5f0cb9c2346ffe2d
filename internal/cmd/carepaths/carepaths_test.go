package carepaths

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"google.golang.org/grpc/codes"

	apperrors "github.com/louisbranch/carepaths/internal/platform/errors"
)

const wlmScript = `actor_id: clinic
commands:
  - type: start_path
    path_type: wlm
    professional_id: nt-1
    professional_role: nutritionist
  - type: schedule_session
    path_type: wlm
    start_at: 2025-12-02T09:00:00Z
  - type: schedule_session
    path_type: wlm
    start_at: 2025-12-01T09:00:00Z
  - type: add_another_professional
    path_type: wlm
    professional_id: dt-1
    professional_role: dietitian
  - type: add_another_professional
    path_type: wlm
    professional_id: dt-2
    professional_role: dietitian
`

func writeScript(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "script.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write script: %v", err)
	}
	return path
}

func sqliteConfig(t *testing.T, mode string) Config {
	t.Helper()
	dir := t.TempDir()
	return Config{
		Store:       StoreSQLite,
		EventsDB:    filepath.Join(dir, "data", "events.db"),
		SnapshotsDB: filepath.Join(dir, "data", "snapshots.db"),
		Mode:        mode,
		LogLevel:    "disabled",
		LogFormat:   "json",
	}
}

func run(t *testing.T, cfg Config, args ...string) (string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	err := Run(context.Background(), cfg, args, &stdout, &stderr)
	return stdout.String(), err
}

func showState(t *testing.T, cfg Config, patientID string) patientView {
	t.Helper()
	out, err := run(t, cfg, "show", patientID)
	if err != nil {
		t.Fatalf("show: %v", err)
	}
	var view patientView
	if err := json.Unmarshal([]byte(out), &view); err != nil {
		t.Fatalf("decode show output: %v\n%s", err, out)
	}
	return view
}

func TestApplyShowHistoryPurge(t *testing.T) {
	cfg := sqliteConfig(t, ModeBoth)
	scriptPath := writeScript(t, wlmScript)

	out, err := run(t, cfg, "apply", "patient-1", scriptPath)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if !strings.Contains(out, "4 accepted, 1 rejected") {
		t.Fatalf("apply output missing summary:\n%s", out)
	}
	if !strings.Contains(out, "MAX_PROFESSIONALS_REACHED") {
		t.Fatalf("apply output missing rejection code:\n%s", out)
	}

	view := showState(t, cfg, "patient-1")
	if view.PatientID != "patient-1" {
		t.Fatalf("patient id = %q", view.PatientID)
	}
	if len(view.State.Paths) != 1 {
		t.Fatalf("paths = %d, want 1", len(view.State.Paths))
	}
	path := view.State.Paths[0]
	if len(path.Professionals) != 2 || len(path.Sessions) != 2 {
		t.Fatalf("path = %+v", path)
	}
	for _, session := range path.Sessions {
		want := 1
		if session.StartAt.Day() == 2 {
			want = 2
		}
		if session.Sequence != want {
			t.Fatalf("session %s sequence = %d, want %d", session.StartAt, session.Sequence, want)
		}
	}
	// start, two schedules (one with a resequence), one professional.
	if view.LastSeq != 5 {
		t.Fatalf("last seq = %d, want 5", view.LastSeq)
	}

	history, err := run(t, cfg, "history", "patient-1")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	for _, want := range []string{"path.started", "path.session_scheduled", "path.sessions_sequence_changed", "path.professional_added"} {
		if !strings.Contains(history, want) {
			t.Fatalf("history missing %s:\n%s", want, history)
		}
	}

	listed, err := run(t, cfg, "list")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if listed != "patient-1\n" {
		t.Fatalf("list output = %q", listed)
	}

	if _, err := run(t, cfg, "purge", "patient-1"); err != nil {
		t.Fatalf("purge: %v", err)
	}
	view = showState(t, cfg, "patient-1")
	if len(view.State.Paths) != 0 || view.LastSeq != 0 {
		t.Fatalf("state after purge = %+v", view)
	}
}

func TestApplySnapshotsOnlyMatchesEventsOnly(t *testing.T) {
	scriptPath := writeScript(t, wlmScript)
	eventsCfg := sqliteConfig(t, ModeEvents)
	snapshotsCfg := sqliteConfig(t, ModeSnapshots)

	for _, cfg := range []Config{eventsCfg, snapshotsCfg} {
		if _, err := run(t, cfg, "apply", "patient-1", scriptPath); err != nil {
			t.Fatalf("apply (%s): %v", cfg.Mode, err)
		}
	}
	fromEvents := showState(t, eventsCfg, "patient-1")
	fromSnapshots := showState(t, snapshotsCfg, "patient-1")

	if len(fromEvents.State.Paths) != 1 || len(fromSnapshots.State.Paths) != 1 {
		t.Fatalf("paths: events %d, snapshots %d", len(fromEvents.State.Paths), len(fromSnapshots.State.Paths))
	}
	a, b := fromEvents.State.Paths[0], fromSnapshots.State.Paths[0]
	if len(a.Sessions) != len(b.Sessions) || len(a.Professionals) != len(b.Professionals) {
		t.Fatalf("events path %+v, snapshots path %+v", a, b)
	}
	if fromEvents.LastSeq != fromSnapshots.LastSeq {
		t.Fatalf("last seq: events %d, snapshots %d", fromEvents.LastSeq, fromSnapshots.LastSeq)
	}
}

func TestHistoryRequiresEventLog(t *testing.T) {
	cfg := sqliteConfig(t, ModeSnapshots)
	if _, err := run(t, cfg, "history", "patient-1"); err == nil {
		t.Fatal("expected error without an event log")
	}
}

func TestApplyStopOnReject(t *testing.T) {
	cfg := Config{Store: StoreMemory, Mode: ModeBoth, LogLevel: "disabled", LogFormat: "json"}
	scriptPath := writeScript(t, wlmScript)

	out, err := run(t, cfg, "apply", "--stop-on-reject", "patient-1", scriptPath)
	if !errors.Is(err, errRejected) {
		t.Fatalf("expected rejection error, got %v", err)
	}
	if !strings.Contains(out, "MAX_PROFESSIONALS_REACHED") {
		t.Fatalf("output missing rejection:\n%s", out)
	}
	if code := apperrors.CodeOf(err); code != apperrors.CodeMaxProfessionalsReached {
		t.Fatalf("code = %s", code)
	}
	if got := apperrors.MetadataOf(err)["command_index"]; got != "5" {
		t.Fatalf("command_index = %q, want 5", got)
	}
}

func TestMainReturnsExitStatusAndLogsError(t *testing.T) {
	t.Setenv("CAREPATHS_OTEL_ENDPOINT", "")
	cfg := Config{Store: StoreMemory, Mode: ModeBoth, LogLevel: "info", LogFormat: "json"}
	scriptPath := writeScript(t, wlmScript)

	var stdout, stderr bytes.Buffer
	status := Main(context.Background(), cfg, []string{"apply", "--stop-on-reject", "patient-1", scriptPath}, &stdout, &stderr)
	if status != int(codes.FailedPrecondition) {
		t.Fatalf("status = %d, want %d", status, codes.FailedPrecondition)
	}
	for _, want := range []string{`"code":"MAX_PROFESSIONALS_REACHED"`, `"command_index":"5"`, `"command_type":"path.add_professional"`, "carepaths: command 5"} {
		if !strings.Contains(stderr.String(), want) {
			t.Fatalf("stderr missing %s:\n%s", want, stderr.String())
		}
	}
	if !strings.Contains(stdout.String(), "FailedPrecondition") {
		t.Fatalf("stdout missing status column:\n%s", stdout.String())
	}

	stdout.Reset()
	stderr.Reset()
	if status := Main(context.Background(), cfg, []string{"apply", "patient-1", scriptPath}, &stdout, &stderr); status != 0 {
		t.Fatalf("status = %d, want 0\n%s", status, stderr.String())
	}
}

func TestReportError(t *testing.T) {
	if status := ReportError(context.Background(), nil); status != 0 {
		t.Fatalf("nil status = %d", status)
	}
	if status := ReportError(context.Background(), errors.New("disk full")); status != 1 {
		t.Fatalf("plain status = %d", status)
	}
	err := fmt.Errorf("load: %w", apperrors.New(apperrors.CodeSequenceConflict, "conflict"))
	if status := ReportError(context.Background(), err); status != int(codes.Aborted) {
		t.Fatalf("conflict status = %d", status)
	}
}

func TestApplyRejectsBadScript(t *testing.T) {
	cfg := Config{Store: StoreMemory, Mode: ModeBoth, LogLevel: "disabled", LogFormat: "json"}
	scriptPath := writeScript(t, "commands:\n  - type: teleport\n")

	if _, err := run(t, cfg, "apply", "patient-1", scriptPath); err == nil {
		t.Fatal("expected script error")
	}
}

func TestFlagsOverrideConfig(t *testing.T) {
	cfg := Config{Store: "postgres", Mode: ModeBoth, LogLevel: "disabled", LogFormat: "json"}
	scriptPath := writeScript(t, wlmScript)

	if _, err := run(t, cfg, "apply", "patient-1", scriptPath); err == nil {
		t.Fatal("expected invalid store error")
	}
	if _, err := run(t, cfg, "--store", "memory", "apply", "patient-1", scriptPath); err != nil {
		t.Fatalf("apply with flag override: %v", err)
	}
}

func TestMetricsServerServesDuringRun(t *testing.T) {
	cfg := Config{Store: StoreMemory, Mode: ModeBoth, LogLevel: "disabled", LogFormat: "json", MetricsAddr: "127.0.0.1:0"}
	rt, err := openRuntime(context.Background(), cfg, nopLogger())
	if err != nil {
		t.Fatalf("open runtime: %v", err)
	}
	if rt.server == nil {
		t.Fatal("expected metrics server")
	}
	if err := rt.close(); err != nil {
		t.Fatalf("close runtime: %v", err)
	}
}

func nopLogger() zerolog.Logger {
	return zerolog.Nop()
}
