package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/mmeshcher/skriptendruck-system/internal/binding"
	"github.com/mmeshcher/skriptendruck-system/internal/document"
	"github.com/mmeshcher/skriptendruck-system/internal/layout"
	"github.com/mmeshcher/skriptendruck-system/internal/model"
	"github.com/mmeshcher/skriptendruck-system/internal/pricing"
	"github.com/mmeshcher/skriptendruck-system/internal/users"
)

type stubResolver struct {
	records map[string]*model.UserRecord
	blocked map[string]bool
}

func (s *stubResolver) Resolve(_ context.Context, ownerID string) (*model.UserRecord, error) {
	if s.blocked[ownerID] {
		return nil, users.ErrBlocked
	}
	if r, ok := s.records[ownerID]; ok {
		return r, nil
	}
	return nil, users.ErrNotFound
}

type stubInspector struct {
	pages     int
	protected bool
	err       error
}

func (s *stubInspector) Inspect(_ context.Context, _ string) (document.Info, error) {
	if s.err != nil {
		return document.Info{}, s.err
	}
	return document.Info{PageCount: s.pages, PasswordProtected: s.protected}, nil
}

type stubAssembler struct {
	mu        sync.Mutex
	calls     int
	failFirst int
	failAll   bool
}

func (s *stubAssembler) Assemble(_ context.Context, _ document.CoverData, _, outPath string) error {
	s.mu.Lock()
	s.calls++
	n := s.calls
	s.mu.Unlock()

	if s.failAll || n <= s.failFirst {
		return errors.New("renderer crashed")
	}
	return os.WriteFile(outPath, []byte("assembled"), 0o644)
}

type memStore struct {
	mu     sync.Mutex
	orders map[string]*model.Order
}

func newMemStore() *memStore {
	return &memStore{orders: map[string]*model.Order{}}
}

func (s *memStore) SaveOrder(o *model.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.orders[o.Identity()]; !ok {
		s.orders[o.Identity()] = o
	}
	return nil
}

type env struct {
	proc   *Processor
	layout *layout.Layout
	base   string
	store  *memStore
}

func defaultRecords() map[string]*model.UserRecord {
	return map[string]*model.UserRecord{
		"abc12345": {OwnerID: "abc12345", GivenName: "Max", FamilyName: "Mustermann", OrgUnit: "Maschinenbau"},
	}
}

func newEnv(t *testing.T, resolver Resolver, inspector document.Inspector, assembler document.Assembler) *env {
	t.Helper()

	base := t.TempDir()
	l := layout.New(base, time.Now())
	if err := l.EnsureStructure(); err != nil {
		t.Fatalf("EnsureStructure error: %v", err)
	}

	store := newMemStore()
	proc := NewProcessor(
		resolver, inspector, assembler,
		binding.Default(), pricing.NewCalculator(pricing.DefaultRates()),
		l, store, t.TempDir(), zap.NewNop().Sugar(),
	)
	return &env{proc: proc, layout: l, base: base, store: store}
}

func (e *env) writeInput(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(e.layout.InputDir(), name)
	if err := os.WriteFile(path, []byte("%PDF-1.4 stub"), 0o644); err != nil {
		t.Fatalf("write input: %v", err)
	}
	return path
}

func fileExists(t *testing.T, path string) bool {
	t.Helper()
	_, err := os.Stat(path)
	if err != nil && !os.IsNotExist(err) {
		t.Fatalf("stat %s: %v", path, err)
	}
	return err == nil
}

func TestProcess_HappyPath(t *testing.T) {
	e := newEnv(t,
		&stubResolver{records: defaultRecords()},
		&stubInspector{pages: 50},
		&stubAssembler{},
	)
	src := e.writeInput(t, "abc12345_sw_mb_001.pdf")

	o := e.proc.Process(context.Background(), 1, src)

	if o.Status != model.StatusPlaced {
		t.Fatalf("status = %s (%s: %s), want PLACED", o.Status, o.Reason, o.FailureDetail)
	}
	if o.PageCount != 50 {
		t.Fatalf("pages = %d, want 50", o.PageCount)
	}
	if o.Price == nil || o.Price.Total != 3.00 || o.Price.AfterDeposit != 2.00 {
		t.Fatalf("unexpected price: %+v", o.Price)
	}
	if o.Tier == nil || o.Tier.DiameterMM != 8 {
		t.Fatalf("unexpected tier: %+v", o.Tier)
	}

	wantOutput := filepath.Join(e.base, "02_Druckfertig", "sw", "0001_abc12345_sw_mb_001.pdf")
	if o.OutputPath != wantOutput {
		t.Fatalf("output = %s, want %s", o.OutputPath, wantOutput)
	}
	if !fileExists(t, wantOutput) {
		t.Fatalf("placed artifact missing: %s", wantOutput)
	}
	if !fileExists(t, o.BackupPath) {
		t.Fatalf("backup missing: %s", o.BackupPath)
	}
	if fileExists(t, src) {
		t.Fatalf("source still in input dir after placement")
	}
	if _, ok := e.store.orders[o.Identity()]; !ok {
		t.Fatalf("terminal record not persisted")
	}
}

func TestProcess_ColorOrderGoesToColorDir(t *testing.T) {
	e := newEnv(t,
		&stubResolver{records: defaultRecords()},
		&stubInspector{pages: 10},
		&stubAssembler{},
	)
	src := e.writeInput(t, "abc12345_farbig_ob_002.pdf")

	o := e.proc.Process(context.Background(), 2, src)

	if o.Status != model.StatusPlaced {
		t.Fatalf("status = %s, want PLACED", o.Status)
	}
	if got, want := filepath.Dir(o.OutputPath), filepath.Join(e.base, "02_Druckfertig", "farbig"); got != want {
		t.Fatalf("output dir = %s, want %s", got, want)
	}
	if o.Price.Total != 1.00 {
		t.Fatalf("total = %v, want 1.00", o.Price.Total)
	}
}

func TestProcess_RejectionRouting(t *testing.T) {
	tests := []struct {
		name      string
		file      string
		resolver  *stubResolver
		inspector *stubInspector
		reason    model.RejectReason
		dir       string
	}{
		{
			name:      "malformed name",
			file:      "kaputt.pdf",
			resolver:  &stubResolver{records: defaultRecords()},
			inspector: &stubInspector{pages: 10},
			reason:    model.ReasonMalformedName,
			dir:       "sonstige",
		},
		{
			name:      "user not found",
			file:      "zzz99999_sw_mb_001.pdf",
			resolver:  &stubResolver{records: defaultRecords()},
			inspector: &stubInspector{pages: 10},
			reason:    model.ReasonUserNotFound,
			dir:       "benutzer_nicht_gefunden",
		},
		{
			name:      "user blocked",
			file:      "abc12345_sw_mb_001.pdf",
			resolver:  &stubResolver{records: defaultRecords(), blocked: map[string]bool{"abc12345": true}},
			inspector: &stubInspector{pages: 10},
			reason:    model.ReasonUserBlocked,
			dir:       "gesperrt",
		},
		{
			name:      "password protected",
			file:      "abc12345_sw_mb_001.pdf",
			resolver:  &stubResolver{records: defaultRecords()},
			inspector: &stubInspector{protected: true},
			reason:    model.ReasonPasswordProtected,
			dir:       "passwortgeschuetzt",
		},
		{
			name:      "unreadable document",
			file:      "abc12345_sw_mb_001.pdf",
			resolver:  &stubResolver{records: defaultRecords()},
			inspector: &stubInspector{err: document.ErrUnreadable},
			reason:    model.ReasonUnreadableDocument,
			dir:       "sonstige",
		},
		{
			name:      "empty document",
			file:      "abc12345_sw_mb_001.pdf",
			resolver:  &stubResolver{records: defaultRecords()},
			inspector: &stubInspector{pages: 0},
			reason:    model.ReasonEmptyDocument,
			dir:       "zu_wenig_seiten",
		},
		{
			name:      "too many pages",
			file:      "abc12345_sw_mb_001.pdf",
			resolver:  &stubResolver{records: defaultRecords()},
			inspector: &stubInspector{pages: 700},
			reason:    model.ReasonTooManyPages,
			dir:       "zu_viele_seiten",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEnv(t, tt.resolver, tt.inspector, &stubAssembler{})
			src := e.writeInput(t, tt.file)

			o := e.proc.Process(context.Background(), 1, src)

			if o.Status != model.StatusRejected || o.Reason != tt.reason {
				t.Fatalf("got %s/%s, want REJECTED/%s", o.Status, o.Reason, tt.reason)
			}
			want := filepath.Join(e.base, "04_Fehler", tt.dir, tt.file)
			if o.QuarantinePath != want {
				t.Fatalf("quarantine = %s, want %s", o.QuarantinePath, want)
			}
			if !fileExists(t, want) {
				t.Fatalf("source not moved to quarantine")
			}
			if fileExists(t, src) {
				t.Fatalf("source still in input dir after rejection")
			}
		})
	}
}

// Одна повторная попытка сборки перед терминальным отказом.
func TestProcess_AssemblyRetriedOnce(t *testing.T) {
	asm := &stubAssembler{failFirst: 1}
	e := newEnv(t, &stubResolver{records: defaultRecords()}, &stubInspector{pages: 50}, asm)
	src := e.writeInput(t, "abc12345_sw_mb_001.pdf")

	o := e.proc.Process(context.Background(), 1, src)

	if o.Status != model.StatusPlaced {
		t.Fatalf("status = %s, want PLACED after retry", o.Status)
	}
	if asm.calls != 2 {
		t.Fatalf("assembler calls = %d, want 2", asm.calls)
	}
}

func TestProcess_AssemblyFailsAfterRetry(t *testing.T) {
	asm := &stubAssembler{failAll: true}
	e := newEnv(t, &stubResolver{records: defaultRecords()}, &stubInspector{pages: 50}, asm)
	src := e.writeInput(t, "abc12345_sw_mb_001.pdf")

	o := e.proc.Process(context.Background(), 1, src)

	if o.Status != model.StatusRejected || o.Reason != model.ReasonAssemblyFailed {
		t.Fatalf("got %s/%s, want REJECTED/ASSEMBLY_FAILED", o.Status, o.Reason)
	}
	if asm.calls != 2 {
		t.Fatalf("assembler calls = %d, want exactly 2", asm.calls)
	}
	if !fileExists(t, filepath.Join(e.base, "04_Fehler", "sonstige", "abc12345_sw_mb_001.pdf")) {
		t.Fatalf("source not quarantined after assembly failure")
	}
}

// Недоступный исходник не принимается за уже перемещённый: карантин
// пропускается без попытки переноса, заказ остаётся терминальным.
func TestProcess_QuarantineSkippedForUnreachableSource(t *testing.T) {
	e := newEnv(t,
		&stubResolver{records: defaultRecords()},
		&stubInspector{pages: 10},
		&stubAssembler{},
	)

	blocker := filepath.Join(t.TempDir(), "blocker")
	if err := os.WriteFile(blocker, []byte("not a dir"), 0o644); err != nil {
		t.Fatalf("write blocker: %v", err)
	}
	// Родитель пути — обычный файл, Stat отвечает не "нет файла".
	src := filepath.Join(blocker, "kaputt.pdf")

	o := e.proc.Process(context.Background(), 1, src)

	if o.Status != model.StatusRejected || o.Reason != model.ReasonMalformedName {
		t.Fatalf("got %s/%s, want REJECTED/MALFORMED_NAME", o.Status, o.Reason)
	}
	if o.QuarantinePath != "" {
		t.Fatalf("quarantine path = %q for unreachable source", o.QuarantinePath)
	}
	entries, err := os.ReadDir(filepath.Join(e.base, "04_Fehler", "sonstige"))
	if err != nil {
		t.Fatalf("read quarantine dir: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("unexpected quarantine entries: %v", entries)
	}
}

type failingPlacer struct {
	*layout.Layout
}

func (f *failingPlacer) PlaceFinal(_ string, _ model.ColorMode, _ string) (string, error) {
	return "", errors.New("disk full")
}

// Сбой размещения терминален, собранный артефакт остаётся в рабочем
// каталоге для ручного восстановления.
func TestProcess_PlacementFailureKeepsArtifact(t *testing.T) {
	base := t.TempDir()
	workDir := t.TempDir()
	l := layout.New(base, time.Now())
	if err := l.EnsureStructure(); err != nil {
		t.Fatalf("EnsureStructure error: %v", err)
	}

	proc := NewProcessor(
		&stubResolver{records: defaultRecords()},
		&stubInspector{pages: 50},
		&stubAssembler{},
		binding.Default(), pricing.NewCalculator(pricing.DefaultRates()),
		&failingPlacer{Layout: l}, newMemStore(), workDir, zap.NewNop().Sugar(),
	)

	src := filepath.Join(l.InputDir(), "abc12345_sw_mb_001.pdf")
	if err := os.WriteFile(src, []byte("stub"), 0o644); err != nil {
		t.Fatalf("write input: %v", err)
	}

	o := proc.Process(context.Background(), 9, src)

	if o.Status != model.StatusRejected || o.Reason != model.ReasonPlacementFailed {
		t.Fatalf("got %s/%s, want REJECTED/PLACEMENT_FAILED", o.Status, o.Reason)
	}
	if !fileExists(t, filepath.Join(workDir, "0009_abc12345_sw_mb_001.pdf")) {
		t.Fatalf("assembled artifact was not kept for manual recovery")
	}
}
