package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kerhoff/liora/internal/agent"
	"github.com/Kerhoff/liora/internal/llm"
	"github.com/Kerhoff/liora/internal/metrics"
	"github.com/Kerhoff/liora/internal/models"
	"github.com/Kerhoff/liora/internal/onboarding"
	"github.com/Kerhoff/liora/internal/profile"
	"github.com/Kerhoff/liora/internal/repository"
	"github.com/Kerhoff/liora/pkg/logger"
)

type memProfiles struct {
	mu        sync.Mutex
	rows      map[string]models.Profile
	seq       int
	updateErr error
}

func newMemProfiles(profiles ...models.Profile) *memProfiles {
	m := &memProfiles{rows: make(map[string]models.Profile)}
	for _, p := range profiles {
		p.Version = 1
		m.rows[p.ID] = p
	}
	return m
}

func clone(p models.Profile) *models.Profile {
	p.ProfileData = profile.Merge(p.ProfileData, nil)
	return &p
}

func (m *memProfiles) Create(_ context.Context, p *models.Profile) (*models.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	p.ID = fmt.Sprintf("new-%d", m.seq)
	p.Version = 1
	m.rows[p.ID] = *clone(*p)
	return p, nil
}

func (m *memProfiles) GetByID(_ context.Context, id string) (*models.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.rows[id]
	if !ok {
		return nil, nil
	}
	return clone(p), nil
}

func (m *memProfiles) GetByTelegramID(_ context.Context, telegramID int64) (*models.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.rows {
		if p.TelegramID != nil && *p.TelegramID == telegramID {
			return clone(p), nil
		}
	}
	return nil, nil
}

func (m *memProfiles) GetByFamily(_ context.Context, familyID string) ([]*models.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Profile
	for _, p := range m.rows {
		if p.FamilyID != nil && *p.FamilyID == familyID {
			out = append(out, clone(p))
		}
	}
	return out, nil
}

func (m *memProfiles) Update(_ context.Context, p *models.Profile) (*models.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.updateErr != nil {
		return nil, m.updateErr
	}
	if m.rows[p.ID].Version != p.Version {
		return nil, repository.ErrVersionConflict
	}
	p.Version++
	m.rows[p.ID] = *clone(*p)
	return p, nil
}

type memFamilies struct {
	rows []*models.Family
}

func (m *memFamilies) Create(_ context.Context, f *models.Family) (*models.Family, error) {
	f.ID = fmt.Sprintf("family-%d", len(m.rows)+1)
	m.rows = append(m.rows, f)
	return f, nil
}

func (m *memFamilies) GetByID(_ context.Context, id string) (*models.Family, error) {
	for _, f := range m.rows {
		if f.ID == id {
			cp := *f
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memFamilies) GetByInviteCode(_ context.Context, code string) (*models.Family, error) {
	for _, f := range m.rows {
		if f.InviteCode == code {
			cp := *f
			return &cp, nil
		}
	}
	return nil, nil
}

type memSchedules struct {
	rows     []*models.ScheduleEntry
	reminded map[string]time.Time
}

func (m *memSchedules) Create(_ context.Context, entries []*models.ScheduleEntry) ([]*models.ScheduleEntry, error) {
	for _, e := range entries {
		e.ID = fmt.Sprintf("s%d", len(m.rows)+1)
		m.rows = append(m.rows, e)
	}
	return entries, nil
}

func (m *memSchedules) GetByID(_ context.Context, id string) (*models.ScheduleEntry, error) {
	for _, e := range m.rows {
		if e.ID == id {
			cp := *e
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memSchedules) GetByFamily(_ context.Context, familyID string, filters repository.ScheduleFilters) ([]*models.ScheduleEntry, error) {
	var out []*models.ScheduleEntry
	for _, e := range m.rows {
		if e.FamilyID != familyID {
			continue
		}
		if filters.Date != nil && e.Date != *filters.Date {
			continue
		}
		if filters.Status != nil && e.Status != *filters.Status {
			continue
		}
		cp := *e
		out = append(out, &cp)
	}
	return out, nil
}

func (m *memSchedules) Update(_ context.Context, entry *models.ScheduleEntry) (*models.ScheduleEntry, error) {
	for i, e := range m.rows {
		if e.ID == entry.ID {
			cp := *entry
			m.rows[i] = &cp
			return entry, nil
		}
	}
	return nil, nil
}

func (m *memSchedules) GetDue(_ context.Context, day string) ([]*models.ScheduleEntry, error) {
	var out []*models.ScheduleEntry
	for _, e := range m.rows {
		if _, done := m.reminded[e.ID]; done {
			continue
		}
		if e.Status == models.ScheduleStatusPending && e.Date <= day {
			cp := *e
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memSchedules) MarkReminded(_ context.Context, id string, at time.Time) error {
	if m.reminded == nil {
		m.reminded = make(map[string]time.Time)
	}
	m.reminded[id] = at
	return nil
}

type memVitals struct {
	rows []*models.Vital
}

func (m *memVitals) Create(_ context.Context, vitals []*models.Vital) ([]*models.Vital, error) {
	m.rows = append(m.rows, vitals...)
	return vitals, nil
}

func (m *memVitals) GetByUser(_ context.Context, userID string, limit int) ([]*models.Vital, error) {
	var out []*models.Vital
	for _, v := range m.rows {
		if v.UserID == userID && len(out) < limit {
			out = append(out, v)
		}
	}
	return out, nil
}

func (m *memVitals) LatestByType(_ context.Context, userID string, types []string) (map[string]*models.Vital, error) {
	latest := make(map[string]*models.Vital)
	for _, v := range m.rows {
		if v.UserID != userID || !slices.Contains(types, v.Type) {
			continue
		}
		if cur, ok := latest[v.Type]; !ok || v.RecordedAt.After(cur.RecordedAt) {
			latest[v.Type] = v
		}
	}
	return latest, nil
}

type memInventory struct {
	rows []*models.InventoryItem
}

func (m *memInventory) Create(_ context.Context, item *models.InventoryItem) (*models.InventoryItem, error) {
	item.ID = fmt.Sprintf("i%d", len(m.rows)+1)
	cp := *item
	m.rows = append(m.rows, &cp)
	return item, nil
}

func (m *memInventory) GetByID(_ context.Context, id string) (*models.InventoryItem, error) {
	for _, item := range m.rows {
		if item.ID == id {
			cp := *item
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memInventory) GetByFamily(_ context.Context, familyID string) ([]*models.InventoryItem, error) {
	var out []*models.InventoryItem
	for _, item := range m.rows {
		if item.FamilyID != nil && *item.FamilyID == familyID {
			cp := *item
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memInventory) GetByUser(_ context.Context, userID string) ([]*models.InventoryItem, error) {
	var out []*models.InventoryItem
	for _, item := range m.rows {
		if item.UserID == userID && item.FamilyID == nil {
			cp := *item
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memInventory) Update(_ context.Context, item *models.InventoryItem) (*models.InventoryItem, error) {
	for i, cur := range m.rows {
		if cur.ID == item.ID {
			cp := *item
			m.rows[i] = &cp
			return item, nil
		}
	}
	return nil, nil
}

func (m *memInventory) Delete(_ context.Context, id string) (bool, error) {
	for i, item := range m.rows {
		if item.ID == id {
			m.rows = append(m.rows[:i], m.rows[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

type stubOrchestrator struct {
	route  string
	reply  string
	update models.Update
	seen   agent.Context
}

func (s *stubOrchestrator) Route(string, agent.Context) string { return s.route }

func (s *stubOrchestrator) ProcessMessage(_ context.Context, _ string, c agent.Context, _ []llm.Attachment) (string, models.Update) {
	s.seen = c
	return s.reply, s.update
}

type fixture struct {
	svc       *Service
	profiles  *memProfiles
	families  *memFamilies
	schedules *memSchedules
	vitals    *memVitals
	inventory *memInventory
	orch      *stubOrchestrator
	metrics   *metrics.Metrics
}

func newFixture(profiles ...models.Profile) *fixture {
	f := &fixture{
		profiles:  newMemProfiles(profiles...),
		families:  &memFamilies{},
		schedules: &memSchedules{},
		vitals:    &memVitals{},
		inventory: &memInventory{},
		orch:      &stubOrchestrator{route: agent.NameOnboarding},
		metrics:   metrics.New(),
	}
	log := logger.Discard()
	applier := profile.NewApplier(f.profiles, f.families, onboarding.NewInviteCodes("LIORA"), profile.NewLocker(), log, f.metrics)
	f.svc = New(log, f.metrics, f.profiles, f.families, f.schedules, f.vitals, f.inventory, f.orch, applier)
	return f
}

func strPtr(s string) *string { return &s }

func TestChat_PersistsUpdate(t *testing.T) {
	f := newFixture(models.Profile{ID: "p1", ProfileData: map[string]any{"age": 30.0}})
	f.orch.reply = "Nice to meet you, John!"
	f.orch.update = models.Update{ProfileData: map[string]any{"name": "John"}}

	resp, err := f.svc.Chat(context.Background(), ChatRequest{UserID: "p1", Message: "I'm John"})
	require.NoError(t, err)

	assert.Equal(t, "Nice to meet you, John!", resp.Response)
	assert.Equal(t, agent.NameOnboarding, resp.Metadata.Agent)
	assert.Equal(t, "John", resp.Metadata.Updates.ProfileData["name"])
	assert.Equal(t, "p1", f.orch.seen.UserID)

	stored, err := f.svc.GetProfile(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"age": 30.0, "name": "John"}, stored.ProfileData)
}

func TestChat_UnknownProfile(t *testing.T) {
	f := newFixture()
	_, err := f.svc.Chat(context.Background(), ChatRequest{UserID: "missing", Message: "hi"})
	assert.ErrorIs(t, err, ErrProfileNotFound)
}

func TestChat_PersistenceFailureStillReplies(t *testing.T) {
	f := newFixture(models.Profile{ID: "p1"})
	f.profiles.updateErr = errors.New("db down")
	f.orch.reply = "Got it."
	f.orch.update = models.Update{SuggestCompletion: models.Bool(true)}

	resp, err := f.svc.Chat(context.Background(), ChatRequest{UserID: "p1", Message: "that's all"})
	require.NoError(t, err)
	assert.Equal(t, "Got it.", resp.Response)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.PersistenceFailures))
}

func TestChat_PersistenceFailureWithholdsInviteCode(t *testing.T) {
	f := newFixture(models.Profile{ID: "p1", FullName: "Ann", ProfileData: map[string]any{"role": "pioneer"}})
	f.profiles.updateErr = errors.New("db down")
	f.orch.reply = "Welcome aboard!"
	f.orch.update = models.Update{OnboardingCompleted: models.Bool(true), FamilyCode: "LIORA-ABC123"}

	resp, err := f.svc.Chat(context.Background(), ChatRequest{UserID: "p1", Message: "yes"})
	require.NoError(t, err)
	assert.Equal(t, "Welcome aboard!", resp.Response)
	assert.Empty(t, resp.Metadata.Updates.FamilyCode)
	assert.True(t, resp.Metadata.Updates.Completes())
}

func TestChat_PioneerCompletionCreatesFamily(t *testing.T) {
	f := newFixture(models.Profile{ID: "p1", FullName: "Ann", ProfileData: map[string]any{"role": "pioneer"}})
	f.orch.reply = "Welcome aboard!"
	f.orch.update = models.Update{OnboardingCompleted: models.Bool(true), FamilyCode: "LIORA-ABC123"}

	resp, err := f.svc.Chat(context.Background(), ChatRequest{UserID: "p1", Message: "yes"})
	require.NoError(t, err)
	assert.Equal(t, "LIORA-ABC123", resp.Metadata.Updates.FamilyCode)

	family, err := f.svc.GetFamilyByCode(context.Background(), "LIORA-ABC123")
	require.NoError(t, err)
	assert.Equal(t, "Ann's Family", family.Name)

	details, err := f.svc.GetFamily(context.Background(), family.ID)
	require.NoError(t, err)
	require.Len(t, details.Members, 1)
	assert.Equal(t, "p1", details.Members[0].ID)
}

func TestEnsureTelegramProfile(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	created, err := f.svc.EnsureTelegramProfile(ctx, 42, " Ann ")
	require.NoError(t, err)
	assert.Equal(t, "Ann", created.FullName)
	require.NotNil(t, created.TelegramID)
	assert.Equal(t, int64(42), *created.TelegramID)

	again, err := f.svc.EnsureTelegramProfile(ctx, 42, "Someone Else")
	require.NoError(t, err)
	assert.Equal(t, created.ID, again.ID)
	assert.Equal(t, "Ann", again.FullName)
}

func TestEnsureTelegramProfile_FillsMissingName(t *testing.T) {
	tg := int64(7)
	f := newFixture(models.Profile{ID: "p1", TelegramID: &tg})

	p, err := f.svc.EnsureTelegramProfile(context.Background(), 7, "Tom")
	require.NoError(t, err)
	assert.Equal(t, "Tom", p.FullName)
}

func TestUpdateProfile(t *testing.T) {
	f := newFixture(models.Profile{ID: "p1", FullName: "Ann", ProfileData: map[string]any{"age": 30.0}})
	ctx := context.Background()

	p, err := f.svc.UpdateProfile(ctx, "p1", ProfileEdit{FullName: strPtr("  "), ProfileData: map[string]any{"color": "bg-red-500"}})
	require.NoError(t, err)
	assert.Equal(t, "Ann", p.FullName)
	assert.Equal(t, 30.0, p.ProfileData["age"])
	assert.Equal(t, "bg-red-500", p.ProfileData["color"])

	_, err = f.svc.UpdateProfile(ctx, "missing", ProfileEdit{FullName: strPtr("X")})
	assert.ErrorIs(t, err, ErrProfileNotFound)
}

func TestGetFamily_NotFound(t *testing.T) {
	f := newFixture()
	_, err := f.svc.GetFamily(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrFamilyNotFound)
	_, err = f.svc.GetFamilyByCode(context.Background(), "NOPE-000000")
	assert.ErrorIs(t, err, ErrFamilyNotFound)
}

func TestSchedules_CreateListUpdate(t *testing.T) {
	f := newFixture(
		models.Profile{ID: "p1", FullName: "Ann", FamilyID: strPtr("f1"), ProfileData: map[string]any{"color": "bg-pink-500"}},
		models.Profile{ID: "p2", FullName: "", FamilyID: strPtr("f1")},
	)
	ctx := context.Background()

	entry, err := f.svc.CreateSchedule(ctx, ScheduleInput{
		Title: "Metformin", Time: "8:00", Type: "Medication", Date: "2025-03-15",
		FamilyID: "f1", AssignedTo: strPtr("p1"),
	})
	require.NoError(t, err)
	assert.Equal(t, "08:00", entry.Time)
	assert.Equal(t, models.ScheduleTypeMedication, entry.Type)
	assert.Equal(t, models.ScheduleStatusPending, entry.Status)
	assert.Equal(t, &models.MemberInfo{Name: "Ann", Color: "bg-pink-500"}, entry.Member)

	_, err = f.svc.CreateSchedule(ctx, ScheduleInput{Title: "Walk", Time: "18:30", Date: "2025-03-15", FamilyID: "f1"})
	require.NoError(t, err)

	list, err := f.svc.ListSchedules(ctx, "f1", repository.ScheduleFilters{})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, &models.MemberInfo{Name: "Family", Color: "bg-purple-500"}, list[1].Member)

	updated, err := f.svc.UpdateSchedule(ctx, entry.ID, SchedulePatch{Status: strPtr("Completed"), AssignedTo: strPtr("p2")})
	require.NoError(t, err)
	assert.Equal(t, models.ScheduleStatusCompleted, updated.Status)
	assert.Equal(t, &models.MemberInfo{Name: "Unknown", Color: "bg-blue-500"}, updated.Member)

	status := models.ScheduleStatusPending
	pending, err := f.svc.ListSchedules(ctx, "f1", repository.ScheduleFilters{Status: &status})
	require.NoError(t, err)
	assert.Len(t, pending, 1)

	empty, err := f.svc.ListSchedules(ctx, "other", repository.ScheduleFilters{})
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func TestSchedules_Validation(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	tests := []ScheduleInput{
		{Title: "X", Time: "08:00", Date: "2025-03-15"},
		{Time: "08:00", Date: "2025-03-15", FamilyID: "f1"},
		{Title: "X", Time: "08:00", Date: "15/03/2025", FamilyID: "f1"},
		{Title: "X", Time: "noon", Date: "2025-03-15", FamilyID: "f1"},
	}
	for _, in := range tests {
		_, err := f.svc.CreateSchedule(ctx, in)
		assert.ErrorIs(t, err, ErrInvalidInput)
	}

	_, err := f.svc.UpdateSchedule(ctx, "missing", SchedulePatch{})
	assert.ErrorIs(t, err, ErrScheduleNotFound)

	entry, err := f.svc.CreateSchedule(ctx, ScheduleInput{Title: "X", Time: "08:00", Date: "2025-03-15", FamilyID: "f1"})
	require.NoError(t, err)
	_, err = f.svc.UpdateSchedule(ctx, entry.ID, SchedulePatch{Status: strPtr("cancelled")})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestListVitals(t *testing.T) {
	f := newFixture()
	f.vitals.rows = []*models.Vital{
		{UserID: "u1", Type: "steps", Value: 1000},
		{UserID: "u2", Type: "steps", Value: 2000},
	}

	vitals, err := f.svc.ListVitals(context.Background(), "u1", 0)
	require.NoError(t, err)
	require.Len(t, vitals, 1)
	assert.Equal(t, 1000.0, vitals[0].Value)
}

func TestProcessReminders(t *testing.T) {
	ann, tom := int64(1), int64(2)
	f := newFixture(
		models.Profile{ID: "p1", FamilyID: strPtr("f1"), TelegramID: &ann},
		models.Profile{ID: "p2", FamilyID: strPtr("f1"), TelegramID: &tom},
		models.Profile{ID: "p3", FamilyID: strPtr("f1")},
	)
	f.schedules.rows = []*models.ScheduleEntry{
		{ID: "due-family", Title: "Dinner", Date: "2025-03-14", Time: "08:00", FamilyID: "f1", Status: models.ScheduleStatusPending},
		{ID: "due-assigned", Title: "Pills", Date: "2025-03-13", Time: "21:00", FamilyID: "f1", AssignedTo: strPtr("p2"), Status: models.ScheduleStatusPending},
		{ID: "later", Title: "Walk", Date: "2025-03-14", Time: "18:00", FamilyID: "f1", Status: models.ScheduleStatusPending},
		{ID: "done", Title: "Yoga", Date: "2025-03-14", Time: "07:00", FamilyID: "f1", Status: models.ScheduleStatusCompleted},
	}

	sent := map[int64][]string{}
	send := func(chatID int64, text string) error {
		sent[chatID] = append(sent[chatID], text)
		return nil
	}
	now := time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)

	f.svc.processReminders(context.Background(), now, send)

	assert.Len(t, sent[ann], 1)
	assert.Len(t, sent[tom], 2)
	assert.Contains(t, sent[tom][0]+sent[tom][1], "Pills at 21:00")
	assert.Contains(t, f.schedules.reminded, "due-family")
	assert.Contains(t, f.schedules.reminded, "due-assigned")
	assert.NotContains(t, f.schedules.reminded, "later")
	assert.Equal(t, 3.0, testutil.ToFloat64(f.metrics.RemindersSent))

	f.svc.processReminders(context.Background(), now.Add(time.Minute), send)
	assert.Len(t, sent[tom], 2)
}
