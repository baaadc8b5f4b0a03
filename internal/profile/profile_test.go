package profile

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kerhoff/liora/internal/metrics"
	"github.com/Kerhoff/liora/internal/models"
	"github.com/Kerhoff/liora/internal/onboarding"
	"github.com/Kerhoff/liora/internal/repository"
	"github.com/Kerhoff/liora/pkg/logger"
)

// memProfiles is an in-memory ProfileRepository with version checks.
type memProfiles struct {
	mu        sync.Mutex
	rows      map[string]models.Profile
	conflicts int
	writes    int
}

func newMemProfiles(profiles ...models.Profile) *memProfiles {
	m := &memProfiles{rows: make(map[string]models.Profile)}
	for _, p := range profiles {
		if p.Version == 0 {
			p.Version = 1
		}
		m.rows[p.ID] = p
	}
	return m
}

func copyProfile(p models.Profile) *models.Profile {
	p.ProfileData = Merge(p.ProfileData, nil)
	return &p
}

func (m *memProfiles) Create(_ context.Context, p *models.Profile) (*models.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p.Version = 1
	m.rows[p.ID] = *copyProfile(*p)
	return p, nil
}

func (m *memProfiles) GetByID(_ context.Context, id string) (*models.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.rows[id]
	if !ok {
		return nil, nil
	}
	return copyProfile(p), nil
}

func (m *memProfiles) GetByTelegramID(context.Context, int64) (*models.Profile, error) {
	return nil, nil
}

func (m *memProfiles) GetByFamily(context.Context, string) ([]*models.Profile, error) {
	return nil, nil
}

func (m *memProfiles) Update(_ context.Context, p *models.Profile) (*models.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.conflicts > 0 {
		m.conflicts--
		stored := m.rows[p.ID]
		stored.Version++
		m.rows[p.ID] = stored
		return nil, repository.ErrVersionConflict
	}
	if m.rows[p.ID].Version != p.Version {
		return nil, repository.ErrVersionConflict
	}
	p.Version++
	m.rows[p.ID] = *copyProfile(*p)
	m.writes++
	return p, nil
}

func (m *memProfiles) get(id string) models.Profile {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rows[id]
}

type memFamilies struct {
	created []*models.Family
	taken   map[string]bool
	err     error
}

func (m *memFamilies) Create(_ context.Context, f *models.Family) (*models.Family, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.taken[f.InviteCode] {
		return nil, fmt.Errorf("code %s: %w", f.InviteCode, repository.ErrDuplicateInviteCode)
	}
	f.ID = fmt.Sprintf("family-%d", len(m.created)+1)
	m.created = append(m.created, f)
	return f, nil
}

func (m *memFamilies) GetByID(context.Context, string) (*models.Family, error) { return nil, nil }

func (m *memFamilies) GetByInviteCode(context.Context, string) (*models.Family, error) {
	return nil, nil
}

type sequenceCodes struct {
	codes []string
}

func (s *sequenceCodes) Issue() (string, error) {
	if len(s.codes) == 0 {
		return "", errors.New("no codes left")
	}
	code := s.codes[0]
	s.codes = s.codes[1:]
	return code, nil
}

func newTestApplier(profiles *memProfiles, families *memFamilies, codes onboarding.CodeIssuer) (*Applier, *metrics.Metrics) {
	m := metrics.New()
	return NewApplier(profiles, families, codes, NewLocker(), logger.Discard(), m), m
}

func TestMerge(t *testing.T) {
	stored := map[string]any{"age": 30.0}
	merged := Merge(stored, map[string]any{"name": "John"})

	assert.Equal(t, map[string]any{"age": 30.0, "name": "John"}, merged)
	assert.Equal(t, map[string]any{"age": 30.0}, stored)

	assert.Equal(t, stored, Merge(stored, map[string]any{}))
	assert.Equal(t, map[string]any{"age": 31.0}, Merge(stored, map[string]any{"age": 31.0}))
	assert.NotNil(t, Merge(nil, nil))
}

func TestLocker_ReleasesIdleKeys(t *testing.T) {
	l := NewLocker()
	unlock := l.Lock("a")
	assert.Equal(t, 1, l.Len())
	unlock()
	unlock()
	assert.Equal(t, 0, l.Len())
}

func TestLocker_SerialisesSameKey(t *testing.T) {
	l := NewLocker()
	var (
		wg      sync.WaitGroup
		counter int
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := l.Lock("k")
			defer unlock()
			v := counter
			counter = v + 1
		}()
	}
	wg.Wait()
	assert.Equal(t, 50, counter)
	assert.Equal(t, 0, l.Len())
}

func TestApply_MergesProfileData(t *testing.T) {
	profiles := newMemProfiles(models.Profile{ID: "p1", ProfileData: map[string]any{"age": 30.0}})
	a, _ := newTestApplier(profiles, &memFamilies{}, &sequenceCodes{})

	saved, err := a.Apply(context.Background(), "p1", models.Update{ProfileData: map[string]any{"name": "John"}})
	require.NoError(t, err)

	assert.Equal(t, map[string]any{"age": 30.0, "name": "John"}, saved.ProfileData)
	assert.Equal(t, map[string]any{"age": 30.0, "name": "John"}, profiles.get("p1").ProfileData)
}

func TestApply_EmptyUpdateDoesNotWrite(t *testing.T) {
	profiles := newMemProfiles(models.Profile{ID: "p1"})
	a, _ := newTestApplier(profiles, &memFamilies{}, &sequenceCodes{})

	saved, err := a.Apply(context.Background(), "p1", models.Update{})
	require.NoError(t, err)
	assert.Equal(t, "p1", saved.ID)
	assert.Zero(t, profiles.writes)
}

func TestApply_UnknownProfile(t *testing.T) {
	a, _ := newTestApplier(newMemProfiles(), &memFamilies{}, &sequenceCodes{})

	_, err := a.Apply(context.Background(), "missing", models.Update{SuggestCompletion: models.Bool(true)})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestApply_JoinFamily(t *testing.T) {
	profiles := newMemProfiles(models.Profile{ID: "p1", ProfileData: map[string]any{"role": "joiner"}})
	a, _ := newTestApplier(profiles, &memFamilies{}, &sequenceCodes{})

	saved, err := a.Apply(context.Background(), "p1", models.Update{JoinFamilyID: "f1", FamilyName: "Smiths"})
	require.NoError(t, err)
	require.NotNil(t, saved.FamilyID)
	assert.Equal(t, "f1", *saved.FamilyID)
}

func TestApply_PioneerIgnoresJoin(t *testing.T) {
	profiles := newMemProfiles(models.Profile{ID: "p1"})
	a, _ := newTestApplier(profiles, &memFamilies{}, &sequenceCodes{})

	saved, err := a.Apply(context.Background(), "p1", models.Update{
		JoinFamilyID: "f1",
		ProfileData:  map[string]any{"role": "pioneer"},
	})
	require.NoError(t, err)
	assert.Nil(t, saved.FamilyID)
}

func TestApply_PersistedPioneerIgnoresJoinAfterRoleChange(t *testing.T) {
	profiles := newMemProfiles(models.Profile{ID: "p1", ProfileData: map[string]any{"role": "pioneer"}})
	a, _ := newTestApplier(profiles, &memFamilies{}, &sequenceCodes{})

	saved, err := a.Apply(context.Background(), "p1", models.Update{
		JoinFamilyID: "f9",
		ProfileData:  map[string]any{"role": "joiner"},
	})
	require.NoError(t, err)
	assert.Nil(t, saved.FamilyID)
}

func TestApply_FlagsWrittenVerbatim(t *testing.T) {
	profiles := newMemProfiles(models.Profile{ID: "p1", SuggestCompletion: true})
	a, _ := newTestApplier(profiles, &memFamilies{}, &sequenceCodes{})

	saved, err := a.Apply(context.Background(), "p1", models.Update{SuggestCompletion: models.Bool(false)})
	require.NoError(t, err)
	assert.False(t, saved.SuggestCompletion)
	assert.False(t, saved.OnboardingCompleted)
}

func TestApply_PioneerCompletionCreatesFamily(t *testing.T) {
	profiles := newMemProfiles(models.Profile{
		ID:          "p1",
		FullName:    "Ann Smith",
		ProfileData: map[string]any{"role": "pioneer"},
	})
	families := &memFamilies{}
	a, _ := newTestApplier(profiles, families, &sequenceCodes{})

	saved, err := a.Apply(context.Background(), "p1", models.Update{
		OnboardingCompleted: models.Bool(true),
		FamilyCode:          "LIORA-ABC123",
	})
	require.NoError(t, err)

	require.Len(t, families.created, 1)
	assert.Equal(t, "Ann Smith's Family", families.created[0].Name)
	assert.Equal(t, "p1", families.created[0].PioneerID)
	assert.Equal(t, "LIORA-ABC123", families.created[0].InviteCode)
	require.NotNil(t, saved.FamilyID)
	assert.Equal(t, "family-1", *saved.FamilyID)
	assert.Equal(t, "LIORA-ABC123", saved.ProfileData["family_code"])
	assert.True(t, saved.OnboardingCompleted)
}

func TestApply_DuplicateInviteCodeIsReissued(t *testing.T) {
	profiles := newMemProfiles(models.Profile{
		ID:          "p1",
		ProfileData: map[string]any{"role": "pioneer", "family_name": "The Okafors"},
	})
	families := &memFamilies{taken: map[string]bool{"LIORA-AAAAAA": true, "LIORA-BBBBBB": true}}
	a, _ := newTestApplier(profiles, families, &sequenceCodes{codes: []string{"LIORA-BBBBBB", "LIORA-CCCCCC"}})

	saved, err := a.Apply(context.Background(), "p1", models.Update{
		OnboardingCompleted: models.Bool(true),
		FamilyCode:          "LIORA-AAAAAA",
	})
	require.NoError(t, err)
	require.Len(t, families.created, 1)
	assert.Equal(t, "The Okafors", families.created[0].Name)
	assert.Equal(t, "LIORA-CCCCCC", saved.ProfileData["family_code"])
}

func TestApply_DuplicateInviteCodeGivesUp(t *testing.T) {
	profiles := newMemProfiles(models.Profile{ID: "p1", ProfileData: map[string]any{"role": "pioneer"}})
	families := &memFamilies{taken: map[string]bool{"A-1": true, "A-2": true, "A-3": true}}
	a, m := newTestApplier(profiles, families, &sequenceCodes{codes: []string{"A-2", "A-3"}})

	_, err := a.Apply(context.Background(), "p1", models.Update{
		OnboardingCompleted: models.Bool(true),
		FamilyCode:          "A-1",
	})
	assert.ErrorIs(t, err, repository.ErrDuplicateInviteCode)
	assert.False(t, profiles.get("p1").OnboardingCompleted)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PersistenceFailures))
}

func TestApply_NoFamilyForAlreadyCompletedPioneer(t *testing.T) {
	profiles := newMemProfiles(models.Profile{
		ID:                  "p1",
		OnboardingCompleted: true,
		ProfileData:         map[string]any{"role": "pioneer"},
	})
	families := &memFamilies{}
	a, _ := newTestApplier(profiles, families, &sequenceCodes{})

	_, err := a.Apply(context.Background(), "p1", models.Update{
		OnboardingCompleted: models.Bool(true),
		FamilyCode:          "LIORA-ABC123",
	})
	require.NoError(t, err)
	assert.Empty(t, families.created)
}

func TestApply_RetriesVersionConflict(t *testing.T) {
	profiles := newMemProfiles(models.Profile{ID: "p1", ProfileData: map[string]any{"age": 30.0}})
	profiles.conflicts = 2
	a, m := newTestApplier(profiles, &memFamilies{}, &sequenceCodes{})

	saved, err := a.Apply(context.Background(), "p1", models.Update{ProfileData: map[string]any{"name": "John"}})
	require.NoError(t, err)
	assert.Equal(t, "John", saved.ProfileData["name"])
	assert.Equal(t, 2.0, testutil.ToFloat64(m.VersionConflicts))
}

func TestApply_GivesUpAfterRepeatedConflicts(t *testing.T) {
	profiles := newMemProfiles(models.Profile{ID: "p1"})
	profiles.conflicts = maxWriteAttempts
	a, m := newTestApplier(profiles, &memFamilies{}, &sequenceCodes{})

	_, err := a.Apply(context.Background(), "p1", models.Update{ProfileData: map[string]any{"name": "John"}})
	assert.ErrorIs(t, err, repository.ErrVersionConflict)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PersistenceFailures))
}

func TestApply_ConcurrentUpdatesKeepEveryKey(t *testing.T) {
	profiles := newMemProfiles(models.Profile{ID: "p1", ProfileData: map[string]any{}})
	a, _ := newTestApplier(profiles, &memFamilies{}, &sequenceCodes{})

	const writers = 20
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := a.Apply(context.Background(), "p1", models.Update{
				ProfileData: map[string]any{fmt.Sprintf("key%d", i): float64(i)},
			})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	stored := profiles.get("p1")
	assert.Len(t, stored.ProfileData, writers)
	assert.Equal(t, int64(writers+1), stored.Version)
}

func TestEdit(t *testing.T) {
	profiles := newMemProfiles(models.Profile{ID: "p1", FullName: "Ann", ProfileData: map[string]any{"age": 30.0}})
	a, _ := newTestApplier(profiles, &memFamilies{}, &sequenceCodes{})

	name := "Ann Smith"
	saved, err := a.Edit(context.Background(), "p1", &name, map[string]any{"allergies": []any{"peanuts"}})
	require.NoError(t, err)
	assert.Equal(t, "Ann Smith", saved.FullName)
	assert.Equal(t, 30.0, saved.ProfileData["age"])
	assert.Equal(t, []any{"peanuts"}, saved.ProfileData["allergies"])
	assert.Equal(t, 1, profiles.writes)

	same := "Ann Smith"
	_, err = a.Edit(context.Background(), "p1", &same, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, profiles.writes)
}
