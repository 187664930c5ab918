package plan_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/buildrules/internal/core/domain"
	"go.trai.ch/buildrules/internal/core/ports/mocks"
	"go.trai.ch/buildrules/internal/engine/plan"
	"go.uber.org/mock/gomock"
)

// chainGraph builds zlib <- hdf5 <- netcdf on target t1, unsealed.
func chainGraph(t *testing.T) *domain.RuleGraph {
	t.Helper()
	g := domain.NewRuleGraph()
	require.NoError(t, g.AddRule(&domain.BuildRule{
		Spec:   domain.NewInternedString("zlib"),
		Target: domain.NewInternedString("t1"),
	}))
	require.NoError(t, g.AddRule(&domain.BuildRule{
		Spec:         domain.NewInternedString("hdf5"),
		Target:       domain.NewInternedString("t1"),
		Dependencies: []domain.RuleID{domain.MakeRuleID("t1", "zlib")},
	}))
	require.NoError(t, g.AddRule(&domain.BuildRule{
		Spec:         domain.NewInternedString("netcdf"),
		Target:       domain.NewInternedString("t1"),
		Dependencies: []domain.RuleID{domain.MakeRuleID("t1", "hdf5")},
	}))
	return g
}

func planIDs(p *plan.Plan) []string {
	var ids []string
	for _, d := range p.Rules {
		ids = append(ids, d.Rule.ID().String())
	}
	return ids
}

func TestBuilder_ColdCache(t *testing.T) {
	ctrl := gomock.NewController(t)
	cache := mocks.NewMockRuleCache(ctrl)
	artifacts := mocks.NewMockArtifactStore(ctrl)

	cache.EXPECT().Lookup(gomock.Any(), "t1").Return(nil, nil).Times(3)

	p, err := plan.NewBuilder(cache, artifacts).Build(context.Background(), chainGraph(t))
	require.NoError(t, err)

	assert.Equal(t, []string{"t1/zlib", "t1/hdf5", "t1/netcdf"}, planIDs(p))
	assert.Equal(t, 3, p.ExecuteCount())
	assert.Equal(t, 0, p.SkipCount())
	for _, d := range p.Rules {
		assert.False(t, d.Skip)
		assert.NotEmpty(t, d.Rule.Fingerprint, "plan rules carry sealed fingerprints")
	}
}

func TestBuilder_WarmCacheSkipsEverything(t *testing.T) {
	ctrl := gomock.NewController(t)
	cache := mocks.NewMockRuleCache(ctrl)
	artifacts := mocks.NewMockArtifactStore(ctrl)

	cache.EXPECT().Lookup(gomock.Any(), "t1").DoAndReturn(
		func(fp, target string) (*domain.CacheEntry, error) {
			return &domain.CacheEntry{
				Fingerprint: fp,
				Target:      target,
				Status:      domain.CacheSuccess,
				Timestamp:   time.Now(),
				ArtifactRef: "t1/some/" + fp[:4],
			}, nil
		},
	).Times(3)
	artifacts.EXPECT().Exists(gomock.Any(), gomock.Any()).Return(true, nil).Times(3)

	p, err := plan.NewBuilder(cache, artifacts).Build(context.Background(), chainGraph(t))
	require.NoError(t, err)

	assert.Equal(t, 3, p.SkipCount())
	assert.Equal(t, 0, p.ExecuteCount())
	for _, d := range p.Rules {
		require.True(t, d.Skip)
		require.NotNil(t, d.Entry)
		assert.Equal(t, d.Rule.Fingerprint, d.Entry.Fingerprint)
	}
}

func TestBuilder_StaleEntryIsInvalidated(t *testing.T) {
	ctrl := gomock.NewController(t)
	cache := mocks.NewMockRuleCache(ctrl)
	artifacts := mocks.NewMockArtifactStore(ctrl)

	g := domain.NewRuleGraph()
	require.NoError(t, g.AddRule(&domain.BuildRule{
		Spec:   domain.NewInternedString("zlib"),
		Target: domain.NewInternedString("t1"),
	}))
	require.NoError(t, g.Seal())
	var fp string
	for rule := range g.Walk() {
		fp = rule.Fingerprint
	}

	entry := &domain.CacheEntry{
		Fingerprint: fp,
		Target:      "t1",
		Status:      domain.CacheSuccess,
		ArtifactRef: "t1/zlib/gone",
	}
	cache.EXPECT().Lookup(fp, "t1").Return(entry, nil)
	artifacts.EXPECT().Exists(gomock.Any(), "t1/zlib/gone").Return(false, nil)
	cache.EXPECT().Invalidate(fp, "t1")

	p, err := plan.NewBuilder(cache, artifacts).Build(context.Background(), g)
	require.NoError(t, err)

	// The rule is re-scheduled instead of failing the invocation.
	require.Len(t, p.Rules, 1)
	assert.False(t, p.Rules[0].Skip)
}

func TestBuilder_PreviewIsReadOnly(t *testing.T) {
	ctrl := gomock.NewController(t)
	cache := mocks.NewMockRuleCache(ctrl)
	artifacts := mocks.NewMockArtifactStore(ctrl)

	g := domain.NewRuleGraph()
	require.NoError(t, g.AddRule(&domain.BuildRule{
		Spec:   domain.NewInternedString("zlib"),
		Target: domain.NewInternedString("t1"),
	}))

	// Stale entry: in preview mode no Invalidate call may happen.
	cache.EXPECT().Lookup(gomock.Any(), "t1").Return(&domain.CacheEntry{
		Status:      domain.CacheSuccess,
		ArtifactRef: "t1/zlib/gone",
	}, nil)
	artifacts.EXPECT().Exists(gomock.Any(), "t1/zlib/gone").Return(false, nil)

	p, err := plan.NewBuilder(cache, artifacts).Preview(context.Background(), g)
	require.NoError(t, err)
	assert.False(t, p.Rules[0].Skip)
}

func TestBuilder_GraphErrorsSurface(t *testing.T) {
	ctrl := gomock.NewController(t)
	cache := mocks.NewMockRuleCache(ctrl)
	artifacts := mocks.NewMockArtifactStore(ctrl)

	g := domain.NewRuleGraph()
	require.NoError(t, g.AddRule(&domain.BuildRule{
		Spec:         domain.NewInternedString("a"),
		Target:       domain.NewInternedString("t1"),
		Dependencies: []domain.RuleID{domain.MakeRuleID("t1", "b")},
	}))
	require.NoError(t, g.AddRule(&domain.BuildRule{
		Spec:         domain.NewInternedString("b"),
		Target:       domain.NewInternedString("t1"),
		Dependencies: []domain.RuleID{domain.MakeRuleID("t1", "a")},
	}))

	_, err := plan.NewBuilder(cache, artifacts).Build(context.Background(), g)
	require.ErrorIs(t, err, domain.ErrCycleDetected)
}

func TestBuilder_CacheErrorAborts(t *testing.T) {
	ctrl := gomock.NewController(t)
	cache := mocks.NewMockRuleCache(ctrl)
	artifacts := mocks.NewMockArtifactStore(ctrl)

	cache.EXPECT().Lookup(gomock.Any(), "t1").Return(nil, assert.AnError)

	_, err := plan.NewBuilder(cache, artifacts).Build(context.Background(), chainGraph(t))
	require.ErrorIs(t, err, assert.AnError)
}
