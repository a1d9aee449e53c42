package options

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStaticRepository(t *testing.T) {
	repo := SampleData()
	ctx := context.Background()

	regions, err := repo.LoadRoot(ctx, LevelRegion)
	require.NoError(t, err)
	assert.Len(t, regions, 2)

	provs, err := repo.LoadChildren(ctx, LevelProvincia, "8")
	require.NoError(t, err)
	assert.Equal(t, "PAUCARTAMBO", provs[1].Label)

	empty, err := repo.LoadChildren(ctx, LevelProvincia, "")
	require.NoError(t, err)
	assert.Empty(t, empty)

	assert.Equal(t, 1, repo.Loads(LevelRegion))
	assert.Equal(t, 1, repo.Loads(LevelProvincia))
}

func TestFindHelpers(t *testing.T) {
	opts := []Option{{ID: "1", Label: "DRE CUSCO"}, {ID: "2", Label: "DRE LIMA"}}

	o, ok := Find(opts, "2")
	assert.True(t, ok)
	assert.Equal(t, "DRE LIMA", o.Label)

	o, ok = FindByLabel(opts, "  dre cusco ")
	assert.True(t, ok)
	assert.Equal(t, "1", o.ID)

	_, ok = Find(opts, "9")
	assert.False(t, ok)
}

type failingRepo struct{}

func (failingRepo) LoadRoot(_ context.Context, level Level) ([]Option, error) {
	if level == LevelDRE {
		return nil, errors.New("boom")
	}
	return []Option{{ID: "1", Label: "x"}}, nil
}

func (failingRepo) LoadChildren(context.Context, Level, string) ([]Option, error) {
	return []Option{}, nil
}

func TestLoadRoots(t *testing.T) {
	roots, err := LoadRoots(context.Background(), SampleData(), LevelRegion, LevelDRE)
	require.NoError(t, err)
	assert.Len(t, roots[LevelRegion], 2)
	assert.Len(t, roots[LevelDRE], 2)

	_, err = LoadRoots(context.Background(), failingRepo{}, LevelRegion, LevelDRE)
	assert.EqualError(t, err, "boom")
}
