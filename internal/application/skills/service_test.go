package skills

import (
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/home-hub/home-hub/internal/domain/agent"
	"github.com/home-hub/home-hub/internal/domain/skill"
	"github.com/home-hub/home-hub/internal/domain/skill/mocks"
)

func TestService_List(t *testing.T) {
	library := []*skill.Skill{
		{ID: "1", Name: "Code Reviewer", Description: "Reviews diffs", Tags: []string{"code"}},
		{ID: "2", Name: "Research Analyst", Description: "Digs through sources", Tags: []string{"research"}},
		{ID: "3", Name: "Test Engineer", Description: "Writes code tests", Tags: []string{"code", "testing"}},
	}

	t.Run("unfiltered", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		repo := mocks.NewMockRepository(ctrl)
		repo.EXPECT().List().Return(library, nil)

		out, err := NewService(repo, zerolog.Nop()).List("", "")
		require.NoError(t, err)
		assert.Len(t, out, 3)
	})

	t.Run("by tag", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		repo := mocks.NewMockRepository(ctrl)
		repo.EXPECT().List().Return(library, nil)

		out, err := NewService(repo, zerolog.Nop()).List("code", "")
		require.NoError(t, err)
		require.Len(t, out, 2)
		assert.Equal(t, "1", out[0].ID)
		assert.Equal(t, "3", out[1].ID)
	})

	t.Run("by query", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		repo := mocks.NewMockRepository(ctrl)
		repo.EXPECT().List().Return(library, nil)

		out, err := NewService(repo, zerolog.Nop()).List("", "research")
		require.NoError(t, err)
		require.Len(t, out, 1)
		assert.Equal(t, "2", out[0].ID)
	})

	t.Run("tag and query combined", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		repo := mocks.NewMockRepository(ctrl)
		repo.EXPECT().List().Return(library, nil)

		out, err := NewService(repo, zerolog.Nop()).List("code", "test")
		require.NoError(t, err)
		require.Len(t, out, 1)
		assert.Equal(t, "3", out[0].ID)
	})

	t.Run("repo error", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		repo := mocks.NewMockRepository(ctrl)
		repo.EXPECT().List().Return(nil, errors.New("io"))

		_, err := NewService(repo, zerolog.Nop()).List("", "")
		assert.Error(t, err)
	})
}

func TestService_Create(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		repo := mocks.NewMockRepository(ctrl)
		repo.EXPECT().Create(gomock.Any()).DoAndReturn(func(sk *skill.Skill) error {
			assert.NotEmpty(t, sk.ID)
			assert.Equal(t, "Deploy Bot", sk.Name)
			assert.Equal(t, []string{"devops"}, sk.Tags)
			assert.False(t, sk.CreatedAt.IsZero())
			return nil
		})

		sk, err := NewService(repo, zerolog.Nop()).Create(CreateRequest{
			Name:        "  Deploy Bot ",
			Description: "Rolls releases",
			Tags:        []string{"devops"},
		})
		require.NoError(t, err)
		assert.Equal(t, "Deploy Bot", sk.Name)
	})

	t.Run("missing name", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		repo := mocks.NewMockRepository(ctrl)

		_, err := NewService(repo, zerolog.Nop()).Create(CreateRequest{Description: "nameless"})
		assert.ErrorIs(t, err, agent.ErrValidation)
	})
}

func TestService_Update(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		repo := mocks.NewMockRepository(ctrl)
		existing := &skill.Skill{ID: "1", Name: "Old", Description: "old"}
		repo.EXPECT().Get("1").Return(existing, nil)
		repo.EXPECT().Update(gomock.Any()).DoAndReturn(func(sk *skill.Skill) error {
			assert.Equal(t, "1", sk.ID)
			assert.Equal(t, "New", sk.Name)
			return nil
		})

		sk, err := NewService(repo, zerolog.Nop()).Update("1", CreateRequest{Name: "New", Description: "new"})
		require.NoError(t, err)
		assert.Equal(t, "new", sk.Description)
	})

	t.Run("unknown id", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		repo := mocks.NewMockRepository(ctrl)
		repo.EXPECT().Get("nope").Return(nil, skill.ErrNotFound)

		_, err := NewService(repo, zerolog.Nop()).Update("nope", CreateRequest{Name: "X"})
		assert.ErrorIs(t, err, skill.ErrNotFound)
	})
}

func TestService_Delete(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockRepository(ctrl)
	repo.EXPECT().Delete("1").Return(nil)
	repo.EXPECT().Delete("nope").Return(skill.ErrNotFound)

	svc := NewService(repo, zerolog.Nop())
	assert.NoError(t, svc.Delete("1"))
	assert.ErrorIs(t, svc.Delete("nope"), skill.ErrNotFound)
}

func TestService_Tags(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockRepository(ctrl)
	repo.EXPECT().List().Return([]*skill.Skill{
		{ID: "1", Tags: []string{"code", "git"}},
		{ID: "2", Tags: []string{"research"}},
		{ID: "3", Tags: []string{"code"}},
	}, nil)

	tags, err := NewService(repo, zerolog.Nop()).Tags()
	require.NoError(t, err)
	assert.Equal(t, []string{"code", "git", "research"}, tags)
}
