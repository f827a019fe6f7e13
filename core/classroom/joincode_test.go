package classroom

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/riyaaz/core"
	"github.com/trezcool/riyaaz/core/user"
)

func TestGenerateJoinCode(t *testing.T) {
	re := regexp.MustCompile(`^RZ-[A-Z0-9]{4}$`)
	for i := 0; i < 50; i++ {
		code, err := GenerateJoinCode()
		require.NoError(t, err)
		assert.Regexp(t, re, code)
	}

	orig := randIntFunc
	defer func() { randIntFunc = orig }()

	idx := []int{0, 25, 26, 35}
	randIntFunc = func(max int) (int, error) {
		n := idx[0]
		idx = idx[1:]
		return n, nil
	}
	code, err := GenerateJoinCode()
	require.NoError(t, err)
	assert.Equal(t, "RZ-AZ09", code)

	errRand := errors.New("no entropy")
	randIntFunc = func(int) (int, error) { return 0, errRand }
	_, err = GenerateJoinCode()
	assert.Equal(t, errRand, err)
}

func TestNormalizeJoinCode(t *testing.T) {
	tests := map[string]string{
		"RZ-AB12":     "RZ-AB12",
		"  rz-ab12 ":  "RZ-AB12",
		"rz-Ab12\t\n": "RZ-AB12",
		"":            "",
	}
	for in, want := range tests {
		assert.Equal(t, want, NormalizeJoinCode(in), "NormalizeJoinCode(%q)", in)
	}
}

// codeRepo answers JoinCodeExists from a set and records created classrooms.
type codeRepo struct {
	Repository // unused methods panic

	taken   map[string]bool
	checked int
	created []Classroom
}

func (r *codeRepo) JoinCodeExists(_ context.Context, code string, _ ...core.DBExecutor) (bool, error) {
	r.checked++
	return r.taken[code], nil
}

func (r *codeRepo) CreateClassroom(_ context.Context, cls Classroom, _ ...core.DBExecutor) (Classroom, error) {
	r.created = append(r.created, cls)
	return cls, nil
}

func TestService_Create_joinCodeCollisions(t *testing.T) {
	orig := randIntFunc
	defer func() { randIntFunc = orig }()

	// always draws "RZ-AAAA"
	randIntFunc = func(int) (int, error) { return 0, nil }

	teacher := user.User{ID: "t1", Name: "Guru", Email: "guru@test.cd"}

	t.Run("exhausted", func(t *testing.T) {
		repo := &codeRepo{taken: map[string]bool{"RZ-AAAA": true}}
		svc := NewService(nil, repo, nil, nil)

		_, err := svc.Create(context.Background(), teacher, NewClassroom{Name: "Sitar"})
		assert.Equal(t, ErrJoinCodeExhausted, err)
		assert.Equal(t, maxJoinCodeAttempts, repo.checked)
		assert.Empty(t, repo.created)
	})

	t.Run("free code", func(t *testing.T) {
		repo := &codeRepo{taken: map[string]bool{}}
		svc := NewService(nil, repo, nil, nil)

		cls, err := svc.Create(context.Background(), teacher, NewClassroom{Name: "Sitar", Description: "Basics"})
		require.NoError(t, err)
		assert.Equal(t, "RZ-AAAA", cls.JoinCode)
		assert.Equal(t, teacher.ID, cls.TeacherID)
		require.NotNil(t, cls.Teacher)
		assert.Equal(t, "Guru", cls.Teacher.Name)
		assert.Len(t, repo.created, 1)
		assert.Equal(t, 1, repo.checked)
	})
}
