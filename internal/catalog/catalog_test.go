package catalog

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AET-DevOps25/team-stratton-oakmont/internal/curriculum"
	"github.com/AET-DevOps25/team-stratton-oakmont/internal/database"
	"github.com/AET-DevOps25/team-stratton-oakmont/internal/module"
)

func strPtr(s string) *string { return &s }

func seededDB(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "catalog.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, db.SaveCurriculum("121", []curriculum.Entry{
		{ProgramID: "121", NameLevel1: "Required Modules", NameLevel2: "IN2003 Efficient Algorithms", SequenceID: 1},
		{ProgramID: "121", NameLevel1: "Electives", NameLevel2: "Informatics", NameLevel3: "IN2064 Machine Learning", SequenceID: 2},
	}))
	require.NoError(t, db.SaveCurriculum("200", []curriculum.Entry{
		{ProgramID: "200", NameLevel1: "Electives", NameLevel2: "IN2064 Machine Learning", SequenceID: 1},
	}))
	entries, err := db.GetCurriculum("121")
	require.NoError(t, err)
	other, err := db.GetCurriculum("200")
	require.NoError(t, err)

	save := func(id int64, moduleID, name string, credits int) {
		rec := module.NewRecord(id, "")
		rec.ModuleID = strPtr(moduleID)
		rec.Name = strPtr(name)
		rec.Credits = &credits
		rec.Content = strPtr("Content of " + name)
		rec.ExtractionMethod = module.MethodPrimary
		require.NoError(t, db.SaveModule(rec))
	}
	save(entries[0].ID, "IN2003", "Efficient Algorithms and Data Structures", 8)
	save(entries[1].ID, "IN2064", "Machine Learning", 8)
	save(other[0].ID, "IN2064", "Machine Learning", 6)
	return db
}

func TestSQLStoreCourse(t *testing.T) {
	store := NewSQLiteStore(seededDB(t).Conn())
	ctx := context.Background()

	c, err := store.Course(ctx, "IN2003")
	require.NoError(t, err)
	assert.Equal(t, "Efficient Algorithms and Data Structures", c.Name)
	assert.Equal(t, "Required Modules", c.Category)
	require.NotNil(t, c.Credits)
	assert.Equal(t, 8, *c.Credits)
	assert.Equal(t, "121", c.StudyProgramID)

	_, err = store.Course(ctx, "XX0000")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, store.Ping(ctx))
}

func TestSQLStoreCoursesFiltersByProgram(t *testing.T) {
	store := NewSQLiteStore(seededDB(t).Conn())
	ctx := context.Background()

	all, err := store.Courses(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)

	filtered, err := store.Courses(ctx, "200")
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	assert.Equal(t, "IN2064", filtered[0].ModuleID)
	assert.Equal(t, "200", filtered[0].StudyProgramID)
}

func TestRebind(t *testing.T) {
	pg := &SQLStore{postgres: true}
	assert.Equal(t, "a = $1 AND b = $2", pg.rebind("a = ? AND b = ?"))
	assert.Equal(t, "a = ?", (&SQLStore{}).rebind("a = ?"))
	assert.True(t, IsPostgresDSN("postgresql://u@h/db"))
	assert.False(t, IsPostgresDSN("/tmp/advisor.db"))
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestCSVStoreSearchOrder(t *testing.T) {
	first, second := t.TempDir(), t.TempDir()
	writeFile(t, first, "modules.csv", "module_id,name\nIN0001,From modules csv\n")
	writeFile(t, second, "module_details.csv", "module_id,name\nIN0001,From second dir\n")

	store := NewCSVStore([]string{filepath.Join(first, "missing"), first, second})
	c, err := store.Course(context.Background(), "IN0001")
	require.NoError(t, err)
	assert.Equal(t, "From modules csv", c.Name)
	assert.Equal(t, filepath.Join(first, "modules.csv"), store.Path())

	dir := t.TempDir()
	writeFile(t, dir, "module_details_scraped.csv", "module_id,name\nIN0001,Scraped\n")
	writeFile(t, dir, "module_details.csv", "module_id,name\nIN0001,Details\n")
	p, err := FindCSV([]string{dir})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "module_details.csv"), p)
}

func TestCSVStoreParsing(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "module_details.csv",
		"\ufeffCourse_Code,Course_Name,credits,study_program_id\n"+
			"IN2003,Efficient Algorithms,8 ECTS,121\n"+
			",No id,5,121\n"+
			"IN2064,Machine Learning,-,200\n"+
			"IN9999\n")

	store := NewCSVStore([]string{dir})
	ctx := context.Background()

	c, err := store.Course(ctx, "IN2003")
	require.NoError(t, err)
	assert.Equal(t, "Efficient Algorithms", c.Name)
	require.NotNil(t, c.Credits)
	assert.Equal(t, 8, *c.Credits)

	ml, err := store.Course(ctx, "IN2064")
	require.NoError(t, err)
	assert.Nil(t, ml.Credits)

	all, err := store.Courses(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 2, "rows without module_id or name are not listed")

	byProgram, err := store.Courses(ctx, "200")
	require.NoError(t, err)
	require.Len(t, byProgram, 1)
	assert.Equal(t, "IN2064", byProgram[0].ModuleID)
}

func TestCSVStoreMissingFile(t *testing.T) {
	store := NewCSVStore([]string{t.TempDir()})
	_, err := store.Course(context.Background(), "IN2003")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
	assert.Error(t, store.Ping(context.Background()))
}

type stubStore struct {
	course  *CourseInfo
	courses []CourseInfo
	err     error
	calls   int
}

func (s *stubStore) Course(context.Context, string) (*CourseInfo, error) {
	s.calls++
	return s.course, s.err
}

func (s *stubStore) Courses(context.Context, string) ([]CourseInfo, error) {
	s.calls++
	return s.courses, s.err
}

func TestFallbackStore(t *testing.T) {
	ctx := context.Background()
	csvSide := &stubStore{course: &CourseInfo{ModuleID: "IN2003", Name: "From CSV"}}

	down := &FallbackStore{Primary: &stubStore{err: errors.New("connection refused")}, Fallback: csvSide}
	c, err := down.Course(ctx, "IN2003")
	require.NoError(t, err)
	assert.Equal(t, "From CSV", c.Name)

	missing := &FallbackStore{Primary: &stubStore{err: ErrNotFound}, Fallback: csvSide}
	csvSide.calls = 0
	_, err = missing.Course(ctx, "IN2003")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Zero(t, csvSide.calls, "a missing course is not a reason to fall back")

	both := &FallbackStore{
		Primary:  &stubStore{err: errors.New("connection refused")},
		Fallback: &stubStore{err: errors.New("no csv")},
	}
	_, err = both.Courses(ctx, "")
	assert.ErrorContains(t, err, "no csv")
}

func TestRedisCacheBypassesUnreachableRedis(t *testing.T) {
	client := NewRedisClient("127.0.0.1:1", "", 0)
	backing := &stubStore{course: &CourseInfo{ModuleID: "IN2003", Name: "Algorithms"}}
	cache := NewRedisCache(backing, client, time.Minute, nil)
	t.Cleanup(func() { cache.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	c, err := cache.Course(ctx, "IN2003")
	require.NoError(t, err)
	assert.Equal(t, "Algorithms", c.Name)
	assert.Equal(t, 1, backing.calls)
}
