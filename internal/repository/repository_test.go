package repository

import (
	"errors"
	"io/fs"
	"regexp"
	"testing"

	"empty-jar/internal/domain"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrationsHaveMatchingUpAndDownFiles(t *testing.T) {
	entries, err := fs.ReadDir(Migrations(), ".")
	require.NoError(t, err)

	pattern := regexp.MustCompile(`^(\d+)_.*\.(up|down)\.sql$`)
	byVersion := map[string]map[string]bool{}
	for _, entry := range entries {
		match := pattern.FindStringSubmatch(entry.Name())
		if match == nil {
			continue
		}
		if byVersion[match[1]] == nil {
			byVersion[match[1]] = map[string]bool{}
		}
		byVersion[match[1]][match[2]] = true
	}

	require.NotEmpty(t, byVersion)
	for version, dirs := range byVersion {
		assert.True(t, dirs["up"] && dirs["down"], "version %s needs up and down files", version)
	}
}

func TestUpMigrationsAreOrdered(t *testing.T) {
	files, err := upMigrations(Migrations())
	require.NoError(t, err)
	require.NotEmpty(t, files)
	assert.Equal(t, "0001_init.up.sql", files[0])
}

func TestInitMigrationEnforcesOneNotePerWeek(t *testing.T) {
	contents, err := fs.ReadFile(Migrations(), "0001_init.up.sql")
	require.NoError(t, err)
	assert.Contains(t, string(contents), "UNIQUE (user_id, week_key)")
}

func TestIsUniqueViolation(t *testing.T) {
	dup := &pgconn.PgError{Code: "23505"}
	assert.True(t, isUniqueViolation(dup))
	assert.True(t, isUniqueViolation(errors.Join(errors.New("insert"), dup)))
	assert.False(t, isUniqueViolation(&pgconn.PgError{Code: "23503"}))
	assert.False(t, isUniqueViolation(errors.New("boom")))
}

func TestNoteDocIDEncodesWeek(t *testing.T) {
	assert.Equal(t, "note:u1:2025-06", noteDocID("u1", "2025-06"))
	assert.NotEqual(t, noteDocID("u1", "2025-06"), noteDocID("u2", "2025-06"))
	assert.Equal(t, "email:a@example.com", emailDocID("A@Example.com"))
}

func TestSortNotes(t *testing.T) {
	notes := []domain.Note{{WeekKey: "2025-10"}, {WeekKey: "2024-52"}, {WeekKey: "2025-02"}}
	sortNotes(notes)
	assert.Equal(t, []string{"2024-52", "2025-02", "2025-10"}, []string{notes[0].WeekKey, notes[1].WeekKey, notes[2].WeekKey})
}
