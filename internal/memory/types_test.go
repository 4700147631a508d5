package memory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cosmiclasagnadev/zmem/internal/zerrors"
)

func TestChunkIDFormat(t *testing.T) {
	assert.Equal(t, "abc_0", ChunkID("abc", 0))
	assert.Equal(t, "abc_12", ChunkID("abc", 12))
}

func TestValidateSaveAppliesDefaults(t *testing.T) {
	item := &Item{Title: "t", Content: "c"}
	require.NoError(t, ValidateSave(item))
	assert.Equal(t, TypeFact, item.Type)
	assert.Equal(t, ScopeWorkspace, item.Scope)
	assert.Equal(t, 0.5, item.Importance)
	assert.Equal(t, []string{}, item.Tags)
}

func TestValidateSaveRejectsEmptyTitle(t *testing.T) {
	err := ValidateSave(&Item{Content: "c"})
	require.Error(t, err)
	assert.Equal(t, zerrors.Validation, zerrors.GetCode(err))
}

func TestValidateSaveRejectsEmptyContent(t *testing.T) {
	err := ValidateSave(&Item{Title: "t"})
	require.Error(t, err)
	assert.Equal(t, zerrors.Validation, zerrors.GetCode(err))
}

func TestValidateSavePreservesExplicitZeroImportance(t *testing.T) {
	item := &Item{Title: "t", Content: "c", Importance: 0, ImportanceSet: true}
	require.NoError(t, ValidateSave(item))
	assert.Equal(t, 0.0, item.Importance)
}

func TestValidateSaveRejectsBadImportance(t *testing.T) {
	err := ValidateSave(&Item{Title: "t", Content: "c", Importance: 1.5})
	require.Error(t, err)
}

func TestValidateSaveRejectsUnknownType(t *testing.T) {
	err := ValidateSave(&Item{Title: "t", Content: "c", Type: Type("bogus")})
	require.Error(t, err)
}

func TestTypeValid(t *testing.T) {
	assert.True(t, TypeGoal.Valid())
	assert.False(t, Type("nope").Valid())
}

func TestScopeAndStatusValid(t *testing.T) {
	assert.True(t, ScopeUser.Valid())
	assert.False(t, Scope("nope").Valid())
	assert.True(t, StatusArchived.Valid())
	assert.False(t, Status("nope").Valid())
}
