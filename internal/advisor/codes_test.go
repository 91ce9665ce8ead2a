package advisor

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/AET-DevOps25/team-stratton-oakmont/internal/catalog"
	"github.com/AET-DevOps25/team-stratton-oakmont/internal/vectorindex"
)

func TestExtractCourseCodes(t *testing.T) {
	assert.Equal(t, []string{"IN2003"}, ExtractCourseCodes("see IN2003 for details"))
	assert.Equal(t, []string{"1234567890"}, ExtractCourseCodes("module 1234567890"))
	assert.Equal(t, []string{"IN2064", "MA0001", "IN2003"},
		ExtractCourseCodes("Compare IN2064 and MA0001", "IN2003 first, then IN2064."))
	assert.Empty(t, ExtractCourseCodes("no codes here, just 12345 and ABC123"))
	assert.Empty(t, ExtractCourseCodes("xIN2003 12345678901"))
}

func TestExtractCourseCodesSkipsSemesters(t *testing.T) {
	assert.Equal(t, []string{"IN2003", "MA9712"},
		ExtractCourseCodes("IN2003 runs in WS2025, MA9712 in SS2024."))
	assert.Empty(t, ExtractCourseCodes("offered WS2025/26 and SS2024"))
	assert.Empty(t, ExtractCourseCodes("IN20031 and IN200 are not codes"))
}

func TestIsRecommendation(t *testing.T) {
	assert.True(t, IsRecommendation("Which courses should I take?"))
	assert.True(t, IsRecommendation("Can you SUGGEST something on databases"))
	assert.True(t, IsRecommendation("What course covers compilers?"))
	assert.False(t, IsRecommendation("When is the IN2003 exam?"))
}

func TestBuildContextRespectsBudget(t *testing.T) {
	long := strings.Repeat("x", 5000)
	var hits []vectorindex.Hit
	for _, id := range []string{"IN0001", "IN0002", "IN0003", "IN0004", "IN0005", "IN0006", "IN0007", "IN0008"} {
		hits = append(hits, vectorindex.Hit{CourseInfo: catalog.CourseInfo{ModuleID: id, Name: "Course", Content: long}})
	}

	ctx := buildContext(hits)
	assert.Contains(t, ctx, "[1] IN0001 Course")
	assert.NotContains(t, ctx, "IN0008")
	assert.LessOrEqual(t, len([]rune(ctx)), maxContextRunes)
	assert.Contains(t, ctx, "...")
}

func TestBuildContextEmpty(t *testing.T) {
	assert.Equal(t, "(no matching courses found)", buildContext(nil))
}
