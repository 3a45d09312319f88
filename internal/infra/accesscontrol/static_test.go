package accesscontrol

import (
	"testing"

	"github.com/stretchr/testify/require"

	domain "github.com/kitchenops/ragqa/internal/domain/rag"
)

func testRights() Rights {
	return Rights{
		"kitchen_management": {
			"standards":  domain.SectionAccessFull,
			"procedures": domain.SectionAccessReadOnly,
			"restaurant_ops": domain.SectionAccessNone,
		},
	}
}

func TestCheckSectionAccessFullAllowsAnyRequirement(t *testing.T) {
	eval := NewStaticEvaluator(testRights(), nil)
	require.True(t, eval.CheckSectionAccess("kitchen_management", "standards", domain.SectionAccessFull))
	require.True(t, eval.CheckSectionAccess("kitchen_management", "standards", domain.SectionAccessReadOnly))
}

func TestCheckSectionAccessReadOnlyDeniesFullRequirement(t *testing.T) {
	eval := NewStaticEvaluator(testRights(), nil)
	require.True(t, eval.CheckSectionAccess("kitchen_management", "procedures", domain.SectionAccessReadOnly))
	require.False(t, eval.CheckSectionAccess("kitchen_management", "procedures", domain.SectionAccessFull))
}

func TestCheckSectionAccessNoneAlwaysDenies(t *testing.T) {
	eval := NewStaticEvaluator(testRights(), nil)
	require.False(t, eval.CheckSectionAccess("kitchen_management", "restaurant_ops", domain.SectionAccessReadOnly))
}

func TestCheckSectionAccessUnknownLevelOrSectionDenies(t *testing.T) {
	eval := NewStaticEvaluator(testRights(), nil)
	require.False(t, eval.CheckSectionAccess("unknown_level", "standards", domain.SectionAccessReadOnly))
	require.False(t, eval.CheckSectionAccess("kitchen_management", "unknown_section", domain.SectionAccessReadOnly))
}

func TestAllowedSectionsExcludesNone(t *testing.T) {
	eval := NewStaticEvaluator(testRights(), nil)
	sections := eval.AllowedSections("kitchen_management")
	require.ElementsMatch(t, []domain.Section{"standards", "procedures"}, sections)
}

func TestCanUploadRequiresFullAccess(t *testing.T) {
	eval := NewStaticEvaluator(testRights(), nil)
	require.True(t, eval.CanUpload("kitchen_management", "standards"))
	require.False(t, eval.CanUpload("kitchen_management", "procedures"))
}

func TestDetailedAccessReflectsRights(t *testing.T) {
	eval := NewStaticEvaluator(testRights(), nil)
	summaries := eval.DetailedAccess("kitchen_management")
	require.Len(t, summaries, 3)
	for _, s := range summaries {
		if s.Section == "standards" {
			require.True(t, s.CanUpload)
			require.True(t, s.CanDelete)
		}
	}
}

func TestNewStaticEvaluatorNilRightsIsSafe(t *testing.T) {
	eval := NewStaticEvaluator(nil, nil)
	require.False(t, eval.CheckSectionAccess("anything", "standards", domain.SectionAccessReadOnly))
	require.Nil(t, eval.AllowedSections("anything"))
}
