// Package accesscontrol implements the AccessEvaluator contract as a
// static, configuration-driven map, grounded on
// original_source/services/access_control_service.py.
package accesscontrol

import (
	"log/slog"

	domain "github.com/kitchenops/ragqa/internal/domain/rag"
)

// Rights maps an access level to its per-section rights.
type Rights map[domain.AccessLevel]map[domain.Section]domain.SectionAccess

// StaticEvaluator answers access questions from a fixed, config-loaded
// table rather than a runtime service.
type StaticEvaluator struct {
	rights Rights
	logger *slog.Logger
}

// NewStaticEvaluator constructs the evaluator from a loaded rights table.
func NewStaticEvaluator(rights Rights, logger *slog.Logger) *StaticEvaluator {
	if rights == nil {
		rights = Rights{}
	}
	return &StaticEvaluator{rights: rights, logger: logger}
}

// CheckSectionAccess mirrors check_section_access: "none" always denies,
// "full" always allows, "read_only" allows only a read_only requirement.
func (e *StaticEvaluator) CheckSectionAccess(accessLevel domain.AccessLevel, section domain.Section, required domain.SectionAccess) bool {
	sections, ok := e.rights[accessLevel]
	if !ok {
		e.warn("unknown access level", accessLevel)
		return false
	}
	access, ok := sections[section]
	if !ok {
		e.warn("section not configured for access level", accessLevel, section)
		return false
	}
	switch access {
	case domain.SectionAccessNone:
		return false
	case domain.SectionAccessFull:
		return true
	case domain.SectionAccessReadOnly:
		return required == domain.SectionAccessReadOnly
	default:
		e.warn("unknown section access value", accessLevel, section)
		return false
	}
}

// AllowedSections returns every section the access level holds any
// right (read_only or full) over.
func (e *StaticEvaluator) AllowedSections(accessLevel domain.AccessLevel) []domain.Section {
	sections, ok := e.rights[accessLevel]
	if !ok {
		return nil
	}
	out := make([]domain.Section, 0, len(sections))
	for section, access := range sections {
		if access != domain.SectionAccessNone {
			out = append(out, section)
		}
	}
	return out
}

// CanUpload requires full access to the section.
func (e *StaticEvaluator) CanUpload(accessLevel domain.AccessLevel, section domain.Section) bool {
	return e.CheckSectionAccess(accessLevel, section, domain.SectionAccessFull)
}

// CanDelete requires full access to the section.
func (e *StaticEvaluator) CanDelete(accessLevel domain.AccessLevel, section domain.Section) bool {
	return e.CheckSectionAccess(accessLevel, section, domain.SectionAccessFull)
}

// DetailedAccess returns the full per-section summary for an access
// level, for the UI/debugging detail view (§2.3).
func (e *StaticEvaluator) DetailedAccess(accessLevel domain.AccessLevel) []domain.AccessSummary {
	sections, ok := e.rights[accessLevel]
	if !ok {
		return nil
	}
	out := make([]domain.AccessSummary, 0, len(sections))
	for section, access := range sections {
		out = append(out, domain.AccessSummary{
			Section:   section,
			Access:    access,
			CanUpload: access == domain.SectionAccessFull,
			CanDelete: access == domain.SectionAccessFull,
		})
	}
	return out
}

func (e *StaticEvaluator) warn(msg string, args ...any) {
	if e.logger == nil {
		return
	}
	fields := make([]any, 0, len(args)*2)
	for i, a := range args {
		fields = append(fields, slog.Any(itoaArg(i), a))
	}
	e.logger.Warn(msg, fields...)
}

func itoaArg(i int) string {
	if i == 0 {
		return "access_level"
	}
	return "section"
}

var _ domain.AccessEvaluator = (*StaticEvaluator)(nil)
