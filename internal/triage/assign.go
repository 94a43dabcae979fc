package triage

import (
	"regexp"
	"sort"
	"strings"

	"helpdesk_backend/internal/models"
)

// SkillPattern builds a case-insensitive alternation over the inferred skill
// tags. Each tag is escaped first so special characters in AI output cannot
// inject pattern syntax.
func SkillPattern(skills []string) string {
	var parts []string
	for _, skill := range skills {
		skill = strings.TrimSpace(skill)
		if skill == "" {
			continue
		}
		parts = append(parts, regexp.QuoteMeta(skill))
	}
	if len(parts) == 0 {
		return ""
	}
	return "(?i)" + strings.Join(parts, "|")
}

// SelectAssignee picks the assignee for a ticket with the given inferred
// skill tags. It is a pure selection over the candidate slices; persisting
// the choice is the caller's job. The fallback chain:
//
//  1. moderator with a skill matching any tag, least loaded first
//  2. any moderator, least loaded first
//  3. any admin, longest tenured first
//  4. the ticket's creator
//  5. nil
func SelectAssignee(skills []string, moderators, admins []models.User, creator *models.User) *models.User {
	if len(moderators) > 0 {
		if matched := matchBySkills(skills, moderators); matched != nil {
			return matched
		}

		least := leastLoaded(moderators)
		return &least[0]
	}

	if len(admins) > 0 {
		sorted := make([]models.User, len(admins))
		copy(sorted, admins)
		sort.SliceStable(sorted, func(i, j int) bool {
			return sorted[i].CreatedAt.Before(sorted[j].CreatedAt)
		})
		return &sorted[0]
	}

	return creator
}

func matchBySkills(skills []string, moderators []models.User) *models.User {
	pattern := SkillPattern(skills)
	if pattern == "" {
		return nil
	}

	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil
	}

	var matched []models.User
	for _, mod := range moderators {
		for _, skill := range mod.GetSkills() {
			if re.MatchString(skill) {
				matched = append(matched, mod)
				break
			}
		}
	}
	if len(matched) == 0 {
		return nil
	}

	ordered := leastLoaded(matched)
	return &ordered[0]
}

// leastLoaded orders moderators by ascending issuesResolved, then score,
// then account age, so work flows to the least-loaded, lowest-scoring,
// longest-tenured moderator first.
func leastLoaded(moderators []models.User) []models.User {
	ordered := make([]models.User, len(moderators))
	copy(ordered, moderators)
	sort.SliceStable(ordered, func(i, j int) bool {
		a, b := ordered[i], ordered[j]
		if a.IssuesResolved != b.IssuesResolved {
			return a.IssuesResolved < b.IssuesResolved
		}
		if a.Score != b.Score {
			return a.Score < b.Score
		}
		return a.CreatedAt.Before(b.CreatedAt)
	})
	return ordered
}
