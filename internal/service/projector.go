package service

import (
	"math"
	"sort"
	"strconv"
	"time"

	"pemilihan-be/internal/domain"
)

// Project ranks candidates by votes. Every known candidate appears, including
// those with zero votes; tally ids with no matching candidate are appended
// as orphan rows named by their raw id. Ties keep candidate order, with
// orphans after known candidates and among themselves by id.
func Project(tally domain.Tally, candidates []domain.Candidate) *domain.Results {
	total := tally.Total()

	items := make([]domain.ProjectedResult, 0, len(candidates)+len(tally))
	known := make(map[int64]struct{}, len(candidates))
	for _, c := range candidates {
		known[c.ID] = struct{}{}
		items = append(items, domain.ProjectedResult{
			CandidateID: c.ID,
			Name:        c.Name,
			Class:       c.Class,
			PhotoURL:    c.PhotoURL,
			Votes:       tally[c.ID],
		})
	}

	orphanIDs := make([]int64, 0)
	for id, n := range tally {
		if _, ok := known[id]; !ok && n > 0 {
			orphanIDs = append(orphanIDs, id)
		}
	}
	sort.Slice(orphanIDs, func(i, j int) bool { return orphanIDs[i] < orphanIDs[j] })
	for _, id := range orphanIDs {
		items = append(items, domain.ProjectedResult{
			CandidateID: id,
			Name:        strconv.FormatInt(id, 10),
			Votes:       tally[id],
			Orphan:      true,
		})
	}

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Votes > items[j].Votes
	})

	for i := range items {
		items[i].Rank = i + 1
		items[i].Percentage = percentage(items[i].Votes, total)
	}

	results := &domain.Results{
		Items:       items,
		TotalVotes:  total,
		Orphans:     len(orphanIDs),
		GeneratedAt: time.Now().UTC(),
	}

	if total > 0 && len(items) > 0 {
		items[0].IsWinner = true
		winner := items[0]
		results.Winner = &winner
	}

	return results
}

// percentage rounds half away from zero; 0 when nothing was cast
func percentage(votes, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(votes) / float64(total) * 100))
}

// BuildStats derives the dashboard numbers
func BuildStats(totalCandidates, totalVoters, voted int) *domain.ElectionStats {
	return &domain.ElectionStats{
		TotalCandidates:      totalCandidates,
		TotalVoters:          totalVoters,
		VotedCount:           voted,
		ParticipationPercent: percentage(voted, totalVoters),
		GeneratedAt:          time.Now().UTC(),
	}
}
