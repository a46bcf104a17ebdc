package service

import (
	"math/rand"
	"testing"
	"time"

	"aptcare/backend/internal/model"
)

func intPtr(v int) *int { return &v }

func rankedIDs(stats []CandidateStats) []string {
	ids := make([]string, 0, len(stats))
	for _, s := range stats {
		ids = append(ids, s.TechnicianID)
	}
	return ids
}

func TestCandidateStats_GapScore(t *testing.T) {
	cases := []struct {
		name  string
		stats CandidateStats
		want  int
	}{
		{"无相邻分配按上限计", CandidateStats{}, 60},
		{"前后间隔均小于上限", CandidateStats{GapFromPrevious: intPtr(10), GapToNext: intPtr(5)}, 15},
		{"超出上限封顶", CandidateStats{GapFromPrevious: intPtr(120), GapToNext: intPtr(0)}, 30},
		{"仅有前序分配", CandidateStats{GapFromPrevious: intPtr(20)}, 50},
	}
	for _, c := range cases {
		if got := c.stats.GapScore(30); got != c.want {
			t.Errorf("%s: 期望 %d，实际 %d", c.name, c.want, got)
		}
	}
}

func TestRankCandidates_Order(t *testing.T) {
	stats := []CandidateStats{
		{TechnicianID: "t-4", DayCount: 1},
		{TechnicianID: "t-3", DayCount: 0, GapFromPrevious: intPtr(10), MonthCount: 1},
		{TechnicianID: "t-2", DayCount: 0, MonthCount: 5},
		{TechnicianID: "t-1", DayCount: 0, MonthCount: 5},
		{TechnicianID: "t-0", DayCount: 0, MonthCount: 2},
	}

	got := rankedIDs(RankCandidates(stats, 30))
	// 当日数相同时间隔得分高者优先；得分相同时当月数少者优先；再按 ID
	want := []string{"t-0", "t-1", "t-2", "t-3", "t-4"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("排序不符，期望 %v，实际 %v", want, got)
		}
	}

	if stats[0].TechnicianID != "t-4" {
		t.Error("RankCandidates 不应修改入参")
	}
}

func TestRankCandidates_Deterministic(t *testing.T) {
	base := []CandidateStats{
		{TechnicianID: "a", DayCount: 1, MonthCount: 3},
		{TechnicianID: "b", DayCount: 1, MonthCount: 3},
		{TechnicianID: "c", DayCount: 0, MonthCount: 9, GapToNext: intPtr(15)},
		{TechnicianID: "d", DayCount: 0, MonthCount: 9, GapToNext: intPtr(15)},
		{TechnicianID: "e", DayCount: 2},
	}
	want := rankedIDs(RankCandidates(base, 30))

	r := rand.New(rand.NewSource(42))
	for i := 0; i < 50; i++ {
		shuffled := append([]CandidateStats(nil), base...)
		r.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
		got := rankedIDs(RankCandidates(shuffled, 30))
		for k := range want {
			if got[k] != want[k] {
				t.Fatalf("输入顺序不同导致结果不同: 期望 %v，实际 %v", want, got)
			}
		}
	}
}

func TestCollectStats(t *testing.T) {
	w := window{Start: at(2024, 6, 1, 13, 0), End: at(2024, 6, 1, 14, 0)}
	candidates := []model.User{{UserID: "t-1", Name: "甲"}, {UserID: "t-2", Name: "乙"}}
	assigns := []model.AppointmentAssign{
		// 当日上午，结束于 12:40，间隔 20 分钟
		{TechnicianID: "t-1", EstimatedStart: at(2024, 6, 1, 11, 0), EstimatedEnd: at(2024, 6, 1, 12, 40), Status: model.AssignPending},
		// 当日下午，开始于 14:10，间隔 10 分钟
		{TechnicianID: "t-1", EstimatedStart: at(2024, 6, 1, 14, 10), EstimatedEnd: at(2024, 6, 1, 15, 0), Status: model.AssignWorking},
		// 更早的一条，间隔更大，不影响最小间隔
		{TechnicianID: "t-1", EstimatedStart: at(2024, 6, 1, 8, 0), EstimatedEnd: at(2024, 6, 1, 9, 0), Status: model.AssignCompleted},
		// 当月其他日期
		{TechnicianID: "t-2", EstimatedStart: at(2024, 6, 15, 9, 0), EstimatedEnd: at(2024, 6, 15, 10, 0), Status: model.AssignPending},
		// 已取消，不计
		{TechnicianID: "t-2", EstimatedStart: at(2024, 6, 1, 9, 0), EstimatedEnd: at(2024, 6, 1, 10, 0), Status: model.AssignCancel},
		// 上个月，不计
		{TechnicianID: "t-2", EstimatedStart: at(2024, 5, 31, 9, 0), EstimatedEnd: at(2024, 5, 31, 10, 0), Status: model.AssignPending},
	}

	stats := collectStats(candidates, assigns, w, testLoc)
	t1, t2 := stats[0], stats[1]

	if t1.DayCount != 3 || t1.MonthCount != 3 {
		t.Errorf("t-1 期望当日 3 / 当月 3，实际 %d / %d", t1.DayCount, t1.MonthCount)
	}
	if t1.GapFromPrevious == nil || *t1.GapFromPrevious != 20 {
		t.Errorf("t-1 前序间隔期望 20，实际 %v", t1.GapFromPrevious)
	}
	if t1.GapToNext == nil || *t1.GapToNext != 10 {
		t.Errorf("t-1 后续间隔期望 10，实际 %v", t1.GapToNext)
	}
	if t2.DayCount != 0 || t2.MonthCount != 1 {
		t.Errorf("t-2 期望当日 0 / 当月 1，实际 %d / %d", t2.DayCount, t2.MonthCount)
	}
	if t2.GapFromPrevious != nil || t2.GapToNext != nil {
		t.Error("t-2 当日无分配，不应有间隔")
	}
}

func TestCollectStats_DayBoundaryUsesSchedulingTimezone(t *testing.T) {
	w := window{Start: at(2024, 6, 1, 9, 0), End: at(2024, 6, 1, 10, 0)}
	// UTC 5 月 31 日 17:00 即排班时区 6 月 1 日 01:00
	early := time.Date(2024, 5, 31, 17, 0, 0, 0, time.UTC)
	assigns := []model.AppointmentAssign{
		{TechnicianID: "t-1", EstimatedStart: early, EstimatedEnd: early.Add(time.Hour), Status: model.AssignPending},
	}

	stats := collectStats([]model.User{{UserID: "t-1"}}, assigns, w, testLoc)
	if stats[0].DayCount != 1 || stats[0].MonthCount != 1 {
		t.Errorf("应按排班时区归属到 6 月 1 日，实际当日 %d / 当月 %d", stats[0].DayCount, stats[0].MonthCount)
	}
}
