package model

import (
	"testing"
	"time"
)

// ── 预约状态机 ──

func TestAppointmentStatus_TableTransitions(t *testing.T) {
	for from, targets := range appointmentTransitions {
		for _, to := range targets {
			if !from.CanTransition(to) {
				t.Errorf("表内流转 %s → %s 应合法", from, to)
			}
		}
	}
}

func TestAppointmentStatus_TerminalRejectsAll(t *testing.T) {
	for _, from := range []AppointmentStatus{AppointmentCompleted, AppointmentCancelled} {
		for to := range appointmentTransitions {
			if from.CanTransition(to) {
				t.Errorf("终态 %s 不应流转到 %s", from, to)
			}
		}
	}
	if AppointmentCompleted.CanTransition(AppointmentInVisit) {
		t.Fatal("Completed → InVisit 应被拒绝")
	}
}

func TestAppointmentStatus_CancelEscapeHatch(t *testing.T) {
	// AwaitingIRApproval 与 Visited 的表内均无 Cancelled，仍可取消
	for _, from := range []AppointmentStatus{AppointmentAwaitingIRApproval, AppointmentVisited, AppointmentPending} {
		if !from.CanTransition(AppointmentCancelled) {
			t.Errorf("%s → Cancelled 应始终合法", from)
		}
	}
}

func TestAppointmentStatus_NotInTable(t *testing.T) {
	cases := [][2]AppointmentStatus{
		{AppointmentPending, AppointmentConfirmed},
		{AppointmentAssigned, AppointmentInRepair},
		{AppointmentVisited, AppointmentInRepair},
		{AppointmentRescheduled, AppointmentConfirmed},
		{AppointmentPending, AppointmentStatus("Unknown")},
	}
	for _, c := range cases {
		if c[0].CanTransition(c[1]) {
			t.Errorf("%s → %s 不应合法", c[0], c[1])
		}
	}
}

// ── 报修单状态机 ──

func TestRequestStatus_Transitions(t *testing.T) {
	ok := [][2]RequestStatus{
		{RequestPending, RequestApproved},
		{RequestPending, RequestScheduling},
		{RequestScheduling, RequestInProgress},
		{RequestInProgress, RequestAcceptancePendingVerify},
		{RequestAcceptancePendingVerify, RequestCompleted},
		{RequestPending, RequestCancelled},
		{RequestScheduling, RequestCancelled},
	}
	for _, c := range ok {
		if !c[0].CanTransition(c[1]) {
			t.Errorf("%s → %s 应合法", c[0], c[1])
		}
	}

	bad := [][2]RequestStatus{
		{RequestPending, RequestCompleted},
		{RequestCompleted, RequestCancelled},
		{RequestCancelled, RequestPending},
		{RequestApproved, RequestCompleted},
	}
	for _, c := range bad {
		if c[0].CanTransition(c[1]) {
			t.Errorf("%s → %s 不应合法", c[0], c[1])
		}
	}
}

// ── 分配窗口 ──

func TestAppointmentAssign_Overlaps(t *testing.T) {
	base := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	a := &AppointmentAssign{EstimatedStart: base, EstimatedEnd: base.Add(time.Hour)}

	if !a.Overlaps(base.Add(30*time.Minute), base.Add(90*time.Minute)) {
		t.Error("09:30–10:30 应与 09:00–10:00 重叠")
	}
	if a.Overlaps(base.Add(time.Hour), base.Add(2*time.Hour)) {
		t.Error("半开区间首尾相接不应视为重叠")
	}
	if a.Overlaps(base.Add(-time.Hour), base) {
		t.Error("08:00–09:00 不应与 09:00–10:00 重叠")
	}
}

func TestSlot_Covers(t *testing.T) {
	s := &Slot{FromTime: "08:00", ToTime: "12:00"}
	if !s.Covers(9*60, 10*60) {
		t.Error("08:00–12:00 应覆盖 09:00–10:00")
	}
	if !s.Covers(8*60, 12*60) {
		t.Error("边界相等应视为覆盖")
	}
	if s.Covers(11*60, 12*60+30) {
		t.Error("11:00–12:30 超出班次，不应覆盖")
	}
	night := &Slot{FromTime: "18:00", ToTime: "24:00"}
	if !night.Covers(23*60, 24*60) {
		t.Error("18:00–24:00 应覆盖 23:00–24:00")
	}
	bad := &Slot{FromTime: "8点", ToTime: "12:00"}
	if bad.Covers(9*60, 10*60) {
		t.Error("时间格式非法时不应覆盖")
	}
}

func TestEndMinuteOfDay(t *testing.T) {
	loc := time.UTC
	base := time.Date(2024, 6, 1, 10, 0, 0, 0, loc)
	if got := EndMinuteOfDay(base, loc); got != 600 {
		t.Errorf("整分钟不应取整，实际 %d", got)
	}
	if got := EndMinuteOfDay(base.Add(30*time.Second), loc); got != 601 {
		t.Errorf("10:00:30 应计为 601，实际 %d", got)
	}
	if got := EndMinuteOfDay(base.Add(time.Millisecond), loc); got != 601 {
		t.Errorf("不足一秒同样向上取整，实际 %d", got)
	}
	if got := MinuteOfDay(base.Add(30*time.Second), loc); got != 600 {
		t.Errorf("开始时刻按向下取整，实际 %d", got)
	}
}
