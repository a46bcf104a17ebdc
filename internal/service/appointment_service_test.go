package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"aptcare/backend/internal/dto"
	"aptcare/backend/internal/model"
	pkgerrors "aptcare/backend/pkg/errors"
)

// ── ToggleStatus 测试 ──

func TestAppointmentService_Toggle_TerminalRejected(t *testing.T) {
	f := newFixture()
	tq, _ := plumbingWorld(f, "甲")
	appt := morningAppointment(f, tq, 1)
	f.setApptStatus(appt, model.AppointmentCompleted)
	before := len(f.store.apptTrackings)

	_, err := f.appointment.ToggleStatus(context.Background(), appt, model.AppointmentInVisit, "", f.manager)
	if !errors.Is(err, pkgerrors.ErrInvalidStatusTransition) {
		t.Fatalf("期望 ErrInvalidStatusTransition，实际 %v", err)
	}
	var te *pkgerrors.TransitionError
	if !errors.As(err, &te) || te.Current != "Completed" || te.Requested != "InVisit" {
		t.Errorf("应携带当前与目标状态，实际 %+v", te)
	}
	if len(f.store.apptTrackings) != before {
		t.Error("非法流转不应写入流水")
	}
}

func TestAppointmentService_Toggle_NotInTable(t *testing.T) {
	f := newFixture()
	tq, _ := plumbingWorld(f, "甲")
	appt := morningAppointment(f, tq, 1)

	_, err := f.appointment.ToggleStatus(context.Background(), appt, model.AppointmentInRepair, "", f.manager)
	if !errors.Is(err, pkgerrors.ErrInvalidStatusTransition) {
		t.Errorf("Pending → InRepair 应被拒绝，实际 %v", err)
	}
	if _, err := f.appointment.ToggleStatus(context.Background(), appt, "Unknown", "", f.manager); !errors.Is(err, ErrUnknownAppointmentStatus) {
		t.Errorf("期望 ErrUnknownAppointmentStatus，实际 %v", err)
	}
}

func TestAppointmentService_Toggle_CancelReleasesAssigns(t *testing.T) {
	f := newFixture()
	appt, tech := assignedAppointment(f)

	resp, err := f.appointment.ToggleStatus(context.Background(), appt, model.AppointmentCancelled, "住户外出", f.manager)
	if err != nil {
		t.Fatalf("取消应成功: %v", err)
	}
	if resp.Status != string(model.AppointmentCancelled) {
		t.Errorf("期望 Cancelled，实际 %s", resp.Status)
	}
	if len(resp.Assigns) != 0 || len(f.liveAssignsOf(appt)) != 0 {
		t.Error("取消后不应保留非取消分配")
	}
	notes := f.notifier.ofType(model.NotificationAppointmentCancel)
	if len(notes) != 1 || notes[0].RecipientIDs[0] != tech {
		t.Errorf("应通知被释放的技术员，实际 %+v", notes)
	}
	if notes := f.notifier.ofType(model.NotificationRequestStatus); len(notes) != 1 || notes[0].RecipientIDs[0] != f.resident.UserID {
		t.Errorf("应通知报修人，实际 %+v", notes)
	}
}

func TestAppointmentService_Toggle_CancelFromAwaitingApproval(t *testing.T) {
	f := newFixture()
	tq, _ := plumbingWorld(f, "甲")
	appt := morningAppointment(f, tq, 1)
	f.setApptStatus(appt, model.AppointmentAwaitingIRApproval)

	if _, err := f.appointment.ToggleStatus(context.Background(), appt, model.AppointmentCancelled, "", f.manager); err != nil {
		t.Errorf("非终态均可取消: %v", err)
	}
}

func TestAppointmentService_Toggle_Permission(t *testing.T) {
	f := newFixture()
	appt, tech := assignedAppointment(f)

	if _, err := f.appointment.ToggleStatus(context.Background(), appt, model.AppointmentConfirmed, "", f.resident); !errors.Is(err, ErrPermissionDenied) {
		t.Errorf("住户不能直接流转预约，实际 %v", err)
	}
	if _, err := f.appointment.ToggleStatus(context.Background(), appt, model.AppointmentConfirmed, "", f.technicianActor(tech)); err != nil {
		t.Errorf("已分配的技术员可以流转预约: %v", err)
	}
}

// 时钟冻结甚至回拨时，流水时间仍严格递增
func TestAppointmentService_TrackingMonotonic(t *testing.T) {
	f := newFixture()
	appt, tech := assignedAppointment(f)
	ctx := context.Background()
	actor := f.technicianActor(tech)

	if _, err := f.appointment.ToggleStatus(ctx, appt, model.AppointmentConfirmed, "", f.manager); err != nil {
		t.Fatalf("Confirmed 失败: %v", err)
	}
	f.clock = f.clock.Add(-time.Hour)
	if _, err := f.appointment.CheckIn(ctx, appt, "", actor); err != nil {
		t.Fatalf("CheckIn 失败: %v", err)
	}
	if _, err := f.appointment.ToggleStatus(ctx, appt, model.AppointmentPreCheck, "", actor); err != nil {
		t.Fatalf("PreCheck 失败: %v", err)
	}

	resp, err := f.appointment.Get(ctx, appt, f.manager)
	if err != nil {
		t.Fatalf("Get 失败: %v", err)
	}
	if len(resp.Trackings) != 4 {
		t.Fatalf("期望 4 条流水，实际 %d", len(resp.Trackings))
	}
	var last time.Time
	for _, tr := range f.store.apptTrackings {
		if !tr.RecordedAt.After(last) {
			t.Fatalf("流水时间未严格递增: %v 不晚于 %v", tr.RecordedAt, last)
		}
		last = tr.RecordedAt
	}
	if resp.Status != string(model.AppointmentPreCheck) {
		t.Errorf("当前状态应取最新流水，实际 %s", resp.Status)
	}
}

// ── 技术员现场流程 ──

func TestAppointmentService_TechnicianFlow(t *testing.T) {
	f := newFixture()
	appt, tech := assignedAppointment(f)
	ctx := context.Background()
	actor := f.technicianActor(tech)
	requestID := f.store.appointments[appt].RequestID
	f.setRequestStatus(requestID, model.RequestApproved)
	f.setRequestStatus(requestID, model.RequestInProgress)

	// 未确认不能上门
	if _, err := f.appointment.CheckIn(ctx, appt, "", actor); !errors.Is(err, pkgerrors.ErrInvalidStatusTransition) {
		t.Errorf("Assigned 状态 CheckIn 应被拒绝，实际 %v", err)
	}
	if _, err := f.assignment.ConfirmAssignment(ctx, appt, true, "", f.resident); err != nil {
		t.Fatalf("确认失败: %v", err)
	}

	stranger := f.technicianActor(f.addUser("他人", model.RoleTechnician))
	if _, err := f.appointment.CheckIn(ctx, appt, "", stranger); !errors.Is(err, ErrNotAssignedTechnician) {
		t.Errorf("期望 ErrNotAssignedTechnician，实际 %v", err)
	}

	resp, err := f.appointment.CheckIn(ctx, appt, "已到场", actor)
	if err != nil {
		t.Fatalf("CheckIn 失败: %v", err)
	}
	if resp.Status != string(model.AppointmentInVisit) {
		t.Errorf("期望 InVisit，实际 %s", resp.Status)
	}
	if a := resp.Assigns[0]; a.Status != string(model.AssignWorking) || a.ActualStart == nil {
		t.Errorf("上门后分配应为 working 且记录实际开始时间，实际 %+v", a)
	}

	if _, err := f.appointment.ToggleStatus(ctx, appt, model.AppointmentAwaitingIRApproval, "提交检查报告", actor); err != nil {
		t.Fatalf("提交检查报告失败: %v", err)
	}
	if _, err := f.appointment.StartRepair(ctx, appt, "", f.manager); err != nil {
		t.Fatalf("StartRepair 失败: %v", err)
	}

	f.clock = f.clock.Add(2 * time.Hour)
	resp, err = f.appointment.CompleteRepair(ctx, appt, "已更换水管", actor)
	if err != nil {
		t.Fatalf("CompleteRepair 失败: %v", err)
	}
	if resp.Status != string(model.AppointmentCompleted) {
		t.Errorf("期望 Completed，实际 %s", resp.Status)
	}
	if a := resp.Assigns[0]; a.Status != string(model.AssignCompleted) || a.ActualEnd == nil {
		t.Errorf("完工后分配应为 completed 且记录实际结束时间，实际 %+v", a)
	}
	if got := f.requestStatus(requestID); got != model.RequestAcceptancePendingVerify {
		t.Errorf("全部预约完成后报修单应进入验收待核验，实际 %s", got)
	}
}

func TestAppointmentService_CompleteRepair_WaitsForSiblings(t *testing.T) {
	f := newFixture()
	appt, tech := assignedAppointment(f)
	requestID := f.store.appointments[appt].RequestID
	f.addAppointment(requestID, at(2024, 6, 2, 9, 0), at(2024, 6, 2, 10, 0))
	f.setRequestStatus(requestID, model.RequestApproved)
	f.setRequestStatus(requestID, model.RequestInProgress)
	f.setApptStatus(appt, model.AppointmentInRepair)

	if _, err := f.appointment.CompleteRepair(context.Background(), appt, "", f.technicianActor(tech)); err != nil {
		t.Fatalf("CompleteRepair 失败: %v", err)
	}
	if got := f.requestStatus(requestID); got != model.RequestInProgress {
		t.Errorf("仍有未结束的预约时报修单状态不变，实际 %s", got)
	}
}

// ── Create / Get 测试 ──

func TestAppointmentService_Create_DerivesEndAndAutoAssigns(t *testing.T) {
	f := newFixture()
	tq, techs := plumbingWorld(f, "甲")
	requestID := f.addRequest("厨房漏水", f.addIssue(tq, 1, 90, false), false)

	resp, err := f.appointment.Create(context.Background(), requestID, &dto.CreateAppointmentRequest{
		StartTime: at(2024, 6, 1, 9, 0),
	}, f.resident)
	if err != nil {
		t.Fatalf("Create 失败: %v", err)
	}
	if resp.EndTime == nil || *resp.EndTime != dto.FormatTime(at(2024, 6, 1, 10, 30)) {
		t.Errorf("结束时间应按故障工时推算为 10:30，实际 %v", resp.EndTime)
	}
	if resp.Status != string(model.AppointmentAssigned) || len(resp.Assigns) != 1 || resp.Assigns[0].TechnicianID != techs[0] {
		t.Errorf("创建后应自动分配，实际 %+v", resp)
	}
}

func TestAppointmentService_Create_Errors(t *testing.T) {
	f := newFixture()
	tq, _ := plumbingWorld(f, "甲")
	requestID := f.addRequest("厨房漏水", f.addIssue(tq, 1, 60, false), false)
	ctx := context.Background()
	early := at(2024, 6, 1, 8, 0)

	_, err := f.appointment.Create(ctx, requestID, &dto.CreateAppointmentRequest{StartTime: at(2024, 6, 1, 9, 0), EndTime: &early}, f.manager)
	if !errors.Is(err, ErrInvalidAppointmentWindow) {
		t.Errorf("期望 ErrInvalidAppointmentWindow，实际 %v", err)
	}

	stranger := Actor{UserID: f.addUser("路人", model.RoleResident), Role: model.RoleResident}
	if _, err := f.appointment.Create(ctx, requestID, &dto.CreateAppointmentRequest{StartTime: early}, stranger); !errors.Is(err, ErrPermissionDenied) {
		t.Errorf("期望 ErrPermissionDenied，实际 %v", err)
	}

	f.setRequestStatus(requestID, model.RequestCancelled)
	if _, err := f.appointment.Create(ctx, requestID, &dto.CreateAppointmentRequest{StartTime: early}, f.manager); !errors.Is(err, ErrRepairRequestClosed) {
		t.Errorf("期望 ErrRepairRequestClosed，实际 %v", err)
	}
	if len(f.store.appointments) != 0 {
		t.Error("失败时不应写入预约")
	}
}

func TestAppointmentService_Get(t *testing.T) {
	f := newFixture()
	appt, tech := assignedAppointment(f)
	ctx := context.Background()

	for _, actor := range []Actor{f.manager, f.resident, f.technicianActor(tech)} {
		if _, err := f.appointment.Get(ctx, appt, actor); err != nil {
			t.Errorf("%s 应可查看预约: %v", actor.Role, err)
		}
	}
	stranger := Actor{UserID: f.addUser("路人", model.RoleResident), Role: model.RoleResident}
	if _, err := f.appointment.Get(ctx, appt, stranger); !errors.Is(err, ErrPermissionDenied) {
		t.Errorf("期望 ErrPermissionDenied，实际 %v", err)
	}
	if _, err := f.appointment.Get(ctx, "appt-missing", f.manager); !errors.Is(err, ErrAppointmentNotFound) {
		t.Errorf("期望 ErrAppointmentNotFound，实际 %v", err)
	}
}
