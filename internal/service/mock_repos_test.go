package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"aptcare/backend/internal/model"
	"aptcare/backend/internal/repository"
	pkgerrors "aptcare/backend/pkg/errors"
)

// memStore 各 Mock Repository 共享的内存数据，保证跨表查询一致
type memStore struct {
	seq int

	users         map[string]*model.User
	techniques    map[string]*model.Technique
	issues        map[string]*model.Issue
	workSlots     []model.WorkSlot
	schedules     map[string]*model.MaintenanceSchedule
	requests      map[string]*model.RepairRequest
	requestOrder  []string
	reqTrackings  []model.RequestTracking
	appointments  map[string]*model.Appointment
	apptOrder     []string
	apptTrackings []model.AppointmentTracking
	assigns       []*model.AppointmentAssign
	notifications []*model.Notification

	// 观测与故障注入
	locked          [][]string
	assignCreateErr error
	trackingErr     error
}

func newMemStore() *memStore {
	return &memStore{
		users:        make(map[string]*model.User),
		techniques:   make(map[string]*model.Technique),
		issues:       make(map[string]*model.Issue),
		schedules:    make(map[string]*model.MaintenanceSchedule),
		requests:     make(map[string]*model.RepairRequest),
		appointments: make(map[string]*model.Appointment),
	}
}

func (s *memStore) nextID(prefix string) string {
	s.seq++
	return fmt.Sprintf("%s-%03d", prefix, s.seq)
}

// newMockRepository 组装 Repository 聚合；未注入数据库连接，BeginTx 返回 nil 事务
func newMockRepository(s *memStore) *repository.Repository {
	return &repository.Repository{
		User:                &mockUserRepo{s},
		Technique:           &mockTechniqueRepo{s},
		Issue:               &mockIssueRepo{s},
		WorkSlot:            &mockWorkSlotRepo{s},
		MaintenanceSchedule: &mockMaintenanceScheduleRepo{s},
		RepairRequest:       &mockRepairRequestRepo{s},
		RequestTracking:     &mockRequestTrackingRepo{s},
		Appointment:         &mockAppointmentRepo{s},
		AppointmentTracking: &mockAppointmentTrackingRepo{s},
		Assign:              &mockAssignRepo{s},
		Notification:        &mockNotificationRepo{s},
	}
}

// ── Mock UserRepository ──

type mockUserRepo struct{ s *memStore }

func (m *mockUserRepo) Create(_ context.Context, user *model.User) error {
	if user.UserID == "" {
		user.UserID = m.s.nextID("user")
	}
	m.s.users[user.UserID] = user
	return nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id string) (*model.User, error) {
	if u, ok := m.s.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) ListByRoles(_ context.Context, roles ...string) ([]model.User, error) {
	var result []model.User
	for _, u := range m.s.users {
		for _, r := range roles {
			if u.Role == r && u.IsActive {
				result = append(result, *u)
				break
			}
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].UserID < result[j].UserID })
	return result, nil
}

func (m *mockUserRepo) ListTechniciansByTechnique(_ context.Context, techniqueID string) ([]model.User, error) {
	var result []model.User
	for _, u := range m.s.users {
		if u.IsTechnician() && u.HasTechnique(techniqueID) {
			result = append(result, *u)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].UserID < result[j].UserID })
	return result, nil
}

func (m *mockUserRepo) LockForUpdate(_ context.Context, ids []string) error {
	m.s.locked = append(m.s.locked, append([]string(nil), ids...))
	return nil
}

// ── Mock TechniqueRepository / IssueRepository ──

type mockTechniqueRepo struct{ s *memStore }

func (m *mockTechniqueRepo) GetByID(_ context.Context, id string) (*model.Technique, error) {
	if t, ok := m.s.techniques[id]; ok {
		return t, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockTechniqueRepo) List(_ context.Context) ([]model.Technique, error) {
	var result []model.Technique
	for _, t := range m.s.techniques {
		result = append(result, *t)
	}
	return result, nil
}

type mockIssueRepo struct{ s *memStore }

func (m *mockIssueRepo) GetByID(_ context.Context, id string) (*model.Issue, error) {
	if i, ok := m.s.issues[id]; ok {
		cp := *i
		cp.Technique = m.s.techniques[i.TechniqueID]
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

// ── Mock WorkSlotRepository ──

type mockWorkSlotRepo struct{ s *memStore }

func (m *mockWorkSlotRepo) BatchCreate(_ context.Context, slots []model.WorkSlot) error {
	m.s.workSlots = append(m.s.workSlots, slots...)
	return nil
}

func (m *mockWorkSlotRepo) ListByDate(_ context.Context, technicianIDs []string, date time.Time) ([]model.WorkSlot, error) {
	want := make(map[string]bool, len(technicianIDs))
	for _, id := range technicianIDs {
		want[id] = true
	}
	var result []model.WorkSlot
	for _, ws := range m.s.workSlots {
		if want[ws.TechnicianID] && ws.Date.Format("2006-01-02") == date.Format("2006-01-02") {
			result = append(result, ws)
		}
	}
	return result, nil
}

// ── Mock MaintenanceScheduleRepository ──

type mockMaintenanceScheduleRepo struct{ s *memStore }

func (m *mockMaintenanceScheduleRepo) GetByID(_ context.Context, id string) (*model.MaintenanceSchedule, error) {
	if ms, ok := m.s.schedules[id]; ok {
		cp := *ms
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockMaintenanceScheduleRepo) ListDue(_ context.Context, now time.Time) ([]model.MaintenanceSchedule, error) {
	var result []model.MaintenanceSchedule
	for _, ms := range m.s.schedules {
		if ms.IsActive && !ms.NextRunAt.After(now) {
			result = append(result, *ms)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ScheduleID < result[j].ScheduleID })
	return result, nil
}

func (m *mockMaintenanceScheduleRepo) Update(_ context.Context, schedule *model.MaintenanceSchedule) error {
	stored, ok := m.s.schedules[schedule.ScheduleID]
	if !ok || stored.Version != schedule.Version {
		return pkgerrors.ErrOptimisticLock
	}
	schedule.Version++
	cp := *schedule
	m.s.schedules[schedule.ScheduleID] = &cp
	return nil
}

// ── Mock RepairRequestRepository ──

type mockRepairRequestRepo struct{ s *memStore }

func (m *mockRepairRequestRepo) Create(_ context.Context, request *model.RepairRequest) error {
	if request.RequestID == "" {
		request.RequestID = m.s.nextID("req")
	}
	cp := *request
	cp.Issue, cp.MaintenanceSchedule = nil, nil
	m.s.requests[request.RequestID] = &cp
	m.s.requestOrder = append(m.s.requestOrder, request.RequestID)
	return nil
}

func (m *mockRepairRequestRepo) GetByID(_ context.Context, id string) (*model.RepairRequest, error) {
	r, ok := m.s.requests[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return m.s.hydrateRequest(r), nil
}

func (s *memStore) hydrateRequest(r *model.RepairRequest) *model.RepairRequest {
	cp := *r
	if r.IssueID != nil {
		if issue, ok := s.issues[*r.IssueID]; ok {
			ic := *issue
			cp.Issue = &ic
		}
	}
	if r.MaintenanceScheduleID != nil {
		if ms, ok := s.schedules[*r.MaintenanceScheduleID]; ok {
			mc := *ms
			cp.MaintenanceSchedule = &mc
		}
	}
	return &cp
}

func (m *mockRepairRequestRepo) List(ctx context.Context, filter repository.RepairRequestFilter, offset, limit int) ([]model.RepairRequest, int64, error) {
	if !repository.ValidRequestSort(filter.SortBy) {
		return nil, 0, repository.ErrInvalidSort
	}
	tr := &mockRequestTrackingRepo{m.s}
	var result []model.RepairRequest
	for _, id := range m.s.requestOrder {
		r := m.s.requests[id]
		if filter.RequesterID != "" && r.RequesterID != filter.RequesterID {
			continue
		}
		if filter.Status != "" {
			st, _ := tr.LatestStatuses(ctx, []string{id})
			if st[id] != filter.Status {
				continue
			}
		}
		result = append(result, *r)
	}
	switch filter.SortBy {
	case "title":
		sort.SliceStable(result, func(i, j int) bool { return result[i].Title < result[j].Title })
	case "title_desc":
		sort.SliceStable(result, func(i, j int) bool { return result[i].Title > result[j].Title })
	}
	total := int64(len(result))
	if offset >= len(result) {
		return nil, total, nil
	}
	end := offset + limit
	if end > len(result) {
		end = len(result)
	}
	return result[offset:end], total, nil
}

func (m *mockRepairRequestRepo) ListByParents(_ context.Context, parentIDs []string) ([]model.RepairRequest, error) {
	want := make(map[string]bool, len(parentIDs))
	for _, id := range parentIDs {
		want[id] = true
	}
	var result []model.RepairRequest
	for _, id := range m.s.requestOrder {
		r := m.s.requests[id]
		if r.ParentRequestID != nil && want[*r.ParentRequestID] {
			result = append(result, *r)
		}
	}
	return result, nil
}

// ── Mock RequestTrackingRepository ──

type mockRequestTrackingRepo struct{ s *memStore }

func (m *mockRequestTrackingRepo) Create(_ context.Context, tracking *model.RequestTracking) error {
	if m.s.trackingErr != nil {
		return m.s.trackingErr
	}
	for _, t := range m.s.reqTrackings {
		if t.RequestID == tracking.RequestID && t.RecordedAt.Equal(tracking.RecordedAt) {
			return repository.ErrUniqueViolation
		}
	}
	tracking.TrackingID = m.s.nextID("rt")
	m.s.reqTrackings = append(m.s.reqTrackings, *tracking)
	return nil
}

func (m *mockRequestTrackingRepo) Latest(_ context.Context, requestID string) (*model.RequestTracking, error) {
	var latest *model.RequestTracking
	for i := range m.s.reqTrackings {
		t := &m.s.reqTrackings[i]
		if t.RequestID == requestID && (latest == nil || t.RecordedAt.After(latest.RecordedAt)) {
			latest = t
		}
	}
	if latest == nil {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *latest
	return &cp, nil
}

func (m *mockRequestTrackingRepo) ListByRequest(_ context.Context, requestID string) ([]model.RequestTracking, error) {
	var result []model.RequestTracking
	for _, t := range m.s.reqTrackings {
		if t.RequestID == requestID {
			result = append(result, t)
		}
	}
	sort.SliceStable(result, func(i, j int) bool { return result[i].RecordedAt.Before(result[j].RecordedAt) })
	return result, nil
}

func (m *mockRequestTrackingRepo) LatestStatuses(ctx context.Context, requestIDs []string) (map[string]model.RequestStatus, error) {
	result := make(map[string]model.RequestStatus, len(requestIDs))
	for _, id := range requestIDs {
		if t, err := m.Latest(ctx, id); err == nil {
			result[id] = t.Status
		}
	}
	return result, nil
}

// ── Mock AppointmentRepository ──

type mockAppointmentRepo struct{ s *memStore }

func (m *mockAppointmentRepo) Create(_ context.Context, appt *model.Appointment) error {
	if appt.AppointmentID == "" {
		appt.AppointmentID = m.s.nextID("appt")
	}
	cp := *appt
	cp.RepairRequest = nil
	m.s.appointments[appt.AppointmentID] = &cp
	m.s.apptOrder = append(m.s.apptOrder, appt.AppointmentID)
	return nil
}

func (m *mockAppointmentRepo) GetByID(_ context.Context, id string) (*model.Appointment, error) {
	a, ok := m.s.appointments[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return m.s.hydrateAppointment(a), nil
}

func (s *memStore) hydrateAppointment(a *model.Appointment) *model.Appointment {
	cp := *a
	if r, ok := s.requests[a.RequestID]; ok {
		cp.RepairRequest = s.hydrateRequest(r)
	}
	return &cp
}

func (m *mockAppointmentRepo) ListByRequest(_ context.Context, requestID string) ([]model.Appointment, error) {
	var result []model.Appointment
	for _, id := range m.s.apptOrder {
		if a := m.s.appointments[id]; a.RequestID == requestID {
			result = append(result, *a)
		}
	}
	return result, nil
}

// ── Mock AppointmentTrackingRepository ──

type mockAppointmentTrackingRepo struct{ s *memStore }

func (m *mockAppointmentTrackingRepo) Create(_ context.Context, tracking *model.AppointmentTracking) error {
	if m.s.trackingErr != nil {
		return m.s.trackingErr
	}
	for _, t := range m.s.apptTrackings {
		if t.AppointmentID == tracking.AppointmentID && t.RecordedAt.Equal(tracking.RecordedAt) {
			return repository.ErrUniqueViolation
		}
	}
	tracking.TrackingID = m.s.nextID("at")
	m.s.apptTrackings = append(m.s.apptTrackings, *tracking)
	return nil
}

func (m *mockAppointmentTrackingRepo) Latest(_ context.Context, appointmentID string) (*model.AppointmentTracking, error) {
	var latest *model.AppointmentTracking
	for i := range m.s.apptTrackings {
		t := &m.s.apptTrackings[i]
		if t.AppointmentID == appointmentID && (latest == nil || t.RecordedAt.After(latest.RecordedAt)) {
			latest = t
		}
	}
	if latest == nil {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *latest
	return &cp, nil
}

func (m *mockAppointmentTrackingRepo) ListByAppointment(_ context.Context, appointmentID string) ([]model.AppointmentTracking, error) {
	var result []model.AppointmentTracking
	for _, t := range m.s.apptTrackings {
		if t.AppointmentID == appointmentID {
			result = append(result, t)
		}
	}
	sort.SliceStable(result, func(i, j int) bool { return result[i].RecordedAt.Before(result[j].RecordedAt) })
	return result, nil
}

// ── Mock AssignRepository ──
// BatchCreate 模拟唯一索引与排他约束，整批校验通过后才写入

type mockAssignRepo struct{ s *memStore }

func (m *mockAssignRepo) BatchCreate(_ context.Context, assigns []model.AppointmentAssign) error {
	if m.s.assignCreateErr != nil {
		return m.s.assignCreateErr
	}
	pending := make([]*model.AppointmentAssign, 0, len(assigns))
	for i := range assigns {
		a := &assigns[i]
		for _, existing := range append(m.s.liveAssigns(), pending...) {
			if existing.TechnicianID != a.TechnicianID {
				continue
			}
			if existing.AppointmentID == a.AppointmentID {
				return errors.Join(repository.ErrUniqueViolation, errors.New("uq_assign_technician_appointment"))
			}
			if existing.Overlaps(a.EstimatedStart, a.EstimatedEnd) {
				return errors.Join(repository.ErrExclusionViolation, errors.New("ex_assign_technician_window"))
			}
		}
		pending = append(pending, a)
	}
	for _, a := range pending {
		a.AssignID = m.s.nextID("assign")
		cp := *a
		m.s.assigns = append(m.s.assigns, &cp)
	}
	return nil
}

func (s *memStore) liveAssigns() []*model.AppointmentAssign {
	var result []*model.AppointmentAssign
	for _, a := range s.assigns {
		if a.Live() {
			result = append(result, a)
		}
	}
	return result
}

func (m *mockAssignRepo) Update(_ context.Context, assign *model.AppointmentAssign) error {
	for _, a := range m.s.assigns {
		if a.AssignID == assign.AssignID {
			a.Status = assign.Status
			a.ActualStart = assign.ActualStart
			a.ActualEnd = assign.ActualEnd
			a.UpdatedBy = assign.UpdatedBy
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (m *mockAssignRepo) GetLive(_ context.Context, technicianID, appointmentID string) (*model.AppointmentAssign, error) {
	for _, a := range m.s.liveAssigns() {
		if a.TechnicianID == technicianID && a.AppointmentID == appointmentID {
			cp := *a
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockAssignRepo) ListLiveByAppointment(_ context.Context, appointmentID string) ([]model.AppointmentAssign, error) {
	var result []model.AppointmentAssign
	for _, a := range m.s.liveAssigns() {
		if a.AppointmentID == appointmentID {
			result = append(result, *a)
		}
	}
	return result, nil
}

func (m *mockAssignRepo) ListLiveBetween(_ context.Context, technicianIDs []string, from, to time.Time) ([]model.AppointmentAssign, error) {
	want := make(map[string]bool, len(technicianIDs))
	for _, id := range technicianIDs {
		want[id] = true
	}
	var result []model.AppointmentAssign
	for _, a := range m.s.liveAssigns() {
		if want[a.TechnicianID] && a.Overlaps(from, to) {
			result = append(result, *a)
		}
	}
	sort.SliceStable(result, func(i, j int) bool { return result[i].EstimatedStart.Before(result[j].EstimatedStart) })
	return result, nil
}

func (m *mockAssignRepo) ListAgenda(_ context.Context, technicianID string, from, to time.Time) ([]model.AppointmentAssign, error) {
	var result []model.AppointmentAssign
	for _, a := range m.s.liveAssigns() {
		if a.TechnicianID != technicianID || !a.Overlaps(from, to) {
			continue
		}
		cp := *a
		if appt, ok := m.s.appointments[a.AppointmentID]; ok {
			cp.Appointment = m.s.hydrateAppointment(appt)
		}
		result = append(result, cp)
	}
	sort.SliceStable(result, func(i, j int) bool { return result[i].EstimatedStart.Before(result[j].EstimatedStart) })
	return result, nil
}

func (m *mockAssignRepo) CancelByAppointments(_ context.Context, appointmentIDs []string) (int64, error) {
	want := make(map[string]bool, len(appointmentIDs))
	for _, id := range appointmentIDs {
		want[id] = true
	}
	var n int64
	for _, a := range m.s.liveAssigns() {
		if want[a.AppointmentID] {
			a.Status = model.AssignCancel
			n++
		}
	}
	return n, nil
}

// ── Mock NotificationRepository ──

type mockNotificationRepo struct{ s *memStore }

func (m *mockNotificationRepo) BatchCreate(_ context.Context, notifications []model.Notification) error {
	for i := range notifications {
		n := notifications[i]
		n.NotificationID = m.s.nextID("note")
		m.s.notifications = append(m.s.notifications, &n)
	}
	return nil
}

func (m *mockNotificationRepo) ListByUser(_ context.Context, userID string, unreadOnly bool, offset, limit int) ([]model.Notification, int64, error) {
	var result []model.Notification
	for _, n := range m.s.notifications {
		if n.UserID != userID || (unreadOnly && n.IsRead) {
			continue
		}
		result = append(result, *n)
	}
	total := int64(len(result))
	if offset >= len(result) {
		return nil, total, nil
	}
	end := offset + limit
	if end > len(result) {
		end = len(result)
	}
	return result[offset:end], total, nil
}

func (m *mockNotificationRepo) MarkRead(_ context.Context, userID string, ids []string) (int64, error) {
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	var n int64
	for _, note := range m.s.notifications {
		if note.UserID == userID && want[note.NotificationID] && !note.IsRead {
			note.IsRead = true
			n++
		}
	}
	return n, nil
}

// ── Mock Notifier ──

type recordingNotifier struct {
	sent []Notification
}

func (n *recordingNotifier) Notify(_ context.Context, note Notification) {
	n.sent = append(n.sent, note)
}

func (n *recordingNotifier) ofType(notificationType string) []Notification {
	var result []Notification
	for _, note := range n.sent {
		if note.Type == notificationType {
			result = append(result, note)
		}
	}
	return result
}

// ════════════════════════════════════════════════════════════
// 测试夹具
// ════════════════════════════════════════════════════════════

var testLoc = mustLoadLocation("Asia/Shanghai")

func mustLoadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.FixedZone("CST", 8*3600)
	}
	return loc
}

// at 排班时区下的时刻
func at(year int, month time.Month, day, hour, minute int) time.Time {
	return time.Date(year, month, day, hour, minute, 0, 0, testLoc)
}

type fixture struct {
	store    *memStore
	repo     *repository.Repository
	notifier *recordingNotifier
	engine   *engine
	clock    time.Time

	assignment  *assignmentService
	appointment *appointmentService
	request     *repairRequestService
	maintenance *maintenanceService

	manager  Actor
	resident Actor
}

func newFixture() *fixture {
	f := &fixture{
		store:    newMemStore(),
		notifier: &recordingNotifier{},
		clock:    at(2024, 5, 20, 8, 0),
	}
	f.repo = newMockRepository(f.store)
	f.engine = &engine{
		repo:            f.repo,
		notifier:        f.notifier,
		logger:          zap.NewNop(),
		loc:             testLoc,
		gapCap:          30,
		defaultRequired: 1,
		defaultDuration: time.Hour,
		now:             func() time.Time { return f.clock },
	}
	f.assignment = &assignmentService{engine: f.engine}
	f.appointment = &appointmentService{engine: f.engine}
	f.request = &repairRequestService{engine: f.engine}
	f.maintenance = &maintenanceService{engine: f.engine}

	f.manager = Actor{UserID: f.addUser("王经理", model.RoleManager), Role: model.RoleManager}
	f.resident = Actor{UserID: f.addUser("李住户", model.RoleResident), Role: model.RoleResident}
	return f
}

func (f *fixture) addUser(name, role string) string {
	u := &model.User{UserID: f.store.nextID(role), Name: name, Role: role, IsActive: true}
	f.store.users[u.UserID] = u
	return u.UserID
}

func (f *fixture) addTechnique(name string) string {
	t := &model.Technique{TechniqueID: f.store.nextID("tq"), Name: name}
	f.store.techniques[t.TechniqueID] = t
	return t.TechniqueID
}

// addTechnician 技术员 ID 带序号前缀，按创建顺序即 ID 升序
func (f *fixture) addTechnician(name string, techniqueIDs ...string) string {
	id := f.addUser(name, model.RoleTechnician)
	for _, tq := range techniqueIDs {
		f.store.users[id].Techniques = append(f.store.users[id].Techniques, *f.store.techniques[tq])
	}
	return id
}

func (f *fixture) technicianActor(id string) Actor {
	return Actor{UserID: id, Role: model.RoleTechnician}
}

// addShift 技术员当日班次
func (f *fixture) addShift(techID string, day time.Time, from, to, status string) {
	slot := &model.Slot{SlotID: f.store.nextID("slot"), Name: from + "-" + to, FromTime: from, ToTime: to, IsActive: true}
	f.store.workSlots = append(f.store.workSlots, model.WorkSlot{
		WorkSlotID:   f.store.nextID("ws"),
		TechnicianID: techID,
		SlotID:       slot.SlotID,
		Date:         model.DateOf(day, testLoc),
		Status:       status,
		Slot:         slot,
	})
}

func (f *fixture) addIssue(techniqueID string, required, minutes int, emergency bool) string {
	i := &model.Issue{
		IssueID:             f.store.nextID("issue"),
		Name:                "故障",
		TechniqueID:         techniqueID,
		EstimatedDuration:   minutes,
		RequiredTechnicians: required,
		IsEmergency:         emergency,
	}
	f.store.issues[i.IssueID] = i
	return i.IssueID
}

func (f *fixture) addRequest(title, issueID string, emergency bool) string {
	r := &model.RepairRequest{
		RequestID:   f.store.nextID("req"),
		Title:       title,
		RequesterID: f.resident.UserID,
		IsEmergency: emergency,
	}
	if issueID != "" {
		r.IssueID = &issueID
	}
	f.store.requests[r.RequestID] = r
	f.store.requestOrder = append(f.store.requestOrder, r.RequestID)
	return r.RequestID
}

func (f *fixture) addAppointment(requestID string, start, end time.Time) string {
	a := &model.Appointment{
		AppointmentID: f.store.nextID("appt"),
		RequestID:     requestID,
		StartTime:     start,
		EndTime:       &end,
		IsEmergency:   f.store.requests[requestID].IsEmergency,
	}
	f.store.appointments[a.AppointmentID] = a
	f.store.apptOrder = append(f.store.apptOrder, a.AppointmentID)
	return a.AppointmentID
}

func (f *fixture) addAssign(techID, apptID string, start, end time.Time, status model.AssignStatus) {
	f.store.assigns = append(f.store.assigns, &model.AppointmentAssign{
		AssignID:       f.store.nextID("assign"),
		TechnicianID:   techID,
		AppointmentID:  apptID,
		EstimatedStart: start,
		EstimatedEnd:   end,
		Status:         status,
	})
}

// setApptStatus 直接追加一条预约流水
func (f *fixture) setApptStatus(apptID string, status model.AppointmentStatus) {
	f.clock = f.clock.Add(time.Second)
	f.store.apptTrackings = append(f.store.apptTrackings, model.AppointmentTracking{
		TrackingID:    f.store.nextID("at"),
		AppointmentID: apptID,
		Status:        status,
		RecordedAt:    f.clock.UTC(),
	})
}

func (f *fixture) setRequestStatus(requestID string, status model.RequestStatus) {
	f.clock = f.clock.Add(time.Second)
	f.store.reqTrackings = append(f.store.reqTrackings, model.RequestTracking{
		TrackingID: f.store.nextID("rt"),
		RequestID:  requestID,
		Status:     status,
		RecordedAt: f.clock.UTC(),
	})
}

func (f *fixture) apptStatus(apptID string) model.AppointmentStatus {
	st, err := f.engine.appointmentState(context.Background(), f.repo, apptID)
	if err != nil {
		panic(err)
	}
	return st.Status
}

func (f *fixture) requestStatus(requestID string) model.RequestStatus {
	st, err := f.engine.requestState(context.Background(), f.repo, requestID)
	if err != nil {
		panic(err)
	}
	return st.Status
}

func (f *fixture) liveAssignsOf(apptID string) []model.AppointmentAssign {
	live, _ := f.repo.Assign.ListLiveByAppointment(context.Background(), apptID)
	return live
}
