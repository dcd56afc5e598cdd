// internal/models/role.go
package models

import "time"

type RoleAssignment struct {
	Capability Capability `json:"capability" gorm:"primaryKey;type:varchar(50)"`
	Principal  string     `json:"principal" gorm:"primaryKey;size:42;index"`
	GrantedBy  string     `json:"granted_by" gorm:"size:42"`
	CreatedAt  time.Time  `json:"created_at"`
}
