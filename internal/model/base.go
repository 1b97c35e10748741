package model

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ── JSON 文档 ──
// 运行记录原样保存发送与收到的报文，列类型为 jsonb（datatypes.JSON）

// NewJSON 将任意值序列化为 JSON 文档；nil 得到空文档
func NewJSON(v interface{}) (datatypes.JSON, error) {
	if v == nil {
		return nil, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(b), nil
}

// DecodeJSON 将文档解析到 v；空文档返回错误
func DecodeJSON(doc datatypes.JSON, v interface{}) error {
	if len(doc) == 0 {
		return fmt.Errorf("DecodeJSON: empty document")
	}
	return json.Unmarshal(doc, v)
}

// BaseModel 通用审计字段（所有业务模型嵌入）
type BaseModel struct {
	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	CreatedBy *string   `gorm:"type:varchar(64)"                   json:"created_by,omitempty"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
	UpdatedBy *string   `gorm:"type:varchar(64)"                   json:"updated_by,omitempty"`
}

// SoftDeleteModel 支持软删除的审计字段
type SoftDeleteModel struct {
	BaseModel
	DeletedAt gorm.DeletedAt `gorm:"index"           json:"deleted_at,omitempty"`
	DeletedBy *string        `gorm:"type:varchar(64)" json:"deleted_by,omitempty"`
}

// VersionedModel 支持乐观锁的软删除模型
type VersionedModel struct {
	SoftDeleteModel
	Version int `gorm:"not null;default:1" json:"version"`
}
