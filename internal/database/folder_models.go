package database

import (
	"time"

	"gorm.io/gorm"
)

// Folder 文件夹模型
// 用户自定义的邮件分类目录，每个文件夹映射一个Gmail标签
// 文件夹名称在同一用户下唯一（不区分大小写）
type Folder struct {
	ID            uint           `gorm:"primarykey" json:"id"`                          // 主键ID，自增
	FolderID      string         `gorm:"not null;uniqueIndex;size:36" json:"folder_id"` // 业务ID（UUID格式）
	OwnerID       uint           `gorm:"not null;index:idx_folders_owner_name" json:"owner_id"` // 所属用户ID，外键
	Owner         User           `gorm:"foreignKey:OwnerID" json:"-"`                   // 关联的用户对象
	Name          string         `gorm:"not null;size:100;index:idx_folders_owner_name" json:"name"` // 文件夹名称
	Description   string         `gorm:"size:500" json:"description"`                   // 文件夹描述
	Color         string         `gorm:"size:7;default:'#007bff'" json:"color"`         // 文件夹颜色，十六进制格式
	GmailLabelID  string         `gorm:"size:64;index" json:"gmail_label_id"`           // 映射的Gmail标签ID
	SortOrder     int            `gorm:"default:0" json:"sort_order"`                   // 排序顺序，同时决定分类规则的匹配优先级
	IsDefault     bool           `gorm:"default:false" json:"is_default"`               // 是否为入驻时创建的默认文件夹
	MessageCount  int64          `gorm:"default:0" json:"message_count"`                // 已归类邮件数量统计
	MatchSenders  string         `gorm:"size:1000" json:"match_senders"`                // 发件人匹配规则，逗号分隔的子串列表
	MatchKeywords string         `gorm:"size:1000" json:"match_keywords"`               // 主题关键词匹配规则，逗号分隔
	CreatedAt     time.Time      `json:"created_at"`                                    // 文件夹创建时间
	UpdatedAt     time.Time      `json:"updated_at"`                                    // 文件夹最后修改时间
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`                                // 软删除时间戳，支持逻辑删除
}

// TableName 指定Folder模型对应的数据库表名
func (Folder) TableName() string {
	return "folders"
}
