package models

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"
)

// CVSubmission 简历提交记录。
// 每次上传生成一行，解析完成后结构化档案以JSON列回填。
type CVSubmission struct {
	SubmissionUUID   string         `gorm:"type:char(36);primaryKey"`
	OriginalFilename string         `gorm:"type:varchar(255)"`
	StoredPath       string         `gorm:"type:varchar(1024)"`              // 本地上传目录中的路径
	ObjectPathOSS    string         `gorm:"type:varchar(1024)"`              // MinIO中的对象路径，可为空
	FileSizeBytes    int64          `gorm:"type:bigint"`
	Status           string         `gorm:"type:varchar(50);default:'UPLOADED';index:idx_cv_status"`
	CandidateProfile datatypes.JSON `gorm:"type:json"`                       // 解析出的结构化档案
	ParserVersion    string         `gorm:"type:varchar(50)"`
	ErrorMessage     string         `gorm:"type:text"`
	CreatedAt        time.Time      `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6);index:idx_cv_created_at"`
	UpdatedAt        time.Time      `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6);autoUpdateTime"`
}

// TableName 指定表名
func (CVSubmission) TableName() string {
	return "cv_submissions"
}

// MapToJSON 将map转换为datatypes.JSON
func MapToJSON(m map[string]interface{}) (datatypes.JSON, error) {
	if m == nil {
		return nil, nil
	}
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("序列化map为JSON失败: %w", err)
	}
	return datatypes.JSON(data), nil
}

// JSONToMap 将datatypes.JSON转换为map
func JSONToMap(j datatypes.JSON) (map[string]interface{}, error) {
	if len(j) == 0 {
		return nil, nil
	}
	var m map[string]interface{}
	if err := json.Unmarshal(j, &m); err != nil {
		return nil, fmt.Errorf("解析JSON为map失败: %w", err)
	}
	return m, nil
}
