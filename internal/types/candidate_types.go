package types

import "encoding/json"

// ContactInfo 候选人联系方式
type ContactInfo struct {
	Email     string `json:"email,omitempty"`
	Phone     string `json:"phone,omitempty"`
	LinkedIn  string `json:"linkedin,omitempty"`
	GitHub    string `json:"github,omitempty"`
	Portfolio string `json:"portfolio,omitempty"`
	Address   string `json:"address,omitempty"`
}

// Experience 工作经历条目
// 日期保留为自由文本，不做日期解析
type Experience struct {
	Company      string   `json:"company"`
	Position     string   `json:"position"`
	StartDate    string   `json:"start_date,omitempty"`
	EndDate      string   `json:"end_date,omitempty"`
	IsCurrent    bool     `json:"is_current,omitempty"`
	Description  string   `json:"description,omitempty"`
	Achievements []string `json:"achievements,omitempty"`
}

// Education 教育经历条目
type Education struct {
	Institution  string   `json:"institution"`
	Degree       string   `json:"degree"`
	FieldOfStudy string   `json:"field_of_study,omitempty"`
	StartDate    string   `json:"start_date,omitempty"`
	EndDate      string   `json:"end_date,omitempty"`
	GPA          string   `json:"gpa,omitempty"`
	Achievements []string `json:"achievements,omitempty"`
}

// Project 项目经历条目
type Project struct {
	Name         string   `json:"name"`
	Description  string   `json:"description"`
	Technologies []string `json:"technologies,omitempty"`
	URL          string   `json:"url,omitempty"`
	Date         string   `json:"date,omitempty"`
}

// Certification 证书条目
type Certification struct {
	Name         string `json:"name"`
	Issuer       string `json:"issuer,omitempty"`
	DateIssued   string `json:"date_issued,omitempty"`
	ExpiryDate   string `json:"expiry_date,omitempty"`
	CredentialID string `json:"credential_id,omitempty"`
}

// CandidateProfile 从单份简历中抽取出的完整候选人档案
// 由各抽取步骤逐字段填充：每个步骤只贡献互不重叠的字段子集，
// 正常流程下任何步骤不会覆盖其他步骤已写入的字段。
type CandidateProfile struct {
	Name           string          `json:"name"`
	ContactInfo    ContactInfo     `json:"contact_info"`
	Summary        string          `json:"summary,omitempty"`
	Skills         []string        `json:"skills,omitempty"`
	Experience     []Experience    `json:"experience,omitempty"`
	Education      []Education     `json:"education,omitempty"`
	Projects       []Project       `json:"projects,omitempty"`
	Certifications []Certification `json:"certifications,omitempty"`
	Languages      []string        `json:"languages,omitempty"`
}

// UnmarshalJSON 兼容两种证书表示：纯字符串（仅名称）或结构化对象
func (c *Certification) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err == nil {
		c.Name = name
		return nil
	}

	type certification Certification
	var structured certification
	if err := json.Unmarshal(data, &structured); err != nil {
		return err
	}
	*c = Certification(structured)
	return nil
}

// CandidateData 步骤编排器的累积工作状态
// 每个步骤把解析出的JSON对象的键合并进来，最终整体落盘
type CandidateData map[string]interface{}

// Merge 将另一个映射的键并入当前数据，调用方保证各步骤键集合互不重叠
func (d CandidateData) Merge(other map[string]interface{}) {
	for k, v := range other {
		d[k] = v
	}
}

// ToProfile 将累积数据解码为强类型的候选人档案。
// 模型输出的形状不保证与档案结构一致，解码失败时由调用方自行降级处理。
func (d CandidateData) ToProfile() (*CandidateProfile, error) {
	raw, err := json.Marshal(map[string]interface{}(d))
	if err != nil {
		return nil, err
	}

	var profile CandidateProfile
	if err := json.Unmarshal(raw, &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}
