package parser

import "fmt"

// 分类抽取提示词模板。
// 模板刻意要求模型只返回JSON，并给出期望的结构示例，降低输出混入解释文字的概率。
// 提示词保持英文，CLI模型对英文指令的遵循度更稳定。

const basicInfoPromptTemplate = `Extract basic candidate information from this CV text and return ONLY a JSON object:

%s

Return ONLY this JSON structure (no other text):
{
    "name": "candidate name",
    "email": "email address",
    "phone": "phone number",
    "summary": "brief professional summary"
}

IMPORTANT: Return ONLY the JSON object, no other text.`

const skillsPromptTemplate = `Extract all skills from this CV text and return ONLY a JSON object:

%s

Return ONLY this JSON structure (no other text):
{
    "skills": ["skill1", "skill2", "skill3"]
}

IMPORTANT: Return ONLY the JSON object, no other text.`

const experiencePromptTemplate = `Extract work experience from this CV text and return ONLY a JSON object:

%s

Return ONLY this JSON structure (no other text):
{
    "experience": [
        {
            "company": "company name",
            "position": "job title",
            "dates": "employment dates",
            "description": "brief description"
        }
    ]
}

IMPORTANT: Return ONLY the JSON object, no other text.`

const educationPromptTemplate = `Extract education information from this CV text and return ONLY a JSON object:

%s

Return ONLY this JSON structure (no other text):
{
    "education": [
        {
            "institution": "school name",
            "degree": "degree name",
            "dates": "attendance dates"
        }
    ]
}

IMPORTANT: Return ONLY the JSON object, no other text.`

const projectsCertsPromptTemplate = `Extract projects and certifications from this CV text and return ONLY a JSON object:

%s

Return ONLY this JSON structure (no other text):
{
    "projects": [
        {
            "name": "project name",
            "description": "project description"
        }
    ],
    "certifications": ["certification1", "certification2"]
}

IMPORTANT: Return ONLY the JSON object, no other text.`

// fullProfilePromptTemplate 一次性抽取完整候选人档案，用于同步解析接口
const fullProfilePromptTemplate = `Extract a complete structured candidate profile from this CV text and return ONLY a JSON object:

%s

Return ONLY this JSON structure (no other text):
{
    "name": "candidate name",
    "email": "email address",
    "phone": "phone number",
    "summary": "brief professional summary",
    "contact_info": {
        "email": "email address",
        "phone": "phone number",
        "linkedin": "linkedin url",
        "github": "github url",
        "portfolio": "portfolio url",
        "address": "address"
    },
    "skills": ["skill1", "skill2"],
    "experience": [
        {
            "company": "company name",
            "position": "job title",
            "dates": "employment dates",
            "description": "brief description"
        }
    ],
    "education": [
        {
            "institution": "school name",
            "degree": "degree name",
            "dates": "attendance dates"
        }
    ],
    "projects": [
        {
            "name": "project name",
            "description": "project description"
        }
    ],
    "certifications": ["certification1"]
}

Omit fields that are not present in the CV. IMPORTANT: Return ONLY the JSON object, no other text.`

// BuildBasicInfoPrompt 构建基本信息抽取提示词
func BuildBasicInfoPrompt(cvText string) string {
	return fmt.Sprintf(basicInfoPromptTemplate, cvText)
}

// BuildSkillsPrompt 构建技能抽取提示词
func BuildSkillsPrompt(cvText string) string {
	return fmt.Sprintf(skillsPromptTemplate, cvText)
}

// BuildExperiencePrompt 构建工作经历抽取提示词
func BuildExperiencePrompt(cvText string) string {
	return fmt.Sprintf(experiencePromptTemplate, cvText)
}

// BuildEducationPrompt 构建教育经历抽取提示词
func BuildEducationPrompt(cvText string) string {
	return fmt.Sprintf(educationPromptTemplate, cvText)
}

// BuildProjectsCertsPrompt 构建项目与证书抽取提示词
func BuildProjectsCertsPrompt(cvText string) string {
	return fmt.Sprintf(projectsCertsPromptTemplate, cvText)
}

// BuildFullProfilePrompt 构建一次性全量抽取提示词
func BuildFullProfilePrompt(cvText string) string {
	return fmt.Sprintf(fullProfilePromptTemplate, cvText)
}
