package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCandidateDataMerge(t *testing.T) {
	data := make(CandidateData)
	data.Merge(map[string]interface{}{"name": "John Doe", "email": "john@example.com"})
	data.Merge(map[string]interface{}{"skills": []interface{}{"Go", "Python"}})

	assert.Equal(t, "John Doe", data["name"])
	assert.Equal(t, "john@example.com", data["email"])
	assert.Len(t, data["skills"], 2)
}

func TestCandidateDataToProfile(t *testing.T) {
	data := CandidateData{
		"name":   "John Doe",
		"skills": []interface{}{"Go", "Python", "Kubernetes"},
		"experience": []interface{}{
			map[string]interface{}{"company": "Acme", "position": "Engineer"},
		},
		"education": []interface{}{
			map[string]interface{}{"institution": "MIT", "degree": "BSc"},
		},
		// 证书允许纯字符串和结构化对象混用
		"certifications": []interface{}{
			"CKA",
			map[string]interface{}{"name": "AWS SAA", "issuer": "Amazon"},
		},
	}

	profile, err := data.ToProfile()
	require.NoError(t, err, "形状正确的数据应能解码为档案")

	assert.Equal(t, "John Doe", profile.Name)
	assert.Equal(t, []string{"Go", "Python", "Kubernetes"}, profile.Skills)
	require.Len(t, profile.Experience, 1)
	assert.Equal(t, "Acme", profile.Experience[0].Company)
	require.Len(t, profile.Education, 1)
	assert.Equal(t, "MIT", profile.Education[0].Institution)

	require.Len(t, profile.Certifications, 2)
	assert.Equal(t, "CKA", profile.Certifications[0].Name)
	assert.Equal(t, "AWS SAA", profile.Certifications[1].Name)
	assert.Equal(t, "Amazon", profile.Certifications[1].Issuer)
}

func TestCandidateDataToProfileShapeMismatch(t *testing.T) {
	data := CandidateData{"skills": "not a list"}

	_, err := data.ToProfile()
	assert.Error(t, err, "形状不符的数据应返回错误而不是静默丢弃")
}
