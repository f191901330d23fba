package entity

import (
	"net/http"
	"qiming/lib/validate"
)

// GenerateParams is the baby info supplied by the client. Surname and gender
// are required; the rest shape the prompt when present.
type GenerateParams struct {
	Surname      string `json:"surname" bson:"surname" validate:"required,min=1,max=10"`
	Gender       string `json:"gender" bson:"gender" validate:"required,oneof=male female unknown"`
	BirthDate    string `json:"birthDate,omitempty" bson:"birth_date,omitempty" validate:"omitempty,max=20"`
	BirthTime    string `json:"birthTime,omitempty" bson:"birth_time,omitempty" validate:"omitempty,max=20"`
	Requirements string `json:"requirements,omitempty" bson:"requirements,omitempty" validate:"omitempty,max=500"`
}

func (p *GenerateParams) Bind(_ *http.Request) error {
	return validate.Struct(p)
}

// NameResult is one generated name in the fixed response schema. Id is always
// assigned server-side; ids proposed by the model are discarded.
type NameResult struct {
	Id             string `json:"id" bson:"id"`
	Name           string `json:"name" bson:"name"`
	FullName       string `json:"full_name" bson:"full_name"`
	Pinyin         string `json:"pinyin" bson:"pinyin"`
	Meaning        string `json:"meaning" bson:"meaning"`
	CulturalSource string `json:"cultural_source" bson:"cultural_source"`
	WuxingAnalysis string `json:"wuxing_analysis,omitempty" bson:"wuxing_analysis,omitempty"`
	Score          int    `json:"score" bson:"score"`
	Highlight      string `json:"highlight" bson:"highlight"`
	MbtiTendency   string `json:"mbti_tendency,omitempty" bson:"mbti_tendency,omitempty"`
}

// GenerateResult is the payload of a successful generation call.
type GenerateResult struct {
	Names          []NameResult `json:"names"`
	GenerationTime int64        `json:"generationTime"`
}
