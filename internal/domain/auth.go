package domain

// SubjectType differentiates user vs agent tokens.
type SubjectType string

const (
	SubjectTypeUser  SubjectType = "USER"
	SubjectTypeAgent SubjectType = "AGENT"
)
