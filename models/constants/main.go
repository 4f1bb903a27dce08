package constants

/*
	Defines a set of base level
	constants and enums to be used
	throughout Helix and it's
	associated services.
*/
type Phase string
type TaskState string
type TaskKind string

type Classification string
type Impact string

type AssemblyId string
type AnalysisType string

type SortDirection string
type SortField string
