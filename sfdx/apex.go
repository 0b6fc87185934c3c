package sfdx

type ApexResult struct {
	Success             bool   `json:"success"`
	Compiled            bool   `json:"compiled"`
	CompileProblem      string `json:"compileProblem"`
	ExceptionMessage    string `json:"exceptionMessage"`
	ExceptionStackTrace string `json:"exceptionStackTrace"`
	Line                int    `json:"line"`
	Column              int    `json:"column"`
	Logs                string `json:"logs"`
}
