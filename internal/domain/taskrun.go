package domain

// TaskRunsResponse is the PI_JSON taskruns document.
type TaskRunsResponse struct {
	TaskRuns []TaskRun `json:"taskRuns"`
}

// TaskRun reports the state of one workflow run.
type TaskRun struct {
	ID                string `json:"id"`
	Status            string `json:"status"`
	WorkflowID        string `json:"workflowId"`
	Description       string `json:"description,omitempty"`
	UserID            string `json:"userId,omitempty"`
	Current           bool   `json:"current,omitempty"`
	FSSID             string `json:"fssId,omitempty"`
	DispatchTime      string `json:"dispatchTime,omitempty"`
	CompletionTime    string `json:"completionTime,omitempty"`
	TimeZero          string `json:"timeZero,omitempty"`
	OutputStartTime   string `json:"outputStartTime,omitempty"`
	OutputEndTime     string `json:"outputEndTime,omitempty"`
	ForecastStartTime string `json:"forecastStartTime,omitempty"`
}
